package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"

	"github.com/minhtn89/bistro-backend/internal/vnpay"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	// VNPay sandbox/production credentials. Left empty, checkout serves
	// mock URLs outside production and 503s in production.
	VNPTmnCode          string `env:"VNP_TMN_CODE"`
	VNPHashSecret       string `env:"VNP_HASH_SECRET"`
	VNPURL              string `env:"VNP_URL" envDefault:"https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	VNPReturnURL        string `env:"VNP_RETURN_URL"`
	VNPReturnURLApp     string `env:"VNP_RETURN_URL_APP"`
	VNPDevReturnOverride string `env:"VNP_DEV_RETURN_OVERRIDE"`
	VNPAllowDebug       bool   `env:"VNP_ALLOW_DEBUG" envDefault:"false"`

	ClientURL   string `env:"CLIENT_URL" envDefault:"http://localhost:3000"`
	AppDeepLink string `env:"APP_DEEP_LINK"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

// Gateway assembles the signing/verification config from the env surface.
func (c *Config) Gateway() vnpay.Config {
	return vnpay.Config{
		MerchantCode:      c.VNPTmnCode,
		HashSecret:        c.VNPHashSecret,
		BaseURL:           c.VNPURL,
		ReturnURL:         c.VNPReturnURL,
		AppReturnURL:      c.VNPReturnURLApp,
		DevReturnOverride: c.VNPDevReturnOverride,
		AllowDebug:        c.VNPAllowDebug,
		Production:        c.Production(),
	}
}
