package vnpay

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Callback path prefixes for the two handler audiences. The gateway is
// registered with the admin prefix; app-facing intents must be rewritten to
// the sibling prefix so callbacks reach the app handler set.
const (
	adminCallbackPrefix = "/api/payments"
	appCallbackPrefix   = "/api/app/payments"
)

const mockBaseURL = "http://localhost:8089/pay"

// PaymentIntent is the request to pay or deposit. Constructed per request
// and consumed immediately; never persisted.
type PaymentIntent struct {
	Kind     IntentKind
	TargetID string
	// AmountMinorUnits is the charge in the currency's smallest unit
	// (VND amount multiplied by 100). Must be positive.
	AmountMinorUnits int64
	OrderInfo        string
	BankCode         string
	ClientIP         string
	// ReturnURL overrides the configured callback URL. Honored outside
	// production only, and only for http/https URLs.
	ReturnURL string
}

// URLBuilder composes signed redirect URLs to the hosted payment page.
type URLBuilder struct {
	cfg Config
	now func() time.Time
}

func NewURLBuilder(cfg Config) *URLBuilder {
	return &URLBuilder{cfg: cfg, now: time.Now}
}

// BuildPaymentURL returns the fully-qualified gateway URL for intent.
// Returns ErrNotConfigured when merchant credentials are missing in
// production; outside production a mock URL is returned instead so the flow
// can be exercised locally.
func (b *URLBuilder) BuildPaymentURL(intent PaymentIntent) (string, error) {
	if intent.AmountMinorUnits <= 0 {
		return "", ErrInvalidAmount
	}

	params := b.buildParams(intent)

	if !b.cfg.Configured() {
		if b.cfg.Production {
			return "", ErrNotConfigured
		}
		return b.mockURL(params), nil
	}

	hash := Sign(params, b.cfg.HashSecret)
	return b.baseURL() + "?" + EncodeQuery(params) + "&" + ParamSecureHash + "=" + hash, nil
}

func (b *URLBuilder) buildParams(intent PaymentIntent) map[string]string {
	// Gateway expects YYYYMMDDHHMMSS local time, no timezone marker.
	createDate := b.now().Format("20060102150405")

	params := map[string]string{
		ParamVersion:        Version,
		ParamCommand:        CommandPay,
		ParamMerchantCode:   b.cfg.MerchantCode,
		ParamAmount:         strconv.FormatInt(intent.AmountMinorUnits, 10),
		ParamCreateDate:     createDate,
		ParamCurrCode:       CurrencyCode,
		ParamIPAddr:         NormalizeClientIP(intent.ClientIP),
		ParamLocale:         Locale,
		ParamOrderInfo:      intent.OrderInfo,
		ParamOrderType:      OrderTypeOther,
		ParamReturnURL:      b.resolveReturnURL(intent.ReturnURL),
		ParamTxnRef:         EncodeRef(intent.Kind, intent.TargetID),
		ParamSecureHashType: SecureHashType,
	}
	if intent.BankCode != "" {
		params[ParamBankCode] = intent.BankCode
	}
	return params
}

// resolveReturnURL picks the callback URL: explicit intent override
// (non-production, http/https) wins, then the dev override, then the
// app-facing configured URL, then the default. Whatever is chosen, an
// admin-prefixed path is rewritten to the app prefix.
func (b *URLBuilder) resolveReturnURL(override string) string {
	resolved := b.cfg.ReturnURL
	if b.cfg.AppReturnURL != "" {
		resolved = b.cfg.AppReturnURL
	}
	if !b.cfg.Production {
		if b.cfg.DevReturnOverride != "" {
			resolved = b.cfg.DevReturnOverride
		}
		if isWebURL(override) {
			resolved = override
		}
	}
	return strings.Replace(resolved, adminCallbackPrefix, appCallbackPrefix, 1)
}

func isWebURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// mockURL points at the local mock gateway and is explicitly flagged so it
// can never be mistaken for a live checkout URL.
func (b *URLBuilder) mockURL(params map[string]string) string {
	return mockBaseURL + "?mock=1&" + EncodeQuery(params)
}

func (b *URLBuilder) baseURL() string {
	return strings.TrimSuffix(b.cfg.BaseURL, "?")
}

// NormalizeClientIP maps the IPv6 loopback and IPv4-mapped presentations
// onto plain IPv4; the gateway rejects IPv6 literals.
func NormalizeClientIP(ip string) string {
	if ip == "" || ip == "::1" {
		return "127.0.0.1"
	}
	return strings.TrimPrefix(ip, "::ffff:")
}
