// Package vnpay implements the VNPay hosted-checkout protocol: canonical
// parameter signing, transaction reference encoding, redirect URL
// construction, and callback verification. All functions are pure; nothing
// in this package performs I/O.
package vnpay

import "errors"

const (
	Version        = "2.1.0"
	CommandPay     = "pay"
	CurrencyCode   = "VND"
	Locale         = "vn"
	OrderTypeOther = "other"
	SecureHashType = "HMACSHA512"

	// ResponseCodeSuccess is the gateway's business-success response code.
	ResponseCodeSuccess = "00"
)

// Gateway parameter names, as they appear on the wire.
const (
	ParamVersion        = "vnp_Version"
	ParamCommand        = "vnp_Command"
	ParamMerchantCode   = "vnp_TmnCode"
	ParamAmount         = "vnp_Amount"
	ParamBankCode       = "vnp_BankCode"
	ParamCreateDate     = "vnp_CreateDate"
	ParamCurrCode       = "vnp_CurrCode"
	ParamIPAddr         = "vnp_IpAddr"
	ParamLocale         = "vnp_Locale"
	ParamOrderInfo      = "vnp_OrderInfo"
	ParamOrderType      = "vnp_OrderType"
	ParamReturnURL      = "vnp_ReturnUrl"
	ParamTxnRef         = "vnp_TxnRef"
	ParamResponseCode   = "vnp_ResponseCode"
	ParamTransactionNo  = "vnp_TransactionNo"
	ParamBankTranNo     = "vnp_BankTranNo"
	ParamPayDate        = "vnp_PayDate"
	ParamSecureHash     = "vnp_SecureHash"
	ParamSecureHashType = "vnp_SecureHashType"

	// ParamDebug is a development-only flag; see Verifier.
	ParamDebug = "vnp_debug"
)

var (
	ErrNotConfigured = errors.New("vnpay: merchant code or hash secret not configured")
	ErrInvalidAmount = errors.New("vnpay: amount must be greater than zero")
)

// Config is the process-wide gateway configuration. It is read-only after
// startup; tests construct isolated instances with their own secrets.
type Config struct {
	MerchantCode string
	HashSecret   string
	// BaseURL is the hosted payment page, e.g. the sandbox vpcpay URL.
	BaseURL string
	// ReturnURL is the default callback URL registered with the gateway.
	ReturnURL string
	// AppReturnURL, when set, overrides ReturnURL for app-facing intents.
	AppReturnURL string
	// DevReturnOverride replaces the configured return URL outside
	// production, typically an ngrok tunnel reachable from the sandbox.
	DevReturnOverride string
	// AllowDebug enables the vnp_debug verification bypass. Ignored in
	// production regardless of its value.
	AllowDebug bool
	Production bool
}

// Configured reports whether the credentials needed to sign requests are
// present.
func (c Config) Configured() bool {
	return c.MerchantCode != "" && c.HashSecret != ""
}
