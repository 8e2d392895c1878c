package vnpay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedCallback(t *testing.T, mutate func(map[string]string)) map[string]string {
	t.Helper()
	params := map[string]string{
		ParamAmount:        "15050",
		ParamResponseCode:  "00",
		ParamTxnRef:        "ORDER_e1fe0b16-de64-43c9-b2b3-d92f483b8ca7",
		ParamTransactionNo: "14226112",
		ParamBankTranNo:    "VNP14226112",
		ParamPayDate:       "20260829143210",
	}
	if mutate != nil {
		mutate(params)
	}
	params[ParamSecureHash] = Sign(params, testSecret)
	return params
}

func TestVerifyCallback_Success(t *testing.T) {
	v := NewVerifier(testConfig())

	out := v.VerifyCallback(signedCallback(t, nil))

	assert.True(t, out.SignatureValid)
	assert.True(t, out.Succeeded)
	assert.Equal(t, KindOrderPayment, out.Kind)
	assert.Equal(t, "e1fe0b16-de64-43c9-b2b3-d92f483b8ca7", out.TargetID)
	assert.Equal(t, int64(15050), out.AmountMinorUnits)
	assert.Equal(t, "14226112", out.GatewayTxnID)
	assert.Equal(t, "00", out.ResponseCode)
	require.NotNil(t, out.Params)
}

func TestVerifyCallback_MissingSignature(t *testing.T) {
	v := NewVerifier(testConfig())

	params := signedCallback(t, nil)
	delete(params, ParamSecureHash)

	out := v.VerifyCallback(params)
	assert.False(t, out.SignatureValid)
	assert.False(t, out.Succeeded)
}

func TestVerifyCallback_TamperedParam(t *testing.T) {
	v := NewVerifier(testConfig())

	params := signedCallback(t, nil)
	params[ParamAmount] = "1"

	out := v.VerifyCallback(params)
	assert.False(t, out.SignatureValid)
	assert.False(t, out.Succeeded)
}

func TestVerifyCallback_DeclinedTransaction(t *testing.T) {
	v := NewVerifier(testConfig())

	out := v.VerifyCallback(signedCallback(t, func(p map[string]string) {
		p[ParamResponseCode] = "24"
	}))

	assert.True(t, out.SignatureValid)
	assert.False(t, out.Succeeded)
	assert.Equal(t, KindOrderPayment, out.Kind)
}

func TestVerifyCallback_LegacyRefFallback(t *testing.T) {
	v := NewVerifier(testConfig())

	out := v.VerifyCallback(signedCallback(t, func(p map[string]string) {
		p[ParamTxnRef] = "ORD_42"
	}))

	assert.True(t, out.SignatureValid)
	assert.Equal(t, KindOrderPayment, out.Kind)
	assert.Equal(t, "42", out.TargetID)
}

func TestVerifyCallback_NoLegacyFallbackWithoutValidSignature(t *testing.T) {
	v := NewVerifier(testConfig())

	params := signedCallback(t, func(p map[string]string) {
		p[ParamTxnRef] = "ORD_42"
	})
	params[ParamSecureHash] = "deadbeef"

	out := v.VerifyCallback(params)
	assert.False(t, out.SignatureValid)
	assert.Empty(t, out.Kind)
	assert.Empty(t, out.TargetID)
}

func TestVerifyCallback_UndecodableRef(t *testing.T) {
	v := NewVerifier(testConfig())

	out := v.VerifyCallback(signedCallback(t, func(p map[string]string) {
		p[ParamTxnRef] = "PAYOUT_42"
	}))

	assert.True(t, out.SignatureValid)
	assert.Empty(t, out.Kind)
	assert.Empty(t, out.TargetID)
}

func TestVerifyCallback_DebugBypass(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		allowDebug bool
		debugParam string
		want       bool
	}{
		{name: "flag outside production", production: false, debugParam: "1", want: true},
		{name: "allow-debug config outside production", production: false, allowDebug: true, want: true},
		{name: "never in production via flag", production: true, allowDebug: true, debugParam: "1", want: false},
		{name: "no flag no config", production: false, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Production = tc.production
			cfg.AllowDebug = tc.allowDebug
			v := NewVerifier(cfg)

			params := signedCallback(t, nil)
			params[ParamSecureHash] = "deadbeef" // would fail real verification
			if tc.debugParam != "" {
				params[ParamDebug] = tc.debugParam
			}

			out := v.VerifyCallback(params)
			assert.Equal(t, tc.want, out.SignatureValid)
		})
	}
}

func TestExpectedDigest_BlockedInProduction(t *testing.T) {
	prod := NewVerifier(testConfig())
	_, ok := prod.ExpectedDigest(map[string]string{ParamAmount: "100"})
	assert.False(t, ok)

	cfg := testConfig()
	cfg.Production = false
	dev := NewVerifier(cfg)
	digest, ok := dev.ExpectedDigest(map[string]string{ParamAmount: "100"})
	require.True(t, ok)
	assert.Equal(t, Sign(map[string]string{ParamAmount: "100"}, testSecret), digest)
}
