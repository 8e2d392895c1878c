package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Sign computes the hex HMAC-SHA512 digest of the canonical form of params.
// The signature fields themselves and empty values are excluded from the
// signed string.
func Sign(params map[string]string, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(canonicalize(params, false)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the digest over params and compares it against candidate
// in constant time.
func Verify(params map[string]string, secret, candidate string) bool {
	if candidate == "" {
		return false
	}
	expected := Sign(params, secret)
	return hmac.Equal([]byte(expected), []byte(candidate))
}

// EncodeQuery serializes params in the exact order and encoding used for
// signing, so the transmitted query string and the signed string agree
// byte-for-byte. Unlike the signed string it keeps vnp_SecureHashType, which
// is transmitted but never signed.
func EncodeQuery(params map[string]string) string {
	return canonicalize(params, true)
}

// canonicalize builds encodedKey=encodedValue pairs joined by '&'. Keys are
// sorted by their percent-encoded form, not the raw string: the gateway's
// reference implementation sorts after encoding, and the two orders differ
// for keys containing characters that encode differently. Do not change.
func canonicalize(params map[string]string, keepHashType bool) string {
	type pair struct{ key, value string }

	pairs := make([]pair, 0, len(params))
	for k, v := range params {
		if k == ParamSecureHash {
			continue
		}
		if k == ParamSecureHashType && !keepHashType {
			continue
		}
		if v == "" {
			continue
		}
		pairs = append(pairs, pair{encode(k), encode(v)})
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
	}
	return b.String()
}

// encode percent-encodes with spaces rendered as '+'.
func encode(s string) string {
	return url.QueryEscape(s)
}
