package vnpay

import "strings"

// IntentKind names the business entity and operation a payment belongs to.
type IntentKind string

const (
	KindOrderPayment       IntentKind = "order_payment"
	KindOrderDeposit       IntentKind = "order_deposit"
	KindReservationDeposit IntentKind = "reservation_deposit"
)

const (
	refPrefixOrder              = "ORDER"
	refPrefixOrderDeposit       = "DEPOSIT_ORDER"
	refPrefixReservationDeposit = "DEPOSIT_RES"
)

// EncodeRef builds the transaction reference carried in vnp_TxnRef:
// PREFIX_targetID. The target id is embedded verbatim so the callback can
// load the entity by primary key.
func EncodeRef(kind IntentKind, targetID string) string {
	return refPrefix(kind) + "_" + targetID
}

func refPrefix(kind IntentKind) string {
	switch kind {
	case KindOrderDeposit:
		return refPrefixOrderDeposit
	case KindReservationDeposit:
		return refPrefixReservationDeposit
	default:
		return refPrefixOrder
	}
}

// Longest prefix first: a DEPOSIT_ORDER ref must not be claimed by a shorter
// token, and target ids may themselves contain underscores.
var canonicalPrefixes = []struct {
	prefix string
	kind   IntentKind
}{
	{refPrefixOrderDeposit, KindOrderDeposit},
	{refPrefixReservationDeposit, KindReservationDeposit},
	{refPrefixOrder, KindOrderPayment},
}

// DecodeRef parses a canonical transaction reference. The prefix match is
// case-insensitive; everything after the prefix delimiter is the target id,
// underscores included. Returns false for unknown prefixes or empty ids.
func DecodeRef(ref string) (IntentKind, string, bool) {
	upper := strings.ToUpper(ref)
	for _, p := range canonicalPrefixes {
		if !strings.HasPrefix(upper, p.prefix+"_") {
			continue
		}
		id := ref[len(p.prefix)+1:]
		if id == "" {
			return "", "", false
		}
		return p.kind, id, true
	}
	return "", "", false
}

// Historical reference formats still arrive from receipts issued before the
// prefixes were settled. Longest first so ORD never claims an ORDER_ ref.
var legacyAliases = []struct {
	prefix string
	kind   IntentKind
}{
	{refPrefixOrderDeposit, KindOrderDeposit},
	{refPrefixReservationDeposit, KindReservationDeposit},
	{"DEPOSITORD", KindOrderDeposit},
	{"DEPOSITRES", KindReservationDeposit},
	{"DEP_ORDER", KindOrderDeposit},
	{"DEP_RES", KindReservationDeposit},
	{refPrefixOrder, KindOrderPayment},
	{"ORDR", KindOrderPayment},
	{"ORD", KindOrderPayment},
}

// DecodeLegacyRef is the tolerant fallback used when DecodeRef rejects a
// reference that carried a valid signature. It accepts the alias prefixes
// and tolerates '-' or a missing separator between prefix and id.
func DecodeLegacyRef(ref string) (IntentKind, string, bool) {
	upper := strings.ToUpper(ref)
	for _, a := range legacyAliases {
		if !strings.HasPrefix(upper, a.prefix) {
			continue
		}
		id := ref[len(a.prefix):]
		if id != "" && (id[0] == '_' || id[0] == '-') {
			id = id[1:]
		}
		if id == "" {
			continue
		}
		return a.kind, id, true
	}
	return "", "", false
}
