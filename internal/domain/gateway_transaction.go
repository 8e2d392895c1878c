package domain

import (
	"time"

	"github.com/google/uuid"
)

// GatewayTransaction is the journal record of a settled gateway callback.
// The (txn_ref, gateway_txn_id) pair is unique: a redelivered callback hits
// the constraint and settles as a no-op. It doubles as the audit trail for
// manual reconciliation.
type GatewayTransaction struct {
	ID               uuid.UUID
	TxnRef           string
	GatewayTxnID     string
	Kind             string
	TargetID         uuid.UUID
	AmountMinorUnits int64
	ResponseCode     string
	CreatedAt        time.Time
}
