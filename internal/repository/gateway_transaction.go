package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/minhtn89/bistro-backend/internal/domain"
)

type GatewayTransactionRepository struct {
	db *sql.DB
}

func NewGatewayTransactionRepository(db *sql.DB) *GatewayTransactionRepository {
	return &GatewayTransactionRepository{db: db}
}

// Record inserts the settlement journal row for a callback. Returns
// domain.ErrDuplicateSettlement when the (txn_ref, gateway_txn_id) pair was
// already journaled, which is how redelivered callbacks are detected.
func (r *GatewayTransactionRepository) Record(ctx context.Context, tx *sql.Tx, t *domain.GatewayTransaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO gateway_transactions (
			id, txn_ref, gateway_txn_id, kind, target_id, amount_minor, response_code, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.TxnRef, t.GatewayTxnID, t.Kind, t.TargetID, t.AmountMinorUnits, t.ResponseCode, t.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Record: %w", domain.ErrDuplicateSettlement)
		}
		return fmt.Errorf("Record: %w", err)
	}
	return nil
}

func (r *GatewayTransactionRepository) CountByTxnRef(ctx context.Context, txnRef string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM gateway_transactions WHERE txn_ref = $1`, txnRef,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountByTxnRef: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
