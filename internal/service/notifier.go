package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/minhtn89/bistro-backend/internal/domain"
)

// PaymentNotifier reacts to settled order payments: it promotes the order's
// kitchen status and logs the event for downstream consumers. It runs
// outside the settlement transaction, so a failure here leaves the payment
// settled and is retried by ops tooling, not by the gateway.
type PaymentNotifier struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPaymentNotifier(db *sql.DB, logger *slog.Logger) *PaymentNotifier {
	return &PaymentNotifier{db: db, logger: logger}
}

func (n *PaymentNotifier) OnOrderPaymentSucceeded(ctx context.Context, orderID uuid.UUID) error {
	res, err := n.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`,
		domain.OrderStatusPaid, orderID, domain.OrderStatusWaitingPayment,
	)
	if err != nil {
		return fmt.Errorf("OnOrderPaymentSucceeded: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("OnOrderPaymentSucceeded: rows affected: %w", err)
	}
	if rows > 0 {
		n.logger.Info("order moved to paid status", "order_id", orderID)
	}
	return nil
}
