package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minhtn89/bistro-backend/internal/domain"
)

const orderColumns = `id, user_id, status, payment_status, payment_method,
	total_amount, final_amount, deposit_amount, created_at, updated_at`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id,
	)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return o, nil
}

// MarkPaid transitions the order to paid. The predicate makes the write a
// compare-and-set: a concurrent delivery that already settled leaves zero
// rows affected, and the caller skips its side effects.
func (r *OrderRepository) MarkPaid(ctx context.Context, tx *sql.Tx, id uuid.UUID, method string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET payment_status = $1, status = $2, payment_method = $3, updated_at = now()
		WHERE id = $4 AND payment_status <> $1`,
		domain.PaymentStatusPaid, domain.OrderStatusPaid, method, id,
	)
	if err != nil {
		return false, fmt.Errorf("MarkPaid: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("MarkPaid: rows affected: %w", err)
	}
	return rows > 0, nil
}

// MarkPaymentFailed records a declined payment. A paid order is never
// downgraded: a stale failure callback racing a success must lose.
func (r *OrderRepository) MarkPaymentFailed(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE orders SET payment_status = $1, updated_at = now()
		WHERE id = $2 AND payment_status <> $3`,
		domain.PaymentStatusFailed, id, domain.PaymentStatusPaid,
	)
	if err != nil {
		return fmt.Errorf("MarkPaymentFailed: %w", err)
	}
	return nil
}

func (r *OrderRepository) AddDeposit(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET deposit_amount = deposit_amount + $1, updated_at = now()
		WHERE id = $2`,
		amount, id,
	)
	if err != nil {
		return fmt.Errorf("AddDeposit: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("AddDeposit: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("AddDeposit: %w", domain.ErrNotFound)
	}
	return nil
}

func scanOrder(s scanner) (*domain.Order, error) {
	var o domain.Order
	var userID uuid.NullUUID
	var finalAmount decimal.NullDecimal

	err := s.Scan(
		&o.ID, &userID, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.TotalAmount, &finalAmount, &o.DepositAmount, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		o.UserID = &userID.UUID
	}
	if finalAmount.Valid {
		o.FinalAmount = &finalAmount.Decimal
	}
	return &o, nil
}
