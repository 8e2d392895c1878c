package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minhtn89/bistro-backend/internal/domain"
)

func SeedTestOrder(t *testing.T, db *sql.DB, userID *uuid.UUID, total decimal.Decimal) *domain.Order {
	t.Helper()

	o := &domain.Order{
		ID:            uuid.New(),
		UserID:        userID,
		Status:        domain.OrderStatusWaitingPayment,
		PaymentStatus: domain.PaymentStatusPending,
		TotalAmount:   total,
		DepositAmount: decimal.Zero,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO orders (id, user_id, status, payment_status, total_amount, deposit_amount, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.UserID, o.Status, o.PaymentStatus, o.TotalAmount, o.DepositAmount, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed test order: %v", err)
	}
	return o
}

func SeedTestReservation(t *testing.T, db *sql.DB, userID *uuid.UUID, guests int) *domain.Reservation {
	t.Helper()

	r := &domain.Reservation{
		ID:            uuid.New(),
		UserID:        userID,
		Status:        domain.ReservationStatusConfirmed,
		GuestCount:    guests,
		ReservedFor:   time.Now().UTC().Add(24 * time.Hour),
		DepositAmount: decimal.Zero,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO reservations (id, user_id, status, guest_count, reserved_for, deposit_amount, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.UserID, r.Status, r.GuestCount, r.ReservedFor, r.DepositAmount, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed test reservation: %v", err)
	}
	return r
}

func GetOrderPaymentState(t *testing.T, db *sql.DB, orderID uuid.UUID) (paymentStatus string, method sql.NullString) {
	t.Helper()

	err := db.QueryRow(
		`SELECT payment_status, payment_method FROM orders WHERE id = $1`, orderID,
	).Scan(&paymentStatus, &method)
	if err != nil {
		t.Fatalf("get order payment state %s: %v", orderID, err)
	}
	return paymentStatus, method
}

func GetOrderDeposit(t *testing.T, db *sql.DB, orderID uuid.UUID) decimal.Decimal {
	t.Helper()

	var d decimal.Decimal
	err := db.QueryRow(`SELECT deposit_amount FROM orders WHERE id = $1`, orderID).Scan(&d)
	if err != nil {
		t.Fatalf("get order deposit %s: %v", orderID, err)
	}
	return d
}

func GetReservationDeposit(t *testing.T, db *sql.DB, reservationID uuid.UUID) decimal.Decimal {
	t.Helper()

	var d decimal.Decimal
	err := db.QueryRow(`SELECT deposit_amount FROM reservations WHERE id = $1`, reservationID).Scan(&d)
	if err != nil {
		t.Fatalf("get reservation deposit %s: %v", reservationID, err)
	}
	return d
}

func CountGatewayTransactions(t *testing.T, db *sql.DB, txnRef string) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM gateway_transactions WHERE txn_ref = $1`, txnRef).Scan(&count)
	if err != nil {
		t.Fatalf("count gateway transactions for %s: %v", txnRef, err)
	}
	return count
}
