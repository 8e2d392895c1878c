package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minhtn89/bistro-backend/internal/domain"
	"github.com/minhtn89/bistro-backend/internal/vnpay"
)

// Ack is the gateway-facing acknowledgement. The code vocabulary drives the
// gateway's retry behavior and must not change: anything other than "00"
// on the notification path makes the gateway redeliver.
type Ack struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

var (
	AckSuccess             = Ack{"00", "Success"}
	AckNotRecognized       = Ack{"01", "Not recognized"}
	AckOrderNotFound       = Ack{"01", "Order not found"}
	AckReservationNotFound = Ack{"01", "Reservation not found"}
	AckChecksumFailed      = Ack{"97", "Checksum failed"}
	AckUnhandled           = Ack{"02", "Unhandled"}
)

type orderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	MarkPaid(ctx context.Context, tx *sql.Tx, id uuid.UUID, method string) (bool, error)
	MarkPaymentFailed(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
	AddDeposit(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount decimal.Decimal) error
}

type reservationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	AddDeposit(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount decimal.Decimal) error
}

type settlementJournal interface {
	Record(ctx context.Context, tx *sql.Tx, t *domain.GatewayTransaction) error
}

// paymentHooks is the post-payment collaborator: notifications, loyalty
// points. Its failures never roll back a settled payment.
type paymentHooks interface {
	OnOrderPaymentSucceeded(ctx context.Context, orderID uuid.UUID) error
}

const paymentMethodVNPay = "vnpay"

// SettlementCoordinator applies verified callback outcomes to orders and
// reservations exactly once. Both delivery paths (browser redirect and
// gateway notification) feed the same instance concurrently; idempotency
// comes from the paid-state compare-and-set plus the settlement journal's
// unique gateway transaction key.
type SettlementCoordinator struct {
	orders       orderStore
	reservations reservationStore
	journal      settlementJournal
	hooks        paymentHooks
	db           *sql.DB
	logger       *slog.Logger
}

func NewSettlementCoordinator(
	orders orderStore,
	reservations reservationStore,
	journal settlementJournal,
	hooks paymentHooks,
	db *sql.DB,
	logger *slog.Logger,
) *SettlementCoordinator {
	return &SettlementCoordinator{
		orders:       orders,
		reservations: reservations,
		journal:      journal,
		hooks:        hooks,
		db:           db,
		logger:       logger,
	}
}

// Settle maps a callback outcome onto the target entity's state. The
// returned Ack is final for the gateway; a non-nil error marks a transient
// store failure the caller should surface as a retryable HTTP error instead.
func (s *SettlementCoordinator) Settle(ctx context.Context, outcome vnpay.CallbackOutcome) (Ack, error) {
	if !outcome.SignatureValid {
		return AckChecksumFailed, nil
	}

	if outcome.Kind == "" || outcome.TargetID == "" {
		// Signature checked out but the reference didn't decode; keep it
		// loud for manual reconciliation.
		s.logger.Warn("unrecognized transaction reference on verified callback",
			"txn_ref", outcome.Params[vnpay.ParamTxnRef],
			"gateway_txn_id", outcome.GatewayTxnID,
		)
		return AckNotRecognized, nil
	}

	switch outcome.Kind {
	case vnpay.KindOrderPayment:
		return s.settleOrderPayment(ctx, outcome)
	case vnpay.KindOrderDeposit:
		return s.settleOrderDeposit(ctx, outcome)
	case vnpay.KindReservationDeposit:
		return s.settleReservationDeposit(ctx, outcome)
	default:
		return AckUnhandled, nil
	}
}

func (s *SettlementCoordinator) settleOrderPayment(ctx context.Context, outcome vnpay.CallbackOutcome) (Ack, error) {
	id, err := uuid.Parse(outcome.TargetID)
	if err != nil {
		return AckOrderNotFound, nil
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AckOrderNotFound, nil
		}
		return AckSuccess, fmt.Errorf("settleOrderPayment: %w", err)
	}

	if order.PaymentStatus == domain.PaymentStatusPaid {
		s.logger.Info("order already paid, callback settled as no-op",
			"order_id", id, "gateway_txn_id", outcome.GatewayTxnID)
		return AckSuccess, nil
	}

	if !outcome.Succeeded {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return AckSuccess, fmt.Errorf("settleOrderPayment: begin tx: %w", err)
		}
		defer tx.Rollback()

		if err := s.orders.MarkPaymentFailed(ctx, tx, id); err != nil {
			return AckSuccess, fmt.Errorf("settleOrderPayment: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return AckSuccess, fmt.Errorf("settleOrderPayment: commit: %w", err)
		}

		s.logger.Info("order payment failed", "order_id", id, "response_code", outcome.ResponseCode)
		return AckSuccess, nil
	}

	paid, err := s.applyOrderPaid(ctx, id, outcome)
	if err != nil {
		return AckSuccess, err
	}

	if paid {
		// Hook runs after commit: the money state is settled either way,
		// and a notification/loyalty failure must never unsettle it.
		if err := s.hooks.OnOrderPaymentSucceeded(ctx, id); err != nil {
			s.logger.Error("payment success hook failed, order remains paid",
				"order_id", id, "error", err)
		}
		s.logger.Info("order paid", "order_id", id,
			"gateway_txn_id", outcome.GatewayTxnID, "amount_minor", outcome.AmountMinorUnits)
	}

	return AckSuccess, nil
}

// applyOrderPaid journals the gateway transaction and flips the order to
// paid in one transaction. Reports whether this call won the transition;
// the losing delivery of a concurrent pair gets false.
func (s *SettlementCoordinator) applyOrderPaid(ctx context.Context, id uuid.UUID, outcome vnpay.CallbackOutcome) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("applyOrderPaid: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.journal.Record(ctx, tx, s.journalEntry(id, outcome)); err != nil {
		if errors.Is(err, domain.ErrDuplicateSettlement) {
			return false, nil
		}
		return false, fmt.Errorf("applyOrderPaid: %w", err)
	}

	updated, err := s.orders.MarkPaid(ctx, tx, id, paymentMethodVNPay)
	if err != nil {
		return false, fmt.Errorf("applyOrderPaid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("applyOrderPaid: commit: %w", err)
	}
	return updated, nil
}

func (s *SettlementCoordinator) settleOrderDeposit(ctx context.Context, outcome vnpay.CallbackOutcome) (Ack, error) {
	id, err := uuid.Parse(outcome.TargetID)
	if err != nil {
		return AckOrderNotFound, nil
	}

	if _, err := s.orders.GetByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AckOrderNotFound, nil
		}
		return AckSuccess, fmt.Errorf("settleOrderDeposit: %w", err)
	}

	if !outcome.Succeeded {
		return AckSuccess, nil
	}

	applied, err := s.applyDeposit(ctx, id, outcome, s.orders.AddDeposit)
	if err != nil {
		return AckSuccess, fmt.Errorf("settleOrderDeposit: %w", err)
	}
	if applied {
		s.logger.Info("order deposit settled", "order_id", id,
			"gateway_txn_id", outcome.GatewayTxnID, "amount_minor", outcome.AmountMinorUnits)
	}
	return AckSuccess, nil
}

func (s *SettlementCoordinator) settleReservationDeposit(ctx context.Context, outcome vnpay.CallbackOutcome) (Ack, error) {
	id, err := uuid.Parse(outcome.TargetID)
	if err != nil {
		return AckReservationNotFound, nil
	}

	if _, err := s.reservations.GetByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AckReservationNotFound, nil
		}
		return AckSuccess, fmt.Errorf("settleReservationDeposit: %w", err)
	}

	if !outcome.Succeeded {
		return AckSuccess, nil
	}

	applied, err := s.applyDeposit(ctx, id, outcome, s.reservations.AddDeposit)
	if err != nil {
		return AckSuccess, fmt.Errorf("settleReservationDeposit: %w", err)
	}
	if applied {
		s.logger.Info("reservation deposit settled", "reservation_id", id,
			"gateway_txn_id", outcome.GatewayTxnID, "amount_minor", outcome.AmountMinorUnits)
	}
	return AckSuccess, nil
}

// applyDeposit increments the target's deposit inside one transaction,
// gated by the journal. Deposits are additive, so the journal's unique key
// is the only thing standing between a redelivered callback and a double
// credit.
func (s *SettlementCoordinator) applyDeposit(
	ctx context.Context,
	id uuid.UUID,
	outcome vnpay.CallbackOutcome,
	add func(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount decimal.Decimal) error,
) (bool, error) {
	amount := decimal.NewFromInt(outcome.AmountMinorUnits).Div(decimal.NewFromInt(100))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("applyDeposit: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.journal.Record(ctx, tx, s.journalEntry(id, outcome)); err != nil {
		if errors.Is(err, domain.ErrDuplicateSettlement) {
			s.logger.Info("duplicate deposit callback ignored",
				"target_id", id, "gateway_txn_id", outcome.GatewayTxnID)
			return false, nil
		}
		return false, fmt.Errorf("applyDeposit: %w", err)
	}

	if err := add(ctx, tx, id, amount); err != nil {
		return false, fmt.Errorf("applyDeposit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("applyDeposit: commit: %w", err)
	}
	return true, nil
}

func (s *SettlementCoordinator) journalEntry(targetID uuid.UUID, outcome vnpay.CallbackOutcome) *domain.GatewayTransaction {
	return &domain.GatewayTransaction{
		ID:               uuid.New(),
		TxnRef:           outcome.Params[vnpay.ParamTxnRef],
		GatewayTxnID:     outcome.GatewayTxnID,
		Kind:             string(outcome.Kind),
		TargetID:         targetID,
		AmountMinorUnits: outcome.AmountMinorUnits,
		ResponseCode:     outcome.ResponseCode,
		CreatedAt:        time.Now().UTC(),
	}
}
