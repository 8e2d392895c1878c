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

const reservationColumns = `id, user_id, status, guest_count, reserved_for,
	deposit_amount, created_at, updated_at`

type ReservationRepository struct {
	db *sql.DB
}

func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id,
	)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) AddDeposit(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET deposit_amount = deposit_amount + $1, updated_at = now()
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

func scanReservation(s scanner) (*domain.Reservation, error) {
	var res domain.Reservation
	var userID uuid.NullUUID

	err := s.Scan(
		&res.ID, &userID, &res.Status, &res.GuestCount, &res.ReservedFor,
		&res.DepositAmount, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		res.UserID = &userID.UUID
	}
	return &res, nil
}
