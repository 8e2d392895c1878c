package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusSeated    ReservationStatus = "seated"
	ReservationStatusCompleted ReservationStatus = "completed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

type Reservation struct {
	ID            uuid.UUID
	UserID        *uuid.UUID
	Status        ReservationStatus
	GuestCount    int
	ReservedFor   time.Time
	DepositAmount decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
