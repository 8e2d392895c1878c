package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minhtn89/bistro-backend/internal/auth"
	"github.com/minhtn89/bistro-backend/internal/domain"
	"github.com/minhtn89/bistro-backend/internal/logging"
	"github.com/minhtn89/bistro-backend/internal/vnpay"
)

type urlBuilder interface {
	BuildPaymentURL(intent vnpay.PaymentIntent) (string, error)
}

type checkoutOrderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

type checkoutReservationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
}

// PaymentHandler serves the checkout endpoints: it resolves the target
// entity, builds a signed gateway redirect URL, and hands it back to the
// client. It never mutates payment state; that happens on the callback side.
type PaymentHandler struct {
	orders       checkoutOrderStore
	reservations checkoutReservationStore
	builder      urlBuilder
}

func NewPaymentHandler(orders checkoutOrderStore, reservations checkoutReservationStore, builder urlBuilder) *PaymentHandler {
	return &PaymentHandler{orders: orders, reservations: reservations, builder: builder}
}

type checkoutRequest struct {
	OrderID   string `json:"order_id"`
	BankCode  string `json:"bank_code,omitempty"`
	ReturnURL string `json:"return_url,omitempty"`
}

func (r checkoutRequest) validate() []FieldError {
	var errs []FieldError
	if r.OrderID == "" {
		errs = append(errs, FieldError{Field: "order_id", Message: "required"})
	} else if _, err := uuid.Parse(r.OrderID); err != nil {
		errs = append(errs, FieldError{Field: "order_id", Message: "must be a valid UUID"})
	}
	return errs
}

type depositRequest struct {
	OrderID       string          `json:"order_id,omitempty"`
	ReservationID string          `json:"reservation_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	BankCode      string          `json:"bank_code,omitempty"`
	ReturnURL     string          `json:"return_url,omitempty"`
}

func (r depositRequest) validateTarget(field, value string) []FieldError {
	var errs []FieldError
	if value == "" {
		errs = append(errs, FieldError{Field: field, Message: "required"})
	} else if _, err := uuid.Parse(value); err != nil {
		errs = append(errs, FieldError{Field: field, Message: "must be a valid UUID"})
	}
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	return errs
}

type redirectResponse struct {
	RedirectURL string `json:"redirect_url"`
}

// CreateOrderCheckout builds the gateway URL for paying an order in full.
func (h *PaymentHandler) CreateOrderCheckout(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	orderID := uuid.MustParse(req.OrderID)
	order, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	if err := authorizeOrderAccess(r.Context(), order); err != nil {
		RespondDomainError(w, err)
		return
	}

	if order.PaymentStatus == domain.PaymentStatusPaid {
		RespondDomainError(w, domain.ErrOrderAlreadyPaid)
		return
	}

	url, err := h.builder.BuildPaymentURL(vnpay.PaymentIntent{
		Kind:             vnpay.KindOrderPayment,
		TargetID:         order.ID.String(),
		AmountMinorUnits: toMinorUnits(order.PayableAmount()),
		OrderInfo:        fmt.Sprintf("Thanh toan don hang %s", order.ID),
		BankCode:         req.BankCode,
		ClientIP:         clientIP(r),
		ReturnURL:        req.ReturnURL,
	})
	if err != nil {
		log.Error("failed to build payment url", "order_id", order.ID, "error", err)
		RespondDomainError(w, err)
		return
	}

	log.Info("checkout url issued", "order_id", order.ID)
	RespondSuccess(w, http.StatusOK, redirectResponse{RedirectURL: url})
}

// CreateOrderDeposit builds the gateway URL for an order down payment.
func (h *PaymentHandler) CreateOrderDeposit(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.validateTarget("order_id", req.OrderID); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	orderID := uuid.MustParse(req.OrderID)
	if _, err := h.orders.GetByID(r.Context(), orderID); err != nil {
		RespondDomainError(w, err)
		return
	}

	url, err := h.builder.BuildPaymentURL(vnpay.PaymentIntent{
		Kind:             vnpay.KindOrderDeposit,
		TargetID:         req.OrderID,
		AmountMinorUnits: toMinorUnits(req.Amount),
		OrderInfo:        fmt.Sprintf("Dat coc don hang %s", req.OrderID),
		BankCode:         req.BankCode,
		ClientIP:         clientIP(r),
		ReturnURL:        req.ReturnURL,
	})
	if err != nil {
		log.Error("failed to build deposit url", "order_id", req.OrderID, "error", err)
		RespondDomainError(w, err)
		return
	}

	log.Info("order deposit url issued", "order_id", req.OrderID)
	RespondSuccess(w, http.StatusOK, redirectResponse{RedirectURL: url})
}

// CreateReservationDeposit builds the gateway URL for a table-booking
// deposit.
func (h *PaymentHandler) CreateReservationDeposit(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.validateTarget("reservation_id", req.ReservationID); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	reservationID := uuid.MustParse(req.ReservationID)
	if _, err := h.reservations.GetByID(r.Context(), reservationID); err != nil {
		RespondDomainError(w, err)
		return
	}

	url, err := h.builder.BuildPaymentURL(vnpay.PaymentIntent{
		Kind:             vnpay.KindReservationDeposit,
		TargetID:         req.ReservationID,
		AmountMinorUnits: toMinorUnits(req.Amount),
		OrderInfo:        fmt.Sprintf("Dat coc dat ban %s", req.ReservationID),
		BankCode:         req.BankCode,
		ClientIP:         clientIP(r),
		ReturnURL:        req.ReturnURL,
	})
	if err != nil {
		log.Error("failed to build deposit url", "reservation_id", req.ReservationID, "error", err)
		RespondDomainError(w, err)
		return
	}

	log.Info("reservation deposit url issued", "reservation_id", req.ReservationID)
	RespondSuccess(w, http.StatusOK, redirectResponse{RedirectURL: url})
}

// authorizeOrderAccess lets staff act on any order; a customer identity may
// only pay for its own.
func authorizeOrderAccess(ctx context.Context, order *domain.Order) error {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return nil
	}
	if claims.Role != auth.RoleCustomer {
		return nil
	}
	if order.UserID != nil && *order.UserID != claims.UserID {
		return domain.ErrForbidden
	}
	return nil
}

// toMinorUnits converts a VND amount to the gateway's smallest-unit integer
// (factor 100).
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
