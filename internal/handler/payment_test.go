package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhtn89/bistro-backend/internal/auth"
	"github.com/minhtn89/bistro-backend/internal/domain"
	"github.com/minhtn89/bistro-backend/internal/vnpay"
)

type stubBuilder struct {
	lastIntent vnpay.PaymentIntent
	url        string
	err        error
}

func (b *stubBuilder) BuildPaymentURL(intent vnpay.PaymentIntent) (string, error) {
	b.lastIntent = intent
	if b.err != nil {
		return "", b.err
	}
	return b.url, nil
}

type stubOrderStore struct {
	orders map[uuid.UUID]*domain.Order
}

func (s *stubOrderStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	if o, ok := s.orders[id]; ok {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

type stubReservationStore struct {
	reservations map[uuid.UUID]*domain.Reservation
}

func (s *stubReservationStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Reservation, error) {
	if r, ok := s.reservations[id]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestCreateOrderCheckout(t *testing.T) {
	userID := uuid.New()
	otherUserID := uuid.New()

	pendingOrder := &domain.Order{
		ID:            uuid.New(),
		UserID:        &userID,
		PaymentStatus: domain.PaymentStatusPending,
		TotalAmount:   decimal.NewFromInt(250000),
	}
	paidOrder := &domain.Order{
		ID:            uuid.New(),
		UserID:        &userID,
		PaymentStatus: domain.PaymentStatusPaid,
		TotalAmount:   decimal.NewFromInt(100000),
	}
	discounted := decimal.NewFromInt(200000)
	discountedOrder := &domain.Order{
		ID:            uuid.New(),
		UserID:        &userID,
		PaymentStatus: domain.PaymentStatusPending,
		TotalAmount:   decimal.NewFromInt(250000),
		FinalAmount:   &discounted,
	}

	orders := &stubOrderStore{orders: map[uuid.UUID]*domain.Order{
		pendingOrder.ID:    pendingOrder,
		paidOrder.ID:       paidOrder,
		discountedOrder.ID: discountedOrder,
	}}

	tests := []struct {
		name       string
		body       string
		claims     *auth.Claims
		wantStatus int
		wantCode   string
		wantAmount int64
	}{
		{
			name:       "issues redirect url",
			body:       fmt.Sprintf(`{"order_id":%q}`, pendingOrder.ID),
			wantStatus: http.StatusOK,
			wantAmount: 25000000,
		},
		{
			name:       "uses voucher-adjusted amount",
			body:       fmt.Sprintf(`{"order_id":%q}`, discountedOrder.ID),
			wantStatus: http.StatusOK,
			wantAmount: 20000000,
		},
		{
			name:       "customer pays own order",
			body:       fmt.Sprintf(`{"order_id":%q}`, pendingOrder.ID),
			claims:     &auth.Claims{UserID: userID, Role: auth.RoleCustomer},
			wantStatus: http.StatusOK,
			wantAmount: 25000000,
		},
		{
			name:       "customer cannot pay another user's order",
			body:       fmt.Sprintf(`{"order_id":%q}`, pendingOrder.ID),
			claims:     &auth.Claims{UserID: otherUserID, Role: auth.RoleCustomer},
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
		},
		{
			name:       "staff can pay any order",
			body:       fmt.Sprintf(`{"order_id":%q}`, pendingOrder.ID),
			claims:     &auth.Claims{UserID: otherUserID, Role: auth.RoleStaff},
			wantStatus: http.StatusOK,
			wantAmount: 25000000,
		},
		{
			name:       "already paid",
			body:       fmt.Sprintf(`{"order_id":%q}`, paidOrder.ID),
			wantStatus: http.StatusBadRequest,
			wantCode:   "ORDER_ALREADY_PAID",
		},
		{
			name:       "unknown order",
			body:       fmt.Sprintf(`{"order_id":%q}`, uuid.New()),
			wantStatus: http.StatusNotFound,
			wantCode:   "RESOURCE_NOT_FOUND",
		},
		{
			name:       "missing order id",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "malformed order id",
			body:       `{"order_id":"not-a-uuid"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "malformed body",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			builder := &stubBuilder{url: "https://gateway.example/pay?vnp_SecureHash=abc"}
			h := NewPaymentHandler(orders, &stubReservationStore{}, builder)

			req := httptest.NewRequest(http.MethodPost, "/api/payments/checkout", bytes.NewBufferString(tc.body))
			if tc.claims != nil {
				req = req.WithContext(auth.ContextWithClaims(req.Context(), tc.claims))
			}
			rec := httptest.NewRecorder()

			h.CreateOrderCheckout(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			resp := decodeResponse(t, rec)
			if tc.wantCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
				return
			}

			require.True(t, resp.Success)
			assert.Equal(t, tc.wantAmount, builder.lastIntent.AmountMinorUnits)
			assert.Equal(t, vnpay.KindOrderPayment, builder.lastIntent.Kind)
		})
	}
}

func TestCreateOrderCheckout_GatewayNotConfigured(t *testing.T) {
	order := &domain.Order{
		ID:            uuid.New(),
		PaymentStatus: domain.PaymentStatusPending,
		TotalAmount:   decimal.NewFromInt(50000),
	}
	orders := &stubOrderStore{orders: map[uuid.UUID]*domain.Order{order.ID: order}}
	builder := &stubBuilder{err: vnpay.ErrNotConfigured}
	h := NewPaymentHandler(orders, &stubReservationStore{}, builder)

	body := fmt.Sprintf(`{"order_id":%q}`, order.ID)
	req := httptest.NewRequest(http.MethodPost, "/api/payments/checkout", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.CreateOrderCheckout(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "GATEWAY_NOT_CONFIGURED", resp.Error.Code)
}

func TestCreateOrderDeposit(t *testing.T) {
	order := &domain.Order{
		ID:            uuid.New(),
		PaymentStatus: domain.PaymentStatusPending,
		TotalAmount:   decimal.NewFromInt(500000),
	}
	orders := &stubOrderStore{orders: map[uuid.UUID]*domain.Order{order.ID: order}}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
		wantAmount int64
	}{
		{
			name:       "issues deposit url",
			body:       fmt.Sprintf(`{"order_id":%q,"amount":"100000"}`, order.ID),
			wantStatus: http.StatusOK,
			wantAmount: 10000000,
		},
		{
			name:       "zero amount rejected",
			body:       fmt.Sprintf(`{"order_id":%q,"amount":"0"}`, order.ID),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "negative amount rejected",
			body:       fmt.Sprintf(`{"order_id":%q,"amount":"-5"}`, order.ID),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "unknown order",
			body:       fmt.Sprintf(`{"order_id":%q,"amount":"100000"}`, uuid.New()),
			wantStatus: http.StatusNotFound,
			wantCode:   "RESOURCE_NOT_FOUND",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			builder := &stubBuilder{url: "https://gateway.example/pay"}
			h := NewPaymentHandler(orders, &stubReservationStore{}, builder)

			req := httptest.NewRequest(http.MethodPost, "/api/payments/deposit", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()

			h.CreateOrderDeposit(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			resp := decodeResponse(t, rec)
			if tc.wantCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
				return
			}

			require.True(t, resp.Success)
			assert.Equal(t, vnpay.KindOrderDeposit, builder.lastIntent.Kind)
			assert.Equal(t, tc.wantAmount, builder.lastIntent.AmountMinorUnits)
		})
	}
}

func TestCreateReservationDeposit(t *testing.T) {
	reservation := &domain.Reservation{
		ID:     uuid.New(),
		Status: domain.ReservationStatusConfirmed,
	}
	reservations := &stubReservationStore{reservations: map[uuid.UUID]*domain.Reservation{
		reservation.ID: reservation,
	}}
	builder := &stubBuilder{url: "https://gateway.example/pay"}
	h := NewPaymentHandler(&stubOrderStore{}, reservations, builder)

	body := fmt.Sprintf(`{"reservation_id":%q,"amount":"50000.50"}`, reservation.ID)
	req := httptest.NewRequest(http.MethodPost, "/api/payments/reservation-deposit", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.CreateReservationDeposit(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)
	assert.Equal(t, vnpay.KindReservationDeposit, builder.lastIntent.Kind)
	assert.Equal(t, int64(5000050), builder.lastIntent.AmountMinorUnits)
	assert.Equal(t, reservation.ID.String(), builder.lastIntent.TargetID)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote addr host port", "203.0.113.7:51234", "", "203.0.113.7"},
		{"forwarded single", "10.0.0.1:1234", "198.51.100.4", "198.51.100.4"},
		{"forwarded chain takes first", "10.0.0.1:1234", "198.51.100.4, 10.0.0.2", "198.51.100.4"},
		{"forwarded with spaces", "10.0.0.1:1234", " 198.51.100.4 , 10.0.0.2", "198.51.100.4"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			assert.Equal(t, tc.want, clientIP(req))
		})
	}
}
