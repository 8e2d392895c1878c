package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/minhtn89/bistro-backend/internal/logging"
	"github.com/minhtn89/bistro-backend/internal/service"
	"github.com/minhtn89/bistro-backend/internal/vnpay"
)

type settler interface {
	Settle(ctx context.Context, outcome vnpay.CallbackOutcome) (service.Ack, error)
}

// CallbackHandler receives the gateway's two deliveries of the same event:
// the browser redirect (Return) and the server-to-server notification
// (Notify). Both run the identical verification and settlement core; only
// the response encoding differs. The redirect answers with a client-facing
// 302 and never the gateway's ack format; the notification answers with the
// raw RspCode body the gateway's retry loop keys on.
type CallbackHandler struct {
	verifier    *vnpay.Verifier
	settlements settler
	// clientURL is the web frontend base for redirect targets.
	clientURL string
	// appDeepLink, when set, is preferred for app-audience redirects,
	// e.g. "bistro://payments". Web URL is the fallback.
	appDeepLink string
}

func NewCallbackHandler(verifier *vnpay.Verifier, settlements settler, clientURL, appDeepLink string) *CallbackHandler {
	return &CallbackHandler{
		verifier:    verifier,
		settlements: settlements,
		clientURL:   clientURL,
		appDeepLink: appDeepLink,
	}
}

// Return handles the browser redirect on the web audience path.
func (h *CallbackHandler) Return(w http.ResponseWriter, r *http.Request) {
	h.handleReturn(w, r, h.clientURL)
}

// AppReturn handles the browser redirect on the app audience path,
// preferring the deep link so the mobile app regains focus.
func (h *CallbackHandler) AppReturn(w http.ResponseWriter, r *http.Request) {
	base := h.appDeepLink
	if base == "" {
		base = h.clientURL
	}
	h.handleReturn(w, r, base)
}

func (h *CallbackHandler) handleReturn(w http.ResponseWriter, r *http.Request, base string) {
	log := logging.FromContext(r.Context())

	params := flattenParams(r.URL.Query())
	outcome := h.verifier.VerifyCallback(params)
	h.logSignatureMismatch(r, params, outcome)

	ack, err := h.settlements.Settle(r.Context(), outcome)
	if err != nil {
		log.Error("settlement failed on return callback", "error", err)
		http.Redirect(w, r, base+failedPath(outcome, "internal_error"), http.StatusFound)
		return
	}

	http.Redirect(w, r, base+h.clientPath(outcome, ack), http.StatusFound)
}

// Notify handles the gateway's server-to-server notification. The gateway
// redelivers until it reads RspCode "00", so transient store failures get a
// 500 (retry), while every verified terminal state gets its final ack.
func (h *CallbackHandler) Notify(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	params := flattenParams(r.PostForm)
	outcome := h.verifier.VerifyCallback(params)
	h.logSignatureMismatch(r, params, outcome)

	ack, err := h.settlements.Settle(r.Context(), outcome)
	if err != nil {
		log.Error("settlement failed on notification callback", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	RespondJSON(w, http.StatusOK, ack)
}

// clientPath maps the settlement result onto the frontend's success/failed
// locations, carrying the ids the pages render.
func (h *CallbackHandler) clientPath(outcome vnpay.CallbackOutcome, ack service.Ack) string {
	switch {
	case !outcome.SignatureValid:
		return "/payment/failed?reason=invalid_hash"
	case outcome.Kind == "" || outcome.TargetID == "":
		return "/payment/failed?reason=unknown_type"
	case ack == service.AckOrderNotFound:
		return "/payment/failed?reason=order_not_found"
	case ack == service.AckReservationNotFound:
		return "/payment/failed?reason=reservation_not_found"
	}

	q := url.Values{}
	switch outcome.Kind {
	case vnpay.KindOrderPayment:
		q.Set("order_id", outcome.TargetID)
	case vnpay.KindOrderDeposit:
		q.Set("type", "deposit")
		q.Set("order_id", outcome.TargetID)
	case vnpay.KindReservationDeposit:
		q.Set("type", "deposit")
		q.Set("reservation_id", outcome.TargetID)
	}

	if outcome.Succeeded {
		return "/payment/success?" + q.Encode()
	}
	return "/payment/failed?" + q.Encode()
}

func failedPath(outcome vnpay.CallbackOutcome, reason string) string {
	q := url.Values{}
	q.Set("reason", reason)
	if outcome.TargetID != "" {
		switch outcome.Kind {
		case vnpay.KindOrderPayment, vnpay.KindOrderDeposit:
			q.Set("order_id", outcome.TargetID)
		case vnpay.KindReservationDeposit:
			q.Set("reservation_id", outcome.TargetID)
		}
	}
	return "/payment/failed?" + q.Encode()
}

// logSignatureMismatch surfaces the expected digest next to the received
// one while integrating against the sandbox. ExpectedDigest refuses to
// compute in production, so this is inert there.
func (h *CallbackHandler) logSignatureMismatch(r *http.Request, params map[string]string, outcome vnpay.CallbackOutcome) {
	if outcome.SignatureValid || params[vnpay.ParamSecureHash] == "" {
		return
	}
	if expected, ok := h.verifier.ExpectedDigest(params); ok {
		logging.FromContext(r.Context()).Debug("callback signature mismatch",
			"expected", expected,
			"received", params[vnpay.ParamSecureHash],
			"txn_ref", params[vnpay.ParamTxnRef],
		)
	}
}

func flattenParams(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			params[key] = vals[0]
		}
	}
	return params
}
