// Command mock-gateway stands in for the VNPay sandbox during local
// development. It verifies the signed payment URL the API produced, shows
// an approve/decline page, and delivers both callback legs the way the
// real gateway does: a signed browser redirect to vnp_ReturnUrl and a
// signed server-to-server notification to the IPN endpoint.
package main

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/minhtn89/bistro-backend/internal/logging"
	"github.com/minhtn89/bistro-backend/internal/vnpay"
)

type gateway struct {
	secret string
	ipnURL string
	client *http.Client
}

func main() {
	logging.Init("mock-gateway", "info", "development")

	g := &gateway{
		secret: envOr("VNP_HASH_SECRET", "mock-secret"),
		ipnURL: envOr("IPN_URL", "http://localhost:8080/api/payments/vnpay-ipn"),
		client: &http.Client{Timeout: 10 * time.Second},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /pay", g.showPayment)
	mux.HandleFunc("POST /pay", g.completePayment)

	slog.Info("mock gateway started", "addr", ":8089", "ipn_url", g.ipnURL)
	if err := http.ListenAndServe(":8089", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func (g *gateway) showPayment(w http.ResponseWriter, r *http.Request) {
	params := flatten(r.URL.Query())

	signatureNote := ""
	if params["mock"] != "1" {
		if received := params[vnpay.ParamSecureHash]; !vnpay.Verify(params, g.secret, received) {
			signatureNote = "<p><strong>warning:</strong> request signature did not verify</p>"
			slog.Warn("pay request signature mismatch", "txn_ref", params[vnpay.ParamTxnRef])
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><body>
<h1>Mock Payment Gateway</h1>
%s
<p>Reference: %s</p>
<p>Amount (x100): %s</p>
<form method="POST" action="/pay?%s">
  <button name="outcome" value="success">Approve</button>
  <button name="outcome" value="failure">Decline</button>
</form>
</body></html>`,
		signatureNote,
		html.EscapeString(params[vnpay.ParamTxnRef]),
		html.EscapeString(params[vnpay.ParamAmount]),
		r.URL.RawQuery,
	)
}

func (g *gateway) completePayment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	request := flatten(r.URL.Query())
	responseCode := "00"
	if r.PostFormValue("outcome") != "success" {
		// 24 is the gateway's "customer cancelled" code.
		responseCode = "24"
	}

	callback := g.callbackParams(request, responseCode)
	callback[vnpay.ParamSecureHash] = vnpay.Sign(callback, g.secret)
	callback[vnpay.ParamSecureHashType] = vnpay.SecureHashType

	g.deliverIPN(r.Context(), callback)

	returnURL := request[vnpay.ParamReturnURL]
	if returnURL == "" {
		fmt.Fprintln(w, "no return url; callback delivered via IPN only")
		return
	}

	http.Redirect(w, r, returnURL+"?"+vnpay.EncodeQuery(callback)+
		"&"+vnpay.ParamSecureHash+"="+callback[vnpay.ParamSecureHash], http.StatusFound)
}

func (g *gateway) callbackParams(request map[string]string, responseCode string) map[string]string {
	now := time.Now()
	return map[string]string{
		vnpay.ParamMerchantCode:  request[vnpay.ParamMerchantCode],
		vnpay.ParamAmount:        request[vnpay.ParamAmount],
		vnpay.ParamTxnRef:        request[vnpay.ParamTxnRef],
		vnpay.ParamOrderInfo:     request[vnpay.ParamOrderInfo],
		vnpay.ParamResponseCode:  responseCode,
		vnpay.ParamBankCode:      "NCB",
		vnpay.ParamTransactionNo: fmt.Sprintf("%d", 14000000+rand.IntN(1000000)),
		vnpay.ParamBankTranNo:    fmt.Sprintf("VNP%d", 14000000+rand.IntN(1000000)),
		vnpay.ParamPayDate:       now.Format("20060102150405"),
	}
}

func (g *gateway) deliverIPN(ctx context.Context, callback map[string]string) {
	form := url.Values{}
	for k, v := range callback {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.ipnURL, strings.NewReader(form.Encode()))
	if err != nil {
		slog.Error("build ipn request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		slog.Error("deliver ipn", "error", err)
		return
	}
	defer resp.Body.Close()
	slog.Info("ipn delivered", "status", resp.StatusCode, "txn_ref", callback[vnpay.ParamTxnRef])
}

func flatten(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
