package trading

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stocksim/internal/httputil"
)

func postTrade(t *testing.T, m *memStore, fn func(http.ResponseWriter, *http.Request, string), userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/stocks/buy", strings.NewReader(body))
	rec := httptest.NewRecorder()
	fn(rec, req, userID)
	return rec
}

func tradeHandler(t *testing.T, m *memStore) *Handler {
	t.Helper()
	return NewHandler(NewService(m, feeRate(t)))
}

func TestHandlerBuy(t *testing.T) {
	m := fixture(t)
	h := tradeHandler(t, m)
	rec := postTrade(t, m, h.Buy, "u1", `{"symbol":"acme","quantity":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp tradeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Status != "ok" || resp.NewBalance != "8970" {
		t.Fatalf("response = %+v, want ok/8970", resp)
	}
	// Lowercase symbol is normalized before the catalog lookup.
	if got := m.positions["u1/ACME"]; got != 10 {
		t.Fatalf("position = %d, want 10", got)
	}
}

func TestHandlerBuyWithInlineQuote(t *testing.T) {
	m := fixture(t)
	h := tradeHandler(t, m)
	rec := postTrade(t, m, h.Buy, "u1", `{"symbol":"ACME","quantity":1,"price":"200.00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	// 200 * 1.03 = 206.00 debited, not the catalog's 103.00.
	if !m.balances["u1"].Equal(dec(t, "9794.00")) {
		t.Fatalf("balance = %s, want 9794.00", m.balances["u1"])
	}
}

func TestHandlerRejectsBadInputs(t *testing.T) {
	m := fixture(t)
	h := tradeHandler(t, m)
	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{"symbol":`},
		{"unknown field", `{"symbol":"ACME","quantity":1,"amount":3}`},
		{"missing symbol", `{"quantity":1}`},
		{"zero price", `{"symbol":"ACME","quantity":1,"price":"0"}`},
		{"negative price", `{"symbol":"ACME","quantity":1,"price":"-5"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postTrade(t, m, h.Buy, "u1", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body)
			}
		})
	}
}

func TestHandlerStatusMapping(t *testing.T) {
	m := fixture(t)
	h := tradeHandler(t, m)
	cases := []struct {
		name   string
		fn     func(http.ResponseWriter, *http.Request, string)
		userID string
		body   string
		status int
		kind   Kind
	}{
		{"unknown stock", h.Buy, "u1", `{"symbol":"NOPE","quantity":1}`, http.StatusNotFound, KindStockNotFound},
		{"unknown user", h.Buy, "ghost", `{"symbol":"ACME","quantity":1}`, http.StatusNotFound, KindUserNotFound},
		{"inactive user", h.Buy, "frozen", `{"symbol":"ACME","quantity":1}`, http.StatusForbidden, KindUserInactive},
		{"zero quantity", h.Buy, "u1", `{"symbol":"ACME","quantity":0}`, http.StatusBadRequest, KindInvalidQuantity},
		{"fractional quantity", h.Buy, "u1", `{"symbol":"ACME","quantity":2.5}`, http.StatusBadRequest, KindInvalidQuantity},
		{"missing quantity", h.Buy, "u1", `{"symbol":"ACME"}`, http.StatusBadRequest, KindInvalidQuantity},
		{"sell without position", h.Sell, "u1", `{"symbol":"ACME","quantity":1}`, http.StatusNotFound, KindPositionNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postTrade(t, m, tc.fn, tc.userID, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.status, rec.Body)
			}
			var resp httputil.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("bad error body: %v", err)
			}
			if resp.Kind != string(tc.kind) {
				t.Fatalf("kind = %q, want %q", resp.Kind, tc.kind)
			}
		})
	}
}
