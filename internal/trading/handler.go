package trading

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"stocksim/internal/httputil"
	"stocksim/internal/types"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type tradeRequest struct {
	Symbol string `json:"symbol"`
	// Quantity decodes as a raw number so a fractional value is reported
	// as an invalid quantity, not as unreadable JSON.
	Quantity json.Number `json:"quantity"`
	// Price, when set, is an inline quote that skips the catalog lookup.
	Price string `json:"price,omitempty"`
}

type tradeResponse struct {
	Status     string `json:"status"`
	NewBalance string `json:"new_balance"`
}

func (h *Handler) Buy(w http.ResponseWriter, r *http.Request, userID string) {
	h.execute(w, r, userID, types.TransactionBuy)
}

func (h *Handler) Sell(w http.ResponseWriter, r *http.Request, userID string) {
	h.execute(w, r, userID, types.TransactionSell)
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request, userID string, kind types.TransactionKind) {
	var req tradeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "symbol is required"})
		return
	}
	quantity, err := req.Quantity.Int64()
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "quantity must be a whole number",
			Kind:  string(KindInvalidQuantity),
		})
		return
	}
	stock := StockRef{Symbol: symbol}
	if req.Price != "" {
		p, err := decimal.NewFromString(req.Price)
		if err != nil || p.LessThanOrEqual(decimal.Zero) {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid price"})
			return
		}
		stock.Quote = &p
	}
	res, err := h.svc.Execute(r.Context(), kind, userID, stock, quantity)
	if err != nil {
		kind := KindOf(err)
		httputil.WriteJSON(w, statusFor(kind), httputil.ErrorResponse{Error: err.Error(), Kind: string(kind)})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tradeResponse{Status: "ok", NewBalance: res.NewBalance.String()})
}

func statusFor(kind Kind) int {
	switch kind {
	case KindUserNotFound, KindStockNotFound, KindPositionNotFound:
		return http.StatusNotFound
	case KindUserInactive:
		return http.StatusForbidden
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
