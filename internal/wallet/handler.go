package wallet

import (
	"net/http"

	"stocksim/internal/httputil"
	"stocksim/internal/trading"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request, userID string) {
	balance, err := h.store.GetBalance(r.Context(), userID)
	if err != nil {
		if trading.KindOf(err) == trading.KindUserNotFound {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: err.Error()})
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"balance": balance.String()})
}

func (h *Handler) Positions(w http.ResponseWriter, r *http.Request, userID string) {
	positions, err := h.store.ListPositions(r.Context(), userID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, positions)
}
