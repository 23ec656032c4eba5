package catalog

import (
	"net/http"
	"strings"

	"stocksim/internal/httputil"
)

type Handler struct {
	store *Store
	svc   *Service
}

func NewHandler(store *Store, svc *Service) *Handler {
	return &Handler{store: store, svc: svc}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.store.List(r.Context())
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stocks)
}

type refreshRequest struct {
	Symbols []string `json:"symbols"`
}

// Refresh re-fetches quotes for the requested symbols, or for the whole
// catalog when none are given. Internal-token protected.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.ContentLength > 0 {
		if err := httputil.ReadJSON(r, &req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
			return
		}
	}
	var results []RefreshResult
	var err error
	if len(req.Symbols) == 0 {
		results, err = h.svc.RefreshCatalog(r.Context())
	} else {
		symbols := make([]string, 0, len(req.Symbols))
		for _, s := range req.Symbols {
			sym := strings.ToUpper(strings.TrimSpace(s))
			if sym != "" {
				symbols = append(symbols, sym)
			}
		}
		results, err = h.svc.RefreshAll(r.Context(), symbols)
	}
	if err != nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}
