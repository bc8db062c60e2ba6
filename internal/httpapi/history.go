package httpapi

import (
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"

	"github.com/minimize/economyd/internal/economy"
	"github.com/minimize/economyd/internal/txlog"
)

// GET /v1/history/{target}?page=&page_size=
// Target matches either side of a record, case-insensitively; it can be
// a player id or a faction name.
func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, "invalid page")
			return
		}
		page = n
	}
	size := s.cfg.HistoryPageSize
	if v := r.URL.Query().Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequest(w, "invalid page_size")
			return
		}
		size = n
	}

	records := s.txs.For(target)
	items, page, total := txlog.Page(records, size, page)

	resp := historyResponse{
		Target:     target,
		Page:       page,
		TotalPages: total,
		Items:      make([]transactionResponse, 0, len(items)),
	}
	for _, rec := range items {
		resp.Items = append(resp.Items, transactionResponse{
			Date:     rec.Date.Format(economy.DateLayout),
			Type:     string(rec.Type),
			From:     rec.From,
			To:       rec.To,
			Amount:   rec.Amount.String(),
			Currency: string(rec.Currency),
		})
	}
	toJSON(w, http.StatusOK, resp)
}
