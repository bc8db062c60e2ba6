package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/minimize/economyd/internal/economy"
)

// fmtMoney renders an amount with the configured number of decimal
// places. Display formatting only; stored values keep full precision.
func (s *Server) fmtMoney(d decimal.Decimal) string {
	return d.Round(s.cfg.DecimalPlaces).Pad(s.cfg.DecimalPlaces).String()
}

// GET /v1/balances/{id}
func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid player id")
		return
	}
	toJSON(w, http.StatusOK, balanceResponse{PlayerID: id, Balance: s.fmtMoney(s.cache.Balance(id))})
}

// GET /v1/balances/top?limit=
func (s *Server) topBalances(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	entries := s.cache.TopBalances(limit)
	resp := topBalancesResponse{Items: make([]balanceResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Items = append(resp.Items, balanceResponse{PlayerID: e.PlayerID, Balance: s.fmtMoney(e.Balance)})
	}
	toJSON(w, http.StatusOK, resp)
}

// parseLimit reads the optional limit query param. Absent means the
// default of 10; limit=0 means all entries.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 10, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		badRequest(w, "invalid limit")
		return 0, false
	}
	return n, true
}

// decodeMoney parses an admin money body and validates the amount.
// allowZero is true for set (which may write 0) and false for give/take.
func decodeMoney(w http.ResponseWriter, r *http.Request, allowZero bool) (actor string, amount decimal.Decimal, ok bool) {
	var req moneyRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return "", decimal.Decimal{}, false
	}
	amount, err := decimal.Parse(req.Amount)
	if err != nil {
		badRequest(w, "invalid amount")
		return "", decimal.Decimal{}, false
	}
	if amount.IsNeg() || (!allowZero && amount.IsZero()) {
		badRequest(w, "amount must be positive")
		return "", decimal.Decimal{}, false
	}
	actor = req.Actor
	if actor == "" {
		actor = "console"
	}
	return actor, amount, true
}

// PUT /v1/admin/balances/{id}
func (s *Server) adminSetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid player id")
		return
	}
	actor, amount, ok := decodeMoney(w, r, true)
	if !ok {
		return
	}
	s.cache.SetBalance(id, amount)
	if err := s.txs.Append(r.Context(), economy.TxTypeAdminSet, actor, id.String(), amount, economy.CurrencyMoney); err != nil {
		s.log.Error("transaction append failed", "err", err)
		internalErr(w, "transaction log write failed", "log_append_failed")
		return
	}
	toJSON(w, http.StatusOK, balanceResponse{PlayerID: id, Balance: s.fmtMoney(s.cache.Balance(id))})
}

// POST /v1/admin/balances/{id}/give
func (s *Server) adminGiveBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid player id")
		return
	}
	actor, amount, ok := decodeMoney(w, r, false)
	if !ok {
		return
	}
	if !s.cache.AddBalance(id, amount) {
		unprocessable(w, "balance would overflow", "balance_overflow")
		return
	}
	if err := s.txs.Append(r.Context(), economy.TxTypeAdminGive, actor, id.String(), amount, economy.CurrencyMoney); err != nil {
		s.log.Error("transaction append failed", "err", err)
		internalErr(w, "transaction log write failed", "log_append_failed")
		return
	}
	toJSON(w, http.StatusOK, balanceResponse{PlayerID: id, Balance: s.fmtMoney(s.cache.Balance(id))})
}

// POST /v1/admin/balances/{id}/take
func (s *Server) adminTakeBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid player id")
		return
	}
	actor, amount, ok := decodeMoney(w, r, false)
	if !ok {
		return
	}
	if !s.cache.TakeBalance(id, amount) {
		unprocessable(w, "player does not have enough money", "insufficient_funds")
		return
	}
	if err := s.txs.Append(r.Context(), economy.TxTypeAdminTake, actor, id.String(), amount, economy.CurrencyMoney); err != nil {
		s.log.Error("transaction append failed", "err", err)
		internalErr(w, "transaction log write failed", "log_append_failed")
		return
	}
	toJSON(w, http.StatusOK, balanceResponse{PlayerID: id, Balance: s.fmtMoney(s.cache.Balance(id))})
}
