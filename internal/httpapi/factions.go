package httpapi

import (
	"encoding/json"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/govalues/decimal"

	"github.com/minimize/economyd/internal/economy"
	"github.com/minimize/economyd/internal/slug"
)

// factionName extracts and normalizes the faction name from the URL,
// rejecting anything that is not a well-formed lowercase slug.
func factionName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := economy.NormalizeFaction(chi.URLParam(r, "name"))
	if !slug.IsSlug(name) {
		badRequest(w, "invalid faction name")
		return "", false
	}
	return name, true
}

// decodePoints parses an admin faction points body.
func decodePoints(w http.ResponseWriter, r *http.Request, allowZero bool) (actor string, points int64, ok bool) {
	var req pointsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return "", 0, false
	}
	if req.Points < 0 || (!allowZero && req.Points == 0) {
		badRequest(w, "points must be positive")
		return "", 0, false
	}
	actor = req.Actor
	if actor == "" {
		actor = "console"
	}
	return actor, req.Points, true
}

// pointsAmount converts a point total into the decimal the transaction
// log records.
func pointsAmount(points int64) decimal.Decimal {
	return decimal.MustNew(points, 0)
}

// GET /v1/factions/{name}/points
func (s *Server) getFactionPoints(w http.ResponseWriter, r *http.Request) {
	name, ok := factionName(w, r)
	if !ok {
		return
	}
	toJSON(w, http.StatusOK, factionPointsResponse{Faction: name, Points: s.cache.FactionPoints(name)})
}

// GET /v1/factions/top?limit=
func (s *Server) topFactions(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	entries := s.cache.TopFactions(limit)
	resp := topFactionsResponse{Items: make([]factionPointsResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Items = append(resp.Items, factionPointsResponse{Faction: e.Name, Points: e.Points})
	}
	toJSON(w, http.StatusOK, resp)
}

// PUT /v1/admin/factions/{name}/points
func (s *Server) adminSetFactionPoints(w http.ResponseWriter, r *http.Request) {
	name, ok := factionName(w, r)
	if !ok {
		return
	}
	actor, points, ok := decodePoints(w, r, true)
	if !ok {
		return
	}
	s.cache.SetFactionPoints(name, points)
	if err := s.txs.Append(r.Context(), economy.TxTypeAdminSet, actor, name, pointsAmount(points), economy.CurrencyFactionPoints); err != nil {
		s.log.Error("transaction append failed", "err", err)
		internalErr(w, "transaction log write failed", "log_append_failed")
		return
	}
	toJSON(w, http.StatusOK, factionPointsResponse{Faction: name, Points: s.cache.FactionPoints(name)})
}

// POST /v1/admin/factions/{name}/points/give
func (s *Server) adminGiveFactionPoints(w http.ResponseWriter, r *http.Request) {
	name, ok := factionName(w, r)
	if !ok {
		return
	}
	actor, points, ok := decodePoints(w, r, false)
	if !ok {
		return
	}
	s.cache.AddFactionPoints(name, points)
	if err := s.txs.Append(r.Context(), economy.TxTypeAdminGive, actor, name, pointsAmount(points), economy.CurrencyFactionPoints); err != nil {
		s.log.Error("transaction append failed", "err", err)
		internalErr(w, "transaction log write failed", "log_append_failed")
		return
	}
	toJSON(w, http.StatusOK, factionPointsResponse{Faction: name, Points: s.cache.FactionPoints(name)})
}

// POST /v1/admin/factions/{name}/points/take
func (s *Server) adminTakeFactionPoints(w http.ResponseWriter, r *http.Request) {
	name, ok := factionName(w, r)
	if !ok {
		return
	}
	actor, points, ok := decodePoints(w, r, false)
	if !ok {
		return
	}
	if !s.cache.TakeFactionPoints(name, points) {
		unprocessable(w, "faction does not have enough points", "insufficient_points")
		return
	}
	if err := s.txs.Append(r.Context(), economy.TxTypeAdminTake, actor, name, pointsAmount(points), economy.CurrencyFactionPoints); err != nil {
		s.log.Error("transaction append failed", "err", err)
		internalErr(w, "transaction log write failed", "log_append_failed")
		return
	}
	toJSON(w, http.StatusOK, factionPointsResponse{Faction: name, Points: s.cache.FactionPoints(name)})
}
