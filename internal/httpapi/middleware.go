package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
)

type ctxKey string

const ctxKeyPay ctxKey = "validatedPay"

// payCommand is the validated form of a pay request.
type payCommand struct {
	From   uuid.UUID
	To     uuid.UUID
	Amount decimal.Decimal
}

// validatePay parses and validates the POST /v1/pay body and stores the
// validated command in the request context. Malformed input never
// reaches the ledger.
func (s *Server) validatePay() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req payRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.From == uuid.Nil || req.To == uuid.Nil {
				badRequest(w, "from and to are required")
				return
			}
			if req.From == req.To {
				badRequest(w, "cannot pay yourself")
				return
			}
			amount, err := decimal.Parse(req.Amount)
			if err != nil {
				badRequest(w, "invalid amount")
				return
			}
			if !amount.IsPos() {
				badRequest(w, "amount must be positive")
				return
			}
			cmd := payCommand{From: req.From, To: req.To, Amount: amount}
			ctx := context.WithValue(r.Context(), ctxKeyPay, cmd)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// factionGate rejects faction point requests when the feature is
// disabled by configuration.
func (s *Server) factionGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.FactionPointsEnabled {
			notFound(w, "faction_points_disabled")
			return
		}
		next.ServeHTTP(w, r)
	})
}
