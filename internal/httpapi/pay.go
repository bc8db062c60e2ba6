package httpapi

import (
	"net/http"

	"github.com/minimize/economyd/internal/economy"
)

// POST /v1/pay
// Transfers money between two players. The debit is atomic: when the
// sender cannot cover the amount, neither balance changes.
func (s *Server) postPay(w http.ResponseWriter, r *http.Request) {
	cmd, ok := r.Context().Value(ctxKeyPay).(payCommand)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}

	if !s.cache.TakeBalance(cmd.From, cmd.Amount) {
		unprocessable(w, "not enough money", "insufficient_funds")
		return
	}
	if !s.cache.AddBalance(cmd.To, cmd.Amount) {
		// restore the debit so no money is destroyed
		s.cache.AddBalance(cmd.From, cmd.Amount)
		unprocessable(w, "recipient balance would overflow", "balance_overflow")
		return
	}

	// The transfer stands even when the log write fails; the error is
	// surfaced so the caller knows the record may be missing on restart.
	if err := s.txs.Append(r.Context(), economy.TxTypePay, cmd.From.String(), cmd.To.String(), cmd.Amount, economy.CurrencyMoney); err != nil {
		s.log.Error("transaction append failed", "err", err)
		internalErr(w, "transaction log write failed", "log_append_failed")
		return
	}

	toJSON(w, http.StatusOK, payResponse{
		From:    cmd.From,
		To:      cmd.To,
		Amount:  s.fmtMoney(cmd.Amount),
		Balance: s.fmtMoney(s.cache.Balance(cmd.From)),
	})
}
