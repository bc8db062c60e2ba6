package economy

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
)

// TxType enumerates the kinds of ledger mutations recorded in the
// transaction log.
type TxType string

const (
	// TxTypePay is a player-to-player transfer.
	TxTypePay TxType = "PAY"
	// TxTypeAdminSet overwrites a balance or point total directly.
	TxTypeAdminSet TxType = "ADMIN_SET"
	// TxTypeAdminGive credits an amount to the target.
	TxTypeAdminGive TxType = "ADMIN_GIVE"
	// TxTypeAdminTake debits an amount from the target.
	TxTypeAdminTake TxType = "ADMIN_TAKE"
)

// Valid reports whether t is one of the known transaction types.
func (t TxType) Valid() bool {
	switch t {
	case TxTypePay, TxTypeAdminSet, TxTypeAdminGive, TxTypeAdminTake:
		return true
	}
	return false
}

// Currency identifies which ledger a transaction touched.
type Currency string

const (
	// CurrencyMoney is the player balance ledger.
	CurrencyMoney Currency = "MONEY"
	// CurrencyFactionPoints is the faction point ledger.
	CurrencyFactionPoints Currency = "FACTION_POINTS"
)

// Valid reports whether c is one of the known currencies.
func (c Currency) Valid() bool {
	return c == CurrencyMoney || c == CurrencyFactionPoints
}

// DateLayout is the timestamp format used in persisted transaction records.
const DateLayout = "2006-01-02 15:04:05"

// Transaction is a single immutable audit record. Records are created once
// by the transaction log and never edited or removed afterwards.
type Transaction struct {
	Date     time.Time
	Type     TxType
	From     string
	To       string
	Amount   decimal.Decimal
	Currency Currency
}

// Involves reports whether target matches From or To, case-insensitively.
func (t Transaction) Involves(target string) bool {
	return strings.EqualFold(t.From, target) || strings.EqualFold(t.To, target)
}

// BalanceEntry is one row of the balance leaderboard.
type BalanceEntry struct {
	PlayerID uuid.UUID
	Balance  decimal.Decimal
}

// FactionEntry is one row of the faction point leaderboard.
type FactionEntry struct {
	Name   string
	Points int64
}

// NormalizeFaction lowercases a faction name for storage and lookup.
// Faction keys are case-insensitive everywhere in the ledger.
func NormalizeFaction(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
