// Package ledger holds the in-memory authoritative store of player
// balances and faction points. Mutations are memory-only; the cache is
// flushed to a SnapshotStore periodically and at shutdown.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/minimize/economyd/internal/economy"
)

var (
	flushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "economyd",
		Name:      "snapshot_flush_duration_seconds",
		Help:      "Duration of ledger snapshot flushes in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	flushFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "economyd",
		Name:      "snapshot_flush_failures_total",
		Help:      "Total number of failed ledger snapshot flushes",
	})
)

var zero = decimal.MustNew(0, 0)

// SnapshotStore persists the full ledger state. Implementations must
// treat an absent snapshot as empty state, not an error.
type SnapshotStore interface {
	Load(ctx context.Context) (map[uuid.UUID]decimal.Decimal, map[string]int64, error)
	Save(ctx context.Context, accounts map[uuid.UUID]decimal.Decimal, factions map[string]int64) error
}

// Policy carries the write-time invariants the cache enforces.
type Policy struct {
	// MaxBalanceEnabled turns the balance cap on.
	MaxBalanceEnabled bool
	// MaxBalance is the cap applied by clamping, never by rejecting.
	MaxBalance decimal.Decimal
}

type balanceEntry struct {
	amount decimal.Decimal
	seq    uint64
}

type pointsEntry struct {
	points int64
	seq    uint64
}

// Cache is the concurrent ledger cache. A single RWMutex guards both
// maps; the take operations do their check-then-debit under the write
// lock so concurrent takes on one key can never both succeed.
type Cache struct {
	mu       sync.RWMutex
	balances map[uuid.UUID]balanceEntry
	points   map[string]pointsEntry
	// nextSeq orders keys by first write; it is the deterministic tie
	// break for the leaderboards.
	nextSeq uint64
	// gen counts mutations so a flush can tell whether the state it
	// saved is still current.
	gen      uint64
	savedGen uint64

	policy Policy
	log    *slog.Logger
}

// New constructs an empty cache.
func New(policy Policy, logger *slog.Logger) *Cache {
	return &Cache{
		balances: make(map[uuid.UUID]balanceEntry),
		points:   make(map[string]pointsEntry),
		policy:   policy,
		log:      logger,
	}
}

// Load populates the cache from the snapshot store. It must run before
// any mutation is accepted. Keys are assigned insertion sequences in
// sorted key order so leaderboard tie-breaking is stable across restarts.
func (c *Cache) Load(ctx context.Context, store SnapshotStore) error {
	accounts, factions, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(accounts))
	for id := range accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	names := make([]string, 0, len(factions))
	for name := range factions {
		names = append(names, name)
	}
	sort.Strings(names)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances = make(map[uuid.UUID]balanceEntry, len(accounts))
	for _, id := range ids {
		c.nextSeq++
		c.balances[id] = balanceEntry{amount: c.clampBalance(accounts[id]), seq: c.nextSeq}
	}
	c.points = make(map[string]pointsEntry, len(factions))
	for _, name := range names {
		c.nextSeq++
		p := factions[name]
		if p < 0 {
			p = 0
		}
		c.points[economy.NormalizeFaction(name)] = pointsEntry{points: p, seq: c.nextSeq}
	}
	c.log.Info("ledger loaded", "accounts", len(c.balances), "factions", len(c.points))
	return nil
}

// Flush writes a point-in-time copy of the whole ledger to the store.
// The copy is taken under a read lock so a save never observes a value
// that is half old, half new. I/O runs outside the lock.
func (c *Cache) Flush(ctx context.Context, store SnapshotStore) error {
	c.mu.RLock()
	gen := c.gen
	accounts := make(map[uuid.UUID]decimal.Decimal, len(c.balances))
	for id, e := range c.balances {
		accounts[id] = e.amount
	}
	factions := make(map[string]int64, len(c.points))
	for name, e := range c.points {
		factions[name] = e.points
	}
	c.mu.RUnlock()

	start := time.Now()
	if err := store.Save(ctx, accounts, factions); err != nil {
		flushFailures.Inc()
		return fmt.Errorf("save snapshot: %w", err)
	}
	flushDuration.Observe(time.Since(start).Seconds())

	c.mu.Lock()
	if c.savedGen < gen {
		c.savedGen = gen
	}
	c.mu.Unlock()
	return nil
}

// Dirty reports whether any mutation happened since the last successful
// flush.
func (c *Cache) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen != c.savedGen
}

// Balance returns the player's balance, zero when absent.
func (c *Cache) Balance(id uuid.UUID) decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.balances[id]; ok {
		return e.amount
	}
	return zero
}

// SetBalance writes the balance, clamped into [0, max]. Always succeeds.
func (c *Cache) SetBalance(id uuid.UUID, amount decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setBalanceLocked(id, amount)
}

// AddBalance adds delta (which may be negative) to the balance, clamped
// into [0, max], and reports whether the write happened. The only
// failure is arithmetic overflow of the 19-digit decimal, which leaves
// the balance untouched.
func (c *Cache) AddBalance(id uuid.UUID, delta decimal.Decimal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := zero
	if e, ok := c.balances[id]; ok {
		current = e.amount
	}
	next, err := current.Add(delta)
	if err != nil {
		c.log.Warn("balance add overflow", "player", id, "delta", delta.String())
		return false
	}
	c.setBalanceLocked(id, next)
	return true
}

// TakeBalance debits amount when the balance covers it and reports
// whether the debit happened. On failure nothing is mutated.
func (c *Cache) TakeBalance(id uuid.UUID, amount decimal.Decimal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := zero
	if e, ok := c.balances[id]; ok {
		current = e.amount
	}
	if current.Cmp(amount) < 0 {
		return false
	}
	next, err := current.Sub(amount)
	if err != nil {
		c.log.Warn("balance take overflow", "player", id, "amount", amount.String())
		return false
	}
	c.setBalanceLocked(id, next)
	return true
}

// setBalanceLocked clamps and stores the amount. Caller holds the write
// lock.
func (c *Cache) setBalanceLocked(id uuid.UUID, amount decimal.Decimal) {
	amount = c.clampBalance(amount)
	e, ok := c.balances[id]
	if !ok {
		c.nextSeq++
		e.seq = c.nextSeq
	}
	e.amount = amount
	c.balances[id] = e
	c.gen++
}

// clampBalance enforces the non-negative floor and the optional cap.
func (c *Cache) clampBalance(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNeg() {
		return zero
	}
	if c.policy.MaxBalanceEnabled && amount.Cmp(c.policy.MaxBalance) > 0 {
		return c.policy.MaxBalance
	}
	return amount
}

// FactionPoints returns the faction's point total, zero when absent.
// The name is normalized to lowercase before lookup.
func (c *Cache) FactionPoints(name string) int64 {
	key := economy.NormalizeFaction(name)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.points[key].points
}

// SetFactionPoints writes the point total, floored at zero.
func (c *Cache) SetFactionPoints(name string, points int64) {
	key := economy.NormalizeFaction(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPointsLocked(key, points)
}

// AddFactionPoints adds delta (which may be negative) to the total,
// floored at zero.
func (c *Cache) AddFactionPoints(name string, delta int64) {
	key := economy.NormalizeFaction(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPointsLocked(key, c.points[key].points+delta)
}

// TakeFactionPoints debits points when the total covers it and reports
// whether the debit happened.
func (c *Cache) TakeFactionPoints(name string, points int64) bool {
	key := economy.NormalizeFaction(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.points[key].points
	if current < points {
		return false
	}
	c.setPointsLocked(key, current-points)
	return true
}

// setPointsLocked floors and stores the total. Caller holds the write
// lock.
func (c *Cache) setPointsLocked(key string, points int64) {
	if points < 0 {
		points = 0
	}
	e, ok := c.points[key]
	if !ok {
		c.nextSeq++
		e.seq = c.nextSeq
	}
	e.points = points
	c.points[key] = e
	c.gen++
}

// TopBalances returns balances sorted descending. Equal balances order
// by first-write sequence so the output is reproducible. limit <= 0
// returns all entries.
func (c *Cache) TopBalances(limit int) []economy.BalanceEntry {
	c.mu.RLock()
	type row struct {
		entry economy.BalanceEntry
		seq   uint64
	}
	rows := make([]row, 0, len(c.balances))
	for id, e := range c.balances {
		rows = append(rows, row{entry: economy.BalanceEntry{PlayerID: id, Balance: e.amount}, seq: e.seq})
	}
	c.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if cmp := rows[i].entry.Balance.Cmp(rows[j].entry.Balance); cmp != 0 {
			return cmp > 0
		}
		return rows[i].seq < rows[j].seq
	})
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	out := make([]economy.BalanceEntry, len(rows))
	for i, r := range rows {
		out[i] = r.entry
	}
	return out
}

// TopFactions returns faction points sorted descending, with the same
// tie-break contract as TopBalances.
func (c *Cache) TopFactions(limit int) []economy.FactionEntry {
	c.mu.RLock()
	type row struct {
		entry economy.FactionEntry
		seq   uint64
	}
	rows := make([]row, 0, len(c.points))
	for name, e := range c.points {
		rows = append(rows, row{entry: economy.FactionEntry{Name: name, Points: e.points}, seq: e.seq})
	}
	c.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].entry.Points != rows[j].entry.Points {
			return rows[i].entry.Points > rows[j].entry.Points
		}
		return rows[i].seq < rows[j].seq
	})
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	out := make([]economy.FactionEntry, len(rows))
	for i, r := range rows {
		out[i] = r.entry
	}
	return out
}
