package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newCache(t *testing.T, policy Policy) *Cache {
	t.Helper()
	return New(policy, testLogger())
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

// memStore is an in-memory SnapshotStore for tests.
type memStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]decimal.Decimal
	factions map[string]int64
	saves    int
	failSave bool
}

func (m *memStore) Load(context.Context) (map[uuid.UUID]decimal.Decimal, map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	accounts := make(map[uuid.UUID]decimal.Decimal, len(m.accounts))
	for k, v := range m.accounts {
		accounts[k] = v
	}
	factions := make(map[string]int64, len(m.factions))
	for k, v := range m.factions {
		factions[k] = v
	}
	return accounts, factions, nil
}

func (m *memStore) Save(_ context.Context, accounts map[uuid.UUID]decimal.Decimal, factions map[string]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("disk full")
	}
	m.accounts = accounts
	m.factions = factions
	m.saves++
	return nil
}

func TestBalanceDefaultsToZero(t *testing.T) {
	c := newCache(t, Policy{})
	if got := c.Balance(uuid.New()); !got.IsZero() {
		t.Fatalf("expected zero balance, got %s", got)
	}
}

func TestSetBalanceClampsToCap(t *testing.T) {
	c := newCache(t, Policy{MaxBalanceEnabled: true, MaxBalance: dec(t, "1000")})
	id := uuid.New()
	c.SetBalance(id, dec(t, "1500.25"))
	if got := c.Balance(id); got.Cmp(dec(t, "1000")) != 0 {
		t.Fatalf("expected cap 1000, got %s", got)
	}
	c.SetBalance(id, dec(t, "999.99"))
	if got := c.Balance(id); got.Cmp(dec(t, "999.99")) != 0 {
		t.Fatalf("expected 999.99, got %s", got)
	}
}

func TestSetBalanceFloorsAtZero(t *testing.T) {
	c := newCache(t, Policy{})
	id := uuid.New()
	c.SetBalance(id, dec(t, "-5"))
	if got := c.Balance(id); !got.IsZero() {
		t.Fatalf("expected zero, got %s", got)
	}
}

func TestAddBalanceNegativeDeltaClamps(t *testing.T) {
	c := newCache(t, Policy{})
	id := uuid.New()
	c.SetBalance(id, dec(t, "10"))
	c.AddBalance(id, dec(t, "-25"))
	if got := c.Balance(id); !got.IsZero() {
		t.Fatalf("expected zero after over-debit, got %s", got)
	}
}

func TestAddBalanceOverflowIsRejected(t *testing.T) {
	c := newCache(t, Policy{})
	id := uuid.New()
	max := dec(t, "9999999999999999999")
	c.SetBalance(id, max)

	if c.AddBalance(id, dec(t, "1")) {
		t.Fatal("expected overflow to be rejected")
	}
	if got := c.Balance(id); got.Cmp(max) != 0 {
		t.Fatalf("balance changed on rejected add: %s", got)
	}
	if !c.AddBalance(id, dec(t, "-1")) {
		t.Fatal("expected in-range add to succeed")
	}
}

func TestTakeBalance(t *testing.T) {
	c := newCache(t, Policy{})
	id := uuid.New()
	c.SetBalance(id, dec(t, "100"))

	if !c.TakeBalance(id, dec(t, "40")) {
		t.Fatal("expected take to succeed")
	}
	if got := c.Balance(id); got.Cmp(dec(t, "60")) != 0 {
		t.Fatalf("expected 60, got %s", got)
	}
	if c.TakeBalance(id, dec(t, "100")) {
		t.Fatal("expected take to fail")
	}
	// failed take mutates nothing
	if got := c.Balance(id); got.Cmp(dec(t, "60")) != 0 {
		t.Fatalf("balance changed on failed take: %s", got)
	}
}

func TestTransferConservation(t *testing.T) {
	c := newCache(t, Policy{})
	from, to := uuid.New(), uuid.New()
	c.SetBalance(from, dec(t, "75.50"))
	c.SetBalance(to, dec(t, "10"))

	amount := dec(t, "25.25")
	if !c.TakeBalance(from, amount) {
		t.Fatal("transfer debit failed")
	}
	c.AddBalance(to, amount)

	sum, err := c.Balance(from).Add(c.Balance(to))
	if err != nil {
		t.Fatal(err)
	}
	if sum.Cmp(dec(t, "85.50")) != 0 {
		t.Fatalf("conservation violated: total %s", sum)
	}
}

func TestConcurrentTakesOneWinner(t *testing.T) {
	c := newCache(t, Policy{})
	id := uuid.New()
	amount := dec(t, "10")
	c.SetBalance(id, amount)

	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.TakeBalance(id, amount) {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly 1 successful take, got %d", successes)
	}
	if got := c.Balance(id); !got.IsZero() {
		t.Fatalf("expected zero balance, got %s", got)
	}
}

func TestFactionPointsNormalizeAndFloor(t *testing.T) {
	c := newCache(t, Policy{})
	c.SetFactionPoints("MyFaction", 50)
	if got := c.FactionPoints("myfaction"); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
	if got := c.FactionPoints("MYFACTION"); got != 50 {
		t.Fatalf("case-insensitive lookup failed, got %d", got)
	}
	c.AddFactionPoints("myFaction", -80)
	if got := c.FactionPoints("myfaction"); got != 0 {
		t.Fatalf("expected floor at 0, got %d", got)
	}
	if c.TakeFactionPoints("myfaction", 1) {
		t.Fatal("expected take to fail on empty faction")
	}
}

func TestTopBalancesOrderAndLimit(t *testing.T) {
	c := newCache(t, Policy{})
	a, b, cid := uuid.New(), uuid.New(), uuid.New()
	c.SetBalance(a, dec(t, "50"))
	c.SetBalance(b, dec(t, "200"))
	c.SetBalance(cid, dec(t, "75"))

	top := c.TopBalances(2)
	if len(top) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(top))
	}
	if top[0].PlayerID != b || top[0].Balance.Cmp(dec(t, "200")) != 0 {
		t.Fatalf("expected b first, got %+v", top[0])
	}
	if top[1].PlayerID != cid || top[1].Balance.Cmp(dec(t, "75")) != 0 {
		t.Fatalf("expected c second, got %+v", top[1])
	}

	all := c.TopBalances(0)
	if len(all) != 3 {
		t.Fatalf("limit 0 should return all, got %d", len(all))
	}
	if all[2].PlayerID != a {
		t.Fatalf("expected a last, got %+v", all[2])
	}
}

func TestTopBalancesTieBreakIsInsertionOrder(t *testing.T) {
	c := newCache(t, Policy{})
	first, second, third := uuid.New(), uuid.New(), uuid.New()
	c.SetBalance(first, dec(t, "100"))
	c.SetBalance(second, dec(t, "100"))
	c.SetBalance(third, dec(t, "100"))

	top := c.TopBalances(0)
	want := []uuid.UUID{first, second, third}
	for i, e := range top {
		if e.PlayerID != want[i] {
			t.Fatalf("tie break not insertion order at %d: %+v", i, top)
		}
	}
}

func TestTopFactions(t *testing.T) {
	c := newCache(t, Policy{})
	c.SetFactionPoints("alpha", 10)
	c.SetFactionPoints("beta", 30)
	c.SetFactionPoints("gamma", 20)

	top := c.TopFactions(2)
	if len(top) != 2 || top[0].Name != "beta" || top[1].Name != "gamma" {
		t.Fatalf("unexpected order: %+v", top)
	}
}

func TestLoadFlushRoundTrip(t *testing.T) {
	store := &memStore{}
	c := newCache(t, Policy{})
	id := uuid.New()
	c.SetBalance(id, dec(t, "12.34"))
	c.SetFactionPoints("alpha", 7)

	if err := c.Flush(context.Background(), store); err != nil {
		t.Fatalf("flush: %v", err)
	}

	c2 := newCache(t, Policy{})
	if err := c2.Load(context.Background(), store); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := c2.Balance(id); got.Cmp(dec(t, "12.34")) != 0 {
		t.Fatalf("round trip balance mismatch: %s", got)
	}
	if got := c2.FactionPoints("alpha"); got != 7 {
		t.Fatalf("round trip points mismatch: %d", got)
	}
}

func TestLoadClampsInvalidSnapshotValues(t *testing.T) {
	id := uuid.New()
	store := &memStore{
		accounts: map[uuid.UUID]decimal.Decimal{id: dec(t, "500")},
		factions: map[string]int64{"Alpha": -3},
	}
	c := newCache(t, Policy{MaxBalanceEnabled: true, MaxBalance: dec(t, "100")})
	if err := c.Load(context.Background(), store); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := c.Balance(id); got.Cmp(dec(t, "100")) != 0 {
		t.Fatalf("expected loaded balance clamped to cap, got %s", got)
	}
	if got := c.FactionPoints("alpha"); got != 0 {
		t.Fatalf("expected negative points floored to 0, got %d", got)
	}
}

func TestDirtyTracking(t *testing.T) {
	store := &memStore{}
	c := newCache(t, Policy{})
	if c.Dirty() {
		t.Fatal("fresh cache should be clean")
	}
	c.SetBalance(uuid.New(), dec(t, "1"))
	if !c.Dirty() {
		t.Fatal("mutation should mark the cache dirty")
	}
	if err := c.Flush(context.Background(), store); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if c.Dirty() {
		t.Fatal("flush should clear the dirty flag")
	}

	store.failSave = true
	c.SetBalance(uuid.New(), dec(t, "2"))
	if err := c.Flush(context.Background(), store); err == nil {
		t.Fatal("expected flush error")
	}
	if !c.Dirty() {
		t.Fatal("failed flush must leave the cache dirty")
	}
}

func TestFlushObservesConsistentSnapshot(t *testing.T) {
	store := &memStore{}
	c := newCache(t, Policy{})
	id := uuid.New()
	c.SetBalance(id, dec(t, "10"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			c.AddBalance(id, dec(t, "1"))
		}
	}()
	for i := 0; i < 10; i++ {
		if err := c.Flush(context.Background(), store); err != nil {
			t.Fatalf("flush: %v", err)
		}
	}
	<-done

	// the saved value is some consistent point-in-time balance
	saved := store.accounts[id]
	if saved.IsNeg() || saved.Cmp(dec(t, "110")) > 0 {
		t.Fatalf("saved balance out of range: %s", saved)
	}
}
