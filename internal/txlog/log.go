// Package txlog keeps the append-only transaction history. Unlike the
// ledger cache, every append is persisted synchronously before the call
// returns.
package txlog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/govalues/decimal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/minimize/economyd/internal/economy"
)

var appendsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "economyd",
		Name:      "transactions_appended_total",
		Help:      "Total number of transaction records appended",
	},
	[]string{"type", "currency"},
)

// Journal persists transaction records. Append receives both the new
// record and the full updated sequence: row-oriented backends insert the
// record, rewrite-style backends (the YAML file) write the whole list.
type Journal interface {
	ReadAll(ctx context.Context) ([]economy.Transaction, error)
	Append(ctx context.Context, rec economy.Transaction, all []economy.Transaction) error
}

// Log is the in-process transaction history backed by a Journal. A
// single mutex serializes the append+persist critical section so
// concurrent appends can neither interleave their writes nor drop a
// record.
type Log struct {
	mu      sync.Mutex
	journal Journal
	records []economy.Transaction
	log     *slog.Logger
	console bool

	now func() time.Time
}

// Open reads the existing history from the journal. A read failure
// degrades to an empty history (the returned Log is always usable) and
// is reported to the caller for logging.
func Open(ctx context.Context, journal Journal, logger *slog.Logger, console bool) (*Log, error) {
	l := &Log{journal: journal, log: logger, console: console, now: time.Now}
	records, err := journal.ReadAll(ctx)
	if err != nil {
		return l, fmt.Errorf("read transaction journal: %w", err)
	}
	l.records = records
	return l, nil
}

// Append records a mutation with the current timestamp and persists it
// before returning. The record is kept in memory even when persistence
// fails, so the in-process history stays consistent; the error is
// returned for the caller to report.
func (l *Log) Append(ctx context.Context, typ economy.TxType, from, to string, amount decimal.Decimal, currency economy.Currency) error {
	rec := economy.Transaction{
		Date:     l.now().Truncate(time.Second),
		Type:     typ,
		From:     from,
		To:       to,
		Amount:   amount,
		Currency: currency,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	appendsTotal.WithLabelValues(string(typ), string(currency)).Inc()
	if l.console {
		l.log.Info("transaction",
			"type", typ,
			"from", from,
			"to", to,
			"amount", amount.String(),
			"currency", currency,
		)
	}
	if err := l.journal.Append(ctx, rec, l.records); err != nil {
		return fmt.Errorf("persist transaction: %w", err)
	}
	return nil
}

// All returns a copy of the complete history in insertion order.
func (l *Log) All() []economy.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]economy.Transaction, len(l.records))
	copy(out, l.records)
	return out
}

// For returns the records where target case-insensitively matches the
// from or to field, preserving insertion order.
func (l *Log) For(target string) []economy.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]economy.Transaction, 0)
	for _, rec := range l.records {
		if rec.Involves(target) {
			out = append(out, rec)
		}
	}
	return out
}

// Page slices records into 1-based pages of the given size. The page
// number is clamped into [1, totalPages]; the clamped page number and
// the total page count are returned alongside the slice. Empty input
// yields an empty page 1 of 1.
func Page(records []economy.Transaction, size, page int) ([]economy.Transaction, int, int) {
	if size < 1 {
		size = 1
	}
	total := (len(records) + size - 1) / size
	if total < 1 {
		total = 1
	}
	if page < 1 {
		page = 1
	}
	if page > total {
		page = total
	}
	start := (page - 1) * size
	end := start + size
	if start > len(records) {
		start = len(records)
	}
	if end > len(records) {
		end = len(records)
	}
	return records[start:end], page, total
}
