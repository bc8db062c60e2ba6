// Package postgres provides a pgx-backed persistence implementation that
// satisfies the snapshot store and transaction journal interfaces. It is
// intentionally small and explicit: mapping between domain values and
// SQL rows, nothing else.
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minimize/economyd/internal/economy"
	"github.com/minimize/economyd/internal/errs"
)

// Store holds a pgx connection pool. All methods are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string and
// ensures the expected schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: dsn is required", errs.ErrInvalid)
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		create table if not exists accounts (
			player_id uuid primary key,
			balance   numeric not null
		);
		create table if not exists faction_points (
			name   text primary key,
			points bigint not null
		);
		create table if not exists transactions (
			id       bigserial primary key,
			date     timestamptz not null,
			type     text not null,
			"from"   text not null,
			"to"     text not null,
			amount   numeric not null,
			currency text not null
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Load reads the full ledger state. Rows with unparseable numerics are
// skipped; the database enforces the numeric types so this only guards
// against out-of-range values.
func (s *Store) Load(ctx context.Context) (map[uuid.UUID]decimal.Decimal, map[string]int64, error) {
	accounts := make(map[uuid.UUID]decimal.Decimal)
	factions := make(map[string]int64)

	rows, err := s.pool.Query(ctx, `select player_id, balance::text from accounts`)
	if err != nil {
		return nil, nil, fmt.Errorf("load accounts: %w", err)
	}
	for rows.Next() {
		var id uuid.UUID
		var balStr string
		if err := rows.Scan(&id, &balStr); err != nil {
			rows.Close()
			return nil, nil, err
		}
		bal, err := decimal.Parse(balStr)
		if err != nil {
			continue
		}
		accounts[id] = bal
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, nil, err
	}
	rows.Close()

	rows, err = s.pool.Query(ctx, `select name, points from faction_points`)
	if err != nil {
		return nil, nil, fmt.Errorf("load faction points: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var points int64
		if err := rows.Scan(&name, &points); err != nil {
			return nil, nil, err
		}
		factions[name] = points
	}
	return accounts, factions, rows.Err()
}

// Save rewrites the full state in one transaction, matching the
// snapshot semantics of the file store.
func (s *Store) Save(ctx context.Context, accounts map[uuid.UUID]decimal.Decimal, factions map[string]int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `truncate accounts, faction_points`); err != nil {
		return fmt.Errorf("clear snapshot tables: %w", err)
	}
	for id, bal := range accounts {
		if _, err := tx.Exec(ctx,
			`insert into accounts (player_id, balance) values ($1, $2::numeric)`,
			id, bal.String()); err != nil {
			return fmt.Errorf("save account: %w", err)
		}
	}
	for name, points := range factions {
		if _, err := tx.Exec(ctx,
			`insert into faction_points (name, points) values ($1, $2)`,
			name, points); err != nil {
			return fmt.Errorf("save faction points: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// ReadAll returns the transaction history in insertion order.
func (s *Store) ReadAll(ctx context.Context) ([]economy.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		select date, type, "from", "to", amount::text, currency
		from transactions order by id
	`)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()

	var out []economy.Transaction
	for rows.Next() {
		var rec economy.Transaction
		var amountStr string
		if err := rows.Scan(&rec.Date, (*string)(&rec.Type), &rec.From, &rec.To, &amountStr, (*string)(&rec.Currency)); err != nil {
			return nil, err
		}
		amount, err := decimal.Parse(amountStr)
		if err != nil {
			continue
		}
		if !rec.Type.Valid() || !rec.Currency.Valid() {
			continue
		}
		rec.Amount = amount
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Append inserts the new record; the full sequence is ignored since
// rows are the journal here.
func (s *Store) Append(ctx context.Context, rec economy.Transaction, _ []economy.Transaction) error {
	_, err := s.pool.Exec(ctx, `
		insert into transactions (date, type, "from", "to", amount, currency)
		values ($1, $2, $3, $4, $5::numeric, $6)
	`, rec.Date, string(rec.Type), rec.From, rec.To, rec.Amount.String(), string(rec.Currency))
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}
