// Package yamlfile provides the YAML file persistence backends: the full
// ledger snapshot and the transaction journal. Writes replace the whole
// file atomically (temp file + rename); partial corruption on load skips
// the affected entries instead of failing the process.
package yamlfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"gopkg.in/yaml.v3"

	"github.com/minimize/economyd/internal/errs"
)

// SnapshotStore loads and saves the ledger state as a YAML mapping of
// accounts and factions.
type SnapshotStore struct {
	path string
	log  *slog.Logger
}

// Numeric fields are declared as strings so one malformed scalar fails
// that entry alone rather than the whole decode.
type snapshotFile struct {
	Accounts map[string]accountNode `yaml:"accounts,omitempty"`
	Factions map[string]factionNode `yaml:"factions,omitempty"`
}

type accountNode struct {
	Balance string `yaml:"balance"`
}

type factionNode struct {
	Points string `yaml:"points"`
}

// NewSnapshotStore creates the store and its parent directory.
func NewSnapshotStore(path string, logger *slog.Logger) (*SnapshotStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: snapshot path is required", errs.ErrInvalid)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &SnapshotStore{path: path, log: logger}, nil
}

// Load parses the snapshot file. An absent file or absent sections yield
// empty maps. Entries with malformed identifiers or numbers are skipped
// with a warning.
func (s *SnapshotStore) Load(_ context.Context) (map[uuid.UUID]decimal.Decimal, map[string]int64, error) {
	accounts := make(map[uuid.UUID]decimal.Decimal)
	factions := make(map[string]int64)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return accounts, factions, nil
		}
		return nil, nil, fmt.Errorf("read snapshot: %w", err)
	}

	var file snapshotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("decode snapshot: %w", err)
	}

	for idStr, node := range file.Accounts {
		id, err := uuid.Parse(idStr)
		if err != nil {
			s.log.Warn("skipping snapshot account with bad id", "id", idStr, "err", err)
			continue
		}
		bal, err := decimal.Parse(node.Balance)
		if err != nil {
			s.log.Warn("skipping snapshot account with bad balance", "id", idStr, "balance", node.Balance, "err", err)
			continue
		}
		accounts[id] = bal
	}
	for name, node := range file.Factions {
		points, err := strconv.ParseInt(node.Points, 10, 64)
		if err != nil {
			s.log.Warn("skipping snapshot faction with bad points", "faction", name, "points", node.Points, "err", err)
			continue
		}
		factions[name] = points
	}
	return accounts, factions, nil
}

// Save serializes the full state and atomically replaces the file.
func (s *SnapshotStore) Save(_ context.Context, accounts map[uuid.UUID]decimal.Decimal, factions map[string]int64) error {
	file := snapshotFile{
		Accounts: make(map[string]accountNode, len(accounts)),
		Factions: make(map[string]factionNode, len(factions)),
	}
	for id, bal := range accounts {
		file.Accounts[id.String()] = accountNode{Balance: bal.String()}
	}
	for name, points := range factions {
		file.Factions[name] = factionNode{Points: strconv.FormatInt(points, 10)}
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
