package yamlfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/govalues/decimal"
	"gopkg.in/yaml.v3"

	"github.com/minimize/economyd/internal/economy"
	"github.com/minimize/economyd/internal/errs"
)

// Journal persists the transaction history as a YAML list. Each append
// rewrites the full list atomically, matching the file format the
// history readers expect.
type Journal struct {
	path string
	log  *slog.Logger
}

type journalFile struct {
	Transactions []recordNode `yaml:"transactions"`
}

type recordNode struct {
	Date     string `yaml:"date"`
	Type     string `yaml:"type"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Amount   string `yaml:"amount"`
	Currency string `yaml:"currency"`
}

// NewJournal creates the journal and its parent directory.
func NewJournal(path string, logger *slog.Logger) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: journal path is required", errs.ErrInvalid)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Journal{path: path, log: logger}, nil
}

// ReadAll parses the journal file in insertion order. An absent file is
// an empty history. Records with malformed fields are skipped with a
// warning.
func (j *Journal) ReadAll(_ context.Context) ([]economy.Transaction, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read journal: %w", err)
	}

	var file journalFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode journal: %w", err)
	}

	out := make([]economy.Transaction, 0, len(file.Transactions))
	for i, node := range file.Transactions {
		date, err := time.ParseInLocation(economy.DateLayout, node.Date, time.Local)
		if err != nil {
			j.log.Warn("skipping journal record with bad date", "index", i, "date", node.Date, "err", err)
			continue
		}
		amount, err := decimal.Parse(node.Amount)
		if err != nil {
			j.log.Warn("skipping journal record with bad amount", "index", i, "amount", node.Amount, "err", err)
			continue
		}
		typ := economy.TxType(node.Type)
		if !typ.Valid() {
			j.log.Warn("skipping journal record with unknown type", "index", i, "type", node.Type)
			continue
		}
		currency := economy.Currency(node.Currency)
		if !currency.Valid() {
			j.log.Warn("skipping journal record with unknown currency", "index", i, "currency", node.Currency)
			continue
		}
		out = append(out, economy.Transaction{
			Date:     date,
			Type:     typ,
			From:     node.From,
			To:       node.To,
			Amount:   amount,
			Currency: currency,
		})
	}
	return out, nil
}

// Append rewrites the journal file with the full updated sequence.
func (j *Journal) Append(_ context.Context, _ economy.Transaction, all []economy.Transaction) error {
	file := journalFile{Transactions: make([]recordNode, 0, len(all))}
	for _, rec := range all {
		file.Transactions = append(file.Transactions, recordNode{
			Date:     rec.Date.Format(economy.DateLayout),
			Type:     string(rec.Type),
			From:     rec.From,
			To:       rec.To,
			Amount:   rec.Amount.String(),
			Currency: string(rec.Currency),
		})
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	if err := writeAtomic(j.path, data); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}
