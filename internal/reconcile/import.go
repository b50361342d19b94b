package reconcile

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallybooks/tally/internal/model"
)

// Parser converts a bank statement file into BankTransactions.
type Parser interface {
	Parse(r io.Reader) ([]model.BankTransaction, error)
	Format() string
}

// Registry holds named statement parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&StatementParser{})
	return r
}

// ImportStatement parses a statement with the named format and stores
// each usable row as an unmatched bank transaction. Returns how many
// transactions were created.
func (s *Service) ImportStatement(ctx context.Context, r io.Reader, format string, registry *Registry) (int, error) {
	parser := registry.Get(format)
	if parser == nil {
		return 0, fmt.Errorf("unknown statement format %q", format)
	}

	txns, err := parser.Parse(r)
	if err != nil {
		return 0, fmt.Errorf("parsing %s statement: %w", format, err)
	}

	if err := s.store.CreateBankTransactions(ctx, txns); err != nil {
		return 0, err
	}
	return len(txns), nil
}

// StatementParser handles generic bank CSV exports. Column names are
// matched case-insensitively against synonyms; the amount may be a single
// signed column or split debit/credit columns. Rows whose amount parses
// to a non-positive value are dropped without error — an intentional
// filter against zero and junk rows.
type StatementParser struct{}

// Format returns the parser name.
func (p *StatementParser) Format() string { return "generic" }

var (
	dateHeaders   = []string{"date", "transaction date", "posted date"}
	descHeaders   = []string{"description", "memo"}
	amountHeaders = []string{"amount"}
	debitHeaders  = []string{"debit", "withdrawal"}
	creditHeaders = []string{"credit", "deposit"}

	dateFormats = []string{"2006-01-02", "01/02/2006", "1/2/2006"}
)

// Parse reads a statement CSV and returns one unmatched BankTransaction
// per usable row.
func (p *StatementParser) Parse(r io.Reader) ([]model.BankTransaction, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading statement CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	header := records[0]
	dateCol := findColumn(header, dateHeaders)
	descCol := findColumn(header, descHeaders)
	amountCol := findColumn(header, amountHeaders)
	debitCol := findColumn(header, debitHeaders)
	creditCol := findColumn(header, creditHeaders)

	if dateCol < 0 {
		return nil, fmt.Errorf("statement has no date column (header: %s)", strings.Join(header, ","))
	}
	if amountCol < 0 && debitCol < 0 && creditCol < 0 {
		return nil, fmt.Errorf("statement has no amount, debit or credit column (header: %s)", strings.Join(header, ","))
	}

	var txns []model.BankTransaction
	for _, rec := range records[1:] {
		date, ok := parseDate(field(rec, dateCol))
		if !ok {
			continue
		}

		amount, txType, ok := rowAmount(rec, amountCol, debitCol, creditCol)
		if !ok {
			continue
		}

		raw, _ := json.Marshal(rawRow(header, rec))
		txns = append(txns, model.BankTransaction{
			Date:        date,
			Description: field(rec, descCol),
			Amount:      amount,
			Type:        txType,
			MatchStatus: model.MatchStatusUnmatched,
			Raw:         raw,
		})
	}
	return txns, nil
}

// rowAmount resolves a row's positive amount and direction. It prefers a
// single signed amount column (negative means debit) and falls back to
// split debit/credit columns. ok is false for zero, negative-after-abs,
// or unparsable amounts.
func rowAmount(rec []string, amountCol, debitCol, creditCol int) (decimal.Decimal, model.TransactionType, bool) {
	if amountCol >= 0 {
		amt, ok := parseAmount(field(rec, amountCol))
		if !ok || amt.IsZero() {
			return decimal.Decimal{}, "", false
		}
		if amt.IsNegative() {
			return amt.Abs(), model.TypeDebit, true
		}
		return amt, model.TypeCredit, true
	}

	if debitCol >= 0 {
		if amt, ok := parseAmount(field(rec, debitCol)); ok && amt.GreaterThan(decimal.Zero) {
			return amt, model.TypeDebit, true
		}
	}
	if creditCol >= 0 {
		if amt, ok := parseAmount(field(rec, creditCol)); ok && amt.GreaterThan(decimal.Zero) {
			return amt, model.TypeCredit, true
		}
	}
	return decimal.Decimal{}, "", false
}

// parseAmount strips currency symbols and thousands separators before
// parsing.
func parseAmount(s string) (decimal.Decimal, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', ',', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	amt, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return amt, true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// findColumn returns the index of the first header matching any synonym,
// case-insensitively, or -1.
func findColumn(header []string, synonyms []string) int {
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		for _, syn := range synonyms {
			if name == syn {
				return i
			}
		}
	}
	return -1
}

func field(rec []string, col int) string {
	if col < 0 || col >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[col])
}

func rawRow(header, rec []string) map[string]string {
	row := make(map[string]string, len(header))
	for i, h := range header {
		row[h] = field(rec, i)
	}
	return row
}
