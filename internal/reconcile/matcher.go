// Package reconcile pairs imported bank transactions with internally
// generated platform transactions (paid invoices, recorded expenses).
// Matching is always an explicit operator action pairing exactly one bank
// row with exactly one platform row.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tallybooks/tally/internal/model"
	"github.com/tallybooks/tally/internal/store"
)

// ErrAlreadyMatched reports that another bank transaction already holds a
// matched reference to the same platform transaction.
var ErrAlreadyMatched = errors.New("platform transaction is already matched")

// ErrUnknownReference reports a match attempt against a platform
// transaction that does not exist (or an invoice that is not paid).
var ErrUnknownReference = errors.New("unknown platform transaction")

// Service maintains bank-versus-platform match state.
type Service struct {
	store *store.Store
	log   zerolog.Logger
}

// NewService creates a reconciliation Service.
func NewService(st *store.Store, log zerolog.Logger) *Service {
	return &Service{store: st, log: log}
}

// Match records refID/refType on a bank transaction and flips it to
// matched. The whole check-and-set runs in one transaction: the reference
// must exist, must not already back another matched bank transaction, and
// the bank transaction must currently be unmatched.
func (s *Service) Match(ctx context.Context, bankTxID, refID string, refType model.ReferenceType) error {
	return s.store.Transact(ctx, func(tx *store.Store) error {
		if err := s.checkReference(ctx, tx, refID, refType); err != nil {
			return err
		}

		taken, err := tx.ReferenceMatched(ctx, refID, refType)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%s %s: %w", refType, refID, ErrAlreadyMatched)
		}

		ok, err := tx.MarkMatched(ctx, bankTxID, refID, refType)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("bank transaction %s is not unmatched", bankTxID)
		}
		return nil
	})
}

// Unmatch clears both reference fields and returns the bank transaction
// to the unmatched state. Idempotent and reversible: match then unmatch
// leaves the row observationally identical to its pre-match state.
func (s *Service) Unmatch(ctx context.Context, bankTxID string) error {
	return s.store.MarkUnmatched(ctx, bankTxID)
}

func (s *Service) checkReference(ctx context.Context, tx *store.Store, refID string, refType model.ReferenceType) error {
	switch refType {
	case model.RefInvoice:
		inv, err := tx.GetInvoice(ctx, refID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("invoice %s: %w", refID, ErrUnknownReference)
		}
		if err != nil {
			return err
		}
		if inv.Status != model.InvoicePaid {
			return fmt.Errorf("invoice %s is not paid: %w", refID, ErrUnknownReference)
		}
	case model.RefExpense:
		expenses, err := tx.AllExpenses(ctx)
		if err != nil {
			return err
		}
		for _, e := range expenses {
			if e.ID == refID {
				return nil
			}
		}
		return fmt.Errorf("expense %s: %w", refID, ErrUnknownReference)
	default:
		return fmt.Errorf("reference type %q: %w", refType, ErrUnknownReference)
	}
	return nil
}

// PlatformTransactions builds the candidate pool for matching: paid
// invoices as credits, recorded expenses as debits.
func (s *Service) PlatformTransactions(ctx context.Context) ([]model.PlatformTransaction, error) {
	invoices, err := s.store.PaidInvoices(ctx)
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.AllExpenses(ctx)
	if err != nil {
		return nil, err
	}

	pool := make([]model.PlatformTransaction, 0, len(invoices)+len(expenses))
	for _, inv := range invoices {
		pool = append(pool, model.PlatformTransaction{
			ID:          inv.ID,
			Date:        inv.IssueDate,
			Description: "Invoice " + inv.Number,
			Amount:      inv.Total,
			Type:        model.TypeCredit,
			SourceKind:  model.RefInvoice,
		})
	}
	for _, e := range expenses {
		pool = append(pool, model.PlatformTransaction{
			ID:          e.ID,
			Date:        e.Date,
			Description: e.Description,
			Amount:      e.Amount,
			Type:        model.TypeDebit,
			SourceKind:  model.RefExpense,
		})
	}
	return pool, nil
}

// Overview is the reconciliation state for display.
type Overview struct {
	UnmatchedBank     []model.BankTransaction
	MatchedBank       []model.BankTransaction
	UnmatchedPlatform []model.PlatformTransaction
}

// BuildOverview derives the display state. A platform transaction counts
// as unmatched when no matched bank transaction references it — computed
// by a scan, not stored. A matched bank transaction whose reference no
// longer exists is logged and treated as effectively unmatched rather
// than crashing the view.
func (s *Service) BuildOverview(ctx context.Context) (Overview, error) {
	unmatched, err := s.store.BankTransactionsByStatus(ctx, model.MatchStatusUnmatched)
	if err != nil {
		return Overview{}, err
	}
	matched, err := s.store.MatchedBankTransactions(ctx)
	if err != nil {
		return Overview{}, err
	}
	pool, err := s.PlatformTransactions(ctx)
	if err != nil {
		return Overview{}, err
	}

	poolByRef := make(map[string]model.PlatformTransaction, len(pool))
	for _, p := range pool {
		poolByRef[refKey(p.ID, p.SourceKind)] = p
	}

	overview := Overview{UnmatchedBank: unmatched}
	claimed := make(map[string]bool, len(matched))
	for _, txn := range matched {
		if txn.MatchedReferenceID == nil || txn.MatchedReferenceType == nil {
			s.log.Warn().Str("bank_transaction", txn.ID).
				Msg("matched bank transaction has no reference, treating as unmatched")
			overview.UnmatchedBank = append(overview.UnmatchedBank, txn)
			continue
		}
		key := refKey(*txn.MatchedReferenceID, *txn.MatchedReferenceType)
		if _, ok := poolByRef[key]; !ok {
			s.log.Warn().Str("bank_transaction", txn.ID).Str("reference", key).
				Msg("matched reference no longer exists, treating as unmatched")
			overview.UnmatchedBank = append(overview.UnmatchedBank, txn)
			continue
		}
		claimed[key] = true
		overview.MatchedBank = append(overview.MatchedBank, txn)
	}

	for _, p := range pool {
		if !claimed[refKey(p.ID, p.SourceKind)] {
			overview.UnmatchedPlatform = append(overview.UnmatchedPlatform, p)
		}
	}
	return overview, nil
}

func refKey(id string, kind model.ReferenceType) string {
	return string(kind) + ":" + id
}
