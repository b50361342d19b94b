package store

import (
	"context"
	"fmt"

	"github.com/tallybooks/tally/internal/model"
)

// CreateBankTransactions inserts a batch of imported bank transactions.
func (s *Store) CreateBankTransactions(ctx context.Context, txns []model.BankTransaction) error {
	if len(txns) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&txns).Error; err != nil {
		return fmt.Errorf("inserting bank transactions: %w", err)
	}
	return nil
}

// GetBankTransaction fetches a bank transaction by ID.
func (s *Store) GetBankTransaction(ctx context.Context, id string) (model.BankTransaction, error) {
	var txn model.BankTransaction
	if err := s.db.WithContext(ctx).First(&txn, "id = ?", id).Error; err != nil {
		return model.BankTransaction{}, fmt.Errorf("loading bank transaction %s: %w", id, translate(err))
	}
	return txn, nil
}

// BankTransactionsByStatus lists bank transactions in a match state.
func (s *Store) BankTransactionsByStatus(ctx context.Context, status model.MatchStatus) ([]model.BankTransaction, error) {
	var txns []model.BankTransaction
	err := s.db.WithContext(ctx).Where("match_status = ?", status).Order("date").Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("listing %s bank transactions: %w", status, err)
	}
	return txns, nil
}

// MatchedBankTransactions lists all matched bank transactions.
func (s *Store) MatchedBankTransactions(ctx context.Context) ([]model.BankTransaction, error) {
	return s.BankTransactionsByStatus(ctx, model.MatchStatusMatched)
}

// ReferenceMatched reports whether any matched bank transaction already
// holds the given platform reference (one platform transaction may back
// at most one bank transaction).
func (s *Store) ReferenceMatched(ctx context.Context, refID string, refType model.ReferenceType) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.BankTransaction{}).
		Where("match_status = ? AND matched_reference_id = ? AND matched_reference_type = ?",
			model.MatchStatusMatched, refID, refType).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking reference %s/%s: %w", refType, refID, err)
	}
	return count > 0, nil
}

// MarkMatched records a platform reference on a bank transaction and flips
// it to matched, conditional on it being unmatched. Returns false when the
// transaction was not in the unmatched state.
func (s *Store) MarkMatched(ctx context.Context, id, refID string, refType model.ReferenceType) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.BankTransaction{}).
		Where("id = ? AND match_status = ?", id, model.MatchStatusUnmatched).
		Updates(map[string]any{
			"match_status":           model.MatchStatusMatched,
			"matched_reference_id":   refID,
			"matched_reference_type": refType,
		})
	if res.Error != nil {
		return false, fmt.Errorf("matching bank transaction %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkUnmatched clears both reference fields and flips the transaction
// back to unmatched. Idempotent: unmatching an unmatched row is a no-op.
func (s *Store) MarkUnmatched(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Model(&model.BankTransaction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"match_status":           model.MatchStatusUnmatched,
			"matched_reference_id":   nil,
			"matched_reference_type": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("unmatching bank transaction %s: %w", id, err)
	}
	return nil
}
