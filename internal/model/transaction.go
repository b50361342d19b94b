package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TransactionType says which side of the bank statement a row sits on.
type TransactionType string

const (
	TypeDebit  TransactionType = "debit"
	TypeCredit TransactionType = "credit"
)

// MatchStatus is the reconciliation state of a bank transaction.
type MatchStatus string

const (
	MatchStatusUnmatched MatchStatus = "unmatched"
	MatchStatusMatched   MatchStatus = "matched"
)

// ReferenceType says what kind of platform record a bank transaction is
// matched against.
type ReferenceType string

const (
	RefInvoice ReferenceType = "invoice"
	RefExpense ReferenceType = "expense"
)

// BankTransaction is one row of an imported bank statement. Amount is
// always positive; direction lives in Type. A matched transaction holds
// exactly one platform reference; an unmatched one holds none.
type BankTransaction struct {
	ID                   string          `gorm:"primaryKey;type:uuid"`
	Date                 time.Time       `gorm:"not null;index"`
	Description          string          `gorm:"size:512;not null"`
	Amount               decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Type                 TransactionType `gorm:"size:8;not null"`
	MatchStatus          MatchStatus     `gorm:"size:16;not null;default:'unmatched';index"`
	MatchedReferenceID   *string         `gorm:"index"`
	MatchedReferenceType *ReferenceType  `gorm:"size:16"`
	Raw                  datatypes.JSON  // original CSV record, for audit
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (t *BankTransaction) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// PlatformTransaction is a derived view of an internal money movement
// (paid invoice or recorded expense), used as the candidate pool for
// reconciliation. It is never persisted.
type PlatformTransaction struct {
	ID          string
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Type        TransactionType // credit for invoices, debit for expenses
	SourceKind  ReferenceType
}
