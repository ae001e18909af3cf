package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"envelope/internal/models"
)

// Record contains the columns shared by every table.
type Record struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	ScopeID   string `gorm:"type:varchar(64);not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func newRecord(scope string, b models.Base) Record {
	return Record{ID: b.ID, ScopeID: scope, CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt}
}

func (r Record) base() models.Base {
	return models.Base{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

type accountRecord struct {
	Record
	Name                 string          `gorm:"not null"`
	Type                 string          `gorm:"type:varchar(32);not null"`
	Category             string          `gorm:"type:varchar(32);not null"`
	Note                 string          `gorm:"not null;default:''"`
	Balance              decimal.Decimal `gorm:"type:numeric(19,2);not null"`
	ClearedBalance       decimal.Decimal `gorm:"type:numeric(19,2);not null"`
	Archived             bool            `gorm:"not null;default:false"`
	LastReconciledAt     *time.Time
	LastReconciledAmount decimal.NullDecimal `gorm:"type:numeric(19,2)"`
	CreatedBy            string              `gorm:"not null;default:''"`
}

func (accountRecord) TableName() string { return "accounts" }

type categoryGroupRecord struct {
	Record
	Name     string `gorm:"not null"`
	Emoji    string `gorm:"not null;default:''"`
	IsIncome bool   `gorm:"not null;default:false"`
	Position int    `gorm:"not null;default:0"`
}

func (categoryGroupRecord) TableName() string { return "category_groups" }

type categoryRecord struct {
	Record
	GroupID             string              `gorm:"type:varchar(36);not null;index"`
	Name                string              `gorm:"not null"`
	Emoji               string              `gorm:"not null;default:''"`
	Position            int                 `gorm:"not null;default:0"`
	Allocated           decimal.Decimal     `gorm:"type:numeric(19,2);not null"`
	Spent               decimal.Decimal     `gorm:"type:numeric(19,2);not null"`
	TargetKind          *string             `gorm:"type:varchar(16)"`
	TargetGoal          decimal.NullDecimal `gorm:"type:numeric(19,2)"`
	TargetDate          *time.Time
	TargetIntervalKind  *string `gorm:"type:varchar(32)"`
	TargetIntervalCount *int
	TargetAnchor        *time.Time
}

func (categoryRecord) TableName() string { return "categories" }

type transactionRecord struct {
	Record
	Date        time.Time       `gorm:"not null;index"`
	Payee       string          `gorm:"not null;default:''"`
	CategoryID  *string         `gorm:"type:varchar(36);index"`
	Amount      decimal.Decimal `gorm:"type:numeric(19,2);not null"`
	IsIncome    bool            `gorm:"not null;default:false"`
	Note        string          `gorm:"not null;default:''"`
	AccountID   string          `gorm:"type:varchar(36);not null;index"`
	ToAccountID *string         `gorm:"type:varchar(36);index"`
	LinkedID    *string         `gorm:"type:varchar(36)"`
	PlannedID   *string         `gorm:"type:varchar(36);uniqueIndex:idx_transactions_occurrence"`
	Occurrence  *time.Time      `gorm:"uniqueIndex:idx_transactions_occurrence"`
}

func (transactionRecord) TableName() string { return "transactions" }

type plannedRecord struct {
	Record
	Title             string          `gorm:"not null"`
	Amount            decimal.Decimal `gorm:"type:numeric(19,2);not null"`
	CategoryID        *string         `gorm:"type:varchar(36)"`
	AccountID         string          `gorm:"type:varchar(36);not null;index"`
	ToAccountID       *string         `gorm:"type:varchar(36)"`
	Note              string          `gorm:"not null;default:''"`
	IsIncome          bool            `gorm:"not null;default:false"`
	Type              string          `gorm:"type:varchar(16);not null"`
	RecurrenceKind    string          `gorm:"type:varchar(32);not null"`
	RecurrenceCount   int             `gorm:"not null;default:1"`
	IsActive          bool            `gorm:"not null"`
	NextDueDate       time.Time       `gorm:"not null;index"`
	LastProcessedDate *time.Time
}

func (plannedRecord) TableName() string { return "planned_transactions" }

// Models returns the record types for schema auto-migration.
func Models() []any {
	return []any{
		&accountRecord{},
		&categoryGroupRecord{},
		&categoryRecord{},
		&transactionRecord{},
		&plannedRecord{},
	}
}

func accountToRecord(scope string, a models.Account) accountRecord {
	rec := accountRecord{
		Record:           newRecord(scope, a.Base),
		Name:             a.Name,
		Type:             string(a.Type),
		Category:         string(a.Category),
		Note:             a.Note,
		Balance:          a.Balance,
		ClearedBalance:   a.ClearedBalance,
		Archived:         a.Archived,
		LastReconciledAt: a.LastReconciledAt,
		CreatedBy:        a.CreatedBy,
	}
	if a.LastReconciledAmount != nil {
		rec.LastReconciledAmount = decimal.NewNullDecimal(*a.LastReconciledAmount)
	}
	return rec
}

func (r accountRecord) toModel() models.Account {
	a := models.Account{
		Base:             r.base(),
		Name:             r.Name,
		Type:             models.AccountType(r.Type),
		Category:         models.AccountCategory(r.Category),
		Note:             r.Note,
		Balance:          r.Balance,
		ClearedBalance:   r.ClearedBalance,
		Archived:         r.Archived,
		LastReconciledAt: r.LastReconciledAt,
		CreatedBy:        r.CreatedBy,
	}
	if r.LastReconciledAmount.Valid {
		amt := r.LastReconciledAmount.Decimal
		a.LastReconciledAmount = &amt
	}
	return a
}

func groupToRecord(scope string, g models.CategoryGroup) categoryGroupRecord {
	return categoryGroupRecord{
		Record:   newRecord(scope, g.Base),
		Name:     g.Name,
		Emoji:    g.Emoji,
		IsIncome: g.IsIncome,
		Position: g.Position,
	}
}

func (r categoryGroupRecord) toModel() models.CategoryGroup {
	return models.CategoryGroup{
		Base:     r.base(),
		Name:     r.Name,
		Emoji:    r.Emoji,
		IsIncome: r.IsIncome,
		Position: r.Position,
	}
}

func categoryToRecord(scope string, c models.Category) (categoryRecord, error) {
	cols, err := encodeTarget(c.Target)
	if err != nil {
		return categoryRecord{}, err
	}
	return categoryRecord{
		Record:              newRecord(scope, c.Base),
		GroupID:             c.GroupID,
		Name:                c.Name,
		Emoji:               c.Emoji,
		Position:            c.Position,
		Allocated:           c.Allocated,
		Spent:               c.Spent,
		TargetKind:          cols.Kind,
		TargetGoal:          cols.Goal,
		TargetDate:          cols.Date,
		TargetIntervalKind:  cols.IntervalKind,
		TargetIntervalCount: cols.IntervalCount,
		TargetAnchor:        cols.Anchor,
	}, nil
}

func (r categoryRecord) toModel() (models.Category, error) {
	target, err := decodeTarget(targetColumns{
		Kind:          r.TargetKind,
		Goal:          r.TargetGoal,
		Date:          r.TargetDate,
		IntervalKind:  r.TargetIntervalKind,
		IntervalCount: r.TargetIntervalCount,
		Anchor:        r.TargetAnchor,
	})
	if err != nil {
		return models.Category{}, err
	}
	return models.Category{
		Base:      r.base(),
		GroupID:   r.GroupID,
		Name:      r.Name,
		Emoji:     r.Emoji,
		Position:  r.Position,
		Allocated: r.Allocated,
		Spent:     r.Spent,
		Target:    target,
	}, nil
}

func transactionToRecord(scope string, t models.Transaction) transactionRecord {
	return transactionRecord{
		Record:      newRecord(scope, t.Base),
		Date:        t.Date,
		Payee:       t.Payee,
		CategoryID:  t.CategoryID,
		Amount:      t.Amount,
		IsIncome:    t.IsIncome,
		Note:        t.Note,
		AccountID:   t.AccountID,
		ToAccountID: t.ToAccountID,
		LinkedID:    t.LinkedID,
		PlannedID:   t.PlannedID,
		Occurrence:  t.Occurrence,
	}
}

func (r transactionRecord) toModel() models.Transaction {
	return models.Transaction{
		Base:        r.base(),
		Date:        r.Date,
		Payee:       r.Payee,
		CategoryID:  r.CategoryID,
		Amount:      r.Amount,
		IsIncome:    r.IsIncome,
		Note:        r.Note,
		AccountID:   r.AccountID,
		ToAccountID: r.ToAccountID,
		LinkedID:    r.LinkedID,
		PlannedID:   r.PlannedID,
		Occurrence:  r.Occurrence,
	}
}

func plannedToRecord(scope string, p models.PlannedTransaction) (plannedRecord, error) {
	kind, n, err := encodeRule(p.Recurrence)
	if err != nil {
		return plannedRecord{}, err
	}
	return plannedRecord{
		Record:            newRecord(scope, p.Base),
		Title:             p.Title,
		Amount:            p.Amount,
		CategoryID:        p.CategoryID,
		AccountID:         p.AccountID,
		ToAccountID:       p.ToAccountID,
		Note:              p.Note,
		IsIncome:          p.IsIncome,
		Type:              string(p.Type),
		RecurrenceKind:    kind,
		RecurrenceCount:   n,
		IsActive:          p.IsActive,
		NextDueDate:       p.NextDueDate,
		LastProcessedDate: p.LastProcessedDate,
	}, nil
}

func (r plannedRecord) toModel() (models.PlannedTransaction, error) {
	rule, err := decodeRule(r.RecurrenceKind, r.RecurrenceCount)
	if err != nil {
		return models.PlannedTransaction{}, err
	}
	return models.PlannedTransaction{
		Base:              r.base(),
		Title:             r.Title,
		Amount:            r.Amount,
		CategoryID:        r.CategoryID,
		AccountID:         r.AccountID,
		ToAccountID:       r.ToAccountID,
		Note:              r.Note,
		IsIncome:          r.IsIncome,
		Type:              models.PlannedType(r.Type),
		Recurrence:        rule,
		IsActive:          r.IsActive,
		NextDueDate:       r.NextDueDate,
		LastProcessedDate: r.LastProcessedDate,
	}, nil
}
