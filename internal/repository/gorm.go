package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "envelope/internal/errors"
	"envelope/internal/models"
)

// GormRepository stores entities in a SQL database through GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a repository backed by db.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) LoadAccounts(ctx context.Context, scope string) ([]models.Account, error) {
	var recs []accountRecord
	if err := r.db.WithContext(ctx).Where("scope_id = ?", scope).Order("created_at, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	out := make([]models.Account, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}

func (r *GormRepository) LoadCategoryGroups(ctx context.Context, scope string) ([]models.CategoryGroup, error) {
	var groupRecs []categoryGroupRecord
	if err := r.db.WithContext(ctx).Where("scope_id = ?", scope).Order("position, created_at, id").Find(&groupRecs).Error; err != nil {
		return nil, fmt.Errorf("load category groups: %w", err)
	}
	var catRecs []categoryRecord
	if err := r.db.WithContext(ctx).Where("scope_id = ?", scope).Order("position, created_at, id").Find(&catRecs).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	byGroup := make(map[string][]models.Category, len(groupRecs))
	for _, rec := range catRecs {
		cat, err := rec.toModel()
		if err != nil {
			return nil, fmt.Errorf("decode category %s: %w", rec.ID, err)
		}
		byGroup[cat.GroupID] = append(byGroup[cat.GroupID], cat)
	}

	out := make([]models.CategoryGroup, 0, len(groupRecs))
	for _, rec := range groupRecs {
		g := rec.toModel()
		g.Categories = byGroup[g.ID]
		out = append(out, g)
	}
	return out, nil
}

func (r *GormRepository) LoadTransactions(ctx context.Context, scope string) ([]models.Transaction, error) {
	var recs []transactionRecord
	if err := r.db.WithContext(ctx).Where("scope_id = ?", scope).Order("date, created_at, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	out := make([]models.Transaction, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}

func (r *GormRepository) LoadPlannedTransactions(ctx context.Context, scope string) ([]models.PlannedTransaction, error) {
	var recs []plannedRecord
	if err := r.db.WithContext(ctx).Where("scope_id = ?", scope).Order("next_due_date, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load planned transactions: %w", err)
	}
	out := make([]models.PlannedTransaction, 0, len(recs))
	for _, rec := range recs {
		p, err := rec.toModel()
		if err != nil {
			return nil, fmt.Errorf("decode planned transaction %s: %w", rec.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Apply writes every change in one database transaction.
func (r *GormRepository) Apply(ctx context.Context, scope string, changes *ChangeSet) error {
	if changes == nil || changes.Len() == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ch := range changes.Changes() {
			var err error
			switch ch.Op {
			case OpSave:
				err = saveEntity(tx, scope, ch)
			case OpDelete:
				err = deleteEntity(tx, scope, ch)
			}
			if err != nil {
				return fmt.Errorf("%s %s: %w", ch.Kind, ch.ID, err)
			}
		}
		return nil
	})
}

func (r *GormRepository) PlannedScopes(ctx context.Context) ([]string, error) {
	var scopes []string
	err := r.db.WithContext(ctx).Model(&plannedRecord{}).
		Where("is_active = ?", true).
		Distinct().Order("scope_id").
		Pluck("scope_id", &scopes).Error
	if err != nil {
		return nil, fmt.Errorf("load planned scopes: %w", err)
	}
	return scopes, nil
}

func upsert(tx *gorm.DB, value any) error {
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(value).Error
}

func saveEntity(tx *gorm.DB, scope string, ch Change) error {
	switch e := ch.Entity.(type) {
	case models.Account:
		rec := accountToRecord(scope, e)
		return upsert(tx, &rec)
	case models.CategoryGroup:
		rec := groupToRecord(scope, e)
		return upsert(tx, &rec)
	case models.Category:
		rec, err := categoryToRecord(scope, e)
		if err != nil {
			return err
		}
		return upsert(tx, &rec)
	case models.Transaction:
		rec := transactionToRecord(scope, e)
		return upsert(tx, &rec)
	case models.PlannedTransaction:
		rec, err := plannedToRecord(scope, e)
		if err != nil {
			return err
		}
		return upsert(tx, &rec)
	default:
		return fmt.Errorf("unsupported entity %T", ch.Entity)
	}
}

func deleteEntity(tx *gorm.DB, scope string, ch Change) error {
	var model any
	switch ch.Kind {
	case apperrors.EntityAccount:
		model = &accountRecord{}
	case apperrors.EntityCategoryGroup:
		model = &categoryGroupRecord{}
	case apperrors.EntityCategory:
		model = &categoryRecord{}
	case apperrors.EntityTransaction:
		model = &transactionRecord{}
	case apperrors.EntityPlannedTransaction:
		model = &plannedRecord{}
	default:
		return fmt.Errorf("unsupported entity kind %q", ch.Kind)
	}
	return tx.Where("id = ? AND scope_id = ?", ch.ID, scope).Delete(model).Error
}
