package services

import (
	"context"
	"time"

	"envelope/internal/ledger"
	"envelope/internal/models"
	"envelope/internal/money"
)

// categoryService handles category groups, envelopes and targets.
type categoryService struct {
	ledgers *ledger.Registry
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(ledgers *ledger.Registry) CategoryServicer {
	return &categoryService{ledgers: ledgers}
}

func (s *categoryService) CreateGroup(ctx context.Context, scope, name, emoji string, isIncome bool) (*models.CategoryGroup, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	group, err := l.CreateCategoryGroup(ctx, models.CategoryGroup{Name: name, Emoji: emoji, IsIncome: isIncome})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetGroups returns every group in display order with its categories.
func (s *categoryService) GetGroups(ctx context.Context, scope string) ([]models.CategoryGroup, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	return l.CategoryGroups(), nil
}

func (s *categoryService) CreateCategory(ctx context.Context, scope, groupID, name, emoji string) (*models.Category, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	category, err := l.CreateCategory(ctx, models.Category{GroupID: groupID, Name: name, Emoji: emoji})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *categoryService) GetCategoryByID(ctx context.Context, scope, categoryID string) (*models.Category, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	category, err := l.Category(categoryID)
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// Allocate assigns more money to an envelope.
func (s *categoryService) Allocate(ctx context.Context, scope, categoryID string, amount money.Amount) (*models.Category, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	category, err := l.Allocate(ctx, categoryID, amount)
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// SetTarget replaces the category's target.
func (s *categoryService) SetTarget(ctx context.Context, scope, categoryID string, target models.Target) (*models.Category, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	category, err := l.SetTarget(ctx, categoryID, target)
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *categoryService) ClearTarget(ctx context.Context, scope, categoryID string) (*models.Category, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	category, err := l.ClearTarget(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *categoryService) GetTargetProgress(ctx context.Context, scope, categoryID string, now time.Time) (*ledger.TargetProgress, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	progress, err := l.TargetProgress(categoryID, now)
	if err != nil {
		return nil, err
	}
	return &progress, nil
}
