package services

import (
	"context"
	"time"

	"envelope/internal/ledger"
	"envelope/internal/models"
	"envelope/internal/money"
)

// accountService handles account-related business logic.
type accountService struct {
	ledgers *ledger.Registry
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(ledgers *ledger.Registry) AccountServicer {
	return &accountService{ledgers: ledgers}
}

// CreateAccount opens an account with its opening balance.
func (s *accountService) CreateAccount(ctx context.Context, scope string, in CreateAccountInput) (*models.Account, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	account, err := l.CreateAccount(ctx, models.Account{
		Name:      in.Name,
		Type:      in.Type,
		Category:  in.Category,
		Note:      in.Note,
		Balance:   in.OpeningBalance,
		CreatedBy: in.CreatedBy,
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetAccounts lists the accounts of a budget, archived ones only on request.
func (s *accountService) GetAccounts(ctx context.Context, scope string, includeArchived bool) ([]models.Account, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	all := l.Accounts()
	if includeArchived {
		return all, nil
	}
	out := make([]models.Account, 0, len(all))
	for _, a := range all {
		if !a.Archived {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *accountService) GetAccountByID(ctx context.Context, scope, accountID string) (*models.Account, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	account, err := l.Account(accountID)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *accountService) ReconcileAccount(ctx context.Context, scope, accountID string, cleared money.Amount, asOf time.Time) (*models.Account, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	account, err := l.Reconcile(ctx, accountID, cleared, asOf)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *accountService) ArchiveAccount(ctx context.Context, scope, accountID string) (*models.Account, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	account, err := l.ArchiveAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *accountService) DeleteAccount(ctx context.Context, scope, accountID string) error {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return err
	}
	return l.DeleteAccount(ctx, accountID)
}
