package ledger

import (
	"context"
	"time"

	apperrors "envelope/internal/errors"
	"envelope/internal/models"
	"envelope/internal/money"
)

// CreateAccount adds an account. Its balance is taken as the opening balance
// and the cleared balance starts equal to it.
func (l *Ledger) CreateAccount(ctx context.Context, a models.Account) (models.Account, error) {
	if err := a.Validate(); err != nil {
		return models.Account{}, err
	}
	a.ID = ""
	a.Archived = false
	a.ClearedBalance = a.Balance
	a.LastReconciledAt = nil
	a.LastReconciledAmount = nil

	err := l.mutate(ctx, "create_account", func(m *mutation) error {
		a.EnsureID(m.now)
		track(m, apperrors.EntityAccount, l.accounts, a.ID)
		stored := a
		l.accounts[a.ID] = &stored
		return nil
	})
	if err != nil {
		return models.Account{}, err
	}

	l.log.Infow("Created account", "scope", l.scope, "account_id", a.ID, "type", a.Type)
	return a, nil
}

// ArchiveAccount marks the account archived. Archived accounts keep their
// history and reject further writes.
func (l *Ledger) ArchiveAccount(ctx context.Context, accountID string) (models.Account, error) {
	var out models.Account
	err := l.mutate(ctx, "archive_account", func(m *mutation) error {
		a, err := l.account(accountID)
		if err != nil {
			return err
		}
		m.editAccount(a).Archived = true
		out = *a
		return nil
	})
	return out, err
}

// Reconcile overwrites the cleared balance with a statement balance. It is the
// only operation that sets a balance instead of accumulating into it.
func (l *Ledger) Reconcile(ctx context.Context, accountID string, cleared money.Amount, asOf time.Time) (models.Account, error) {
	if !money.FitsScale(cleared) {
		return models.Account{}, apperrors.WithMessage(apperrors.ErrInvalidAmount, "cleared balance has more than two decimal places")
	}
	var out models.Account
	err := l.mutate(ctx, "reconcile", func(m *mutation) error {
		a, err := l.writableAccount(accountID)
		if err != nil {
			return err
		}
		amount := cleared
		date := asOf

		m.editAccount(a)
		a.ClearedBalance = cleared
		a.LastReconciledAt = &date
		a.LastReconciledAmount = &amount
		out = *a
		return nil
	})
	if err != nil {
		return models.Account{}, err
	}

	l.log.Infow("Reconciled account", "scope", l.scope, "account_id", accountID, "cleared_balance", cleared.String())
	return out, nil
}

// DeleteAccount removes the account together with every transaction that
// touches it and every planned transaction that references it. The effects
// of removed transactions on other accounts and categories are reversed, so
// the deletion fails with ACCOUNT_ARCHIVED when one of those other accounts
// is archived. The deleted account itself may be archived.
func (l *Ledger) DeleteAccount(ctx context.Context, accountID string) error {
	var removedTx, removedPlanned int
	err := l.mutate(ctx, "delete_account", func(m *mutation) error {
		if _, err := l.account(accountID); err != nil {
			return err
		}

		var doomed []*models.Transaction
		for _, tx := range l.transactions {
			if tx.Touches(accountID) {
				doomed = append(doomed, tx)
			}
		}
		for _, tx := range doomed {
			for _, id := range balanceAccounts(tx) {
				if id == accountID {
					continue
				}
				if _, err := l.writableAccount(id); err != nil {
					return err
				}
			}
		}
		for _, tx := range doomed {
			l.reverseTransaction(m, tx)
		}
		removedTx = len(doomed)

		for id, p := range l.planned {
			if p.AccountID == accountID || (p.ToAccountID != nil && *p.ToAccountID == accountID) {
				track(m, apperrors.EntityPlannedTransaction, l.planned, id)
				delete(l.planned, id)
				removedPlanned++
			}
		}

		track(m, apperrors.EntityAccount, l.accounts, accountID)
		delete(l.accounts, accountID)
		return nil
	})
	if err != nil {
		return err
	}

	l.log.Infow("Deleted account",
		"scope", l.scope,
		"account_id", accountID,
		"transactions", removedTx,
		"planned", removedPlanned,
	)
	return nil
}

// balanceAccounts lists the accounts whose balance tx moves.
func balanceAccounts(tx *models.Transaction) []string {
	ids := []string{tx.AccountID}
	if tx.ToAccountID != nil && !tx.IsLinkedLeg() {
		ids = append(ids, *tx.ToAccountID)
	}
	return ids
}

// Accounts returns a snapshot of all accounts ordered by creation.
func (l *Ledger) Accounts() []models.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, *a)
	}
	sortByCreation(out, func(a models.Account) models.Base { return a.Base })
	return out
}

// Account returns a snapshot of one account.
func (l *Ledger) Account(accountID string) (models.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, err := l.account(accountID)
	if err != nil {
		return models.Account{}, err
	}
	return *a, nil
}

// AccountBalance returns the running balance of the account.
func (l *Ledger) AccountBalance(accountID string) (money.Amount, error) {
	a, err := l.Account(accountID)
	if err != nil {
		return money.Zero, err
	}
	return a.Balance, nil
}

// TransactionsForAccount lists transactions touching the account dated within
// [from, to]. A zero bound is open.
func (l *Ledger) TransactionsForAccount(accountID string, from, to time.Time) ([]models.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, err := l.account(accountID); err != nil {
		return nil, err
	}

	out := make([]models.Transaction, 0)
	for _, tx := range l.transactions {
		if !tx.Touches(accountID) {
			continue
		}
		if !from.IsZero() && tx.Date.Before(from) {
			continue
		}
		if !to.IsZero() && tx.Date.After(to) {
			continue
		}
		out = append(out, *tx)
	}
	sortTransactions(out)
	return out, nil
}
