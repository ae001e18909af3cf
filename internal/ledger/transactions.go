package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	apperrors "envelope/internal/errors"
	"envelope/internal/models"
	"envelope/internal/money"
)

// AddTransaction records a transaction and applies it to its account, its
// transfer counterpart and its category in one step.
func (l *Ledger) AddTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if tx.LinkedID != nil {
		return models.Transaction{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "linked transfer legs are created with CreateTransfer")
	}

	err := l.mutate(ctx, "add_transaction", func(m *mutation) error {
		return l.applyTransaction(m, &tx)
	})
	if err != nil {
		return models.Transaction{}, err
	}

	l.log.Infow("Recorded transaction",
		"scope", l.scope,
		"transaction_id", tx.ID,
		"account_id", tx.AccountID,
		"amount", tx.SignedAmount().String(),
		"transfer", tx.IsTransfer(),
	)
	return tx, nil
}

// CreateTransfer moves amount from one account to another as two linked
// transactions: a withdrawal on the source and a deposit on the destination.
// It returns the ids of the withdrawal and the deposit.
func (l *Ledger) CreateTransfer(ctx context.Context, fromID, toID string, amount money.Amount, date time.Time, note string) (string, string, error) {
	if !money.IsValidMagnitude(amount) {
		return "", "", apperrors.WithMessage(apperrors.ErrInvalidAmount, "transfer amount must be greater than zero with at most two decimal places")
	}
	if fromID == toID {
		return "", "", apperrors.ErrSameAccountTransfer
	}

	var withdrawal, deposit models.Transaction
	err := l.mutate(ctx, "create_transfer", func(m *mutation) error {
		from, err := l.writableAccount(fromID)
		if err != nil {
			return err
		}
		to, err := l.writableAccount(toID)
		if err != nil {
			return err
		}

		withdrawal = models.Transaction{
			Date:        date,
			Payee:       fmt.Sprintf("Transfer to %s", to.Name),
			Amount:      amount,
			Note:        note,
			AccountID:   fromID,
			ToAccountID: &toID,
		}
		deposit = models.Transaction{
			Date:        date,
			Payee:       fmt.Sprintf("Transfer from %s", from.Name),
			Amount:      amount,
			IsIncome:    true,
			Note:        note,
			AccountID:   toID,
			ToAccountID: &fromID,
		}
		withdrawal.EnsureID(m.now)
		deposit.EnsureID(m.now)
		withdrawal.LinkedID = &deposit.ID
		deposit.LinkedID = &withdrawal.ID

		if err := l.applyTransaction(m, &withdrawal); err != nil {
			return err
		}
		return l.applyTransaction(m, &deposit)
	})
	if err != nil {
		return "", "", err
	}

	l.log.Infow("Recorded transfer",
		"scope", l.scope,
		"from_account_id", fromID,
		"to_account_id", toID,
		"amount", amount.String(),
	)
	return withdrawal.ID, deposit.ID, nil
}

// DeleteTransaction removes a transaction and reverses its effects. Deleting
// one leg of a transfer pair removes both legs.
func (l *Ledger) DeleteTransaction(ctx context.Context, transactionID string) error {
	return l.mutate(ctx, "delete_transaction", func(m *mutation) error {
		tx, ok := l.transactions[transactionID]
		if !ok {
			return apperrors.NotFound(apperrors.EntityTransaction, transactionID)
		}

		legs := []*models.Transaction{tx}
		if tx.LinkedID != nil {
			if partner, ok := l.transactions[*tx.LinkedID]; ok {
				legs = append(legs, partner)
			}
		}

		for _, leg := range legs {
			for _, id := range balanceAccounts(leg) {
				if _, err := l.writableAccount(id); err != nil {
					return err
				}
			}
		}
		for _, leg := range legs {
			l.reverseTransaction(m, leg)
		}
		return nil
	})
}

// Transaction returns a snapshot of one transaction.
func (l *Ledger) Transaction(transactionID string) (models.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tx, ok := l.transactions[transactionID]
	if !ok {
		return models.Transaction{}, apperrors.NotFound(apperrors.EntityTransaction, transactionID)
	}
	return *tx, nil
}

// applyTransaction validates tx against the current state and applies it.
// Nothing is changed when it returns an error.
func (l *Ledger) applyTransaction(m *mutation, tx *models.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	account, err := l.writableAccount(tx.AccountID)
	if err != nil {
		return err
	}
	var counterpart *models.Account
	if tx.IsTransfer() {
		if counterpart, err = l.writableAccount(*tx.ToAccountID); err != nil {
			return err
		}
	}
	var category *models.Category
	if tx.CategoryID != nil {
		if category, err = l.category(*tx.CategoryID); err != nil {
			return err
		}
	}
	key, keyed := occurrenceKey(tx)
	if keyed {
		if _, dup := l.applied[key]; dup {
			return apperrors.WithMessage(apperrors.ErrDuplicateApplication,
				fmt.Sprintf("occurrence %s of planned transaction %s is already recorded", key.Due.Format(time.DateOnly), key.PlannedID))
		}
	}

	tx.EnsureID(m.now)
	if _, exists := l.transactions[tx.ID]; exists {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("transaction %s already exists", tx.ID))
	}

	delta := tx.SignedAmount()
	m.editAccount(account).Apply(delta)
	if counterpart != nil && !tx.IsLinkedLeg() {
		m.editAccount(counterpart).Apply(delta.Neg())
	}
	if category != nil && l.spendsFrom(tx, category) {
		c := m.editCategory(category)
		c.Spent = c.Spent.Add(tx.Amount)
	}

	track(m, apperrors.EntityTransaction, l.transactions, tx.ID)
	stored := *tx
	l.transactions[tx.ID] = &stored
	if keyed {
		l.applied[key] = tx.ID
		m.onUndo(func() { delete(l.applied, key) })
	}
	return nil
}

// reverseTransaction undoes the effects of a stored transaction and removes
// it. Accounts or categories that no longer exist are skipped.
func (l *Ledger) reverseTransaction(m *mutation, tx *models.Transaction) {
	if _, ok := l.transactions[tx.ID]; !ok {
		return
	}

	delta := tx.SignedAmount()
	if a, ok := l.accounts[tx.AccountID]; ok {
		m.editAccount(a).Apply(delta.Neg())
	}
	if tx.ToAccountID != nil && !tx.IsLinkedLeg() {
		if a, ok := l.accounts[*tx.ToAccountID]; ok {
			m.editAccount(a).Apply(delta)
		}
	}
	if tx.CategoryID != nil {
		if c, ok := l.categories[*tx.CategoryID]; ok && l.spendsFrom(tx, c) {
			c = m.editCategory(c)
			c.Spent = c.Spent.Sub(tx.Amount)
		}
	}

	track(m, apperrors.EntityTransaction, l.transactions, tx.ID)
	delete(l.transactions, tx.ID)
	if key, ok := occurrenceKey(tx); ok && l.applied[key] == tx.ID {
		delete(l.applied, key)
		m.onUndo(func() { l.applied[key] = tx.ID })
	}
}

// spendsFrom reports whether tx adds to the category's Spent. Categories of
// the income group never accumulate Spent.
func (l *Ledger) spendsFrom(tx *models.Transaction, c *models.Category) bool {
	if !tx.CountsAsSpending() {
		return false
	}
	g, ok := l.groups[c.GroupID]
	return !ok || !g.IsIncome
}

func sortByCreation[T any](items []T, base func(T) models.Base) {
	sort.Slice(items, func(i, j int) bool {
		bi, bj := base(items[i]), base(items[j])
		if !bi.CreatedAt.Equal(bj.CreatedAt) {
			return bi.CreatedAt.Before(bj.CreatedAt)
		}
		return bi.ID < bj.ID
	})
}
