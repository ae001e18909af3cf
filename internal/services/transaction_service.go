package services

import (
	"context"
	"time"

	"envelope/internal/ledger"
	"envelope/internal/models"
	"envelope/internal/money"
	"envelope/internal/pagination"
)

// transactionService handles transactions and transfers.
type transactionService struct {
	ledgers *ledger.Registry
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(ledgers *ledger.Registry) TransactionServicer {
	return &transactionService{ledgers: ledgers}
}

// CreateTransaction records an income or expense.
func (s *transactionService) CreateTransaction(ctx context.Context, scope string, tx models.Transaction) (*models.Transaction, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	created, err := l.AddTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateTransfer moves money between two accounts and returns both legs.
func (s *transactionService) CreateTransfer(ctx context.Context, scope, fromAccountID, toAccountID string, amount money.Amount, date time.Time, note string) (*Transfer, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	withdrawalID, depositID, err := l.CreateTransfer(ctx, fromAccountID, toAccountID, amount, date, note)
	if err != nil {
		return nil, err
	}
	withdrawal, err := l.Transaction(withdrawalID)
	if err != nil {
		return nil, err
	}
	deposit, err := l.Transaction(depositID)
	if err != nil {
		return nil, err
	}
	return &Transfer{Withdrawal: withdrawal, Deposit: deposit}, nil
}

// GetAccountTransactions lists an account's transactions, newest first.
func (s *transactionService) GetAccountTransactions(ctx context.Context, scope, accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}

	var from, to time.Time
	if filter.FromDate != nil {
		from = *filter.FromDate
	}
	if filter.ToDate != nil {
		to = *filter.ToDate
	}
	txs, err := l.TransactionsForAccount(accountID, from, to)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.Transaction, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		if filter.CategoryID != nil && (tx.CategoryID == nil || *tx.CategoryID != *filter.CategoryID) {
			continue
		}
		if filter.IsIncome != nil && tx.IsIncome != *filter.IsIncome {
			continue
		}
		filtered = append(filtered, tx)
	}

	resp := pagination.Slice(filtered, page)
	return &resp, nil
}

func (s *transactionService) GetTransactionByID(ctx context.Context, scope, transactionID string) (*models.Transaction, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	tx, err := l.Transaction(transactionID)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// DeleteTransaction reverses a transaction. Deleting either leg of a transfer
// removes both.
func (s *transactionService) DeleteTransaction(ctx context.Context, scope, transactionID string) error {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return err
	}
	return l.DeleteTransaction(ctx, transactionID)
}
