package services

import (
	"context"
	"errors"
	"fmt"

	"budget/internal/amqp"
	"budget/internal/backend"
	"budget/internal/core"
	"budget/internal/log"
)

// TransactionService owns manual transaction entry, listing and the
// budget summary over the user's ledger.
type TransactionService struct {
	repo       backend.Repository
	amqpClient *amqp.Client
	logger     *log.Logger
}

func NewTransactionService(repo backend.Repository, amqpClient *amqp.Client, logger *log.Logger) *TransactionService {
	return &TransactionService{
		repo:       repo,
		amqpClient: amqpClient,
		logger:     logger.WithComponent(log.ComponentTx),
	}
}

// ListTransactions returns the user's transactions, newest first.
func (s *TransactionService) ListTransactions(ctx context.Context, session core.Session) ([]core.Transaction, error) {
	transactions, err := s.repo.ListTransactions(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, nil
}

// CreateTransaction validates and persists a manual transaction. The target
// category must exist and belong to the user.
func (s *TransactionService) CreateTransaction(ctx context.Context, session core.Session, t core.Transaction) (core.Transaction, error) {
	t.UserID = session.UserID
	t.ExternalID = ""
	t.ExternalCategoryHint = ""
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if _, err := s.repo.GetCategory(ctx, session.UserID, t.CategoryID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Transaction{}, core.NewValidationError("category %s not found", t.CategoryID)
		}
		return core.Transaction{}, fmt.Errorf("check category: %w", err)
	}

	created, err := s.repo.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created",
		log.FieldUserID, session.UserID,
		log.FieldCategoryID, created.CategoryID,
		log.FieldAmountCents, created.Amount.Cents)
	s.publishEvent(ctx, amqp.EventTransactionCreated, session.UserID, 1)
	return created, nil
}

// Summary computes overall and per-category budget totals from the user's
// full ledger.
func (s *TransactionService) Summary(ctx context.Context, session core.Session) (core.Totals, []core.CategorySummary, error) {
	categories, err := s.repo.ListCategories(ctx, session.UserID)
	if err != nil {
		return core.Totals{}, nil, fmt.Errorf("list categories: %w", err)
	}
	transactions, err := s.repo.ListTransactions(ctx, session.UserID)
	if err != nil {
		return core.Totals{}, nil, fmt.Errorf("list transactions: %w", err)
	}

	totals := core.ComputeTotals(categories, transactions)
	summaries := core.CategorySummaries(categories, transactions)
	return totals, summaries, nil
}

func (s *TransactionService) publishEvent(ctx context.Context, eventType, userID string, count int) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishEvent(ctx, amqp.NewEvent(eventType, userID, count)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", eventType, log.FieldError, err)
	}
}
