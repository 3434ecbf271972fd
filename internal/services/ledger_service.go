package services

import (
	"context"
	"fmt"

	"budget/internal/amqp"
	"budget/internal/backend"
	"budget/internal/core"
	"budget/internal/log"
)

// LedgerService owns the per-user category ledger: listing, creation and
// first-login seeding of the default category set.
type LedgerService struct {
	repo       backend.Repository
	amqpClient *amqp.Client
	logger     *log.Logger
}

func NewLedgerService(repo backend.Repository, amqpClient *amqp.Client, logger *log.Logger) *LedgerService {
	return &LedgerService{
		repo:       repo,
		amqpClient: amqpClient,
		logger:     logger.WithComponent(log.ComponentLedger),
	}
}

// ListCategories returns the user's categories, seeding the defaults first
// when the ledger is empty.
func (s *LedgerService) ListCategories(ctx context.Context, session core.Session) ([]core.Category, error) {
	categories, err := s.repo.ListCategories(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if len(categories) > 0 {
		return categories, nil
	}

	if err := s.EnsureDefaultCategories(ctx, session); err != nil {
		return nil, err
	}

	categories, err = s.repo.ListCategories(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("list categories after seed: %w", err)
	}
	return categories, nil
}

// EnsureDefaultCategories inserts the default set. Idempotent: concurrent
// first requests race on the (user_id, name) unique constraint, never on
// duplicate rows.
func (s *LedgerService) EnsureDefaultCategories(ctx context.Context, session core.Session) error {
	inserted, err := s.repo.SeedDefaultCategories(ctx, session.UserID, core.DefaultCategorySeeds())
	if err != nil {
		return fmt.Errorf("seed default categories: %w", err)
	}
	if inserted > 0 {
		s.logger.InfoContext(ctx, "Seeded default categories",
			log.FieldUserID, session.UserID, log.FieldCount, inserted)
	}
	return nil
}

// CreateCategory validates and persists a new category for the user.
func (s *LedgerService) CreateCategory(ctx context.Context, session core.Session, c core.Category) (core.Category, error) {
	c.UserID = session.UserID
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	created, err := s.repo.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	s.publishEvent(ctx, amqp.EventCategoryCreated, session.UserID, 1)
	return created, nil
}

// GetCategory fetches one category, enforcing ownership via the user ID.
func (s *LedgerService) GetCategory(ctx context.Context, session core.Session, id string) (core.Category, error) {
	return s.repo.GetCategory(ctx, session.UserID, id)
}

func (s *LedgerService) publishEvent(ctx context.Context, eventType, userID string, count int) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishEvent(ctx, amqp.NewEvent(eventType, userID, count)); err != nil {
		// Events are best-effort, the write already succeeded.
		s.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", eventType, log.FieldError, err)
	}
}
