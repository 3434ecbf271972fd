package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"budget/internal/aggregator"
	"budget/internal/amqp"
	"budget/internal/backend"
	"budget/internal/core"
	"budget/internal/log"
)

// syncWindowDays is how far back a sync reaches, inclusive of today.
const syncWindowDays = 30

// BankAggregator is the slice of the aggregator API the import flow needs.
type BankAggregator interface {
	CreateLinkToken(ctx context.Context, userID string) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (aggregator.TokenExchange, error)
	GetTransactions(ctx context.Context, accessToken string, start, end core.Date) ([]aggregator.ExternalTransaction, error)
}

// ImportService drives the bank linking and import flow: link-token issuance,
// public-token exchange and the windowed transaction sync.
type ImportService struct {
	repo       backend.Repository
	ledger     *LedgerService
	agg        BankAggregator
	resolver   CategoryResolver
	amqpClient *amqp.Client
	logger     *log.Logger

	now func() time.Time
}

func NewImportService(repo backend.Repository, ledger *LedgerService, agg BankAggregator, resolver CategoryResolver, amqpClient *amqp.Client, logger *log.Logger) *ImportService {
	return &ImportService{
		repo:       repo,
		ledger:     ledger,
		agg:        agg,
		resolver:   resolver,
		amqpClient: amqpClient,
		logger:     logger.WithComponent(log.ComponentImport),
		now:        time.Now,
	}
}

// CreateLinkToken requests a fresh link token for the user. Tokens are
// short-lived and never stored.
func (s *ImportService) CreateLinkToken(ctx context.Context, session core.Session) (string, error) {
	token, err := s.agg.CreateLinkToken(ctx, session.UserID)
	if err != nil {
		return "", fmt.Errorf("create link token: %w", err)
	}
	return token, nil
}

// ExchangeAndSync exchanges a public token for a durable access token,
// persists it, then runs an initial sync. The token is saved before any
// fetch: a failed sync leaves the link intact and retryable.
func (s *ImportService) ExchangeAndSync(ctx context.Context, session core.Session, publicToken string) (core.ImportSummary, error) {
	if strings.TrimSpace(publicToken) == "" {
		return core.ImportSummary{}, core.NewValidationError("public token is required")
	}

	exchange, err := s.agg.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return core.ImportSummary{}, fmt.Errorf("exchange public token: %w", err)
	}

	link := core.BankLink{
		UserID:      session.UserID,
		AccessToken: exchange.AccessToken,
		ItemID:      exchange.ItemID,
		LinkedAt:    s.now(),
	}
	if err := s.repo.SaveAccessToken(ctx, link); err != nil {
		return core.ImportSummary{}, fmt.Errorf("save access token: %w", err)
	}
	s.logger.InfoContext(ctx, "Bank account linked", log.FieldUserID, session.UserID)

	return s.sync(ctx, session, link.AccessToken)
}

// SyncTransactions re-runs the windowed import with the stored access token.
// Returns core.ErrNoBankLink when the user never linked an account.
func (s *ImportService) SyncTransactions(ctx context.Context, session core.Session) (core.ImportSummary, error) {
	link, err := s.repo.GetAccessToken(ctx, session.UserID)
	if err != nil {
		return core.ImportSummary{}, err
	}
	return s.sync(ctx, session, link.AccessToken)
}

func (s *ImportService) sync(ctx context.Context, session core.Session, accessToken string) (core.ImportSummary, error) {
	end := core.Date{Time: s.now()}
	start := core.Date{Time: end.AddDate(0, 0, -syncWindowDays)}

	external, err := s.agg.GetTransactions(ctx, accessToken, start, end)
	if err != nil {
		return core.ImportSummary{}, fmt.Errorf("fetch transactions: %w", err)
	}
	if len(external) == 0 {
		return core.ImportSummary{}, nil
	}

	// Listing through the ledger seeds the defaults on first use, so the
	// fallback category always exists by the time we resolve hints.
	categories, err := s.ledger.ListCategories(ctx, session)
	if err != nil {
		return core.ImportSummary{}, err
	}
	byName := make(map[string]core.Category, len(categories))
	for _, c := range categories {
		byName[strings.ToLower(c.Name)] = c
	}

	var (
		batch  []core.Transaction
		failed []core.ImportResult
	)
	for _, e := range external {
		t, err := s.toTransaction(session.UserID, e, byName)
		if err != nil {
			failed = append(failed, core.ImportResult{
				ExternalID: e.TransactionID,
				Status:     core.ImportFailed,
				Err:        err,
			})
			continue
		}
		batch = append(batch, t)
	}

	results, err := s.repo.BulkImport(ctx, batch)
	if err != nil {
		return core.ImportSummary{}, fmt.Errorf("bulk import: %w", err)
	}

	summary := core.Summarize(append(results, failed...))
	s.logger.InfoContext(ctx, "Sync completed",
		log.FieldUserID, session.UserID,
		"inserted", summary.Inserted,
		"duplicates", summary.Duplicates,
		"failed", summary.Failed)

	if summary.Inserted > 0 {
		s.publishEvent(ctx, session.UserID, summary.Inserted)
	}
	return summary, nil
}

func (s *ImportService) toTransaction(userID string, e aggregator.ExternalTransaction, byName map[string]core.Category) (core.Transaction, error) {
	date, err := core.ParseDate(e.Date)
	if err != nil {
		return core.Transaction{}, err
	}

	hint := ""
	if len(e.Category) > 0 {
		hint = e.Category[0]
	}
	name := s.resolver.Resolve(hint)
	category, ok := byName[strings.ToLower(name)]
	if !ok {
		// Mapping table points at a category the user renamed or deleted.
		category, ok = byName[strings.ToLower(core.FallbackCategoryName)]
		if !ok {
			return core.Transaction{}, fmt.Errorf("no category for hint %q", hint)
		}
	}

	return core.Transaction{
		UserID:               userID,
		CategoryID:           category.ID,
		Amount:               core.Money{Cents: core.DollarsToCents(e.Amount)},
		Description:          e.Name,
		Date:                 date,
		ExternalID:           e.TransactionID,
		ExternalCategoryHint: hint,
	}, nil
}

func (s *ImportService) publishEvent(ctx context.Context, userID string, count int) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishEvent(ctx, amqp.NewEvent(amqp.EventTransactionsImported, userID, count)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", amqp.EventTransactionsImported, log.FieldError, err)
	}
}
