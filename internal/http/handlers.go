package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"budget/internal/core"
	"budget/internal/log"
)

type sessionHandler func(w http.ResponseWriter, r *http.Request, session core.Session)

// requireSession authenticates the request and hands the session to the
// handler. No valid bearer token means 401, always.
func (s *Server) requireSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.verifier.SessionFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r, session)
	}
}

type categoryResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	BudgetLimitCents int64  `json:"budget_limit_cents"`
	Color            string `json:"color"`
	CreatedAt        string `json:"created_at"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:               c.ID,
		Name:             c.Name,
		BudgetLimitCents: c.BudgetLimit.Cents,
		Color:            c.Color,
		CreatedAt:        c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type transactionResponse struct {
	ID          string `json:"id"`
	CategoryID  string `json:"category_id"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	Date        string `json:"date"`
	CreatedAt   string `json:"created_at"`
	ExternalID  string `json:"external_id,omitempty"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		CategoryID:  t.CategoryID,
		AmountCents: t.Amount.Cents,
		Description: t.Description,
		Date:        t.Date.String(),
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		ExternalID:  t.ExternalID,
	}
}

type summaryResponse struct {
	BudgetCents    int64                     `json:"budget_cents"`
	SpentCents     int64                     `json:"spent_cents"`
	RemainingCents int64                     `json:"remaining_cents"`
	Categories     []categorySummaryResponse `json:"categories"`
}

type categorySummaryResponse struct {
	Category       categoryResponse `json:"category"`
	SpentCents     int64            `json:"spent_cents"`
	RemainingCents int64            `json:"remaining_cents"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request, session core.Session) {
	switch r.Method {
	case http.MethodGet:
		s.listCategories(w, r, session)
	case http.MethodPost:
		s.createCategory(w, r, session)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request, session core.Session) {
	categories, err := s.ledger.ListCategories(r.Context(), session)
	if err != nil {
		s.writeServiceError(w, r, err, false)
		return
	}

	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

type createCategoryRequest struct {
	Name             string `json:"name"`
	BudgetLimitCents int64  `json:"budget_limit_cents"`
	Color            string `json:"color"`
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request, session core.Session) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.ledger.CreateCategory(r.Context(), session, core.Category{
		Name:        strings.TrimSpace(req.Name),
		BudgetLimit: core.Money{Cents: req.BudgetLimitCents},
		Color:       strings.TrimSpace(req.Color),
	})
	if err != nil {
		s.writeServiceError(w, r, err, false)
		return
	}

	s.invalidateSummary(session.UserID)
	writeJSON(w, http.StatusCreated, toCategoryResponse(created))
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request, session core.Session) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r, session)
	case http.MethodPost:
		s.createTransaction(w, r, session)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request, session core.Session) {
	transactions, err := s.tx.ListTransactions(r.Context(), session)
	if err != nil {
		s.writeServiceError(w, r, err, false)
		return
	}

	out := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

type createTransactionRequest struct {
	CategoryID  string `json:"category_id"`
	Amount      string `json:"amount"`
	AmountCents *int64 `json:"amount_cents"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// amountCents resolves the two accepted amount encodings: integer cents or a
// decimal string like "12.34".
func (req createTransactionRequest) amountCents() (int64, error) {
	if req.AmountCents != nil {
		return *req.AmountCents, nil
	}
	if strings.TrimSpace(req.Amount) == "" {
		return 0, core.NewValidationError("amount is required")
	}
	return core.ParseDecimalToCents(req.Amount)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request, session core.Session) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cents, err := req.amountCents()
	if err != nil {
		s.writeServiceError(w, r, err, false)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		s.writeServiceError(w, r, err, false)
		return
	}

	created, err := s.tx.CreateTransaction(r.Context(), session, core.Transaction{
		CategoryID:  strings.TrimSpace(req.CategoryID),
		Amount:      core.Money{Cents: cents},
		Description: strings.TrimSpace(req.Description),
		Date:        date,
	})
	if err != nil {
		s.writeServiceError(w, r, err, false)
		return
	}

	s.invalidateSummary(session.UserID)
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, session core.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	if cached, found := s.summaryCache.Get(session.UserID); found {
		s.logger.DebugContext(r.Context(), "Summary cache hit", log.FieldUserID, session.UserID)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	totals, summaries, err := s.tx.Summary(r.Context(), session)
	if err != nil {
		s.writeServiceError(w, r, err, false)
		return
	}

	resp := summaryResponse{
		BudgetCents:    totals.Budget.Cents,
		SpentCents:     totals.Spent.Cents,
		RemainingCents: totals.Remaining.Cents,
		Categories:     make([]categorySummaryResponse, 0, len(summaries)),
	}
	for _, cs := range summaries {
		resp.Categories = append(resp.Categories, categorySummaryResponse{
			Category:       toCategoryResponse(cs.Category),
			SpentCents:     cs.Spent.Cents,
			RemainingCents: cs.Remaining.Cents,
		})
	}

	s.summaryCache.Set(session.UserID, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) invalidateSummary(userID string) {
	s.summaryCache.Delete(userID)
}

func (s *Server) handleCreateLinkToken(w http.ResponseWriter, r *http.Request, session core.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	token, err := s.importer.CreateLinkToken(r.Context(), session)
	if err != nil {
		s.writeServiceError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link_token": token})
}

type exchangeTokenRequest struct {
	PublicToken string `json:"public_token"`
}

func (s *Server) handleExchangeToken(w http.ResponseWriter, r *http.Request, session core.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req exchangeTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	summary, err := s.importer.ExchangeAndSync(r.Context(), session, req.PublicToken)
	if err != nil {
		s.writeServiceError(w, r, err, true)
		return
	}

	s.invalidateSummary(session.UserID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"inserted":   summary.Inserted,
		"duplicates": summary.Duplicates,
		"failed":     summary.Failed,
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request, session core.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	summary, err := s.importer.SyncTransactions(r.Context(), session)
	if err != nil {
		s.writeServiceError(w, r, err, true)
		return
	}

	s.invalidateSummary(session.UserID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"inserted":   summary.Inserted,
		"duplicates": summary.Duplicates,
		"failed":     summary.Failed,
	})
}
