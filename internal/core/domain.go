package core

import (
	"strings"
	"time"
)

type (
	// Date is a calendar date with no time component. The zero value is invalid.
	Date struct {
		time.Time
	}

	// Money is a signed monetary amount in cents.
	// Convention: positive cents are an expense, negative cents a refund/credit.
	Money struct {
		Cents int64
	}

	// Session identifies the authenticated user for a single request.
	// It is built once at the HTTP boundary and passed explicitly everywhere.
	Session struct {
		UserID string
		Email  string
	}

	// Category is a user-owned budget bucket with a spending limit.
	Category struct {
		ID          string
		UserID      string
		Name        string
		BudgetLimit Money
		Color       string
		CreatedAt   time.Time
	}

	// Transaction is a single dated monetary movement attributed to one category.
	// ExternalID and ExternalCategoryHint are set only on imported transactions.
	Transaction struct {
		ID                   string
		UserID               string
		CategoryID           string
		Amount               Money
		Description          string
		Date                 Date
		CreatedAt            time.Time
		ExternalID           string
		ExternalCategoryHint string
	}
)

const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, NewValidationError("invalid date %q: must be YYYY-MM-DD", s)
	}
	return Date{Time: t}, nil
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return NewValidationError("date is required")
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

func (s Session) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return ErrNotAuthenticated
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("category name is required")
	}
	if len(c.Name) > 100 {
		return NewValidationError("category name too long (max 100 characters)")
	}
	if c.BudgetLimit.Cents < 0 {
		return NewValidationError("budget limit must be non-negative")
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.CategoryID) == "" {
		return NewValidationError("transaction category is required")
	}
	if len(t.Description) > 200 {
		return NewValidationError("description too long (max 200 characters)")
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return nil
}

// IsImported reports whether the transaction came from the bank aggregator.
func (t Transaction) IsImported() bool {
	return t.ExternalID != ""
}
