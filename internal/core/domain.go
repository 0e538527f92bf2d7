package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Weekly  RecurrencePeriod = "weekly"
	Monthly RecurrencePeriod = "monthly"
	Yearly  RecurrencePeriod = "yearly"
)

// FallbackCategory labels transactions without a category in aggregated views.
const FallbackCategory = "Outros"

type (
	TransactionType  string
	RecurrencePeriod string

	Date struct {
		time.Time
	}

	// Transaction is the central entity. Amount is always a positive
	// magnitude; the sign is carried by Type.
	Transaction struct {
		ID          string
		Description string
		Amount      decimal.Decimal
		Type        TransactionType
		Date        Date
		UserID      string
		CategoryID  string
		Category    string // resolved category name, empty when uncategorized

		// Installment linkage, immutable after creation. A plain
		// transaction has TotalInstallments 0 or 1 and no parent.
		InstallmentNumber   int
		TotalInstallments   int
		ParentTransactionID string

		// Recurrence applies only to non-installment transactions.
		IsRecurring      bool
		RecurrencePeriod RecurrencePeriod
	}

	Category struct {
		ID     string
		Name   string
		Type   TransactionType
		Icon   string
		UserID string
	}
)

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidType      = errors.New("type must be income or expense")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidPeriod    = errors.New("invalid recurrence period")
	ErrInvalidCount     = errors.New("total installments must be a positive integer")
)

// NewDate creates a Date from year, month, day (UTC, midnight).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// AddMonths advances the date by n calendar months. Month-end overflow rolls
// over into the following month (Jan 31 + 1 month = Mar 2/3), the standard
// time.AddDate normalization.
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.AddDate(0, n, 0)}
}

// String renders the date in ISO form (YYYY-MM-DD).
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// Month returns the calendar month as an int (1-12).
func (d Date) Month() int {
	return int(d.Time.Month())
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	}
	return ErrInvalidType
}

func (p RecurrencePeriod) Validate() error {
	switch p {
	case Weekly, Monthly, Yearly:
		return nil
	}
	return ErrInvalidPeriod
}

func (tx Transaction) Validate() error {
	if len(strings.TrimSpace(tx.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(tx.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !tx.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := tx.Type.Validate(); err != nil {
		return err
	}
	if err := tx.Date.Validate(); err != nil {
		return err
	}
	if tx.IsRecurring {
		if err := tx.RecurrencePeriod.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c Category) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return errors.New("empty category name")
	}
	return c.Type.Validate()
}

// CategoryName returns the resolved category name or the fallback label.
func (tx Transaction) CategoryName() string {
	if tx.Category == "" {
		return FallbackCategory
	}
	return tx.Category
}
