package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Draft is a transaction request before expansion and persistence.
type Draft struct {
	Description       string
	Amount            decimal.Decimal
	Type              TransactionType
	CategoryID        string
	Date              Date
	UserID            string
	TotalInstallments int
	IsRecurring       bool
	RecurrencePeriod  RecurrencePeriod
}

// Validate checks the draft field constraints before expansion.
func (d Draft) Validate() error {
	if d.TotalInstallments < 0 {
		return ErrInvalidCount
	}
	tx := Transaction{
		Description: d.Description,
		Amount:      d.Amount,
		Type:        d.Type,
		Date:        d.Date,
		UserID:      d.UserID,
		IsRecurring: d.IsRecurring && d.installmentCount() == 1,
	}
	if tx.IsRecurring {
		tx.RecurrencePeriod = d.recurrencePeriod()
	}
	return tx.Validate()
}

// recurrencePeriod returns the draft's period, defaulting to monthly when a
// recurring draft leaves it unset.
func (d Draft) recurrencePeriod() RecurrencePeriod {
	if d.RecurrencePeriod == "" {
		return Monthly
	}
	return d.RecurrencePeriod
}

func (d Draft) installmentCount() int {
	if d.TotalInstallments > 1 {
		return d.TotalInstallments
	}
	return 1
}

// ExpandInstallments turns a draft into its persist-ready records.
//
// With an effective installment count of 1 it returns the draft as a single
// record with recurrence flags intact. With a count N > 1 it returns N
// records: the amount split evenly (cent residual folded into the last
// record), descriptions suffixed with " (i/N)", dates advanced one calendar
// month per installment and installment numbers running 1..N. Recurrence
// flags are dropped on the installment path; installments and recurrence are
// distinct features and never combine.
//
// Records carry no identifiers or parent linkage yet: the parent id only
// exists after the first record is persisted.
func ExpandInstallments(d Draft) []Transaction {
	n := d.installmentCount()
	if n == 1 {
		tx := Transaction{
			Description: d.Description,
			Amount:      d.Amount,
			Type:        d.Type,
			CategoryID:  d.CategoryID,
			Date:        d.Date,
			UserID:      d.UserID,
			IsRecurring: d.IsRecurring,
		}
		if d.IsRecurring {
			tx.RecurrencePeriod = d.recurrencePeriod()
		}
		return []Transaction{tx}
	}

	parts := SplitEven(d.Amount, n)
	records := make([]Transaction, n)
	for i := 0; i < n; i++ {
		records[i] = Transaction{
			Description:       fmt.Sprintf("%s (%d/%d)", d.Description, i+1, n),
			Amount:            parts[i],
			Type:              d.Type,
			CategoryID:        d.CategoryID,
			Date:              d.Date.AddMonths(i),
			UserID:            d.UserID,
			InstallmentNumber: i + 1,
			TotalInstallments: n,
		}
	}
	return records
}
