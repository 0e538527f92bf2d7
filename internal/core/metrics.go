package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Aggregation results for the dashboard and chart views. All computations in
// this file are pure: they never mutate the input slice and depend only on
// their arguments, so callers are free to recompute them on every request or
// memoize them per filter.

type (
	// MonthBucket holds income and expense sums for one calendar month.
	MonthBucket struct {
		Month   int
		Year    int
		Income  decimal.Decimal
		Expense decimal.Decimal
	}

	// CashFlowPoint is one month of the cumulative running balance.
	CashFlowPoint struct {
		Month   int
		Income  decimal.Decimal
		Expense decimal.Decimal
		Balance decimal.Decimal
	}

	// CategorySum is an amount aggregated under a label.
	CategorySum struct {
		Name  string
		Total decimal.Decimal
	}
)

// Labels for the recurring-vs-one-time split.
const (
	RecurringLabel = "recurring"
	OneTimeLabel   = "one_time"
)

// FilterMonth keeps transactions dated in the given month and year.
func FilterMonth(list []Transaction, month, year int) []Transaction {
	var out []Transaction
	for _, tx := range list {
		if tx.Date.Month() == month && tx.Date.Year() == year {
			out = append(out, tx)
		}
	}
	return out
}

// FilterYear keeps transactions dated in the given year.
func FilterYear(list []Transaction, year int) []Transaction {
	var out []Transaction
	for _, tx := range list {
		if tx.Date.Year() == year {
			out = append(out, tx)
		}
	}
	return out
}

// SumByType adds the amounts of transactions of the given type.
func SumByType(list []Transaction, typ TransactionType) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range list {
		if tx.Type == typ {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum
}

// BurnRate is the average daily expense for the elapsed portion of a month:
// the month's expense total divided by the days elapsed. Zero when no days
// have elapsed.
func BurnRate(list []Transaction, month, year, dayOfMonth int) decimal.Decimal {
	if dayOfMonth <= 0 {
		return decimal.Zero
	}
	total := SumByType(FilterMonth(list, month, year), Expense)
	return total.DivRound(decimal.NewFromInt(int64(dayOfMonth)), 2)
}

// SavingsRate is the percentage of income retained after expenses. Zero when
// income is zero, never NaN or infinite.
func SavingsRate(income, expense decimal.Decimal) float64 {
	if !income.IsPositive() {
		return 0
	}
	return income.Sub(expense).Div(income).InexactFloat64() * 100
}

// MoMChange is the percentage change of the month's expense total versus the
// immediately preceding calendar month, wrapping the year at January. Zero
// when the previous month had no expenses.
func MoMChange(list []Transaction, month, year int) float64 {
	prevMonth, prevYear := month-1, year
	if month == 1 {
		prevMonth, prevYear = 12, year-1
	}
	current := SumByType(FilterMonth(list, month, year), Expense)
	previous := SumByType(FilterMonth(list, prevMonth, prevYear), Expense)
	if !previous.IsPositive() {
		return 0
	}
	return current.Sub(previous).Div(previous).InexactFloat64() * 100
}

// MonthlyTrend buckets transactions into n ordered monthly buckets ending at
// (endMonth, endYear), oldest first. Months without transactions keep zero
// sums; every bucket is present.
func MonthlyTrend(list []Transaction, n, endMonth, endYear int) []MonthBucket {
	if n <= 0 {
		return nil
	}
	buckets := make([]MonthBucket, n)
	index := make(map[[2]int]int, n)
	anchor := NewDate(endYear, endMonth, 1)
	for i := 0; i < n; i++ {
		d := anchor.AddMonths(i - n + 1)
		buckets[i] = MonthBucket{
			Month:   d.Month(),
			Year:    d.Year(),
			Income:  decimal.Zero,
			Expense: decimal.Zero,
		}
		index[[2]int{d.Year(), d.Month()}] = i
	}
	for _, tx := range list {
		i, ok := index[[2]int{tx.Date.Year(), tx.Date.Month()}]
		if !ok {
			continue
		}
		if tx.Type == Income {
			buckets[i].Income = buckets[i].Income.Add(tx.Amount)
		} else {
			buckets[i].Expense = buckets[i].Expense.Add(tx.Amount)
		}
	}
	return buckets
}

// MonthlyComparison is the full-year trend: twelve buckets, January through
// December of the given year.
func MonthlyComparison(list []Transaction, year int) []MonthBucket {
	return MonthlyTrend(list, 12, 12, year)
}

// CategoryDistribution sums amounts per category name for one type and year,
// sorted descending by total. Uncategorized transactions fall under the
// fallback label. Ties keep first-seen category order.
func CategoryDistribution(list []Transaction, typ TransactionType, year int) []CategorySum {
	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, tx := range FilterYear(list, year) {
		if tx.Type != typ {
			continue
		}
		name := tx.CategoryName()
		if _, seen := totals[name]; !seen {
			order = append(order, name)
		}
		totals[name] = totals[name].Add(tx.Amount)
	}
	out := make([]CategorySum, 0, len(order))
	for _, name := range order {
		out = append(out, CategorySum{Name: name, Total: totals[name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.GreaterThan(out[j].Total)
	})
	return out
}

// CashFlow computes the cumulative running balance of a year, bucketed by
// month. Transactions are processed in ascending date order; income adds to
// the balance, expense subtracts. A month without activity carries the prior
// month's ending balance forward; months before the first transaction stay
// at zero.
func CashFlow(list []Transaction, year int) []CashFlowPoint {
	txs := FilterYear(list, year)
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date.Time)
	})

	points := make([]CashFlowPoint, 12)
	active := make([]bool, 12)
	for i := range points {
		points[i] = CashFlowPoint{
			Month:   i + 1,
			Income:  decimal.Zero,
			Expense: decimal.Zero,
			Balance: decimal.Zero,
		}
	}

	balance := decimal.Zero
	for _, tx := range sorted {
		i := tx.Date.Month() - 1
		if tx.Type == Income {
			balance = balance.Add(tx.Amount)
			points[i].Income = points[i].Income.Add(tx.Amount)
		} else {
			balance = balance.Sub(tx.Amount)
			points[i].Expense = points[i].Expense.Add(tx.Amount)
		}
		points[i].Balance = balance
		active[i] = true
	}

	// Forward-fill inactive months with the prior ending balance.
	for i := 1; i < 12; i++ {
		if !active[i] {
			points[i].Balance = points[i-1].Balance
		}
	}
	return points
}

// TopExpenses returns the n largest expense transactions of a year, sorted
// descending by amount. The sort is stable: ties keep original list order.
func TopExpenses(list []Transaction, year, n int) []Transaction {
	var expenses []Transaction
	for _, tx := range FilterYear(list, year) {
		if tx.Type == Expense {
			expenses = append(expenses, tx)
		}
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Amount.GreaterThan(expenses[j].Amount)
	})
	if n < len(expenses) {
		expenses = expenses[:n]
	}
	return expenses
}

// RecurringVsOneTime splits a year's expense total between recurring and
// one-time transactions. Slices with a zero sum are omitted.
func RecurringVsOneTime(list []Transaction, year int) []CategorySum {
	recurring, oneTime := decimal.Zero, decimal.Zero
	for _, tx := range FilterYear(list, year) {
		if tx.Type != Expense {
			continue
		}
		if tx.IsRecurring {
			recurring = recurring.Add(tx.Amount)
		} else {
			oneTime = oneTime.Add(tx.Amount)
		}
	}
	var out []CategorySum
	if recurring.IsPositive() {
		out = append(out, CategorySum{Name: RecurringLabel, Total: recurring})
	}
	if oneTime.IsPositive() {
		out = append(out, CategorySum{Name: OneTimeLabel, Total: oneTime})
	}
	return out
}
