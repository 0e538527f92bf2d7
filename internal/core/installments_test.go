package core

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func draft(amount string, n int) Draft {
	return Draft{
		Description:       "Notebook",
		Amount:            decimal.RequireFromString(amount),
		Type:              Expense,
		Date:              NewDate(2024, 1, 31),
		UserID:            "u1",
		TotalInstallments: n,
	}
}

func TestExpandInstallmentsSingle(t *testing.T) {
	cases := []struct {
		name string
		d    Draft
	}{
		{"count absent", draft("300", 0)},
		{"count one", draft("300", 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			records := ExpandInstallments(tc.d)
			if len(records) != 1 {
				t.Fatalf("expected 1 record, got %d", len(records))
			}
			r := records[0]
			if r.Description != tc.d.Description {
				t.Errorf("description changed: %q", r.Description)
			}
			if !r.Amount.Equal(tc.d.Amount) {
				t.Errorf("amount changed: %s", r.Amount)
			}
			if r.InstallmentNumber != 0 || r.TotalInstallments != 0 || r.ParentTransactionID != "" {
				t.Errorf("installment fields set on single record: %+v", r)
			}
		})
	}
}

func TestExpandInstallmentsSingleKeepsRecurrence(t *testing.T) {
	d := draft("50", 1)
	d.IsRecurring = true
	d.RecurrencePeriod = Weekly

	records := ExpandInstallments(d)
	if !records[0].IsRecurring || records[0].RecurrencePeriod != Weekly {
		t.Fatalf("recurrence not preserved: %+v", records[0])
	}

	// Missing period defaults to monthly.
	d.RecurrencePeriod = ""
	records = ExpandInstallments(d)
	if records[0].RecurrencePeriod != Monthly {
		t.Fatalf("expected monthly default, got %q", records[0].RecurrencePeriod)
	}
}

func TestExpandInstallmentsSeries(t *testing.T) {
	d := draft("300", 3)
	records := ExpandInstallments(d)

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	wantDates := []string{"2024-01-31", "2024-03-02", "2024-03-31"}
	sum := decimal.Zero
	for i, r := range records {
		if r.InstallmentNumber != i+1 {
			t.Errorf("record %d: installment number %d", i, r.InstallmentNumber)
		}
		if r.TotalInstallments != 3 {
			t.Errorf("record %d: total installments %d", i, r.TotalInstallments)
		}
		want := fmt.Sprintf("Notebook (%d/3)", i+1)
		if r.Description != want {
			t.Errorf("record %d: description %q, want %q", i, r.Description, want)
		}
		if !r.Amount.Equal(decimal.NewFromInt(100)) {
			t.Errorf("record %d: amount %s, want 100", i, r.Amount)
		}
		if r.Date.String() != wantDates[i] {
			t.Errorf("record %d: date %s, want %s", i, r.Date, wantDates[i])
		}
		if r.ParentTransactionID != "" {
			t.Errorf("record %d: parent id set before persistence", i)
		}
		sum = sum.Add(r.Amount)
	}
	if !sum.Equal(d.Amount) {
		t.Fatalf("amounts sum to %s, want %s", sum, d.Amount)
	}
}

func TestExpandInstallmentsResidual(t *testing.T) {
	d := draft("100", 3)
	records := ExpandInstallments(d)

	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.Amount)
	}
	if !sum.Equal(d.Amount) {
		t.Fatalf("amounts sum to %s, want exact %s", sum, d.Amount)
	}
	if !records[2].Amount.Equal(decimal.RequireFromString("33.34")) {
		t.Fatalf("last installment should absorb the residual, got %s", records[2].Amount)
	}
}

func TestExpandInstallmentsDropsRecurrence(t *testing.T) {
	d := draft("300", 3)
	d.IsRecurring = true
	d.RecurrencePeriod = Monthly

	for i, r := range ExpandInstallments(d) {
		if r.IsRecurring || r.RecurrencePeriod != "" {
			t.Fatalf("record %d: recurrence propagated onto installment", i)
		}
	}
}

func TestDraftValidate(t *testing.T) {
	good := draft("300", 3)
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := draft("300", -1)
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for negative installment count")
	}

	noDesc := draft("300", 2)
	noDesc.Description = " "
	if err := noDesc.Validate(); err == nil {
		t.Fatalf("expected error for blank description")
	}

	// A recurring draft without a period is valid; the period defaults to
	// monthly, so validation and expansion agree.
	recurring := draft("50", 0)
	recurring.IsRecurring = true
	recurring.RecurrencePeriod = ""
	if err := recurring.Validate(); err != nil {
		t.Fatalf("recurring draft without period: %v", err)
	}

	badPeriod := draft("50", 0)
	badPeriod.IsRecurring = true
	badPeriod.RecurrencePeriod = "daily"
	if err := badPeriod.Validate(); err == nil {
		t.Fatalf("expected error for unknown recurrence period")
	}
}
