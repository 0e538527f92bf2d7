package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"grana/internal/core"
	"grana/internal/services"
	"grana/internal/storage"
)

type transactionRequest struct {
	Description       string `json:"description"`
	Amount            string `json:"amount"`
	Type              string `json:"type"`
	Date              string `json:"date"`
	CategoryID        string `json:"category_id,omitempty"`
	TotalInstallments int    `json:"total_installments,omitempty"`
	IsRecurring       bool   `json:"is_recurring,omitempty"`
	RecurrencePeriod  string `json:"recurrence_period,omitempty"`
}

type transactionResponse struct {
	ID                  string `json:"id"`
	Description         string `json:"description"`
	Amount              string `json:"amount"`
	Type                string `json:"type"`
	Date                string `json:"date"`
	CategoryID          string `json:"category_id,omitempty"`
	Category            string `json:"category"`
	InstallmentNumber   int    `json:"installment_number,omitempty"`
	TotalInstallments   int    `json:"total_installments,omitempty"`
	ParentTransactionID string `json:"parent_transaction_id,omitempty"`
	IsRecurring         bool   `json:"is_recurring,omitempty"`
	RecurrencePeriod    string `json:"recurrence_period,omitempty"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:                  tx.ID,
		Description:         tx.Description,
		Amount:              tx.Amount.StringFixed(2),
		Type:                string(tx.Type),
		Date:                tx.Date.String(),
		CategoryID:          tx.CategoryID,
		Category:            tx.CategoryName(),
		InstallmentNumber:   tx.InstallmentNumber,
		TotalInstallments:   tx.TotalInstallments,
		ParentTransactionID: tx.ParentTransactionID,
		IsRecurring:         tx.IsRecurring,
		RecurrencePeriod:    string(tx.RecurrencePeriod),
	}
}

func toTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = toTransactionResponse(tx)
	}
	return out
}

// validate turns the raw request into a draft, collecting every field
// problem instead of stopping at the first one.
func (req transactionRequest) validate(user string) (core.Draft, validationErrors) {
	errs := validationErrors{}

	draft := core.Draft{
		Description:       req.Description,
		Type:              core.TransactionType(req.Type),
		CategoryID:        req.CategoryID,
		UserID:            user,
		TotalInstallments: req.TotalInstallments,
		IsRecurring:       req.IsRecurring,
		RecurrencePeriod:  core.RecurrencePeriod(req.RecurrencePeriod),
	}

	if req.Description == "" {
		errs["description"] = "description is required"
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		errs["amount"] = "amount must be a positive number"
	}
	draft.Amount = amount

	if draft.Type != core.Income && draft.Type != core.Expense {
		errs["type"] = "type must be income or expense"
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		errs["date"] = "date must be in YYYY-MM-DD format"
	}
	draft.Date = date

	if req.TotalInstallments < 0 {
		errs["total_installments"] = "total_installments cannot be negative"
	}
	if req.IsRecurring && req.RecurrencePeriod != "" {
		if err := draft.RecurrencePeriod.Validate(); err != nil {
			errs["recurrence_period"] = "recurrence_period must be weekly, monthly or yearly"
		}
	}

	if len(errs) > 0 {
		return core.Draft{}, errs
	}
	return draft, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	month, year, errs := parseListFilter(r)
	if errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	txs, err := s.transactions.List(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "List transactions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list transactions")
		return
	}

	switch {
	case month != 0:
		txs = core.FilterMonth(txs, month, year)
	case year != 0:
		txs = core.FilterYear(txs, year)
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

// parseListFilter reads the optional month/year query parameters. A month
// without a year defaults the year to the current one.
func parseListFilter(r *http.Request) (month, year int, errs validationErrors) {
	errs = validationErrors{}

	if raw := r.URL.Query().Get("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			errs["year"] = "year must be a positive integer"
		} else {
			year = v
		}
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 12 {
			errs["month"] = "month must be between 1 and 12"
		} else {
			month = v
			if year == 0 {
				year = time.Now().Year()
			}
		}
	}

	if len(errs) > 0 {
		return 0, 0, errs
	}
	return month, year, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user := userID(r)
	draft, errs := req.validate(user)
	if errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	batch, err := s.transactions.Create(r.Context(), draft)
	if err != nil {
		var partial *services.PartialBatchError
		if errors.As(err, &partial) {
			slog.ErrorContext(r.Context(), "Installment batch partially persisted",
				"parent_id", partial.Parent.ID,
				"error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":     "installment series was only partially saved",
				"parent_id": partial.Parent.ID,
			})
			return
		}
		slog.ErrorContext(r.Context(), "Create transaction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not save transaction")
		return
	}

	s.invalidateAggregates(user)
	// The parent (or sole) record represents the whole series to the caller.
	writeJSON(w, http.StatusCreated, toTransactionResponse(batch[0]))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user := userID(r)
	draft, errs := req.validate(user)
	if errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	tx := core.Transaction{
		Description: draft.Description,
		Amount:      draft.Amount,
		Type:        draft.Type,
		Date:        draft.Date,
		UserID:      user,
		CategoryID:  draft.CategoryID,
	}

	updated, err := s.transactions.Update(r.Context(), user, r.PathValue("id"), tx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Update transaction failed", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "could not update transaction")
		return
	}

	s.invalidateAggregates(user)
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if err := s.transactions.Delete(r.Context(), user, r.PathValue("id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Delete transaction failed", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete transaction")
		return
	}

	s.invalidateAggregates(user)
	writeJSON(w, http.StatusNoContent, nil)
}
