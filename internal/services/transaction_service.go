package services

import (
	"context"
	"fmt"
	"log/slog"

	"grana/internal/core"
)

// PartialBatchError reports an installment batch where the parent record was
// persisted but the child inserts failed. This is neither a full success nor
// a full failure: the parent is orphaned in the store and is surfaced to the
// caller for manual cleanup. It is never rolled back or retried here.
type PartialBatchError struct {
	Parent core.Transaction
	Err    error
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("installment batch partially persisted: parent %s saved, children failed: %v", e.Parent.ID, e.Err)
}

func (e *PartialBatchError) Unwrap() error { return e.Err }

// TransactionService orchestrates transaction persistence: installment
// expansion, the two-phase parent/children insert and best-effort sync
// event publishing.
type TransactionService struct {
	store  TransactionStore
	events EventPublisher
}

func NewTransactionService(store TransactionStore, events EventPublisher) *TransactionService {
	return &TransactionService{
		store:  store,
		events: events,
	}
}

// List returns all of the user's transactions, newest first.
func (s *TransactionService) List(ctx context.Context, userID string) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, userID)
}

// Create validates and expands a draft, then persists the resulting records.
//
// A single record is one insert. An installment series is two phases: the
// parent is inserted first to obtain its identifier, then the remaining
// records are batch-inserted referencing it. The parent insert failing aborts
// the whole operation; the child batch failing returns a *PartialBatchError
// carrying the already-persisted parent.
//
// Returns the full created batch; the caller-facing record is the first one.
func (s *TransactionService) Create(ctx context.Context, draft core.Draft) ([]core.Transaction, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	plan := core.ExpandInstallments(draft)

	if len(plan) == 1 {
		created, err := s.store.InsertTransaction(ctx, plan[0])
		if err != nil {
			return nil, fmt.Errorf("save transaction: %w", err)
		}
		s.publishSync(ctx, created.ID)
		return []core.Transaction{created}, nil
	}

	parent, err := s.store.InsertTransaction(ctx, plan[0])
	if err != nil {
		return nil, fmt.Errorf("save installment parent: %w", err)
	}

	children := plan[1:]
	for i := range children {
		children[i].ParentTransactionID = parent.ID
	}

	createdChildren, err := s.store.InsertTransactions(ctx, children)
	if err != nil {
		slog.ErrorContext(ctx, "Installment children insert failed, parent is orphaned",
			"parent_id", parent.ID,
			"total_installments", len(plan),
			"error", err)
		return nil, &PartialBatchError{Parent: parent, Err: err}
	}

	batch := append([]core.Transaction{parent}, createdChildren...)
	for _, tx := range batch {
		s.publishSync(ctx, tx.ID)
	}

	slog.InfoContext(ctx, "Installment series created",
		"parent_id", parent.ID,
		"total_installments", len(batch))
	return batch, nil
}

// Update replaces the mutable fields of a transaction. Installment and
// recurrence linkage are immutable after creation.
func (s *TransactionService) Update(ctx context.Context, userID, id string, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	updated, err := s.store.UpdateTransaction(ctx, userID, id, tx)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publishSync(ctx, updated.ID)
	return updated, nil
}

// Delete removes a transaction. Deleting an installment never cascades to its
// siblings or parent.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	if s.events != nil {
		if err := s.events.PublishTransactionDelete(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish delete event", "id", id, "error", err)
		}
	}
	return nil
}

// publishSync emits a sync event for the backup worker. Publish failures are
// logged and absorbed: the record is already safe in the store.
func (s *TransactionService) publishSync(ctx context.Context, id string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionSync(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync event", "id", id, "error", err)
	}
}
