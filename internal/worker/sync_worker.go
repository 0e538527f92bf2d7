// Package worker consumes transaction events from the queue and mirrors the
// records into the spreadsheet backup.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"grana/internal/amqp"
	"grana/internal/core"
	"grana/internal/storage"
)

// TransactionLookup fetches the full record for an event id.
type TransactionLookup interface {
	GetTransactionByID(ctx context.Context, id string) (core.Transaction, error)
}

// Backup is the destination the worker mirrors transactions into.
type Backup interface {
	Append(ctx context.Context, tx core.Transaction) error
	Remove(ctx context.Context, id string) error
}

type SyncWorker struct {
	store  TransactionLookup
	backup Backup
}

func NewSyncWorker(store TransactionLookup, backup Backup) *SyncWorker {
	return &SyncWorker{store: store, backup: backup}
}

// HandleEvent processes one queued event. Returning an error requeues the
// delivery, so permanently unprocessable events are absorbed here.
func (w *SyncWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEvent) error {
	switch msg.Op {
	case amqp.OpUpsert:
		return w.handleUpsert(ctx, msg.ID)
	case amqp.OpDelete:
		return w.handleDelete(ctx, msg.ID)
	default:
		slog.WarnContext(ctx, "Unknown event operation, dropping", "op", msg.Op, "id", msg.ID)
		return nil
	}
}

func (w *SyncWorker) handleUpsert(ctx context.Context, id string) error {
	tx, err := w.store.GetTransactionByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted before the event was processed. Nothing to back up.
			slog.WarnContext(ctx, "Transaction gone before backup, dropping event", "id", id)
			return nil
		}
		return fmt.Errorf("load transaction %s: %w", id, err)
	}

	if err := w.backup.Append(ctx, tx); err != nil {
		return fmt.Errorf("back up transaction %s: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction mirrored to backup",
		"id", id,
		"description", tx.Description,
		"amount", tx.Amount.String())
	return nil
}

func (w *SyncWorker) handleDelete(ctx context.Context, id string) error {
	if err := w.backup.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove transaction %s from backup: %w", id, err)
	}
	slog.InfoContext(ctx, "Transaction removed from backup", "id", id)
	return nil
}
