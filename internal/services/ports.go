package services

import (
	"context"

	"grana/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionStore is the persistence port for transactions. The store
	// enforces row-level ownership: every operation is scoped to a user.
	TransactionStore interface {
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
		InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		InsertTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, userID, id string, tx core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	// EventPublisher emits lightweight sync events for the backup worker.
	EventPublisher interface {
		PublishTransactionSync(ctx context.Context, id string) error
		PublishTransactionDelete(ctx context.Context, id string) error
	}
)
