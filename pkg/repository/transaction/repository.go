package transaction

import (
	"context"
	"time"

	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	"github.com/google/uuid"
)

// Repository defines the data access operations for ledger entries.
type Repository interface {
	// Create inserts a new entry. References are unique.
	Create(ctx context.Context, tx *transaction.Transaction) error

	// Update persists status, balance after, metadata and reversal link.
	Update(ctx context.Context, tx *transaction.Transaction) error

	Get(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)

	// GetForUpdate retrieves an entry and locks its row.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)

	GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error)

	// ListByWallet returns a page of a wallet's entries, newest first, and
	// the total count.
	ListByWallet(ctx context.Context, walletID uuid.UUID, page, pageSize int) ([]*transaction.Transaction, int64, error)

	// ListByGroup returns every leg sharing groupReference.
	ListByGroup(ctx context.Context, groupReference string) ([]*transaction.Transaction, error)

	// ListPendingBefore returns pending entries of kind created before cutoff.
	ListPendingBefore(ctx context.Context, kind transaction.Type, cutoff time.Time) ([]*transaction.Transaction, error)

	// SumPending returns the sum of pending amounts of a wallet.
	SumPending(ctx context.Context, walletID uuid.UUID) (int64, error)
}
