package wallet

import (
	"context"

	"github.com/amirasaad/sandbank/pkg/domain/wallet"
	"github.com/google/uuid"
)

// Repository defines the data access operations for wallets.
//
// The ForUpdate variants take a row lock that is held until the enclosing
// unit of work commits.
type Repository interface {
	Create(ctx context.Context, w *wallet.Wallet) error
	Update(ctx context.Context, w *wallet.Wallet) error
	Get(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (*wallet.Wallet, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error)
	GetByAccountNumberForUpdate(ctx context.Context, accountNumber string) (*wallet.Wallet, error)
	ExistsByAccountNumber(ctx context.Context, accountNumber string) (bool, error)
}
