package repository

import (
	"context"

	"github.com/amirasaad/sandbank/pkg/repository/audit"
	"github.com/amirasaad/sandbank/pkg/repository/code"
	"github.com/amirasaad/sandbank/pkg/repository/transaction"
	"github.com/amirasaad/sandbank/pkg/repository/user"
	"github.com/amirasaad/sandbank/pkg/repository/wallet"
)

// UnitOfWork defines the contract for transactional work and type-safe
// repository access.
//
// Repositories obtained from the UnitOfWork passed to Do share its
// database transaction. Repositories obtained outside Do run on the plain
// connection.
//
//	err := uow.Do(ctx, func(uow repository.UnitOfWork) error {
//		wallets, err := uow.WalletRepository()
//		...
//	})
type UnitOfWork interface {
	// Do executes fn within a transaction boundary. If fn returns an
	// error, the transaction is rolled back. Calling Do on the UnitOfWork
	// passed to fn joins the running transaction.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	UserRepository() (user.Repository, error)
	WalletRepository() (wallet.Repository, error)
	TransactionRepository() (transaction.Repository, error)
	CodeRepository() (code.Repository, error)
	AuditRepository() (audit.Repository, error)
}
