package repository

import (
	"context"

	"github.com/amirasaad/sandbank/pkg/repository"
	auditrepo "github.com/amirasaad/sandbank/pkg/repository/audit"
	coderepo "github.com/amirasaad/sandbank/pkg/repository/code"
	txrepo "github.com/amirasaad/sandbank/pkg/repository/transaction"
	userrepo "github.com/amirasaad/sandbank/pkg/repository/user"
	walletrepo "github.com/amirasaad/sandbank/pkg/repository/wallet"
	"gorm.io/gorm"
)

// UoW provides transaction boundary and repository access in one abstraction.
type UoW struct {
	db *gorm.DB
	tx *gorm.DB
}

// NewUoW creates a new UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{db: db}
}

// Do runs fn in a transaction boundary. A UoW already inside a
// transaction runs fn in that same transaction.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if u.tx != nil {
		return fn(u)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txnUow := &UoW{db: u.db, tx: tx}
		return fn(txnUow)
	})
}

func (u *UoW) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UoW) UserRepository() (userrepo.Repository, error) {
	return NewUserRepository(u.session()), nil
}

func (u *UoW) WalletRepository() (walletrepo.Repository, error) {
	return NewWalletRepository(u.session()), nil
}

func (u *UoW) TransactionRepository() (txrepo.Repository, error) {
	return NewTransactionRepository(u.session()), nil
}

func (u *UoW) CodeRepository() (coderepo.Repository, error) {
	return NewCodeRepository(u.session()), nil
}

func (u *UoW) AuditRepository() (auditrepo.Repository, error) {
	return NewAuditRepository(u.session()), nil
}

var _ repository.UnitOfWork = (*UoW)(nil)
