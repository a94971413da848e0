package repository

import (
	"context"

	"github.com/amirasaad/sandbank/pkg/domain/wallet"
	walletrepo "github.com/amirasaad/sandbank/pkg/repository/wallet"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a wallet repository bound to db.
func NewWalletRepository(db *gorm.DB) walletrepo.Repository {
	return &walletRepository{db: db}
}

// forUpdate adds SELECT ... FOR UPDATE. The sqlite dialector omits the
// clause; sqlite serializes writers on its own.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *walletRepository) Create(
	ctx context.Context,
	w *wallet.Wallet,
) error {
	m := mapWalletToModel(w)
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(&m).Error
	})
}

func (r *walletRepository) Update(
	ctx context.Context,
	w *wallet.Wallet,
) error {
	m := mapWalletToModel(w)
	res := r.db.WithContext(
		ctx,
	).Model(&m).Select(
		"balance", "ledger_balance", "status", "updated_at",
	).Updates(&m)
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return wallet.ErrWalletNotFound
	}
	return nil
}

func (r *walletRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*wallet.Wallet, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

func (r *walletRepository) GetByUserID(
	ctx context.Context,
	userID uuid.UUID,
) (*wallet.Wallet, error) {
	return r.first(r.db.WithContext(ctx), "user_id = ?", userID)
}

func (r *walletRepository) GetByAccountNumber(
	ctx context.Context,
	accountNumber string,
) (*wallet.Wallet, error) {
	return r.first(r.db.WithContext(ctx), "account_number = ?", accountNumber)
}

func (r *walletRepository) GetForUpdate(
	ctx context.Context,
	id uuid.UUID,
) (*wallet.Wallet, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), "id = ?", id)
}

func (r *walletRepository) GetByAccountNumberForUpdate(
	ctx context.Context,
	accountNumber string,
) (*wallet.Wallet, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), "account_number = ?", accountNumber)
}

func (r *walletRepository) ExistsByAccountNumber(
	ctx context.Context,
	accountNumber string,
) (bool, error) {
	var count int64
	err := r.db.WithContext(
		ctx,
	).Model(&Wallet{}).Where("account_number = ?", accountNumber).Count(&count).Error
	return count > 0, err
}

func (r *walletRepository) first(db *gorm.DB, query string, arg any) (*wallet.Wallet, error) {
	var m Wallet
	if err := db.Where(query, arg).First(&m).Error; err != nil {
		return nil, mapNotFound(err, wallet.ErrWalletNotFound)
	}
	return mapModelToWallet(&m), nil
}

func mapWalletToModel(w *wallet.Wallet) Wallet {
	return Wallet{
		ID:            w.ID,
		UserID:        w.UserID,
		AccountNumber: w.AccountNumber,
		Balance:       w.Balance,
		LedgerBalance: w.LedgerBalance,
		Currency:      w.Currency,
		Status:        string(w.Status),
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
}

func mapModelToWallet(m *Wallet) *wallet.Wallet {
	return &wallet.Wallet{
		ID:            m.ID,
		UserID:        m.UserID,
		AccountNumber: m.AccountNumber,
		Balance:       m.Balance,
		LedgerBalance: m.LedgerBalance,
		Currency:      m.Currency,
		Status:        wallet.Status(m.Status),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

var _ walletrepo.Repository = (*walletRepository)(nil)
