package repository

import (
	"context"
	"time"

	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	txrepo "github.com/amirasaad/sandbank/pkg/repository/transaction"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a ledger entry repository bound to db.
func NewTransactionRepository(db *gorm.DB) txrepo.Repository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(
	ctx context.Context,
	tx *transaction.Transaction,
) error {
	m := mapTransactionToModel(tx)
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(&m).Error
	})
}

func (r *transactionRepository) Update(
	ctx context.Context,
	tx *transaction.Transaction,
) error {
	m := mapTransactionToModel(tx)
	res := r.db.WithContext(
		ctx,
	).Model(&m).Select(
		"status", "balance_after", "metadata", "reversed_by", "updated_at",
	).Updates(&m)
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return transaction.ErrTransactionNotFound
	}
	return nil
}

func (r *transactionRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*transaction.Transaction, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

func (r *transactionRepository) GetForUpdate(
	ctx context.Context,
	id uuid.UUID,
) (*transaction.Transaction, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), "id = ?", id)
}

func (r *transactionRepository) GetByReference(
	ctx context.Context,
	reference string,
) (*transaction.Transaction, error) {
	return r.first(r.db.WithContext(ctx), "reference = ?", reference)
}

func (r *transactionRepository) ListByWallet(
	ctx context.Context,
	walletID uuid.UUID,
	page, pageSize int,
) ([]*transaction.Transaction, int64, error) {
	var total int64
	if err := r.db.WithContext(
		ctx,
	).Model(&Transaction{}).Where("wallet_id = ?", walletID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []Transaction
	if err := r.db.WithContext(
		ctx,
	).Where(
		"wallet_id = ?",
		walletID,
	).Order(
		"created_at desc, reference desc",
	).Offset(
		offset(page, pageSize),
	).Limit(
		pageSize,
	).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return mapTransactions(rows), total, nil
}

func (r *transactionRepository) ListByGroup(
	ctx context.Context,
	groupReference string,
) ([]*transaction.Transaction, error) {
	var rows []Transaction
	if err := r.db.WithContext(
		ctx,
	).Where(
		"group_reference = ?",
		groupReference,
	).Order("amount asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapTransactions(rows), nil
}

func (r *transactionRepository) ListPendingBefore(
	ctx context.Context,
	kind transaction.Type,
	cutoff time.Time,
) ([]*transaction.Transaction, error) {
	var rows []Transaction
	if err := r.db.WithContext(
		ctx,
	).Where(
		"type = ? AND status = ? AND created_at < ?",
		string(kind),
		string(transaction.StatusPending),
		cutoff,
	).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapTransactions(rows), nil
}

func (r *transactionRepository) SumPending(
	ctx context.Context,
	walletID uuid.UUID,
) (int64, error) {
	var sum int64
	err := r.db.WithContext(
		ctx,
	).Model(&Transaction{}).Select(
		"COALESCE(SUM(amount), 0)",
	).Where(
		"wallet_id = ? AND status = ?",
		walletID,
		string(transaction.StatusPending),
	).Scan(&sum).Error
	return sum, err
}

func (r *transactionRepository) first(db *gorm.DB, query string, arg any) (*transaction.Transaction, error) {
	var m Transaction
	if err := db.Where(query, arg).First(&m).Error; err != nil {
		return nil, mapNotFound(err, transaction.ErrTransactionNotFound)
	}
	return mapModelToTransaction(&m), nil
}

func mapTransactions(rows []Transaction) []*transaction.Transaction {
	result := make([]*transaction.Transaction, 0, len(rows))
	for i := range rows {
		result = append(result, mapModelToTransaction(&rows[i]))
	}
	return result
}

func mapTransactionToModel(tx *transaction.Transaction) Transaction {
	return Transaction{
		ID:                   tx.ID,
		Reference:            tx.Reference,
		GroupReference:       tx.GroupReference,
		UserID:               tx.UserID,
		WalletID:             tx.WalletID,
		CounterpartyWalletID: tx.CounterpartyWalletID,
		Type:                 string(tx.Type),
		Amount:               tx.Amount,
		BalanceAfter:         tx.BalanceAfter,
		Status:               string(tx.Status),
		Description:          tx.Description,
		Metadata:             tx.Metadata,
		ReversedBy:           tx.ReversedBy,
		CodeID:               tx.CodeID,
		CreatedAt:            tx.CreatedAt,
		UpdatedAt:            tx.UpdatedAt,
	}
}

func mapModelToTransaction(m *Transaction) *transaction.Transaction {
	metadata := transaction.Metadata(m.Metadata)
	if metadata == nil {
		metadata = transaction.Metadata{}
	}
	return &transaction.Transaction{
		ID:                   m.ID,
		Reference:            m.Reference,
		GroupReference:       m.GroupReference,
		UserID:               m.UserID,
		WalletID:             m.WalletID,
		CounterpartyWalletID: m.CounterpartyWalletID,
		Type:                 transaction.Type(m.Type),
		Amount:               m.Amount,
		BalanceAfter:         m.BalanceAfter,
		Status:               transaction.Status(m.Status),
		Description:          m.Description,
		Metadata:             metadata,
		ReversedBy:           m.ReversedBy,
		CodeID:               m.CodeID,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

var _ txrepo.Repository = (*transactionRepository)(nil)
