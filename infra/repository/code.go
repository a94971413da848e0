package repository

import (
	"context"

	"github.com/amirasaad/sandbank/pkg/domain/code"
	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	coderepo "github.com/amirasaad/sandbank/pkg/repository/code"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type codeRepository struct {
	db *gorm.DB
}

// NewCodeRepository creates a transaction code repository bound to db.
func NewCodeRepository(db *gorm.DB) coderepo.Repository {
	return &codeRepository{db: db}
}

func (r *codeRepository) Create(
	ctx context.Context,
	c *code.Code,
) error {
	m := mapCodeToModel(c)
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(&m).Error
	})
}

func (r *codeRepository) Update(
	ctx context.Context,
	c *code.Code,
) error {
	m := mapCodeToModel(c)
	res := r.db.WithContext(
		ctx,
	).Model(&m).Select(
		"used_at", "used_by", "transaction_id", "revoked_at", "updated_at",
	).Updates(&m)
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return code.ErrCodeNotFound
	}
	return nil
}

func (r *codeRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*code.Code, error) {
	var m TransactionCode
	if err := r.db.WithContext(
		ctx,
	).First(&m, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, code.ErrCodeNotFound)
	}
	return mapModelToCode(&m), nil
}

func (r *codeRepository) GetByCodeForUpdate(
	ctx context.Context,
	value string,
) (*code.Code, error) {
	var m TransactionCode
	if err := forUpdate(
		r.db.WithContext(ctx),
	).Where("code = ?", value).First(&m).Error; err != nil {
		return nil, mapNotFound(err, code.ErrCodeNotFound)
	}
	return mapModelToCode(&m), nil
}

func (r *codeRepository) ExistsByCode(
	ctx context.Context,
	value string,
) (bool, error) {
	var count int64
	err := r.db.WithContext(
		ctx,
	).Model(&TransactionCode{}).Where("code = ?", value).Count(&count).Error
	return count > 0, err
}

func (r *codeRepository) List(
	ctx context.Context,
	page, pageSize int,
) ([]*code.Code, int64, error) {
	var total int64
	if err := r.db.WithContext(
		ctx,
	).Model(&TransactionCode{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []TransactionCode
	if err := r.db.WithContext(
		ctx,
	).Order("created_at desc").Offset(offset(page, pageSize)).Limit(pageSize).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	result := make([]*code.Code, 0, len(rows))
	for i := range rows {
		result = append(result, mapModelToCode(&rows[i]))
	}
	return result, total, nil
}

func mapCodeToModel(c *code.Code) TransactionCode {
	return TransactionCode{
		ID:            c.ID,
		Code:          c.Code,
		Type:          string(c.Type),
		Amount:        c.Amount,
		UserID:        c.UserID,
		ExpiresAt:     c.ExpiresAt,
		UsedAt:        c.UsedAt,
		UsedBy:        c.UsedBy,
		TransactionID: c.TransactionID,
		RevokedAt:     c.RevokedAt,
		IssuedBy:      c.IssuedBy,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func mapModelToCode(m *TransactionCode) *code.Code {
	return &code.Code{
		ID:            m.ID,
		Code:          m.Code,
		Type:          transaction.Type(m.Type),
		Amount:        m.Amount,
		UserID:        m.UserID,
		ExpiresAt:     m.ExpiresAt,
		UsedAt:        m.UsedAt,
		UsedBy:        m.UsedBy,
		TransactionID: m.TransactionID,
		RevokedAt:     m.RevokedAt,
		IssuedBy:      m.IssuedBy,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

var _ coderepo.Repository = (*codeRepository)(nil)
