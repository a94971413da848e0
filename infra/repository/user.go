package repository

import (
	"context"

	"github.com/amirasaad/sandbank/pkg/domain/user"
	userrepo "github.com/amirasaad/sandbank/pkg/repository/user"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a user repository bound to db.
func NewUserRepository(db *gorm.DB) userrepo.Repository {
	return &userRepository{db: db}
}

// userColumns are the columns Update writes. balance is owned by the
// wallet and only changes through SetBalance.
var userColumns = []string{
	"username", "email", "password", "names", "is_admin",
	"status", "pin_hash", "pin_attempts", "updated_at",
}

func (r *userRepository) Create(
	ctx context.Context,
	u *user.User,
) error {
	m := mapUserToModel(u)
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(&m).Error
	})
}

func (r *userRepository) Update(
	ctx context.Context,
	u *user.User,
) error {
	m := mapUserToModel(u)
	res := r.db.WithContext(
		ctx,
	).Model(&m).Select(userColumns).Updates(&m)
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SetBalance(
	ctx context.Context,
	id uuid.UUID,
	balance int64,
) error {
	return WrapError(func() error {
		return r.db.WithContext(
			ctx,
		).Model(&User{}).Where("id = ?", id).Update("balance", balance).Error
	})
}

func (r *userRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*user.User, error) {
	var m User
	if err := r.db.WithContext(
		ctx,
	).First(&m, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, user.ErrUserNotFound)
	}
	return mapModelToUser(&m), nil
}

func (r *userRepository) GetForUpdate(
	ctx context.Context,
	id uuid.UUID,
) (*user.User, error) {
	var m User
	if err := forUpdate(r.db.WithContext(
		ctx,
	)).First(&m, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, user.ErrUserNotFound)
	}
	return mapModelToUser(&m), nil
}

func (r *userRepository) GetByEmail(
	ctx context.Context,
	email string,
) (*user.User, error) {
	var m User
	if err := r.db.WithContext(
		ctx,
	).Where("email = ?", email).First(&m).Error; err != nil {
		return nil, mapNotFound(err, user.ErrUserNotFound)
	}
	return mapModelToUser(&m), nil
}

func (r *userRepository) GetByUsername(
	ctx context.Context,
	username string,
) (*user.User, error) {
	var m User
	if err := r.db.WithContext(
		ctx,
	).Where("username = ?", username).First(&m).Error; err != nil {
		return nil, mapNotFound(err, user.ErrUserNotFound)
	}
	return mapModelToUser(&m), nil
}

func (r *userRepository) Delete(
	ctx context.Context,
	id uuid.UUID,
) error {
	res := r.db.WithContext(ctx).Delete(&User{}, "id = ?", id)
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) List(
	ctx context.Context,
	page, pageSize int,
) ([]*user.User, int64, error) {
	var total int64
	if err := r.db.WithContext(
		ctx,
	).Model(&User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []User
	if err := r.db.WithContext(
		ctx,
	).Order("created_at asc").Offset(offset(page, pageSize)).Limit(pageSize).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	result := make([]*user.User, 0, len(users))
	for i := range users {
		result = append(result, mapModelToUser(&users[i]))
	}
	return result, total, nil
}

func (r *userRepository) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	var count int64
	err := r.db.WithContext(
		ctx,
	).Model(&User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *userRepository) ExistsByUsername(
	ctx context.Context,
	username string,
) (bool, error) {
	var count int64
	err := r.db.WithContext(
		ctx,
	).Model(&User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

func mapUserToModel(u *user.User) User {
	return User{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Password:    u.Password,
		Names:       u.Names,
		IsAdmin:     u.IsAdmin,
		Status:      string(u.Status),
		PINHash:     u.PINHash,
		PINAttempts: u.PINAttempts,
		Balance:     u.Balance,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func mapModelToUser(m *User) *user.User {
	return &user.User{
		ID:          m.ID,
		Username:    m.Username,
		Email:       m.Email,
		Password:    m.Password,
		Names:       m.Names,
		IsAdmin:     m.IsAdmin,
		Status:      user.Status(m.Status),
		PINHash:     m.PINHash,
		PINAttempts: m.PINAttempts,
		Balance:     m.Balance,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// offset converts a 1-based page into a row offset.
func offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

var _ userrepo.Repository = (*userRepository)(nil)
