package user

import (
	"context"

	"github.com/amirasaad/sandbank/pkg/domain/user"
	"github.com/google/uuid"
)

// Repository defines the data access operations for users.
type Repository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *user.User) error

	// Update persists every mutable field of u except the balance.
	Update(ctx context.Context, u *user.User) error

	// SetBalance overwrites the denormalized wallet balance of a user.
	SetBalance(ctx context.Context, id uuid.UUID, balance int64) error

	// Get retrieves a user by its ID.
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)

	// GetForUpdate retrieves a user and locks the row until the unit of
	// work ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*user.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*user.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*user.User, error)

	// Delete soft deletes a user by its ID.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns a page of users ordered by creation time and the total count.
	List(ctx context.Context, page, pageSize int) ([]*user.User, int64, error)

	// ExistsByEmail checks if a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// ExistsByUsername checks if a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}
