package code

import (
	"context"

	"github.com/amirasaad/sandbank/pkg/domain/code"
	"github.com/google/uuid"
)

// Repository defines the data access operations for transaction codes.
type Repository interface {
	Create(ctx context.Context, c *code.Code) error
	Update(ctx context.Context, c *code.Code) error
	Get(ctx context.Context, id uuid.UUID) (*code.Code, error)
	// GetByCodeForUpdate locks the row so a code is redeemed at most once.
	GetByCodeForUpdate(ctx context.Context, value string) (*code.Code, error)
	ExistsByCode(ctx context.Context, value string) (bool, error)
	List(ctx context.Context, page, pageSize int) ([]*code.Code, int64, error)
}
