package audit

import (
	"context"

	"github.com/amirasaad/sandbank/pkg/domain/audit"
)

// Repository appends audit entries. Entries are never updated.
type Repository interface {
	Create(ctx context.Context, l *audit.Log) error
	ListBySubject(ctx context.Context, subjectType, subjectID string) ([]*audit.Log, error)
	ListByAction(ctx context.Context, action string) ([]*audit.Log, error)
}
