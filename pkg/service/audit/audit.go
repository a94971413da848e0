// Package audit records audit log entries inside the caller's unit of work
// so an entry commits or rolls back together with the change it describes.
package audit

import (
	"context"
	"log/slog"

	"github.com/amirasaad/sandbank/pkg/domain/audit"
	"github.com/amirasaad/sandbank/pkg/repository"
)

type Recorder struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Recorder {
	return &Recorder{logger: logger}
}

// Record appends entry using the repositories of uow.
func (r *Recorder) Record(ctx context.Context, uow repository.UnitOfWork, entry *audit.Log) error {
	repo, err := uow.AuditRepository()
	if err != nil {
		return err
	}
	if err := repo.Create(ctx, entry); err != nil {
		r.logger.Error("Failed to record audit entry", "action", entry.Action, "error", err)
		return err
	}
	r.logger.Debug("Audit entry recorded",
		"action", entry.Action,
		"subject_type", entry.SubjectType,
		"subject_id", entry.SubjectID,
	)
	return nil
}
