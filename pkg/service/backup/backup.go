// Package backup streams database snapshots to administrators.
package backup

import (
	"context"
	"io"
	"log/slog"

	"github.com/amirasaad/sandbank/pkg/domain/audit"
	"github.com/amirasaad/sandbank/pkg/repository"
	auditsvc "github.com/amirasaad/sandbank/pkg/service/audit"
	"github.com/google/uuid"
)

// Backuper streams a consistent copy of the database.
type Backuper interface {
	Backup(ctx context.Context, w io.Writer) error
}

type Service struct {
	uow    repository.UnitOfWork
	backup Backuper
	audit  *auditsvc.Recorder
	logger *slog.Logger
}

func New(uow repository.UnitOfWork, backup Backuper, logger *slog.Logger) *Service {
	return &Service{uow: uow, backup: backup, audit: auditsvc.New(logger), logger: logger}
}

// Write streams a snapshot into w and records who took it.
func (s *Service) Write(ctx context.Context, actorID uuid.UUID, w io.Writer) error {
	logger := s.logger.With("handler", "Backup", "actor_id", actorID)
	if err := s.backup.Backup(ctx, w); err != nil {
		logger.Error("Backup failed", "error", err)
		return err
	}
	return s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		return s.audit.Record(ctx, uow, audit.New(actorID, audit.ActionBackup))
	})
}
