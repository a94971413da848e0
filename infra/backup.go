package infra

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/amirasaad/sandbank/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrBackupUnsupported is returned when the database is not SQLite.
var ErrBackupUnsupported = fmt.Errorf("database backup %w for this driver", domain.ErrNotSupported)

// Backup writes consistent SQLite snapshots.
type Backup struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewBackup(db *gorm.DB, logger *slog.Logger) *Backup {
	return &Backup{db: db, logger: logger}
}

// Backup copies the database into w using VACUUM INTO.
func (b *Backup) Backup(ctx context.Context, w io.Writer) error {
	logger := b.logger.With("handler", "Backup")
	if !IsSQLite(b.db) {
		logger.Warn("Backup requested on non-sqlite database", "dialect", b.db.Dialector.Name())
		return ErrBackupUnsupported
	}

	path := filepath.Join(os.TempDir(), "sandbank-backup-"+uuid.NewString()+".sqlite")
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove backup file", "path", path, "error", err)
		}
	}()

	if err := b.db.WithContext(ctx).Exec("VACUUM INTO ?", path).Error; err != nil {
		logger.Error("VACUUM INTO failed", "error", err)
		return fmt.Errorf("vacuum into: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	n, err := io.Copy(w, f)
	if err != nil {
		logger.Error("Failed to stream backup", "error", err)
		return err
	}
	logger.Info("Backup written", "bytes", n)
	return nil
}
