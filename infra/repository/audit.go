package repository

import (
	"context"

	"github.com/amirasaad/sandbank/pkg/domain/audit"
	auditrepo "github.com/amirasaad/sandbank/pkg/repository/audit"
	"gorm.io/gorm"
)

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates an append-only audit log repository bound to db.
func NewAuditRepository(db *gorm.DB) auditrepo.Repository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(
	ctx context.Context,
	l *audit.Log,
) error {
	m := AuditLog{
		ID:          l.ID,
		ActorID:     l.ActorID,
		Action:      l.Action,
		SubjectType: l.SubjectType,
		SubjectID:   l.SubjectID,
		Properties:  l.Properties,
		IPAddress:   l.IPAddress,
		CreatedAt:   l.CreatedAt,
	}
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(&m).Error
	})
}

func (r *auditRepository) ListBySubject(
	ctx context.Context,
	subjectType, subjectID string,
) ([]*audit.Log, error) {
	return r.find(r.db.WithContext(ctx).Where(
		"subject_type = ? AND subject_id = ?",
		subjectType,
		subjectID,
	))
}

func (r *auditRepository) ListByAction(
	ctx context.Context,
	action string,
) ([]*audit.Log, error) {
	return r.find(r.db.WithContext(ctx).Where("action = ?", action))
}

func (r *auditRepository) find(db *gorm.DB) ([]*audit.Log, error) {
	var rows []AuditLog
	if err := db.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]*audit.Log, 0, len(rows))
	for _, m := range rows {
		props := m.Properties
		if props == nil {
			props = map[string]any{}
		}
		result = append(result, &audit.Log{
			ID:          m.ID,
			ActorID:     m.ActorID,
			Action:      m.Action,
			SubjectType: m.SubjectType,
			SubjectID:   m.SubjectID,
			Properties:  props,
			IPAddress:   m.IPAddress,
			CreatedAt:   m.CreatedAt,
		})
	}
	return result, nil
}

var _ auditrepo.Repository = (*auditRepository)(nil)
