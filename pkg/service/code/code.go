// Package code issues and revokes single-use transaction codes.
// Redemption happens inside the wallet service's unit of work.
package code

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amirasaad/sandbank/pkg/config"
	"github.com/amirasaad/sandbank/pkg/domain/audit"
	"github.com/amirasaad/sandbank/pkg/domain/code"
	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	"github.com/amirasaad/sandbank/pkg/money"
	"github.com/amirasaad/sandbank/pkg/reference"
	"github.com/amirasaad/sandbank/pkg/repository"
	coderepo "github.com/amirasaad/sandbank/pkg/repository/code"
	auditsvc "github.com/amirasaad/sandbank/pkg/service/audit"
	"github.com/google/uuid"
)

const issueAttempts = 5

var ErrCodeSpaceExhausted = errors.New("could not generate a unique transaction code")

type Service struct {
	uow    repository.UnitOfWork
	bank   *config.Bank
	audit  *auditsvc.Recorder
	logger *slog.Logger
}

func New(uow repository.UnitOfWork, bank *config.Bank, logger *slog.Logger) *Service {
	return &Service{uow: uow, bank: bank, audit: auditsvc.New(logger), logger: logger}
}

// IssueInput restricts what a code authorizes. Nil Amount or UserID
// leaves that dimension open. A zero TTL uses the configured default.
type IssueInput struct {
	ActorID uuid.UUID
	Type    transaction.Type
	Amount  *int64
	UserID  *uuid.UUID
	TTL     time.Duration
}

func (s *Service) Issue(ctx context.Context, in IssueInput) (c *code.Code, err error) {
	logger := s.logger.With("handler", "Issue", "actor_id", in.ActorID, "type", in.Type)
	ttl := in.TTL
	if ttl == 0 {
		ttl = s.bank.CodeTTL
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		codes, err := uow.CodeRepository()
		if err != nil {
			return err
		}
		if in.UserID != nil {
			users, err := uow.UserRepository()
			if err != nil {
				return err
			}
			if _, err := users.Get(ctx, *in.UserID); err != nil {
				return err
			}
		}
		value, err := s.uniqueValue(ctx, codes)
		if err != nil {
			return err
		}
		c, err = code.New(value, in.Type, in.Amount, in.UserID, ttl, in.ActorID)
		if err != nil {
			return err
		}
		if err := codes.Create(ctx, c); err != nil {
			return err
		}
		entry := audit.New(in.ActorID, audit.ActionCodeIssued).
			On(audit.SubjectCode, c.ID).
			With("type", string(c.Type)).
			With("expires_at", c.ExpiresAt)
		if c.Amount != nil {
			entry.With("amount", money.Format(*c.Amount))
		}
		if c.UserID != nil {
			entry.With("user_id", c.UserID.String())
		}
		return s.audit.Record(ctx, uow, entry)
	})
	if err != nil {
		logger.Error("Issue code failed", "error", err)
		return nil, err
	}
	logger.Info("Transaction code issued", "code_id", c.ID)
	return c, nil
}

func (s *Service) uniqueValue(ctx context.Context, codes coderepo.Repository) (string, error) {
	for range issueAttempts {
		value, err := reference.Code(s.bank.CodeLength)
		if err != nil {
			return "", err
		}
		exists, err := codes.ExistsByCode(ctx, value)
		if err != nil {
			return "", err
		}
		if !exists {
			return value, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

func (s *Service) List(ctx context.Context, page, pageSize int) ([]*code.Code, int64, error) {
	codes, err := s.uow.CodeRepository()
	if err != nil {
		return nil, 0, err
	}
	return codes.List(ctx, page, pageSize)
}

// Revoke disables an unused code.
func (s *Service) Revoke(ctx context.Context, actorID, id uuid.UUID) (c *code.Code, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		codes, err := uow.CodeRepository()
		if err != nil {
			return err
		}
		c, err = codes.Get(ctx, id)
		if err != nil {
			return err
		}
		// lock against a concurrent redemption
		c, err = codes.GetByCodeForUpdate(ctx, c.Code)
		if err != nil {
			return err
		}
		if err := c.Revoke(time.Now().UTC()); err != nil {
			return err
		}
		if err := codes.Update(ctx, c); err != nil {
			return err
		}
		return s.audit.Record(ctx, uow, audit.New(actorID, audit.ActionCodeRevoked).On(audit.SubjectCode, c.ID))
	})
	if err != nil {
		s.logger.Warn("Revoke code failed", "code_id", id, "error", err)
		return nil, err
	}
	return c, nil
}
