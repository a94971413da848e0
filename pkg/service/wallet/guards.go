package wallet

import (
	"context"
	"errors"
	"strings"

	"github.com/amirasaad/sandbank/pkg/domain/audit"
	"github.com/amirasaad/sandbank/pkg/domain/code"
	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	"github.com/amirasaad/sandbank/pkg/domain/user"
	"github.com/amirasaad/sandbank/pkg/repository"
	"github.com/google/uuid"
)

// verifyPIN checks the transaction PIN in its own unit of work, so failed
// attempts and a resulting lock are committed even though the operation
// that asked for the check is refused.
func (s *Service) verifyPIN(ctx context.Context, userID uuid.UUID, pin string) error {
	var verifyErr error
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		u, err := users.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if err := u.CanTransact(); err != nil {
			return err
		}
		attempts := u.PINAttempts
		verifyErr = u.VerifyPIN(pin, s.bank.PINMaxAttempts)
		switch {
		case errors.Is(verifyErr, user.ErrPINNotSet):
			return nil
		case verifyErr == nil && attempts == 0:
			return nil
		}
		if err := users.Update(ctx, u); err != nil {
			return err
		}
		if verifyErr == nil {
			return nil
		}
		action := audit.ActionPINFailed
		if errors.Is(verifyErr, user.ErrPINLocked) {
			action = audit.ActionPINLocked
			s.logger.Warn("User locked after invalid pin attempts", "user_id", userID)
		}
		return s.audit.Record(ctx, uow, audit.New(userID, action).
			On(audit.SubjectUser, userID).
			With("attempts", u.PINAttempts))
	})
	if err != nil {
		return err
	}
	return verifyErr
}

// redeemCode validates and consumes a transaction code for txn inside
// the caller's unit of work. It returns nil when no code was given and
// none is required.
func (s *Service) redeemCode(
	ctx context.Context,
	uow repository.UnitOfWork,
	value string,
	txn *transaction.Transaction,
	amount int64,
) error {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		if s.bank.CodeRequired(string(txn.Type)) {
			return code.ErrCodeRequired
		}
		return nil
	}
	codes, err := uow.CodeRepository()
	if err != nil {
		return err
	}
	c, err := codes.GetByCodeForUpdate(ctx, value)
	if err != nil {
		return err
	}
	now := s.now()
	if err := c.ValidateFor(txn.Type, txn.UserID, amount, now); err != nil {
		return err
	}
	if err := c.Redeem(txn.UserID, txn.ID, now); err != nil {
		return err
	}
	if err := codes.Update(ctx, c); err != nil {
		return err
	}
	txn.CodeID = &c.ID
	txn.Set("code", c.Code)
	return s.audit.Record(ctx, uow, audit.New(txn.UserID, audit.ActionCodeRedeemed).
		On(audit.SubjectCode, c.ID).
		With("transaction_reference", txn.Reference))
}
