// Package user provides business logic for user management: admin
// provisioning with a wallet, profile updates, status changes and PINs.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/sandbank/pkg/config"
	"github.com/amirasaad/sandbank/pkg/domain"
	"github.com/amirasaad/sandbank/pkg/domain/audit"
	"github.com/amirasaad/sandbank/pkg/domain/user"
	"github.com/amirasaad/sandbank/pkg/domain/wallet"
	"github.com/amirasaad/sandbank/pkg/reference"
	"github.com/amirasaad/sandbank/pkg/repository"
	auditsvc "github.com/amirasaad/sandbank/pkg/service/audit"
	"github.com/google/uuid"
)

const accountNumberAttempts = 5

var ErrAccountNumberExhausted = errors.New("could not allocate a unique account number")

// Service provides business logic for user operations.
type Service struct {
	uow    repository.UnitOfWork
	bank   *config.Bank
	audit  *auditsvc.Recorder
	logger *slog.Logger
}

// New creates a new Service with a UnitOfWork and logger.
func New(
	uow repository.UnitOfWork,
	bank *config.Bank,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:    uow,
		bank:   bank,
		audit:  auditsvc.New(logger),
		logger: logger,
	}
}

// CreateInput describes a user provisioned by an administrator.
type CreateInput struct {
	Username string
	Email    string
	Password string
	Names    string
	IsAdmin  bool
}

// CreateUser creates a user and opens their wallet in one transaction.
func (s *Service) CreateUser(
	ctx context.Context,
	actorID uuid.UUID,
	in CreateInput,
) (u *user.User, w *wallet.Wallet, err error) {
	logger := s.logger.With("handler", "CreateUser", "username", in.Username, "actor_id", actorID)
	logger.Info("Creating user")

	u, err = user.New(in.Username, in.Email, in.Password, in.Names)
	if err != nil {
		logger.Warn("Invalid user input", "error", err)
		return nil, nil, err
	}
	u.IsAdmin = in.IsAdmin

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		if exists, err := users.ExistsByUsername(ctx, u.Username); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("%w: username already taken", domain.ErrAlreadyExists)
		}
		if exists, err := users.ExistsByEmail(ctx, u.Email); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("%w: email already registered", domain.ErrAlreadyExists)
		}
		if err := users.Create(ctx, u); err != nil {
			return err
		}

		w, err = s.openWallet(ctx, uow, u.ID)
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, uow, audit.New(actorID, audit.ActionUserCreated).
			On(audit.SubjectUser, u.ID).
			With("username", u.Username).
			With("is_admin", u.IsAdmin).
			With("account_number", w.AccountNumber))
	})
	if err != nil {
		logger.Error("Failed to create user", "error", err)
		return nil, nil, err
	}
	logger.Info("User created", "user_id", u.ID, "account_number", w.AccountNumber)
	return u, w, nil
}

func (s *Service) openWallet(
	ctx context.Context,
	uow repository.UnitOfWork,
	userID uuid.UUID,
) (*wallet.Wallet, error) {
	wallets, err := uow.WalletRepository()
	if err != nil {
		return nil, err
	}
	for range accountNumberAttempts {
		number, err := reference.AccountNumber(s.bank.AccountNumberPrefix, s.bank.AccountNumberLength)
		if err != nil {
			return nil, err
		}
		exists, err := wallets.ExistsByAccountNumber(ctx, number)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		w, err := wallet.New(userID, number, s.bank.Currency)
		if err != nil {
			return nil, err
		}
		if err := wallets.Create(ctx, w); err != nil {
			return nil, err
		}
		return w, nil
	}
	return nil, ErrAccountNumberExhausted
}

// EnsureAdmin creates the seed administrator unless the username exists.
func (s *Service) EnsureAdmin(ctx context.Context, cfg *config.Admin) error {
	if cfg == nil || cfg.Username == "" {
		return nil
	}
	users, err := s.uow.UserRepository()
	if err != nil {
		return err
	}
	exists, err := users.ExistsByUsername(ctx, cfg.Username)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Debug("Seed admin already present", "username", cfg.Username)
		return nil
	}
	_, _, err = s.CreateUser(ctx, uuid.Nil, CreateInput{
		Username: cfg.Username,
		Email:    cfg.Email,
		Password: cfg.Password,
		Names:    "Administrator",
		IsAdmin:  true,
	})
	return err
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(
	ctx context.Context,
	id uuid.UUID,
) (*user.User, error) {
	users, err := s.uow.UserRepository()
	if err != nil {
		return nil, err
	}
	return users.Get(ctx, id)
}

// ListUsers returns a page of users and the total count.
func (s *Service) ListUsers(
	ctx context.Context,
	page, pageSize int,
) ([]*user.User, int64, error) {
	users, err := s.uow.UserRepository()
	if err != nil {
		return nil, 0, err
	}
	return users.List(ctx, page, pageSize)
}

// UpdateProfile changes the display names of a user.
func (s *Service) UpdateProfile(
	ctx context.Context,
	id uuid.UUID,
	names string,
) (u *user.User, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		u, err = users.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		u.Names = names
		if err := users.Update(ctx, u); err != nil {
			return err
		}
		return s.audit.Record(ctx, uow, audit.New(id, audit.ActionUserUpdated).
			On(audit.SubjectUser, id).
			With("names", names))
	})
	if err != nil {
		u = nil
	}
	return
}

// ChangeStatus suspends, locks or reactivates a user. Administrators
// cannot change their own status.
func (s *Service) ChangeStatus(
	ctx context.Context,
	actorID, id uuid.UUID,
	status user.Status,
	reason string,
) (u *user.User, err error) {
	logger := s.logger.With("handler", "ChangeStatus", "user_id", id, "status", status, "actor_id", actorID)
	if actorID == id {
		return nil, fmt.Errorf("%w: cannot change own status", domain.ErrForbidden)
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		u, err = users.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous := u.Status
		if err := u.SetStatus(status); err != nil {
			return err
		}
		if err := users.Update(ctx, u); err != nil {
			return err
		}
		return s.audit.Record(ctx, uow, audit.New(actorID, audit.ActionUserStatusChanged).
			On(audit.SubjectUser, id).
			With("from", string(previous)).
			With("to", string(status)).
			With("reason", reason))
	})
	if err != nil {
		logger.Error("Failed to change user status", "error", err)
		u = nil
		return
	}
	logger.Info("User status changed")
	return
}

// SetPIN sets the transaction PIN after re-checking the password.
func (s *Service) SetPIN(
	ctx context.Context,
	id uuid.UUID,
	password, pin string,
) error {
	logger := s.logger.With("handler", "SetPIN", "user_id", id)
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		u, err := users.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !u.CheckPassword(password) {
			return user.ErrUserUnauthorized
		}
		if err := u.SetPIN(pin); err != nil {
			return err
		}
		if err := users.Update(ctx, u); err != nil {
			return err
		}
		return s.audit.Record(ctx, uow, audit.New(id, audit.ActionPINSet).On(audit.SubjectUser, id))
	})
	if err != nil {
		logger.Warn("Failed to set pin", "error", err)
		return err
	}
	logger.Info("Transaction pin set")
	return nil
}

// DeleteUser soft deletes a user and closes their wallet. The wallet must
// be empty with no pending holds.
func (s *Service) DeleteUser(
	ctx context.Context,
	actorID, id uuid.UUID,
) error {
	logger := s.logger.With("handler", "DeleteUser", "user_id", id, "actor_id", actorID)
	if actorID == id {
		return fmt.Errorf("%w: cannot delete own account", domain.ErrForbidden)
	}
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		wallets, err := uow.WalletRepository()
		if err != nil {
			return err
		}
		u, err := users.Get(ctx, id)
		if err != nil {
			return err
		}
		w, err := wallets.GetByUserID(ctx, id)
		if err != nil && !errors.Is(err, wallet.ErrWalletNotFound) {
			return err
		}
		if w != nil {
			current, err := wallets.GetForUpdate(ctx, w.ID)
			if err != nil {
				return err
			}
			if current.Balance != 0 || current.LedgerBalance != 0 {
				return fmt.Errorf("%w: wallet must be empty before deletion", domain.ErrConflict)
			}
			current.Status = wallet.StatusClosed
			if err := wallets.Update(ctx, current); err != nil {
				return err
			}
		}
		if err := users.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, uow, audit.New(actorID, audit.ActionUserDeleted).
			On(audit.SubjectUser, id).
			With("username", u.Username))
	})
	if err != nil {
		logger.Error("Failed to delete user", "error", err)
		return err
	}
	logger.Info("User deleted")
	return nil
}
