package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirasaad/sandbank/pkg/domain"
	"github.com/amirasaad/sandbank/pkg/utils"
	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when a user cannot be found in the
	// repository.
	ErrUserNotFound = fmt.Errorf("user %w", domain.ErrNotFound)
	// ErrUserUnauthorized is returned when credentials do not match.
	ErrUserUnauthorized = errors.New("user unauthorized")
	// ErrUserInactive is returned when a suspended or locked user tries to
	// log in or transact.
	ErrUserInactive = errors.New("user account is not active")
	// ErrInvalidStatus is returned for unknown status values.
	ErrInvalidStatus = errors.New("invalid user status")
	// ErrInvalidPINFormat is returned when a PIN is not 4 to 6 digits.
	ErrInvalidPINFormat = errors.New("pin must be 4 to 6 digits")
	// ErrPINNotSet is returned when a user transacts before setting a PIN.
	ErrPINNotSet = errors.New("transaction pin not set")
	// ErrInvalidPIN is returned when the supplied PIN does not match.
	ErrInvalidPIN = errors.New("invalid transaction pin")
	// ErrPINLocked is returned when too many wrong PINs locked the account.
	ErrPINLocked = errors.New("too many invalid pin attempts, account locked")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusLocked    Status = "locked"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusLocked:
		return true
	}
	return false
}

// User represents a bank customer or administrator.
type User struct {
	ID          uuid.UUID
	Username    string
	Email       string
	Password    string
	Names       string
	IsAdmin     bool
	Status      Status
	PINHash     string
	PINAttempts int
	// Balance mirrors the wallet balance in cents.
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an active user with a hashed password.
func New(username, email, password, names string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", domain.ErrValidation)
	}
	if !utils.IsEmail(email) {
		return nil, fmt.Errorf("%w: invalid email", domain.ErrValidation)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", domain.ErrValidation)
	}
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		Password:  hashedPassword,
		Names:     strings.TrimSpace(names),
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *User) CheckPassword(password string) bool {
	return utils.CheckPasswordHash(password, u.Password)
}

// CanLogin reports ErrUserInactive unless the user is active.
func (u *User) CanLogin() error {
	if u.Status != StatusActive {
		return ErrUserInactive
	}
	return nil
}

func (u *User) CanTransact() error {
	if u.Status == StatusLocked {
		return ErrPINLocked
	}
	return u.CanLogin()
}

// SetStatus changes the status. Reactivating a user clears PIN attempts.
func (u *User) SetStatus(s Status) error {
	if !s.Valid() {
		return ErrInvalidStatus
	}
	u.Status = s
	if s == StatusActive {
		u.PINAttempts = 0
	}
	return nil
}

// SetPIN hashes and stores a 4 to 6 digit PIN.
func (u *User) SetPIN(pin string) error {
	if !validPIN(pin) {
		return ErrInvalidPINFormat
	}
	hash, err := utils.HashPassword(pin)
	if err != nil {
		return err
	}
	u.PINHash = hash
	u.PINAttempts = 0
	return nil
}

// VerifyPIN checks pin and counts failures. After maxAttempts consecutive
// failures the user is locked. A maxAttempts of zero disables locking.
func (u *User) VerifyPIN(pin string, maxAttempts int) error {
	if u.PINHash == "" {
		return ErrPINNotSet
	}
	if u.Status == StatusLocked {
		return ErrPINLocked
	}
	if !utils.CheckPasswordHash(pin, u.PINHash) {
		u.PINAttempts++
		if maxAttempts > 0 && u.PINAttempts >= maxAttempts {
			u.Status = StatusLocked
			return ErrPINLocked
		}
		return ErrInvalidPIN
	}
	u.PINAttempts = 0
	return nil
}

func validPIN(pin string) bool {
	if len(pin) < 4 || len(pin) > 6 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
