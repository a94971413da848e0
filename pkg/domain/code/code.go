// Package code models single-use transaction authorization codes issued
// by administrators.
package code

import (
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/sandbank/pkg/domain"
	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	"github.com/google/uuid"
)

var (
	ErrCodeNotFound       = fmt.Errorf("transaction code %w", domain.ErrNotFound)
	ErrCodeRequired       = errors.New("transaction code required")
	ErrCodeUsed           = errors.New("transaction code already used")
	ErrCodeExpired        = errors.New("transaction code expired")
	ErrCodeRevoked        = errors.New("transaction code revoked")
	ErrCodeTypeMismatch   = errors.New("transaction code is not valid for this transaction type")
	ErrCodeAmountMismatch = errors.New("transaction code is not valid for this amount")
	ErrCodeUserMismatch   = errors.New("transaction code is bound to another user")
)

type State string

const (
	StateActive  State = "active"
	StateUsed    State = "used"
	StateExpired State = "expired"
	StateRevoked State = "revoked"
)

type Code struct {
	ID            uuid.UUID
	Code          string
	Type          transaction.Type
	Amount        *int64
	UserID        *uuid.UUID
	ExpiresAt     time.Time
	UsedAt        *time.Time
	UsedBy        *uuid.UUID
	TransactionID *uuid.UUID
	RevokedAt     *time.Time
	IssuedBy      uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New issues a code for transactions of kind. A nil amount or user
// leaves the code unrestricted on that dimension.
func New(
	value string,
	kind transaction.Type,
	amount *int64,
	userID *uuid.UUID,
	ttl time.Duration,
	issuedBy uuid.UUID,
) (*Code, error) {
	if !kind.Valid() || kind == transaction.TypeRefund {
		return nil, fmt.Errorf("%w: codes authorize deposits, withdrawals or transfers", domain.ErrValidation)
	}
	if amount != nil && *amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", domain.ErrValidation)
	}
	now := time.Now().UTC()
	return &Code{
		ID:        uuid.New(),
		Code:      value,
		Type:      kind,
		Amount:    amount,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		IssuedBy:  issuedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (c *Code) State(now time.Time) State {
	switch {
	case c.UsedAt != nil:
		return StateUsed
	case c.RevokedAt != nil:
		return StateRevoked
	case !now.Before(c.ExpiresAt):
		return StateExpired
	}
	return StateActive
}

// ValidateFor checks the code can authorize a transaction of kind and
// amount (absolute cents) by userID at now.
func (c *Code) ValidateFor(kind transaction.Type, userID uuid.UUID, amount int64, now time.Time) error {
	switch c.State(now) {
	case StateUsed:
		return ErrCodeUsed
	case StateRevoked:
		return ErrCodeRevoked
	case StateExpired:
		return ErrCodeExpired
	}
	if c.Type != kind {
		return ErrCodeTypeMismatch
	}
	if c.Amount != nil && *c.Amount != amount {
		return ErrCodeAmountMismatch
	}
	if c.UserID != nil && *c.UserID != userID {
		return ErrCodeUserMismatch
	}
	return nil
}

// Redeem marks the code used by userID for transactionID.
func (c *Code) Redeem(userID, transactionID uuid.UUID, now time.Time) error {
	if c.UsedAt != nil {
		return ErrCodeUsed
	}
	c.UsedAt = &now
	c.UsedBy = &userID
	c.TransactionID = &transactionID
	c.UpdatedAt = now
	return nil
}

func (c *Code) Revoke(now time.Time) error {
	switch c.State(now) {
	case StateUsed:
		return ErrCodeUsed
	case StateRevoked:
		return ErrCodeRevoked
	}
	c.RevokedAt = &now
	c.UpdatedAt = now
	return nil
}
