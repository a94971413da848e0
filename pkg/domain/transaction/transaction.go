// Package transaction defines ledger entries and their lifecycle.
//
// Amount is the signed delta applied to the wallet: credits are positive,
// debits negative. A refund carries the negation of the entry it reverses.
package transaction

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/amirasaad/sandbank/pkg/domain"
	"github.com/amirasaad/sandbank/pkg/reference"
	"github.com/google/uuid"
)

var (
	// ErrTransactionNotFound is returned when no transaction matches.
	ErrTransactionNotFound = fmt.Errorf("transaction %w", domain.ErrNotFound)
	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid transaction status transition")
	// ErrNotReversible is returned when a transaction cannot be reversed.
	ErrNotReversible = errors.New("transaction cannot be reversed")
	// ErrInvalidType is returned for unknown transaction types.
	ErrInvalidType = errors.New("invalid transaction type")
)

type Type string

const (
	TypeDeposit    Type = "deposit"
	TypeWithdrawal Type = "withdrawal"
	TypeTransfer   Type = "transfer"
	TypeRefund     Type = "refund"
)

func (t Type) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeTransfer, TypeRefund:
		return true
	}
	return false
}

// Prefix is the reference prefix for the type.
func (t Type) Prefix() string {
	switch t {
	case TypeDeposit:
		return "DEP"
	case TypeWithdrawal:
		return "WDR"
	case TypeTransfer:
		return "TRF"
	case TypeRefund:
		return "RFD"
	}
	return "TXN"
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusReversed  Status = "reversed"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {StatusReversed},
}

// Metadata is the JSON audit trail stored with the row.
type Metadata map[string]any

type Transaction struct {
	ID                   uuid.UUID
	Reference            string
	GroupReference       string
	UserID               uuid.UUID
	WalletID             uuid.UUID
	CounterpartyWalletID *uuid.UUID
	Type                 Type
	Amount               int64
	BalanceAfter         int64
	Status               Status
	Description          string
	Metadata             Metadata
	ReversedBy           *uuid.UUID
	CodeID               *uuid.UUID
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// New builds an entry with a fresh reference.
func New(kind Type, userID, walletID uuid.UUID, amount int64, status Status) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		ID:        uuid.New(),
		Reference: reference.New(kind.Prefix()),
		UserID:    userID,
		WalletID:  walletID,
		Type:      kind,
		Amount:    amount,
		Status:    status,
		Metadata:  Metadata{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewGroupReference returns a reference shared by related legs.
func NewGroupReference(kind Type) string {
	return reference.New("GRP" + kind.Prefix())
}

func (t *Transaction) IsCredit() bool { return t.Amount > 0 }

func (t *Transaction) IsPending() bool { return t.Status == StatusPending }

// Set stores a metadata key.
func (t *Transaction) Set(key string, value any) *Transaction {
	if t.Metadata == nil {
		t.Metadata = Metadata{}
	}
	t.Metadata[key] = value
	return t
}

// TransitionTo moves the entry to status s and appends to its history.
func (t *Transaction) TransitionTo(s Status, actorID uuid.UUID, reason string) error {
	if !slices.Contains(transitions[t.Status], s) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, s)
	}
	now := time.Now().UTC()
	entry := map[string]any{
		"from": string(t.Status),
		"to":   string(s),
		"at":   now.Format(time.RFC3339Nano),
	}
	if actorID != uuid.Nil {
		entry["actor_id"] = actorID.String()
	}
	if reason != "" {
		entry["reason"] = reason
	}
	history, _ := t.Metadata["history"].([]any)
	t.Set("history", append(history, entry))
	t.Status = s
	t.UpdatedAt = now
	return nil
}

// CanReverse reports whether a refund may be posted against the entry.
func (t *Transaction) CanReverse() error {
	if t.Type == TypeRefund {
		return fmt.Errorf("%w: refunds are final", ErrNotReversible)
	}
	if t.Status != StatusCompleted {
		return fmt.Errorf("%w: status is %s", ErrNotReversible, t.Status)
	}
	return nil
}

// ReversalAmount is the delta that undoes the entry.
func (t *Transaction) ReversalAmount() int64 {
	return -t.Amount
}
