// Package events defines the ledger notifications published once a unit of
// work has committed.
package events

import (
	"time"

	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	"github.com/google/uuid"
)

type Type string

const (
	WalletFunded        Type = "wallet.funded"
	WithdrawalRequested Type = "withdrawal.requested"
	WithdrawalCompleted Type = "withdrawal.completed"
	WithdrawalFailed    Type = "withdrawal.failed"
	WithdrawalCancelled Type = "withdrawal.cancelled"
	TransferCompleted   Type = "transfer.completed"
	TransactionReversed Type = "transaction.reversed"
)

func (t Type) String() string { return string(t) }

// Event describes one ledger entry after a change. A transfer or reversal
// publishes one event per leg, all sharing GroupReference.
type Event struct {
	ID             uuid.UUID  `json:"id"`
	Type           Type       `json:"type"`
	TransactionID  uuid.UUID  `json:"transaction_id"`
	Reference      string     `json:"reference"`
	GroupReference string     `json:"group_reference,omitempty"`
	UserID         uuid.UUID  `json:"user_id"`
	WalletID       uuid.UUID  `json:"wallet_id"`
	ActorID        *uuid.UUID `json:"actor_id,omitempty"`
	Amount         int64      `json:"amount"`
	BalanceAfter   int64      `json:"balance_after"`
	Status         string     `json:"status"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

// FromTransaction builds an event for txn. A nil actor means the system.
func FromTransaction(kind Type, txn *transaction.Transaction, actorID uuid.UUID) Event {
	e := Event{
		ID:             uuid.New(),
		Type:           kind,
		TransactionID:  txn.ID,
		Reference:      txn.Reference,
		GroupReference: txn.GroupReference,
		UserID:         txn.UserID,
		WalletID:       txn.WalletID,
		Amount:         txn.Amount,
		BalanceAfter:   txn.BalanceAfter,
		Status:         string(txn.Status),
		OccurredAt:     time.Now().UTC(),
	}
	if actorID != uuid.Nil {
		e.ActorID = &actorID
	}
	return e
}

// ForWithdrawalStatus maps the final status of a withdrawal to its event.
func ForWithdrawalStatus(s transaction.Status) Type {
	switch s {
	case transaction.StatusCompleted:
		return WithdrawalCompleted
	case transaction.StatusCancelled:
		return WithdrawalCancelled
	default:
		return WithdrawalFailed
	}
}
