package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action names recorded in the audit log.
const (
	ActionLogin              = "auth.login"
	ActionLoginFailed        = "auth.login_failed"
	ActionOTPIssued          = "auth.otp_issued"
	ActionOTPVerified        = "auth.otp_verified"
	ActionUserCreated        = "user.created"
	ActionUserUpdated        = "user.updated"
	ActionUserStatusChanged  = "user.status_changed"
	ActionUserDeleted        = "user.deleted"
	ActionPINSet             = "user.pin_set"
	ActionPINFailed          = "user.pin_failed"
	ActionPINLocked          = "user.pin_locked"
	ActionWalletFunded       = "wallet.funded"
	ActionWithdrawalRequest  = "withdrawal.requested"
	ActionWithdrawalComplete = "withdrawal.completed"
	ActionWithdrawalFailed   = "withdrawal.failed"
	ActionWithdrawalCancel   = "withdrawal.cancelled"
	ActionTransfer           = "transfer.completed"
	ActionReversal           = "transaction.reversed"
	ActionCodeIssued         = "code.issued"
	ActionCodeRedeemed       = "code.redeemed"
	ActionCodeRevoked        = "code.revoked"
	ActionBackup             = "system.backup"
)

// Subject types.
const (
	SubjectUser        = "user"
	SubjectWallet      = "wallet"
	SubjectTransaction = "transaction"
	SubjectCode        = "transaction_code"
)

// Log is an append-only audit entry. ActorID is nil for system actions.
type Log struct {
	ID          uuid.UUID
	ActorID     *uuid.UUID
	Action      string
	SubjectType string
	SubjectID   string
	Properties  map[string]any
	IPAddress   string
	CreatedAt   time.Time
}

func New(actorID uuid.UUID, action string) *Log {
	l := &Log{
		ID:         uuid.New(),
		Action:     action,
		Properties: map[string]any{},
		CreatedAt:  time.Now().UTC(),
	}
	if actorID != uuid.Nil {
		l.ActorID = &actorID
	}
	return l
}

func (l *Log) On(subjectType string, subjectID uuid.UUID) *Log {
	l.SubjectType = subjectType
	l.SubjectID = subjectID.String()
	return l
}

func (l *Log) With(key string, value any) *Log {
	l.Properties[key] = value
	return l
}

func (l *Log) From(ip string) *Log {
	l.IPAddress = ip
	return l
}
