package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a user record in the database.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username    string    `gorm:"uniqueIndex;not null;size:50"`
	Email       string    `gorm:"uniqueIndex;not null;size:255"`
	Password    string    `gorm:"not null"`
	Names       string    `gorm:"size:255"`
	IsAdmin     bool      `gorm:"not null;default:false"`
	Status      string    `gorm:"type:varchar(16);not null;default:'active'"`
	PINHash     string    `gorm:"column:pin_hash"`
	PINAttempts int       `gorm:"column:pin_attempts;not null;default:0"`
	Balance     int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// Wallet represents a wallet record. Balances are in cents.
type Wallet struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	AccountNumber string    `gorm:"uniqueIndex;not null;size:32"`
	Balance       int64     `gorm:"not null;default:0"`
	LedgerBalance int64     `gorm:"not null;default:0"`
	Currency      string    `gorm:"type:varchar(3);not null;default:'USD'"`
	Status        string    `gorm:"type:varchar(16);not null;default:'active'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Wallet) TableName() string {
	return "wallets"
}

// Transaction represents a persisted ledger entry.
type Transaction struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Reference            string         `gorm:"uniqueIndex;not null;size:64"`
	GroupReference       string         `gorm:"index;size:64"`
	UserID               uuid.UUID      `gorm:"type:uuid;index;not null"`
	WalletID             uuid.UUID      `gorm:"type:uuid;index;not null"`
	CounterpartyWalletID *uuid.UUID     `gorm:"type:uuid"`
	Type                 string         `gorm:"type:varchar(16);not null;index"`
	Amount               int64          `gorm:"not null"`
	BalanceAfter         int64          `gorm:"not null"`
	Status               string         `gorm:"type:varchar(16);not null;default:'pending';index"`
	Description          string         `gorm:"size:255"`
	Metadata             map[string]any `gorm:"type:text;serializer:json"`
	ReversedBy           *uuid.UUID     `gorm:"type:uuid"`
	CodeID               *uuid.UUID     `gorm:"type:uuid"`
	CreatedAt            time.Time      `gorm:"index"`
	UpdatedAt            time.Time
}

func (Transaction) TableName() string {
	return "transactions"
}

// TransactionCode represents an issued authorization code.
type TransactionCode struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Code          string     `gorm:"uniqueIndex;not null;size:32"`
	Type          string     `gorm:"type:varchar(16);not null"`
	Amount        *int64     `gorm:"column:amount"`
	UserID        *uuid.UUID `gorm:"type:uuid;index"`
	ExpiresAt     time.Time  `gorm:"not null"`
	UsedAt        *time.Time
	UsedBy        *uuid.UUID `gorm:"type:uuid"`
	TransactionID *uuid.UUID `gorm:"type:uuid"`
	RevokedAt     *time.Time
	IssuedBy      uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (TransactionCode) TableName() string {
	return "transaction_codes"
}

// AuditLog is append only.
type AuditLog struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	ActorID     *uuid.UUID     `gorm:"type:uuid;index"`
	Action      string         `gorm:"size:64;not null;index"`
	SubjectType string         `gorm:"size:32;index:idx_audit_subject"`
	SubjectID   string         `gorm:"size:64;index:idx_audit_subject"`
	Properties  map[string]any `gorm:"type:text;serializer:json"`
	IPAddress   string         `gorm:"column:ip_address;size:64"`
	CreatedAt   time.Time      `gorm:"index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// Models lists every persisted model for auto-migration.
func Models() []any {
	return []any{
		&User{},
		&Wallet{},
		&Transaction{},
		&TransactionCode{},
		&AuditLog{},
	}
}
