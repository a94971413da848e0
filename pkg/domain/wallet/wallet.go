// Package wallet holds the balance arithmetic of a user's account.
//
// Balance is what the holder can spend. LedgerBalance is what the bank
// owes the holder: it trails Balance by the total of pending withdrawal
// holds.
package wallet

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/amirasaad/sandbank/pkg/domain"
	"github.com/google/uuid"
)

var (
	// ErrWalletNotFound is returned when no wallet matches the lookup.
	ErrWalletNotFound = fmt.Errorf("wallet %w", domain.ErrNotFound)
	// ErrWalletInactive is returned when a frozen or closed wallet is used.
	ErrWalletInactive = errors.New("wallet is not active")
	// ErrInsufficientFunds is returned when a debit or hold exceeds the
	// available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAmountMustBePositive is returned for non-positive amounts.
	ErrAmountMustBePositive = errors.New("amount must be positive")
	// ErrBalanceOverflow is returned when a credit would overflow int64.
	ErrBalanceOverflow = errors.New("balance overflow")
	// ErrHoldMismatch is returned when a release or settle does not match
	// an outstanding hold.
	ErrHoldMismatch = errors.New("amount does not match outstanding holds")
	// ErrSameWallet is returned when a transfer targets the sender's wallet.
	ErrSameWallet = errors.New("cannot transfer to the same wallet")
	// ErrInvalidStatus is returned for unknown status values.
	ErrInvalidStatus = errors.New("invalid wallet status")
	// ErrAmountExceedsLimit is returned when an amount is above the
	// configured single transaction limit.
	ErrAmountExceedsLimit = errors.New("amount exceeds transaction limit")
)

type Status string

const (
	StatusActive Status = "active"
	StatusFrozen Status = "frozen"
	StatusClosed Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusFrozen, StatusClosed:
		return true
	}
	return false
}

type Wallet struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	AccountNumber string
	Balance       int64
	LedgerBalance int64
	Currency      string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New opens an empty active wallet.
func New(userID uuid.UUID, accountNumber, currency string) (*Wallet, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if accountNumber == "" {
		return nil, fmt.Errorf("%w: account number is required", domain.ErrValidation)
	}
	if len(currency) != 3 {
		return nil, fmt.Errorf("%w: currency must be a 3 letter code", domain.ErrValidation)
	}
	now := time.Now().UTC()
	return &Wallet{
		ID:            uuid.New(),
		UserID:        userID,
		AccountNumber: accountNumber,
		Currency:      strings.ToUpper(currency),
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CanTransact reports ErrWalletInactive unless the wallet is active.
func (w *Wallet) CanTransact() error {
	if w.Status != StatusActive {
		return ErrWalletInactive
	}
	return nil
}

// Held is the total of outstanding withdrawal holds.
func (w *Wallet) Held() int64 {
	return w.LedgerBalance - w.Balance
}

// Credit adds amount to both balances.
func (w *Wallet) Credit(amount int64) error {
	if amount <= 0 {
		return ErrAmountMustBePositive
	}
	if w.Balance > math.MaxInt64-amount || w.LedgerBalance > math.MaxInt64-amount {
		return ErrBalanceOverflow
	}
	w.Balance += amount
	w.LedgerBalance += amount
	return nil
}

// Debit removes amount from both balances.
func (w *Wallet) Debit(amount int64) error {
	if amount <= 0 {
		return ErrAmountMustBePositive
	}
	if w.Balance < amount {
		return ErrInsufficientFunds
	}
	w.Balance -= amount
	w.LedgerBalance -= amount
	return nil
}

// Hold reserves amount for a pending withdrawal. Only Balance moves.
func (w *Wallet) Hold(amount int64) error {
	if amount <= 0 {
		return ErrAmountMustBePositive
	}
	if w.Balance < amount {
		return ErrInsufficientFunds
	}
	w.Balance -= amount
	return nil
}

// Release returns a held amount to Balance.
func (w *Wallet) Release(amount int64) error {
	if amount <= 0 {
		return ErrAmountMustBePositive
	}
	if amount > w.Held() {
		return ErrHoldMismatch
	}
	w.Balance += amount
	return nil
}

// Settle pays out a held amount. Only LedgerBalance moves.
func (w *Wallet) Settle(amount int64) error {
	if amount <= 0 {
		return ErrAmountMustBePositive
	}
	if amount > w.Held() {
		return ErrHoldMismatch
	}
	w.LedgerBalance -= amount
	return nil
}

// Apply credits a positive delta or debits a negative one.
func (w *Wallet) Apply(delta int64) error {
	switch {
	case delta > 0:
		return w.Credit(delta)
	case delta < 0:
		if delta == math.MinInt64 {
			return ErrBalanceOverflow
		}
		return w.Debit(-delta)
	}
	return ErrAmountMustBePositive
}

// CheckLimit reports ErrAmountExceedsLimit when limit is positive and
// amount is above it.
func CheckLimit(amount, limit int64) error {
	if limit > 0 && amount > limit {
		return ErrAmountExceedsLimit
	}
	return nil
}
