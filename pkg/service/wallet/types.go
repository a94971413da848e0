package wallet

import (
	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	"github.com/google/uuid"
)

// FundInput credits a wallet on behalf of an administrator. A deposit
// code, when given, must be valid for the wallet owner.
type FundInput struct {
	ActorID       uuid.UUID
	AccountNumber string
	Amount        int64
	Code          string
	Description   string
}

// WithdrawalInput places a hold on the caller's wallet. Code is optional
// unless withdrawals require one.
type WithdrawalInput struct {
	UserID      uuid.UUID
	Amount      int64
	PIN         string
	Code        string
	Description string
}

// TransferInput moves funds from the caller's wallet to another account.
type TransferInput struct {
	UserID          uuid.UUID
	ToAccountNumber string
	Amount          int64
	PIN             string
	Code            string
	Description     string
}

// TransferResult holds both legs of a transfer.
type TransferResult struct {
	Debit  *transaction.Transaction
	Credit *transaction.Transaction
}

// AccountSummary is the public view of an account used to confirm a
// transfer recipient.
type AccountSummary struct {
	AccountNumber string
	Username      string
	Names         string
	Currency      string
}

// Page is one page of ledger entries.
type Page struct {
	Items    []*transaction.Transaction
	Total    int64
	Page     int
	PageSize int
}
