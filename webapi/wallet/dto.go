package wallet

import (
	"time"

	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	"github.com/amirasaad/sandbank/pkg/domain/wallet"
	"github.com/amirasaad/sandbank/pkg/money"
	walletsvc "github.com/amirasaad/sandbank/pkg/service/wallet"
	"github.com/shopspring/decimal"
)

// TransferInput represents the request body for a transfer. Amounts are
// decimal strings or numbers with at most two decimals.
type TransferInput struct {
	ToAccountNumber string          `json:"to_account_number" validate:"required,numeric"`
	Amount          decimal.Decimal `json:"amount"`
	PIN             string          `json:"pin" validate:"required"`
	Code            string          `json:"code" validate:"max=32"`
	Description     string          `json:"description" validate:"max=255"`
}

// WithdrawInput represents the request body for a withdrawal request.
type WithdrawInput struct {
	Amount      decimal.Decimal `json:"amount"`
	PIN         string          `json:"pin" validate:"required"`
	Code        string          `json:"code" validate:"max=32"`
	Description string          `json:"description" validate:"max=255"`
}

type WalletResponse struct {
	ID            string    `json:"id"`
	AccountNumber string    `json:"account_number"`
	Balance       string    `json:"balance"`
	LedgerBalance string    `json:"ledger_balance"`
	Held          string    `json:"held"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type TransactionResponse struct {
	ID                   string         `json:"id"`
	Reference            string         `json:"reference"`
	GroupReference       string         `json:"group_reference,omitempty"`
	Type                 string         `json:"type"`
	Amount               string         `json:"amount"`
	BalanceAfter         string         `json:"balance_after"`
	Status               string         `json:"status"`
	Description          string         `json:"description,omitempty"`
	CounterpartyWalletID string         `json:"counterparty_wallet_id,omitempty"`
	ReversedBy           string         `json:"reversed_by,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
}

// TransferResponse carries the sender's debit leg and only the public
// identifiers of the credit leg. The recipient's balance and metadata stay
// private.
type TransferResponse struct {
	Debit  TransactionResponse `json:"debit"`
	Credit CreditLegResponse   `json:"credit"`
}

type CreditLegResponse struct {
	Reference       string `json:"reference"`
	ToAccountNumber string `json:"to_account_number"`
	Amount          string `json:"amount"`
	Status          string `json:"status"`
}

type AccountResponse struct {
	AccountNumber string `json:"account_number"`
	Username      string `json:"username"`
	Names         string `json:"names"`
	Currency      string `json:"currency"`
}

type HistoryResponse struct {
	Items    []TransactionResponse `json:"items"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

func ToWalletResponse(w *wallet.Wallet) WalletResponse {
	return WalletResponse{
		ID:            w.ID.String(),
		AccountNumber: w.AccountNumber,
		Balance:       money.Format(w.Balance),
		LedgerBalance: money.Format(w.LedgerBalance),
		Held:          money.Format(w.Held()),
		Currency:      w.Currency,
		Status:        string(w.Status),
		UpdatedAt:     w.UpdatedAt,
	}
}

func ToTransactionResponse(t *transaction.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:             t.ID.String(),
		Reference:      t.Reference,
		GroupReference: t.GroupReference,
		Type:           string(t.Type),
		Amount:         money.Format(t.Amount),
		BalanceAfter:   money.Format(t.BalanceAfter),
		Status:         string(t.Status),
		Description:    t.Description,
		Metadata:       t.Metadata,
		CreatedAt:      t.CreatedAt,
	}
	if t.CounterpartyWalletID != nil {
		resp.CounterpartyWalletID = t.CounterpartyWalletID.String()
	}
	if t.ReversedBy != nil {
		resp.ReversedBy = t.ReversedBy.String()
	}
	return resp
}

func ToTransactionResponses(txs []*transaction.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, ToTransactionResponse(t))
	}
	return out
}

func toHistoryResponse(p *walletsvc.Page) HistoryResponse {
	return HistoryResponse{
		Items:    ToTransactionResponses(p.Items),
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
	}
}
