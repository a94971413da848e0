package admin

import (
	"time"

	"github.com/amirasaad/sandbank/pkg/domain/code"
	"github.com/amirasaad/sandbank/pkg/money"
	userapi "github.com/amirasaad/sandbank/webapi/user"
	walletapi "github.com/amirasaad/sandbank/webapi/wallet"
	"github.com/shopspring/decimal"
)

// CreateUserInput represents the request body for provisioning a user.
type CreateUserInput struct {
	Username string `json:"username" validate:"required,max=50,min=3"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Names    string `json:"names" validate:"max=100"`
	IsAdmin  bool   `json:"is_admin"`
}

type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=active suspended locked"`
	Reason string `json:"reason" validate:"max=255"`
}

type FundInput struct {
	Amount      decimal.Decimal `json:"amount"`
	Code        string          `json:"code" validate:"max=32"`
	Description string          `json:"description" validate:"max=255"`
}

// NoteInput carries the optional reason of an administrative action.
type NoteInput struct {
	Reason string `json:"reason" validate:"max=255"`
}

// IssueCodeInput restricts a code to a transaction type and optionally to
// an exact amount and user. TTL is a Go duration such as "2h".
type IssueCodeInput struct {
	Type   string           `json:"type" validate:"required,oneof=deposit withdrawal transfer"`
	Amount *decimal.Decimal `json:"amount"`
	UserID string           `json:"user_id" validate:"omitempty,uuid"`
	TTL    string           `json:"ttl"`
}

type UserDetailResponse struct {
	User   userapi.UserResponse      `json:"user"`
	Wallet *walletapi.WalletResponse `json:"wallet,omitempty"`
}

type ListResponse[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

type CodeResponse struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	Type          string     `json:"type"`
	Amount        *string    `json:"amount,omitempty"`
	UserID        *string    `json:"user_id,omitempty"`
	State         string     `json:"state"`
	ExpiresAt     time.Time  `json:"expires_at"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	TransactionID *string    `json:"transaction_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toCodeResponse(c *code.Code, now time.Time) CodeResponse {
	resp := CodeResponse{
		ID:        c.ID.String(),
		Code:      c.Code,
		Type:      string(c.Type),
		State:     string(c.State(now)),
		ExpiresAt: c.ExpiresAt,
		UsedAt:    c.UsedAt,
		CreatedAt: c.CreatedAt,
	}
	if c.Amount != nil {
		amount := money.Format(*c.Amount)
		resp.Amount = &amount
	}
	if c.UserID != nil {
		id := c.UserID.String()
		resp.UserID = &id
	}
	if c.TransactionID != nil {
		id := c.TransactionID.String()
		resp.TransactionID = &id
	}
	return resp
}
