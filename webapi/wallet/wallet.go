// Package wallet exposes the caller's wallet, history, transfers and
// withdrawal requests.
package wallet

import (
	"github.com/amirasaad/sandbank/pkg/money"
	walletsvc "github.com/amirasaad/sandbank/pkg/service/wallet"
	"github.com/amirasaad/sandbank/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// WalletRoutes mounts the wallet endpoints on an authenticated group.
func WalletRoutes(r fiber.Router, walletSvc *walletsvc.Service) {
	r.Get("/", GetWallet(walletSvc))
	r.Get("/transactions", History(walletSvc))
	r.Get("/transactions/:id", GetTransaction(walletSvc))
	r.Post("/transfer", Transfer(walletSvc))
	r.Post("/withdraw", Withdraw(walletSvc))
	r.Post("/withdrawals/:id/cancel", CancelWithdrawal(walletSvc))
	r.Get("/lookup/:account", Lookup(walletSvc))
}

// GetWallet returns the balances of the caller's wallet.
// @Summary Get wallet
// @Tags wallet
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Router /wallet [get]
// @Security Bearer
func GetWallet(walletSvc *walletsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		w, err := walletSvc.GetWallet(c.Context(), common.CurrentUser(c).ID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to load wallet", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Wallet fetched", ToWalletResponse(w))
	}
}

// History lists ledger entries, newest first.
// @Summary Transaction history
// @Tags wallet
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} common.Response
// @Router /wallet/transactions [get]
// @Security Bearer
func History(walletSvc *walletsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, size := common.Pagination(c)
		p, err := walletSvc.History(c.Context(), common.CurrentUser(c).ID, page, size)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list transactions", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transactions fetched", toHistoryResponse(p))
	}
}

// GetTransaction returns one of the caller's transactions.
// @Summary Get transaction
// @Tags wallet
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} common.Response
// @Failure 404 {object} common.ProblemDetails
// @Router /wallet/transactions/{id} [get]
// @Security Bearer
func GetTransaction(walletSvc *walletsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid transaction ID", err)
		}
		u := common.CurrentUser(c)
		txn, err := walletSvc.GetTransaction(c.Context(), u.ID, id, u.IsAdmin)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to load transaction", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transaction fetched", ToTransactionResponse(txn))
	}
}

// Transfer moves funds to another account number.
// @Summary Transfer funds
// @Tags wallet
// @Accept json
// @Produce json
// @Param request body TransferInput true "Transfer details"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Failure 423 {object} common.ProblemDetails
// @Router /wallet/transfer [post]
// @Security Bearer
func Transfer(walletSvc *walletsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[TransferInput](c)
		if input == nil {
			return err
		}
		amount, err := money.Parse(input.Amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		res, err := walletSvc.Transfer(c.Context(), walletsvc.TransferInput{
			UserID:          common.CurrentUser(c).ID,
			ToAccountNumber: input.ToAccountNumber,
			Amount:          amount,
			PIN:             input.PIN,
			Code:            input.Code,
			Description:     input.Description,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Transfer failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Transfer completed", TransferResponse{
			Debit: ToTransactionResponse(res.Debit),
			Credit: CreditLegResponse{
				Reference:       res.Credit.Reference,
				ToAccountNumber: input.ToAccountNumber,
				Amount:          money.Format(res.Credit.Amount),
				Status:          string(res.Credit.Status),
			},
		})
	}
}

// Withdraw places a hold for a withdrawal that an administrator settles.
// @Summary Request withdrawal
// @Tags wallet
// @Accept json
// @Produce json
// @Param request body WithdrawInput true "Withdrawal details"
// @Success 202 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Router /wallet/withdraw [post]
// @Security Bearer
func Withdraw(walletSvc *walletsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[WithdrawInput](c)
		if input == nil {
			return err
		}
		amount, err := money.Parse(input.Amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		txn, err := walletSvc.RequestWithdrawal(c.Context(), walletsvc.WithdrawalInput{
			UserID:      common.CurrentUser(c).ID,
			Amount:      amount,
			PIN:         input.PIN,
			Code:        input.Code,
			Description: input.Description,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Withdrawal failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusAccepted, "Withdrawal pending", ToTransactionResponse(txn))
	}
}

// CancelWithdrawal releases the hold of the caller's pending withdrawal.
// @Summary Cancel withdrawal
// @Tags wallet
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} common.Response
// @Failure 404 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Router /wallet/withdrawals/{id}/cancel [post]
// @Security Bearer
func CancelWithdrawal(walletSvc *walletsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid transaction ID", err)
		}
		u := common.CurrentUser(c)
		txn, err := walletSvc.CancelWithdrawal(c.Context(), u.ID, id, false)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Cancel failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Withdrawal cancelled", ToTransactionResponse(txn))
	}
}

// Lookup confirms the recipient of an account number before a transfer.
// @Summary Look up account
// @Tags wallet
// @Produce json
// @Param account path string true "Account number"
// @Success 200 {object} common.Response
// @Failure 404 {object} common.ProblemDetails
// @Router /wallet/lookup/{account} [get]
// @Security Bearer
func Lookup(walletSvc *walletsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summary, err := walletSvc.LookupAccount(c.Context(), c.Params("account"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Account lookup failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account found", AccountResponse{
			AccountNumber: summary.AccountNumber,
			Username:      summary.Username,
			Names:         summary.Names,
			Currency:      summary.Currency,
		})
	}
}
