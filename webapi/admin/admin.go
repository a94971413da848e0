// Package admin holds the administrator endpoints: user management,
// deposits, withdrawal settlement, reversals, transaction codes and
// database backups.
package admin

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/sandbank/pkg/app"
	"github.com/amirasaad/sandbank/pkg/domain"
	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	"github.com/amirasaad/sandbank/pkg/domain/user"
	"github.com/amirasaad/sandbank/pkg/money"
	backupsvc "github.com/amirasaad/sandbank/pkg/service/backup"
	codesvc "github.com/amirasaad/sandbank/pkg/service/code"
	usersvc "github.com/amirasaad/sandbank/pkg/service/user"
	walletsvc "github.com/amirasaad/sandbank/pkg/service/wallet"
	"github.com/amirasaad/sandbank/webapi/common"
	userapi "github.com/amirasaad/sandbank/webapi/user"
	walletapi "github.com/amirasaad/sandbank/webapi/wallet"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AdminRoutes mounts the admin endpoints on a group that already checks
// the admin claim.
func AdminRoutes(r fiber.Router, a *app.App) {
	r.Post("/users", CreateUser(a.UserService))
	r.Get("/users", ListUsers(a.UserService))
	r.Get("/users/:id", GetUser(a.UserService, a.WalletService))
	r.Patch("/users/:id/status", ChangeStatus(a.UserService))
	r.Delete("/users/:id", DeleteUser(a.UserService))

	r.Post("/wallets/:account/fund", Fund(a.WalletService))
	r.Post("/withdrawals/:id/complete", CompleteWithdrawal(a.WalletService))
	r.Post("/withdrawals/:id/fail", FailWithdrawal(a.WalletService))
	r.Post("/withdrawals/:id/cancel", CancelWithdrawal(a.WalletService))
	r.Post("/transactions/:id/reverse", Reverse(a.WalletService))

	r.Post("/codes", IssueCode(a.CodeService))
	r.Get("/codes", ListCodes(a.CodeService))
	r.Delete("/codes/:id", RevokeCode(a.CodeService))

	r.Get("/backup", Backup(a.BackupService))
}

// note reads an optional JSON body with a reason.
func note(c *fiber.Ctx) (*NoteInput, error) {
	if len(c.Body()) == 0 {
		return &NoteInput{}, nil
	}
	return common.BindAndValidate[NoteInput](c)
}

// CreateUser provisions a user and opens their wallet.
// @Summary Create user
// @Tags admin
// @Accept json
// @Produce json
// @Param request body CreateUserInput true "User data"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Router /admin/users [post]
// @Security Bearer
func CreateUser(userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[CreateUserInput](c)
		if input == nil {
			return err
		}
		u, w, err := userSvc.CreateUser(c.Context(), common.CurrentUser(c).ID, usersvc.CreateInput{
			Username: input.Username,
			Email:    input.Email,
			Password: input.Password,
			Names:    input.Names,
			IsAdmin:  input.IsAdmin,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to create user", err)
		}
		wallet := walletapi.ToWalletResponse(w)
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "User created", UserDetailResponse{
			User:   userapi.ToUserResponse(u),
			Wallet: &wallet,
		})
	}
}

// @Summary List users
// @Tags admin
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} common.Response
// @Router /admin/users [get]
// @Security Bearer
func ListUsers(userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, size := common.Pagination(c)
		users, total, err := userSvc.ListUsers(c.Context(), page, size)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list users", err)
		}
		items := make([]userapi.UserResponse, 0, len(users))
		for _, u := range users {
			items = append(items, userapi.ToUserResponse(u))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Users fetched",
			ListResponse[userapi.UserResponse]{Items: items, Total: total, Page: page, PageSize: size})
	}
}

// GetUser returns a user with their wallet.
// @Summary Get user
// @Tags admin
// @Param id path string true "User ID"
// @Success 200 {object} common.Response
// @Router /admin/users/{id} [get]
// @Security Bearer
func GetUser(userSvc *usersvc.Service, walletSvc *walletsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", err)
		}
		u, err := userSvc.GetUser(c.Context(), id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to load user", err)
		}
		resp := UserDetailResponse{User: userapi.ToUserResponse(u)}
		w, err := walletSvc.GetWallet(c.Context(), id)
		switch {
		case err == nil:
			wallet := walletapi.ToWalletResponse(w)
			resp.Wallet = &wallet
		case !errors.Is(err, domain.ErrNotFound):
			return common.ProblemDetailsJSON(c, "Failed to load wallet", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "User found", resp)
	}
}

// ChangeStatus suspends, locks or reactivates a user.
// @Summary Change user status
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body StatusInput true "New status"
// @Success 200 {object} common.Response
// @Failure 403 {object} common.ProblemDetails
// @Router /admin/users/{id}/status [patch]
// @Security Bearer
func ChangeStatus(userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", err)
		}
		input, err := common.BindAndValidate[StatusInput](c)
		if input == nil {
			return err
		}
		u, err := userSvc.ChangeStatus(c.Context(), common.CurrentUser(c).ID, id, user.Status(input.Status), input.Reason)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to change status", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "User status changed", userapi.ToUserResponse(u))
	}
}

// DeleteUser soft deletes a user with an empty wallet.
// @Summary Delete user
// @Tags admin
// @Param id path string true "User ID"
// @Success 204
// @Failure 409 {object} common.ProblemDetails
// @Router /admin/users/{id} [delete]
// @Security Bearer
func DeleteUser(userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", err)
		}
		if err := userSvc.DeleteUser(c.Context(), common.CurrentUser(c).ID, id); err != nil {
			return common.ProblemDetailsJSON(c, "Failed to delete user", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// Fund deposits into a wallet by account number.
// @Summary Fund wallet
// @Tags admin
// @Accept json
// @Produce json
// @Param account path string true "Account number"
// @Param request body FundInput true "Deposit"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /admin/wallets/{account}/fund [post]
// @Security Bearer
func Fund(walletSvc *walletsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[FundInput](c)
		if input == nil {
			return err
		}
		amount, err := money.Parse(input.Amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		txn, err := walletSvc.Fund(c.Context(), walletsvc.FundInput{
			ActorID:       common.CurrentUser(c).ID,
			AccountNumber: c.Params("account"),
			Amount:        amount,
			Code:          input.Code,
			Description:   input.Description,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Deposit failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Deposit completed", walletapi.ToTransactionResponse(txn))
	}
}

type transition func(c *fiber.Ctx, id uuid.UUID, reason string) (*transaction.Transaction, error)

// settle adapts a withdrawal state change into a handler.
func settle(title, message string, fn transition) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid transaction ID", err)
		}
		input, err := note(c)
		if input == nil {
			return err
		}
		txn, err := fn(c, id, input.Reason)
		if err != nil {
			return common.ProblemDetailsJSON(c, title, err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, message, walletapi.ToTransactionResponse(txn))
	}
}

// @Summary Complete withdrawal
// @Tags admin
// @Param id path string true "Transaction ID"
// @Success 200 {object} common.Response
// @Failure 422 {object} common.ProblemDetails
// @Router /admin/withdrawals/{id}/complete [post]
// @Security Bearer
func CompleteWithdrawal(walletSvc *walletsvc.Service) fiber.Handler {
	return settle("Complete failed", "Withdrawal completed",
		func(c *fiber.Ctx, id uuid.UUID, reason string) (*transaction.Transaction, error) {
			return walletSvc.CompleteWithdrawal(c.Context(), common.CurrentUser(c).ID, id, reason)
		})
}

// @Summary Fail withdrawal
// @Tags admin
// @Param id path string true "Transaction ID"
// @Success 200 {object} common.Response
// @Router /admin/withdrawals/{id}/fail [post]
// @Security Bearer
func FailWithdrawal(walletSvc *walletsvc.Service) fiber.Handler {
	return settle("Fail failed", "Withdrawal failed",
		func(c *fiber.Ctx, id uuid.UUID, reason string) (*transaction.Transaction, error) {
			return walletSvc.FailWithdrawal(c.Context(), common.CurrentUser(c).ID, id, reason)
		})
}

// @Summary Cancel withdrawal for owner
// @Tags admin
// @Param id path string true "Transaction ID"
// @Success 200 {object} common.Response
// @Router /admin/withdrawals/{id}/cancel [post]
// @Security Bearer
func CancelWithdrawal(walletSvc *walletsvc.Service) fiber.Handler {
	return settle("Cancel failed", "Withdrawal cancelled",
		func(c *fiber.Ctx, id uuid.UUID, _ string) (*transaction.Transaction, error) {
			return walletSvc.CancelWithdrawal(c.Context(), common.CurrentUser(c).ID, id, true)
		})
}

// Reverse refunds a completed deposit, transfer or withdrawal.
// @Summary Reverse transaction
// @Tags admin
// @Param id path string true "Transaction ID"
// @Success 200 {object} common.Response
// @Failure 422 {object} common.ProblemDetails
// @Router /admin/transactions/{id}/reverse [post]
// @Security Bearer
func Reverse(walletSvc *walletsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid transaction ID", err)
		}
		input, err := note(c)
		if input == nil {
			return err
		}
		refunds, err := walletSvc.Reverse(c.Context(), common.CurrentUser(c).ID, id, input.Reason)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Reversal failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transaction reversed", walletapi.ToTransactionResponses(refunds))
	}
}

// IssueCode creates a single-use transaction code.
// @Summary Issue transaction code
// @Tags admin
// @Accept json
// @Produce json
// @Param request body IssueCodeInput true "Code restrictions"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /admin/codes [post]
// @Security Bearer
func IssueCode(codeSvc *codesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[IssueCodeInput](c)
		if input == nil {
			return err
		}
		in := codesvc.IssueInput{ActorID: common.CurrentUser(c).ID, Type: transaction.Type(input.Type)}
		if input.Amount != nil {
			cents, err := money.Parse(*input.Amount)
			if err != nil {
				return common.ProblemDetailsJSON(c, "Invalid amount", err)
			}
			in.Amount = &cents
		}
		if input.UserID != "" {
			id := uuid.MustParse(input.UserID)
			in.UserID = &id
		}
		if input.TTL != "" {
			ttl, err := time.ParseDuration(input.TTL)
			if err != nil || ttl <= 0 {
				return common.ProblemDetailsJSON(c, "Invalid ttl",
					fmt.Errorf("%w: ttl must be a positive duration", domain.ErrValidation))
			}
			in.TTL = ttl
		}
		issued, err := codeSvc.Issue(c.Context(), in)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to issue code", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Code issued", toCodeResponse(issued, time.Now()))
	}
}

// @Summary List transaction codes
// @Tags admin
// @Produce json
// @Success 200 {object} common.Response
// @Router /admin/codes [get]
// @Security Bearer
func ListCodes(codeSvc *codesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, size := common.Pagination(c)
		codes, total, err := codeSvc.List(c.Context(), page, size)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list codes", err)
		}
		now := time.Now()
		items := make([]CodeResponse, 0, len(codes))
		for _, code := range codes {
			items = append(items, toCodeResponse(code, now))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Codes fetched",
			ListResponse[CodeResponse]{Items: items, Total: total, Page: page, PageSize: size})
	}
}

// @Summary Revoke transaction code
// @Tags admin
// @Param id path string true "Code ID"
// @Success 200 {object} common.Response
// @Failure 422 {object} common.ProblemDetails
// @Router /admin/codes/{id} [delete]
// @Security Bearer
func RevokeCode(codeSvc *codesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParseID(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid code ID", err)
		}
		revoked, err := codeSvc.Revoke(c.Context(), common.CurrentUser(c).ID, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to revoke code", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Code revoked", toCodeResponse(revoked, time.Now()))
	}
}

// Backup downloads a snapshot of the SQLite database.
// @Summary Download database backup
// @Tags admin
// @Produce application/octet-stream
// @Success 200 {file} binary
// @Failure 501 {object} common.ProblemDetails
// @Router /admin/backup [get]
// @Security Bearer
func Backup(backupSvc *backupsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		if err := backupSvc.Write(c.Context(), common.CurrentUser(c).ID, &buf); err != nil {
			return common.ProblemDetailsJSON(c, "Backup failed", err)
		}
		name := fmt.Sprintf("sandbank-%s.sqlite", time.Now().UTC().Format("20060102-150405"))
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
		return c.Status(fiber.StatusOK).Send(buf.Bytes())
	}
}
