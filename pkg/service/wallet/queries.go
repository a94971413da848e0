package wallet

import (
	"context"
	"strings"
	"time"

	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	"github.com/amirasaad/sandbank/pkg/domain/wallet"
	"github.com/google/uuid"
)

const maxPageSize = 100

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// GetWallet returns the wallet owned by userID.
func (s *Service) GetWallet(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	wallets, err := s.uow.WalletRepository()
	if err != nil {
		return nil, err
	}
	return wallets.GetByUserID(ctx, userID)
}

func (s *Service) GetByAccountNumber(ctx context.Context, accountNumber string) (*wallet.Wallet, error) {
	wallets, err := s.uow.WalletRepository()
	if err != nil {
		return nil, err
	}
	return wallets.GetByAccountNumber(ctx, strings.TrimSpace(accountNumber))
}

// LookupAccount resolves an account number to its holder so a sender can
// confirm the recipient. Closed wallets are reported as not found.
func (s *Service) LookupAccount(ctx context.Context, accountNumber string) (*AccountSummary, error) {
	w, err := s.GetByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if w.Status == wallet.StatusClosed {
		return nil, wallet.ErrWalletNotFound
	}
	users, err := s.uow.UserRepository()
	if err != nil {
		return nil, err
	}
	u, err := users.Get(ctx, w.UserID)
	if err != nil {
		return nil, err
	}
	return &AccountSummary{
		AccountNumber: w.AccountNumber,
		Username:      u.Username,
		Names:         u.Names,
		Currency:      w.Currency,
	}, nil
}

// History returns a page of the caller's ledger entries, newest first.
func (s *Service) History(
	ctx context.Context,
	userID uuid.UUID,
	page, pageSize int,
) (*Page, error) {
	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	page, pageSize = normalizePage(page, pageSize)
	txs, err := s.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	items, total, err := txs.ListByWallet(ctx, w.ID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// GetTransaction returns one entry. Non-admin callers only see their own.
func (s *Service) GetTransaction(
	ctx context.Context,
	userID, id uuid.UUID,
	asAdmin bool,
) (*transaction.Transaction, error) {
	txs, err := s.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	txn, err := txs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !asAdmin && txn.UserID != userID {
		return nil, transaction.ErrTransactionNotFound
	}
	return txn, nil
}

// ExpireStaleWithdrawals fails pending withdrawals older than maxAge and
// releases their holds. Each withdrawal is released in its own unit of
// work. It returns how many were expired.
func (s *Service) ExpireStaleWithdrawals(ctx context.Context, maxAge time.Duration) (int, error) {
	logger := s.logger.With("handler", "ExpireStaleWithdrawals", "max_age", maxAge)
	txs, err := s.uow.TransactionRepository()
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-maxAge)
	stale, err := txs.ListPendingBefore(ctx, transaction.TypeWithdrawal, cutoff)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, txn := range stale {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if _, err := s.FailWithdrawal(ctx, uuid.Nil, txn.ID, "expired"); err != nil {
			logger.Warn("Failed to expire withdrawal", "reference", txn.Reference, "error", err)
			continue
		}
		expired++
	}
	if expired > 0 {
		logger.Info("Stale withdrawals expired", "count", expired)
	}
	return expired, nil
}
