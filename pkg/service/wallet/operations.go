package wallet

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/amirasaad/sandbank/pkg/domain/audit"
	"github.com/amirasaad/sandbank/pkg/domain/events"
	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	"github.com/amirasaad/sandbank/pkg/domain/wallet"
	"github.com/amirasaad/sandbank/pkg/money"
	"github.com/amirasaad/sandbank/pkg/repository"
	walletrepo "github.com/amirasaad/sandbank/pkg/repository/wallet"
	"github.com/google/uuid"
)

// Fund credits a wallet. Deposits complete immediately.
func (s *Service) Fund(
	ctx context.Context,
	in FundInput,
) (txn *transaction.Transaction, err error) {
	logger := s.logger.With("handler", "Fund", "account_number", in.AccountNumber, "actor_id", in.ActorID, "amount", in.Amount)
	logger.Info("Fund started")
	if err := checkAmount(in.Amount); err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		wallets, err := uow.WalletRepository()
		if err != nil {
			return err
		}
		w, err := wallets.GetByAccountNumberForUpdate(ctx, strings.TrimSpace(in.AccountNumber))
		if err != nil {
			return err
		}
		if err := w.CanTransact(); err != nil {
			return err
		}
		if err := w.Credit(in.Amount); err != nil {
			return err
		}
		txn = transaction.New(transaction.TypeDeposit, w.UserID, w.ID, in.Amount, transaction.StatusCompleted)
		txn.BalanceAfter = w.Balance
		txn.Description = in.Description
		txn.Set("actor_id", in.ActorID.String())
		if err := s.redeemCode(ctx, uow, in.Code, txn, in.Amount); err != nil {
			return err
		}

		if err := s.persist(ctx, uow, w); err != nil {
			return err
		}
		if err := s.record(ctx, uow, txn); err != nil {
			return err
		}
		return s.audit.Record(ctx, uow, audit.New(in.ActorID, audit.ActionWalletFunded).
			On(audit.SubjectWallet, w.ID).
			With("reference", txn.Reference).
			With("amount", money.Format(in.Amount)))
	})
	if err != nil {
		logger.Error("Fund failed", "error", err)
		return nil, err
	}
	logger.Info("Fund successful", "reference", txn.Reference, "balance", txn.BalanceAfter)
	s.publish(ctx, events.WalletFunded, in.ActorID, txn)
	return txn, nil
}

// RequestWithdrawal holds funds on the caller's wallet and records a
// pending withdrawal for an administrator to complete.
func (s *Service) RequestWithdrawal(
	ctx context.Context,
	in WithdrawalInput,
) (txn *transaction.Transaction, err error) {
	logger := s.logger.With("handler", "RequestWithdrawal", "user_id", in.UserID, "amount", in.Amount)
	logger.Info("RequestWithdrawal started")
	if err := checkAmount(in.Amount); err != nil {
		return nil, err
	}
	if err := wallet.CheckLimit(in.Amount, s.bank.MaxTransactionAmount); err != nil {
		return nil, err
	}
	if err := s.verifyPIN(ctx, in.UserID, in.PIN); err != nil {
		logger.Warn("RequestWithdrawal refused", "error", err)
		return nil, err
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		w, err := s.lockOwnWallet(ctx, uow, in.UserID)
		if err != nil {
			return err
		}
		if err := w.CanTransact(); err != nil {
			return err
		}
		if err := w.Hold(in.Amount); err != nil {
			return err
		}
		txn = transaction.New(transaction.TypeWithdrawal, in.UserID, w.ID, -in.Amount, transaction.StatusPending)
		txn.BalanceAfter = w.Balance
		txn.Description = in.Description
		if err := s.redeemCode(ctx, uow, in.Code, txn, in.Amount); err != nil {
			return err
		}
		if err := s.persist(ctx, uow, w); err != nil {
			return err
		}
		if err := s.record(ctx, uow, txn); err != nil {
			return err
		}
		return s.audit.Record(ctx, uow, audit.New(in.UserID, audit.ActionWithdrawalRequest).
			On(audit.SubjectTransaction, txn.ID).
			With("reference", txn.Reference).
			With("amount", money.Format(in.Amount)))
	})
	if err != nil {
		logger.Error("RequestWithdrawal failed", "error", err)
		return nil, err
	}
	logger.Info("RequestWithdrawal successful", "reference", txn.Reference)
	s.publish(ctx, events.WithdrawalRequested, in.UserID, txn)
	return txn, nil
}

// CompleteWithdrawal settles a pending withdrawal against the ledger
// balance.
func (s *Service) CompleteWithdrawal(
	ctx context.Context,
	actorID, id uuid.UUID,
	note string,
) (txn *transaction.Transaction, err error) {
	logger := s.logger.With("handler", "CompleteWithdrawal", "transaction_id", id, "actor_id", actorID)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var w *wallet.Wallet
		txn, w, err = s.lockWithdrawal(ctx, uow, id)
		if err != nil {
			return err
		}
		if err := txn.TransitionTo(transaction.StatusCompleted, actorID, note); err != nil {
			return err
		}
		if err := w.Settle(-txn.Amount); err != nil {
			return err
		}
		txn.BalanceAfter = w.Balance
		if err := s.persist(ctx, uow, w); err != nil {
			return err
		}
		if err := s.update(ctx, uow, txn); err != nil {
			return err
		}
		return s.audit.Record(ctx, uow, audit.New(actorID, audit.ActionWithdrawalComplete).
			On(audit.SubjectTransaction, txn.ID).
			With("reference", txn.Reference))
	})
	if err != nil {
		logger.Error("CompleteWithdrawal failed", "error", err)
		return nil, err
	}
	logger.Info("CompleteWithdrawal successful", "reference", txn.Reference)
	s.publish(ctx, events.WithdrawalCompleted, actorID, txn)
	return txn, nil
}

// FailWithdrawal rejects a pending withdrawal and releases its hold.
func (s *Service) FailWithdrawal(
	ctx context.Context,
	actorID, id uuid.UUID,
	reason string,
) (*transaction.Transaction, error) {
	return s.releaseWithdrawal(ctx, actorID, id, transaction.StatusFailed, audit.ActionWithdrawalFailed, reason, nil)
}

// CancelWithdrawal withdraws a pending request. Only the owner or an
// administrator may cancel; other callers see ErrTransactionNotFound.
func (s *Service) CancelWithdrawal(
	ctx context.Context,
	actorID, id uuid.UUID,
	asAdmin bool,
) (*transaction.Transaction, error) {
	owner := func(txn *transaction.Transaction) error {
		if !asAdmin && txn.UserID != actorID {
			return transaction.ErrTransactionNotFound
		}
		return nil
	}
	return s.releaseWithdrawal(ctx, actorID, id, transaction.StatusCancelled, audit.ActionWithdrawalCancel, "", owner)
}

func (s *Service) releaseWithdrawal(
	ctx context.Context,
	actorID, id uuid.UUID,
	status transaction.Status,
	action, reason string,
	authorize func(*transaction.Transaction) error,
) (txn *transaction.Transaction, err error) {
	logger := s.logger.With("handler", "releaseWithdrawal", "transaction_id", id, "status", status, "actor_id", actorID)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var w *wallet.Wallet
		txn, w, err = s.lockWithdrawal(ctx, uow, id)
		if err != nil {
			return err
		}
		if authorize != nil {
			if err := authorize(txn); err != nil {
				return err
			}
		}
		if err := txn.TransitionTo(status, actorID, reason); err != nil {
			return err
		}
		if err := w.Release(-txn.Amount); err != nil {
			return err
		}
		txn.BalanceAfter = w.Balance
		if err := s.persist(ctx, uow, w); err != nil {
			return err
		}
		if err := s.update(ctx, uow, txn); err != nil {
			return err
		}
		return s.audit.Record(ctx, uow, audit.New(actorID, action).
			On(audit.SubjectTransaction, txn.ID).
			With("reference", txn.Reference).
			With("reason", reason))
	})
	if err != nil {
		logger.Error("Release withdrawal failed", "error", err)
		return nil, err
	}
	logger.Info("Withdrawal hold released", "reference", txn.Reference)
	s.publish(ctx, events.ForWithdrawalStatus(status), actorID, txn)
	return txn, nil
}

// Transfer moves funds to another account and records a debit and a
// credit leg sharing one group reference.
func (s *Service) Transfer(
	ctx context.Context,
	in TransferInput,
) (res *TransferResult, err error) {
	logger := s.logger.With("handler", "Transfer", "user_id", in.UserID, "to", in.ToAccountNumber, "amount", in.Amount)
	logger.Info("Transfer started")
	if err := checkAmount(in.Amount); err != nil {
		return nil, err
	}
	if err := wallet.CheckLimit(in.Amount, s.bank.MaxTransactionAmount); err != nil {
		return nil, err
	}
	if err := s.verifyPIN(ctx, in.UserID, in.PIN); err != nil {
		logger.Warn("Transfer refused", "error", err)
		return nil, err
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		wallets, err := uow.WalletRepository()
		if err != nil {
			return err
		}
		own, err := wallets.GetByUserID(ctx, in.UserID)
		if err != nil {
			return err
		}
		target, err := wallets.GetByAccountNumber(ctx, strings.TrimSpace(in.ToAccountNumber))
		if err != nil {
			return err
		}
		if own.ID == target.ID {
			return wallet.ErrSameWallet
		}
		from, to, err := lockPair(ctx, wallets, own.ID, target.ID)
		if err != nil {
			return err
		}
		if err := from.CanTransact(); err != nil {
			return err
		}
		if err := to.CanTransact(); err != nil {
			return fmt.Errorf("recipient: %w", err)
		}
		if err := from.Debit(in.Amount); err != nil {
			return err
		}
		if err := to.Credit(in.Amount); err != nil {
			return err
		}

		group := transaction.NewGroupReference(transaction.TypeTransfer)
		debit := transaction.New(transaction.TypeTransfer, from.UserID, from.ID, -in.Amount, transaction.StatusCompleted)
		debit.GroupReference = group
		debit.CounterpartyWalletID = &to.ID
		debit.BalanceAfter = from.Balance
		debit.Description = in.Description
		debit.Set("to_account", to.AccountNumber)

		credit := transaction.New(transaction.TypeTransfer, to.UserID, to.ID, in.Amount, transaction.StatusCompleted)
		credit.GroupReference = group
		credit.CounterpartyWalletID = &from.ID
		credit.BalanceAfter = to.Balance
		credit.Description = in.Description
		credit.Set("from_account", from.AccountNumber)

		if err := s.redeemCode(ctx, uow, in.Code, debit, in.Amount); err != nil {
			return err
		}
		if debit.CodeID != nil {
			credit.CodeID = debit.CodeID
		}
		if err := s.persist(ctx, uow, from, to); err != nil {
			return err
		}
		if err := s.record(ctx, uow, debit, credit); err != nil {
			return err
		}
		res = &TransferResult{Debit: debit, Credit: credit}
		return s.audit.Record(ctx, uow, audit.New(in.UserID, audit.ActionTransfer).
			On(audit.SubjectTransaction, debit.ID).
			With("group_reference", group).
			With("to_account", to.AccountNumber).
			With("amount", money.Format(in.Amount)))
	})
	if err != nil {
		logger.Error("Transfer failed", "error", err)
		return nil, err
	}
	logger.Info("Transfer successful", "group_reference", res.Debit.GroupReference)
	s.publish(ctx, events.TransferCompleted, in.UserID, res.Debit, res.Credit)
	return res, nil
}

// lockPair locks two wallets in ascending id order and returns them in
// argument order.
func lockPair(
	ctx context.Context,
	wallets walletrepo.Repository,
	a, b uuid.UUID,
) (*wallet.Wallet, *wallet.Wallet, error) {
	first, second := a, b
	if bytes.Compare(a[:], b[:]) > 0 {
		first, second = b, a
	}
	w1, err := wallets.GetForUpdate(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	w2, err := wallets.GetForUpdate(ctx, second)
	if err != nil {
		return nil, nil, err
	}
	if first == a {
		return w1, w2, nil
	}
	return w2, w1, nil
}

func (s *Service) lockOwnWallet(
	ctx context.Context,
	uow repository.UnitOfWork,
	userID uuid.UUID,
) (*wallet.Wallet, error) {
	wallets, err := uow.WalletRepository()
	if err != nil {
		return nil, err
	}
	w, err := wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return wallets.GetForUpdate(ctx, w.ID)
}

// lockWithdrawal locks a withdrawal entry and then its wallet.
func (s *Service) lockWithdrawal(
	ctx context.Context,
	uow repository.UnitOfWork,
	id uuid.UUID,
) (*transaction.Transaction, *wallet.Wallet, error) {
	txRepo, err := uow.TransactionRepository()
	if err != nil {
		return nil, nil, err
	}
	txn, err := txRepo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if txn.Type != transaction.TypeWithdrawal {
		return nil, nil, fmt.Errorf("%w: %s is not a withdrawal", transaction.ErrInvalidType, txn.Reference)
	}
	wallets, err := uow.WalletRepository()
	if err != nil {
		return nil, nil, err
	}
	w, err := wallets.GetForUpdate(ctx, txn.WalletID)
	if err != nil {
		return nil, nil, err
	}
	return txn, w, nil
}

func (s *Service) update(
	ctx context.Context,
	uow repository.UnitOfWork,
	entries ...*transaction.Transaction,
) error {
	txRepo, err := uow.TransactionRepository()
	if err != nil {
		return err
	}
	for _, txn := range entries {
		if err := txRepo.Update(ctx, txn); err != nil {
			return err
		}
	}
	return nil
}
