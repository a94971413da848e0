// Package wallet is the ledger core. Every balance change runs inside one
// unit of work that locks the affected wallet rows, writes the ledger
// entries with unique references, mirrors the balance onto the owner and
// appends an audit entry. Any failure rolls all of it back.
//
// Withdrawals are two-phase. RequestWithdrawal places a hold that lowers
// the available balance only, and CompleteWithdrawal settles it against
// the ledger balance. FailWithdrawal and CancelWithdrawal release it.
//
// Ledger events are published only after the unit of work commits. A
// publish failure is logged and never reported to the caller.
//
// Transfers lock both wallets in ascending id order so two opposite
// transfers cannot deadlock.
package wallet

import (
	"context"
	"log/slog"
	"time"

	"github.com/amirasaad/sandbank/pkg/config"
	"github.com/amirasaad/sandbank/pkg/domain/events"
	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	"github.com/amirasaad/sandbank/pkg/domain/wallet"
	"github.com/amirasaad/sandbank/pkg/eventbus"
	"github.com/amirasaad/sandbank/pkg/repository"
	auditsvc "github.com/amirasaad/sandbank/pkg/service/audit"
	"github.com/google/uuid"
)

type Service struct {
	uow    repository.UnitOfWork
	bank   *config.Bank
	audit  *auditsvc.Recorder
	events eventbus.Publisher
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

// WithPublisher sets where ledger events go. The default discards them.
func WithPublisher(p eventbus.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

func New(
	uow repository.UnitOfWork,
	bank *config.Bank,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		uow:    uow,
		bank:   bank,
		audit:  auditsvc.New(logger),
		events: eventbus.Nop(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// publish emits one event per entry. Call it after the unit of work
// has committed.
func (s *Service) publish(
	ctx context.Context,
	kind events.Type,
	actorID uuid.UUID,
	entries ...*transaction.Transaction,
) {
	evts := make([]events.Event, 0, len(entries))
	for _, txn := range entries {
		evts = append(evts, events.FromTransaction(kind, txn, actorID))
	}
	if err := s.events.Publish(ctx, evts...); err != nil {
		s.logger.Warn("Failed to publish ledger events", "type", kind, "count", len(evts), "error", err)
	}
}

// persist writes the wallets and mirrors their balances onto the owners.
func (s *Service) persist(
	ctx context.Context,
	uow repository.UnitOfWork,
	wallets ...*wallet.Wallet,
) error {
	walletRepo, err := uow.WalletRepository()
	if err != nil {
		return err
	}
	userRepo, err := uow.UserRepository()
	if err != nil {
		return err
	}
	for _, w := range wallets {
		w.UpdatedAt = s.now()
		if err := walletRepo.Update(ctx, w); err != nil {
			return err
		}
		if err := userRepo.SetBalance(ctx, w.UserID, w.Balance); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) record(
	ctx context.Context,
	uow repository.UnitOfWork,
	entries ...*transaction.Transaction,
) error {
	txRepo, err := uow.TransactionRepository()
	if err != nil {
		return err
	}
	for _, tx := range entries {
		if err := txRepo.Create(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

func checkAmount(amount int64) error {
	if amount <= 0 {
		return wallet.ErrAmountMustBePositive
	}
	return nil
}
