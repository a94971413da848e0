package wallet

import (
	"bytes"
	"context"
	"slices"

	"github.com/amirasaad/sandbank/pkg/domain/audit"
	"github.com/amirasaad/sandbank/pkg/domain/events"
	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	"github.com/amirasaad/sandbank/pkg/domain/wallet"
	"github.com/amirasaad/sandbank/pkg/repository"
	"github.com/google/uuid"
)

// Reverse posts refunds against a completed entry and every other leg of
// its group. The originals move to reversed. Reversal fails as a whole if
// any wallet cannot cover its refund.
func (s *Service) Reverse(
	ctx context.Context,
	actorID, id uuid.UUID,
	reason string,
) (refunds []*transaction.Transaction, err error) {
	logger := s.logger.With("handler", "Reverse", "transaction_id", id, "actor_id", actorID)
	logger.Info("Reverse started")
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		txRepo, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		walletRepo, err := uow.WalletRepository()
		if err != nil {
			return err
		}
		origin, err := txRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := origin.CanReverse(); err != nil {
			return err
		}

		legs := []*transaction.Transaction{origin}
		if origin.GroupReference != "" {
			group, err := txRepo.ListByGroup(ctx, origin.GroupReference)
			if err != nil {
				return err
			}
			for _, leg := range group {
				if leg.ID == origin.ID {
					continue
				}
				locked, err := txRepo.GetForUpdate(ctx, leg.ID)
				if err != nil {
					return err
				}
				if err := locked.CanReverse(); err != nil {
					return err
				}
				legs = append(legs, locked)
			}
		}

		ids := make([]uuid.UUID, 0, len(legs))
		for _, leg := range legs {
			if !slices.Contains(ids, leg.WalletID) {
				ids = append(ids, leg.WalletID)
			}
		}
		slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
		wallets := make(map[uuid.UUID]*wallet.Wallet, len(ids))
		locked := make([]*wallet.Wallet, 0, len(ids))
		for _, wid := range ids {
			w, err := walletRepo.GetForUpdate(ctx, wid)
			if err != nil {
				return err
			}
			if w.Status == wallet.StatusClosed {
				return wallet.ErrWalletInactive
			}
			wallets[wid] = w
			locked = append(locked, w)
		}

		group := transaction.NewGroupReference(transaction.TypeRefund)
		for _, leg := range legs {
			w := wallets[leg.WalletID]
			if err := w.Apply(leg.ReversalAmount()); err != nil {
				return err
			}
			refund := transaction.New(transaction.TypeRefund, leg.UserID, leg.WalletID, leg.ReversalAmount(), transaction.StatusCompleted)
			refund.GroupReference = group
			refund.CounterpartyWalletID = leg.CounterpartyWalletID
			refund.BalanceAfter = w.Balance
			refund.Description = reason
			refund.Set("reverses", leg.Reference).Set("actor_id", actorID.String())

			if err := leg.TransitionTo(transaction.StatusReversed, actorID, reason); err != nil {
				return err
			}
			leg.ReversedBy = &refund.ID
			leg.Set("reversed_by_reference", refund.Reference)
			refunds = append(refunds, refund)
		}

		if err := s.persist(ctx, uow, locked...); err != nil {
			return err
		}
		if err := s.record(ctx, uow, refunds...); err != nil {
			return err
		}
		if err := s.update(ctx, uow, legs...); err != nil {
			return err
		}
		return s.audit.Record(ctx, uow, audit.New(actorID, audit.ActionReversal).
			On(audit.SubjectTransaction, origin.ID).
			With("reference", origin.Reference).
			With("refund_group_reference", group).
			With("reason", reason))
	})
	if err != nil {
		logger.Error("Reverse failed", "error", err)
		return nil, err
	}
	logger.Info("Reverse successful", "refunds", len(refunds))
	s.publish(ctx, events.TransactionReversed, actorID, refunds...)
	return refunds, nil
}
