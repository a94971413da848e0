package events

import (
	"testing"

	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFromTransaction(t *testing.T) {
	txn := transaction.New(transaction.TypeDeposit, uuid.New(), uuid.New(), 500, transaction.StatusCompleted)
	txn.BalanceAfter = 500
	actor := uuid.New()

	e := FromTransaction(WalletFunded, txn, actor)
	assert.Equal(t, WalletFunded, e.Type)
	assert.Equal(t, txn.ID, e.TransactionID)
	assert.Equal(t, txn.Reference, e.Reference)
	assert.Equal(t, int64(500), e.Amount)
	assert.Equal(t, int64(500), e.BalanceAfter)
	assert.Equal(t, "completed", e.Status)
	assert.Equal(t, &actor, e.ActorID)
	assert.NotEqual(t, uuid.Nil, e.ID)

	assert.Nil(t, FromTransaction(WithdrawalFailed, txn, uuid.Nil).ActorID)
}

func TestForWithdrawalStatus(t *testing.T) {
	assert.Equal(t, WithdrawalCompleted, ForWithdrawalStatus(transaction.StatusCompleted))
	assert.Equal(t, WithdrawalCancelled, ForWithdrawalStatus(transaction.StatusCancelled))
	assert.Equal(t, WithdrawalFailed, ForWithdrawalStatus(transaction.StatusFailed))
}
