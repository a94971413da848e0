package transaction

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	tx := New(TypeTransfer, uuid.New(), uuid.New(), -500, StatusCompleted)
	assert.True(t, strings.HasPrefix(tx.Reference, "TRF-"))
	assert.False(t, tx.IsCredit())
	assert.Equal(t, int64(500), tx.ReversalAmount())
	assert.NotNil(t, tx.Metadata)

	other := New(TypeTransfer, uuid.New(), uuid.New(), 500, StatusCompleted)
	assert.NotEqual(t, tx.Reference, other.Reference)
	assert.True(t, strings.HasPrefix(NewGroupReference(TypeRefund), "GRPRFD-"))
}

func TestTransitionTo(t *testing.T) {
	t.Parallel()
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusReversed, false},
		{StatusCompleted, StatusReversed, true},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusCancelled, StatusPending, false},
		{StatusReversed, StatusCompleted, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			t.Parallel()
			tx := New(TypeWithdrawal, uuid.New(), uuid.New(), -100, tc.from)
			err := tx.TransitionTo(tc.to, uuid.New(), "test")
			if !tc.allowed {
				require.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tc.from, tx.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.to, tx.Status)
		})
	}
}

func TestTransitionTo_RecordsHistory(t *testing.T) {
	t.Parallel()
	actor := uuid.New()
	tx := New(TypeWithdrawal, uuid.New(), uuid.New(), -100, StatusPending)
	require.NoError(t, tx.TransitionTo(StatusCompleted, actor, "paid out"))
	require.NoError(t, tx.TransitionTo(StatusReversed, uuid.Nil, ""))

	history, ok := tx.Metadata["history"].([]any)
	require.True(t, ok)
	require.Len(t, history, 2)
	first := history[0].(map[string]any)
	assert.Equal(t, "pending", first["from"])
	assert.Equal(t, "completed", first["to"])
	assert.Equal(t, actor.String(), first["actor_id"])
	assert.Equal(t, "paid out", first["reason"])
	second := history[1].(map[string]any)
	assert.NotContains(t, second, "actor_id")
}

func TestCanReverse(t *testing.T) {
	t.Parallel()
	deposit := New(TypeDeposit, uuid.New(), uuid.New(), 100, StatusCompleted)
	assert.NoError(t, deposit.CanReverse())

	pending := New(TypeWithdrawal, uuid.New(), uuid.New(), -100, StatusPending)
	assert.ErrorIs(t, pending.CanReverse(), ErrNotReversible)

	refund := New(TypeRefund, uuid.New(), uuid.New(), -100, StatusCompleted)
	assert.ErrorIs(t, refund.CanReverse(), ErrNotReversible)
}

func TestTypePrefix(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "DEP", TypeDeposit.Prefix())
	assert.Equal(t, "WDR", TypeWithdrawal.Prefix())
	assert.Equal(t, "RFD", TypeRefund.Prefix())
	assert.False(t, Type("loan").Valid())
}
