package reference

import (
	"strings"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	ref := New("DEP")
	require.True(t, strings.HasPrefix(ref, "DEP-"))

	_, err := ulid.Parse(strings.TrimPrefix(ref, "DEP-"))
	require.NoError(t, err)
	assert.Len(t, New(""), 26)
}

func TestNew_MonotonicAndUnique(t *testing.T) {
	t.Parallel()
	prev := New("TRF")
	for range 1000 {
		next := New("TRF")
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestNew_Concurrent(t *testing.T) {
	t.Parallel()
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
		wg   sync.WaitGroup
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				ref := New("WDR")
				mu.Lock()
				seen[ref] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 2000)
}

func TestAccountNumber(t *testing.T) {
	t.Parallel()
	n, err := AccountNumber("10", 10)
	require.NoError(t, err)
	assert.Len(t, n, 10)
	assert.True(t, strings.HasPrefix(n, "10"))
	for _, r := range n {
		assert.True(t, r >= '0' && r <= '9')
	}

	_, err = AccountNumber("1234", 4)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestCode(t *testing.T) {
	t.Parallel()
	c, err := Code(12)
	require.NoError(t, err)
	assert.Len(t, c, 12)
	for _, r := range c {
		assert.True(t, strings.ContainsRune(codeAlphabet, r))
	}

	_, err = Code(0)
	assert.ErrorIs(t, err, ErrInvalidLength)
}
