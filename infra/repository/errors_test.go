package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/amirasaad/sandbank/pkg/domain"
	"github.com/amirasaad/sandbank/pkg/domain/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMapGormErrorToDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    error
		expected error
	}{
		{
			name:     "nil error returns nil",
			input:    nil,
			expected: nil,
		},
		{
			name:     "duplicate key error maps to ErrAlreadyExists",
			input:    gorm.ErrDuplicatedKey,
			expected: domain.ErrAlreadyExists,
		},
		{
			name:     "record not found error maps to ErrNotFound",
			input:    gorm.ErrRecordNotFound,
			expected: domain.ErrNotFound,
		},
		{
			name:     "wrapped duplicate key error maps correctly",
			input:    fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey),
			expected: domain.ErrAlreadyExists,
		},
		{
			name:     "joined record not found error maps correctly",
			input:    errors.Join(errors.New("outer error"), gorm.ErrRecordNotFound),
			expected: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := MapGormErrorToDomain(tt.input)
			if tt.expected == nil {
				require.NoError(t, result)
				return
			}
			assert.ErrorIs(t, result, tt.expected)
		})
	}
}

func TestMapGormErrorToDomain_Unmapped(t *testing.T) {
	t.Parallel()
	original := errors.New("connection reset")
	assert.Equal(t, original, MapGormErrorToDomain(original))
}

func TestWrapError(t *testing.T) {
	t.Parallel()
	assert.NoError(t, WrapError(func() error { return nil }))
	assert.ErrorIs(t, WrapError(func() error { return gorm.ErrDuplicatedKey }), domain.ErrAlreadyExists)
}

func TestMapNotFound(t *testing.T) {
	t.Parallel()
	err := mapNotFound(gorm.ErrRecordNotFound, wallet.ErrWalletNotFound)
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = mapNotFound(gorm.ErrDuplicatedKey, wallet.ErrWalletNotFound)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.NoError(t, mapNotFound(nil, wallet.ErrWalletNotFound))
}
