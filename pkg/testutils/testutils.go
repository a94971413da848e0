// Package testutils builds SQLite-backed fixtures for package tests.
package testutils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amirasaad/sandbank/infra"
	infrarepo "github.com/amirasaad/sandbank/infra/repository"
	"github.com/amirasaad/sandbank/pkg/config"
	"github.com/amirasaad/sandbank/pkg/domain/user"
	"github.com/amirasaad/sandbank/pkg/domain/wallet"
	"github.com/amirasaad/sandbank/pkg/reference"
	"github.com/amirasaad/sandbank/pkg/repository"
	"github.com/amirasaad/sandbank/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultPassword = "password123"

// FastHashing lowers the bcrypt cost for the test binary.
func FastHashing() {
	utils.HashCost = bcrypt.MinCost
}

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestDB opens a migrated private in-memory SQLite database.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, infra.Migrate(db))
	return db
}

// NewUoW returns a unit of work over a fresh test database.
func NewUoW(t testing.TB) (repository.UnitOfWork, *gorm.DB) {
	t.Helper()
	db := NewTestDB(t)
	return infrarepo.NewUoW(db), db
}

// TestConfig returns the configuration used by service and HTTP tests.
func TestConfig() *config.App {
	return &config.App{
		Env:    "test",
		Server: &config.Server{Scheme: "http", Host: "localhost", Port: 3000},
		Log:    &config.Log{Format: "text", TimeFormat: time.RFC3339, Prefix: "[test]"},
		DB:     &config.DB{Url: ":memory:"},
		Auth: &config.Auth{
			Jwt: &config.Jwt{Secret: "test-secret-key-for-jwt", Expiry: time.Hour},
			OTP: &config.OTP{Enabled: false, TTL: 5 * time.Minute, MaxAttempts: 3, Length: 6},
		},
		Redis:     &config.Redis{KeyPrefix: "sandbank-test:"},
		RateLimit: &config.RateLimit{MaxRequests: 1000, Window: time.Minute},
		Bank: &config.Bank{
			Currency:            "USD",
			AccountNumberPrefix: "10",
			AccountNumberLength: 10,
			PINMaxAttempts:      3,
			CodeLength:          10,
			CodeTTL:             24 * time.Hour,
		},
		Admin:     &config.Admin{},
		Scheduler: &config.Scheduler{WithdrawalExpirySchedule: "@every 1h", WithdrawalMaxAge: 72 * time.Hour},
		Events:    &config.Events{Driver: "memory", Consumer: "sandbank-test"},
	}
}

type seedOptions struct {
	admin   bool
	balance int64
	pin     string
	status  user.Status
}

type SeedOption func(*seedOptions)

func AsAdmin() SeedOption { return func(o *seedOptions) { o.admin = true } }

// WithBalance funds the wallet with cents directly, without a ledger entry.
func WithBalance(cents int64) SeedOption { return func(o *seedOptions) { o.balance = cents } }

func WithPIN(pin string) SeedOption { return func(o *seedOptions) { o.pin = pin } }

func WithStatus(s user.Status) SeedOption { return func(o *seedOptions) { o.status = s } }

// SeedUser inserts a user with DefaultPassword and an opened wallet.
func SeedUser(t testing.TB, uow repository.UnitOfWork, username string, opts ...SeedOption) (*user.User, *wallet.Wallet) {
	t.Helper()
	o := seedOptions{status: user.StatusActive}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := user.New(username, username+"@example.com", DefaultPassword, username)
	require.NoError(t, err)
	u.IsAdmin = o.admin
	u.Status = o.status
	u.Balance = o.balance
	if o.pin != "" {
		require.NoError(t, u.SetPIN(o.pin))
	}

	number, err := reference.AccountNumber("10", 10)
	require.NoError(t, err)
	w, err := wallet.New(u.ID, number, "USD")
	require.NoError(t, err)
	w.Balance, w.LedgerBalance = o.balance, o.balance

	err = uow.Do(context.Background(), func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		wallets, err := uow.WalletRepository()
		if err != nil {
			return err
		}
		if err := users.Create(context.Background(), u); err != nil {
			return err
		}
		return wallets.Create(context.Background(), w)
	})
	require.NoError(t, err)
	return u, w
}

// Wallet reloads a wallet by id.
func Wallet(t testing.TB, uow repository.UnitOfWork, id uuid.UUID) *wallet.Wallet {
	t.Helper()
	wallets, err := uow.WalletRepository()
	require.NoError(t, err)
	w, err := wallets.Get(context.Background(), id)
	require.NoError(t, err)
	return w
}

// User reloads a user by id.
func User(t testing.TB, uow repository.UnitOfWork, id uuid.UUID) *user.User {
	t.Helper()
	users, err := uow.UserRepository()
	require.NoError(t, err)
	u, err := users.Get(context.Background(), id)
	require.NoError(t, err)
	return u
}

// AssertLedgerInvariants checks that the user mirror matches the wallet and
// that held funds equal the pending withdrawals.
func AssertLedgerInvariants(t testing.TB, uow repository.UnitOfWork, walletID uuid.UUID) {
	t.Helper()
	w := Wallet(t, uow, walletID)
	u := User(t, uow, w.UserID)
	require.GreaterOrEqual(t, w.Balance, int64(0), "balance must not be negative")
	require.GreaterOrEqual(t, w.LedgerBalance, int64(0), "ledger balance must not be negative")
	require.Equal(t, w.Balance, u.Balance, "user balance must mirror wallet balance")

	txs, err := uow.TransactionRepository()
	require.NoError(t, err)
	pending, err := txs.SumPending(context.Background(), walletID)
	require.NoError(t, err)
	require.Equal(t, w.Held(), -pending, "held funds must equal pending withdrawals")
}
