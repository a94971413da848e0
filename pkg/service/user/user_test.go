package user_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/amirasaad/sandbank/pkg/domain"
	"github.com/amirasaad/sandbank/pkg/domain/audit"
	"github.com/amirasaad/sandbank/pkg/domain/user"
	"github.com/amirasaad/sandbank/pkg/domain/wallet"
	"github.com/amirasaad/sandbank/pkg/repository"
	auditrepo "github.com/amirasaad/sandbank/pkg/repository/audit"
	coderepo "github.com/amirasaad/sandbank/pkg/repository/code"
	txrepo "github.com/amirasaad/sandbank/pkg/repository/transaction"
	userrepo "github.com/amirasaad/sandbank/pkg/repository/user"
	walletrepo "github.com/amirasaad/sandbank/pkg/repository/wallet"
	usersvc "github.com/amirasaad/sandbank/pkg/service/user"
	"github.com/amirasaad/sandbank/pkg/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	testutils.FastHashing()
	os.Exit(m.Run())
}

func newService(t *testing.T) (*usersvc.Service, repository.UnitOfWork, *gorm.DB) {
	t.Helper()
	uow, db := testutils.NewUoW(t)
	cfg := testutils.TestConfig()
	return usersvc.New(uow, cfg.Bank, testutils.DiscardLogger()), uow, db
}

func TestCreateUser_OpensWallet(t *testing.T) {
	t.Parallel()
	svc, uow, _ := newService(t)
	admin := uuid.New()

	u, w, err := svc.CreateUser(context.Background(), admin, usersvc.CreateInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
		Names:    "Alice A",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, u.ID, w.UserID)
	assert.Len(t, w.AccountNumber, 10)
	assert.Equal(t, "10", w.AccountNumber[:2])
	assert.Equal(t, "USD", w.Currency)
	assert.Equal(t, wallet.StatusActive, w.Status)

	stored := testutils.Wallet(t, uow, w.ID)
	assert.Zero(t, stored.Balance)

	audits, err := uow.AuditRepository()
	require.NoError(t, err)
	logs, err := audits.ListBySubject(context.Background(), audit.SubjectUser, u.ID.String())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, audit.ActionUserCreated, logs[0].Action)
	assert.Equal(t, admin, *logs[0].ActorID)
}

func TestCreateUser_Duplicates(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, _, err := svc.CreateUser(ctx, uuid.New(), usersvc.CreateInput{Username: "bob", Email: "bob@example.com", Password: "password123"})
	require.NoError(t, err)

	_, _, err = svc.CreateUser(ctx, uuid.New(), usersvc.CreateInput{Username: "bob", Email: "other@example.com", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, _, err = svc.CreateUser(ctx, uuid.New(), usersvc.CreateInput{Username: "bobby", Email: "BOB@example.com", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestCreateUser_Invalid(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService(t)
	_, _, err := svc.CreateUser(context.Background(), uuid.New(), usersvc.CreateInput{Username: "x", Email: "bad", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	t.Parallel()
	svc, uow, _ := newService(t)
	ctx := context.Background()
	cfg := testutils.TestConfig().Admin
	cfg.Username, cfg.Email, cfg.Password = "root", "root@example.com", "rootpass123"

	require.NoError(t, svc.EnsureAdmin(ctx, cfg))
	require.NoError(t, svc.EnsureAdmin(ctx, cfg))

	users, err := uow.UserRepository()
	require.NoError(t, err)
	list, total, err := users.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.True(t, list[0].IsAdmin)
}

func TestUpdateProfileAndList(t *testing.T) {
	t.Parallel()
	svc, uow, _ := newService(t)
	ctx := context.Background()
	u, _ := testutils.SeedUser(t, uow, "carol")
	testutils.SeedUser(t, uow, "dave")

	updated, err := svc.UpdateProfile(ctx, u.ID, "Carol C")
	require.NoError(t, err)
	assert.Equal(t, "Carol C", updated.Names)

	got, err := svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carol C", got.Names)

	list, total, err := svc.ListUsers(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 1)

	_, err = svc.UpdateProfile(ctx, uuid.New(), "nobody")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestChangeStatus(t *testing.T) {
	t.Parallel()
	svc, uow, _ := newService(t)
	ctx := context.Background()
	admin, _ := testutils.SeedUser(t, uow, "admin", testutils.AsAdmin())
	u, _ := testutils.SeedUser(t, uow, "erin")

	got, err := svc.ChangeStatus(ctx, admin.ID, u.ID, user.StatusSuspended, "kyc review")
	require.NoError(t, err)
	assert.Equal(t, user.StatusSuspended, got.Status)

	_, err = svc.ChangeStatus(ctx, admin.ID, u.ID, "banned", "")
	assert.ErrorIs(t, err, user.ErrInvalidStatus)

	_, err = svc.ChangeStatus(ctx, admin.ID, admin.ID, user.StatusSuspended, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	stored := testutils.User(t, uow, u.ID)
	stored.PINAttempts = 3
	stored.Status = user.StatusLocked
	users, _ := uow.UserRepository()
	require.NoError(t, users.Update(ctx, stored))

	got, err = svc.ChangeStatus(ctx, admin.ID, u.ID, user.StatusActive, "unlock")
	require.NoError(t, err)
	assert.Zero(t, got.PINAttempts)
}

func TestSetPIN(t *testing.T) {
	t.Parallel()
	svc, uow, _ := newService(t)
	ctx := context.Background()
	u, _ := testutils.SeedUser(t, uow, "frank")

	assert.ErrorIs(t, svc.SetPIN(ctx, u.ID, "wrong-password", "1234"), user.ErrUserUnauthorized)
	assert.ErrorIs(t, svc.SetPIN(ctx, u.ID, testutils.DefaultPassword, "12"), user.ErrInvalidPINFormat)
	require.NoError(t, svc.SetPIN(ctx, u.ID, testutils.DefaultPassword, "4321"))

	stored := testutils.User(t, uow, u.ID)
	require.NoError(t, stored.VerifyPIN("4321", 3))
}

func TestDeleteUser(t *testing.T) {
	t.Parallel()
	svc, uow, _ := newService(t)
	ctx := context.Background()
	admin, _ := testutils.SeedUser(t, uow, "admin", testutils.AsAdmin())
	rich, _ := testutils.SeedUser(t, uow, "rich", testutils.WithBalance(100))
	empty, emptyWallet := testutils.SeedUser(t, uow, "empty")

	assert.ErrorIs(t, svc.DeleteUser(ctx, admin.ID, rich.ID), domain.ErrConflict)
	assert.ErrorIs(t, svc.DeleteUser(ctx, admin.ID, admin.ID), domain.ErrForbidden)

	require.NoError(t, svc.DeleteUser(ctx, admin.ID, empty.ID))
	_, err := svc.GetUser(ctx, empty.ID)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
	assert.Equal(t, wallet.StatusClosed, testutils.Wallet(t, uow, emptyWallet.ID).Status)

	assert.ErrorIs(t, svc.DeleteUser(ctx, admin.ID, uuid.New()), user.ErrUserNotFound)
}

// mockUoW is a testify mock that fails Do.
type mockUoW struct {
	mock.Mock
}

func (m *mockUoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}
func (m *mockUoW) UserRepository() (userrepo.Repository, error)     { return nil, nil }
func (m *mockUoW) WalletRepository() (walletrepo.Repository, error) { return nil, nil }
func (m *mockUoW) TransactionRepository() (txrepo.Repository, error) {
	return nil, nil
}
func (m *mockUoW) CodeRepository() (coderepo.Repository, error)   { return nil, nil }
func (m *mockUoW) AuditRepository() (auditrepo.Repository, error) { return nil, nil }

func TestCreateUser_UnitOfWorkError(t *testing.T) {
	t.Parallel()
	uow := &mockUoW{}
	boom := errors.New("db unavailable")
	uow.On("Do", mock.Anything, mock.Anything).Return(boom)
	svc := usersvc.New(uow, testutils.TestConfig().Bank, testutils.DiscardLogger())

	u, w, err := svc.CreateUser(context.Background(), uuid.New(), usersvc.CreateInput{
		Username: "ghost", Email: "ghost@example.com", Password: "password123",
	})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, u)
	assert.Nil(t, w)
	uow.AssertExpectations(t)
}
