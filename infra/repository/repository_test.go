package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/amirasaad/sandbank/pkg/domain"
	"github.com/amirasaad/sandbank/pkg/domain/audit"
	"github.com/amirasaad/sandbank/pkg/domain/code"
	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	"github.com/amirasaad/sandbank/pkg/domain/user"
	"github.com/amirasaad/sandbank/pkg/domain/wallet"
	"github.com/amirasaad/sandbank/pkg/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type RepositoryTestSuite struct {
	suite.Suite
	db  *gorm.DB
	ctx context.Context
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupTest() {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.Require().NoError(db.AutoMigrate(Models()...))
	s.T().Cleanup(func() { _ = sqlDB.Close() })
	s.db = db
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) newUser(name string) *user.User {
	u := &user.User{
		ID:        uuid.New(),
		Username:  name,
		Email:     name + "@example.com",
		Password:  "hash",
		Status:    user.StatusActive,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.Require().NoError(NewUserRepository(s.db).Create(s.ctx, u))
	return u
}

func (s *RepositoryTestSuite) newWallet(u *user.User, number string) *wallet.Wallet {
	w, err := wallet.New(u.ID, number, "USD")
	s.Require().NoError(err)
	s.Require().NoError(NewWalletRepository(s.db).Create(s.ctx, w))
	return w
}

func (s *RepositoryTestSuite) TestUser_CRUD() {
	repo := NewUserRepository(s.db)
	u := s.newUser("alice")

	got, err := repo.GetByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(u.ID, got.ID)
	s.Equal(user.StatusActive, got.Status)

	got.Names = "Alice A"
	got.PINHash = "pinhash"
	got.PINAttempts = 2
	got.Status = user.StatusLocked
	s.Require().NoError(repo.Update(s.ctx, got))
	s.Require().NoError(repo.SetBalance(s.ctx, u.ID, 1234))

	got, err = repo.GetByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal("Alice A", got.Names)
	s.Equal("pinhash", got.PINHash)
	s.Equal(2, got.PINAttempts)
	s.Equal(user.StatusLocked, got.Status)
	s.Equal(int64(1234), got.Balance)

	exists, err := repo.ExistsByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(exists)

	s.Require().NoError(repo.Delete(s.ctx, u.ID))
	_, err = repo.Get(s.ctx, u.ID)
	s.ErrorIs(err, user.ErrUserNotFound)
	s.ErrorIs(repo.Delete(s.ctx, u.ID), user.ErrUserNotFound)
}

func (s *RepositoryTestSuite) TestUser_UpdateKeepsBalance() {
	repo := NewUserRepository(s.db)
	u := s.newUser("grace")

	stale, err := repo.Get(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Require().NoError(repo.SetBalance(s.ctx, u.ID, 5000))

	stale.PINAttempts = 1
	s.Require().NoError(repo.Update(s.ctx, stale))

	got, err := repo.GetForUpdate(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(int64(5000), got.Balance)
	s.Equal(1, got.PINAttempts)

	_, err = repo.GetForUpdate(s.ctx, uuid.New())
	s.ErrorIs(err, user.ErrUserNotFound)
}

func (s *RepositoryTestSuite) TestUser_DuplicateUsername() {
	s.newUser("bob")
	dup := &user.User{ID: uuid.New(), Username: "bob", Email: "other@example.com", Password: "x", Status: user.StatusActive}
	err := NewUserRepository(s.db).Create(s.ctx, dup)
	s.ErrorIs(err, domain.ErrAlreadyExists)
}

func (s *RepositoryTestSuite) TestUser_List() {
	for i := range 5 {
		s.newUser(fmt.Sprintf("user%d", i))
	}
	users, total, err := NewUserRepository(s.db).List(s.ctx, 2, 2)
	s.Require().NoError(err)
	s.Equal(int64(5), total)
	s.Len(users, 2)
}

func (s *RepositoryTestSuite) TestWallet_GetAndUpdate() {
	repo := NewWalletRepository(s.db)
	u := s.newUser("carol")
	w := s.newWallet(u, "1000000001")

	s.Require().NoError(w.Credit(900))
	s.Require().NoError(w.Hold(400))
	s.Require().NoError(repo.Update(s.ctx, w))

	got, err := repo.GetByAccountNumberForUpdate(s.ctx, "1000000001")
	s.Require().NoError(err)
	s.Equal(int64(500), got.Balance)
	s.Equal(int64(900), got.LedgerBalance)

	got, err = repo.GetByUserID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(w.ID, got.ID)

	exists, err := repo.ExistsByAccountNumber(s.ctx, "1000000001")
	s.Require().NoError(err)
	s.True(exists)

	_, err = repo.Get(s.ctx, uuid.New())
	s.ErrorIs(err, wallet.ErrWalletNotFound)
	s.ErrorIs(repo.Update(s.ctx, &wallet.Wallet{ID: uuid.New()}), wallet.ErrWalletNotFound)
}

func (s *RepositoryTestSuite) TestTransaction_Lifecycle() {
	repo := NewTransactionRepository(s.db)
	u := s.newUser("dave")
	w := s.newWallet(u, "1000000002")

	tx := transaction.New(transaction.TypeWithdrawal, u.ID, w.ID, -300, transaction.StatusPending)
	tx.Set("actor_id", u.ID.String())
	s.Require().NoError(repo.Create(s.ctx, tx))

	pending, err := repo.SumPending(s.ctx, w.ID)
	s.Require().NoError(err)
	s.Equal(int64(-300), pending)

	s.Require().NoError(tx.TransitionTo(transaction.StatusCompleted, u.ID, "paid"))
	s.Require().NoError(repo.Update(s.ctx, tx))

	got, err := repo.GetByReference(s.ctx, tx.Reference)
	s.Require().NoError(err)
	s.Equal(transaction.StatusCompleted, got.Status)
	s.Equal(u.ID.String(), got.Metadata["actor_id"])
	history, ok := got.Metadata["history"].([]any)
	s.Require().True(ok)
	s.Len(history, 1)

	pending, err = repo.SumPending(s.ctx, w.ID)
	s.Require().NoError(err)
	s.Zero(pending)

	_, err = repo.GetForUpdate(s.ctx, uuid.New())
	s.ErrorIs(err, transaction.ErrTransactionNotFound)
}

func (s *RepositoryTestSuite) TestTransaction_DuplicateReference() {
	repo := NewTransactionRepository(s.db)
	u := s.newUser("erin")
	w := s.newWallet(u, "1000000003")

	tx := transaction.New(transaction.TypeDeposit, u.ID, w.ID, 100, transaction.StatusCompleted)
	s.Require().NoError(repo.Create(s.ctx, tx))
	dup := transaction.New(transaction.TypeDeposit, u.ID, w.ID, 100, transaction.StatusCompleted)
	dup.Reference = tx.Reference
	s.ErrorIs(repo.Create(s.ctx, dup), domain.ErrAlreadyExists)
}

func (s *RepositoryTestSuite) TestTransaction_ListQueries() {
	repo := NewTransactionRepository(s.db)
	u := s.newUser("frank")
	w := s.newWallet(u, "1000000004")

	group := transaction.NewGroupReference(transaction.TypeTransfer)
	for i := range 3 {
		tx := transaction.New(transaction.TypeTransfer, u.ID, w.ID, int64(-(i+1)*100), transaction.StatusCompleted)
		tx.GroupReference = group
		s.Require().NoError(repo.Create(s.ctx, tx))
	}
	old := transaction.New(transaction.TypeWithdrawal, u.ID, w.ID, -50, transaction.StatusPending)
	old.CreatedAt = time.Now().UTC().Add(-100 * time.Hour)
	s.Require().NoError(repo.Create(s.ctx, old))
	fresh := transaction.New(transaction.TypeWithdrawal, u.ID, w.ID, -60, transaction.StatusPending)
	s.Require().NoError(repo.Create(s.ctx, fresh))

	page, total, err := repo.ListByWallet(s.ctx, w.ID, 1, 2)
	s.Require().NoError(err)
	s.Equal(int64(5), total)
	s.Len(page, 2)
	s.Equal(fresh.ID, page[0].ID)

	legs, err := repo.ListByGroup(s.ctx, group)
	s.Require().NoError(err)
	s.Len(legs, 3)
	s.Equal(int64(-300), legs[0].Amount)

	stale, err := repo.ListPendingBefore(s.ctx, transaction.TypeWithdrawal, time.Now().UTC().Add(-72*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(stale, 1)
	s.Equal(old.ID, stale[0].ID)
}

func (s *RepositoryTestSuite) TestCode_RedeemAndList() {
	repo := NewCodeRepository(s.db)
	amount := int64(500)
	c, err := code.New("ABCD2345", transaction.TypeTransfer, &amount, nil, time.Hour, uuid.New())
	s.Require().NoError(err)
	s.Require().NoError(repo.Create(s.ctx, c))

	got, err := repo.GetByCodeForUpdate(s.ctx, "ABCD2345")
	s.Require().NoError(err)
	s.Require().NotNil(got.Amount)
	s.Equal(amount, *got.Amount)
	s.Nil(got.UserID)

	s.Require().NoError(got.Redeem(uuid.New(), uuid.New(), time.Now().UTC()))
	s.Require().NoError(repo.Update(s.ctx, got))

	got, err = repo.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(code.StateUsed, got.State(time.Now()))

	list, total, err := repo.List(s.ctx, 1, 10)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Len(list, 1)

	_, err = repo.GetByCodeForUpdate(s.ctx, "MISSING")
	s.ErrorIs(err, code.ErrCodeNotFound)
}

func (s *RepositoryTestSuite) TestAudit_AppendAndQuery() {
	repo := NewAuditRepository(s.db)
	subject := uuid.New()
	s.Require().NoError(repo.Create(s.ctx, audit.New(uuid.New(), audit.ActionWalletFunded).On(audit.SubjectWallet, subject).With("amount", "5.00")))
	s.Require().NoError(repo.Create(s.ctx, audit.New(uuid.Nil, audit.ActionWithdrawalFailed)))

	logs, err := repo.ListBySubject(s.ctx, audit.SubjectWallet, subject.String())
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Equal("5.00", logs[0].Properties["amount"])

	logs, err = repo.ListByAction(s.ctx, audit.ActionWithdrawalFailed)
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Nil(logs[0].ActorID)
}

func TestUoW_SQLiteRollback(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(Models()...))

	uow := NewUoW(db)
	u := &user.User{ID: uuid.New(), Username: "rollback", Email: "r@example.com", Password: "x", Status: user.StatusActive}
	err = uow.Do(context.Background(), func(txUow repository.UnitOfWork) error {
		users, err := txUow.UserRepository()
		require.NoError(t, err)
		require.NoError(t, users.Create(context.Background(), u))
		return wallet.ErrInsufficientFunds
	})
	require.ErrorIs(t, err, wallet.ErrInsufficientFunds)

	users, _ := uow.UserRepository()
	_, err = users.Get(context.Background(), u.ID)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}
