package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	infracache "github.com/amirasaad/sandbank/infra/cache"
	"github.com/amirasaad/sandbank/pkg/config"
	"github.com/amirasaad/sandbank/pkg/domain/audit"
	"github.com/amirasaad/sandbank/pkg/domain/user"
	"github.com/amirasaad/sandbank/pkg/repository"
	"github.com/amirasaad/sandbank/pkg/testutils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	testutils.FastHashing()
	os.Exit(m.Run())
}

func newTestService(t *testing.T, otp bool) (*Service, repository.UnitOfWork) {
	t.Helper()
	uow, _ := testutils.NewUoW(t)
	cfg := testutils.TestConfig().Auth
	cfg.OTP.Enabled = otp
	svc := New(uow, cfg, infracache.NewMemoryCache(), testutils.DiscardLogger())
	svc.newOTP = func(int) (string, error) { return "123456", nil }
	return svc, uow
}

func parse(t *testing.T, cfg *config.Auth, token string) *jwt.Token {
	t.Helper()
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return []byte(cfg.Jwt.Secret), nil
	})
	require.NoError(t, err)
	return parsed
}

func auditActions(t *testing.T, uow repository.UnitOfWork, action string) int {
	t.Helper()
	repo, err := uow.AuditRepository()
	require.NoError(t, err)
	logs, err := repo.ListByAction(context.Background(), action)
	require.NoError(t, err)
	return len(logs)
}

func TestLogin_UsernameAndEmail(t *testing.T) {
	t.Parallel()
	svc, uow := newTestService(t, false)
	u, _ := testutils.SeedUser(t, uow, "alice", testutils.AsAdmin())
	ctx := context.Background()

	for _, identity := range []string{"alice", "ALICE@example.com"} {
		res, err := svc.Login(ctx, identity, testutils.DefaultPassword, "10.0.0.1")
		require.NoError(t, err, identity)
		require.NotEmpty(t, res.Token)
		assert.Empty(t, res.ChallengeID)

		claims := parse(t, svc.cfg, res.Token).Claims.(jwt.MapClaims)
		assert.Equal(t, u.ID.String(), claims["user_id"])
		assert.Equal(t, "alice", claims["username"])
		assert.Equal(t, true, claims["is_admin"])
	}
	assert.Equal(t, 2, auditActions(t, uow, audit.ActionLogin))
}

func TestLogin_Failures(t *testing.T) {
	t.Parallel()
	svc, uow := newTestService(t, false)
	testutils.SeedUser(t, uow, "bob")
	testutils.SeedUser(t, uow, "sus", testutils.WithStatus(user.StatusSuspended))
	ctx := context.Background()

	_, err := svc.Login(ctx, "nobody", "whatever", "")
	assert.ErrorIs(t, err, user.ErrUserUnauthorized)

	_, err = svc.Login(ctx, "bob", "wrong-password", "")
	assert.ErrorIs(t, err, user.ErrUserUnauthorized)

	_, err = svc.Login(ctx, "sus", testutils.DefaultPassword, "")
	assert.ErrorIs(t, err, user.ErrUserInactive)

	assert.Equal(t, 3, auditActions(t, uow, audit.ActionLoginFailed))
}

func TestLogin_OTPFlow(t *testing.T) {
	t.Parallel()
	svc, uow := newTestService(t, true)
	u, _ := testutils.SeedUser(t, uow, "carol")
	ctx := context.Background()

	res, err := svc.Login(ctx, "carol", testutils.DefaultPassword, "")
	require.NoError(t, err)
	assert.Empty(t, res.Token)
	require.NotEmpty(t, res.ChallengeID)

	_, err = svc.VerifyOTP(ctx, res.ChallengeID, "000000", "")
	assert.ErrorIs(t, err, ErrInvalidOTP)

	verified, err := svc.VerifyOTP(ctx, res.ChallengeID, "123456", "")
	require.NoError(t, err)
	assert.Equal(t, u.ID, verified.User.ID)
	assert.NotEmpty(t, verified.Token)

	_, err = svc.VerifyOTP(ctx, res.ChallengeID, "123456", "")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
	assert.Equal(t, 1, auditActions(t, uow, audit.ActionOTPVerified))
}

func TestVerifyOTP_AttemptsExhausted(t *testing.T) {
	t.Parallel()
	svc, uow := newTestService(t, true)
	testutils.SeedUser(t, uow, "dave")
	ctx := context.Background()

	res, err := svc.Login(ctx, "dave", testutils.DefaultPassword, "")
	require.NoError(t, err)
	for range svc.cfg.OTP.MaxAttempts {
		_, err = svc.VerifyOTP(ctx, res.ChallengeID, "999999", "")
		require.ErrorIs(t, err, ErrInvalidOTP)
	}
	_, err = svc.VerifyOTP(ctx, res.ChallengeID, "123456", "")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
	assert.ErrorIs(t, err, user.ErrUserUnauthorized)
}

func TestVerifyOTP_ConcurrentGuessesShareBudget(t *testing.T) {
	t.Parallel()
	svc, uow := newTestService(t, true)
	testutils.SeedUser(t, uow, "mallory")
	ctx := context.Background()

	res, err := svc.Login(ctx, "mallory", testutils.DefaultPassword, "")
	require.NoError(t, err)

	const guesses = 30
	var invalid, gone atomic.Int32
	var wg sync.WaitGroup
	for i := range guesses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.VerifyOTP(ctx, res.ChallengeID, fmt.Sprintf("%06d", 900000+i), "")
			switch {
			case errors.Is(err, ErrInvalidOTP):
				invalid.Add(1)
			case errors.Is(err, ErrChallengeNotFound):
				gone.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(svc.cfg.OTP.MaxAttempts), invalid.Load())
	assert.Equal(t, int32(guesses-svc.cfg.OTP.MaxAttempts), gone.Load())
	_, err = svc.VerifyOTP(ctx, res.ChallengeID, "123456", "")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestVerifyOTP_ConcurrentCorrectAnswersIssueOneToken(t *testing.T) {
	t.Parallel()
	svc, uow := newTestService(t, true)
	svc.cfg.OTP.MaxAttempts = 50
	testutils.SeedUser(t, uow, "trent")
	ctx := context.Background()

	res, err := svc.Login(ctx, "trent", testutils.DefaultPassword, "")
	require.NoError(t, err)

	var tokens atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if out, err := svc.VerifyOTP(ctx, res.ChallengeID, "123456", ""); err == nil && out.Token != "" {
				tokens.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), tokens.Load())
	assert.Equal(t, 1, auditActions(t, uow, audit.ActionOTPVerified))
}

func TestVerifyOTP_RedisSharedBudget(t *testing.T) {
	t.Parallel()
	uow, _ := testutils.NewUoW(t)
	cfg := testutils.TestConfig().Auth
	cfg.OTP.Enabled = true
	store := infracache.NewRedisCacheWithClient(testutils.RedisClient(t), "sandbank-test:", testutils.DiscardLogger())
	ctx := context.Background()
	testutils.SeedUser(t, uow, "peggy")

	// two replicas sharing one Redis
	replicas := []*Service{
		New(uow, cfg, store, testutils.DiscardLogger()),
		New(uow, cfg, store, testutils.DiscardLogger()),
	}
	for _, svc := range replicas {
		svc.newOTP = func(int) (string, error) { return "123456", nil }
	}
	res, err := replicas[0].Login(ctx, "peggy", testutils.DefaultPassword, "")
	require.NoError(t, err)

	var invalid atomic.Int32
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := replicas[i%2].VerifyOTP(ctx, res.ChallengeID, "000000", "")
			if errors.Is(err, ErrInvalidOTP) {
				invalid.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(cfg.OTP.MaxAttempts), invalid.Load())
	_, err = replicas[1].VerifyOTP(ctx, res.ChallengeID, "123456", "")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestCurrentUser(t *testing.T) {
	t.Parallel()
	svc, uow := newTestService(t, false)
	u, _ := testutils.SeedUser(t, uow, "erin")
	ctx := context.Background()

	token, expires, err := svc.GenerateToken(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(svc.cfg.Jwt.Expiry), expires, 5*time.Second)

	got, err := svc.CurrentUser(ctx, parse(t, svc.cfg, token))
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	ghost := &user.User{ID: uuid.New(), Username: "ghost"}
	token, _, err = svc.GenerateToken(ghost)
	require.NoError(t, err)
	_, err = svc.CurrentUser(ctx, parse(t, svc.cfg, token))
	assert.ErrorIs(t, err, user.ErrUserUnauthorized)

	_, err = svc.CurrentUser(ctx, nil)
	assert.ErrorIs(t, err, user.ErrUserUnauthorized)
}

func TestUserIDFromToken_BadClaims(t *testing.T) {
	t.Parallel()
	_, err := UserIDFromToken(&jwt.Token{Claims: jwt.MapClaims{"user_id": "not-a-uuid"}})
	assert.ErrorIs(t, err, user.ErrUserUnauthorized)
	_, err = UserIDFromToken(&jwt.Token{Claims: jwt.MapClaims{}})
	assert.ErrorIs(t, err, user.ErrUserUnauthorized)
}
