package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/sandbank/pkg/cache"
	"github.com/amirasaad/sandbank/pkg/config"
	"github.com/amirasaad/sandbank/pkg/domain/audit"
	"github.com/amirasaad/sandbank/pkg/domain/user"
	"github.com/amirasaad/sandbank/pkg/reference"
	"github.com/amirasaad/sandbank/pkg/repository"
	auditsvc "github.com/amirasaad/sandbank/pkg/service/audit"
	"github.com/amirasaad/sandbank/pkg/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrChallengeNotFound is returned when an OTP challenge is unknown or
	// has expired.
	ErrChallengeNotFound = fmt.Errorf("%w: otp challenge not found or expired", user.ErrUserUnauthorized)
	// ErrInvalidOTP is returned when the one-time password does not match.
	ErrInvalidOTP = fmt.Errorf("%w: invalid one-time password", user.ErrUserUnauthorized)
)

// dummyHash is compared on unknown identities so a miss costs the same
// as a wrong password.
var dummyHash = sync.OnceValue(func() string {
	h, _ := utils.HashPassword("sandbank-dummy-password")
	return h
})

// LoginResult carries either a token or, when OTP is enabled, the
// challenge the client must answer.
type LoginResult struct {
	User        *user.User
	Token       string
	ChallengeID string
	ExpiresAt   time.Time
}

// challenge is the cached OTP state.
type challenge struct {
	UserID    uuid.UUID `json:"user_id"`
	Hash      string    `json:"hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	uow    repository.UnitOfWork
	cfg    *config.Auth
	cache  cache.Store
	audit  *auditsvc.Recorder
	logger *slog.Logger
	newOTP func(length int) (string, error)
}

func New(
	uow repository.UnitOfWork,
	cfg *config.Auth,
	store cache.Store,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:    uow,
		cfg:    cfg,
		cache:  store,
		audit:  auditsvc.New(logger),
		logger: logger,
		newOTP: reference.Digits,
	}
}

// Login checks credentials given a username or email. Unknown identities
// and wrong passwords both return user.ErrUserUnauthorized.
func (s *Service) Login(
	ctx context.Context,
	identity, password, ip string,
) (*LoginResult, error) {
	log := s.logger.With("handler", "Login", "identity", identity)
	log.Debug("Login called")

	users, err := s.uow.UserRepository()
	if err != nil {
		return nil, err
	}
	identity = strings.TrimSpace(identity)
	var u *user.User
	if utils.IsEmail(identity) {
		u, err = users.GetByEmail(ctx, strings.ToLower(identity))
	} else {
		u, err = users.GetByUsername(ctx, identity)
	}
	if err != nil && !errors.Is(err, user.ErrUserNotFound) {
		log.Error("User lookup failed", "error", err)
		return nil, err
	}

	if u == nil {
		_ = utils.CheckPasswordHash(password, dummyHash())
		s.record(ctx, audit.New(uuid.Nil, audit.ActionLoginFailed).
			With("identity", identity).
			With("reason", "unknown identity").
			From(ip))
		log.Warn("Login failed", "error", user.ErrUserUnauthorized)
		return nil, user.ErrUserUnauthorized
	}
	if !u.CheckPassword(password) {
		s.record(ctx, audit.New(u.ID, audit.ActionLoginFailed).
			On(audit.SubjectUser, u.ID).
			With("reason", "wrong password").
			From(ip))
		log.Warn("Login failed", "user_id", u.ID, "error", user.ErrUserUnauthorized)
		return nil, user.ErrUserUnauthorized
	}
	if err := u.CanLogin(); err != nil {
		s.record(ctx, audit.New(u.ID, audit.ActionLoginFailed).
			On(audit.SubjectUser, u.ID).
			With("reason", string(u.Status)).
			From(ip))
		log.Warn("Login refused", "user_id", u.ID, "status", u.Status)
		return nil, err
	}

	if s.cfg.OTP != nil && s.cfg.OTP.Enabled {
		id, expires, err := s.issueChallenge(ctx, u)
		if err != nil {
			log.Error("Failed to issue otp challenge", "error", err)
			return nil, err
		}
		s.record(ctx, audit.New(u.ID, audit.ActionOTPIssued).On(audit.SubjectUser, u.ID).From(ip))
		return &LoginResult{User: u, ChallengeID: id, ExpiresAt: expires}, nil
	}

	token, expires, err := s.GenerateToken(u)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.New(u.ID, audit.ActionLogin).On(audit.SubjectUser, u.ID).From(ip))
	log.Info("Login successful", "user_id", u.ID)
	return &LoginResult{User: u, Token: token, ExpiresAt: expires}, nil
}

func challengeKey(id string) string {
	return "otp:" + id
}

func attemptsKey(id string) string {
	return "otp:" + id + ":attempts"
}

// issueChallenge stores a hashed OTP and logs the plain value, which
// stands in for delivery.
func (s *Service) issueChallenge(ctx context.Context, u *user.User) (string, time.Time, error) {
	otp, err := s.newOTP(s.cfg.OTP.Length)
	if err != nil {
		return "", time.Time{}, err
	}
	hash, err := utils.HashPassword(otp)
	if err != nil {
		return "", time.Time{}, err
	}
	expires := time.Now().UTC().Add(s.cfg.OTP.TTL)
	id := uuid.NewString()
	raw, err := json.Marshal(challenge{UserID: u.ID, Hash: hash, ExpiresAt: expires})
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.cache.Set(ctx, challengeKey(id), raw, s.cfg.OTP.TTL); err != nil {
		return "", time.Time{}, err
	}
	s.logger.Info("One-time password issued", "user_id", u.ID, "challenge_id", id, "otp", otp)
	return id, expires, nil
}

// VerifyOTP answers a login challenge and returns a token. The challenge
// is discarded once answered or after the configured number of misses.
func (s *Service) VerifyOTP(
	ctx context.Context,
	challengeID, otp, ip string,
) (*LoginResult, error) {
	log := s.logger.With("handler", "VerifyOTP", "challenge_id", challengeID)
	key := challengeKey(challengeID)
	raw, err := s.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		log.Error("Failed to read otp challenge", "error", err)
		return nil, err
	}
	var c challenge
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode otp challenge: %w", err)
	}
	now := time.Now().UTC()
	if !now.Before(c.ExpiresAt) {
		_ = s.cache.Delete(ctx, key)
		return nil, ErrChallengeNotFound
	}

	// Each answer claims an attempt before the hash is compared.
	attempt, err := s.cache.Incr(ctx, attemptsKey(challengeID), c.ExpiresAt.Sub(now))
	if err != nil {
		log.Error("Failed to count otp attempt", "error", err)
		return nil, err
	}
	if attempt > int64(s.cfg.OTP.MaxAttempts) {
		_ = s.cache.Delete(ctx, key)
		log.Warn("OTP attempts exhausted", "user_id", c.UserID, "attempt", attempt)
		return nil, ErrChallengeNotFound
	}

	if !utils.CheckPasswordHash(otp, c.Hash) {
		if attempt == int64(s.cfg.OTP.MaxAttempts) {
			_ = s.cache.Delete(ctx, key)
			log.Warn("OTP attempts exhausted", "user_id", c.UserID)
		}
		s.record(ctx, audit.New(c.UserID, audit.ActionLoginFailed).
			On(audit.SubjectUser, c.UserID).
			With("reason", "wrong otp").
			From(ip))
		return nil, ErrInvalidOTP
	}
	// Only the caller that removes the challenge may log in.
	if _, err := s.cache.Take(ctx, key); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, ErrChallengeNotFound
		}
		log.Error("Failed to claim otp challenge", "error", err)
		return nil, err
	}
	if err := s.cache.Delete(ctx, attemptsKey(challengeID)); err != nil {
		log.Warn("Failed to discard otp attempts", "error", err)
	}

	users, err := s.uow.UserRepository()
	if err != nil {
		return nil, err
	}
	u, err := users.Get(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	if err := u.CanLogin(); err != nil {
		return nil, err
	}
	token, expires, err := s.GenerateToken(u)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.New(u.ID, audit.ActionOTPVerified).On(audit.SubjectUser, u.ID).From(ip))
	log.Info("OTP verified", "user_id", u.ID)
	return &LoginResult{User: u, Token: token, ExpiresAt: expires}, nil
}

// GenerateToken signs an HS256 token carrying user_id, username and
// is_admin claims.
func (s *Service) GenerateToken(u *user.User) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(s.cfg.Jwt.Expiry)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  u.ID.String(),
		"username": u.Username,
		"is_admin": u.IsAdmin,
		"iat":      now.Unix(),
		"exp":      expires.Unix(),
	})
	signed, err := token.SignedString([]byte(s.cfg.Jwt.Secret))
	if err != nil {
		s.logger.Error("GenerateToken failed", "user_id", u.ID, "error", err)
		return "", time.Time{}, err
	}
	return signed, expires.UTC(), nil
}

// UserIDFromToken extracts the user_id claim.
func UserIDFromToken(token *jwt.Token) (uuid.UUID, error) {
	if token == nil {
		return uuid.Nil, user.ErrUserUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, user.ErrUserUnauthorized
	}
	raw, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, user.ErrUserUnauthorized
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, user.ErrUserUnauthorized
	}
	return id, nil
}

// CurrentUser loads the user named by token. Deleted users are
// unauthorized and inactive ones are rejected with user.ErrUserInactive.
func (s *Service) CurrentUser(ctx context.Context, token *jwt.Token) (*user.User, error) {
	id, err := UserIDFromToken(token)
	if err != nil {
		return nil, err
	}
	users, err := s.uow.UserRepository()
	if err != nil {
		return nil, err
	}
	u, err := users.Get(ctx, id)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, user.ErrUserUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if err := u.CanLogin(); err != nil {
		return nil, err
	}
	return u, nil
}

// record commits entry on its own so failed attempts survive the error
// returned to the caller.
func (s *Service) record(ctx context.Context, entry *audit.Log) {
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		return s.audit.Record(ctx, uow, entry)
	})
	if err != nil {
		s.logger.Error("Failed to record auth audit entry", "action", entry.Action, "error", err)
	}
}
