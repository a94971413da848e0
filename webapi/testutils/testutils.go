// Package testutils provides an end-to-end HTTP test suite backed by a
// private in-memory SQLite database.
package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/amirasaad/sandbank/infra"
	infracache "github.com/amirasaad/sandbank/infra/cache"
	infrarepo "github.com/amirasaad/sandbank/infra/repository"
	"github.com/amirasaad/sandbank/pkg/app"
	"github.com/amirasaad/sandbank/pkg/config"
	"github.com/amirasaad/sandbank/pkg/domain/user"
	"github.com/amirasaad/sandbank/pkg/domain/wallet"
	"github.com/amirasaad/sandbank/pkg/repository"
	pkgtestutils "github.com/amirasaad/sandbank/pkg/testutils"
	"github.com/amirasaad/sandbank/webapi"
	"github.com/amirasaad/sandbank/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

// E2ETestSuite runs requests against the full fiber app.
type E2ETestSuite struct {
	suite.Suite
	App   *app.App
	Uow   repository.UnitOfWork
	Cfg   *config.App
	app   *fiber.App
	Admin *user.User
	// AdminToken authenticates as Admin.
	AdminToken string
}

// Configure adjusts the configuration before the app is built.
type Configure func(*config.App)

// SetupSuite builds a fresh database and app. Embedding suites that need
// different settings call Build directly.
func (s *E2ETestSuite) SetupSuite() {
	s.Build()
}

func (s *E2ETestSuite) Build(opts ...Configure) {
	pkgtestutils.FastHashing()
	s.Cfg = pkgtestutils.TestConfig()
	for _, opt := range opts {
		opt(s.Cfg)
	}
	db := pkgtestutils.NewTestDB(s.T())
	logger := pkgtestutils.DiscardLogger()

	s.Uow = infrarepo.NewUoW(db)
	s.App = app.New(&app.Deps{
		Uow:    s.Uow,
		Cache:  infracache.NewMemoryCache(),
		Backup: infra.NewBackup(db, logger),
		Logger: logger,
	}, s.Cfg)
	s.app = webapi.SetupApp(s.App)

	s.Admin, _ = pkgtestutils.SeedUser(s.T(), s.Uow, "admin_"+uuid.NewString()[:8], pkgtestutils.AsAdmin())
	token, _, err := s.App.AuthService.GenerateToken(s.Admin)
	s.Require().NoError(err)
	s.AdminToken = token
}

// MakeRequest is a helper for making HTTP requests in tests
func (s *E2ETestSuite) MakeRequest(method, path, body, token string, headers ...string) *http.Response {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	return resp
}

// Decode reads a success envelope and decodes its data into out.
func (s *E2ETestSuite) Decode(resp *http.Response, out any) {
	defer resp.Body.Close() //nolint:errcheck
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	var envelope struct {
		common.Response
		Data json.RawMessage `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(raw, &envelope), string(raw))
	if out != nil {
		s.Require().NoError(json.Unmarshal(envelope.Data, out), string(raw))
	}
}

// Problem reads a problem details response.
func (s *E2ETestSuite) Problem(resp *http.Response) common.ProblemDetails {
	defer resp.Body.Close() //nolint:errcheck
	var pd common.ProblemDetails
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&pd))
	return pd
}

// LoginUser makes an actual HTTP request to login and returns the JWT token
func (s *E2ETestSuite) LoginUser(identity, password string) string {
	body := fmt.Sprintf(`{"identity":%q,"password":%q}`, identity, password)
	resp := s.MakeRequest(fiber.MethodPost, "/auth/login", body, "")
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	var data struct {
		Token string `json:"token"`
	}
	s.Decode(resp, &data)
	s.Require().NotEmpty(data.Token, "No token found in response")
	return data.Token
}

// CreateTestUser seeds a customer with a wallet and signs a token for it.
func (s *E2ETestSuite) CreateTestUser(opts ...pkgtestutils.SeedOption) (*user.User, *wallet.Wallet, string) {
	u, w := pkgtestutils.SeedUser(s.T(), s.Uow, "user_"+uuid.NewString()[:8], opts...)
	token, _, err := s.App.AuthService.GenerateToken(u)
	s.Require().NoError(err)
	return u, w, token
}

// Wallet reloads a wallet from the database.
func (s *E2ETestSuite) Wallet(id uuid.UUID) *wallet.Wallet {
	wallets, err := s.Uow.WalletRepository()
	s.Require().NoError(err)
	w, err := wallets.Get(context.Background(), id)
	s.Require().NoError(err)
	return w
}
