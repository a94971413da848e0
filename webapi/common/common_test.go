package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amirasaad/sandbank/pkg/domain"
	"github.com/amirasaad/sandbank/pkg/domain/code"
	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	"github.com/amirasaad/sandbank/pkg/domain/user"
	"github.com/amirasaad/sandbank/pkg/domain/wallet"
	"github.com/amirasaad/sandbank/pkg/money"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorToStatusCode(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err  error
		want int
	}{
		{wallet.ErrWalletNotFound, fiber.StatusNotFound},
		{fmt.Errorf("wrapped: %w", transaction.ErrTransactionNotFound), fiber.StatusNotFound},
		{domain.ErrAlreadyExists, fiber.StatusConflict},
		{fmt.Errorf("%w: bad", domain.ErrValidation), fiber.StatusBadRequest},
		{money.ErrTooManyDecimals, fiber.StatusBadRequest},
		{wallet.ErrSameWallet, fiber.StatusBadRequest},
		{code.ErrCodeRequired, fiber.StatusBadRequest},
		{wallet.ErrInsufficientFunds, fiber.StatusUnprocessableEntity},
		{code.ErrCodeUsed, fiber.StatusUnprocessableEntity},
		{transaction.ErrNotReversible, fiber.StatusUnprocessableEntity},
		{user.ErrUserUnauthorized, fiber.StatusUnauthorized},
		{user.ErrInvalidPIN, fiber.StatusForbidden},
		{wallet.ErrWalletInactive, fiber.StatusForbidden},
		{user.ErrPINLocked, fiber.StatusLocked},
		{domain.ErrNotSupported, fiber.StatusNotImplemented},
		{fiber.ErrTeapot, fiber.StatusTeapot},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ErrorToStatusCode(tc.err), tc.err.Error())
	}
}

func decodeProblem(t *testing.T, resp *http.Response) ProblemDetails {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	var pd ProblemDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pd))
	return pd
}

func TestProblemDetailsJSON_HidesInternalErrors(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Get("/internal", func(c *fiber.Ctx) error {
		return ProblemDetailsJSON(c, "Failed", errors.New("pq: connection refused"))
	})
	app.Get("/domain", func(c *fiber.Ctx) error {
		return ProblemDetailsJSON(c, "Failed", wallet.ErrInsufficientFunds)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/internal", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get(fiber.HeaderContentType))
	pd := decodeProblem(t, resp)
	assert.Equal(t, genericDetail, pd.Detail)
	assert.Equal(t, "/internal", pd.Instance)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/domain", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	pd = decodeProblem(t, resp)
	assert.Equal(t, "insufficient funds", pd.Detail)
	assert.Equal(t, "Failed", pd.Title)
}

type bindInput struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
}

func TestBindAndValidate(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		input, err := BindAndValidate[bindInput](c)
		if input == nil {
			return err
		}
		return c.SendString(input.Username)
	})
	post := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := post(`{"username":"alice","email":"alice@example.com"}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = post(`{"username":`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = post(`{"username":"al","email":"nope"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	pd := decodeProblem(t, resp)
	fields, ok := pd.Errors.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "must satisfy min=3", fields["username"])
	assert.Equal(t, "must be a valid email", fields["email"])
}

type acronymInput struct {
	PIN         string `json:"pin" validate:"required"`
	UserID      string `json:"user_id" validate:"required,uuid"`
	ChallengeID string `json:"challenge_id,omitempty" validate:"required"`
	Internal    string `json:"-" validate:"required"`
}

func TestBindAndValidate_UsesJSONFieldNames(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		input, err := BindAndValidate[acronymInput](c)
		if input == nil {
			return err
		}
		return c.SendStatus(fiber.StatusOK)
	})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	fields, ok := decodeProblem(t, resp).Errors.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "is required", fields["pin"])
	assert.Contains(t, fields, "user_id")
	assert.Contains(t, fields, "challenge_id")
	assert.Contains(t, fields, "Internal")
	assert.NotContains(t, fields, "p_i_n")
	assert.NotContains(t, fields, "user_i_d")
}

func TestClientIP(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(ClientIP(c)) })
	read := func(header, value string) string {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(header, value)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return readAll(t, resp)
	}
	assert.Equal(t, "203.0.113.7", read("X-Forwarded-For", "203.0.113.7, 10.0.0.1"))
	assert.Equal(t, "198.51.100.2", read("X-Real-IP", "198.51.100.2"))
	assert.NotEmpty(t, read("", ""))
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestPagination(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		page, size := Pagination(c)
		return c.SendString(fmt.Sprintf("%d/%d", page, size))
	})
	for query, want := range map[string]string{
		"":                        "1/20",
		"?page=3&page_size=50":    "3/50",
		"?page=-1&page_size=1000": "1/20",
		"?page=abc&page_size=xyz": "1/20",
	} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+query, nil))
		require.NoError(t, err)
		assert.Equal(t, want, readAll(t, resp), query)
	}
}
