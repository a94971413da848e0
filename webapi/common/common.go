// Package common holds the response envelope, RFC 9457 problem details
// and request binding shared by the HTTP handlers.
package common

import (
	"errors"
	"reflect"
	"strings"

	"github.com/amirasaad/sandbank/pkg/domain"
	"github.com/amirasaad/sandbank/pkg/domain/code"
	"github.com/amirasaad/sandbank/pkg/domain/transaction"
	"github.com/amirasaad/sandbank/pkg/domain/user"
	"github.com/amirasaad/sandbank/pkg/domain/wallet"
	"github.com/amirasaad/sandbank/pkg/money"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Errors   any    `json:"errors,omitempty"`
}

const genericDetail = "An unexpected error occurred"

var validate = newValidator()

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{Status: status, Message: message, Data: data})
}

// ProblemDetailsJSON writes a problem response. The status is derived
// from err unless an int is passed in opts; a string in opts replaces the
// detail and any other value is rendered as errors. Details of unmapped
// errors are never exposed.
func ProblemDetailsJSON(c *fiber.Ctx, title string, err error, opts ...any) error {
	status := fiber.StatusInternalServerError
	detail := ""
	if err != nil {
		status = ErrorToStatusCode(err)
		detail = err.Error()
	}
	var extra any
	for _, opt := range opts {
		switch v := opt.(type) {
		case int:
			status = v
		case string:
			detail = v
		default:
			extra = v
		}
	}
	if status == fiber.StatusInternalServerError {
		title = "Internal Server Error"
		detail = genericDetail
	}
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(status).JSON(ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.OriginalURL(),
		Errors:   extra,
	})
}

// ErrorToStatusCode maps domain errors to HTTP status codes.
func ErrorToStatusCode(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, money.ErrAmountMustBePositive),
		errors.Is(err, money.ErrTooManyDecimals),
		errors.Is(err, money.ErrAmountTooLarge),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, wallet.ErrAmountMustBePositive),
		errors.Is(err, wallet.ErrSameWallet),
		errors.Is(err, user.ErrInvalidPINFormat),
		errors.Is(err, user.ErrInvalidStatus),
		errors.Is(err, wallet.ErrInvalidStatus),
		errors.Is(err, code.ErrCodeRequired):
		return fiber.StatusBadRequest
	case errors.Is(err, user.ErrPINLocked):
		return fiber.StatusLocked
	case errors.Is(err, user.ErrUserUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, user.ErrInvalidPIN),
		errors.Is(err, user.ErrUserInactive),
		errors.Is(err, wallet.ErrWalletInactive),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, wallet.ErrInsufficientFunds),
		errors.Is(err, wallet.ErrAmountExceedsLimit),
		errors.Is(err, wallet.ErrBalanceOverflow),
		errors.Is(err, wallet.ErrHoldMismatch),
		errors.Is(err, user.ErrPINNotSet),
		errors.Is(err, code.ErrCodeUsed),
		errors.Is(err, code.ErrCodeExpired),
		errors.Is(err, code.ErrCodeRevoked),
		errors.Is(err, code.ErrCodeTypeMismatch),
		errors.Is(err, code.ErrCodeAmountMismatch),
		errors.Is(err, code.ErrCodeUserMismatch),
		errors.Is(err, transaction.ErrInvalidTransition),
		errors.Is(err, transaction.ErrNotReversible),
		errors.Is(err, transaction.ErrInvalidType):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotSupported):
		return fiber.StatusNotImplemented
	default:
		return fiber.StatusInternalServerError
	}
}

// BindAndValidate parses the request body and validates it using
// go-playground/validator. On failure it writes the problem response and
// returns a nil input together with the write result.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		return nil, ProblemDetailsJSON(c, "Invalid request body", nil, err.Error(), fiber.StatusBadRequest)
	}
	if err := validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, ProblemDetailsJSON(c, "Validation failed", nil,
				"One or more fields are invalid", fieldErrors(verrs), fiber.StatusBadRequest)
		}
		return nil, ProblemDetailsJSON(c, "Validation failed", nil, err.Error(), fiber.StatusBadRequest)
	}
	return &input, nil
}

func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg := "failed on " + fe.Tag()
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "email":
			msg = "must be a valid email"
		case "min", "max", "len":
			msg = "must satisfy " + fe.Tag() + "=" + fe.Param()
		case "oneof":
			msg = "must be one of " + fe.Param()
		case "numeric":
			msg = "must be numeric"
		}
		out[fe.Field()] = msg
	}
	return out
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func ClientIP(c *fiber.Ctx) string {
	if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
		if first, _, found := strings.Cut(forwardedFor, ","); found {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwardedFor)
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return c.IP()
}
