package auth

import (
	authsvc "github.com/amirasaad/sandbank/pkg/service/auth"
	"github.com/amirasaad/sandbank/webapi/common"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(app fiber.Router, authSvc *authsvc.Service) {
	app.Post("/auth/login", Login(authSvc))
	app.Post("/auth/otp/verify", VerifyOTP(authSvc))
}

func respond(c *fiber.Ctx, res *authsvc.LoginResult) error {
	if res.ChallengeID != "" {
		return common.SuccessResponseJSON(c, fiber.StatusAccepted, "One-time password sent",
			ChallengeResponse{ChallengeID: res.ChallengeID, ExpiresAt: res.ExpiresAt})
	}
	return common.SuccessResponseJSON(c, fiber.StatusOK, "Success login",
		TokenResponse{Token: res.Token, ExpiresAt: res.ExpiresAt})
}

// Login handles user authentication and returns a JWT token, or a
// challenge when one-time passwords are enabled.
// @Summary User login
// @Description Authenticate user with identity (username or email) and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginInput true "Login credentials"
// @Success 200 {object} common.Response
// @Success 202 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 429 {object} common.ProblemDetails
// @Router /auth/login [post]
func Login(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[LoginInput](c)
		if input == nil {
			return err // Error already written by BindAndValidate
		}
		res, err := authSvc.Login(c.Context(), input.Identity, input.Password, common.ClientIP(c))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Login failed", err)
		}
		return respond(c, res)
	}
}

// VerifyOTP exchanges a challenge and one-time password for a token.
// @Summary Verify one-time password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body VerifyOTPInput true "Challenge and code"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Router /auth/otp/verify [post]
func VerifyOTP(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[VerifyOTPInput](c)
		if input == nil {
			return err
		}
		res, err := authSvc.VerifyOTP(c.Context(), input.ChallengeID, input.OTP, common.ClientIP(c))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Verification failed", err)
		}
		return respond(c, res)
	}
}
