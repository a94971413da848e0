package user

import (
	usersvc "github.com/amirasaad/sandbank/pkg/service/user"
	"github.com/amirasaad/sandbank/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// UserRoutes mounts the profile endpoints on a group that already
// authenticates the caller.
func UserRoutes(me fiber.Router, userSvc *usersvc.Service) {
	me.Get("/", GetMe())
	me.Put("/", UpdateMe(userSvc))
	me.Put("/pin", SetPIN(userSvc))
}

// GetMe returns the authenticated user.
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Router /me [get]
// @Security Bearer
func GetMe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return common.SuccessResponseJSON(c, fiber.StatusOK, "User found", ToUserResponse(common.CurrentUser(c)))
	}
}

// UpdateMe updates the caller's display names.
// @Summary Update profile
// @Tags users
// @Accept json
// @Produce json
// @Param request body UpdateUserInput true "User update data"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Router /me [put]
// @Security Bearer
func UpdateMe(userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[UpdateUserInput](c)
		if input == nil {
			return err // error response already written
		}
		u, err := userSvc.UpdateProfile(c.Context(), common.CurrentUser(c).ID, input.Names)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to update user", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "User updated successfully", ToUserResponse(u))
	}
}

// SetPIN sets or replaces the transaction PIN.
// @Summary Set transaction PIN
// @Tags users
// @Accept json
// @Produce json
// @Param request body SetPINInput true "Password and new PIN"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Router /me/pin [put]
// @Security Bearer
func SetPIN(userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[SetPINInput](c)
		if input == nil {
			return err
		}
		if err := userSvc.SetPIN(c.Context(), common.CurrentUser(c).ID, input.Password, input.PIN); err != nil {
			return common.ProblemDetailsJSON(c, "Failed to set PIN", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "PIN updated", nil)
	}
}
