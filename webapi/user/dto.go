package user

import (
	"time"

	"github.com/amirasaad/sandbank/pkg/domain/user"
	"github.com/amirasaad/sandbank/pkg/money"
)

// UpdateUserInput represents the request body for updating the profile.
type UpdateUserInput struct {
	Names string `json:"names" validate:"max=100"`
}

// SetPINInput sets the transaction PIN. The password is re-checked.
type SetPINInput struct {
	Password string `json:"password" validate:"required"`
	PIN      string `json:"pin" validate:"required,numeric,min=4,max=6"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Names     string    `json:"names"`
	IsAdmin   bool      `json:"is_admin"`
	Status    string    `json:"status"`
	HasPIN    bool      `json:"has_pin"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

func ToUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		Names:     u.Names,
		IsAdmin:   u.IsAdmin,
		Status:    string(u.Status),
		HasPIN:    u.PINHash != "",
		Balance:   money.Format(u.Balance),
		CreatedAt: u.CreatedAt,
	}
}
