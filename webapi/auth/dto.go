package auth

import "time"

// LoginInput represents the request body for user authentication.
type LoginInput struct {
	Identity string `json:"identity" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// VerifyOTPInput completes a login that required a one-time password.
type VerifyOTPInput struct {
	ChallengeID string `json:"challenge_id" validate:"required"`
	OTP         string `json:"otp" validate:"required,numeric"`
}

// TokenResponse is returned once authentication is complete.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ChallengeResponse is returned when a one-time password was sent.
type ChallengeResponse struct {
	ChallengeID string    `json:"challenge_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}
