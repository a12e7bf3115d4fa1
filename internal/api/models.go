package api

import (
	"github.com/google/uuid"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"user_id"`

	// AccessToken is the JWT token used for API authorization
	// Field renamed from Token for clarity but JSON field name kept for backward compatibility
	AccessToken string `json:"token"`

	// RefreshToken is the JWT token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is the ISO 8601 timestamp when the access token expires
	ExpiresAt string `json:"expires_at,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	// RefreshToken is the JWT refresh token to be used to obtain a new token pair
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	// AccessToken is the new JWT token used for API authorization
	AccessToken string `json:"access_token"`

	// RefreshToken is the new JWT token used to obtain future access tokens
	RefreshToken string `json:"refresh_token"`

	// ExpiresAt is the ISO 8601 timestamp when the access token expires
	ExpiresAt string `json:"expires_at"`
}

// ContinueSessionRequest defines the payload for requesting another
// generation round on a session. FocusAreas steer the next round toward
// specific topics and may be empty.
type ContinueSessionRequest struct {
	FocusAreas []string `json:"focus_areas"`
}

// RejectCardRequest defines the payload for rejecting a single card.
type RejectCardRequest struct {
	Reason string `json:"reason" validate:"required,min=1"`
	Type   string `json:"type"   validate:"required"`
}

// EditCardRequest defines the payload for editing a card's content.
type EditCardRequest struct {
	Front string   `json:"front" validate:"required,min=1"`
	Back  string   `json:"back"  validate:"required,min=1"`
	Tags  []string `json:"tags"`
}

// BatchApproveRequest defines the payload for approving several cards in
// one call.
type BatchApproveRequest struct {
	CardIDs []uuid.UUID `json:"card_ids" validate:"required,min=1"`
}

// BatchRejectRequest defines the payload for rejecting several cards with
// one shared reason and type.
type BatchRejectRequest struct {
	CardIDs []uuid.UUID `json:"card_ids" validate:"required,min=1"`
	Reason  string      `json:"reason"   validate:"required,min=1"`
	Type    string      `json:"type"     validate:"required"`
}
