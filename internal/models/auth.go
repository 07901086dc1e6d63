package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a profile.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and profile info.
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	Profile      ProfileInfo `json:"profile"`
	IssuedAt     time.Time   `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// ProfileInfo describes the authenticated profile in responses.
type ProfileInfo struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	FullName     string  `json:"full_name"`
	Role         Role    `json:"role"`
	DepartmentID *string `json:"department_id,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens. Role and
// department travel in the token so handlers can pass an explicit actor
// into the lifecycle layer instead of reading ambient state.
type JWTClaims struct {
	ProfileID    string  `json:"profile_id"`
	Role         Role    `json:"role"`
	Email        string  `json:"email"`
	DepartmentID *string `json:"department_id,omitempty"`
	jwt.RegisteredClaims
}

// RefreshToken is a stored refresh token row.
type RefreshToken struct {
	ID        string     `db:"id" json:"id"`
	ProfileID string     `db:"profile_id" json:"profile_id"`
	Token     string     `db:"token" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress string     `db:"ip_address" json:"-"`
	UserAgent string     `db:"user_agent" json:"-"`
}
