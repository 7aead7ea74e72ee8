package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Profile is the authenticated identity acting on the API. Identity itself is
// owned by the external authentication service; the booking core only
// consumes the id and admin flag carried in the token.
type Profile struct {
	ID      uuid.UUID `json:"id"`
	Email   string    `json:"email,omitempty"`
	IsAdmin bool      `json:"is_admin"`
}

// ProfileClaims are the custom JWT claims issued by the auth service.
type ProfileClaims struct {
	ProfileID uuid.UUID `json:"profile_id"`
	Email     string    `json:"email,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
	jwt.RegisteredClaims
}

// Profile converts token claims into the acting profile.
func (c *ProfileClaims) Profile() Profile {
	return Profile{ID: c.ProfileID, Email: c.Email, IsAdmin: c.IsAdmin}
}
