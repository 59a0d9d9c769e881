package auth

import (
	"time"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
)

// Claims are the contents of an access token minted by the identity
// service. v4.local tokens are encrypted, so clients cannot read them.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// Identity returns the caller described by the claims.
func (c *Claims) Identity() domain.Identity {
	userID := c.UserID
	if userID == "" {
		userID = c.Subject
	}
	return domain.Identity{UserID: userID, Username: c.Username, IsAdmin: c.IsAdmin}
}
