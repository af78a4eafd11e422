package invitations

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/eventhive/backend/internal/models"
)

// ErrInvalidInviteToken is returned for expired or tampered accept-link tokens.
var ErrInvalidInviteToken = errors.New("invalid invite token")

// InviteClaims carries the invitation parameters inside the signed
// accept-link token.
type InviteClaims struct {
	Email     string           `json:"email"`
	ScopeType ScopeType        `json:"scope_type"`
	ScopeID   uuid.UUID        `json:"scope_id"`
	Role      models.ScopeRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenSigner signs and validates invitation accept-link tokens (HS256).
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenSigner creates an invite token signer.
func NewTokenSigner(secret string, ttl time.Duration) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), ttl: ttl}
}

// Generate creates a signed token for one invited email.
func (s *TokenSigner) Generate(email string, scope Scope, role models.ScopeRole) (string, error) {
	claims := InviteClaims{
		Email:     email,
		ScopeType: scope.Type,
		ScopeID:   scope.ID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse validates a token and returns its claims.
func (s *TokenSigner) Parse(tokenString string) (*InviteClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &InviteClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidInviteToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidInviteToken
	}
	claims, ok := token.Claims.(*InviteClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidInviteToken
	}
	return claims, nil
}
