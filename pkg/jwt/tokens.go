package jwt

import (
	"errors"
	"fmt"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// AudienceAuthenticated is the audience Supabase stamps on end-user access tokens.
const AudienceAuthenticated = "authenticated"

// Claims mirrors the payload of a Supabase access token.
type Claims struct {
	Email        string         `json:"email"`
	Role         string         `json:"role,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	jwtlib.RegisteredClaims
}

// Parse validates an HS256 token with secret and extracts its claims.
// An empty audience skips the audience check.
func Parse(token, secret, audience string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("jwt secret not configured")
	}
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}),
		jwtlib.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwtlib.WithAudience(audience))
	}
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", jwtlib.ErrTokenRequiredClaimMissing)
	}
	return claims, nil
}
