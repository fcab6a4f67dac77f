package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/LuisErlacher/Archon/internal/domain"
	"github.com/LuisErlacher/Archon/pkg/config"
	jwtpkg "github.com/LuisErlacher/Archon/pkg/jwt"
)

// JWTVerifier validates Supabase access tokens locally with the project's JWT secret.
type JWTVerifier struct {
	secret   string
	audience string
}

// NewJWTVerifier constructs a verifier that accepts HS256 tokens for audience.
func NewJWTVerifier(secret, audience string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret required")
	}
	return &JWTVerifier{secret: secret, audience: audience}, nil
}

// Verify implements Verifier.
func (v *JWTVerifier) Verify(_ context.Context, token string) (*domain.AuthenticatedUser, error) {
	claims, err := jwtpkg.Parse(token, v.secret, v.audience)
	if err != nil {
		return nil, err
	}
	return &domain.AuthenticatedUser{
		ID:           claims.Subject,
		Email:        claims.Email,
		UserMetadata: claims.UserMetadata,
		AppMetadata:  claims.AppMetadata,
	}, nil
}

// NewVerifier builds the verifier selected by AUTH_PROVIDER.
func NewVerifier(cfg config.APIConfig, client *http.Client) (Verifier, error) {
	switch cfg.AuthProvider {
	case config.AuthProviderJWT:
		v, err := NewJWTVerifier(cfg.SupabaseJWTSecret, jwtpkg.AudienceAuthenticated)
		if err != nil {
			return nil, err
		}
		return v, nil
	case config.AuthProviderSupabase, "":
		v, err := NewSupabaseVerifier(cfg.SupabaseURL, cfg.SupabaseServiceKey, client)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported auth provider %q", cfg.AuthProvider)
	}
}
