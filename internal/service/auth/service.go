package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/LuisErlacher/Archon/internal/domain"
)

const defaultVerifyTimeout = 10 * time.Second

// ErrUnauthorized is matched by every authentication failure.
var ErrUnauthorized = errors.New("unauthorized")

// UnauthorizedError carries the client-facing detail of an authentication failure.
type UnauthorizedError struct {
	Detail string
}

func (e *UnauthorizedError) Error() string {
	return e.Detail
}

// Is makes errors.Is(err, ErrUnauthorized) hold for every UnauthorizedError.
func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

func unauthorized(detail string) error {
	return &UnauthorizedError{Detail: detail}
}

// Verifier resolves a bearer token into a user with the identity provider.
type Verifier interface {
	Verify(ctx context.Context, token string) (*domain.AuthenticatedUser, error)
}

// Service validates bearer tokens by delegating to a Verifier.
type Service struct {
	verifier Verifier
	logger   *slog.Logger
	timeout  time.Duration
}

// New constructs a Service.
func New(verifier Verifier, logger *slog.Logger, timeout time.Duration) Service {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultVerifyTimeout
	}
	return Service{verifier: verifier, logger: logger, timeout: timeout}
}

// VerifyToken validates token and returns the user it belongs to. Every failure,
// including provider outages, is reported as an UnauthorizedError.
func (s Service) VerifyToken(ctx context.Context, token string) (*domain.AuthenticatedUser, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, unauthorized("Authentication failed: token required")
	}
	if s.verifier == nil {
		return nil, unauthorized("Authentication failed: identity provider not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.verifier.Verify(ctx, trimmed)
	if err != nil {
		s.logger.Warn("token verification failed", "error", err)
		return nil, unauthorized("Authentication failed: " + err.Error())
	}
	if user == nil || strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		s.logger.Warn("identity provider returned incomplete user")
		return nil, unauthorized("Authentication failed: Invalid authentication token")
	}
	normalized := user.Normalized()
	return &normalized, nil
}

// RequireAuth extracts the bearer token from an Authorization header value and verifies it.
func (s Service) RequireAuth(ctx context.Context, header string) (*domain.AuthenticatedUser, error) {
	token, err := BearerToken(header)
	if err != nil {
		return nil, err
	}
	return s.VerifyToken(ctx, token)
}

// BearerToken parses "Bearer <token>" (scheme is case-insensitive, exactly two fields).
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", unauthorized("Missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", unauthorized("Invalid authorization header format")
	}
	return parts[1], nil
}
