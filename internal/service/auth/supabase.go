package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/LuisErlacher/Archon/internal/domain"
)

const (
	supabaseUserPath  = "/auth/v1/user"
	providerBodyLimit = 1 << 20
)

// SupabaseVerifier asks Supabase Auth to resolve the token's user.
type SupabaseVerifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewSupabaseVerifier constructs a verifier for the project at baseURL.
func NewSupabaseVerifier(baseURL, apiKey string, client *http.Client) (*SupabaseVerifier, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("supabase url required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid supabase url: %w", err)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("supabase service key required")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultVerifyTimeout}
	}
	return &SupabaseVerifier{endpoint: trimmed + supabaseUserPath, apiKey: apiKey, client: client}, nil
}

type supabaseUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	AppMetadata  map[string]any `json:"app_metadata"`
}

type supabaseError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e supabaseError) text() string {
	for _, candidate := range []string{e.Msg, e.ErrorDescription, e.Message, e.Error} {
		if strings.TrimSpace(candidate) != "" {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}

// Verify implements Verifier.
func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (*domain.AuthenticatedUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", v.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, providerBodyLimit))
	if err != nil {
		return nil, fmt.Errorf("read identity provider response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var perr supabaseError
		msg := ""
		if json.Unmarshal(body, &perr) == nil {
			msg = perr.text()
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("identity provider rejected token (%d): %s", resp.StatusCode, msg)
	}

	var user supabaseUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("decode identity provider user: %w", err)
	}
	return &domain.AuthenticatedUser{
		ID:           user.ID,
		Email:        user.Email,
		UserMetadata: user.UserMetadata,
		AppMetadata:  user.AppMetadata,
	}, nil
}
