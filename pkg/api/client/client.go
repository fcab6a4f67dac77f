package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LuisErlacher/Archon/internal/domain"
)

// DefaultBaseURL is the API address used when none is configured.
const DefaultBaseURL = "http://localhost:8181"

// Client provides typed access to the Archon API for interactive tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// Unauthorized reports whether the API rejected the bearer token.
func (e APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg := extractError(resp.Body)
		return APIError{Status: resp.StatusCode, Message: msg}
	}

	if v == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.Detail == "" {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Detail)
}

// User reflects the authenticated user payload.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	AppMetadata  map[string]any `json:"app_metadata"`
}

// VerifyResult is the answer of the token verification endpoint.
type VerifyResult struct {
	Valid bool  `json:"valid"`
	User  *User `json:"user"`
}

// VerifyToken asks the API whether token is valid. A rejected token is not an error.
func (c *Client) VerifyToken(ctx context.Context, token string) (VerifyResult, error) {
	var resp VerifyResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/verify", map[string]string{"token": token}, "", &resp); err != nil {
		return VerifyResult{}, err
	}
	return resp, nil
}

// CurrentUser returns the user the token belongs to.
func (c *Client) CurrentUser(ctx context.Context, token string) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/auth/user", nil, token, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Known MCP states. Anything else the server reports is surfaced as StatusError.
const (
	StatusRunning   = string(domain.MCPStatusRunning)
	StatusStopped   = string(domain.MCPStatusStopped)
	StatusUnhealthy = string(domain.MCPStatusUnhealthy)
	StatusNotFound  = string(domain.MCPStatusNotFound)
	StatusError     = string(domain.MCPStatusError)
)

// MCPStatus is the MCP liveness record.
type MCPStatus struct {
	Status          string   `json:"status"`
	Uptime          *int64   `json:"uptime"`
	Logs            []string `json:"logs"`
	ContainerStatus string   `json:"container_status"`
	Mode            string   `json:"mode"`
	Message         string   `json:"message,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// MCPStatus fetches the MCP liveness record.
func (c *Client) MCPStatus(ctx context.Context, token string) (MCPStatus, error) {
	var st MCPStatus
	if err := c.do(ctx, http.MethodGet, "/api/mcp/status", nil, token, &st); err != nil {
		return MCPStatus{}, err
	}
	st.Status = string(domain.NormalizeStatus(st.Status))
	return st, nil
}

// MCPConfig describes how to reach the MCP server.
type MCPConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Transport   string `json:"transport"`
	ModelChoice string `json:"model_choice"`
}

// MCPConfig fetches the MCP connection settings.
func (c *Client) MCPConfig(ctx context.Context, token string) (MCPConfig, error) {
	var cfg MCPConfig
	if err := c.do(ctx, http.MethodGet, "/api/mcp/config", nil, token, &cfg); err != nil {
		return MCPConfig{}, err
	}
	return cfg, nil
}

// MCPSessions summarises MCP session state.
type MCPSessions struct {
	ActiveSessions      int    `json:"active_sessions"`
	SessionTimeout      int    `json:"session_timeout"`
	ServerUptimeSeconds *int64 `json:"server_uptime_seconds,omitempty"`
}

// MCPSessions fetches session information.
func (c *Client) MCPSessions(ctx context.Context, token string) (MCPSessions, error) {
	var s MCPSessions
	if err := c.do(ctx, http.MethodGet, "/api/mcp/sessions", nil, token, &s); err != nil {
		return MCPSessions{}, err
	}
	return s, nil
}

// MCPClient is a connected MCP client.
type MCPClient struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// MCPClients lists connected MCP clients.
func (c *Client) MCPClients(ctx context.Context, token string) ([]MCPClient, error) {
	var resp struct {
		Clients []MCPClient `json:"clients"`
		Total   int         `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/mcp/clients", nil, token, &resp); err != nil {
		return nil, err
	}
	return resp.Clients, nil
}

// Health is the API health payload.
type Health struct {
	Status     string         `json:"status"`
	Service    string         `json:"service"`
	Components map[string]any `json:"components"`
}

// Health fetches the API health summary. A 503 is reported as a degraded status rather than an error.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/health", nil, "", &h)
	var apiErr APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable {
		return Health{Status: "degraded", Service: "api"}, nil
	}
	if err != nil {
		return Health{}, err
	}
	return h, nil
}
