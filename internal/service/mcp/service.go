package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/LuisErlacher/Archon/internal/domain"
)

const (
	// TransportStreamableHTTP is the only transport the MCP server exposes.
	TransportStreamableHTTP = "streamable-http"
	modelChoiceKey          = "MODEL_CHOICE"
	defaultModelChoice      = "gpt-4o-mini"
)

// StatusProber resolves the MCP status.
type StatusProber interface {
	Probe(ctx context.Context) domain.StatusRecord
}

// CredentialSource looks up stored settings with a fallback.
type CredentialSource interface {
	Get(ctx context.Context, key, fallback string) string
}

// Settings are the static values reported by the config and sessions endpoints.
type Settings struct {
	Host               string
	Port               int
	SessionTimeout     time.Duration
	DefaultModelChoice string
}

// Service answers MCP status, configuration and session queries.
type Service struct {
	prober      StatusProber
	credentials CredentialSource
	settings    Settings
	logger      *slog.Logger
}

// New constructs a Service. credentials may be nil, in which case the default model is reported.
func New(prober StatusProber, credentials CredentialSource, settings Settings, logger *slog.Logger) *Service {
	if settings.DefaultModelChoice == "" {
		settings.DefaultModelChoice = defaultModelChoice
	}
	if settings.SessionTimeout <= 0 {
		settings.SessionTimeout = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{prober: prober, credentials: credentials, settings: settings, logger: logger}
}

// Status probes the MCP process.
func (s *Service) Status(ctx context.Context) domain.StatusRecord {
	rec := s.prober.Probe(ctx)
	s.logger.Debug("mcp server status checked", "status", rec.Status, "mode", rec.Mode)
	return rec
}

// Config reports how to reach the MCP server and which model it runs with.
func (s *Service) Config(ctx context.Context) domain.MCPConfig {
	model := s.settings.DefaultModelChoice
	if s.credentials != nil {
		model = s.credentials.Get(ctx, modelChoiceKey, s.settings.DefaultModelChoice)
	}
	cfg := domain.MCPConfig{
		Host:        s.settings.Host,
		Port:        s.settings.Port,
		Transport:   TransportStreamableHTTP,
		ModelChoice: model,
	}
	s.logger.Info("mcp configuration resolved", "host", cfg.Host, "port", cfg.Port, "transport", cfg.Transport, "model_choice", cfg.ModelChoice)
	return cfg
}

// Sessions reports session information. Uptime is included only while the server runs.
func (s *Service) Sessions(ctx context.Context) domain.SessionInfo {
	rec := s.prober.Probe(ctx)
	info := domain.SessionInfo{
		ActiveSessions: 0,
		SessionTimeout: int(s.settings.SessionTimeout / time.Second),
	}
	if rec.Status == domain.MCPStatusRunning && rec.Uptime != nil && *rec.Uptime > 0 {
		uptime := *rec.Uptime
		info.ServerUptimeSeconds = &uptime
	}
	return info
}

// Clients lists connected MCP clients.
// TODO: detect clients from the MCP server's session registry once it exposes one.
func (s *Service) Clients(context.Context) domain.ClientList {
	return domain.ClientList{Clients: []domain.MCPClient{}, Total: 0}
}
