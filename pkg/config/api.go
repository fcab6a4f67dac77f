package config

import (
	"strings"
	"time"
)

// Service discovery modes understood by SERVICE_DISCOVERY_MODE.
const (
	DiscoveryDockerCompose = "docker_compose"
	DiscoveryKubernetes    = "kubernetes"
)

// Identity providers understood by AUTH_PROVIDER.
const (
	AuthProviderSupabase = "supabase"
	AuthProviderJWT      = "jwt"
)

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment string
	Addr        string
	MetricsAddr string
	LogLevel    string

	ServiceDiscoveryMode string
	MCPServiceURL        string
	MCPContainerName     string
	MCPProbeTimeout      time.Duration
	MCPSessionTimeout    time.Duration
	MCPPort              int
	Host                 string
	DockerHost           string

	AuthEnabled        bool
	AuthProvider       string
	AuthTimeout        time.Duration
	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseJWTSecret  string

	DatabaseURL        string
	MigrationsDir      string
	SettingsKey        string
	DefaultModelChoice string

	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:          GetString("APP_ENV", "development"),
		Addr:                 GetString("API_ADDR", ":8181"),
		MetricsAddr:          GetString("METRICS_ADDR", ""),
		LogLevel:             GetString("LOG_LEVEL", "info"),
		ServiceDiscoveryMode: strings.TrimSpace(GetString("SERVICE_DISCOVERY_MODE", DiscoveryDockerCompose)),
		MCPServiceURL:        GetString("MCP_SERVICE_URL", "http://archon-mcp-service.archon.svc.cluster.local:8051"),
		MCPContainerName:     GetString("MCP_CONTAINER_NAME", "archon-mcp"),
		MCPProbeTimeout:      GetSeconds("MCP_PROBE_TIMEOUT_SECONDS", 5*time.Second),
		MCPSessionTimeout:    GetSeconds("MCP_SESSION_TIMEOUT_SECONDS", time.Hour),
		MCPPort:              GetInt("ARCHON_MCP_PORT", 8051),
		Host:                 GetString("ARCHON_HOST", "localhost"),
		DockerHost:           GetString("DOCKER_HOST", ""),
		AuthEnabled:          GetBool("AUTH_ENABLED", false),
		AuthProvider:         strings.ToLower(strings.TrimSpace(GetString("AUTH_PROVIDER", AuthProviderSupabase))),
		AuthTimeout:          GetSeconds("AUTH_TIMEOUT_SECONDS", 10*time.Second),
		SupabaseURL:          GetString("SUPABASE_URL", ""),
		SupabaseServiceKey:   GetString("SUPABASE_SERVICE_KEY", ""),
		SupabaseJWTSecret:    GetString("SUPABASE_JWT_SECRET", ""),
		DatabaseURL:          GetString("DATABASE_URL", ""),
		MigrationsDir:        GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		SettingsKey:          GetString("ARCHON_SETTINGS_KEY", ""),
		DefaultModelChoice:   GetString("MODEL_CHOICE_DEFAULT", "gpt-4o-mini"),
		RateLimitRedisAddr:   GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass:   GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:     GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}
