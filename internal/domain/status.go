package domain

// MCPStatus is the normalized liveness state reported for the MCP process.
type MCPStatus string

const (
	MCPStatusRunning   MCPStatus = "running"
	MCPStatusStopped   MCPStatus = "stopped"
	MCPStatusUnhealthy MCPStatus = "unhealthy"
	MCPStatusNotFound  MCPStatus = "not_found"
	MCPStatusError     MCPStatus = "error"
)

// Valid reports whether s is one of the five published states.
func (s MCPStatus) Valid() bool {
	switch s {
	case MCPStatusRunning, MCPStatusStopped, MCPStatusUnhealthy, MCPStatusNotFound, MCPStatusError:
		return true
	}
	return false
}

// NormalizeStatus maps a wire value to a known state. Unrecognized values are
// treated as MCPStatusError.
func NormalizeStatus(raw string) MCPStatus {
	s := MCPStatus(raw)
	if s.Valid() {
		return s
	}
	return MCPStatusError
}

// DeploymentMode selects how the MCP process is probed.
type DeploymentMode string

const (
	// DeploymentDockerCompose inspects the MCP container through the local Docker API.
	DeploymentDockerCompose DeploymentMode = "docker_compose"
	// DeploymentKubernetes calls the MCP service health endpoint over HTTP.
	DeploymentKubernetes DeploymentMode = "kubernetes"
)

// ParseDeploymentMode resolves SERVICE_DISCOVERY_MODE. Anything other than
// "kubernetes" means docker compose.
func ParseDeploymentMode(raw string) DeploymentMode {
	if DeploymentMode(raw) == DeploymentKubernetes {
		return DeploymentKubernetes
	}
	return DeploymentDockerCompose
}

// Remote reports whether the mode probes over HTTP rather than the container runtime.
func (m DeploymentMode) Remote() bool {
	return m == DeploymentKubernetes
}

// StatusRecord is the result of a single MCP probe.
type StatusRecord struct {
	Status          MCPStatus      `json:"status"`
	Uptime          *int64         `json:"uptime"`
	Logs            []string       `json:"logs"`
	ContainerStatus string         `json:"container_status"`
	Mode            DeploymentMode `json:"mode"`
	Message         string         `json:"message,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// MCPConfig describes how clients should reach the MCP server.
type MCPConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Transport   string `json:"transport"`
	ModelChoice string `json:"model_choice"`
}

// SessionInfo summarises MCP session state.
type SessionInfo struct {
	ActiveSessions      int    `json:"active_sessions"`
	SessionTimeout      int    `json:"session_timeout"`
	ServerUptimeSeconds *int64 `json:"server_uptime_seconds,omitempty"`
}

// MCPClient is a connected MCP client. Client detection is not implemented yet,
// so lists are always empty.
type MCPClient struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ClientList is the payload of the clients endpoint.
type ClientList struct {
	Clients []MCPClient `json:"clients"`
	Total   int         `json:"total"`
}
