package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/LuisErlacher/Archon/internal/docker"
	"github.com/LuisErlacher/Archon/internal/domain"
)

const (
	defaultProbeTimeout   = 5 * time.Second
	defaultContainerName  = "archon-mcp"
	runtimeStatusRunning  = "running"
	containerStatusError  = "error"
	remoteNotReachable    = "not_reachable"
	remoteNotReachableMsg = "MCP service not reachable. Check if archon-mcp pod is running."
	healthBodyLimit       = 4096
)

// ContainerRuntime is the container engine view needed to inspect the MCP container.
type ContainerRuntime interface {
	InspectContainer(ctx context.Context, name string) (docker.ContainerState, error)
	Close() error
}

// RuntimeOpener acquires a runtime handle for the duration of one probe.
type RuntimeOpener func(ctx context.Context) (ContainerRuntime, error)

// DockerOpener opens a fresh Docker client against host (or the environment defaults).
func DockerOpener(host string) RuntimeOpener {
	return func(context.Context) (ContainerRuntime, error) {
		cli, err := docker.New(host)
		if err != nil {
			return nil, err
		}
		return cli, nil
	}
}

// ProberConfig configures a Prober.
type ProberConfig struct {
	Mode          domain.DeploymentMode
	ServiceURL    string
	ContainerName string
	Timeout       time.Duration
}

// Prober resolves the MCP process status for the configured deployment mode.
type Prober struct {
	mode          domain.DeploymentMode
	serviceURL    string
	containerName string
	timeout       time.Duration
	httpClient    *http.Client
	openRuntime   RuntimeOpener
	logger        *slog.Logger
	now           func() time.Time
}

// NewProber constructs a Prober. A nil httpClient gets a client bounded by the probe timeout.
func NewProber(cfg ProberConfig, httpClient *http.Client, openRuntime RuntimeOpener, logger *slog.Logger) *Prober {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	name := strings.TrimSpace(cfg.ContainerName)
	if name == "" {
		name = defaultContainerName
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		mode:          domain.ParseDeploymentMode(string(cfg.Mode)),
		serviceURL:    strings.TrimRight(strings.TrimSpace(cfg.ServiceURL), "/"),
		containerName: name,
		timeout:       timeout,
		httpClient:    httpClient,
		openRuntime:   openRuntime,
		logger:        logger,
		now:           time.Now,
	}
}

// Mode returns the deployment mode the prober was built for.
func (p *Prober) Mode() domain.DeploymentMode {
	return p.mode
}

// Probe reports the MCP status. It never fails: every error is folded into the record.
func (p *Prober) Probe(ctx context.Context) domain.StatusRecord {
	if p.mode.Remote() {
		return p.probeRemote(ctx)
	}
	return p.probeContainer(ctx)
}

func (p *Prober) probeRemote(ctx context.Context) domain.StatusRecord {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	endpoint := p.serviceURL + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		p.logger.Error("mcp health request invalid", "mode", p.mode, "url", endpoint, "error", err)
		return p.errorRecord(err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == nil && isConnectError(err) {
			p.logger.Error("mcp service not reachable", "mode", p.mode, "url", endpoint, "error", err)
			return domain.StatusRecord{
				Status:          domain.MCPStatusNotFound,
				Logs:            []string{},
				ContainerStatus: remoteNotReachable,
				Mode:            p.mode,
				Message:         remoteNotReachableMsg,
			}
		}
		p.logger.Error("mcp health check failed", "mode", p.mode, "url", endpoint, "error", err)
		return p.errorRecord(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, healthBodyLimit))

	if resp.StatusCode == http.StatusOK {
		p.logger.Debug("mcp health check successful", "mode", p.mode)
		return domain.StatusRecord{
			Status:          domain.MCPStatusRunning,
			Logs:            []string{},
			ContainerStatus: runtimeStatusRunning,
			Mode:            p.mode,
		}
	}
	p.logger.Warn("mcp health check returned non-200", "mode", p.mode, "status_code", resp.StatusCode)
	return domain.StatusRecord{
		Status:          domain.MCPStatusUnhealthy,
		Logs:            []string{},
		ContainerStatus: fmt.Sprintf("http_%d", resp.StatusCode),
		Mode:            p.mode,
	}
}

func (p *Prober) probeContainer(ctx context.Context) domain.StatusRecord {
	if p.openRuntime == nil {
		return p.errorRecord(errors.New("container runtime not configured"))
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	runtime, err := p.openRuntime(ctx)
	if err != nil {
		p.logger.Error("failed to open container runtime", "mode", p.mode, "error", err)
		return p.errorRecord(err)
	}
	defer func() {
		if cerr := runtime.Close(); cerr != nil {
			p.logger.Debug("container runtime close failed", "error", cerr)
		}
	}()

	state, err := runtime.InspectContainer(ctx, p.containerName)
	if err != nil {
		if errors.Is(err, docker.ErrNotFound) {
			return domain.StatusRecord{
				Status:          domain.MCPStatusNotFound,
				Logs:            []string{},
				ContainerStatus: string(domain.MCPStatusNotFound),
				Mode:            p.mode,
				Message:         fmt.Sprintf("MCP container not found. Run: docker compose up -d %s", p.containerName),
			}
		}
		p.logger.Error("failed to get container status", "mode", p.mode, "container", p.containerName, "error", err)
		return p.errorRecord(err)
	}

	if state.Status != runtimeStatusRunning {
		return domain.StatusRecord{
			Status:          domain.MCPStatusStopped,
			Logs:            []string{},
			ContainerStatus: state.Status,
			Mode:            p.mode,
		}
	}
	return domain.StatusRecord{
		Status:          domain.MCPStatusRunning,
		Uptime:          p.uptimeSince(state.StartedAt),
		Logs:            []string{},
		ContainerStatus: state.Status,
		Mode:            p.mode,
	}
}

// uptimeSince converts the runtime's start timestamp into whole seconds of uptime.
// Unparsable or unset timestamps yield nil.
func (p *Prober) uptimeSince(startedAt string) *int64 {
	started, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(startedAt))
	if err != nil || started.IsZero() || started.Year() <= 1 {
		return nil
	}
	elapsed := p.now().UTC().Sub(started.UTC())
	seconds := int64(elapsed / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	return &seconds
}

func (p *Prober) errorRecord(err error) domain.StatusRecord {
	return domain.StatusRecord{
		Status:          domain.MCPStatusError,
		Logs:            []string{},
		ContainerStatus: containerStatusError,
		Mode:            p.mode,
		Error:           err.Error(),
	}
}

// isConnectError reports whether err means the target could not be connected to at all.
func isConnectError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return !dnsErr.IsTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return !opErr.Timeout()
	}
	return false
}
