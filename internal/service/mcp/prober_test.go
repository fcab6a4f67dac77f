package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LuisErlacher/Archon/internal/docker"
	"github.com/LuisErlacher/Archon/internal/domain"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRuntime struct {
	state      docker.ContainerState
	inspectErr error
	inspected  []string
	closed     int
}

func (f *fakeRuntime) InspectContainer(_ context.Context, name string) (docker.ContainerState, error) {
	f.inspected = append(f.inspected, name)
	if f.inspectErr != nil {
		return docker.ContainerState{}, f.inspectErr
	}
	return f.state, nil
}

func (f *fakeRuntime) Close() error {
	f.closed++
	return nil
}

func openerFor(rt *fakeRuntime) RuntimeOpener {
	return func(context.Context) (ContainerRuntime, error) {
		return rt, nil
	}
}

func newContainerProber(rt *fakeRuntime, now time.Time) *Prober {
	p := NewProber(ProberConfig{Mode: domain.DeploymentDockerCompose}, nil, openerFor(rt), newLogger())
	p.now = func() time.Time { return now }
	return p
}

func newRemoteProber(url string) *Prober {
	return NewProber(ProberConfig{Mode: domain.DeploymentKubernetes, ServiceURL: url, Timeout: 2 * time.Second}, nil, nil, newLogger())
}

func TestProbeRemoteHealthy(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	rec := newRemoteProber(srv.URL + "/").Probe(context.Background())

	if gotPath != "/health" {
		t.Fatalf("expected /health to be probed, got %q", gotPath)
	}
	if rec.Status != domain.MCPStatusRunning {
		t.Fatalf("expected running, got %q", rec.Status)
	}
	if rec.Mode != domain.DeploymentKubernetes {
		t.Fatalf("expected kubernetes mode, got %q", rec.Mode)
	}
	if rec.Uptime != nil {
		t.Fatalf("expected no uptime for remote probe, got %d", *rec.Uptime)
	}
	if rec.ContainerStatus != "running" {
		t.Fatalf("unexpected container status %q", rec.ContainerStatus)
	}
}

func TestProbeRemoteUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rec := newRemoteProber(srv.URL).Probe(context.Background())

	if rec.Status != domain.MCPStatusUnhealthy {
		t.Fatalf("expected unhealthy, got %q", rec.Status)
	}
	if rec.ContainerStatus != "http_503" {
		t.Fatalf("expected http_503, got %q", rec.ContainerStatus)
	}
	if rec.Uptime != nil {
		t.Fatalf("expected nil uptime")
	}
}

func TestProbeRemoteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	rec := newRemoteProber(srv.URL).Probe(context.Background())
	if rec.Status != domain.MCPStatusUnhealthy || rec.ContainerStatus != "http_500" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestProbeRemoteConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	rec := newRemoteProber(url).Probe(context.Background())

	if rec.Status != domain.MCPStatusNotFound {
		t.Fatalf("expected not_found, got %q (error=%q)", rec.Status, rec.Error)
	}
	if rec.Mode != domain.DeploymentKubernetes {
		t.Fatalf("unexpected mode %q", rec.Mode)
	}
	if strings.TrimSpace(rec.Message) == "" {
		t.Fatalf("expected explanatory message")
	}
	if rec.ContainerStatus != "not_reachable" {
		t.Fatalf("unexpected container status %q", rec.ContainerStatus)
	}
}

func TestProbeRemoteInvalidURL(t *testing.T) {
	rec := newRemoteProber("http://bad host").Probe(context.Background())
	if rec.Status != domain.MCPStatusError {
		t.Fatalf("expected error, got %q", rec.Status)
	}
	if rec.Error == "" {
		t.Fatalf("expected error text")
	}
}

func TestProbeRemoteCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := newRemoteProber(srv.URL).Probe(ctx)
	if rec.Status != domain.MCPStatusError {
		t.Fatalf("expected error for cancelled probe, got %q", rec.Status)
	}
}

func TestProbeContainerRunningComputesUptime(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	rt := &fakeRuntime{state: docker.ContainerState{
		Status:    "running",
		StartedAt: "2025-03-10T13:58:29.750000000+02:00",
	}}

	rec := newContainerProber(rt, now).Probe(context.Background())

	if rec.Status != domain.MCPStatusRunning {
		t.Fatalf("expected running, got %q", rec.Status)
	}
	if rec.Mode != domain.DeploymentDockerCompose {
		t.Fatalf("unexpected mode %q", rec.Mode)
	}
	if rec.Uptime == nil {
		t.Fatalf("expected uptime")
	}
	if *rec.Uptime != 90 {
		t.Fatalf("expected 90s uptime (truncated), got %d", *rec.Uptime)
	}
	if rt.closed != 1 {
		t.Fatalf("expected runtime closed once, got %d", rt.closed)
	}
	if len(rt.inspected) != 1 || rt.inspected[0] != "archon-mcp" {
		t.Fatalf("unexpected inspected containers: %v", rt.inspected)
	}
}

func TestProbeContainerRunningWithBadTimestamp(t *testing.T) {
	for _, started := range []string{"not-a-time", "", "0001-01-01T00:00:00Z"} {
		rt := &fakeRuntime{state: docker.ContainerState{Status: "running", StartedAt: started}}
		rec := newContainerProber(rt, time.Now()).Probe(context.Background())
		if rec.Status != domain.MCPStatusRunning {
			t.Fatalf("expected running for %q, got %q", started, rec.Status)
		}
		if rec.Uptime != nil {
			t.Fatalf("expected nil uptime for %q, got %d", started, *rec.Uptime)
		}
	}
}

func TestProbeContainerClockSkewClampsUptime(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	rt := &fakeRuntime{state: docker.ContainerState{Status: "running", StartedAt: "2025-03-10T12:00:05Z"}}
	rec := newContainerProber(rt, now).Probe(context.Background())
	if rec.Uptime == nil || *rec.Uptime != 0 {
		t.Fatalf("expected uptime clamped to zero, got %v", rec.Uptime)
	}
}

func TestProbeContainerStopped(t *testing.T) {
	rt := &fakeRuntime{state: docker.ContainerState{Status: "exited", StartedAt: "2025-03-10T12:00:00Z"}}
	rec := newContainerProber(rt, time.Now()).Probe(context.Background())
	if rec.Status != domain.MCPStatusStopped {
		t.Fatalf("expected stopped, got %q", rec.Status)
	}
	if rec.ContainerStatus != "exited" {
		t.Fatalf("expected runtime status passed through, got %q", rec.ContainerStatus)
	}
	if rec.Uptime != nil {
		t.Fatalf("expected nil uptime for stopped container")
	}
}

func TestProbeContainerNotFound(t *testing.T) {
	rt := &fakeRuntime{inspectErr: errors.Join(errors.New("no such container"), docker.ErrNotFound)}
	rec := newContainerProber(rt, time.Now()).Probe(context.Background())

	if rec.Status != domain.MCPStatusNotFound {
		t.Fatalf("expected not_found, got %q", rec.Status)
	}
	if rec.Mode != domain.DeploymentDockerCompose {
		t.Fatalf("unexpected mode %q", rec.Mode)
	}
	if !strings.Contains(rec.Message, "docker compose up -d archon-mcp") {
		t.Fatalf("expected runnable hint, got %q", rec.Message)
	}
	if rt.closed != 1 {
		t.Fatalf("expected runtime closed, got %d", rt.closed)
	}
}

func TestProbeContainerRuntimeError(t *testing.T) {
	rt := &fakeRuntime{inspectErr: errors.New("daemon exploded")}
	rec := newContainerProber(rt, time.Now()).Probe(context.Background())
	if rec.Status != domain.MCPStatusError {
		t.Fatalf("expected error, got %q", rec.Status)
	}
	if !strings.Contains(rec.Error, "daemon exploded") {
		t.Fatalf("expected error text, got %q", rec.Error)
	}
	if rt.closed != 1 {
		t.Fatalf("expected runtime closed after failure, got %d", rt.closed)
	}
}

func TestProbeContainerOpenFailure(t *testing.T) {
	p := NewProber(ProberConfig{Mode: domain.DeploymentDockerCompose}, nil, func(context.Context) (ContainerRuntime, error) {
		return nil, errors.New("cannot connect to the docker daemon")
	}, newLogger())
	rec := p.Probe(context.Background())
	if rec.Status != domain.MCPStatusError || rec.Error == "" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestProbeNeverLeavesKnownStates(t *testing.T) {
	probers := []*Prober{
		newContainerProber(&fakeRuntime{inspectErr: docker.ErrNotFound}, time.Now()),
		newContainerProber(&fakeRuntime{inspectErr: errors.New("x")}, time.Now()),
		newContainerProber(&fakeRuntime{state: docker.ContainerState{Status: "paused"}}, time.Now()),
		newContainerProber(&fakeRuntime{state: docker.ContainerState{Status: "running"}}, time.Now()),
		NewProber(ProberConfig{Mode: domain.DeploymentDockerCompose}, nil, nil, newLogger()),
		newRemoteProber("http://127.0.0.1:1"),
	}
	for i, p := range probers {
		rec := p.Probe(context.Background())
		if !rec.Status.Valid() {
			t.Fatalf("prober %d returned unknown status %q", i, rec.Status)
		}
	}
}

func TestProbeIsIdempotent(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	rt := &fakeRuntime{state: docker.ContainerState{Status: "running", StartedAt: "2025-03-10T11:00:00Z"}}
	p := newContainerProber(rt, now)

	first := p.Probe(context.Background())
	p.now = func() time.Time { return now.Add(3 * time.Second) }
	second := p.Probe(context.Background())

	if first.Status != second.Status || first.Mode != second.Mode {
		t.Fatalf("expected identical status/mode, got %+v vs %+v", first, second)
	}
	if *second.Uptime-*first.Uptime != 3 {
		t.Fatalf("expected uptime to advance by elapsed time, got %d -> %d", *first.Uptime, *second.Uptime)
	}
	if rt.closed != 2 {
		t.Fatalf("expected a runtime handle per probe, got %d closes", rt.closed)
	}
}
