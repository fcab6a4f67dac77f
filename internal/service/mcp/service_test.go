package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/LuisErlacher/Archon/internal/domain"
)

type proberStub struct {
	rec   domain.StatusRecord
	calls int
}

func (p *proberStub) Probe(context.Context) domain.StatusRecord {
	p.calls++
	return p.rec
}

type credentialStub struct {
	values map[string]string
	keys   []string
}

func (c *credentialStub) Get(_ context.Context, key, fallback string) string {
	c.keys = append(c.keys, key)
	if v, ok := c.values[key]; ok {
		return v
	}
	return fallback
}

func int64Ptr(v int64) *int64 { return &v }

func TestConfigUsesStoredModelChoice(t *testing.T) {
	creds := &credentialStub{values: map[string]string{"MODEL_CHOICE": "gpt-4.1"}}
	svc := New(&proberStub{}, creds, Settings{Host: "archon.local", Port: 9051}, newLogger())

	cfg := svc.Config(context.Background())

	if cfg.Host != "archon.local" || cfg.Port != 9051 {
		t.Fatalf("unexpected host/port: %+v", cfg)
	}
	if cfg.Transport != "streamable-http" {
		t.Fatalf("unexpected transport %q", cfg.Transport)
	}
	if cfg.ModelChoice != "gpt-4.1" {
		t.Fatalf("expected stored model choice, got %q", cfg.ModelChoice)
	}
	if len(creds.keys) != 1 || creds.keys[0] != "MODEL_CHOICE" {
		t.Fatalf("unexpected credential lookups: %v", creds.keys)
	}
}

func TestConfigFallsBackWithoutCredentialStore(t *testing.T) {
	svc := New(&proberStub{}, nil, Settings{Host: "localhost", Port: 8051}, newLogger())
	if got := svc.Config(context.Background()).ModelChoice; got != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %q", got)
	}
}

func TestSessionsIncludesUptimeWhenRunning(t *testing.T) {
	prober := &proberStub{rec: domain.StatusRecord{Status: domain.MCPStatusRunning, Uptime: int64Ptr(120)}}
	svc := New(prober, nil, Settings{SessionTimeout: time.Hour}, newLogger())

	info := svc.Sessions(context.Background())

	if info.ActiveSessions != 0 {
		t.Fatalf("unexpected active sessions %d", info.ActiveSessions)
	}
	if info.SessionTimeout != 3600 {
		t.Fatalf("unexpected session timeout %d", info.SessionTimeout)
	}
	if info.ServerUptimeSeconds == nil || *info.ServerUptimeSeconds != 120 {
		t.Fatalf("expected uptime 120, got %v", info.ServerUptimeSeconds)
	}
}

func TestSessionsOmitsUptime(t *testing.T) {
	cases := []domain.StatusRecord{
		{Status: domain.MCPStatusRunning},
		{Status: domain.MCPStatusRunning, Uptime: int64Ptr(0)},
		{Status: domain.MCPStatusStopped, Uptime: int64Ptr(50)},
		{Status: domain.MCPStatusError},
	}
	for _, rec := range cases {
		svc := New(&proberStub{rec: rec}, nil, Settings{}, newLogger())
		if info := svc.Sessions(context.Background()); info.ServerUptimeSeconds != nil {
			t.Fatalf("expected no uptime for %+v, got %d", rec, *info.ServerUptimeSeconds)
		}
	}
}

func TestClientsIsEmpty(t *testing.T) {
	svc := New(&proberStub{}, nil, Settings{}, newLogger())
	list := svc.Clients(context.Background())
	if list.Total != 0 || list.Clients == nil || len(list.Clients) != 0 {
		t.Fatalf("unexpected client list: %+v", list)
	}
}

func TestStatusDelegatesToProber(t *testing.T) {
	prober := &proberStub{rec: domain.StatusRecord{Status: domain.MCPStatusNotFound, Mode: domain.DeploymentDockerCompose}}
	svc := New(prober, nil, Settings{}, newLogger())
	rec := svc.Status(context.Background())
	if rec.Status != domain.MCPStatusNotFound || prober.calls != 1 {
		t.Fatalf("unexpected status %+v after %d calls", rec, prober.calls)
	}
}
