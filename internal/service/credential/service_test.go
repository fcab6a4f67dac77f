package credential

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/LuisErlacher/Archon/internal/domain"
	"github.com/LuisErlacher/Archon/internal/repository"
	"github.com/LuisErlacher/Archon/pkg/crypto"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type settingsRepoStub struct {
	rows   map[string]*domain.Setting
	getErr error
}

func newSettingsRepoStub() *settingsRepoStub {
	return &settingsRepoStub{rows: map[string]*domain.Setting{}}
}

func (r *settingsRepoStub) GetSetting(_ context.Context, key string) (*domain.Setting, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	s, ok := r.rows[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *settingsRepoStub) UpsertSetting(_ context.Context, setting *domain.Setting) error {
	cp := *setting
	r.rows[setting.Key] = &cp
	return nil
}

func TestGetReturnsPlainValue(t *testing.T) {
	repo := newSettingsRepoStub()
	repo.rows["MODEL_CHOICE"] = &domain.Setting{Key: "MODEL_CHOICE", Value: "gpt-4.1-mini"}
	svc := New(repo, "", newLogger())

	if got := svc.Get(context.Background(), "MODEL_CHOICE", "gpt-4o-mini"); got != "gpt-4.1-mini" {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestGetFallsBack(t *testing.T) {
	repo := newSettingsRepoStub()
	repo.rows["EMPTY"] = &domain.Setting{Key: "EMPTY", Value: "  "}
	cases := map[string]*Service{
		"no store":   New(nil, "", newLogger()),
		"missing":    New(newSettingsRepoStub(), "", newLogger()),
		"empty":      New(repo, "", newLogger()),
		"query fail": New(&settingsRepoStub{getErr: errors.New("connection reset")}, "", newLogger()),
	}
	for name, svc := range cases {
		key := "MODEL_CHOICE"
		if name == "empty" {
			key = "EMPTY"
		}
		if got := svc.Get(context.Background(), key, "gpt-4o-mini"); got != "gpt-4o-mini" {
			t.Fatalf("%s: expected fallback, got %q", name, got)
		}
	}
}

func TestEncryptedSettingRoundTrip(t *testing.T) {
	repo := newSettingsRepoStub()
	svc := New(repo, "settings-secret", newLogger())

	if err := svc.Set(context.Background(), "OPENAI_API_KEY", "sk-test", "api_keys", true); err != nil {
		t.Fatalf("set: %v", err)
	}
	stored := repo.rows["OPENAI_API_KEY"]
	if !stored.IsEncrypted || stored.Value != "" || len(stored.EncryptedValue) == 0 {
		t.Fatalf("expected encrypted row, got %+v", stored)
	}
	got, err := svc.Lookup(context.Background(), "OPENAI_API_KEY")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != "sk-test" {
		t.Fatalf("unexpected plaintext %q", got)
	}
}

func TestEncryptedSettingWithoutKey(t *testing.T) {
	payload, err := crypto.SealSetting("other", "TOKEN", "secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	repo := newSettingsRepoStub()
	repo.rows["TOKEN"] = &domain.Setting{Key: "TOKEN", EncryptedValue: payload, IsEncrypted: true}

	if _, err := New(repo, "", newLogger()).Lookup(context.Background(), "TOKEN"); !errors.Is(err, ErrEncryptionKeyMissing) {
		t.Fatalf("expected missing key error, got %v", err)
	}
	if got := New(repo, "wrong", newLogger()).Get(context.Background(), "TOKEN", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback on decrypt failure, got %q", got)
	}
	if err := New(repo, "", newLogger()).Set(context.Background(), "TOKEN", "x", "", true); !errors.Is(err, ErrEncryptionKeyMissing) {
		t.Fatalf("expected missing key error on set, got %v", err)
	}
}

func TestEncryptedSettingMovedToAnotherKey(t *testing.T) {
	repo := newSettingsRepoStub()
	svc := New(repo, "settings-secret", newLogger())

	if err := svc.Set(context.Background(), "OPENAI_API_KEY", "sk-test", "api_keys", true); err != nil {
		t.Fatalf("set: %v", err)
	}
	moved := *repo.rows["OPENAI_API_KEY"]
	moved.Key = "MODEL_CHOICE"
	repo.rows["MODEL_CHOICE"] = &moved

	if _, err := svc.Lookup(context.Background(), "MODEL_CHOICE"); err == nil {
		t.Fatalf("expected ciphertext copied to another key to be rejected")
	}
	if got := svc.Get(context.Background(), "MODEL_CHOICE", "gpt-4o-mini"); got != "gpt-4o-mini" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestLookupWithoutStore(t *testing.T) {
	if _, err := New(nil, "", newLogger()).Lookup(context.Background(), "X"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
