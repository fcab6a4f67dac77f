package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"github.com/LuisErlacher/Archon/internal/domain"
	"github.com/LuisErlacher/Archon/internal/repository"
	"github.com/LuisErlacher/Archon/pkg/crypto"
)

var (
	// ErrStoreUnavailable is returned when no settings database is configured.
	ErrStoreUnavailable = errors.New("credential store not configured")
	// ErrEncryptionKeyMissing is returned when an encrypted value is read or written without a key.
	ErrEncryptionKeyMissing = errors.New("settings encryption key not configured")
)

// Service resolves stored settings, decrypting encrypted values.
type Service struct {
	settings repository.SettingsRepository
	secret   string
	logger   *slog.Logger
}

// New constructs a Service. settings may be nil when no database is configured.
func New(settings repository.SettingsRepository, secret string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{settings: settings, secret: secret, logger: logger}
}

// Lookup returns the plaintext value stored under key.
func (s *Service) Lookup(ctx context.Context, key string) (string, error) {
	if s.settings == nil {
		return "", ErrStoreUnavailable
	}
	setting, err := s.settings.GetSetting(ctx, key)
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	if !setting.IsEncrypted {
		return setting.Value, nil
	}
	if s.secret == "" {
		return "", ErrEncryptionKeyMissing
	}
	plain, err := crypto.OpenSetting(s.secret, key, setting.EncryptedValue)
	if err != nil {
		return "", fmt.Errorf("decrypt setting %s: %w", key, err)
	}
	return plain, nil
}

// Get returns the stored value for key, or fallback when it is missing, empty or unreadable.
func (s *Service) Get(ctx context.Context, key, fallback string) string {
	value, err := s.Lookup(ctx, key)
	if err != nil {
		switch {
		case errors.Is(err, ErrStoreUnavailable):
		case errors.Is(err, repository.ErrNotFound):
			s.logger.Debug("setting not found, using fallback", "key", key)
		default:
			s.logger.Warn("setting lookup failed, using fallback", "key", key, "error", err)
		}
		return fallback
	}
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// Set stores value under key, encrypting it when encrypt is true.
func (s *Service) Set(ctx context.Context, key, value, category string, encrypt bool) error {
	if s.settings == nil {
		return ErrStoreUnavailable
	}
	setting := &domain.Setting{Key: key, Category: category, IsEncrypted: encrypt}
	if encrypt {
		if s.secret == "" {
			return ErrEncryptionKeyMissing
		}
		payload, err := crypto.SealSetting(s.secret, key, value)
		if err != nil {
			return fmt.Errorf("encrypt setting %s: %w", key, err)
		}
		setting.EncryptedValue = payload
	} else {
		setting.Value = value
	}
	if err := s.settings.UpsertSetting(ctx, setting); err != nil {
		return fmt.Errorf("store setting %s: %w", key, err)
	}
	s.logger.Info("setting stored", "key", key, "encrypted", encrypt)
	return nil
}
