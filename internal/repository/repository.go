package repository

import (
	"context"

	"github.com/LuisErlacher/Archon/internal/domain"
)

// SettingsRepository reads and writes rows of archon_settings.
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (*domain.Setting, error)
	UpsertSetting(ctx context.Context, setting *domain.Setting) error
}
