package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LuisErlacher/Archon/internal/domain"
	"github.com/LuisErlacher/Archon/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ repository.SettingsRepository = (*Repository)(nil)

const (
	settingSelect = `SELECT key, COALESCE(value, ''), encrypted_value, is_encrypted, COALESCE(category, ''), updated_at
		FROM archon_settings WHERE key = $1`
	settingUpsert = `INSERT INTO archon_settings (key, value, encrypted_value, is_encrypted, category, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			encrypted_value = EXCLUDED.encrypted_value,
			is_encrypted = EXCLUDED.is_encrypted,
			category = COALESCE(EXCLUDED.category, archon_settings.category),
			updated_at = NOW()
		RETURNING updated_at`
)

// GetSetting fetches a setting by key.
func (r *Repository) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, repository.ErrInvalidArgument
	}
	row := r.pool.QueryRow(ctx, settingSelect, key)
	var s domain.Setting
	if err := row.Scan(&s.Key, &s.Value, &s.EncryptedValue, &s.IsEncrypted, &s.Category, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// UpsertSetting inserts or replaces a setting.
func (r *Repository) UpsertSetting(ctx context.Context, setting *domain.Setting) error {
	if setting == nil || strings.TrimSpace(setting.Key) == "" {
		return repository.ErrInvalidArgument
	}
	var encrypted []byte
	if setting.IsEncrypted {
		encrypted = setting.EncryptedValue
	}
	return r.pool.QueryRow(ctx, settingUpsert,
		strings.TrimSpace(setting.Key),
		setting.Value,
		encrypted,
		setting.IsEncrypted,
		setting.Category,
	).Scan(&setting.UpdatedAt)
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
