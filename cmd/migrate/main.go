package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LuisErlacher/Archon/internal/app/migrate"
	"github.com/LuisErlacher/Archon/internal/repository/postgres"
	"github.com/LuisErlacher/Archon/internal/service/credential"
	"github.com/LuisErlacher/Archon/pkg/config"
	"github.com/LuisErlacher/Archon/pkg/logger"
)

func main() {
	command := flag.String("command", "up", "migrate command (up|status|down|set)")
	timeout := flag.Duration("timeout", time.Minute, "command timeout")
	target := flag.Int64("target", 0, "target version for down command (optional)")
	key := flag.String("key", "", "setting key for the set command")
	value := flag.String("value", "", "setting value for the set command")
	category := flag.String("category", "", "setting category for the set command")
	encrypt := flag.Bool("encrypt", false, "encrypt the value with ARCHON_SETTINGS_KEY")
	flag.Parse()

	cfg := config.LoadAPIConfig()
	log := logger.New("migrate", logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	runner, err := migrate.New(cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migration runner", "error", err)
		os.Exit(1)
	}

	switch *command {
	case "up":
		if err := runner.Ensure(ctx); err != nil {
			log.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	case "status":
		if err := runner.Status(ctx); err != nil {
			log.Error("failed to fetch migration status", "error", err)
			os.Exit(1)
		}
	case "down":
		if err := runner.Down(ctx, *target); err != nil {
			log.Error("failed to roll back migrations", "error", err)
			os.Exit(1)
		}
	case "set":
		name := strings.TrimSpace(*key)
		if name == "" {
			log.Error("set requires -key")
			os.Exit(1)
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		svc := credential.New(postgres.New(pool), cfg.SettingsKey, log)
		if err := svc.Set(ctx, name, *value, *category, *encrypt); err != nil {
			log.Error("failed to store setting", "key", name, "error", err)
			os.Exit(1)
		}
		log.Info("setting stored", "key", name, "encrypted", *encrypt)
	default:
		log.Error("unsupported command", "command", *command)
		os.Exit(1)
	}

	log.Info("migration command completed", "command", *command)
}
