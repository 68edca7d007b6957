package main

import (
	"fmt"

	"github.com/kiwidesk/kiwi/internal/config"
	"github.com/kiwidesk/kiwi/internal/db"
	"gorm.io/gorm"
)

// connectFromConfig loads the config and opens its store with the schema
// migrated.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return cfg, gormDB, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
