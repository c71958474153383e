package config

import (
	"errors"
	"fmt"
	"log/slog"
)

var validEnvironments = map[string]bool{
	"test": true,
	"intg": true,
	"prod": true,
}

var validLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Validate checks that all required fields are set and values are valid.
func (c *BuilderConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Database.Postgres.validate("database.postgres"); err != nil {
		return err
	}

	if !validEnvironments[c.Tables.Environment] {
		return fmt.Errorf("tables.environment must be one of test, intg, prod, got %q", c.Tables.Environment)
	}

	if c.Snapshots.Dir == "" {
		return errors.New("snapshots.dir is required")
	}
	if c.Snapshots.CacheCapacity < 1 {
		return errors.New("snapshots.cache_capacity must be >= 1")
	}

	if c.Build.ExtremeLookback < 3 {
		return errors.New("build.extreme_lookback must be >= 3")
	}
	if c.Build.HistoryWindow < c.Build.ExtremeLookback {
		return fmt.Errorf("build.history_window (%d) cannot be less than extreme_lookback (%d)", c.Build.HistoryWindow, c.Build.ExtremeLookback)
	}
	if c.Build.StatsWindow < 1 {
		return errors.New("build.stats_window must be >= 1")
	}
	if c.Build.Concurrency < 1 {
		return errors.New("build.concurrency must be >= 1")
	}

	if _, ok := validLogLevels[c.Logging.Level]; !ok {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// SlogLevel maps the configured level string to a slog.Level.
// Unknown values map to info; Validate rejects them first.
func (l LoggingConfig) SlogLevel() slog.Level {
	if lvl, ok := validLogLevels[l.Level]; ok {
		return lvl
	}
	return slog.LevelInfo
}
