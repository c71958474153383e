package config

// Default values for optional configuration fields.
const (
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultEnvironment     = "test"
	DefaultSnapshotDir     = "data/universe"
	DefaultCacheCapacity   = 5
	DefaultHistoryWindow   = 64
	DefaultExtremeLookback = 5
	DefaultStatsWindow     = 20
	DefaultConcurrency     = 8
	DefaultLogLevel        = "info"
)

func (c *BuilderConfig) applyDefaults() {
	// Database defaults
	applyDBDefaults(&c.Database.Postgres)

	// Tables defaults
	if c.Tables.Environment == "" {
		c.Tables.Environment = DefaultEnvironment
	}

	// Snapshots defaults
	if c.Snapshots.Dir == "" {
		c.Snapshots.Dir = DefaultSnapshotDir
	}
	if c.Snapshots.CacheCapacity == 0 {
		c.Snapshots.CacheCapacity = DefaultCacheCapacity
	}

	// Build defaults
	if c.Build.HistoryWindow == 0 {
		c.Build.HistoryWindow = DefaultHistoryWindow
	}
	if c.Build.ExtremeLookback == 0 {
		c.Build.ExtremeLookback = DefaultExtremeLookback
	}
	if c.Build.StatsWindow == 0 {
		c.Build.StatsWindow = DefaultStatsWindow
	}
	if c.Build.Concurrency == 0 {
		c.Build.Concurrency = DefaultConcurrency
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
