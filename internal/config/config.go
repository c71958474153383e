package config

// BuilderConfig is the root configuration for a universe builder instance.
type BuilderConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Database  DatabaseConfig  `yaml:"database"`
	Tables    TablesConfig    `yaml:"tables"`
	Snapshots SnapshotsConfig `yaml:"snapshots"`
	Build     BuildConfig     `yaml:"build"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// InstanceConfig identifies this builder.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// DatabaseConfig holds the PostgreSQL connection for reference data.
// Note: Builders only read from PostgreSQL. Snapshot output is columnar files.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// TablesConfig selects the physical table environment.
//
// Logical table names (membership_intervals, membership_events,
// corporate_actions, price_bars) resolve to "<environment>_<name>" except in
// prod, where they resolve to the bare name.
type TablesConfig struct {
	Environment string `yaml:"environment"`
}

// SnapshotsConfig holds snapshot store settings.
type SnapshotsConfig struct {
	Dir           string `yaml:"dir"`
	CacheCapacity int    `yaml:"cache_capacity"`
}

// BuildConfig holds universe build settings.
type BuildConfig struct {
	HistoryWindow   int      `yaml:"history_window"`   // price bars retained per instrument
	ExtremeLookback int      `yaml:"extreme_lookback"` // bars consulted by e_top/e_bot
	StatsWindow     int      `yaml:"stats_window"`     // days in avg dollar volume
	Concurrency     int      `yaml:"concurrency"`      // parallel per-instrument workers
	Hooks           []string `yaml:"hooks"`            // lifecycle hooks to enable
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}
