package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	Storage  MStorageConfig `yaml:"storage"`
	Network  MNetworkConfig `yaml:"network"`
	Tracker  MTrackerConfig `yaml:"tracker"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
}

type MTrackerConfig struct {
	Tickers               []string `yaml:"tickers"`
	PEThreshold           float64  `yaml:"pe_threshold"`
	StalenessMinutes      int      `yaml:"staleness_minutes"`
	RateLimitIntervalMs   int      `yaml:"rate_limit_interval_ms"`
	UpdateIntervalSeconds int      `yaml:"update_interval_seconds"`
	SeedUniverse          bool     `yaml:"seed_universe"`
}
