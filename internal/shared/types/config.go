package types

// PoolConf contains the pipeline tuning knobs.
type PoolConf struct {
	// MaxRetries is the number of fetch->validate rounds GetOne runs
	// before giving up.
	MaxRetries int `ini:"max_retries"`

	// MaxAttemptsPerProxy bounds GetMany: the total attempt budget is
	// max_attempts_per_proxy * n. A tunable heuristic, not a guarantee.
	MaxAttemptsPerProxy int `ini:"max_attempts_per_proxy"`

	// TimeoutSeconds is the per-candidate validation timeout.
	TimeoutSeconds int `ini:"timeout_seconds"`

	// SourceTimeoutSeconds bounds each individual source fetch.
	SourceTimeoutSeconds int `ini:"source_timeout_seconds"`

	// FetchDeadlineSeconds bounds a whole fetch round across all sources.
	FetchDeadlineSeconds int `ini:"fetch_deadline_seconds"`

	// MaxCandidates caps the candidate list a fetch round returns.
	MaxCandidates int `ini:"max_candidates"`

	// Lenient keeps reachable-but-unproven proxies as "unvalidated"
	// instead of discarding them.
	Lenient bool `ini:"lenient"`
}

// CacheConf configures the on-disk proxy cache.
type CacheConf struct {
	Path        string `ini:"path"`
	MaxAgeHours int    `ini:"max_age_hours"`
	MaxEntries  int    `ini:"max_entries"`
}

// LogConf contains logging specific configuration.
type LogConf struct {
	Level string `ini:"level"`
}

// Config is the unified configuration structure loaded from the ini file.
type Config struct {
	PoolConf  `ini:"pool"`
	CacheConf `ini:"cache"`
	LogConf   `ini:"log"`
}

// DefaultConfig returns the built-in defaults used when no config file
// is present. Values mirror the tool's historical behavior.
func DefaultConfig() *Config {
	return &Config{
		PoolConf: PoolConf{
			MaxRetries:           3,
			MaxAttemptsPerProxy:  10,
			TimeoutSeconds:       10,
			SourceTimeoutSeconds: 10,
			FetchDeadlineSeconds: 30,
			MaxCandidates:        100,
			Lenient:              true,
		},
		CacheConf: CacheConf{
			Path:        "",
			MaxAgeHours: 24,
			MaxEntries:  500,
		},
		LogConf: LogConf{
			Level: "info",
		},
	}
}
