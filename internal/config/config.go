// Package config provides configuration management for the VIOS tools.
package config

import "time"

// Config is the root configuration shared by the altdisk orchestrator
// and the vioshc health checker.
type Config struct {
	NIM     NIMConfig     `mapstructure:"nim"`
	Altdisk AltdiskConfig `mapstructure:"altdisk"`
	HMC     HMCConfig     `mapstructure:"hmc"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Report  ReportConfig  `mapstructure:"report"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// NIMConfig describes how the NIM master is queried.
type NIMConfig struct {
	// RSHPath is the c_rsh binary used to reach VIOS partitions.
	RSHPath string `mapstructure:"rsh_path" validate:"required"`
	// SnapshotFile optionally preloads the inventory instead of running
	// lsnim discovery; it is also where the refreshed snapshot is saved.
	SnapshotFile string `mapstructure:"snapshot_file"`
	// Concurrency bounds the reachability probe fan-out.
	Concurrency int `mapstructure:"concurrency" validate:"gte=1,lte=100"`
}

// AltdiskConfig tunes the alternate-disk workflow.
type AltdiskConfig struct {
	DiskSizePolicy string        `mapstructure:"disk_size_policy" validate:"oneof=minimize upper lower nearest"`
	Force          bool          `mapstructure:"force"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	// StallLimit is the number of consecutive polls without progress
	// before a NIM operation is declared blocked.
	StallLimit int `mapstructure:"stall_limit" validate:"gte=1"`
	// TimeLimit is an optional "mm/dd/yyyy hh:mm" deadline; pairs not
	// started before it are skipped.
	TimeLimit string `mapstructure:"time_limit"`
}

// HMCConfig describes the HMC REST endpoint used by the health checker.
type HMCConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	PasswordFile string        `mapstructure:"password_file"`
	Timeout      time.Duration `mapstructure:"timeout"`
	VerifyTLS    bool          `mapstructure:"verify_tls"`
	// LogFile receives a persistent copy of the health-check log for
	// post-mortem diagnostics.
	LogFile string `mapstructure:"log_file"`
}

// HTTPConfig contains HTTP client configurations including retry settings.
type HTTPConfig struct {
	Retry RetryConfig `mapstructure:"retry"`
}

// RetryConfig defines retry behavior for HTTP requests.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
}

// ReportConfig contains configurations for report generation.
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	Timezone  string `mapstructure:"timezone"`
}

// LoggingConfig contains configurations for logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}
