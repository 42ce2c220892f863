package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from the specified YAML file and environment
// variables. Environment variables take precedence over file values.
// Environment variable format: VIOSINSPECT_<SECTION>_<KEY>
// (e.g., VIOSINSPECT_HMC_PASSWORD).
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("VIOSINSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// NIM defaults
	v.SetDefault("nim.rsh_path", "/usr/lpp/bos.sysmgt/nim/methods/c_rsh")
	v.SetDefault("nim.concurrency", 8)

	// Altdisk defaults
	v.SetDefault("altdisk.disk_size_policy", "nearest")
	v.SetDefault("altdisk.force", false)
	v.SetDefault("altdisk.poll_interval", 10*time.Second)
	v.SetDefault("altdisk.stall_limit", 180)

	// HMC defaults
	v.SetDefault("hmc.port", 12443)
	v.SetDefault("hmc.timeout", 30*time.Second)
	v.SetDefault("hmc.verify_tls", false)
	v.SetDefault("hmc.log_file", "/tmp/vios_maint_hc.log")

	// HTTP retry defaults
	v.SetDefault("http.retry.max_retries", 3)
	v.SetDefault("http.retry.base_delay", 1*time.Second)

	// Report defaults
	v.SetDefault("report.output_dir", "./reports")
	v.SetDefault("report.timezone", "UTC")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
