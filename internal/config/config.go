// Package config loads the daemon configuration from defaults, an
// optional configuration file and FINGERD_* environment variables,
// in increasing order of precedence. Command line flags override all
// of it.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config carries everything the daemon needs to start.
type Config struct {
	// Binds is the comma-separated list of addresses to listen on.
	Binds string `mapstructure:"binds"`

	// Hostname is the name the server reports about itself.
	Hostname string `mapstructure:"hostname"`

	// Source selects the user source, "dummy" or "scenario".
	Source string `mapstructure:"source"`

	// Scenario is the path to the scenario file when Source is
	// "scenario".
	Scenario string `mapstructure:"scenario"`

	// Watch reloads the scenario file when it changes on disk.
	Watch bool `mapstructure:"watch"`

	// MetricsAddr exposes Prometheus metrics over HTTP when set.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Load reads the configuration. A non-empty path names a
// configuration file that must exist; with an empty path no file is
// read and defaults plus environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("binds", "localhost:79")
	v.SetDefault("hostname", "LOCALHOST")
	v.SetDefault("source", "dummy")
	v.SetDefault("scenario", "")
	v.SetDefault("watch", false)
	v.SetDefault("metrics_addr", "")

	v.SetEnvPrefix("FINGERD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
