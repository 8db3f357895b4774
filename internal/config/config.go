package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/voicetray/vigil/internal/backoff"
	"github.com/voicetray/vigil/internal/breaker"
	"github.com/voicetray/vigil/internal/health"
	"github.com/voicetray/vigil/internal/logger"
	"github.com/voicetray/vigil/internal/manager"
	"github.com/voicetray/vigil/internal/process"
	"github.com/voicetray/vigil/internal/supervisor"
)

// FileConfig represents the top-level TOML structure of the daemon config.
type FileConfig struct {
	// Listen is the control API bind address.
	Listen string `toml:"listen" mapstructure:"listen"`
	// BasePath prefixes all control API routes.
	BasePath string `toml:"base_path" mapstructure:"base_path"`
	// LogLevel is the daemon's own log level (debug, info, warn, error).
	LogLevel string `toml:"log_level" mapstructure:"log_level"`
	// LogColor enables ANSI-colored daemon logs.
	LogColor bool `toml:"log_color" mapstructure:"log_color"`
	// StoreDSN selects the captured-log store. Empty disables persistence.
	// Accepts sqlite file paths, sqlite://, postgres:// and postgresql://.
	StoreDSN string `toml:"store_dsn" mapstructure:"store_dsn"`

	Server   ServiceConfig `toml:"server" mapstructure:"server"`
	Autotype ServiceConfig `toml:"autotype" mapstructure:"autotype"`
}

// ServiceConfig describes one supervised service.
type ServiceConfig struct {
	Command string        `toml:"command" mapstructure:"command"`
	WorkDir string        `toml:"workdir" mapstructure:"workdir"`
	Env     []string      `toml:"env" mapstructure:"env"`
	Log     logger.Config `toml:"log" mapstructure:"log"`

	StartupTimeout time.Duration `toml:"startup_timeout" mapstructure:"startup_timeout"`
	HealthInterval time.Duration `toml:"health_interval" mapstructure:"health_interval"`
	StopGrace      time.Duration `toml:"stop_grace" mapstructure:"stop_grace"`
	AutoRestart    bool          `toml:"autorestart" mapstructure:"autorestart"`

	Health  health.Config  `toml:"health" mapstructure:"health"`
	Breaker breaker.Config `toml:"breaker" mapstructure:"breaker"`
	Restart backoff.Config `toml:"restart" mapstructure:"restart"`
}

// Defaults for daemon-level settings.
const (
	DefaultListen   = "127.0.0.1:8431"
	DefaultBasePath = "/api"
)

// Load reads and validates a TOML config file.
func Load(path string) (*FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	fc.applyDefaults()
	if err := fc.Validate(); err != nil {
		return nil, err
	}
	return &fc, nil
}

func (fc *FileConfig) applyDefaults() {
	if fc.Listen == "" {
		fc.Listen = DefaultListen
	}
	if fc.BasePath == "" {
		fc.BasePath = DefaultBasePath
	}
	if !strings.HasPrefix(fc.BasePath, "/") {
		fc.BasePath = "/" + fc.BasePath
	}
	fc.BasePath = strings.TrimRight(fc.BasePath, "/")
	// The autotype client has no liveness endpoint and exits quickly,
	// so it gets a shorter grace period unless configured.
	if fc.Autotype.StopGrace <= 0 {
		fc.Autotype.StopGrace = 2 * time.Second
	}
}

// Validate rejects configs that cannot be supervised.
func (fc *FileConfig) Validate() error {
	if fc.Server.Command == "" {
		return fmt.Errorf("server.command is required")
	}
	if fc.Autotype.Command == "" {
		return fmt.Errorf("autotype.command is required")
	}
	if fc.Autotype.Health.ProbeURL != "" {
		return fmt.Errorf("autotype.health.probe_url must be empty: the autotype client has no liveness endpoint")
	}
	for _, sc := range []struct {
		name string
		cfg  ServiceConfig
	}{{"server", fc.Server}, {"autotype", fc.Autotype}} {
		if sc.cfg.StartupTimeout < 0 || sc.cfg.HealthInterval < 0 || sc.cfg.StopGrace < 0 {
			return fmt.Errorf("%s: durations must not be negative", sc.name)
		}
		if sc.cfg.Restart.MaxRestarts < 0 {
			return fmt.Errorf("%s: restart.max_restarts must not be negative", sc.name)
		}
	}
	return nil
}

// ManagerConfig translates the file config into supervisor configs.
func (fc *FileConfig) ManagerConfig() manager.Config {
	return manager.Config{
		Server:   fc.Server.supervisorConfig("server"),
		Autotype: fc.Autotype.supervisorConfig("autotype"),
	}
}

func (sc ServiceConfig) supervisorConfig(name string) supervisor.Config {
	return supervisor.Config{
		Spec: process.Spec{
			Name:    name,
			Command: sc.Command,
			WorkDir: sc.WorkDir,
			Env:     sc.Env,
			Log:     sc.Log,
		},
		StartupTimeout: sc.StartupTimeout,
		HealthInterval: sc.HealthInterval,
		StopGrace:      sc.StopGrace,
		AutoRestart:    sc.AutoRestart,
		Health:         sc.Health,
		Breaker:        sc.Breaker,
		Restart:        sc.Restart,
	}
}
