package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/subosito/gotenv"
)

// Constants
const (
	DefaultPort      = "5003"
	DefaultOutputDir = "downloads"
	EnvFile          = ".env"
)

// Config holds every environment-driven setting of the server.
type Config struct {
	Port      string `envconfig:"PORT" default:"5003"`
	OutputDir string `envconfig:"OUTPUT_DIR" default:"downloads"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	YtdlpPath      string `envconfig:"YTDLP_PATH"`
	DirectDownload bool   `envconfig:"DIRECT_DOWNLOAD" default:"true"`
	RemuxEnabled   bool   `envconfig:"REMUX_ENABLED" default:"false"`

	PreflightEnabled bool          `envconfig:"PREFLIGHT_ENABLED" default:"true"`
	PreflightInstall bool          `envconfig:"PREFLIGHT_INSTALL" default:"true"`
	PreflightTimeout time.Duration `envconfig:"PREFLIGHT_TIMEOUT" default:"2m"`

	MetricsEnabled  bool          `envconfig:"METRICS_ENABLED" default:"true"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// Load reads the optional .env file and then the process environment.
// Variables already present in the environment win over the file.
func Load() (*Config, error) {
	if err := gotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading %s: %w", EnvFile, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	if strings.TrimSpace(cfg.Port) == "" {
		cfg.Port = DefaultPort
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		cfg.OutputDir = DefaultOutputDir
	}

	return &cfg, nil
}

// Addr returns the listen address for the configured port.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// LogrusLevel maps LOG_LEVEL to a logrus level, falling back to info.
func (c *Config) LogrusLevel() logrus.Level {
	lvl, err := logrus.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Formatter returns the logrus formatter selected by LOG_FORMAT.
func (c *Config) Formatter() logrus.Formatter {
	if strings.EqualFold(c.LogFormat, "text") {
		return &logrus.TextFormatter{FullTimestamp: true}
	}
	return &logrus.JSONFormatter{}
}

// ConfigureLogging applies level and formatter to the standard logrus logger.
func (c *Config) ConfigureLogging() {
	logrus.SetFormatter(c.Formatter())
	logrus.SetLevel(c.LogrusLevel())
}
