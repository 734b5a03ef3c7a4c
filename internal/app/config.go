package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ridscan/internal/rid"
)

// Default configuration constants.
const (
	DefaultTimeoutMS       = 30000
	DefaultCleanupInterval = 5 * time.Second
	DefaultLogDir          = "./logs"
)

// Config holds application configuration, assembled from the optional YAML
// config file and CLI flags.
type Config struct {
	// Input selects the capture source: a replay file path or "-" for
	// stdin.
	Input string `yaml:"input"`
	// Format is the capture input format: "hex" (text replay) or
	// "stream" (binary framing).
	Format string `yaml:"format"`

	LogDir      string `yaml:"log_dir"`
	LogUTC      bool   `yaml:"log_utc"`
	DBPath      string `yaml:"db_path"`
	MetricsAddr string `yaml:"metrics_addr"`

	TimeoutMS  uint32 `yaml:"timeout_ms"`
	Dedup      bool   `yaml:"dedup"`
	EnableASTM bool   `yaml:"enable_astm"`
	EnableASD  bool   `yaml:"enable_asd"`
	EnableCN   bool   `yaml:"enable_cn"`

	EnableAnomaly    bool `yaml:"enable_anomaly"`
	EnableTrajectory bool `yaml:"enable_trajectory"`

	Verbose     bool `yaml:"-"`
	ShowVersion bool `yaml:"-"`
}

// DefaultAppConfig returns the stock application configuration.
func DefaultAppConfig() Config {
	return Config{
		Input:            "-",
		Format:           "hex",
		LogDir:           DefaultLogDir,
		LogUTC:           true,
		TimeoutMS:        DefaultTimeoutMS,
		Dedup:            true,
		EnableASTM:       true,
		EnableAnomaly:    true,
		EnableTrajectory: true,
	}
}

// LoadConfig merges a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultAppConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// ParserConfig converts the application settings to the parser core config.
func (c *Config) ParserConfig() rid.Config {
	return rid.Config{
		UAVTimeout:          time.Duration(c.TimeoutMS) * time.Millisecond,
		EnableDeduplication: c.Dedup,
		EnableASTM:          c.EnableASTM,
		EnableASD:           c.EnableASD,
		EnableCN:            c.EnableCN,
	}
}
