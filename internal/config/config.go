package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Conf holds the application configuration, making it accessible globally.
var Conf *Config

// Config struct is the top-level configuration structure.
type Config struct {
	Data     DataConfig     `mapstructure:"data"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DataConfig locates the inputs and outputs on disk.
type DataConfig struct {
	// Root is the data/<participantId>/<deviceName>/ tree shared by
	// every pipeline stage.
	Root string `mapstructure:"root"`
	// EyeLinkExport is the raw UTF-16 tab-separated export of the
	// screen-based tracker.
	EyeLinkExport string `mapstructure:"eyelink_export"`
	// DimensionsFile optionally overrides the built-in physical target
	// dimension table.
	DimensionsFile string `mapstructure:"dimensions_file"`
}

// PipelineConfig holds the cleaning thresholds shared by every stage.
type PipelineConfig struct {
	TrialDurationMS   float64 `mapstructure:"trial_duration_ms"`
	TimeTrim          float64 `mapstructure:"time_trim"`
	DistanceThreshold float64 `mapstructure:"distance_threshold"`
	ZThreshold        float64 `mapstructure:"z_threshold"`
	// Workers bounds the per-directory worker pool. Directories are
	// independent units of work; 1 reproduces strictly serial behavior.
	Workers int `mapstructure:"workers"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Data defaults
	v.SetDefault("data.root", "data")
	v.SetDefault("data.eyelink_export", "recordings/eyelink1000plus/Output/all_participants.xls")
	v.SetDefault("data.dimensions_file", "")

	// Pipeline defaults match the recording protocol.
	v.SetDefault("pipeline.trial_duration_ms", 5000)
	v.SetDefault("pipeline.time_trim", 25) // total percent, split evenly
	v.SetDefault("pipeline.distance_threshold", 10)
	v.SetDefault("pipeline.z_threshold", 3)
	v.SetDefault("pipeline.workers", 1)

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs
}

// Init initializes the configuration with Viper. Configuration is read
// once per run; thresholds changing mid-batch would make the run
// non-reproducible, so there is no file watching.
func Init(projectRoot string) error {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config") // Name of config file (without extension)
	v.SetConfigType("yaml")   // Type of config file

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("PSA") // e.g., PSA_PIPELINE_Z_THRESHOLD
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the initial configuration from the file.
	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal the config into our global Conf variable
	if err := v.Unmarshal(&Conf); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return nil
}
