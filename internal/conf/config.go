// config.go: application settings for soilnorm and the functions to load them.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// OutputSettings controls where and how normalized documents are written.
type OutputSettings struct {
	Root             string // destination root used when a job dst is relative
	Overwrite        bool   // remove ai4sh, xspectre and ossl subtrees before a job runs
	ExtendedMetadata bool   // add scan tuning, QC counters, muzzle and raw DN to xspectre documents
	OSSL             bool   // write OSSL spectral library CSV files
}

// ReflectanceSettings controls the reflectance engine.
type ReflectanceSettings struct {
	WhiteReference   string  // "nearest" or "overall"
	Sentinel         float64 // value written over QC-flagged elements
	CheckDepthOrder  bool    // reject records with min_depth > max_depth
	CheckWavelengths bool    // reject scans whose vectors differ in length
}

// MetricsSettings controls the prometheus textfile export.
type MetricsSettings struct {
	Enabled  bool
	Textfile string // path of the .prom file written at the end of a run
}

// TelemetrySettings controls error reporting to Sentry.
type TelemetrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
}

// NotificationSettings controls the end-of-run summary push.
type NotificationSettings struct {
	Enabled bool
	URLs    []string
	Title   string
}

// Settings contains all configuration options for soilnorm.
type Settings struct {
	Debug   bool // true to enable debug mode
	Verbose int  // 0 quiet, 1 warnings, 2 per-file success lines, 3 everything

	Output       OutputSettings
	Logging      logger.LoggingConfig
	Reflectance  ReflectanceSettings
	Metrics      MetricsSettings
	Telemetry    TelemetrySettings
	Notification NotificationSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	configFileFlag   string
)

// SetConfigFile points Load at an explicit config file instead of the
// default search paths.
func SetConfigFile(path string) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	configFileFlag = path
}

// Load reads the configuration file and environment variables into a Settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, errors.New(fmt.Errorf("error initializing viper: %w", err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error validating settings: %w", err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}

	settingsInstance = settings
	return settingsInstance, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("SOILNORM")
	viper.AutomaticEnv()

	setDefaultConfig()

	if configFileFlag != "" {
		viper.SetConfigFile(configFileFlag)
		return viper.ReadInConfig()
	}

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths)
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded config.yaml to the user config
// directory and reads it back.
func createDefaultConfig(configPaths []string) error {
	configPath := filepath.Join(configPaths[len(configPaths)-1], "config.yaml")

	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Fprintln(os.Stderr, "Created default config file at:", configPath)
	return viper.ReadInConfig()
}

func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings, loading defaults when Load has not
// run. Commands call this after flags are bound.
func Setting() *Settings {
	if s := GetSettings(); s != nil {
		return s
	}
	s, err := Load()
	if err != nil {
		logger.Global().Module("conf").Error("failed to load settings", logger.Error(err))
		return Defaults()
	}
	return s
}

// Defaults returns settings built from the default values only.
func Defaults() *Settings {
	v := viper.New()
	setDefaults(v)
	s := &Settings{}
	_ = v.Unmarshal(s)
	return s
}
