// conf/validate.go

package conf

import (
	"fmt"
	"strings"

	"github.com/tphakala/soilnorm/internal/logger"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if settings.Verbose < 0 || settings.Verbose > 3 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("verbose must be between 0 and 3, got %d", settings.Verbose))
	}

	if err := validateLoggingSettings(&settings.Logging); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateReflectanceSettings(&settings.Reflectance); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if settings.Metrics.Enabled && settings.Metrics.Textfile == "" {
		ve.Errors = append(ve.Errors, "metrics enabled but metrics.textfile is empty")
	}
	if settings.Telemetry.Enabled && settings.Telemetry.DSN == "" {
		ve.Errors = append(ve.Errors, "telemetry enabled but telemetry.dsn is empty")
	}
	if settings.Notification.Enabled && len(settings.Notification.URLs) == 0 {
		ve.Errors = append(ve.Errors, "notification enabled but no notification.urls configured")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLoggingSettings(cfg *logger.LoggingConfig) error {
	var problems []string
	if cfg.DefaultLevel != "" && !logger.ValidLevel(cfg.DefaultLevel) {
		problems = append(problems, fmt.Sprintf("invalid logging.level %q", cfg.DefaultLevel))
	}
	if cfg.Console != nil && cfg.Console.Level != "" && !logger.ValidLevel(cfg.Console.Level) {
		problems = append(problems, fmt.Sprintf("invalid logging.console.level %q", cfg.Console.Level))
	}
	if cfg.FileOutput != nil && cfg.FileOutput.Enabled {
		if cfg.FileOutput.Path == "" {
			problems = append(problems, "logging.file enabled without a path")
		}
		if cfg.FileOutput.Level != "" && !logger.ValidLevel(cfg.FileOutput.Level) {
			problems = append(problems, fmt.Sprintf("invalid logging.file.level %q", cfg.FileOutput.Level))
		}
	}
	for module, level := range cfg.ModuleLevels {
		if !logger.ValidLevel(level) {
			problems = append(problems, fmt.Sprintf("invalid level %q for module %s", level, module))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("logging settings: %s", strings.Join(problems, ", "))
	}
	return nil
}

func validateReflectanceSettings(cfg *ReflectanceSettings) error {
	switch cfg.WhiteReference {
	case WhiteReferenceNearest, WhiteReferenceOverall:
	default:
		return fmt.Errorf("reflectance.whitereference must be %q or %q, got %q",
			WhiteReferenceNearest, WhiteReferenceOverall, cfg.WhiteReference)
	}
	if cfg.Sentinel >= 0 {
		return fmt.Errorf("reflectance.sentinel must be negative, got %v", cfg.Sentinel)
	}
	return nil
}
