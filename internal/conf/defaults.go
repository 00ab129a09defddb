// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sentinel written over QC-flagged reflectance values.
const DefaultSentinel = -9999.0

// White reference selection strategies.
const (
	WhiteReferenceNearest = "nearest"
	WhiteReferenceOverall = "overall"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("verbose", 1)

	v.SetDefault("output.root", "")
	v.SetDefault("output.overwrite", false)
	v.SetDefault("output.extendedmetadata", true)
	v.SetDefault("output.ossl", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.redact", false)
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "warn")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "logs/soilnorm.log")
	v.SetDefault("logging.file.level", "debug")

	v.SetDefault("reflectance.whitereference", WhiteReferenceNearest)
	v.SetDefault("reflectance.sentinel", DefaultSentinel)
	v.SetDefault("reflectance.checkdepthorder", true)
	v.SetDefault("reflectance.checkwavelengths", true)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.textfile", "soilnorm.prom")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")
	v.SetDefault("telemetry.environment", "production")

	v.SetDefault("notification.enabled", false)
	v.SetDefault("notification.urls", []string{})
	v.SetDefault("notification.title", "soilnorm run summary")
}
