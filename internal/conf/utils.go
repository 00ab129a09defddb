package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tphakala/soilnorm/internal/errors"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in order: the working directory, then the per-user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	if runtime.GOOS == "windows" {
		return []string{".", filepath.Join(homeDir, "AppData", "Roaming", "soilnorm")}, nil
	}
	return []string{".", filepath.Join(homeDir, ".config", "soilnorm")}, nil
}

// ResolvePath joins p onto base unless p is already absolute or empty.
func ResolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}
