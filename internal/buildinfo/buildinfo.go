// Package buildinfo contains build-time metadata separate from user configuration
package buildinfo

// These are set with -ldflags "-X github.com/tphakala/soilnorm/internal/buildinfo.Version=..."
var (
	Version   = "dev"
	BuildDate = "unknown"
)

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string
}

// Current returns the metadata of the running binary.
func Current() Context {
	return Context{Version: Version, BuildDate: BuildDate}
}

// String renders the version line printed by --version.
func (c Context) String() string {
	return c.Version + " (built " + c.BuildDate + ")"
}
