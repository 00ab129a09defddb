// Package telemetry provides opt-in error reporting to Sentry. Errors built
// with internal/errors are forwarded once Init has run with telemetry enabled.
package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/soilnorm/internal/conf"
	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/logger"
	"github.com/tphakala/soilnorm/internal/privacy"
)

// FlushTimeout bounds the wait for buffered events at exit.
const FlushTimeout = 5 * time.Second

var (
	log         = logger.Global().Module("telemetry")
	initialized atomic.Bool
)

// Init initializes the Sentry SDK when telemetry is enabled and installs the
// Sentry reporter for enhanced errors. Disabled telemetry is not an error.
func Init(settings *conf.Settings, release string) error {
	return initWithTransport(settings, release, nil)
}

func initWithTransport(settings *conf.Settings, release string, transport sentry.Transport) error {
	if !settings.Telemetry.Enabled {
		log.Debug("telemetry disabled")
		return nil
	}

	env := settings.Telemetry.Environment
	if env == "" {
		env = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Telemetry.DSN,
		Transport:        transport,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      env,
		ServerName:       "", // Explicitly clear server name to prevent hostname leakage
		Release:          fmt.Sprintf("soilnorm@%s", release),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetContext("application", map[string]any{
			"name":    "soilnorm",
			"version": release,
		})
	})

	errors.SetPrivacyScrubber(privacy.ScrubMessage)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized.Store(true)
	log.Info("Sentry telemetry initialized", logger.String("environment", env), logger.String("release", release))
	return nil
}

// Flush waits for buffered events. It does nothing when Init did not enable
// telemetry.
func Flush(timeout time.Duration) {
	if !initialized.Load() {
		return
	}
	sentry.Flush(timeout)
}

// Shutdown detaches the reporter and flushes pending events.
func Shutdown() {
	if !initialized.Swap(false) {
		return
	}
	errors.SetTelemetryReporter(nil)
	errors.SetPrivacyScrubber(nil)
	sentry.Flush(FlushTimeout)
}

// applyPrivacyFilters applies privacy filters to a Sentry event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	// Clear user data and server name
	event.User = sentry.User{}
	event.ServerName = ""

	// Remove sensitive contexts
	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	// Remove extra fields except allowed ones
	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}

	return event
}
