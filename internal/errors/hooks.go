package errors

import (
	"sync"
	"sync/atomic"
)

// ErrorHook observes every error built while reporting is active.
type ErrorHook func(ee *EnhancedError)

var (
	hooksMu    sync.RWMutex
	errorHooks []ErrorHook

	// hasActiveReporting gates the slow path in Build. It is true when a
	// hook is registered or a telemetry reporter is enabled.
	hasActiveReporting atomic.Bool
)

// AddErrorHook registers a hook called for every built error.
func AddErrorHook(hook ErrorHook) {
	if hook == nil {
		return
	}
	hooksMu.Lock()
	errorHooks = append(errorHooks, hook)
	hooksMu.Unlock()
	refreshReporting()
}

// ClearErrorHooks removes every registered hook.
func ClearErrorHooks() {
	hooksMu.Lock()
	errorHooks = nil
	hooksMu.Unlock()
	refreshReporting()
}

func notifyHooks(ee *EnhancedError) {
	hooksMu.RLock()
	hooks := make([]ErrorHook, len(errorHooks))
	copy(hooks, errorHooks)
	hooksMu.RUnlock()

	for _, hook := range hooks {
		hook(ee)
	}
}

func refreshReporting() {
	hooksMu.RLock()
	n := len(errorHooks)
	hooksMu.RUnlock()

	reporter := GetTelemetryReporter()
	hasActiveReporting.Store(n > 0 || (reporter != nil && reporter.IsEnabled()))
}
