package errors

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)
	ClearErrorHooks()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestFastPathInheritsWrappedCategory(t *testing.T) {
	SetTelemetryReporter(nil)
	ClearErrorHooks()

	inner := SetupError(fmt.Errorf("coordinate file missing"), "lookup")
	outer := Wrap(fmt.Errorf("job soil-wetlab: %w", inner)).Build()

	assert.Equal(t, CategoryJobSetup, outer.Category)
	assert.True(t, IsFatal(outer))
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"job setup", New(fmt.Errorf("x")).Category(CategoryJobSetup).Build(), true},
		{"configuration", New(fmt.Errorf("x")).Category(CategoryConfiguration).Build(), true},
		{"validation", ValidationError("subsample id not recognised"), false},
		{"plain", fmt.Errorf("plain"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestHooksReceiveErrors(t *testing.T) {
	SetTelemetryReporter(nil)
	ClearErrorHooks()
	t.Cleanup(ClearErrorHooks)

	var seen atomic.Int32
	var lastCategory atomic.Value
	AddErrorHook(func(ee *EnhancedError) {
		seen.Add(1)
		lastCategory.Store(ee.Category)
	})

	_ = New(fmt.Errorf("locus not found")).Component("record").Build()
	_ = New(fmt.Errorf("write failed")).Category(CategoryOutput).Build()

	require.Equal(t, int32(2), seen.Load())
	assert.Equal(t, CategoryOutput, lastCategory.Load())
}

func TestDetectCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg       string
		component string
		want      ErrorCategory
	}{
		{"locus not found in coordinate table", "record", CategoryNotFound},
		{"pilot site observation not recognised", "naming", CategoryNotFound},
		{"cannot parse scandate", "device", CategoryFileParsing},
		{"open data.csv: permission denied", "lookup", CategoryFileIO},
		{"compulsory data missing", "record", CategoryValidation},
		{"vector length 3 vs 4", "reflectance", CategoryComputation},
		{"boom", "pipeline", CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, detectCategory(fmt.Errorf("%s", tt.msg), tt.component))
		})
	}
}

func TestBasicScrub(t *testing.T) {
	t.Parallel()

	msg := "missing user_analysis__email jane.doe@example.org in /home/jane/data.csv, see https://host/x?token=abc"
	scrubbed := basicScrub(msg)

	assert.NotContains(t, scrubbed, "jane.doe@example.org")
	assert.NotContains(t, scrubbed, "/home/jane/")
	assert.NotContains(t, scrubbed, "token=abc")
	assert.Contains(t, scrubbed, "[EMAIL_REDACTED]")
}

func TestFileContextDropsDirectories(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("x")).FileContext("/data/ktima/ds2500.CSV").Build()
	ctx := ee.GetContext()

	assert.Equal(t, "ds2500.CSV", ctx["file"])
	assert.Equal(t, "csv", ctx["file_extension"])
}
