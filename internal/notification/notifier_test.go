package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/soilnorm/internal/conf"
	"github.com/tphakala/soilnorm/internal/errors"
)

type fakeSummary struct {
	title string
	lines []string
}

func (f fakeSummary) Title() string   { return f.title }
func (f fakeSummary) Lines() []string { return f.lines }

func TestNewNotifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings conf.NotificationSettings
		wantNil  bool
		wantErr  bool
	}{
		{name: "disabled", settings: conf.NotificationSettings{URLs: []string{"logger://"}}, wantNil: true},
		{name: "no urls", settings: conf.NotificationSettings{Enabled: true}, wantErr: true},
		{name: "unknown scheme", settings: conf.NotificationSettings{Enabled: true, URLs: []string{"nosuchservice://token@host"}}, wantErr: true},
		{name: "logger", settings: conf.NotificationSettings{Enabled: true, URLs: []string{"logger://"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n, err := NewNotifier(tt.settings)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.CategoryConfiguration, errors.CategoryOf(err))
				assert.NotContains(t, err.Error(), "token@host")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNil, n == nil)
		})
	}
}

func TestSend(t *testing.T) {
	t.Parallel()

	n, err := NewNotifier(conf.NotificationSettings{Enabled: true, URLs: []string{"logger://"}, Title: "soilnorm"})
	require.NoError(t, err)

	s := fakeSummary{title: "ai4sh", lines: []string{"foulum-ds2500: 12 written, 1 skipped", "neretva-ise-ph: 4 written"}}
	require.NoError(t, n.Send(context.Background(), s))

	var none *Notifier
	require.NoError(t, none.Send(context.Background(), s))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, n.Send(ctx, s), context.Canceled)
}

func TestMessage(t *testing.T) {
	t.Parallel()

	s := fakeSummary{lines: []string{"a: 1 written", "b: failed"}}
	assert.Equal(t, "a: 1 written\nb: failed", Message(s))
}

func TestSendErrorScrubbed(t *testing.T) {
	t.Parallel()

	// generic:// posts to a webhook; nothing listens on the reserved port
	n, err := NewNotifier(conf.NotificationSettings{
		Enabled: true,
		URLs:    []string{"generic://127.0.0.1:9/hook?token=s3cr3t"},
	})
	require.NoError(t, err)

	err = n.Send(context.Background(), fakeSummary{title: "ai4sh", lines: []string{"a: failed"}})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryNotification, errors.CategoryOf(err))
	assert.NotContains(t, err.Error(), "s3cr3t")
}
