// Package notification pushes the end-of-run summary to the shoutrrr URLs
// configured in settings (chat, e-mail, webhooks).
package notification

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/soilnorm/internal/conf"
	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/logger"
	"github.com/tphakala/soilnorm/internal/privacy"
)

// DefaultTimeout bounds a single send.
const DefaultTimeout = 10 * time.Second

var log = logger.Global().Module("notification")

// Summary is what gets posted: a title and one line per job.
type Summary interface {
	Title() string
	Lines() []string
}

// Notifier sends summaries through a single shoutrrr router covering all
// configured URLs.
type Notifier struct {
	urls   []string
	title  string
	sender *router.ServiceRouter
}

// NewNotifier builds the router. It returns nil without error when
// notifications are disabled.
func NewNotifier(settings conf.NotificationSettings) (*Notifier, error) {
	if !settings.Enabled {
		return nil, nil
	}
	if len(settings.URLs) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(settings.URLs...)
	if err != nil {
		// shoutrrr errors may echo the URL, tokens included
		return nil, errors.New(fmt.Errorf("invalid notification URL: %s", privacy.ScrubMessage(err.Error()))).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	sender.Timeout = DefaultTimeout
	sender.SetLogger(stdlog.New(io.Discard, "", 0))

	return &Notifier{
		urls:   slices.Clone(settings.URLs),
		title:  strings.TrimSpace(settings.Title),
		sender: sender,
	}, nil
}

// Send posts s. A nil Notifier does nothing, so callers need not check
// whether notifications are enabled. Failing URLs are logged and the first
// failure is returned.
func (n *Notifier) Send(ctx context.Context, s Summary) error {
	if n == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	title := s.Title()
	if n.title != "" {
		title = n.title + ": " + title
	}
	params := stypes.Params{}
	params.SetTitle(title)

	var first error
	for _, err := range n.sender.Send(Message(s), &params) {
		if err == nil {
			continue
		}
		err = errors.New(fmt.Errorf("sending notification: %s", privacy.ScrubMessage(err.Error()))).
			Component("notification").
			Category(errors.CategoryNotification).
			Build()
		log.Warn("notification failed", logger.Error(err))
		if first == nil {
			first = err
		}
	}
	if first == nil {
		log.Debug("notification sent", logger.String("title", title), logger.Int("urls", len(n.urls)))
	}
	return first
}

// Message renders the body of s, one job per line.
func Message(s Summary) string {
	return strings.Join(s.Lines(), "\n")
}
