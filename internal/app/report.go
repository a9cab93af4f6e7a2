package app

import (
	"github.com/rs/zerolog"
)

// Status classifies a user-visible notification.
type Status string

// Notification statuses.
const (
	StatusError   Status = "error"
	StatusWarning Status = "warning"
	StatusInfo    Status = "info"
)

// Notification is a user-visible message raised by the core.
type Notification struct {
	Title       string
	Description string
	Status      Status
	Err         error
}

// Reporter shows notifications to the user. Report is called from the
// reconciliation loop and from Update callers, so it must be safe for
// concurrent use and must not block for long.
type Reporter interface {
	Report(n Notification)
}

// ReporterFunc adapts a function to a Reporter.
type ReporterFunc func(n Notification)

// Report implements Reporter.
func (f ReporterFunc) Report(n Notification) {
	f(n)
}

// Notification titles.
const (
	TitleRetrieveFailed = "Failed to load settings"
	TitleUpdateFailed   = "Failed to update setting"
	TitleRuntimesFailed = "Failed to retrieve Java list"
	TitleBadEvent       = "Ignored invalid settings change"
)

// LogReporter writes notifications to a logger. It is the default Reporter.
type LogReporter struct {
	logger zerolog.Logger
}

// NewLogReporter creates a LogReporter.
func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{logger: logger.With().Str("component", "reporter").Logger()}
}

// Report implements Reporter.
func (r *LogReporter) Report(n Notification) {
	var ev *zerolog.Event
	switch n.Status {
	case StatusError:
		ev = r.logger.Error()
	case StatusWarning:
		ev = r.logger.Warn()
	default:
		ev = r.logger.Info()
	}
	if n.Err != nil {
		ev = ev.Err(n.Err)
	}
	if n.Description != "" {
		ev = ev.Str("description", n.Description)
	}
	ev.Msg(n.Title)
}
