// Package errorsink reports operational errors to Sentry. Every capture is
// tagged with the dataset it concerns so alerts can be routed per feed.
// With no DSN configured errors are only logged and messages are dropped.
package errorsink

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"siriproxy.transitrt.org/internal/logging"
)

// Sink forwards errors and warning summaries to the configured error tracker.
type Sink struct {
	enabled bool
	logger  *slog.Logger
}

// New initialises the sentry SDK. An empty DSN yields a disabled sink, which
// is valid and keeps call sites unconditional.
func New(dsn string, environment string, logger *slog.Logger) (*Sink, error) {
	if dsn == "" {
		return &Sink{enabled: false, logger: logger}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		return nil, err
	}
	logging.LogOperation(logger, "error_sink_enabled")
	return &Sink{enabled: true, logger: logger}, nil
}

// CaptureError reports an error scoped to a dataset.
func (s *Sink) CaptureError(datasetID string, err error) {
	logging.LogError(s.logger, "captured error", err, slog.String("dataset", datasetID))
	if !s.enabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("dataset", datasetID)
		sentry.CaptureException(err)
	})
}

// CaptureMessage reports a warning-level message scoped to a dataset. Used for
// per-tick summaries such as the coherence warning count.
func (s *Sink) CaptureMessage(datasetID string, message string) {
	if !s.enabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("dataset", datasetID)
		scope.SetLevel(sentry.LevelWarning)
		sentry.CaptureMessage(message)
	})
}

// Close flushes buffered events. Call on shutdown.
func (s *Sink) Close() {
	if s.enabled {
		sentry.Flush(2 * time.Second)
	}
}
