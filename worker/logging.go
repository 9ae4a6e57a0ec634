package worker

import (
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// NewLoggingWorker wraps w so every update it pushes to the
// coordinator is logged on its way out and Run logs its start and
// stop, the same "wrap, log around each call, delegate" shape as the
// teacher's loggingService - generalized from decorating several verb
// methods to decorating Worker's one outbound choke point, since this
// worker has a single entry point (Run) rather than one method per
// IMAP verb.
func NewLoggingWorker(w *Worker, logger log.Logger) *Worker {

	logger = log.With(logger, "account", w.Account)

	w.logLifecycle = func(msg string) {
		level.Info(logger).Log("msg", msg)
	}

	w.logUpdate = func(u Update) {

		updateLogger := log.With(logger, "kind", u.Kind.String())

		if u.Err != nil {
			level.Error(updateLogger).Log("msg", "update carries an error", "err", u.Err)
			return
		}

		level.Debug(updateLogger).Log()
	}

	return w
}
