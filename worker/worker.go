package worker

import (
	"time"

	"github.com/aerc-go/aerc/imap"
	"github.com/aerc-go/aerc/internal/telemetry"
	"github.com/aerc-go/aerc/queue"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

// Worker owns one account's Connection for the entirety of its
// lifetime: nothing outside this goroutine ever touches the
// Connection directly, so it needs no locking (spec §5).
type Worker struct {
	Account string

	inbound  *queue.SPSC
	outbound *queue.SPSC

	conn *imap.Connection

	// pendingSocket/pendingURI/pendingActionID stage a TLS connection
	// awaiting the coordinator's CERT_OKAY/CERT_REJECT verdict before
	// the IMAP handshake itself begins.
	pendingSocket   *imap.Socket
	pendingURI      *imap.URI
	pendingActionID uuid.UUID

	shuttingDown bool

	// logUpdate, when set by NewLoggingWorker, records every update
	// pushed to the coordinator.
	logUpdate func(Update)
	// logLifecycle, when set by NewLoggingWorker, records Run starting
	// and stopping.
	logLifecycle func(msg string)

	// metrics, when set by SetMetrics, records Prometheus counters for
	// this worker's IMAP activity. Left nil is fine; every call site
	// guards against it.
	metrics *telemetry.Metrics
}

// SetMetrics installs the counters this worker records against as it
// runs. Call it before Run; a nil m (the default) disables recording.
func (w *Worker) SetMetrics(m *telemetry.Metrics) {
	w.metrics = m
}

// New returns a Worker with its inbound/outbound queues ready; call
// Run in its own goroutine to start it.
func New(account string, inbound, outbound *queue.SPSC) *Worker {
	return &Worker{
		Account:  account,
		inbound:  inbound,
		outbound: outbound,
	}
}

// Run is the worker's main loop: it drains whatever is ready among
// the socket, the inbound action queue, and (while idling) the
// refresh timer, one source per iteration so no single source can
// starve the others. It returns once ActionShutdown has been handled
// and the connection is fully torn down.
func (w *Worker) Run() {

	if w.logLifecycle != nil {
		w.logLifecycle("worker starting")
		defer w.logLifecycle("worker stopped")
	}

	for {
		if w.shuttingDown && w.conn == nil {
			return
		}

		idleTick := w.idleTimer()

		if w.conn != nil {
			select {
			case <-w.conn.Readable():
				w.pumpSocket()
				continue
			case <-w.inbound.Readable():
				w.pumpAction()
				continue
			case <-idleTick:
				w.refreshIdle()
				continue
			}
		}

		// Not connected yet: only the action queue can produce
		// anything useful (a CONNECT action).
		<-w.inbound.Readable()
		w.pumpAction()
	}
}

// idleTimer returns a channel that fires once, when the connection's
// IDLE has been outstanding for MaxIdleDuration, or nil (which blocks
// forever in a select) when no refresh is pending.
func (w *Worker) idleTimer() <-chan time.Time {

	if w.conn == nil || !w.conn.Idling() {
		return nil
	}

	remaining := imap.MaxIdleDuration - time.Since(w.conn.IdleStart)
	if remaining < 0 {
		remaining = 0
	}

	return time.After(remaining)
}

func (w *Worker) refreshIdle() {

	if w.conn == nil || !w.conn.NeedsIdleRefresh(time.Now()) {
		return
	}

	w.conn.Done()
}

func (w *Worker) pumpSocket() {

	if _, err := w.conn.Receive(); err != nil {
		w.handleDisconnect(err)
	}
}

// pumpAction drains every action currently queued, not just the one
// that produced the wake-up: the queue's readiness channel is a
// level-triggered hint that coalesces multiple pushes into a single
// signal, so a single-pop-per-wake-up loop would stall with work still
// queued.
func (w *Worker) pumpAction() {

	for {
		v, ok := w.inbound.TryPop()
		if !ok {
			return
		}

		action := v.(Action)

		if action.Kind == ActionShutdown {
			w.handleShutdown(action)
			return
		}

		w.ack(action)
		w.dispatchAction(action)
	}
}

func (w *Worker) ack(action Action) {
	w.push(Update{Kind: UpdateAck, InReplyTo: action.ID, Account: w.Account})
}

// push sends u to the coordinator and, if a logger was installed via
// NewLoggingWorker, records it.
func (w *Worker) push(u Update) {
	w.outbound.Push(u)
	if w.logUpdate != nil {
		w.logUpdate(u)
	}
}

func (w *Worker) handleDisconnect(err error) {

	if w.metrics != nil {
		w.metrics.ConnectErrors.With("account", w.Account, "kind", "disconnected").Add(1)
	}

	w.push(Update{
		Kind:    UpdateConnectError,
		Account: w.Account,
		Err:     errors.Wrap(err, "connection lost"),
	})

	w.conn = nil
}

func (w *Worker) handleShutdown(action Action) {

	w.ack(action)
	w.shuttingDown = true

	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
