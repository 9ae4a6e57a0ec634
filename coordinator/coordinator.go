package coordinator

import (
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/aerc-go/aerc/worker"
)

// keyPollInterval is how often the coordinator checks the renderer for
// a pending key event; PollKey is non-blocking, so this just bounds
// input latency against CPU spend the same way the engine's idle
// refresh timer bounds IDLE lifetime rather than busy-spinning on it.
const keyPollInterval = 25 * time.Millisecond

// Coordinator owns the account model and drives the renderer: it
// drains every account's outbound queue, folds updates into that
// account's state, translates key events into Actions, and marks
// accounts dirty for the next Render call (spec §4.5).
type Coordinator struct {
	accounts map[string]*Account
	order    []string // display order, insertion order of AddAccount

	renderer Renderer

	// dirty receives an account name each time one of its outbound
	// queues becomes readable, the fan-in counterpart of each queue's
	// own readiness channel: one goroutine per account forwards its
	// queue's level-triggered hint onto this single channel the select
	// loop below can wait on, the same "goroutine forwards onto a
	// channel the poll loop selects on" shape as Socket.readLoop.
	dirty chan string

	shutdown chan struct{}
	done     chan struct{}

	logger log.Logger
}

// New returns an empty Coordinator driving renderer; call AddAccount
// for each configured account before Run.
func New(renderer Renderer, logger log.Logger) *Coordinator {
	return &Coordinator{
		accounts: make(map[string]*Account),
		renderer: renderer,
		dirty:    make(chan string, 16),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// AddAccount registers acct and starts the goroutine that forwards its
// outbound queue's readiness onto the coordinator's fan-in channel.
// The caller is responsible for starting the matching worker.Worker.
func (co *Coordinator) AddAccount(acct *Account) {

	co.accounts[acct.Name] = acct
	co.order = append(co.order, acct.Name)

	go func() {
		for range acct.Outbound.Readable() {
			select {
			case co.dirty <- acct.Name:
			case <-co.done:
				return
			}
		}
	}()
}

// Account returns the named account, or nil if none was registered
// under that name.
func (co *Coordinator) Account(name string) *Account {
	return co.accounts[name]
}

// Accounts returns every registered account in AddAccount order.
func (co *Coordinator) Accounts() []*Account {

	out := make([]*Account, 0, len(co.order))
	for _, name := range co.order {
		out = append(out, co.accounts[name])
	}

	return out
}

// Shutdown signals Run to push ActionShutdown onto every account's
// inbound queue and return. It returns at once and waits for neither.
func (co *Coordinator) Shutdown() {
	close(co.shutdown)
}

// Run is the coordinator's main loop: it drains whichever account
// queue signalled readiness, polls for key input on a bounded tick,
// renders whatever was marked dirty, and, once Shutdown has been
// called, pushes ActionShutdown onto every account's inbound queue and
// returns without waiting for the workers to acknowledge it.
func (co *Coordinator) Run() {

	defer close(co.done)

	ticker := time.NewTicker(keyPollInterval)
	defer ticker.Stop()

	for {
		select {

		case name := <-co.dirty:
			co.drainAccount(name)

		case <-ticker.C:
			co.pollKeys()
			co.renderer.Render()

		case <-co.shutdown:
			co.shutdownAccounts()
			return
		}
	}
}

// drainAccount pops every Update currently queued for name, not just
// the one that produced the wake-up, for the same reason
// worker.pumpAction does: the queue's readiness channel is a
// level-triggered hint that coalesces multiple pushes into one signal.
func (co *Coordinator) drainAccount(name string) {

	acct := co.accounts[name]
	if acct == nil {
		return
	}

	for {
		v, ok := acct.Outbound.TryPop()
		if !ok {
			return
		}

		u := v.(worker.Update)

		if dirty := acct.apply(u); dirty {
			co.renderer.MarkDirty(name)
		}

		if u.Kind == worker.UpdateConnectError && u.Err != nil {
			level.Warn(co.logger).Log("msg", "account connect error", "account", name, "err", u.Err)
		}
	}
}

func (co *Coordinator) pollKeys() {

	for {
		key, ok := co.renderer.PollKey()
		if !ok {
			return
		}

		co.handleKey(key)
	}
}

// handleKey is intentionally minimal: the coordinator's job is to
// route input to the right account and Action, not to decide what a
// keymap means. A real keybinding layer is out of scope (Non-goals).
func (co *Coordinator) handleKey(key Key) {

	if key.Name == "ctrl+c" {
		co.Shutdown()
	}
}

func (co *Coordinator) shutdownAccounts() {

	for _, acct := range co.accounts {
		acct.Shutdown()
	}
}
