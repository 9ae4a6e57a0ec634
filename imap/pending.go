package imap

import "strconv"

// Constants

// GreetingTag is the sentinel pending-table key used to capture the
// server's initial greeting line, which arrives untagged before any
// command has been sent.
const GreetingTag = "*"

// Callback is invoked exactly once when the tag it was registered
// under resolves, or is pre-empted with StatusPreError. args carries
// the original, untokenised text of whatever followed the status
// word on the wire.
type Callback func(conn *Connection, ctx interface{}, status Status, args string)

// pendingEntry is one row of the pending-callback table: a completion
// handler, its caller-supplied context, and the command kind it was
// registered for (kept for logging and for routing STARTTLS/LOGIN
// follow-up steps).
type pendingEntry struct {
	callback Callback
	ctx      interface{}
	kind     string
}

// pendingTable maps an outstanding command tag to the callback that
// will resolve it. It is touched only by the connection's owning
// worker goroutine, so it needs no locking of its own (see DESIGN.md).
type pendingTable struct {
	nextTag int
	entries map[string]*pendingEntry
}

func newPendingTable() *pendingTable {
	return &pendingTable{
		nextTag: 1,
		entries: make(map[string]*pendingEntry),
	}
}

// allocTag returns the next monotonically increasing tag, rendered as
// decimal ASCII prefixed with a letter so it can never collide with
// the "*" or "+" sentinels.
func (t *pendingTable) allocTag() string {
	tag := "A" + strconv.Itoa(t.nextTag)
	t.nextTag++
	return tag
}

// register installs a new pending entry under tag. Per spec invariant
// 2, at most one command with a given tag may be outstanding; callers
// only ever pass freshly allocated tags (or the greeting sentinel), so
// this never overwrites a live entry.
func (t *pendingTable) register(tag string, kind string, cb Callback, ctx interface{}) {
	t.entries[tag] = &pendingEntry{callback: cb, ctx: ctx, kind: kind}
}

// resolve removes and returns the pending entry for tag, or nil if no
// such entry exists (an unsolicited tagged response, §7
// UnsolicitedForUnknownTag).
func (t *pendingTable) resolve(tag string) *pendingEntry {

	entry, ok := t.entries[tag]
	if !ok {
		return nil
	}

	delete(t.entries, tag)

	return entry
}

// flush removes every pending entry and invokes each callback with
// StatusPreError, used on disconnect and on engine shutdown.
func (t *pendingTable) flush(conn *Connection) {

	for tag, entry := range t.entries {
		delete(t.entries, tag)
		entry.callback(conn, entry.ctx, StatusPreError, "")
	}
}

// len reports the number of outstanding commands; used by tests
// asserting invariant 2 (at most one command per tag outstanding).
func (t *pendingTable) len() int {
	return len(t.entries)
}
