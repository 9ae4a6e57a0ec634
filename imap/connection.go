package imap

import (
	"fmt"
	"time"
)

// Constants

// RecvMode is the receive state a Connection is in, mirroring the
// original engine's recv_mode enum.
type RecvMode int

const (
	// RecvWait means no command is outstanding that needs a
	// particular framing; lines are dispatched as they complete.
	RecvWait RecvMode = iota
	// RecvLine is the normal mode: every complete line is dispatched.
	RecvLine
	// RecvIdle means the connection is inside an IDLE block; only
	// untagged data is expected until DONE is sent.
	RecvIdle
)

// Structs

// Connection carries all state for one IMAP session: the socket, the
// line accumulator, the tag allocator and pending-callback table,
// capabilities, mailbox list, and IDLE bookkeeping. A Connection is
// exclusively owned by the one worker goroutine that created it for
// its entire lifetime; nothing here needs a mutex (see DESIGN.md).
type Connection struct {
	socket *Socket
	mode   RecvMode

	buf []byte

	pending *pendingTable

	Capabilities *Capabilities
	LoggedIn     bool

	URI *URI

	Mailboxes    []*Mailbox
	Selected     string
	selectQueue  []selectRequest
	selectActive bool
	pendingSelect string

	tlsActive bool

	IdleStart   time.Time
	LastNetwork time.Time

	closing bool

	// onContinuation, when set, receives the arguments of the next "+"
	// continuation line instead of it being silently dropped; cleared
	// once invoked. Used by AUTHENTICATE and literal-bearing commands.
	onContinuation func(args []*Arg)

	events Events
}

// Events are the callbacks the engine invokes for unsolicited state
// changes, which the worker translates into update messages (§4.3).
type Events struct {
	MailboxUpdated func(*Mailbox)
	MailboxDeleted func(name string)
	MessageUpdated func(mbox string, msg *Message)
	MessageDeleted func(mbox string, uid int64)
	// Ready fires exactly once, when the greeting/capability/auth
	// sequence Connect started finishes: nil on success, the failure
	// otherwise.
	Ready func(err error)
	Log   func(format string, args ...interface{})
}

// NewConnection wraps an already-dialed Socket in a fresh Connection,
// ready to receive the server greeting.
func NewConnection(socket *Socket, uri *URI, events Events) *Connection {
	return &Connection{
		socket:      socket,
		mode:        RecvWait,
		pending:     newPendingTable(),
		URI:         uri,
		tlsActive:   uri != nil && uri.UseSSL,
		events:      events,
		LastNetwork: time.Now(),
	}
}

// targetMailbox returns the mailbox that untagged FLAGS/EXISTS/RECENT/
// UNSEEN/READ-WRITE responses describe: the mailbox a SELECT is in
// flight for, if any, otherwise the one already selected. A SELECT's
// untagged responses all arrive before its tagged OK, while Selected
// still names the previously-selected mailbox (or is empty).
func (c *Connection) targetMailbox() *Mailbox {

	if c.pendingSelect != "" {
		return c.upsertMailbox(c.pendingSelect)
	}

	return c.selectedMailbox()
}

// Functions

// Receive is non-blocking: it drains whatever bytes are currently
// available on the socket's readiness channel, appends them to the
// line accumulator, and dispatches every complete line it can now
// assemble (literal bytes included). It returns the number of bytes
// consumed from the socket, or an error if the connection closed.
func (c *Connection) Receive() (int, error) {

	select {
	case res, ok := <-c.socket.Readable():
		if !ok {
			return 0, nil
		}

		if res.err != nil {
			return 0, c.handleDisconnect(res.err)
		}

		c.LastNetwork = time.Now()
		c.buf = append(c.buf, res.data...)

		c.drain()

		return len(res.data), nil

	default:
		return 0, nil
	}
}

// drain dispatches every complete logical line currently sitting in
// the accumulator.
func (c *Connection) drain() {

	for {
		args, consumed, complete, err := tokenizeLine(c.buf)

		if err != nil {
			c.logf("protocol error: %s", err)
			// Drop the offending line only, not the whole buffer: find
			// the next CRLF and resume from there.
			if skip := indexCRLF(c.buf); skip >= 0 {
				c.buf = c.buf[skip+2:]
				continue
			}
			return
		}

		if !complete {
			return
		}

		c.buf = c.buf[consumed:]

		if len(args) == 0 {
			continue
		}

		c.dispatch(args)
	}
}

func indexCRLF(buf []byte) int {

	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == '\r' && buf[i+1] == '\n' {
			return i
		}
	}

	return -1
}

// handleDisconnect flushes every pending callback with StatusPreError
// and marks the connection closed, per spec §7 Disconnected.
func (c *Connection) handleDisconnect(cause error) error {

	c.closing = true
	c.pending.flush(c)

	return &DisconnectedError{Err: cause}
}

// Send allocates the next tag, formats "<tag> <command>\r\n", writes
// it to the socket, and registers the completion callback. kind
// labels the command for logging and for follow-up routing (e.g.
// STARTTLS, LOGIN).
func (c *Connection) Send(kind string, cb Callback, ctx interface{}, format string, args ...interface{}) (string, error) {

	tag := c.pending.allocTag()
	command := fmt.Sprintf(format, args...)
	line := tag + " " + command + "\r\n"

	if _, err := c.socket.Write([]byte(line)); err != nil {
		return tag, err
	}

	c.pending.register(tag, kind, cb, ctx)

	return tag, nil
}

// Close issues LOGOUT if logged in, tears down the socket, and flushes
// every pending callback with StatusPreError.
func (c *Connection) Close() error {

	if c.closing {
		return nil
	}

	if c.LoggedIn && !c.closing {
		c.socket.Write([]byte(fmt.Sprintf("%s LOGOUT\r\n", c.pending.allocTag())))
	}

	c.closing = true
	c.pending.flush(c)

	return c.socket.Close()
}

// Readable exposes the underlying socket's readiness channel so the
// worker's select loop can wait on it alongside its action queue and
// idle-refresh timer.
func (c *Connection) Readable() <-chan readResult {
	return c.socket.Readable()
}

// Idling reports whether the connection is currently inside an IDLE
// block.
func (c *Connection) Idling() bool {
	return c.mode == RecvIdle
}

func (c *Connection) logf(format string, args ...interface{}) {
	if c.events.Log != nil {
		c.events.Log(format, args...)
	}
}
