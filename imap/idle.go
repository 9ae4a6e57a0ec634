package imap

import "time"

// MaxIdleDuration is the longest an IDLE command is left outstanding
// before the worker sends DONE to end it, under the 30-minute
// inactivity timeout RFC 2177 warns servers may apply. The worker does
// not issue a new IDLE after that DONE.
const MaxIdleDuration = 29 * time.Minute

// EnterIdle sends IDLE and arranges for the connection to switch into
// RecvIdle, with its refresh clock started, once the server's "+"
// continuation confirms it. cb resolves when IDLE itself completes
// (i.e. after Done), carrying the server's final tagged status.
func (c *Connection) EnterIdle(cb Callback, ctx interface{}) (string, error) {

	tag, err := c.Idle(cb, ctx)
	if err != nil {
		return tag, err
	}

	c.onContinuation = func(_ []*Arg) {
		c.mode = RecvIdle
		c.IdleStart = time.Now()
	}

	return tag, nil
}

// Done sends the DONE line that ends an outstanding IDLE. It is a
// no-op if the connection isn't currently idling. The IDLE command's
// own callback (registered by EnterIdle/Idle) fires once the server's
// tagged completion follows.
func (c *Connection) Done() error {

	if c.mode != RecvIdle {
		return nil
	}

	c.mode = RecvLine

	_, err := c.socket.Write([]byte("DONE\r\n"))

	return err
}

// NeedsIdleRefresh reports whether the connection has been idling
// long enough that the worker should cycle DONE+IDLE rather than risk
// the server closing the connection out from under it.
func (c *Connection) NeedsIdleRefresh(now time.Time) bool {
	return c.mode == RecvIdle && !c.IdleStart.IsZero() && now.Sub(c.IdleStart) >= MaxIdleDuration
}
