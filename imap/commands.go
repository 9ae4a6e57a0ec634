package imap

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/pkg/errors"
)

// Connect starts the greeting/capability/authentication sequence on a
// freshly dialed socket and returns immediately; events.Ready fires
// exactly once when the sequence concludes, successfully or not. This
// mirrors the callback chain of the original engine's connect worker
// (handle_imap_ready / handle_imap_cap) rather than blocking the
// caller, since nothing in this engine ever blocks on the network.
func Connect(socket *Socket, uri *URI, events Events) *Connection {

	c := NewConnection(socket, uri, events)
	c.mode = RecvLine

	c.pending.register(GreetingTag, "GREETING", c.handleGreeting, nil)

	return c
}

func (c *Connection) handleGreeting(_ *Connection, _ interface{}, status Status, args string) {

	switch status {
	case StatusPreauth:
		c.LoggedIn = true
	case StatusBye:
		c.fail(errors.Errorf("server closed the connection during greeting: %s", args))
		return
	case StatusPreError:
		c.fail(errors.New("connection closed before greeting arrived"))
		return
	}

	if c.Capabilities != nil {
		c.negotiateAuth()
		return
	}

	c.Send("CAPABILITY", c.handleCapabilityResponse, nil, "CAPABILITY")
}

func (c *Connection) handleCapabilityResponse(_ *Connection, _ interface{}, status Status, args string) {

	if status != StatusOK {
		c.fail(errors.Errorf("CAPABILITY failed: %s %s", status, args))
		return
	}

	c.negotiateAuth()
}

// negotiateAuth picks the best authentication mechanism the server
// advertised, in the same preference order as the original engine:
// PREAUTH (nothing to do) > AUTHENTICATE PLAIN > LOGIN > STARTTLS,
// then retry. A server offering none of these fails with
// ErrNoCompatibleAuth.
func (c *Connection) negotiateAuth() {

	if c.Capabilities == nil || !c.Capabilities.IMAP4rev1 {
		c.fail(errors.New("IMAP server does not support IMAP4rev1"))
		return
	}

	if c.LoggedIn {
		c.succeed()
		return
	}

	hasCreds := c.URI.Username != ""

	switch {
	case hasCreds && c.Capabilities.AuthPlain && !c.Capabilities.LoginDisabled:
		c.authPlain()
	case hasCreds && c.Capabilities.AuthLogin && !c.Capabilities.LoginDisabled:
		c.login()
	case c.Capabilities.StartTLS && !c.tlsActive:
		c.startTLS()
	default:
		c.fail(ErrNoCompatibleAuth)
	}
}

// authPlain issues AUTHENTICATE PLAIN, sending the initial response
// inline when the server advertises SASL-IR and otherwise waiting for
// the "+" continuation prompt before sending it as its own line.
func (c *Connection) authPlain() {

	client := sasl.NewPlainClient("", c.URI.Username, c.URI.Password)

	_, ir, err := client.Start()
	if err != nil {
		c.fail(errors.Wrap(err, "building SASL PLAIN initial response"))
		return
	}

	encoded := base64.StdEncoding.EncodeToString(ir)

	if c.Capabilities.SASLIR {
		c.Send("AUTHENTICATE", c.handleLoginDone, nil, "AUTHENTICATE PLAIN %s", encoded)
		return
	}

	c.onContinuation = func(_ []*Arg) {
		c.socket.Write([]byte(encoded + "\r\n"))
	}
	c.Send("AUTHENTICATE", c.handleLoginDone, nil, "AUTHENTICATE PLAIN")
}

func (c *Connection) login() {
	c.Send("LOGIN", c.handleLoginDone, nil, "LOGIN %s %s",
		quoteString(c.URI.Username), quoteString(c.URI.Password))
}

func (c *Connection) handleLoginDone(_ *Connection, _ interface{}, status Status, args string) {

	if status != StatusOK {
		c.fail(&AuthError{Status: status, Text: args})
		return
	}

	c.LoggedIn = true
	c.succeed()
}

func (c *Connection) startTLS() {
	c.Send("STARTTLS", c.handleStartTLSDone, nil, "STARTTLS")
}

func (c *Connection) handleStartTLSDone(_ *Connection, _ interface{}, status Status, args string) {

	if status != StatusOK {
		c.fail(errors.Errorf("STARTTLS failed: %s %s", status, args))
		return
	}

	if err := c.socket.UpgradeTLS(c.URI.Host, true); err != nil {
		c.fail(err)
		return
	}

	c.tlsActive = true
	c.Capabilities = nil

	c.Send("CAPABILITY", c.handleCapabilityResponse, nil, "CAPABILITY")
}

func (c *Connection) succeed() {
	if c.events.Ready != nil {
		c.events.Ready(nil)
	}
}

func (c *Connection) fail(err error) {
	if c.events.Ready != nil {
		c.events.Ready(err)
	}
}

// List issues LIST reference pattern, populating Mailboxes as
// untagged LIST responses arrive and invoking cb once the server's
// tagged completion status is known.
func (c *Connection) List(reference, pattern string, cb Callback, ctx interface{}) (string, error) {
	return c.Send("LIST", cb, ctx, "LIST %s %s", quoteString(reference), quoteString(pattern))
}

// Lsub is List's subscribed-only counterpart.
func (c *Connection) Lsub(reference, pattern string, cb Callback, ctx interface{}) (string, error) {
	return c.Send("LSUB", cb, ctx, "LSUB %s %s", quoteString(reference), quoteString(pattern))
}

// Select issues SELECT for name. Per spec §4.1, a second Select
// issued while one is already outstanding is queued rather than sent
// immediately, and is drained in order as each prior SELECT
// completes.
func (c *Connection) Select(name string, cb Callback, ctx interface{}) (string, error) {

	if c.selectActive {
		c.selectQueue = append(c.selectQueue, selectRequest{name: name, cb: cb, ctx: ctx})
		return "", nil
	}

	c.selectActive = true
	c.pendingSelect = name

	return c.Send("SELECT", c.wrapSelectDone(name, cb, ctx), nil, "SELECT %s", quoteString(name))
}

type selectRequest struct {
	name string
	cb   Callback
	ctx  interface{}
}

func (c *Connection) wrapSelectDone(name string, cb Callback, ctx interface{}) Callback {

	return func(conn *Connection, _ interface{}, status Status, args string) {

		conn.pendingSelect = ""

		if status == StatusOK {
			for _, mbox := range conn.Mailboxes {
				mbox.Selected = false
			}
			conn.Selected = name
			mbox := conn.upsertMailbox(name)
			mbox.Selected = true
			conn.publishMailbox(mbox)
		}

		if cb != nil {
			cb(conn, ctx, status, args)
		}

		conn.selectActive = false

		if len(conn.selectQueue) > 0 {
			next := conn.selectQueue[0]
			conn.selectQueue = conn.selectQueue[1:]
			conn.Select(next.name, next.cb, next.ctx)
		}
	}
}

// Fetch issues FETCH seq attrs and marks every named attribute as
// wanted on each addressed message, so handleFetch can flip Populated
// once they have all arrived.
func (c *Connection) Fetch(seqSet string, attrs []string, cb Callback, ctx interface{}) (string, error) {

	for i, a := range attrs {
		attrs[i] = strings.TrimSpace(a)
	}

	mbox := c.selectedMailbox()
	if mbox != nil {
		markWanted(mbox, seqSet, attrs)
	}

	return c.Send("FETCH", cb, ctx, "FETCH %s (%s)", seqSet, strings.Join(attrs, " "))
}

// markWanted marks attrs as outstanding on every message named by
// seqSet, a best-effort parse covering the single-number and
// single-range forms the worker actually issues.
func markWanted(mbox *Mailbox, seqSet string, attrs []string) {

	lo, hi, ok := parseSeqSet(seqSet)
	if !ok {
		return
	}

	for idx := lo; idx <= hi; idx++ {

		msg := messageByIndex(mbox, idx)
		msg.Fetching = true

		if msg.wanted == nil {
			msg.wanted = make(map[string]struct{})
		}
		for _, a := range attrs {
			msg.wanted[normalizeAttr(strings.ToUpper(a))] = struct{}{}
		}
	}
}

func parseSeqSet(seqSet string) (lo, hi int, ok bool) {

	if seqSet == "*" {
		return 0, 0, false
	}

	parts := strings.SplitN(seqSet, ":", 2)

	var a, b int
	if _, err := fmt.Sscanf(parts[0], "%d", &a); err != nil {
		return 0, 0, false
	}

	if len(parts) == 1 {
		return a, a, true
	}

	if parts[1] == "*" {
		return a, a, true // upper bound unknown until EXISTS; caller re-fetches as needed
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &b); err != nil {
		return 0, 0, false
	}

	return a, b, true
}

// DeleteMailbox issues DELETE name and, on success, drops the mailbox
// from Mailboxes and publishes MailboxDeleted.
func (c *Connection) DeleteMailbox(name string, cb Callback, ctx interface{}) (string, error) {

	return c.Send("DELETE", func(conn *Connection, userCtx interface{}, status Status, args string) {

		if status == StatusOK {
			conn.removeMailbox(name)
			if conn.events.MailboxDeleted != nil {
				conn.events.MailboxDeleted(name)
			}
		}

		if cb != nil {
			cb(conn, userCtx, status, args)
		}

	}, ctx, "DELETE %s", quoteString(name))
}

func (c *Connection) removeMailbox(name string) {
	for i, m := range c.Mailboxes {
		if m.Name == name {
			c.Mailboxes = append(c.Mailboxes[:i], c.Mailboxes[i+1:]...)
			return
		}
	}
}

// Idle issues IDLE. It neither changes the receive mode nor holds back
// later sends; EnterIdle in idle.go switches to RecvIdle once the
// server's continuation arrives, and Done ends the IDLE.
func (c *Connection) Idle(cb Callback, ctx interface{}) (string, error) {
	return c.Send("IDLE", cb, ctx, "IDLE")
}

// quoteString renders s as an IMAP quoted string, escaping backslash
// and double-quote. Usernames/passwords/mailbox names are never sent
// as literals by this client: they are short enough, and a quoted
// string keeps Send's single-write-per-command shape simple.
func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
