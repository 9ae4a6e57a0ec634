package imap

import (
	"strings"
	"time"
)

// dispatch routes one fully-lexed server line: untagged ("*"),
// continuation ("+"), or tagged, exactly per spec §4.1.
func (c *Connection) dispatch(args []*Arg) {

	if len(args) == 0 {
		return
	}

	switch args[0].Str {
	case "+":
		c.dispatchContinuation(args[1:])
	case "*":
		c.dispatchUntagged(args[1:])
	default:
		c.dispatchTagged(args[0].Str, args[1:])
	}
}

// dispatchContinuation notifies whichever in-flight command is
// awaiting a "+" prompt (literal continuation or AUTHENTICATE).
func (c *Connection) dispatchContinuation(rest []*Arg) {

	if c.onContinuation == nil {
		return
	}

	cb := c.onContinuation
	c.onContinuation = nil
	cb(rest)
}

// dispatchTagged handles a status response addressed to a
// previously-issued tag, per spec §4.1 "Line dispatcher" and §7
// UnsolicitedForUnknownTag.
func (c *Connection) dispatchTagged(tag string, rest []*Arg) {

	c.dispatchStatus(tag, rest)
}

// dispatchUntagged routes a "*"-prefixed line by its shape: either a
// "<number> <keyword> ..." form (EXISTS/RECENT/EXPUNGE/FETCH/...) or a
// plain "<keyword> ..." form (CAPABILITY/LIST/LSUB/FLAGS/status words).
func (c *Connection) dispatchUntagged(rest []*Arg) {

	if len(rest) == 0 {
		return
	}

	num, hasNum, keyword, params := shapeUntagged(rest)

	switch keyword {
	case "OK", "NO", "BAD", "PREAUTH", "BYE":
		c.dispatchStatus(GreetingTag, rest)
		return
	}

	switch keyword {
	case "CAPABILITY":
		c.Capabilities = parseCapabilities(params)

	case "LIST", "LSUB":
		c.handleList(params)

	case "FLAGS":
		if mbox := c.targetMailbox(); mbox != nil && len(params) > 0 {
			mbox.Flags = flagSlice(params[0])
			c.publishMailbox(mbox)
		}

	case "EXISTS":
		if hasNum {
			c.handleExists(num)
		}

	case "RECENT":
		if hasNum {
			if mbox := c.targetMailbox(); mbox != nil {
				mbox.Recent = num
				c.publishMailbox(mbox)
			}
		}

	case "UNSEEN":
		var n int64
		if hasNum {
			n = num
		} else if len(params) > 0 && params[0].Kind == ArgNumber {
			n = params[0].Num
		}
		if mbox := c.targetMailbox(); mbox != nil {
			mbox.Unseen = n
			c.publishMailbox(mbox)
		}

	case "READ-WRITE":
		if mbox := c.targetMailbox(); mbox != nil {
			mbox.ReadWrite = true
			mbox.ReadOnly = false
		}

	case "READ-ONLY":
		if mbox := c.targetMailbox(); mbox != nil {
			mbox.ReadOnly = true
			mbox.ReadWrite = false
		}

	case "PERMANENTFLAGS":
		if mbox := c.targetMailbox(); mbox != nil && len(params) > 0 {
			mbox.PermanentFlags = flagSlice(params[0])
		}

	case "TRYCREATE":
		// Surfaced to the caller via the command's own status callback;
		// nothing to update here.

	case "EXPUNGE":
		if hasNum {
			c.handleExpunge(int(num))
		}

	case "FETCH":
		if hasNum && len(params) > 0 {
			c.handleFetch(int(num), params[0])
		}

	case "SEARCH":
		// Server-side search is out of scope (spec.md Non-goals); the
		// engine only needs to not choke on it.

	default:
		c.logf("unrecognised untagged response %q", keyword)
	}
}

// shapeUntagged normalises the two untagged response shapes IMAP uses
// into a single (number, keyword, params) view.
func shapeUntagged(rest []*Arg) (num int64, hasNum bool, keyword string, params []*Arg) {

	if rest[0].Kind == ArgNumber && len(rest) >= 2 && rest[1].Kind == ArgAtom {
		return rest[0].Num, true, strings.ToUpper(rest[1].Str), rest[2:]
	}

	if rest[0].Kind == ArgAtom {
		return 0, false, strings.ToUpper(rest[0].Str), rest[1:]
	}

	return 0, false, "", rest
}

// dispatchStatus implements the response-code re-dispatch and the
// pending-table lookup shared by both tagged and untagged ("*"-tagged
// greeting/BYE) status lines.
func (c *Connection) dispatchStatus(tag string, rest []*Arg) {

	if len(rest) == 0 {
		return
	}

	statusWord := strings.ToUpper(rest[0].Str)
	status := parseStatus(statusWord)
	body := rest[1:]

	// A bracketed response code as the very next argument gets
	// re-dispatched as a synthetic untagged line so its side effects
	// (READ-WRITE, PERMANENTFLAGS, capability refresh, ...) apply
	// before the outer status resolves.
	if len(body) > 0 && body[0].Kind == ArgResponse {
		c.redispatchResponseCode(body[0].Str)
	}

	if status == StatusBye {
		c.closing = true
	}

	entry := c.pending.resolve(tag)
	if entry == nil {
		if tag == GreetingTag && status == StatusOK {
			return // no registered handler for an untagged OK: no-op
		}
		c.logf("unsolicited tagged response for unknown tag %q", tag)
		return
	}

	entry.callback(c, entry.ctx, status, joinOriginal(body))
}

// redispatchResponseCode re-lexes "* <code>" and dispatches it as an
// untagged line, exactly as if the server had sent it on its own.
func (c *Connection) redispatchResponseCode(code string) {

	line := []byte("* " + code + "\r\n")

	args, consumed, complete, err := tokenizeLine(line)
	if err != nil || !complete || consumed == 0 {
		return
	}

	if len(args) == 0 {
		return
	}

	c.dispatchUntagged(args[1:])
}

func parseStatus(word string) Status {

	switch word {
	case "OK":
		return StatusOK
	case "NO":
		return StatusNO
	case "BAD":
		return StatusBAD
	case "PREAUTH":
		return StatusPreauth
	case "BYE":
		return StatusBye
	default:
		return StatusBAD
	}
}

func joinOriginal(args []*Arg) string {

	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, a.Original)
	}

	return strings.Join(parts, " ")
}

// handleList upserts a mailbox by name from a LIST/LSUB response of
// the shape "(flags) delimiter name".
func (c *Connection) handleList(params []*Arg) {

	if len(params) < 3 {
		return
	}

	name := params[2].String()

	mbox := c.upsertMailbox(name)
	mbox.Flags = flagSlice(params[0])

	c.publishMailbox(mbox)
}

// handleExists updates the Exists count of targetMailbox (the mailbox a
// SELECT is in flight for, otherwise the selected one) and advances
// the advisory NextUID bound.
func (c *Connection) handleExists(n int64) {

	mbox := c.targetMailbox()
	if mbox == nil {
		return
	}

	mbox.Exists = n
	if n+1 > mbox.NextUID {
		mbox.NextUID = n + 1
	}

	c.publishMailbox(mbox)
}

// handleExpunge removes the message at sequence index idx from the
// selected mailbox and publishes MessageDeleted.
func (c *Connection) handleExpunge(idx int) {

	mbox := c.selectedMailbox()
	if mbox == nil {
		return
	}

	if uid, ok := expungeIndex(mbox, idx); ok {
		if c.events.MessageDeleted != nil {
			c.events.MessageDeleted(mbox.Name, uid)
		}
	}

	c.publishMailbox(mbox)
}

// handleFetch merges a FETCH attribute list into the selected
// mailbox's message record at sequence index idx, creating the record
// if absent, never overwriting a field with NIL, and marking the
// message Populated once every requested attribute has arrived.
func (c *Connection) handleFetch(idx int, attrs *Arg) {

	mbox := c.selectedMailbox()
	if mbox == nil || attrs.Kind != ArgList {
		return
	}

	msg := messageByIndex(mbox, idx)

	for i := 0; i+1 < len(attrs.List); i += 2 {

		key := strings.ToUpper(attrs.List[i].String())
		value := attrs.List[i+1]

		mergeFetchAttr(msg, key, value)

		if msg.wanted != nil {
			delete(msg.wanted, normalizeAttr(key))
			if len(msg.wanted) == 0 {
				msg.Populated = true
				msg.Fetching = false
			}
		}
	}

	if c.events.MessageUpdated != nil {
		c.events.MessageUpdated(mbox.Name, msg)
	}
}

// mergeFetchAttr applies one key/value pair from a FETCH response onto
// msg, skipping NIL values so an absent attribute never clobbers a
// previously known one.
func mergeFetchAttr(msg *Message, key string, value *Arg) {

	if value.IsNil() {
		return
	}

	switch {
	case key == "UID":
		msg.UID = value.Num

	case key == "FLAGS":
		msg.Flags = flagSet(value)

	case key == "INTERNALDATE":
		if t, err := time.Parse("_2-Jan-2006 15:04:05 -0700", value.Str); err == nil {
			msg.InternalDate = t
		}

	case key == "BODYSTRUCTURE" || key == "BODY":
		kind, parts := parseBodyStructure(value)
		msg.MultipartType = kind
		msg.Parts = parts

	case strings.HasPrefix(key, "BODY[") || strings.HasPrefix(key, "RFC822.HEADER"):
		msg.Headers = splitHeaderLines(value.Str)

	}
}

// normalizeAttr maps a requested FETCH attribute name onto the form
// it comes back under, currently only stripping ".PEEK" (BODY.PEEK[]
// is requested, BODY[] is what arrives).
func normalizeAttr(key string) string {
	return strings.Replace(key, ".PEEK", "", 1)
}

// splitHeaderLines splits a raw header block into individual
// unfolded-by-line header entries, dropping the blank terminator line.
func splitHeaderLines(raw string) []string {

	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}

	return out
}

// publishMailbox invokes the MailboxUpdated event, if a listener is
// installed.
func (c *Connection) publishMailbox(mbox *Mailbox) {
	if c.events.MailboxUpdated != nil {
		c.events.MailboxUpdated(mbox)
	}
}
