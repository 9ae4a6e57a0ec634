package imap

import "time"

// Structs

// MessagePart describes one part of a (possibly multipart) message
// body, as carried in a BODYSTRUCTURE response.
type MessagePart struct {
	Type        string
	Subtype     string
	Params      map[string]string
	BodyID      string
	Description string
	Encoding    string
	Size        int64
	Content     []byte
}

// Message is one entry of a selected mailbox's ordered message
// sequence. Index is the server-assigned, 1-based sequence number and
// shifts on EXPUNGE; UID is stable for the lifetime of the session.
type Message struct {
	Index        int
	UID          int64
	Flags        map[string]struct{}
	Headers      []string
	InternalDate time.Time
	MultipartType string
	Parts        []*MessagePart
	Fetching     bool
	Populated    bool

	// wanted tracks which FETCH attributes were requested for this
	// message so Populated can be set once every one of them has
	// arrived; nil once Populated is true.
	wanted map[string]struct{}
}

// Mailbox mirrors one entry of a connection's mailbox list. Exists
// equals len(Messages) once FETCH has fully populated it; at most one
// mailbox per connection has Selected set.
type Mailbox struct {
	Name            string
	Flags           []string
	PermanentFlags  []string
	Exists          int64
	Recent          int64
	Unseen          int64
	// NextUID is advisory only (§9): incremented as EXISTS grows, read
	// by nothing in the engine itself.
	NextUID  int64
	ReadOnly bool
	ReadWrite bool
	Selected bool

	Messages []*Message
}

// Functions

// Clone returns a deep copy of msg, safe to hand to another goroutine:
// the returned Message shares no mutable state (Flags set, Headers and
// Parts slices, wanted set) with the original.
func (m *Message) Clone() *Message {

	if m == nil {
		return nil
	}

	out := *m

	if m.Flags != nil {
		out.Flags = make(map[string]struct{}, len(m.Flags))
		for f := range m.Flags {
			out.Flags[f] = struct{}{}
		}
	}

	if m.Headers != nil {
		out.Headers = append([]string(nil), m.Headers...)
	}

	if m.Parts != nil {
		out.Parts = make([]*MessagePart, len(m.Parts))
		for i, p := range m.Parts {
			out.Parts[i] = p.Clone()
		}
	}

	if m.wanted != nil {
		out.wanted = make(map[string]struct{}, len(m.wanted))
		for k := range m.wanted {
			out.wanted[k] = struct{}{}
		}
	}

	return &out
}

// Clone returns a deep copy of p, or nil.
func (p *MessagePart) Clone() *MessagePart {

	if p == nil {
		return nil
	}

	out := *p

	if p.Params != nil {
		out.Params = make(map[string]string, len(p.Params))
		for k, v := range p.Params {
			out.Params[k] = v
		}
	}

	if p.Content != nil {
		out.Content = append([]byte(nil), p.Content...)
	}

	return &out
}

// Clone returns a deep copy of mbox, safe to hand to another goroutine:
// the returned Mailbox shares no mutable state (Flags/PermanentFlags
// slices, Messages slice and each of its entries) with the original.
func (mbox *Mailbox) Clone() *Mailbox {

	if mbox == nil {
		return nil
	}

	out := *mbox

	if mbox.Flags != nil {
		out.Flags = append([]string(nil), mbox.Flags...)
	}

	if mbox.PermanentFlags != nil {
		out.PermanentFlags = append([]string(nil), mbox.PermanentFlags...)
	}

	if mbox.Messages != nil {
		out.Messages = make([]*Message, len(mbox.Messages))
		for i, m := range mbox.Messages {
			out.Messages[i] = m.Clone()
		}
	}

	return &out
}

// upsertMailbox finds or creates, by name, the mailbox entry in
// conn.Mailboxes, preserving insertion order the way LIST/LSUB
// responses arrive.
func (c *Connection) upsertMailbox(name string) *Mailbox {

	for _, m := range c.Mailboxes {
		if m.Name == name {
			return m
		}
	}

	m := &Mailbox{Name: name}
	c.Mailboxes = append(c.Mailboxes, m)

	return m
}

// findMailbox returns the mailbox entry named name, or nil.
func (c *Connection) findMailbox(name string) *Mailbox {

	for _, m := range c.Mailboxes {
		if m.Name == name {
			return m
		}
	}

	return nil
}

// selectedMailbox returns the mailbox currently marked Selected, or
// nil if none is (not yet selected, or mid-SELECT).
func (c *Connection) selectedMailbox() *Mailbox {

	if c.Selected == "" {
		return nil
	}

	return c.findMailbox(c.Selected)
}

// messageByIndex returns the message at 1-based sequence index idx in
// mbox, creating it (and every lower-indexed gap) if it does not yet
// exist, matching the engine's "merge, never overwrite with nil"
// FETCH semantics.
func messageByIndex(mbox *Mailbox, idx int) *Message {

	for len(mbox.Messages) < idx {
		mbox.Messages = append(mbox.Messages, &Message{
			Index: len(mbox.Messages) + 1,
			Flags: make(map[string]struct{}),
		})
	}

	return mbox.Messages[idx-1]
}

// messageByUID returns the message carrying uid in mbox, or nil.
func messageByUID(mbox *Mailbox, uid int64) *Message {

	for _, m := range mbox.Messages {
		if m.UID == uid {
			return m
		}
	}

	return nil
}

// expungeIndex removes the message at 1-based sequence index idx from
// mbox and decrements the Index of every message after it, per spec
// invariant "index shifts on EXPUNGE". It returns the removed
// message's UID so the caller can publish MESSAGE_DELETED.
func expungeIndex(mbox *Mailbox, idx int) (uid int64, ok bool) {

	if idx < 1 || idx > len(mbox.Messages) {
		return 0, false
	}

	removed := mbox.Messages[idx-1]

	mbox.Messages = append(mbox.Messages[:idx-1], mbox.Messages[idx:]...)
	for i := idx - 1; i < len(mbox.Messages); i++ {
		mbox.Messages[i].Index--
	}

	mbox.Exists = int64(len(mbox.Messages))

	return removed.UID, true
}

// flagSet builds a set from a parenthesised IMAP flags list argument.
func flagSet(list *Arg) map[string]struct{} {

	flags := make(map[string]struct{})

	if list == nil || list.Kind != ArgList {
		return flags
	}

	for _, f := range list.List {
		flags[f.String()] = struct{}{}
	}

	return flags
}

// flagSlice builds an ordered slice from a parenthesised IMAP flags or
// mailbox-attribute list argument, used for Mailbox.Flags where
// insertion order from the wire is worth keeping for display.
func flagSlice(list *Arg) []string {

	if list == nil || list.Kind != ArgList {
		return nil
	}

	out := make([]string, 0, len(list.List))
	for _, f := range list.List {
		out = append(out, f.String())
	}

	return out
}

// parseBodyStructure interprets a BODYSTRUCTURE argument tree. A
// multipart body is a list whose elements are themselves body lists
// followed by a trailing subtype atom; it is flattened one level deep
// into Parts rather than kept as a nested tree, which is all the
// renderer needs to list attachments. A single-part body is the usual
// (type subtype (params...) id description encoding size ...) form.
func parseBodyStructure(body *Arg) (multipartType string, parts []*MessagePart) {

	if body == nil || body.Kind != ArgList || len(body.List) == 0 {
		return "", nil
	}

	if body.List[0].Kind == ArgList {
		for _, child := range body.List {
			if child.Kind != ArgList {
				// Trailing subtype atom ("MIXED", "ALTERNATIVE", ...).
				multipartType = child.String()
				continue
			}
			_, childParts := parseBodyStructure(child)
			parts = append(parts, childParts...)
		}
		return multipartType, parts
	}

	return "", []*MessagePart{parseSinglePart(body.List)}
}

// parseSinglePart reads the fixed-position fields of a non-multipart
// BODYSTRUCTURE entry, tolerating a short list from servers that omit
// trailing extension fields.
func parseSinglePart(fields []*Arg) *MessagePart {

	part := &MessagePart{Params: make(map[string]string)}

	get := func(i int) *Arg {
		if i < len(fields) {
			return fields[i]
		}
		return nil
	}

	if f := get(0); f != nil {
		part.Type = f.String()
	}
	if f := get(1); f != nil {
		part.Subtype = f.String()
	}
	if f := get(2); f != nil && f.Kind == ArgList {
		for i := 0; i+1 < len(f.List); i += 2 {
			part.Params[f.List[i].String()] = f.List[i+1].String()
		}
	}
	if f := get(3); f != nil {
		part.BodyID = f.String()
	}
	if f := get(4); f != nil {
		part.Description = f.String()
	}
	if f := get(5); f != nil {
		part.Encoding = f.String()
	}
	if f := get(6); f != nil {
		part.Size = f.Num
	}

	return part
}
