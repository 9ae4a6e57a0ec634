package imap

import (
	"io"
	"net"
	"testing"
)

// newTestSocket returns a Socket backed by an in-memory net.Pipe whose
// far end is drained continuously, so Send's Write never blocks even
// though nothing in these tests ever reads a reply off the wire.
func newTestSocket(t *testing.T) *Socket {
	t.Helper()

	client, server := net.Pipe()
	go io.Copy(io.Discard, server)
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	return newSocket(client, "test", true)
}

// feed tokenizes line and dispatches it on c, failing the test if the
// line doesn't parse as a single complete logical line.
func feed(t *testing.T, c *Connection, line string) {
	t.Helper()

	args, consumed, complete, err := tokenizeLine([]byte(line))
	if err != nil {
		t.Fatalf("tokenizeLine(%q): %v", line, err)
	}
	if !complete || consumed != len(line) {
		t.Fatalf("tokenizeLine(%q) not fully consumed: complete=%v consumed=%d", line, complete, consumed)
	}

	c.dispatch(args)
}

func TestDispatchPlainLoginResolvesPendingTag(t *testing.T) {

	c := NewConnection(nil, &URI{Host: "mail.example.com"}, Events{})

	var gotStatus Status
	var gotArgs string

	c.pending.register("A1", "LOGIN", func(_ *Connection, _ interface{}, status Status, args string) {
		gotStatus = status
		gotArgs = args
	}, nil)

	feed(t, c, "A1 OK LOGIN completed\r\n")

	if gotStatus != StatusOK {
		t.Errorf("status = %v, want StatusOK", gotStatus)
	}
	if gotArgs != "LOGIN completed" {
		t.Errorf("args = %q", gotArgs)
	}
}

func TestDispatchResponseCodeRedispatchesBeforeOuterStatus(t *testing.T) {

	c := NewConnection(nil, &URI{}, Events{})
	c.pendingSelect = "INBOX"

	var resolved bool

	c.pending.register("A2", "SELECT", func(conn *Connection, _ interface{}, status Status, _ string) {
		resolved = true
		mbox := conn.findMailbox("INBOX")
		if mbox == nil || !mbox.ReadWrite {
			t.Errorf("expected READ-WRITE to have been applied before the outer status resolved")
		}
	}, nil)

	feed(t, c, "A2 OK [READ-WRITE] SELECT completed\r\n")

	if !resolved {
		t.Fatalf("pending callback never resolved")
	}
}

func TestDispatchSelectAndFetchUpdateSelectedMailbox(t *testing.T) {

	c := NewConnection(newTestSocket(t), &URI{}, Events{})

	var updates []*Mailbox
	c.events.MailboxUpdated = func(m *Mailbox) { updates = append(updates, m) }

	tag, err := c.Select("INBOX", nil, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	_ = tag

	feed(t, c, "* 2 EXISTS\r\n")
	feed(t, c, "* 0 RECENT\r\n")
	feed(t, c, "* OK [UNSEEN 2] Message 2 is first unseen\r\n")
	feed(t, c, "A1 OK [READ-WRITE] SELECT completed\r\n")

	mbox := c.selectedMailbox()
	if mbox == nil {
		t.Fatalf("expected a selected mailbox")
	}
	if mbox.Exists != 2 {
		t.Errorf("Exists = %d, want 2", mbox.Exists)
	}
	if mbox.Unseen != 2 {
		t.Errorf("Unseen = %d, want 2", mbox.Unseen)
	}
	if !mbox.ReadWrite {
		t.Errorf("expected ReadWrite true")
	}

	var messageUpdates int
	c.events.MessageUpdated = func(string, *Message) { messageUpdates++ }

	feed(t, c, `* 1 FETCH (UID 101 FLAGS (\Seen))`+"\r\n")

	if messageUpdates != 1 {
		t.Fatalf("expected exactly one MessageUpdated event, got %d", messageUpdates)
	}
	msg := messageByIndex(mbox, 1)
	if msg.UID != 101 {
		t.Errorf("UID = %d, want 101", msg.UID)
	}
	if _, ok := msg.Flags[`\Seen`]; !ok {
		t.Errorf("expected \\Seen flag, got %+v", msg.Flags)
	}
}

func TestDispatchExpungeRemovesMessageAndShiftsIndex(t *testing.T) {

	c := NewConnection(nil, &URI{}, Events{})
	c.Selected = "INBOX"
	mbox := c.upsertMailbox("INBOX")
	mbox.Messages = []*Message{
		{Index: 1, UID: 10},
		{Index: 2, UID: 20},
		{Index: 3, UID: 30},
	}
	mbox.Exists = 3

	var deletedMailbox string
	var deletedUID int64
	c.events.MessageDeleted = func(name string, uid int64) {
		deletedMailbox = name
		deletedUID = uid
	}

	feed(t, c, "* 2 EXPUNGE\r\n")

	if deletedMailbox != "INBOX" || deletedUID != 20 {
		t.Fatalf("got mailbox=%q uid=%d, want INBOX/20", deletedMailbox, deletedUID)
	}
	if len(mbox.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(mbox.Messages))
	}
	if mbox.Messages[1].UID != 30 || mbox.Messages[1].Index != 2 {
		t.Errorf("third message did not shift down correctly: %+v", mbox.Messages[1])
	}
}

func TestDispatchUnsolicitedTaggedResponseForUnknownTagIsDropped(t *testing.T) {

	c := NewConnection(nil, &URI{}, Events{})

	var logged string
	c.events.Log = func(format string, args ...interface{}) {
		logged = format
	}

	feed(t, c, "A99 OK unexpected\r\n")

	if logged == "" {
		t.Errorf("expected the unknown tag to be logged")
	}
}

func TestDispatchByeMarksConnectionClosing(t *testing.T) {

	c := NewConnection(nil, &URI{}, Events{})

	feed(t, c, "* BYE shutting down\r\n")

	if !c.closing {
		t.Errorf("expected closing to be set after BYE")
	}
}

func TestDispatchContinuationInvokesWaiter(t *testing.T) {

	c := NewConnection(nil, &URI{}, Events{})

	var gotArgs []*Arg
	c.onContinuation = func(args []*Arg) {
		gotArgs = args
	}

	feed(t, c, "+ idling\r\n")

	if gotArgs == nil {
		t.Fatalf("continuation waiter was not invoked")
	}
	if c.onContinuation != nil {
		t.Errorf("expected onContinuation to be cleared after firing")
	}
}
