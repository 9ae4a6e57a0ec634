package worker

import (
	"bufio"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/aerc-go/aerc/queue"
)

func TestActionKindString(t *testing.T) {
	if ActionConnect.String() != "CONNECT" {
		t.Errorf("got %q", ActionConnect.String())
	}
	if ActionKind(99).String() != "UNKNOWN" {
		t.Errorf("expected UNKNOWN for an out-of-range kind")
	}
}

func TestUpdateKindString(t *testing.T) {
	if UpdateConnectDone.String() != "CONNECT_DONE" {
		t.Errorf("got %q", UpdateConnectDone.String())
	}
	if UpdateKind(99).String() != "UNKNOWN" {
		t.Errorf("expected UNKNOWN for an out-of-range kind")
	}
}

// fakeIMAPServer accepts exactly one connection and plays a scripted
// login sequence: greeting, CAPABILITY reply, AUTHENTICATE PLAIN OK.
func fakeIMAPServer(t *testing.T, ln net.Listener) {
	t.Helper()

	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	conn.Write([]byte("* OK fake IMAP ready\r\n"))

	reader := bufio.NewReader(conn)

	// CAPABILITY
	line, err := reader.ReadString('\n')
	if err != nil {
		return
	}
	tag := firstWord(line)
	conn.Write([]byte("* CAPABILITY IMAP4rev1 AUTH=PLAIN SASL-IR\r\n"))
	conn.Write([]byte(tag + " OK CAPABILITY completed\r\n"))

	// AUTHENTICATE PLAIN <b64>
	line, err = reader.ReadString('\n')
	if err != nil {
		return
	}
	tag = firstWord(line)
	conn.Write([]byte(tag + " OK [CAPABILITY IMAP4rev1] LOGIN completed\r\n"))
}

func firstWord(line string) string {
	for i, r := range line {
		if r == ' ' {
			return line[:i]
		}
	}
	return line
}

func TestWorkerConnectPlaintextSucceeds(t *testing.T) {

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go fakeIMAPServer(t, ln)

	inbound := queue.New()
	outbound := queue.New()
	w := New("work", inbound, outbound)

	go w.Run()
	defer func() {
		inbound.Push(NewAction(ActionShutdown))
	}()

	connect := NewAction(ActionConnect)
	connect.URI = fmt.Sprintf("imap://alice:s3cret@%s", ln.Addr().String())
	inbound.Push(connect)

	deadline := time.Now().Add(3 * time.Second)
	var gotAck, gotDone bool

	for time.Now().Before(deadline) && !(gotAck && gotDone) {
		v, ok := outbound.TryPop()
		if !ok {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		u := v.(Update)
		switch u.Kind {
		case UpdateAck:
			gotAck = true
		case UpdateConnectDone:
			gotDone = true
		case UpdateConnectError:
			t.Fatalf("unexpected connect error: %v", u.Err)
		}
	}

	if !gotAck {
		t.Errorf("never saw an ACK for the CONNECT action")
	}
	if !gotDone {
		t.Errorf("never saw CONNECT_DONE")
	}
}
