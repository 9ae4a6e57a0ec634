package imap

import "testing"

func TestPendingTableAllocTagsNeverCollideWithSentinels(t *testing.T) {

	table := newPendingTable()

	for i := 0; i < 10; i++ {
		tag := table.allocTag()
		if tag == "*" || tag == "+" {
			t.Fatalf("allocated tag collided with a sentinel: %q", tag)
		}
	}
}

func TestPendingTableResolveRemovesEntry(t *testing.T) {

	table := newPendingTable()
	called := false

	table.register("A1", "NOOP", func(*Connection, interface{}, Status, string) {
		called = true
	}, nil)

	if table.len() != 1 {
		t.Fatalf("len = %d, want 1", table.len())
	}

	entry := table.resolve("A1")
	if entry == nil {
		t.Fatalf("expected entry for A1")
	}
	entry.callback(nil, nil, StatusOK, "")

	if !called {
		t.Errorf("callback was not invoked")
	}
	if table.len() != 0 {
		t.Errorf("len = %d, want 0 after resolve", table.len())
	}
	if table.resolve("A1") != nil {
		t.Errorf("resolve should not find the same tag twice")
	}
}

func TestPendingTableResolveUnknownTagReturnsNil(t *testing.T) {

	table := newPendingTable()

	if table.resolve("A99") != nil {
		t.Errorf("expected nil for an unregistered tag")
	}
}

func TestPendingTableFlushInvokesEveryCallbackWithPreError(t *testing.T) {

	table := newPendingTable()

	var statuses []Status
	for _, tag := range []string{"A1", "A2", "A3"} {
		table.register(tag, "FETCH", func(_ *Connection, _ interface{}, status Status, _ string) {
			statuses = append(statuses, status)
		}, nil)
	}

	table.flush(nil)

	if len(statuses) != 3 {
		t.Fatalf("got %d callbacks, want 3", len(statuses))
	}
	for _, s := range statuses {
		if s != StatusPreError {
			t.Errorf("status = %v, want StatusPreError", s)
		}
	}
	if table.len() != 0 {
		t.Errorf("len = %d, want 0 after flush", table.len())
	}
}

func TestPendingTableAtMostOneOutstandingPerTag(t *testing.T) {

	table := newPendingTable()
	tag := table.allocTag()

	table.register(tag, "FETCH", func(*Connection, interface{}, Status, string) {}, nil)
	if table.len() != 1 {
		t.Fatalf("len = %d, want 1", table.len())
	}

	// The same tag is never reused until it has been resolved; this
	// asserts the table itself doesn't silently grow on a duplicate
	// register call for a tag already in flight.
	table.register(tag, "FETCH", func(*Connection, interface{}, Status, string) {}, nil)
	if table.len() != 1 {
		t.Fatalf("len = %d, want 1 after a duplicate register", table.len())
	}

	table.resolve(tag)
	if table.len() != 0 {
		t.Fatalf("len = %d, want 0 once resolved", table.len())
	}
}
