package imap

import "testing"

func TestTokenizeLineAtomsAndNumbers(t *testing.T) {

	args, consumed, complete, err := tokenizeLine([]byte("* 4 EXISTS\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !complete {
		t.Fatalf("expected a complete line")
	}
	if consumed != len("* 4 EXISTS\r\n") {
		t.Fatalf("consumed = %d, want %d", consumed, len("* 4 EXISTS\r\n"))
	}
	if len(args) != 3 {
		t.Fatalf("got %d args, want 3", len(args))
	}
	if args[0].Kind != ArgAtom || args[0].Str != "*" {
		t.Errorf("args[0] = %+v", args[0])
	}
	if args[1].Kind != ArgNumber || args[1].Num != 4 {
		t.Errorf("args[1] = %+v", args[1])
	}
	if args[2].Kind != ArgAtom || args[2].Str != "EXISTS" {
		t.Errorf("args[2] = %+v", args[2])
	}
}

func TestTokenizeLineNilIsAnAtom(t *testing.T) {

	args, _, complete, err := tokenizeLine([]byte("* 1 FETCH (UID 9 BODY[HEADER] NIL)\r\n"))
	if err != nil || !complete {
		t.Fatalf("err=%v complete=%v", err, complete)
	}

	list := args[len(args)-1]
	if list.Kind != ArgList {
		t.Fatalf("expected trailing list, got %+v", list)
	}

	nilArg := list.List[len(list.List)-1]
	if !nilArg.IsNil() {
		t.Errorf("expected NIL atom, got %+v", nilArg)
	}
}

func TestTokenizeLineQuotedStringEscapes(t *testing.T) {

	args, _, complete, err := tokenizeLine([]byte(`A1 OK "say \"hi\" to \\bob\\"` + "\r\n"))
	if err != nil || !complete {
		t.Fatalf("err=%v complete=%v", err, complete)
	}

	str := args[2]
	if str.Kind != ArgString {
		t.Fatalf("expected quoted string, got %+v", str)
	}
	if want := `say "hi" to \bob\`; str.Str != want {
		t.Errorf("str.Str = %q, want %q", str.Str, want)
	}
}

func TestTokenizeLineLiteralExactFit(t *testing.T) {

	line := "* 1 FETCH (BODY[TEXT] {5}\r\nhello)\r\n"

	args, consumed, complete, err := tokenizeLine([]byte(line))
	if err != nil || !complete {
		t.Fatalf("err=%v complete=%v", err, complete)
	}
	if consumed != len(line) {
		t.Fatalf("consumed = %d, want %d", consumed, len(line))
	}

	list := args[len(args)-1]
	literal := list.List[len(list.List)-1]
	if literal.Kind != ArgString || literal.Str != "hello" {
		t.Errorf("literal = %+v", literal)
	}
}

func TestTokenizeLineLiteralStraddlesBoundary(t *testing.T) {

	// Only the length prefix and CRLF have arrived; the literal body
	// itself has not. The caller must see an incomplete line and retry
	// once more bytes land, never a parse error.
	partial := []byte("* 1 FETCH (BODY[TEXT] {5}\r\nhel")

	_, _, complete, err := tokenizeLine(partial)
	if err != nil {
		t.Fatalf("unexpected error on partial literal: %v", err)
	}
	if complete {
		t.Fatalf("expected incomplete on a literal straddling the read boundary")
	}

	full := []byte("* 1 FETCH (BODY[TEXT] {5}\r\nhello)\r\n")

	args, consumed, complete, err := tokenizeLine(full)
	if err != nil || !complete {
		t.Fatalf("err=%v complete=%v", err, complete)
	}
	if consumed != len(full) {
		t.Fatalf("consumed = %d, want %d", consumed, len(full))
	}
	_ = args
}

func TestTokenizeLineZeroLengthLiteral(t *testing.T) {

	args, _, complete, err := tokenizeLine([]byte("A1 OK {0}\r\n\r\n"))
	if err != nil || !complete {
		t.Fatalf("err=%v complete=%v", err, complete)
	}

	literal := args[2]
	if literal.Kind != ArgString || literal.Str != "" {
		t.Errorf("literal = %+v, want empty string", literal)
	}
}

func TestTokenizeLineNestedListsDeep(t *testing.T) {

	// BODYSTRUCTURE-shaped: multipart containing a multipart, four
	// levels of parenthesis deep.
	line := `* 1 FETCH (BODYSTRUCTURE (((("TEXT" "PLAIN" NIL NIL NIL "7BIT" 10) "MIXED")) "ALTERNATIVE"))` + "\r\n"

	args, _, complete, err := tokenizeLine([]byte(line))
	if err != nil || !complete {
		t.Fatalf("err=%v complete=%v", err, complete)
	}

	fetch := args[len(args)-1]
	bodystructure := fetch.List[1]
	if bodystructure.Kind != ArgList {
		t.Fatalf("expected BODYSTRUCTURE value to be a list, got %+v", bodystructure)
	}

	outer := bodystructure.List[0]
	if outer.Kind != ArgList {
		t.Fatalf("expected nested multipart list, got %+v", outer)
	}
}

func TestTokenizeLineResponseCodePreservesRawText(t *testing.T) {

	args, _, complete, err := tokenizeLine([]byte("A1 OK [PERMANENTFLAGS (\\Seen \\Deleted)] done\r\n"))
	if err != nil || !complete {
		t.Fatalf("err=%v complete=%v", err, complete)
	}

	code := args[2]
	if code.Kind != ArgResponse {
		t.Fatalf("expected response-code arg, got %+v", code)
	}
	if want := `PERMANENTFLAGS (\Seen \Deleted)`; code.Str != want {
		t.Errorf("code.Str = %q, want %q", code.Str, want)
	}
}

func TestTokenizeLineIncompleteNoTrailingCRLF(t *testing.T) {

	_, _, complete, err := tokenizeLine([]byte("* 4 EXIST"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if complete {
		t.Fatalf("expected incomplete without a terminating CRLF")
	}
}
