package imap

import "strings"

// Capabilities mirrors the server-advertised feature flags this
// client cares about. It is rebuilt wholesale from scratch from every
// untagged CAPABILITY response (including a [CAPABILITY ...] response
// code on a status line), never merged incrementally. After STARTTLS
// the engine re-issues CAPABILITY; after LOGIN/AUTHENTICATE it does
// not, and the set changes only if the server sends one itself.
type Capabilities struct {
	IMAP4rev1     bool
	StartTLS      bool
	LoginDisabled bool
	AuthPlain     bool
	AuthLogin     bool
	Idle          bool
	SASLIR        bool
}

// parseCapabilities rebuilds a Capabilities set from the atoms of a
// CAPABILITY response (untagged "* CAPABILITY ..." or the arguments of
// a synthesised "* CAPABILITY" line built from a greeting).
func parseCapabilities(args []*Arg) *Capabilities {

	caps := &Capabilities{}

	for _, a := range args {

		if a.Kind != ArgAtom {
			continue
		}

		switch strings.ToUpper(a.Str) {
		case "IMAP4REV1":
			caps.IMAP4rev1 = true
		case "STARTTLS":
			caps.StartTLS = true
		case "LOGINDISABLED":
			caps.LoginDisabled = true
		case "AUTH=PLAIN":
			caps.AuthPlain = true
		case "AUTH=LOGIN":
			caps.AuthLogin = true
		case "IDLE":
			caps.Idle = true
		case "SASL-IR":
			caps.SASLIR = true
		}
	}

	return caps
}
