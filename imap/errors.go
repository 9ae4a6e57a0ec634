package imap

import "github.com/pkg/errors"

// Status represents the outcome of a tagged (or pre-empted) IMAP
// command, handed to the command's pending callback exactly once.
type Status int

// Constants

const (
	// StatusOK means the command completed successfully.
	StatusOK Status = iota
	// StatusNO means the server rejected the command.
	StatusNO
	// StatusBAD means the command was malformed.
	StatusBAD
	// StatusPreauth is only valid on the connection greeting: the
	// session is already authenticated.
	StatusPreauth
	// StatusBye means the server is closing the connection.
	StatusBye
	// StatusPreError is returned when this client anticipated a
	// failure before the server ever replied: connect failure,
	// disconnect with commands outstanding, or engine shutdown.
	StatusPreError
)

func (s Status) String() string {

	switch s {
	case StatusOK:
		return "OK"
	case StatusNO:
		return "NO"
	case StatusBAD:
		return "BAD"
	case StatusPreauth:
		return "PREAUTH"
	case StatusBye:
		return "BYE"
	case StatusPreError:
		return "PRE_ERROR"
	default:
		return "UNKNOWN"
	}
}

// ConnectErrorKind distinguishes the three ways connecting can fail.
type ConnectErrorKind int

const (
	// ConnectErrorNetwork covers DNS resolution and TCP dial failure.
	ConnectErrorNetwork ConnectErrorKind = iota
	// ConnectErrorTLS covers TLS handshake failure, at connect time
	// or after STARTTLS.
	ConnectErrorTLS
	// ConnectErrorUnsupportedScheme covers any URI scheme other than
	// "imap" or "imaps".
	ConnectErrorUnsupportedScheme
)

// ConnectError is returned by ParseURI, DialPlain, DialTLS and
// UpgradeTLS and surfaced by the worker as a CONNECT_ERROR update.
type ConnectError struct {
	Kind ConnectErrorKind
	Err  error
}

func (e *ConnectError) Error() string {
	return errors.Wrap(e.Err, "imap: connect failed").Error()
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ProtocolError marks a malformed line or an unexpected state; per
// spec it is logged and the offending line dropped, the connection
// otherwise continuing unaffected.
type ProtocolError struct {
	Line string
	Err  error
}

func (e *ProtocolError) Error() string {
	return errors.Wrapf(e.Err, "imap: protocol error on line %q", e.Line).Error()
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// AuthError wraps the server's own text when it answers LOGIN or
// AUTHENTICATE with NO or BAD.
type AuthError struct {
	Status Status
	Text   string
}

func (e *AuthError) Error() string {
	return "imap: authentication failed: " + e.Status.String() + " " + e.Text
}

// ErrNoCompatibleAuth is returned when capability negotiation exhausts
// every authentication option the server advertised.
var ErrNoCompatibleAuth = errors.New("imap: server and client share no compatible authentication mechanism")

// ErrCertificateRejected is returned when the user declines to trust a
// server certificate surfaced via a CONNECT_CERT_CHECK update; distinct
// from ErrNoCompatibleAuth, which is a server-side capability mismatch,
// not a user decision.
var ErrCertificateRejected = errors.New("imap: server certificate rejected by user")

// DisconnectedError marks a socket read that failed (EOF or reset);
// every pending callback on the connection fires with StatusPreError
// before Receive returns it. A server BYE does not produce one: it only
// marks the connection as closing.
type DisconnectedError struct {
	Err error
}

func (e *DisconnectedError) Error() string {
	if e.Err == nil {
		return "imap: connection closed"
	}
	return errors.Wrap(e.Err, "imap: connection closed").Error()
}

func (e *DisconnectedError) Unwrap() error {
	return e.Err
}
