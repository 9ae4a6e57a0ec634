package imap

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"time"

	"github.com/aerc-go/aerc/crypto"
)

// Socket wraps a TCP connection that may be upgraded to TLS in place
// (STARTTLS) or dialed with TLS from the start (imaps). Rather than
// exposing a raw pollable file descriptor - which Go offers no
// portable way to do without reaching for golang.org/x/sys/unix, a
// dependency no repo in the retrieval pack pulls in for this purpose
// (see DESIGN.md) - Socket exposes an idiomatic Go readiness signal: a
// background goroutine reads whatever is available and forwards it
// over a channel, which is exactly what the worker's select-style poll
// loop (§4.3) waits on alongside its action queue and timers.
type Socket struct {
	conn     net.Conn
	host     string
	verify   bool
	incoming chan readResult
	done     chan struct{}
}

// readResult is one chunk read off the wire, or the error that ended
// the read loop (io.EOF on a graceful close, anything else on reset).
type readResult struct {
	data []byte
	err  error
}

// DialPlain opens a plaintext TCP connection to addr.
func DialPlain(addr string) (*Socket, error) {

	conn, err := net.DialTimeout("tcp", addr, 30*time.Second)
	if err != nil {
		return nil, &ConnectError{Kind: ConnectErrorNetwork, Err: err}
	}

	return newSocket(conn, "", true), nil
}

// DialTLS opens a TCP connection to addr and immediately performs a
// TLS handshake, used for the imaps scheme. verify controls
// certificate verification; host is used both as the TLS ServerName
// and to label CONNECT_CERT_CHECK updates.
func DialTLS(addr string, host string, verify bool) (*Socket, error) {

	conn, err := net.DialTimeout("tcp", addr, 30*time.Second)
	if err != nil {
		return nil, &ConnectError{Kind: ConnectErrorNetwork, Err: err}
	}

	tlsConn := tls.Client(conn, crypto.NewClientTLSConfig(host, verify))
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, &ConnectError{Kind: ConnectErrorTLS, Err: err}
	}

	return newSocket(tlsConn, host, verify), nil
}

func newSocket(conn net.Conn, host string, verify bool) *Socket {

	s := &Socket{
		conn:     conn,
		host:     host,
		verify:   verify,
		incoming: make(chan readResult, 16),
		done:     make(chan struct{}),
	}

	go s.readLoop()

	return s
}

func (s *Socket) readLoop() {

	buf := make([]byte, 4096)

	for {
		n, err := s.conn.Read(buf)

		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			select {
			case s.incoming <- readResult{data: chunk}:
			case <-s.done:
				return
			}
		}

		if err != nil {
			select {
			case s.incoming <- readResult{err: err}:
			case <-s.done:
			}
			return
		}
	}
}

// Readable returns the channel the worker's poll loop selects on
// alongside its action queue and idle-refresh timer.
func (s *Socket) Readable() <-chan readResult {
	return s.incoming
}

// Write sends b on the underlying connection.
func (s *Socket) Write(b []byte) (int, error) {
	return s.conn.Write(b)
}

// Certificate returns the leaf certificate the server presented, for
// CONNECT_CERT_CHECK inspection by the coordinator; nil on a
// plaintext connection.
func (s *Socket) Certificate() *x509.Certificate {

	tlsConn, ok := s.conn.(*tls.Conn)
	if !ok {
		return nil
	}

	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil
	}

	return state.PeerCertificates[0]
}

// UpgradeTLS performs an in-place STARTTLS upgrade: the caller must
// already have stopped reading plaintext once the server's "OK" to
// STARTTLS was dispatched. It replaces the underlying connection and
// restarts the read loop against the TLS session.
func (s *Socket) UpgradeTLS(host string, verify bool) error {

	close(s.done)
	s.done = make(chan struct{})

	tlsConn := tls.Client(s.conn, crypto.NewClientTLSConfig(host, verify))
	if err := tlsConn.Handshake(); err != nil {
		return &ConnectError{Kind: ConnectErrorTLS, Err: err}
	}

	s.conn = tlsConn
	s.incoming = make(chan readResult, 16)

	go s.readLoop()

	return nil
}

// Close tears down the underlying connection.
func (s *Socket) Close() error {
	close(s.done)
	return s.conn.Close()
}
