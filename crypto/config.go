package crypto

import (
	"crypto/tls"
)

// Functions

// NewClientTLSConfig returns a TLS config to be used when dialing an
// IMAP server, either for an implicit "imaps" connection or for a
// STARTTLS upgrade of a plaintext "imap" connection. It defines strict
// defaults, taken from the same hardening notes pluto's own public TLS
// config followed:
// "Achieving a Perfect SSL Labs Score with Go":
// https://blog.bracelab.com/achieving-perfect-ssl-labs-score-with-go
//
// verify controls certificate verification. The worker's imaps dial
// passes false, so the handshake completes and the server's
// certificate can be surfaced to the user in a CONNECT_CERT_CHECK
// update; the IMAP session starts only after CERT_OKAY comes back. The
// STARTTLS upgrade passes true.
func NewClientTLSConfig(serverName string, verify bool) *tls.Config {

	config := &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: !verify,
		MinVersion:         tls.VersionTLS12,
		CurvePreferences:   []tls.CurveID{tls.CurveP256, tls.X25519},
	}

	return config
}
