package imap

import (
	"fmt"
	"net/url"
	"strings"
)

// URI is a parsed imap[s]://[user[:password]@]host[:port][/path]
// connection string (spec §6). No third-party URI parser appears
// anywhere in the retrieval pack (see DESIGN.md); net/url is the
// standard and only idiomatic mechanism for this in Go.
type URI struct {
	UseSSL   bool
	Host     string
	Port     string
	Username string
	Password string
	Path     string
}

// ParseURI parses raw into a URI, filling in the default port (993
// for imaps, 143 for imap) when none was given. An unsupported scheme
// yields a *ConnectError of kind ConnectErrorUnsupportedScheme.
func ParseURI(raw string) (*URI, error) {

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, &ConnectError{Kind: ConnectErrorNetwork, Err: fmt.Errorf("invalid connection URI: %w", err)}
	}

	var useSSL bool

	switch strings.ToLower(parsed.Scheme) {
	case "imaps":
		useSSL = true
	case "imap":
		useSSL = false
	default:
		return nil, &ConnectError{
			Kind: ConnectErrorUnsupportedScheme,
			Err:  fmt.Errorf("unsupported scheme %q", parsed.Scheme),
		}
	}

	host := parsed.Hostname()
	port := parsed.Port()
	if port == "" {
		if useSSL {
			port = "993"
		} else {
			port = "143"
		}
	}

	u := &URI{
		UseSSL: useSSL,
		Host:   host,
		Port:   port,
		Path:   strings.TrimPrefix(parsed.Path, "/"),
	}

	if parsed.User != nil {
		u.Username = parsed.User.Username()
		u.Password, _ = parsed.User.Password()
	}

	return u, nil
}

// Addr returns the "host:port" dial address for this URI.
func (u *URI) Addr() string {
	return u.Host + ":" + u.Port
}
