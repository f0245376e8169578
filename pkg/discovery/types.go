package discovery

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	// ServiceType is the DNS-SD service type advertised by servers.
	ServiceType = "_topicmux._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// BrowseTimeout is the default timeout for Lookup.
	BrowseTimeout = 5 * time.Second
)

// TXT record keys.
const (
	TXTKeyPath    = "path"
	TXTKeyTLS     = "tls"
	TXTKeyEncoder = "enc"
)

var (
	ErrNotFound       = errors.New("server not found")
	ErrBrowserStopped = errors.New("browser stopped")
)

// Server is a topicmux server found on the network.
type Server struct {
	Instance  string
	Host      string
	Port      uint16
	Addresses []string

	// Path is the WebSocket endpoint path advertised in TXT, if any.
	Path string

	// Secure is set when the server advertises tls=1.
	Secure bool

	// Encoder is the advertised wire encoder name, if any.
	Encoder string
}

// BaseURL returns the ws:// or wss:// URL of the server. The first
// advertised address is preferred over the host name.
func (s *Server) BaseURL() string {
	scheme := "ws"
	if s.Secure {
		scheme = "wss"
	}

	host := strings.TrimSuffix(s.Host, ".")
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}

	return scheme + "://" + net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}
