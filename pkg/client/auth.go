package client

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// Query parameters set by the auth helpers.
const (
	queryToken = "token"
	queryBasic = "basic"
)

// normalizeBaseURL validates base and maps http(s) to ws(s).
func normalizeBaseURL(base string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("%w: base URL is required", ErrInvalidArgument)
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: unsupported URL scheme %q", ErrInvalidArgument, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: URL %q has no host", ErrInvalidArgument, base)
	}
	return u.String(), nil
}

// WithJwtToken authenticates with a JWT. It applies from the next connect.
func (c *Connection) WithJwtToken(token string) *Connection {
	c.setAuth(queryToken, token)
	return c
}

// WithApiToken authenticates with a personal API token. It applies from the
// next connect.
func (c *Connection) WithApiToken(token string) *Connection {
	c.setAuth(queryToken, token)
	return c
}

// WithBasicAuth authenticates with a username and password. It applies from
// the next connect.
func (c *Connection) WithBasicAuth(username, password string) *Connection {
	c.setAuth(queryBasic, base64.StdEncoding.EncodeToString([]byte(username+":"+password)))
	return c
}

func (c *Connection) setAuth(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth[key] = value
}

// URL returns the URL the next connect will dial.
func (c *Connection) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.urlLocked()
}

func (c *Connection) urlLocked() string {
	u := strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(c.config.Path, "/")

	q := url.Values{}
	for k, v := range c.config.Query {
		q.Set(k, v)
	}
	for k, v := range c.auth {
		q.Set(k, v)
	}
	if len(q) == 0 {
		return u
	}
	// Encode sorts by key.
	return u + "?" + q.Encode()
}
