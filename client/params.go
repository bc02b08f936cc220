package client

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/guseggert/obsws/client/protocol"
)

const (
	DefaultHost    = "localhost"
	DefaultPort    = 4455
	DefaultTimeout = 3 * time.Second
)

// ConnectionParameters describe how to reach and identify with the server.
// Zero values are replaced with defaults when a client is constructed.
type ConnectionParameters struct {
	Host     string
	Port     int
	Password string
	Subs     protocol.Subs
	// Timeout bounds the dial and each handshake step, and is the default request timeout.
	Timeout time.Duration
	// Secure selects wss:// instead of ws://.
	Secure bool
}

func (p ConnectionParameters) withDefaults() ConnectionParameters {
	if p.Host == "" {
		p.Host = DefaultHost
	}
	if p.Port == 0 {
		p.Port = DefaultPort
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	return p
}

func (p ConnectionParameters) URL() string {
	scheme := "ws"
	if p.Secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(p.Host, strconv.Itoa(p.Port)))
}

// String never includes the password.
func (p ConnectionParameters) String() string {
	password := ""
	if p.Password != "" {
		password = "***"
	}
	return fmt.Sprintf("host=%q port=%d password=%q subs=%s timeout=%s", p.Host, p.Port, password, p.Subs, p.Timeout)
}
