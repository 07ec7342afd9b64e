package client

import (
	"crypto/tls"
	"time"

	"github.com/sirupsen/logrus"
)

// Options configures a Client. All fields are optional.
type Options struct {
	// Scheme overrides the scheme a request's Do call uses to decide
	// plain vs TLS and the default port, when the request itself leaves
	// Scheme empty.
	Scheme string

	// Timeout bounds the entire transaction: resolve, dial, optional TLS
	// handshake, write, and read. Zero means no timeout.
	Timeout time.Duration

	// OnProgress, if set, is called with the byte count of each
	// successful socket read during the response phase, and once more
	// with n=0 when the response has been fully read (for a response
	// without Content-Length, that is when the read side reaches EOF).
	OnProgress func(n int)

	// TLSConfig is used as the base config for an https:// request; its
	// ServerName is overridden with the dialed host unless already set.
	// A nil TLSConfig gets system default CA trust and hostname
	// verification (the crypto/tls default).
	TLSConfig *tls.Config

	// Logger receives a structured entry (tagged with a fresh transaction
	// UUID) for dial failures, timeouts and aborts. Defaults to
	// logrus.StandardLogger().
	Logger *logrus.Logger
}

func (o Options) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}
