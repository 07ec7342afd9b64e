// Package timing measures the phases of one client transaction: DNS
// resolution, TCP connect, optional TLS handshake, time to first response
// byte, and the transaction's total wall-clock time.
package timing

import (
	"fmt"
	"time"
)

// Metrics is the timing breakdown for one transaction. A phase that never
// ran (e.g. TLSHandshake for a plain http:// request) is left at zero.
type Metrics struct {
	DNSLookup    time.Duration
	TCPConnect   time.Duration
	TLSHandshake time.Duration
	TTFB         time.Duration
	TotalTime    time.Duration
}

// ConnectionTime is the time spent establishing the connection before any
// request bytes went out: DNS + TCP + TLS.
func (m Metrics) ConnectionTime() time.Duration {
	return m.DNSLookup + m.TCPConnect + m.TLSHandshake
}

func (m Metrics) String() string {
	return fmt.Sprintf("dns=%v tcp=%v tls=%v ttfb=%v total=%v",
		m.DNSLookup, m.TCPConnect, m.TLSHandshake, m.TTFB, m.TotalTime)
}

// Timer accumulates phase start/end marks for one transaction. The zero
// value is not usable; construct with NewTimer.
type Timer struct {
	start time.Time

	dnsStart, dnsEnd   time.Time
	tcpStart, tcpEnd   time.Time
	tlsStart, tlsEnd   time.Time
	ttfbStart, ttfbEnd time.Time
	totalEnd           time.Time
}

// NewTimer starts a timer whose start marks the beginning of the
// transaction (before DNS resolution).
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) StartDNS() { t.dnsStart = time.Now() }
func (t *Timer) EndDNS()   { t.dnsEnd = time.Now() }

func (t *Timer) StartTCP() { t.tcpStart = time.Now() }
func (t *Timer) EndTCP()   { t.tcpEnd = time.Now() }

func (t *Timer) StartTLS() { t.tlsStart = time.Now() }
func (t *Timer) EndTLS()   { t.tlsEnd = time.Now() }

func (t *Timer) StartTTFB() { t.ttfbStart = time.Now() }

// EndTTFB marks the first response byte. It is a no-op past the first
// call, since only the first byte's arrival matters.
func (t *Timer) EndTTFB() {
	if t.ttfbEnd.IsZero() {
		t.ttfbEnd = time.Now()
	}
}

// EndTotal marks the end of the transaction. Call once, when Do returns.
func (t *Timer) EndTotal() {
	t.totalEnd = time.Now()
}

// Metrics computes the final breakdown from the marks recorded so far.
func (t *Timer) Metrics() Metrics {
	end := t.totalEnd
	if end.IsZero() {
		end = time.Now()
	}

	var m Metrics
	m.TotalTime = end.Sub(t.start)
	if !t.dnsStart.IsZero() && !t.dnsEnd.IsZero() {
		m.DNSLookup = t.dnsEnd.Sub(t.dnsStart)
	}
	if !t.tcpStart.IsZero() && !t.tcpEnd.IsZero() {
		m.TCPConnect = t.tcpEnd.Sub(t.tcpStart)
	}
	if !t.tlsStart.IsZero() && !t.tlsEnd.IsZero() {
		m.TLSHandshake = t.tlsEnd.Sub(t.tlsStart)
	}
	if !t.ttfbStart.IsZero() && !t.ttfbEnd.IsZero() {
		m.TTFB = t.ttfbEnd.Sub(t.ttfbStart)
	}
	return m
}
