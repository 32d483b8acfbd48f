package socket

import (
	"sync/atomic"
	"time"
)

// Observer is the façade's pluggable metrics hook: every Send/Receive/
// Accept and every other failure a socket method can produce runs through
// it. Grounded on go-ublk's Observer interface and its atomic-counter
// Metrics struct (metrics.go), adapted from a block-device's four I/O
// shapes (read/write/discard/flush) to this façade's three (read/write/
// accept) plus one catch-all for errors that have no dedicated shape
// (bind, connect, sockopt).
type Observer interface {
	ObserveRead(bytes int, latency time.Duration, err error)
	ObserveWrite(bytes int, latency time.Duration, err error)
	ObserveAccept(latency time.Duration, err error)
	ObserveError(op string, err error)
}

// NoopObserver discards every observation. It is every façade socket's
// default so call sites never have to nil-check before invoking a hook.
type NoopObserver struct{}

func (NoopObserver) ObserveRead(int, time.Duration, error)  {}
func (NoopObserver) ObserveWrite(int, time.Duration, error) {}
func (NoopObserver) ObserveAccept(time.Duration, error)     {}
func (NoopObserver) ObserveError(string, error)             {}

var _ Observer = NoopObserver{}

// Metrics accumulates the counters a MetricsObserver records. Safe for
// concurrent reads from any goroutine; writes only ever come from the
// reactor's own goroutine, same single-writer posture as the rest of the
// façade.
type Metrics struct {
	ReadOps, WriteOps, AcceptOps                       atomic.Uint64
	ReadBytes, WriteBytes                              atomic.Uint64
	ReadErrors, WriteErrors, AcceptErrors, OtherErrors  atomic.Uint64
	ReadLatencyNs, WriteLatencyNs, AcceptLatencyNs      atomic.Uint64
}

// NewMetrics returns a zeroed Metrics ready for a MetricsObserver.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// MetricsObserver records every observation into m, the same atomic-
// counter-bank pattern go-ublk's MetricsObserver wraps around *Metrics.
type MetricsObserver struct {
	m *Metrics
}

// NewMetricsObserver creates an Observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{m: m}
}

func (o *MetricsObserver) ObserveRead(bytes int, latency time.Duration, err error) {
	o.m.ReadOps.Add(1)
	if err != nil {
		o.m.ReadErrors.Add(1)
		return
	}
	o.m.ReadBytes.Add(uint64(bytes))
	o.m.ReadLatencyNs.Add(uint64(latency))
}

func (o *MetricsObserver) ObserveWrite(bytes int, latency time.Duration, err error) {
	o.m.WriteOps.Add(1)
	if err != nil {
		o.m.WriteErrors.Add(1)
		return
	}
	o.m.WriteBytes.Add(uint64(bytes))
	o.m.WriteLatencyNs.Add(uint64(latency))
}

func (o *MetricsObserver) ObserveAccept(latency time.Duration, err error) {
	o.m.AcceptOps.Add(1)
	if err != nil {
		o.m.AcceptErrors.Add(1)
		return
	}
	o.m.AcceptLatencyNs.Add(uint64(latency))
}

func (o *MetricsObserver) ObserveError(op string, err error) {
	o.m.OtherErrors.Add(1)
}

var _ Observer = (*MetricsObserver)(nil)
