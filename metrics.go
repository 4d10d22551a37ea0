package ubxmodem

import (
	"sync/atomic"
	"time"

	"github.com/ubxmodem/ubxmodem/internal/atclient"
)

// latencyBuckets are command round-trip latency histogram edges in
// nanoseconds, covering the expected range from a sub-millisecond local
// echo up to the tens-of-seconds CFUN/reboot waits (spec §5
// "suspension points").
var latencyBuckets = []uint64{
	1_000_000,    // 1ms
	10_000_000,   // 10ms
	100_000_000,  // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
	30_000_000_000, // 30s
}

const numLatencyBuckets = 6

// Metrics tracks operational counters for one CellInstance: command
// outcomes, URC deliveries and power-sequence counts.
type Metrics struct {
	CommandsSent    atomic.Uint64
	CommandsOK      atomic.Uint64
	CommandsError   atomic.Uint64
	CommandsTimeout atomic.Uint64

	URCsDelivered atomic.Uint64

	PowerOnAttempts  atomic.Uint64
	PowerOnSuccesses atomic.Uint64
	PowerOffCount    atomic.Uint64
	RebootCount      atomic.Uint64

	TotalLatencyNs atomic.Uint64
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics returns a zeroed Metrics with StartTime set to now.
func NewMetrics(now time.Time) *Metrics {
	m := &Metrics{}
	m.StartTime.Store(now.UnixNano())
	return m
}

// RecordCommand records the outcome and latency of one AT transaction.
func (m *Metrics) RecordCommand(latency time.Duration, err error) {
	m.CommandsSent.Add(1)
	if err == nil {
		m.CommandsOK.Add(1)
	} else if ae, ok := err.(*Error); ok && ae.Kind == ErrTimeout {
		m.CommandsTimeout.Add(1)
	} else if st, ok := err.(*atclient.Status); ok && st.Kind == atclient.KindTimeout {
		m.CommandsTimeout.Add(1)
	} else {
		m.CommandsError.Add(1)
	}
	ns := uint64(latency.Nanoseconds())
	m.TotalLatencyNs.Add(ns)
	for i, edge := range latencyBuckets {
		if ns <= edge {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// RecordURC increments the URC delivery counter.
func (m *Metrics) RecordURC() {
	m.URCsDelivered.Add(1)
}

// MetricsSnapshot is a point-in-time read of a Metrics.
type MetricsSnapshot struct {
	CommandsSent, CommandsOK, CommandsError, CommandsTimeout uint64
	URCsDelivered                                            uint64
	PowerOnAttempts, PowerOnSuccesses, PowerOffCount, RebootCount uint64
	AvgLatencyNs                                              uint64
	LatencyHistogram                                          [numLatencyBuckets]uint64
	UptimeNs                                                  uint64
}

// Snapshot copies the current counters out.
func (m *Metrics) Snapshot(now time.Time) MetricsSnapshot {
	s := MetricsSnapshot{
		CommandsSent:     m.CommandsSent.Load(),
		CommandsOK:       m.CommandsOK.Load(),
		CommandsError:    m.CommandsError.Load(),
		CommandsTimeout:  m.CommandsTimeout.Load(),
		URCsDelivered:    m.URCsDelivered.Load(),
		PowerOnAttempts:  m.PowerOnAttempts.Load(),
		PowerOnSuccesses: m.PowerOnSuccesses.Load(),
		PowerOffCount:    m.PowerOffCount.Load(),
		RebootCount:      m.RebootCount.Load(),
		UptimeNs:         uint64(now.UnixNano() - m.StartTime.Load()),
	}
	if s.CommandsSent > 0 {
		s.AvgLatencyNs = m.TotalLatencyNs.Load() / s.CommandsSent
	}
	for i := range s.LatencyHistogram {
		s.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}
	return s
}
