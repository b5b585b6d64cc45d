package observability

import (
	"sync/atomic"
	"time"
)

// ReceiptStats are in-process delivery counters, reported by /readyz.
type ReceiptStats struct {
	queued    atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	retried   atomic.Uint64
	dropped   atomic.Uint64

	// nanoseconds
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewReceiptStats() *ReceiptStats {
	return &ReceiptStats{}
}

func (m *ReceiptStats) IncQueued()    { m.queued.Add(1) }
func (m *ReceiptStats) IncDelivered() { m.delivered.Add(1) }
func (m *ReceiptStats) IncFailed()    { m.failed.Add(1) }
func (m *ReceiptStats) IncRetried()   { m.retried.Add(1) }
func (m *ReceiptStats) IncDropped()   { m.dropped.Add(1) }

func (m *ReceiptStats) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type ReceiptStatsSnapshot struct {
	Queued          uint64        `json:"queued"`
	Delivered       uint64        `json:"delivered"`
	Failed          uint64        `json:"failed"`
	Retried         uint64        `json:"retried"`
	Dropped         uint64        `json:"dropped"`
	AverageDuration time.Duration `json:"average_duration_ns"`
	MaxDuration     time.Duration `json:"max_duration_ns"`
}

func (m *ReceiptStats) Snapshot() ReceiptStatsSnapshot {
	count := m.durationCount.Load()

	var avg time.Duration
	if count > 0 {
		avg = time.Duration(m.durationTotal.Load() / int64(count))
	}

	return ReceiptStatsSnapshot{
		Queued:          m.queued.Load(),
		Delivered:       m.delivered.Load(),
		Failed:          m.failed.Load(),
		Retried:         m.retried.Load(),
		Dropped:         m.dropped.Load(),
		AverageDuration: avg,
		MaxDuration:     time.Duration(m.durationMax.Load()),
	}
}
