package engine

import "go.uber.org/atomic"

// Metrics are the engine's atomic counters (spec.md §6.4). They are read
// concurrently by any thread while only the writer thread (and Ingest,
// for queue depth sampling) mutates them, mirroring friggdb's
// FindMetrics atomic-counter style (friggdb.go).
type Metrics struct {
	IngestTotal     atomic.Int64
	FlushTotal      atomic.Int64
	FlushNanosTotal atomic.Int64
	FlushPointsTotal atomic.Int64
	WalBytesTotal   atomic.Int64

	QueuePopTotal      atomic.Int64
	QueueWaitNanosTotal atomic.Int64
	QueueMaxLen        atomic.Int64
	QueueLenSum        atomic.Int64
	QueueLenSamples    atomic.Int64

	QueueContentionTotal atomic.Int64
	QueueHoldNanosTotal  atomic.Int64
}

// sampleQueueLen records one queue-depth observation, maintaining
// QueueMaxLen via a monotonic compare-and-swap max update.
func (m *Metrics) sampleQueueLen(n int64) {
	m.QueueLenSum.Add(n)
	m.QueueLenSamples.Add(1)

	for {
		cur := m.QueueMaxLen.Load()
		if n <= cur {
			return
		}
		if m.QueueMaxLen.CAS(cur, n) {
			return
		}
	}
}
