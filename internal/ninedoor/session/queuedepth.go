package session

import "sync/atomic"

// QueueDepth is a per-session queue-depth limiter; refusals bump the
// caller's back-pressure counter under /proc/pressure/busy (spec §4.3).
type QueueDepth struct {
	limit   int32
	current int32
}

// NewQueueDepth builds a QueueDepth bounded by limit.
func NewQueueDepth(limit int) *QueueDepth {
	return &QueueDepth{limit: int32(limit)}
}

// TryEnter admits one more in-flight request, returning false if the queue
// is at its limit (caller should refuse with Again and record pressure).
func (q *QueueDepth) TryEnter() bool {
	for {
		cur := atomic.LoadInt32(&q.current)
		if cur >= q.limit {
			return false
		}
		if atomic.CompareAndSwapInt32(&q.current, cur, cur+1) {
			return true
		}
	}
}

// Leave releases one in-flight request slot.
func (q *QueueDepth) Leave() {
	atomic.AddInt32(&q.current, -1)
}

// Depth returns the current in-flight count.
func (q *QueueDepth) Depth() int { return int(atomic.LoadInt32(&q.current)) }
