package callflow

import (
	"sync"
	"time"
)

type trackedCall struct {
	state   State
	touched time.Time
}

// Tracker follows the lifecycle of in-flight calls by carrier call id. It is
// observability state, not control state: handlers answer from the callback
// alone, the tracker records where each call sits in the table. Terminated
// calls are dropped immediately; calls the carrier abandons without a
// further webhook (caller hangs up, stream parks) expire after the TTL, so
// the map only ever holds recently active calls.
type Tracker struct {
	mu    sync.Mutex
	calls map[string]trackedCall
	ttl   time.Duration

	now func() time.Time
}

// NewTracker creates a tracker whose entries expire ttl after their last
// transition. ttl <= 0 disables expiry; callers are expected to set it.
func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{
		calls: make(map[string]trackedCall),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Advance applies e to the call's current state and returns the state
// reached. Unknown or expired call ids start at StateInbound. An undefined
// pair is treated as a failure transition, so Advance always lands somewhere
// in the table; ok=false reports that the pair was undefined.
func (t *Tracker) Advance(callID string, e Event) (State, bool) {
	if callID == "" {
		return StateTerminated, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweepLocked()

	current, exists := t.calls[callID]
	if !exists {
		current = trackedCall{state: StateInbound}
	}

	next, ok := Next(current.state, e)
	if !ok {
		next = StateTerminated
	}

	if Terminal(next) {
		delete(t.calls, callID)
	} else {
		t.calls[callID] = trackedCall{state: next, touched: t.now()}
	}
	return next, ok
}

// StateOf returns the tracked state of a call, if it is live. An expired
// entry is dropped on the spot.
func (t *Tracker) StateOf(callID string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.calls[callID]
	if !ok {
		return StateTerminated, false
	}
	if t.expiredLocked(c) {
		delete(t.calls, callID)
		return StateTerminated, false
	}
	return c.state, true
}

// Live reports the number of calls currently tracked.
func (t *Tracker) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweepLocked()
	return len(t.calls)
}

func (t *Tracker) expiredLocked(c trackedCall) bool {
	return t.ttl > 0 && t.now().Sub(c.touched) >= t.ttl
}

// sweepLocked scans the whole map: touch times update on every transition,
// so expiry does not follow insertion order. The map holds only live calls,
// which keeps the scan small.
func (t *Tracker) sweepLocked() {
	if t.ttl <= 0 {
		return
	}
	for id, c := range t.calls {
		if t.expiredLocked(c) {
			delete(t.calls, id)
		}
	}
}
