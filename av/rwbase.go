package av

import (
	"sync"
	"time"
)

// RWBase tracks the liveness and transfer counters of a loader. It is safe
// for concurrent use: the loader goroutine records reads while a watchdog
// and the stats API read it.
type RWBase struct {
	lock    sync.Mutex
	timeout time.Duration

	preTime       time.Time
	bytesReceived int64
	chunks        int64
}

// NewRWBase returns a RWBase considered dead after duration without reads
func NewRWBase(duration time.Duration) *RWBase {
	return &RWBase{
		timeout: duration,
		preTime: time.Now(),
	}
}

// SetPreTime marks now as the last activity
func (rw *RWBase) SetPreTime() {
	rw.lock.Lock()
	rw.preTime = time.Now()
	rw.lock.Unlock()
}

// RecRead records a read of n bytes and refreshes the activity time
func (rw *RWBase) RecRead(n int) {
	rw.lock.Lock()
	rw.preTime = time.Now()
	rw.bytesReceived += int64(n)
	rw.chunks++
	rw.lock.Unlock()
}

// Received returns the bytes and chunks recorded so far
func (rw *RWBase) Received() (bytes, chunks int64) {
	rw.lock.Lock()
	defer rw.lock.Unlock()
	return rw.bytesReceived, rw.chunks
}

// Alive returns if the last activity is within the timeout
func (rw *RWBase) Alive() bool {
	rw.lock.Lock()
	b := !(time.Since(rw.preTime) >= rw.timeout)
	rw.lock.Unlock()
	return b
}
