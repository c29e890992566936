package session

import (
	"sync"
	"time"
)

// Watchdog ends a session when its inbound stream goes quiet: the meeting bot
// stopped sending events but no explicit stop ever arrived. Armed when the
// ingest connection drops, disarmed while events flow.
type Watchdog struct {
	timeout  time.Duration
	mu       sync.Mutex
	timers   map[string]*time.Timer
	onExpire func(sessionID string)
}

// NewWatchdog creates a watchdog firing onExpire after timeout of silence.
func NewWatchdog(timeout time.Duration, onExpire func(sessionID string)) *Watchdog {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Watchdog{
		timeout:  timeout,
		timers:   make(map[string]*time.Timer),
		onExpire: onExpire,
	}
}

// Arm starts (or restarts) the silence timer for a session.
func (w *Watchdog) Arm(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[sessionID]; ok {
		timer.Stop()
	}

	w.timers[sessionID] = time.AfterFunc(w.timeout, func() {
		w.mu.Lock()
		delete(w.timers, sessionID)
		callback := w.onExpire
		w.mu.Unlock()

		if callback != nil {
			callback(sessionID)
		}
	})
}

// Disarm cancels the session's silence timer, if any.
func (w *Watchdog) Disarm(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[sessionID]; ok {
		timer.Stop()
		delete(w.timers, sessionID)
	}
}
