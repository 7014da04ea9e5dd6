package items

import (
	"sync"
	"time"
)

// SearchDebounce is the settle time before a search keystroke filters the
// catalog.
const SearchDebounce = 300 * time.Millisecond

// Debouncer coalesces rapid triggers into a single callback after the delay
// elapses with no further trigger.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer builds a debouncer; a non-positive delay falls back to
// SearchDebounce.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = SearchDebounce
	}
	return &Debouncer{delay: delay}
}

// Trigger schedules fn after the delay, cancelling any prior pending call.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels any pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
