package watcher

import "time"

// Debouncer is a cancelable one-shot timer owned by a single goroutine.
// Every Trigger replaces the pending timer, so a superseded deadline can
// never be observed on C.
type Debouncer struct {
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer creates an idle Debouncer.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger (re)starts the delay.
func (d *Debouncer) Trigger() {
	d.Stop()
	d.timer = time.NewTimer(d.delay)
}

// C fires once the delay has elapsed since the last Trigger. It returns a nil
// channel while idle, which blocks forever in a select.
func (d *Debouncer) C() <-chan time.Time {
	if d.timer == nil {
		return nil
	}
	return d.timer.C
}

// Stop cancels any pending deadline. It is also used to acknowledge a fire.
func (d *Debouncer) Stop() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a deadline is armed.
func (d *Debouncer) Pending() bool {
	return d.timer != nil
}
