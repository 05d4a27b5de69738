package preview

import (
	"sync"
	"time"
)

// Debouncer delays delivery of a payload. The first Trigger schedules a
// fire after the delay; later triggers inside that window only replace the
// payload, so the fire always delivers the latest one.
type Debouncer[T any] struct {
	delay time.Duration
	fire  func(T)

	mu      sync.Mutex
	timer   *time.Timer
	pending T
	waiting bool
	stopped bool
}

func NewDebouncer[T any](delay time.Duration, fire func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fire: fire}
}

// Trigger records v and schedules a fire unless one is already pending.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = v
	if d.waiting {
		return
	}
	d.waiting = true
	d.timer = time.AfterFunc(d.delay, d.deliver)
}

// Pending reports whether a fire is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waiting
}

// Stop cancels a pending fire and ignores later triggers.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.waiting = false
	if d.timer != nil {
		d.timer.Stop()
	}
	var zero T
	d.pending = zero
}

func (d *Debouncer[T]) deliver() {
	d.mu.Lock()
	if !d.waiting || d.stopped {
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.waiting = false
	var zero T
	d.pending = zero
	d.mu.Unlock()

	d.fire(v)
}
