package ba

import "time"

// TimerHandle is a cancelable scheduled callback. Cancel must be safe to call
// after the timer has already fired.
type TimerHandle interface {
	Cancel()
}

// TimerService schedules one-shot callbacks. The engine treats it as an
// external capability so tests can drive expirations by hand.
type TimerService interface {
	Schedule(d time.Duration, fn func()) TimerHandle
}

type systemTimers struct{}

// SystemTimers returns a TimerService backed by the runtime timer wheel.
func SystemTimers() TimerService {
	return systemTimers{}
}

func (systemTimers) Schedule(d time.Duration, fn func()) TimerHandle {
	return systemTimer{time.AfterFunc(d, fn)}
}

type systemTimer struct {
	t *time.Timer
}

func (s systemTimer) Cancel() {
	s.t.Stop()
}
