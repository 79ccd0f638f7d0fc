package payment

import "time"

// CancelFunc revokes a scheduled tick. Calling it after the tick already
// fired is a no-op.
type CancelFunc func()

// Scheduler schedules the reconciliation loop's delayed ticks. The
// indirection exists so tests can fire ticks deterministically instead of
// waiting out the real polling cadence.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) CancelFunc
}

type timerScheduler struct{}

// NewTimerScheduler returns the production scheduler backed by time.AfterFunc.
func NewTimerScheduler() Scheduler { return timerScheduler{} }

func (timerScheduler) AfterFunc(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
