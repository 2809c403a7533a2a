package app

import "time"

// Scheduler delivers at most one pending frame request. C returns nil while
// nothing is pending, so a cancelled request can never fire.
type Scheduler interface {
	Request()
	Cancel()
	C() <-chan time.Time
}

// RefreshScheduler paces frame requests at a fixed refresh interval, in the
// manner of a display refresh callback.
type RefreshScheduler struct {
	interval time.Duration
	timer    *time.Timer
	pending  bool
	next     time.Time
}

// NewRefreshScheduler returns a scheduler firing every interval.
func NewRefreshScheduler(interval time.Duration) *RefreshScheduler {
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	return &RefreshScheduler{interval: interval}
}

// Request arms the next tick, aligned to the refresh cadence. When more
// than a whole tick was missed the cadence restarts from now.
func (s *RefreshScheduler) Request() {
	now := time.Now()
	if s.next.IsZero() || s.next.Before(now.Add(-s.interval)) {
		s.next = now
	}
	s.next = s.next.Add(s.interval)
	delay := s.next.Sub(now)
	if delay < 0 {
		delay = 0
	}

	if s.timer == nil {
		s.timer = time.NewTimer(delay)
	} else {
		s.timer.Reset(delay)
	}
	s.pending = true
}

// Cancel drops the pending request, if any.
func (s *RefreshScheduler) Cancel() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.pending = false
	s.next = time.Time{}
}

func (s *RefreshScheduler) C() <-chan time.Time {
	if !s.pending {
		return nil
	}
	return s.timer.C
}
