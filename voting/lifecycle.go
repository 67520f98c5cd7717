package voting

import "time"

// Lifecycle is the program window of a voting contract:
// unconfigured, activated, voting ended, locked for history.
// Every query takes the time of the calling transaction.
type Lifecycle struct {
	duration       time.Duration
	start          time.Time
	end            time.Time
	manuallyClosed bool
	closedAt       time.Time
	locked         bool
}

func NewLifecycle(duration time.Duration) *Lifecycle {
	return &Lifecycle{duration: duration}
}

func (l *Lifecycle) Activated() bool {
	return !l.start.IsZero()
}

// IsActive reports whether votes are accepted at now.
func (l *Lifecycle) IsActive(now time.Time) bool {
	return l.Activated() &&
		!now.Before(l.start) &&
		now.Before(l.end) &&
		!l.manuallyClosed &&
		!l.locked
}

// VotingEnded reports whether the window has elapsed or was closed.
func (l *Lifecycle) VotingEnded(now time.Time) bool {
	return l.Activated() && (!now.Before(l.end) || l.manuallyClosed)
}

func (l *Lifecycle) Activate(now time.Time) error {
	if l.Activated() {
		return ErrAlreadyActivated
	}
	l.start = now
	l.end = now.Add(l.duration)
	return nil
}

func (l *Lifecycle) CloseManually(now time.Time) error {
	if l.manuallyClosed {
		return ErrAlreadyClosed
	}
	if !l.IsActive(now) {
		return ErrNotActive
	}
	l.manuallyClosed = true
	l.closedAt = now
	return nil
}

func (l *Lifecycle) Lock(now time.Time) error {
	if !l.Activated() {
		return ErrNotActivated
	}
	if !l.VotingEnded(now) {
		return ErrVotingNotEnded
	}
	l.locked = true
	return nil
}

func (l *Lifecycle) Locked() bool            { return l.locked }
func (l *Lifecycle) StartTime() time.Time    { return l.start }
func (l *Lifecycle) EndTime() time.Time      { return l.end }
func (l *Lifecycle) ManuallyClosed() bool    { return l.manuallyClosed }
func (l *Lifecycle) ClosedAt() time.Time     { return l.closedAt }
func (l *Lifecycle) Duration() time.Duration { return l.duration }
