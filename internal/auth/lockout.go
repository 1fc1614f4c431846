package auth

import "time"

const (
	DefaultMaxFailedLogins = 5
	DefaultLockoutWindow   = 24 * time.Hour
)

// Lockout locks an account after MaxAttempts consecutive failed logins.
type Lockout struct {
	MaxAttempts int
	Window      time.Duration
}

// Deadline is the lockout end for an account locked at now.
func (l Lockout) Deadline(now time.Time) time.Time {
	return now.Add(l.Window)
}
