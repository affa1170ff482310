package session

import "time"

// SetNow overrides the clock used for timestamps.
func (s *Session) SetNow(now func() time.Time) { s.now = now }
