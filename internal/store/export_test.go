package store

import "time"

// SetNow replaces the clock used for cache expiry.
// This file only compiles during `go test`.
func (s *Store) SetNow(now func() time.Time) {
	s.now = now
}
