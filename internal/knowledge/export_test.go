package knowledge

import "time"

// SetNow overrides the clock used for created door timestamps.
func (m *Manager) SetNow(now func() time.Time) { m.now = now }
