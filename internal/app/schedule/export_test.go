// internal/app/schedule/export_test.go
package schedule

import "time"

// SetNow overrides the materializer's clock in tests.
func (m *Materializer) SetNow(f func() time.Time) { m.now = f }
