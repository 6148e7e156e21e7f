package alerts

import "time"

// SetClock overrides the timestamp source.
func SetClock(w *WebhookNotifier, now func() time.Time) {
	w.now = now
}
