package api

import (
	"net/http"
	"time"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/matcher"
)

// evaluateAt resolves the minute a manual invocation evaluates: the current
// minute, or ?at=HH:MM on today's date in loc.
func evaluateAt(r *http.Request, now time.Time, loc *time.Location) (time.Time, error) {
	now = now.In(loc)
	at := r.URL.Query().Get("at")
	if at == "" {
		return now.Truncate(time.Minute), nil
	}
	return matcher.MinuteOn(now, at)
}
