package worker

import (
	"time"

	"github.com/adhocore/gronx"
)

// Clock abstracts time so sleeps and wake times can be driven by tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// NextMidnight returns the start of the calendar day after now, in now's
// location.
func NextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

// NextWake returns when a suspended worker should resume. An empty schedule
// means the next local midnight; otherwise the next tick of the cron
// expression strictly after now.
func NextWake(now time.Time, schedule string) (time.Time, error) {
	if schedule == "" {
		return NextMidnight(now), nil
	}
	return gronx.NextTickAfter(schedule, now, false)
}
