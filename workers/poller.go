package workers

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ringboard/ringboard/db"
	"github.com/ringboard/ringboard/services"
)

// CalendarPoller repeatedly fetches a calendar range and hands the result
// to a callback. The loop is cooperative: each cycle schedules the next one
// only after it finishes, so slow fetches stretch the effective interval
// rather than piling up.
type CalendarPoller struct {
	Calendar *services.CalendarService
}

func NewCalendarPoller(calendar *services.CalendarService) *CalendarPoller {
	return &CalendarPoller{Calendar: calendar}
}

// Start launches the poll loop and returns a cancel function. Cancelling
// flips the active flag: a cycle already in flight still completes and
// delivers its result once more, after which no further fetch is issued.
func (p *CalendarPoller) Start(start, end time.Time, interval time.Duration, callback func([]db.CalendarEvent)) func() {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	var active atomic.Bool
	active.Store(true)

	var poll func()
	poll = func() {
		if !active.Load() {
			return
		}
		events := p.Calendar.FetchEvents(context.Background(), start, end)
		callback(events)

		if active.Load() {
			time.AfterFunc(interval, poll)
		}
	}

	// Initial fetch
	go poll()

	return func() {
		active.Store(false)
	}
}
