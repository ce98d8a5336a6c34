package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/meeting"
)

// SlotStep is the alignment of the same-day earliest slot, which also serves as its lead time.
const SlotStep = 15 * time.Minute

var ErrInvalidDuration = errors.New("availability: service duration must be positive")

type busy struct {
	start time.Time
	end   time.Time
	dur   time.Duration
}

// GenerateSlots returns the bookable start times for day as "H:MM" labels in chronological order.
//
// The window is day's date at hours.StartTime..hours.EndTime in day's location. Days before now's
// date yield no slots. When the window has already opened, the first candidate is now rounded
// down to the quarter hour plus SlotStep. A candidate that collides with a booked meeting moves the
// cursor to that meeting's end and the meeting stops blocking. meetings is never modified.
//
// hours.IsActive is not consulted; callers skip closed days themselves.
func GenerateSlots(day time.Time, serviceMinutes int, hours meeting.OpenHours, meetings []meeting.Meeting, now time.Time) ([]string, error) {
	if serviceMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	loc := day.Location()
	windowStart, err := meeting.At(day, hours.StartTime)
	if err != nil {
		return nil, fmt.Errorf("availability: start time: %w", err)
	}
	windowEnd, err := meeting.At(day, hours.EndTime)
	if err != nil {
		return nil, fmt.Errorf("availability: end time: %w", err)
	}

	pending := make([]busy, 0, len(meetings))
	for i, m := range meetings {
		start, end, err := m.Interval(loc)
		if err != nil {
			return nil, fmt.Errorf("availability: meeting %d: %w", i, err)
		}
		pending = append(pending, busy{start: start, end: end, dur: end.Sub(start)})
	}

	slots := []string{}
	now = now.In(loc)
	if meeting.DateOnly(day).Before(meeting.DateOnly(now)) {
		return slots, nil
	}

	cursor := windowStart
	if !windowStart.After(now) {
		cursor = sameDayCursor(now)
	}

	step := time.Duration(serviceMinutes) * time.Minute
	for cursor.Before(windowEnd) {
		if i := firstCollision(cursor, pending); i >= 0 {
			cursor = pending[i].end
			pending = append(pending[:i], pending[i+1:]...)
			continue
		}
		slots = append(slots, formatSlot(cursor))
		cursor = cursor.Add(step)
	}
	return slots, nil
}

// sameDayCursor keeps the hour of now and sets minutes to floor(min/15)*15+15, so 10:07 becomes
// 10:15 and 10:45 becomes 11:00.
func sameDayCursor(now time.Time) time.Time {
	step := int(SlotStep / time.Minute)
	minutes := now.Minute()/step*step + step
	y, mo, d := now.Date()
	return time.Date(y, mo, d, now.Hour(), minutes, 0, 0, now.Location())
}

func firstCollision(candidate time.Time, pending []busy) int {
	for i, b := range pending {
		if collides(candidate, b) {
			return i
		}
	}
	return -1
}

// collides sizes the candidate by the booked meeting's own duration, not the service's.
func collides(candidate time.Time, b busy) bool {
	candidateEnd := candidate.Add(b.dur)
	if !candidate.Before(b.start) && candidate.Before(b.end) {
		return true
	}
	if candidateEnd.After(b.start) && !candidateEnd.After(b.end) {
		return true
	}
	return !candidate.After(b.start) && !candidateEnd.Before(b.end)
}

func formatSlot(t time.Time) string {
	return fmt.Sprintf("%d:%02d", t.Hour(), t.Minute())
}
