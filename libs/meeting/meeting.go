// Package meeting holds the booking records shared by the slot and statistics engines.
package meeting

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BlockOffDuration marks a whole-day vacation or time-out record.
const BlockOffDuration = 9999

const (
	VacationServiceName = "Vacation"
	TimeOutServiceName  = "TimeOut"
)

var ErrInvalidStart = errors.New("meeting: invalid start")

type Meeting struct {
	Start              string  `json:"start"`
	DurationInMinutes  int     `json:"durationInMinutes"`
	Price              float64 `json:"price"`
	CustomerName       string  `json:"customerName"`
	PhoneNumber        string  `json:"phoneNumber"`
	ServiceName        string  `json:"serviceName"`
	ServiceDescription string  `json:"serviceDescription"`
	Color              int     `json:"color"`
	Confirmed          bool    `json:"meetingConfirm"`
}

// IsBlockOff reports whether m occupies calendar time without being a real booking.
func (m Meeting) IsBlockOff() bool {
	if m.DurationInMinutes == BlockOffDuration {
		return true
	}
	switch normalizeName(m.ServiceName) {
	case "vacation", "timeout":
		return true
	}
	return false
}

func normalizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(s))
}

// Interval returns the meeting's [start, end) in loc.
func (m Meeting) Interval(loc *time.Location) (time.Time, time.Time, error) {
	start, err := ParseStart(m.Start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if m.DurationInMinutes <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("meeting: non-positive duration %d", m.DurationInMinutes)
	}
	return start, start.Add(time.Duration(m.DurationInMinutes) * time.Minute), nil
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseStart reads a start timestamp as wall-clock time in loc. Values carrying a zone
// designator are converted to loc; values without one are taken as loc wall-clock.
func ParseStart(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidStart)
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidStart, s)
}

// FormatStart renders t in the persisted start format.
func FormatStart(t time.Time) string {
	return t.Format(time.RFC3339)
}

// OpenHours is one weekday's business hours.
type OpenHours struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	DayOfWeek string `json:"dayOfWeek"`
	IsActive  bool   `json:"isActive"`
}

// ParseClock parses "HH:MM" into hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("meeting: clock %q: want HH:MM", s)
	}
	hour, err = strconv.Atoi(hs)
	if err != nil || hour < 0 || hour > 24 {
		return 0, 0, fmt.Errorf("meeting: clock %q: bad hour", s)
	}
	minute, err = strconv.Atoi(ms)
	if err != nil || len(ms) != 2 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, 0, fmt.Errorf("meeting: clock %q: bad minute", s)
	}
	return hour, minute, nil
}

// At returns day's date at clock on the wall in day's location.
func At(day time.Time, clock string) (time.Time, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, m, 0, 0, day.Location()), nil
}

// ScheduleDay is one calendar day's ordered meeting list for a business.
type ScheduleDay struct {
	Date      time.Time `json:"date"`
	UpdatedAt time.Time `json:"updatedAt"`
	IsDayOff  bool      `json:"isDayOff"`
	Meetings  []Meeting `json:"meetings"`
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// VacationMeeting is the synthetic record that blocks a whole day.
func VacationMeeting(day time.Time) Meeting {
	return Meeting{
		Start:             FormatStart(DateOnly(day)),
		DurationInMinutes: BlockOffDuration,
		ServiceName:       VacationServiceName,
	}
}
