// Package stats rolls a month of schedule days into a business's monthly statistics.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/meeting"
)

// HistoryLimit bounds MonthStats.Last5Month.
const HistoryLimit = 5

type DayStats struct {
	Day        int     `json:"day"`
	DayIncome  float64 `json:"dayIncome"`
	MeetingNum int     `json:"meetingNum"`
}

type MonthSummary struct {
	Month  time.Time `json:"month"`
	Income float64   `json:"income"`
}

type MonthStats struct {
	Date         time.Time  `json:"date"`
	MeetingNum   int        `json:"meetingNum"`
	Income       float64    `json:"income"`
	DaysStats    []DayStats `json:"daysStats"`
	Last5Month   History    `json:"last5month"`
	MTM          float64    `json:"MTM"`
	SiteVisit    int        `json:"siteVisit"`
	NewCustomers int        `json:"newCustomers"`
}

// History is most-recent-first and never longer than HistoryLimit.
type History []MonthSummary

// Prepend returns a new history with s in front, dropping the oldest entries past the limit.
func (h History) Prepend(s MonthSummary) History {
	n := len(h) + 1
	if n > HistoryLimit {
		n = HistoryLimit
	}
	out := make(History, 0, n)
	out = append(out, s)
	for _, e := range h {
		if len(out) == n {
			break
		}
		out = append(out, e)
	}
	return out
}

// MTM is the percentage change from h[1] to h[0]. It is 0 with fewer than two entries, a zero
// divisor, or any non-finite result.
func (h History) MTM() float64 {
	if len(h) < 2 {
		return 0
	}
	latest, prior := h[0].Income, h[1].Income
	if prior == 0 || !finite(latest) || !finite(prior) {
		return 0
	}
	v := (latest - prior) / prior * 100
	if !finite(v) {
		return 0
	}
	return v
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// MonthStart returns the first day of t's month at midnight in t's location.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// MonthEnd returns the last calendar day of t's month at midnight.
func MonthEnd(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, -1)
}

func PreviousMonth(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, -1, 0)
}

// AggregateMonth computes month's statistics from its schedule days.
//
// Block-off meetings count toward neither income nor meetings, and a day without real meetings
// adds no bucket. Records with a zero date are ignored. previous, when present, feeds the rolling
// history. SiteVisit and NewCustomers are left at zero; see Merge.
func AggregateMonth(month time.Time, records []meeting.ScheduleDay, previous *MonthStats) MonthStats {
	buckets := map[int]*DayStats{}
	for _, rec := range records {
		if rec.Date.IsZero() {
			continue
		}
		var income float64
		var count int
		for _, m := range rec.Meetings {
			if m.IsBlockOff() {
				continue
			}
			income += m.Price
			count++
		}
		if count == 0 {
			continue
		}

		day := int(rec.Date.Weekday()) + 1
		b := buckets[day]
		if b == nil {
			b = &DayStats{Day: day}
			buckets[day] = b
		}
		b.DayIncome += income
		b.MeetingNum += count
	}

	out := MonthStats{
		Date:       MonthStart(month),
		DaysStats:  make([]DayStats, 0, len(buckets)),
		Last5Month: History{},
	}
	for _, b := range buckets {
		out.DaysStats = append(out.DaysStats, *b)
	}
	sort.Slice(out.DaysStats, func(i, j int) bool { return out.DaysStats[i].Day < out.DaysStats[j].Day })
	for _, d := range out.DaysStats {
		out.MeetingNum += d.MeetingNum
		out.Income += d.DayIncome
	}

	if previous != nil {
		out.Last5Month = previous.Last5Month.Prepend(MonthSummary{
			Month:  MonthStart(previous.Date),
			Income: previous.Income,
		})
	}
	out.MTM = out.Last5Month.MTM()
	return out
}

// Merge returns computed with the externally maintained counters of existing carried over.
func Merge(existing *MonthStats, computed MonthStats) MonthStats {
	if existing == nil {
		return computed
	}
	computed.SiteVisit = existing.SiteVisit
	computed.NewCustomers = existing.NewCustomers
	return computed
}
