package availability

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/meeting"
)

var (
	testDay  = time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	earlyNow = time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)
	workday  = meeting.OpenHours{StartTime: "09:00", EndTime: "17:00", DayOfWeek: "Wednesday", IsActive: true}
)

func at(hour, minute int) string {
	return meeting.FormatStart(testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute))
}

func TestGenerateSlots_NoMeetings(t *testing.T) {
	slots, err := GenerateSlots(testDay, 30, workday, nil, earlyNow)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d: %v", len(slots), slots)
	}
	if slots[0] != "9:00" || slots[1] != "9:30" || slots[15] != "16:30" {
		t.Fatalf("unexpected slots %v", slots)
	}
}

func TestGenerateSlots_ArithmeticSequence(t *testing.T) {
	hours := meeting.OpenHours{StartTime: "08:05", EndTime: "10:00", IsActive: true}
	slots, err := GenerateSlots(testDay, 25, hours, nil, earlyNow)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	want := []string{"8:05", "8:30", "8:55", "9:20", "9:45"}
	if !reflect.DeepEqual(slots, want) {
		t.Fatalf("got %v, want %v", slots, want)
	}
}

func TestGenerateSlots_MeetingAtOpening(t *testing.T) {
	meetings := []meeting.Meeting{{Start: at(9, 0), DurationInMinutes: 60}}
	slots, err := GenerateSlots(testDay, 30, workday, meetings, earlyNow)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	if len(slots) == 0 || slots[0] != "10:00" {
		t.Fatalf("expected first slot 10:00, got %v", slots)
	}
	if len(slots) != 14 {
		t.Fatalf("expected 14 slots, got %d", len(slots))
	}
}

func TestGenerateSlots_SkipsBookedMeetings(t *testing.T) {
	meetings := []meeting.Meeting{
		{Start: at(10, 0), DurationInMinutes: 60},
		{Start: at(13, 15), DurationInMinutes: 45},
	}
	want := []string{"9:00", "11:00", "11:30", "12:00", "12:30", "14:00", "14:30", "15:00", "15:30", "16:00", "16:30"}

	slots, err := GenerateSlots(testDay, 30, workday, meetings, earlyNow)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	if !reflect.DeepEqual(slots, want) {
		t.Fatalf("got %v, want %v", slots, want)
	}

	reversed := []meeting.Meeting{meetings[1], meetings[0]}
	slots, err = GenerateSlots(testDay, 30, workday, reversed, earlyNow)
	if err != nil {
		t.Fatalf("GenerateSlots reversed: %v", err)
	}
	if !reflect.DeepEqual(slots, want) {
		t.Fatalf("input order changed result: got %v", slots)
	}
}

func TestGenerateSlots_NoOverlapWithBookings(t *testing.T) {
	meetings := []meeting.Meeting{
		{Start: at(9, 40), DurationInMinutes: 30},
		{Start: at(11, 0), DurationInMinutes: 90},
		{Start: at(14, 10), DurationInMinutes: 45},
		{Start: at(16, 0), DurationInMinutes: 60},
	}
	const service = 30
	slots, err := GenerateSlots(testDay, service, workday, meetings, earlyNow)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	for _, s := range slots {
		h, m, err := meeting.ParseClock(s)
		if err != nil {
			t.Fatalf("bad slot label %q: %v", s, err)
		}
		start := testDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
		end := start.Add(service * time.Minute)
		for _, mt := range meetings {
			ms, me, _ := mt.Interval(time.UTC)
			if start.Before(me) && ms.Before(end) {
				t.Fatalf("slot %s overlaps meeting at %s", s, mt.Start)
			}
		}
	}
}

func TestCollisionUsesBookedMeetingDuration(t *testing.T) {
	hours := meeting.OpenHours{StartTime: "09:00", EndTime: "12:00", IsActive: true}
	meetings := []meeting.Meeting{{Start: at(10, 0), DurationInMinutes: 15}}

	slots, err := GenerateSlots(testDay, 60, hours, meetings, earlyNow)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	want := []string{"9:00", "10:15", "11:15"}
	if !reflect.DeepEqual(slots, want) {
		t.Fatalf("got %v, want %v", slots, want)
	}
}

func TestGenerateSlots_BlockOffSuppressesDay(t *testing.T) {
	cases := map[string][]meeting.Meeting{
		"at opening":   {{Start: at(9, 0), DurationInMinutes: meeting.BlockOffDuration}},
		"after open":   {{Start: at(12, 0), DurationInMinutes: meeting.BlockOffDuration}},
		"vacation day": {meeting.VacationMeeting(testDay)},
	}
	for name, meetings := range cases {
		slots, err := GenerateSlots(testDay, 30, workday, meetings, earlyNow)
		if err != nil {
			t.Fatalf("%s: GenerateSlots: %v", name, err)
		}
		if len(slots) != 0 {
			t.Fatalf("%s: expected no slots, got %v", name, slots)
		}
	}
}

func TestGenerateSlots_PastDay(t *testing.T) {
	now := testDay.AddDate(0, 0, 1).Add(8 * time.Hour)
	slots, err := GenerateSlots(testDay, 30, workday, nil, now)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", slots)
	}
}

func TestGenerateSlots_SameDayCutoff(t *testing.T) {
	hours := meeting.OpenHours{StartTime: "09:00", EndTime: "12:00", IsActive: true}
	cases := []struct {
		now   time.Time
		first string
		count int
	}{
		{testDay.Add(10*time.Hour + 7*time.Minute), "10:15", 4},
		{testDay.Add(10*time.Hour + 50*time.Minute), "11:00", 2},
		{testDay.Add(9 * time.Hour), "9:15", 6},
		{testDay.Add(8 * time.Hour), "9:00", 6},
	}
	for _, tc := range cases {
		slots, err := GenerateSlots(testDay, 30, hours, nil, tc.now)
		if err != nil {
			t.Fatalf("now=%s: %v", tc.now.Format("15:04"), err)
		}
		if len(slots) != tc.count || slots[0] != tc.first {
			t.Fatalf("now=%s: expected %d slots from %s, got %v", tc.now.Format("15:04"), tc.count, tc.first, slots)
		}
	}
}

func TestGenerateSlots_SameDayAfterClosing(t *testing.T) {
	now := testDay.Add(16*time.Hour + 50*time.Minute)
	slots, err := GenerateSlots(testDay, 30, workday, nil, now)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots after closing, got %v", slots)
	}
}

func TestGenerateSlots_DoesNotMutateInput(t *testing.T) {
	meetings := []meeting.Meeting{
		{Start: at(9, 0), DurationInMinutes: 60, CustomerName: "Dana"},
		{Start: at(12, 0), DurationInMinutes: 30, CustomerName: "Noa"},
	}
	before := append([]meeting.Meeting(nil), meetings...)

	first, err := GenerateSlots(testDay, 30, workday, meetings, earlyNow)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	if !reflect.DeepEqual(meetings, before) {
		t.Fatalf("input slice was modified: %v", meetings)
	}
	second, _ := GenerateSlots(testDay, 30, workday, meetings, earlyNow)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated call differs: %v vs %v", first, second)
	}
}

func TestGenerateSlots_InvertedWindow(t *testing.T) {
	hours := meeting.OpenHours{StartTime: "17:00", EndTime: "09:00", IsActive: true}
	slots, err := GenerateSlots(testDay, 30, hours, nil, earlyNow)
	if err != nil {
		t.Fatalf("inverted window should not error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %v", slots)
	}
}

func TestGenerateSlots_InputErrors(t *testing.T) {
	if _, err := GenerateSlots(testDay, 0, workday, nil, earlyNow); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	bad := meeting.OpenHours{StartTime: "9am", EndTime: "17:00"}
	if _, err := GenerateSlots(testDay, 30, bad, nil, earlyNow); err == nil {
		t.Fatal("expected error for malformed start time")
	}
	meetings := []meeting.Meeting{{Start: "not-a-time", DurationInMinutes: 30}}
	if _, err := GenerateSlots(testDay, 30, workday, meetings, earlyNow); !errors.Is(err, meeting.ErrInvalidStart) {
		t.Fatalf("expected ErrInvalidStart, got %v", err)
	}
}

func TestSameDayCursorRollsHour(t *testing.T) {
	got := sameDayCursor(time.Date(2026, 1, 28, 10, 47, 31, 0, time.UTC))
	if want := time.Date(2026, 1, 28, 11, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("sameDayCursor = %v, want %v", got, want)
	}
}
