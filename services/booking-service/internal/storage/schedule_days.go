package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/events"
	"github.com/md-rashed-zaman/slotbook/libs/meeting"
	"github.com/md-rashed-zaman/slotbook/libs/outbox"
)

type lockedDay struct {
	isDayOff bool
	meetings []meeting.Meeting
}

// DayMeetings returns the meetings booked on day's date. A missing day has none.
func (r *Repository) DayMeetings(ctx context.Context, businessID string, day time.Time) ([]meeting.Meeting, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `
		SELECT meetings
		FROM schedule_days
		WHERE business_id = $1 AND day = $2
	`, businessID, dayKey(day)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return []meeting.Meeting{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: day meetings: %w", err)
	}
	return decodeMeetings(raw)
}

// lockDay creates the day row when missing and locks it for the rest of tx.
func lockDay(ctx context.Context, tx db.Querier, businessID string, day time.Time) (lockedDay, error) {
	key := dayKey(day)
	if _, err := tx.Exec(ctx, `
		INSERT INTO schedule_days (business_id, day, meetings)
		VALUES ($1, $2, '[]'::jsonb)
		ON CONFLICT (business_id, day) DO NOTHING
	`, businessID, key); err != nil {
		return lockedDay{}, fmt.Errorf("storage: ensure day: %w", err)
	}

	var ld lockedDay
	var raw []byte
	if err := tx.QueryRow(ctx, `
		SELECT is_day_off, meetings
		FROM schedule_days
		WHERE business_id = $1 AND day = $2
		FOR UPDATE
	`, businessID, key).Scan(&ld.isDayOff, &raw); err != nil {
		return lockedDay{}, fmt.Errorf("storage: lock day: %w", err)
	}
	ms, err := decodeMeetings(raw)
	if err != nil {
		return lockedDay{}, err
	}
	ld.meetings = ms
	return ld, nil
}

func saveDay(ctx context.Context, tx db.Querier, businessID string, day time.Time, ld lockedDay) error {
	raw, err := json.Marshal(ld.meetings)
	if err != nil {
		return fmt.Errorf("storage: encode meetings: %w", err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE schedule_days
		SET meetings = $3, is_day_off = $4, updated_at = now()
		WHERE business_id = $1 AND day = $2
	`, businessID, dayKey(day), raw, ld.isDayOff)
	if err != nil {
		return fmt.Errorf("storage: save day: %w", err)
	}
	return nil
}

func decodeMeetings(raw []byte) ([]meeting.Meeting, error) {
	ms := []meeting.Meeting{}
	if len(raw) == 0 {
		return ms, nil
	}
	if err := json.Unmarshal(raw, &ms); err != nil {
		return nil, fmt.Errorf("storage: decode meetings: %w", err)
	}
	return ms, nil
}

func appendMeeting(ctx context.Context, tx db.Querier, businessID string, m meeting.Meeting, loc *time.Location) error {
	start, err := meeting.ParseStart(m.Start, loc)
	if err != nil {
		return err
	}
	ld, err := lockDay(ctx, tx, businessID, start)
	if err != nil {
		return err
	}
	ld.meetings = append(ld.meetings, m)
	return saveDay(ctx, tx, businessID, start, ld)
}

// indexOfStart finds the meeting whose start is the same instant as start.
func indexOfStart(ms []meeting.Meeting, start time.Time, loc *time.Location) int {
	for i, m := range ms {
		t, err := meeting.ParseStart(m.Start, loc)
		if err == nil && t.Equal(start) {
			return i
		}
	}
	return -1
}

// AddMeeting appends m to its day.
func (r *Repository) AddMeeting(ctx context.Context, businessID string, m meeting.Meeting, loc *time.Location) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return appendMeeting(ctx, tx, businessID, m, loc)
	})
}

// DeleteMeeting removes the meeting starting at start and records a notification.
func (r *Repository) DeleteMeeting(ctx context.Context, businessID string, start time.Time) (meeting.Meeting, error) {
	var removed meeting.Meeting
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		ld, err := lockDay(ctx, tx, businessID, start)
		if err != nil {
			return err
		}
		i := indexOfStart(ld.meetings, start, start.Location())
		if i < 0 {
			return ErrMeetingNotFound
		}
		removed = ld.meetings[i]
		ld.meetings = append(ld.meetings[:i], ld.meetings[i+1:]...)
		if err := saveDay(ctx, tx, businessID, start, ld); err != nil {
			return err
		}
		return addNotification(ctx, tx, businessID, Notification{
			Date:         meeting.DateOnly(start),
			Title:        TitleMeetingDeleted,
			CustomerName: removed.CustomerName,
			Color:        removed.Color,
			AddedDate:    r.now(),
		})
	})
	return removed, err
}

// ConfirmMeeting marks the meeting starting at start as confirmed and enqueues
// a MeetingConfirmed event carrying the business contact details.
func (r *Repository) ConfirmMeeting(ctx context.Context, businessID string, start time.Time) (meeting.Meeting, error) {
	var confirmed meeting.Meeting
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		ld, err := lockDay(ctx, tx, businessID, start)
		if err != nil {
			return err
		}
		i := indexOfStart(ld.meetings, start, start.Location())
		if i < 0 {
			return ErrMeetingNotFound
		}
		ld.meetings[i].Confirmed = true
		confirmed = ld.meetings[i]
		if err := saveDay(ctx, tx, businessID, start, ld); err != nil {
			return err
		}

		biz, err := business(ctx, tx, businessID)
		if err != nil {
			return err
		}
		evt, err := outbox.NewEvent(events.AggregateMeeting, businessID, events.TopicMeetingConfirmed, events.MeetingConfirmed{
			BusinessID:      businessID,
			BusinessName:    biz.Name,
			BusinessAddress: biz.Address,
			CustomerName:    confirmed.CustomerName,
			PhoneNumber:     confirmed.PhoneNumber,
			ServiceName:     confirmed.ServiceName,
			Start:           start,
			ConfirmedAt:     r.now().UTC(),
		})
		if err != nil {
			return err
		}
		_, err = outbox.Insert(ctx, tx, evt)
		return err
	})
	return confirmed, err
}

// AddVacation marks every date in [from, to] as a day off carrying a block-off meeting.
// Days that already hold one are left as they are. It returns the number of days written.
func (r *Repository) AddVacation(ctx context.Context, businessID string, from, to time.Time) (int, error) {
	from, to = meeting.DateOnly(from), meeting.DateOnly(to)
	var days int
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			ld, err := lockDay(ctx, tx, businessID, d)
			if err != nil {
				return err
			}
			if hasBlockOff(ld.meetings) && ld.isDayOff {
				continue
			}
			if !hasBlockOff(ld.meetings) {
				ld.meetings = append(ld.meetings, meeting.VacationMeeting(d))
			}
			ld.isDayOff = true
			if err := saveDay(ctx, tx, businessID, d, ld); err != nil {
				return err
			}
			days++
		}
		return nil
	})
	return days, err
}

func hasBlockOff(ms []meeting.Meeting) bool {
	for _, m := range ms {
		if m.DurationInMinutes == meeting.BlockOffDuration {
			return true
		}
	}
	return false
}
