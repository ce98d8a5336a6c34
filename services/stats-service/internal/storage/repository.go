package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/meeting"
	"github.com/md-rashed-zaman/slotbook/services/stats-service/internal/stats"
)

type Repository struct {
	db     db.TxBeginner
	logger *slog.Logger
}

func NewRepository(q db.TxBeginner, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Repository{db: q, logger: logger}
}

// dateKey maps t's wall-clock date to the value stored in DATE columns.
func dateKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthDays returns the schedule days of businessID dated within [from, to], ordered by date.
// A day whose meetings column is not a meeting array is returned with no meetings.
func (r *Repository) MonthDays(ctx context.Context, businessID string, from, to time.Time) ([]meeting.ScheduleDay, error) {
	rows, err := r.db.Query(ctx, `
		SELECT day, updated_at, is_day_off, meetings
		FROM schedule_days
		WHERE business_id = $1 AND day BETWEEN $2 AND $3
		ORDER BY day
	`, businessID, dateKey(from), dateKey(to))
	if err != nil {
		return nil, fmt.Errorf("storage: month days: %w", err)
	}
	defer rows.Close()

	var out []meeting.ScheduleDay
	for rows.Next() {
		var (
			d   meeting.ScheduleDay
			raw []byte
		)
		if err := rows.Scan(&d.Date, &d.UpdatedAt, &d.IsDayOff, &raw); err != nil {
			return nil, fmt.Errorf("storage: scan day: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &d.Meetings); err != nil {
				r.logger.Warn("malformed schedule day counted as empty",
					"business_id", businessID, "day", d.Date.Format(time.DateOnly), "err", err)
				d.Meetings = nil
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ChangedSince reports whether any day in [from, to] was written after since.
func (r *Repository) ChangedSince(ctx context.Context, businessID string, from, to, since time.Time) (bool, error) {
	var changed bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM schedule_days
			WHERE business_id = $1 AND day BETWEEN $2 AND $3 AND updated_at > $4
		)
	`, businessID, dateKey(from), dateKey(to), since).Scan(&changed)
	if err != nil {
		return false, fmt.Errorf("storage: changed since: %w", err)
	}
	return changed, nil
}

// MonthStats returns the stored record for month, or nil when there is none.
func (r *Repository) MonthStats(ctx context.Context, businessID string, month time.Time) (*stats.MonthStats, error) {
	var (
		s             stats.MonthStats
		days, history []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT month, meeting_num, income, days_stats, last5month, mtm, site_visit, new_customers
		FROM month_stats
		WHERE business_id = $1 AND month = $2
	`, businessID, dateKey(stats.MonthStart(month))).Scan(
		&s.Date, &s.MeetingNum, &s.Income, &days, &history, &s.MTM, &s.SiteVisit, &s.NewCustomers,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: month stats: %w", err)
	}
	s.DaysStats = []stats.DayStats{}
	if len(days) > 0 {
		if err := json.Unmarshal(days, &s.DaysStats); err != nil {
			return nil, fmt.Errorf("storage: decode days_stats: %w", err)
		}
	}
	s.Last5Month = stats.History{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &s.Last5Month); err != nil {
			return nil, fmt.Errorf("storage: decode last5month: %w", err)
		}
	}
	return &s, nil
}

// SaveMonthStats writes the computed part of s. The visit and customer counters are only set on
// insert; an existing row keeps its own, and the stored values are returned in s.
func (r *Repository) SaveMonthStats(ctx context.Context, businessID string, s stats.MonthStats) (stats.MonthStats, error) {
	days, err := json.Marshal(s.DaysStats)
	if err != nil {
		return s, fmt.Errorf("storage: encode days_stats: %w", err)
	}
	history, err := json.Marshal(s.Last5Month)
	if err != nil {
		return s, fmt.Errorf("storage: encode last5month: %w", err)
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO month_stats (business_id, month, meeting_num, income, days_stats, last5month, mtm, site_visit, new_customers, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (business_id, month) DO UPDATE SET
			meeting_num = EXCLUDED.meeting_num,
			income = EXCLUDED.income,
			days_stats = EXCLUDED.days_stats,
			last5month = EXCLUDED.last5month,
			mtm = EXCLUDED.mtm,
			updated_at = now()
		RETURNING site_visit, new_customers
	`, businessID, dateKey(stats.MonthStart(s.Date)), s.MeetingNum, s.Income, days, history, s.MTM, s.SiteVisit, s.NewCustomers,
	).Scan(&s.SiteVisit, &s.NewCustomers)
	if err != nil {
		return s, fmt.Errorf("storage: save month stats: %w", err)
	}
	return s, nil
}

// IncrementSiteVisit adds one visit to month's record, creating it when missing.
func (r *Repository) IncrementSiteVisit(ctx context.Context, businessID string, month time.Time) error {
	return r.increment(ctx, "site_visit", businessID, month)
}

// IncrementNewCustomers adds one new customer to month's record, creating it when missing.
func (r *Repository) IncrementNewCustomers(ctx context.Context, businessID string, month time.Time) error {
	return r.increment(ctx, "new_customers", businessID, month)
}

func (r *Repository) increment(ctx context.Context, column, businessID string, month time.Time) error {
	// column is one of two constants above.
	_, err := r.db.Exec(ctx, `
		INSERT INTO month_stats (business_id, month, `+column+`, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (business_id, month) DO UPDATE SET
			`+column+` = month_stats.`+column+` + 1,
			updated_at = now()
	`, businessID, dateKey(stats.MonthStart(month)))
	if err != nil {
		return fmt.Errorf("storage: increment %s: %w", column, err)
	}
	return nil
}
