package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotbook/libs/db"
)

const (
	TitleMeetingDeleted = "Meeting Was Deleted"
	TitleNewCustomer    = "New Customer Was Register"
)

type Notification struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	Title        string    `json:"title"`
	CustomerName string    `json:"customerName"`
	Color        int       `json:"color"`
	AddedDate    time.Time `json:"addedDate"`
}

// addNotification inserts n and prunes the business's list down to NotificationLimit, oldest first.
func addNotification(ctx context.Context, q db.Querier, businessID string, n Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if _, err := q.Exec(ctx, `
		INSERT INTO notifications (id, business_id, date, title, customer_name, color, added_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID, businessID, n.Date, n.Title, n.CustomerName, n.Color, n.AddedDate); err != nil {
		return fmt.Errorf("storage: insert notification: %w", err)
	}
	if _, err := q.Exec(ctx, `
		DELETE FROM notifications
		WHERE business_id = $1
			AND id NOT IN (
				SELECT id FROM notifications
				WHERE business_id = $1
				ORDER BY added_date DESC, id DESC
				LIMIT $2
			)
	`, businessID, NotificationLimit); err != nil {
		return fmt.Errorf("storage: prune notifications: %w", err)
	}
	return nil
}

// Notifications lists the business's notifications newest first.
func (r *Repository) Notifications(ctx context.Context, businessID string) ([]Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, date, title, customer_name, color, added_date
		FROM notifications
		WHERE business_id = $1
		ORDER BY added_date DESC, id DESC
		LIMIT $2
	`, businessID, NotificationLimit)
	if err != nil {
		return nil, fmt.Errorf("storage: list notifications: %w", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Date, &n.Title, &n.CustomerName, &n.Color, &n.AddedDate); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
