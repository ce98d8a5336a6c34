package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/events"
	"github.com/md-rashed-zaman/slotbook/libs/meeting"
	"github.com/md-rashed-zaman/slotbook/libs/outbox"
)

type Customer struct {
	ID          string    `json:"id"`
	FullName    string    `json:"fullName"`
	PhoneNumber string    `json:"phoneNumber"`
	CreatedAt   time.Time `json:"createdAt"`
}

// createCustomerIfMissing inserts a customer keyed by phone number. created is false when the
// phone number is already registered for the business.
func createCustomerIfMissing(ctx context.Context, q db.Querier, businessID, name, phone string) (Customer, bool, error) {
	c := Customer{ID: uuid.NewString(), FullName: name, PhoneNumber: phone}
	err := q.QueryRow(ctx, `
		INSERT INTO customers (id, business_id, full_name, phone_number)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (business_id, phone_number) DO NOTHING
		RETURNING created_at
	`, c.ID, businessID, name, phone).Scan(&c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, false, nil
	}
	if err != nil {
		return Customer{}, false, fmt.Errorf("storage: create customer: %w", err)
	}
	return c, true, nil
}

// AddWebsiteMeeting books m from the public site. A phone number seen for the first time becomes
// a customer, raises a notification dated now shifted by -tzOffsetMinutes and enqueues a
// CustomerCreated event.
func (r *Repository) AddWebsiteMeeting(ctx context.Context, businessID string, m meeting.Meeting, loc *time.Location, tzOffsetMinutes int) (bool, error) {
	var created bool
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := appendMeeting(ctx, tx, businessID, m, loc); err != nil {
			return err
		}

		c, ok, err := createCustomerIfMissing(ctx, tx, businessID, m.CustomerName, m.PhoneNumber)
		if err != nil || !ok {
			return err
		}
		created = true

		now := r.now()
		if err := addNotification(ctx, tx, businessID, Notification{
			Date:         now.Add(-time.Duration(tzOffsetMinutes) * time.Minute),
			Title:        TitleNewCustomer,
			CustomerName: m.CustomerName,
			Color:        m.Color,
			AddedDate:    now,
		}); err != nil {
			return err
		}

		evt, err := outbox.NewEvent(events.AggregateCustomer, businessID, events.TopicCustomerCreated, events.CustomerCreated{
			BusinessID:   businessID,
			CustomerID:   c.ID,
			CustomerName: c.FullName,
			PhoneNumber:  c.PhoneNumber,
			CreatedAt:    c.CreatedAt,
		})
		if err != nil {
			return err
		}
		_, err = outbox.Insert(ctx, tx, evt)
		return err
	})
	return created, err
}
