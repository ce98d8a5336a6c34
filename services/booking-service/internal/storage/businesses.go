package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/meeting"
)

// Business is the public profile shown on the booking website.
type Business struct {
	ID          string              `json:"id"`
	Name        string              `json:"businessName"`
	Address     string              `json:"address"`
	Phone       string              `json:"phoneNumber"`
	Description string              `json:"description"`
	OpenHours   []meeting.OpenHours `json:"openHours"`
}

type Service struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	DurationMinutes int     `json:"durationInMinutes"`
	Price           float64 `json:"price"`
	Color           int     `json:"color"`
}

type ContactMessage struct {
	BusinessID string
	Name       string
	Email      string
	Message    string
}

func business(ctx context.Context, q db.Querier, id string) (Business, error) {
	b := Business{ID: id}
	var hours []byte
	err := q.QueryRow(ctx, `
		SELECT name, address, phone, description, open_hours
		FROM businesses
		WHERE id = $1
	`, id).Scan(&b.Name, &b.Address, &b.Phone, &b.Description, &hours)
	if errors.Is(err, pgx.ErrNoRows) {
		return Business{}, ErrNotFound
	}
	if err != nil {
		return Business{}, fmt.Errorf("storage: business: %w", err)
	}
	b.OpenHours = []meeting.OpenHours{}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &b.OpenHours); err != nil {
			return Business{}, fmt.Errorf("storage: decode open hours: %w", err)
		}
	}
	return b, nil
}

func (r *Repository) Business(ctx context.Context, id string) (Business, error) {
	return business(ctx, r.db, id)
}

func (r *Repository) Services(ctx context.Context, businessID string) ([]Service, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, duration_minutes, price, color
		FROM business_services
		WHERE business_id = $1
		ORDER BY name
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("storage: services: %w", err)
	}
	defer rows.Close()

	out := []Service{}
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.DurationMinutes, &s.Price, &s.Color); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) AddContactMessage(ctx context.Context, msg ContactMessage) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO contact_messages (business_id, name, email, message, added_at)
		VALUES (NULLIF($1, ''), $2, $3, $4, $5)
	`, msg.BusinessID, msg.Name, msg.Email, msg.Message, r.now().UTC())
	if err != nil {
		return fmt.Errorf("storage: contact message: %w", err)
	}
	return nil
}
