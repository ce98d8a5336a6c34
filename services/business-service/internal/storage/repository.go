package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/meeting"
)

var ErrNotFound = errors.New("storage: not found")

type Repository struct {
	db db.Querier
}

func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// Profile is the row booking-service reads for slot hours and the public website.
type Profile struct {
	BusinessID  string              `json:"id"`
	Name        string              `json:"businessName"`
	Address     string              `json:"address"`
	Phone       string              `json:"phoneNumber"`
	Description string              `json:"description"`
	OpenHours   []meeting.OpenHours `json:"openHours"`
}

func (r *Repository) Profile(ctx context.Context, businessID string) (Profile, error) {
	p := Profile{BusinessID: businessID}
	var hours []byte
	err := r.db.QueryRow(ctx, `
		SELECT name, address, phone, description, open_hours
		FROM businesses
		WHERE id = $1
	`, businessID).Scan(&p.Name, &p.Address, &p.Phone, &p.Description, &hours)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("storage: profile: %w", err)
	}
	p.OpenHours = []meeting.OpenHours{}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &p.OpenHours); err != nil {
			return Profile{}, fmt.Errorf("storage: decode open_hours: %w", err)
		}
	}
	return p, nil
}

func (r *Repository) UpsertProfile(ctx context.Context, p Profile) error {
	hours, err := json.Marshal(p.OpenHours)
	if err != nil {
		return fmt.Errorf("storage: encode open_hours: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO businesses (id, name, address, phone, description, open_hours)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			description = EXCLUDED.description,
			open_hours = EXCLUDED.open_hours
	`, p.BusinessID, p.Name, p.Address, p.Phone, p.Description, hours)
	if err != nil {
		return fmt.Errorf("storage: upsert profile: %w", err)
	}
	return nil
}

type Service struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	DurationMinutes int     `json:"durationInMinutes"`
	Price           float64 `json:"price"`
	Color           int     `json:"color"`
}

func (r *Repository) CreateService(ctx context.Context, businessID string, s Service) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Exec(ctx, `
		INSERT INTO business_services (id, business_id, name, description, duration_minutes, price, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, businessID, s.Name, s.Description, s.DurationMinutes, s.Price, s.Color)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("storage: create service: %w", err)
	}
	return id, nil
}

func (r *Repository) ListServices(ctx context.Context, businessID string) ([]Service, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, duration_minutes, price, color
		FROM business_services
		WHERE business_id = $1
		ORDER BY name
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("storage: list services: %w", err)
	}
	defer rows.Close()

	out := []Service{}
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.DurationMinutes, &s.Price, &s.Color); err != nil {
			return nil, fmt.Errorf("storage: scan service: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteService(ctx context.Context, businessID, serviceID string) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM business_services
		WHERE business_id = $1 AND id = $2
	`, businessID, serviceID)
	if err != nil {
		return fmt.Errorf("storage: delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
