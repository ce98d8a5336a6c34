package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/md-rashed-zaman/slotbook/libs/db"
)

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Delivery is one outbound WhatsApp attempt.
type Delivery struct {
	EventID    string
	BusinessID string
	Recipient  string
	Template   string
	Provider   string
	MessageID  string
	Status     string
	Error      string
	Payload    any
}

type Repository struct {
	db db.Querier
}

func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

func (r *Repository) InsertDelivery(ctx context.Context, d Delivery) error {
	payload, err := json.Marshal(d.Payload)
	if err != nil {
		return fmt.Errorf("storage: encode delivery payload: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO whatsapp_deliveries (event_id, business_id, recipient, template, provider, provider_message_id, status, error, payload)
		VALUES (NULLIF($1, ''), $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9)
	`, d.EventID, d.BusinessID, d.Recipient, d.Template, d.Provider, d.MessageID, d.Status, d.Error, payload)
	if err != nil {
		return fmt.Errorf("storage: insert delivery: %w", err)
	}
	return nil
}
