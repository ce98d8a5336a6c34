// Package notifier turns confirmed meetings into WhatsApp template messages.
package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/events"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	"github.com/md-rashed-zaman/slotbook/services/notification-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/notification-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/notification-service/internal/whatsapp"
	"github.com/segmentio/kafka-go"
)

type DeliveryStore interface {
	InsertDelivery(ctx context.Context, d storage.Delivery) error
}

// Notifier sends one message per event and never retries.
type Notifier struct {
	sender  whatsapp.Sender
	store   DeliveryStore
	logger  *slog.Logger
	loc     *time.Location
	metrics *metrics.Notification
}

func New(sender whatsapp.Sender, store DeliveryStore, logger *slog.Logger, loc *time.Location, m *metrics.Notification) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{sender: sender, store: store, logger: logger, loc: loc, metrics: m}
}

// MeetingConfirmed handles booking.meeting.confirmed.v1. Send failures are logged, counted and
// recorded; only a failure to record is returned.
func (n *Notifier) MeetingConfirmed(ctx context.Context, msg kafka.Message) error {
	var evt events.MeetingConfirmed
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		n.logger.Error("invalid meeting.confirmed payload", "err", err, "offset", msg.Offset)
		return nil
	}
	if evt.PhoneNumber == "" {
		n.logger.Warn("meeting.confirmed without phone number", "business_id", evt.BusinessID)
		n.metrics.ObserveSend(whatsapp.MeetingApprovedTemplate, "skipped")
		return nil
	}

	out := whatsapp.BuildMeetingApproved(whatsapp.MeetingApproved{
		PhoneNumber:     evt.PhoneNumber,
		CustomerName:    evt.CustomerName,
		BusinessName:    evt.BusinessName,
		BusinessAddress: evt.BusinessAddress,
		Start:           evt.Start,
	}, n.loc)

	delivery := storage.Delivery{
		EventID:    kafkax.ExtractEventMeta(msg).EventID,
		BusinessID: evt.BusinessID,
		Recipient:  evt.PhoneNumber,
		Template:   whatsapp.MeetingApprovedTemplate,
		Provider:   n.sender.ProviderID(),
		Status:     storage.StatusSent,
		Payload:    out,
	}
	res, err := n.sender.Send(ctx, out)
	delivery.MessageID = res.MessageID
	if err != nil {
		n.logger.Error("whatsapp send failed", "err", err, "business_id", evt.BusinessID, "status", res.Status)
		delivery.Status = storage.StatusFailed
		delivery.Error = err.Error()
	}
	n.metrics.ObserveSend(whatsapp.MeetingApprovedTemplate, delivery.Status)
	return n.store.InsertDelivery(ctx, delivery)
}
