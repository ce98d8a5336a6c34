// Package events defines the Kafka topics and payloads exchanged between slotbook services.
package events

import "time"

const (
	TopicMeetingConfirmed = "booking.meeting.confirmed.v1"
	TopicCustomerCreated  = "booking.customer.created.v1"
)

const (
	AggregateMeeting  = "meeting"
	AggregateCustomer = "customer"
)

// MeetingConfirmed is emitted once a business owner confirms a booking.
type MeetingConfirmed struct {
	BusinessID      string    `json:"business_id"`
	BusinessName    string    `json:"business_name"`
	BusinessAddress string    `json:"business_address"`
	CustomerName    string    `json:"customer_name"`
	PhoneNumber     string    `json:"phone_number"`
	ServiceName     string    `json:"service_name"`
	Start           time.Time `json:"start"`
	ConfirmedAt     time.Time `json:"confirmed_at"`
}

// CustomerCreated is emitted when a website booking registers a new phone number.
type CustomerCreated struct {
	BusinessID   string    `json:"business_id"`
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	PhoneNumber  string    `json:"phone_number"`
	CreatedAt    time.Time `json:"created_at"`
}
