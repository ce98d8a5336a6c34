package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

func TestInsertDelivery(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("INSERT INTO whatsapp_deliveries").
		WithArgs("e-1", "biz-1", "972", "meeting_approved", "whatsapp-noop", "wamid.1", StatusSent, "", []byte(`{"to":"972"}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewRepository(mock)
	err = repo.InsertDelivery(context.Background(), Delivery{
		EventID:    "e-1",
		BusinessID: "biz-1",
		Recipient:  "972",
		Template:   "meeting_approved",
		Provider:   "whatsapp-noop",
		MessageID:  "wamid.1",
		Status:     StatusSent,
		Payload:    map[string]string{"to": "972"},
	})
	if err != nil {
		t.Fatalf("InsertDelivery: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertDeliveryWrapsError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	boom := errors.New("boom")
	mock.ExpectExec("INSERT INTO whatsapp_deliveries").WillReturnError(boom)

	err = NewRepository(mock).InsertDelivery(context.Background(), Delivery{Status: StatusFailed})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
}
