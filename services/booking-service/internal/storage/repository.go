package storage

import (
	"errors"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/db"
)

var (
	ErrNotFound        = errors.New("storage: not found")
	ErrMeetingNotFound = errors.New("meeting not found")
)

// NotificationLimit is how many notifications a business keeps.
const NotificationLimit = 20

type Repository struct {
	db  db.TxBeginner
	now func() time.Time
}

func NewRepository(q db.TxBeginner) *Repository {
	return &Repository{db: q, now: time.Now}
}

// dayKey maps t's wall-clock date to the value stored in DATE columns.
func dayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
