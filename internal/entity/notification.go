package entity

import (
	"time"
)

// Notification is an addressed, durable message. Immutable except for the
// read timestamp; never deleted. Delivery to connected clients happens
// asynchronously through the queue subscriber.
type Notification struct {
	ID           int64      `json:"id" db:"id"`
	RecipientKey string     `json:"recipient_key" db:"recipient_key"`
	Title        string     `json:"title" db:"title"`
	Body         string     `json:"body" db:"body"`
	RequestID    *int64     `json:"request_id" db:"request_id"`
	ReadAt       *time.Time `json:"read_at" db:"read_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
