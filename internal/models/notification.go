package models

import "time"

// Channel tags how a notification was (or was not) delivered.
type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelSystem Channel = "system"
	ChannelError  Channel = "error"
)

// NotificationRecord is an append-only alert log entry.
type NotificationRecord struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	SentVia   Channel   `json:"sent_via"`
	CreatedAt time.Time `json:"created_at"`
}
