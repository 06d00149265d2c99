package models

import "time"

// BaristaStatus represents the status of a barista station
type BaristaStatus string

const (
	BaristaOnline  BaristaStatus = "online"
	BaristaOffline BaristaStatus = "offline"
)

// Barista represents a registered barista worker
type Barista struct {
	ID              int64         `json:"id,omitempty" db:"id"`
	CreatedAt       time.Time     `json:"created_at,omitempty" db:"created_at"`
	Name            string        `json:"barista_name" db:"name"`
	Status          BaristaStatus `json:"status" db:"status"`
	LastSeen        time.Time     `json:"last_seen" db:"last_seen"`
	OrdersProcessed int           `json:"orders_processed" db:"orders_processed"`
}

// IsOnline checks if a barista is considered online based on heartbeat interval
func (b *Barista) IsOnline(heartbeatInterval time.Duration, now time.Time) bool {
	if b.Status == BaristaOffline {
		return false
	}
	// offline once two heartbeats were missed
	return now.Sub(b.LastSeen) <= 2*heartbeatInterval
}
