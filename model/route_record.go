package model

import "time"

// RouteRecord is one journal entry per frame that passed through the routing engine.
//
// Each record captures the outcome of a single fan-out:
//   - Targeted: subscribers registered for the topic when the frame was routed
//   - Delivered: subscribers that accepted the full frame
//   - Pruned: subscribers whose write failed and were removed from the topic
//
// A frame routed to a topic nobody listens to is recorded with Targeted=0.
type RouteRecord struct {
	ID          int64     `json:"id" db:"id"`
	Topic       string    `json:"topic" db:"topic"`
	PayloadSize int       `json:"payloadSize" db:"payload_size"` // Payload bytes only
	FrameSize   int       `json:"frameSize" db:"frame_size"`     // Header + topic + payload
	Targeted    int       `json:"targeted" db:"targeted"`
	Delivered   int       `json:"delivered" db:"delivered"`
	Pruned      int       `json:"pruned" db:"pruned"`
	RoutedAt    time.Time `json:"routedAt" db:"routed_at"`
}

// TableName returns the database table name for RouteRecord.
func (r RouteRecord) TableName() string {
	return tablePrefix + "route"
}

// NewRouteRecord creates a route record stamped with the current time.
func NewRouteRecord(topic string, payloadSize, frameSize, targeted, delivered, pruned int) RouteRecord {
	return RouteRecord{
		ID:          0,
		Topic:       topic,
		PayloadSize: payloadSize,
		FrameSize:   frameSize,
		Targeted:    targeted,
		Delivered:   delivered,
		Pruned:      pruned,
		RoutedAt:    time.Now(),
	}
}

// HasSubscribers reports whether any subscriber was registered for the topic.
func (r RouteRecord) HasSubscribers() bool {
	return r.Targeted > 0
}

// FullyDelivered reports whether every targeted subscriber received the frame.
// A frame with no subscribers is not considered delivered.
func (r RouteRecord) FullyDelivered() bool {
	return r.Targeted > 0 && r.Delivered == r.Targeted
}
