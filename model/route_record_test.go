package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRouteRecord_TableName(t *testing.T) {
	record := RouteRecord{}
	assert.Equal(t, "conductor_route", record.TableName())
}

func TestNewRouteRecord(t *testing.T) {
	record := NewRouteRecord("hello", 13, 34, 2, 1, 1)

	assert.Equal(t, int64(0), record.ID)
	assert.Equal(t, "hello", record.Topic)
	assert.Equal(t, 13, record.PayloadSize)
	assert.Equal(t, 34, record.FrameSize)
	assert.Equal(t, 2, record.Targeted)
	assert.Equal(t, 1, record.Delivered)
	assert.Equal(t, 1, record.Pruned)
	assert.WithinDuration(t, time.Now(), record.RoutedAt, time.Second)
}

func TestRouteRecord_Delivery(t *testing.T) {
	tests := []struct {
		name           string
		targeted       int
		delivered      int
		hasSubscribers bool
		fullyDelivered bool
	}{
		{name: "No subscribers", targeted: 0, delivered: 0, hasSubscribers: false, fullyDelivered: false},
		{name: "All delivered", targeted: 3, delivered: 3, hasSubscribers: true, fullyDelivered: true},
		{name: "Partially pruned", targeted: 3, delivered: 2, hasSubscribers: true, fullyDelivered: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := NewRouteRecord("t", 1, 18, tt.targeted, tt.delivered, tt.targeted-tt.delivered)
			assert.Equal(t, tt.hasSubscribers, record.HasSubscribers())
			assert.Equal(t, tt.fullyDelivered, record.FullyDelivered())
		})
	}
}
