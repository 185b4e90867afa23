package conductor

import (
	"context"

	"github.com/coregx/conductor/model"
)

// NotificationService defines an optional interface for reacting to broker
// events (registrations, pruned subscribers, corrupt input).
//
// Implementations might page an operator, feed a dashboard, or simply log.
// Notifications are called synchronously from broker goroutines and must not
// block; the routing engine waits for NotifySubscriberPruned and
// NotifyMalformedHeader to return.
type NotificationService interface {
	// NotifySubscriberRegistered is called when a subscriber's topic list has been
	// read and the connection entered the topic registry.
	NotifySubscriberRegistered(ctx context.Context, session model.SubscriberSession) error

	// NotifySubscriberPruned is called when a fan-out write failed and the
	// subscriber was removed from a topic.
	NotifySubscriberPruned(ctx context.Context, session model.SubscriberSession, topic string, cause error) error

	// NotifyMalformedHeader is called when the reassembly buffer holds a header
	// that cannot be decoded. Routing stalls until the buffer is reset.
	NotifyMalformedHeader(ctx context.Context, buffered int, cause error) error
}

// NoOpNotificationService is a no-op implementation of NotificationService.
type NoOpNotificationService struct{}

// NotifySubscriberRegistered does nothing.
func (n *NoOpNotificationService) NotifySubscriberRegistered(_ context.Context, _ model.SubscriberSession) error {
	return nil
}

// NotifySubscriberPruned does nothing.
func (n *NoOpNotificationService) NotifySubscriberPruned(_ context.Context, _ model.SubscriberSession, _ string, _ error) error {
	return nil
}

// NotifyMalformedHeader does nothing.
func (n *NoOpNotificationService) NotifyMalformedHeader(_ context.Context, _ int, _ error) error {
	return nil
}

// LoggingNotificationService is a simple implementation that logs notifications.
type LoggingNotificationService struct {
	logger Logger
}

// NewLoggingNotificationService creates a new LoggingNotificationService.
func NewLoggingNotificationService(logger Logger) *LoggingNotificationService {
	return &LoggingNotificationService{logger: logger}
}

// NotifySubscriberRegistered logs the registration.
func (n *LoggingNotificationService) NotifySubscriberRegistered(_ context.Context, session model.SubscriberSession) error {
	n.logger.Infof("✅ Subscriber registered: session=%s, addr=%s, topics=%s",
		session.SessionID, session.RemoteAddr, session.Topics)
	return nil
}

// NotifySubscriberPruned logs the pruned subscriber.
func (n *LoggingNotificationService) NotifySubscriberPruned(_ context.Context, session model.SubscriberSession, topic string, cause error) error {
	n.logger.Warnf("🔴 Subscriber pruned: session=%s, addr=%s, topic=%s, lifetime=%v, error=%v",
		session.SessionID, session.RemoteAddr, topic, session.Lifetime(), cause)
	return nil
}

// NotifyMalformedHeader logs the stalled reassembly buffer.
func (n *LoggingNotificationService) NotifyMalformedHeader(_ context.Context, buffered int, cause error) error {
	n.logger.Warnf("⚠️ Malformed frame header: buffered=%d, error=%v", buffered, cause)
	return nil
}
