package downstream

import "context"

// Sender publishes downstream messages for a single tenant and
// message kind.
type Sender interface {
	// Send hands the message to the messaging infrastructure without
	// waiting for broker acknowledgement. A nil return only means the
	// message was accepted for delivery.
	Send(ctx context.Context, msg *Message) error

	// SendAndWaitForOutcome publishes the message and blocks until
	// the broker acknowledges it or ctx is done.
	SendAndWaitForOutcome(ctx context.Context, msg *Message) error
}

// SenderFactory yields per-tenant senders for the two downstream
// message kinds.
type SenderFactory interface {
	// GetTelemetrySender returns the telemetry sender for a tenant.
	GetTelemetrySender(tenantID string) Sender

	// GetEventSender returns the event sender for a tenant.
	GetEventSender(tenantID string) Sender

	// Close flushes buffered messages and releases broker
	// connections.
	Close() error
}
