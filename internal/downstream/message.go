// Package downstream publishes gateway messages to the Kafka-based
// messaging infrastructure. Telemetry is produced fire-and-forget on
// an async writer; events wait for broker acknowledgement.
package downstream

import (
	"time"

	"github.com/google/uuid"
)

// Well-known message property names.
const (
	PropertyOrigin      = "orig-adapter"
	PropertyOrigAddress = "orig-address"
	PropertyDeviceID    = "device-id"
	PropertyQoS         = "qos"
)

// Message is a protocol-independent downstream message.
type Message struct {
	// ID uniquely identifies the message.
	ID string

	// TenantID is the tenant the originating device belongs to.
	TenantID string

	// DeviceID is the originating device.
	DeviceID string

	// ContentType is the MIME type of the payload.
	ContentType string

	// Payload is the message body. May be empty.
	Payload []byte

	// Properties are application properties propagated to consumers
	// as message headers.
	Properties map[string]string

	// CreationTime is when the gateway accepted the message.
	CreationTime time.Time
}

// NewMessage creates a message for the given device with a fresh ID
// and creation time.
func NewMessage(tenantID, deviceID, contentType string, payload []byte) *Message {
	return &Message{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		DeviceID:     deviceID,
		ContentType:  contentType,
		Payload:      payload,
		Properties:   make(map[string]string),
		CreationTime: time.Now(),
	}
}

// SetProperty sets an application property, initializing the property
// map if needed.
func (m *Message) SetProperty(name, value string) {
	if m.Properties == nil {
		m.Properties = make(map[string]string)
	}

	m.Properties[name] = value
}
