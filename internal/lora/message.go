// Package lora provides the pluggable decoders ("providers") for the
// inbound message formats of LoRaWAN network servers, together with
// the registry the gateway selects them from.
package lora

// MessageType classifies an inbound vendor message. The enumeration is
// closed: providers must map unrecognized vendor type codes to
// TypeUnknown instead of failing.
type MessageType int

const (
	// TypeUnknown is any message the provider cannot classify.
	TypeUnknown MessageType = iota

	// TypeUplink carries telemetry from a device.
	TypeUplink

	// TypeDownlink is a network-server notification about a downlink.
	TypeDownlink

	// TypeJoin is a network join notification.
	TypeJoin
)

// String returns the string representation of the message type.
func (t MessageType) String() string {
	switch t {
	case TypeUplink:
		return "uplink"
	case TypeDownlink:
		return "downlink"
	case TypeJoin:
		return "join"
	default:
		return "unknown"
	}
}
