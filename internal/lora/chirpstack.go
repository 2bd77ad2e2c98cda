package lora

import (
	"encoding/base64"
	"encoding/json"
)

const chirpstackName = "chirpstack"

// chirpstackEnvelope is the subset of a ChirpStack integration event
// the gateway needs.
type chirpstackEnvelope struct {
	Event      string `json:"event"`
	DeviceInfo struct {
		DevEUI string `json:"devEui"`
	} `json:"deviceInfo"`
	Data string `json:"data"`
}

// chirpstackProvider decodes ChirpStack HTTP integration events.
type chirpstackProvider struct{}

// NewChirpStackProvider returns the provider for ChirpStack HTTP
// integration events.
func NewChirpStackProvider() Provider {
	return &chirpstackProvider{}
}

var _ Provider = (*chirpstackProvider)(nil)

func (p *chirpstackProvider) Name() string { return chirpstackName }

func (p *chirpstackProvider) PathSegment() string { return chirpstackName }

func (p *chirpstackProvider) ExtractMessageType(body []byte) (MessageType, error) {
	env, err := p.decode(body)
	if err != nil {
		return TypeUnknown, err
	}

	switch env.Event {
	case "up":
		return TypeUplink, nil
	case "join":
		return TypeJoin, nil
	case "txack", "ack":
		return TypeDownlink, nil
	default:
		return TypeUnknown, nil
	}
}

func (p *chirpstackProvider) ExtractDeviceID(body []byte) (string, error) {
	env, err := p.decode(body)
	if err != nil {
		return "", err
	}

	if env.DeviceInfo.DevEUI == "" {
		return "", newMalformed(chirpstackName, "missing deviceInfo.devEui", nil)
	}

	return env.DeviceInfo.DevEUI, nil
}

func (p *chirpstackProvider) ExtractPayload(body []byte) ([]byte, error) {
	env, err := p.decode(body)
	if err != nil {
		return nil, err
	}

	payload, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, newMalformed(chirpstackName, "data is not valid base64", err)
	}

	return payload, nil
}

func (p *chirpstackProvider) decode(body []byte) (*chirpstackEnvelope, error) {
	var env chirpstackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, newMalformed(chirpstackName, "body is not valid JSON", err)
	}

	return &env, nil
}
