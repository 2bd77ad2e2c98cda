package lora

import (
	"encoding/base64"
	"encoding/json"
)

const ttnName = "ttn"

// ttnEnvelope is the subset of a The Things Stack webhook body the
// gateway needs. Exactly one of the event sections is present per
// message.
type ttnEnvelope struct {
	EndDeviceIDs struct {
		DevEUI string `json:"dev_eui"`
	} `json:"end_device_ids"`
	UplinkMessage *struct {
		FRMPayload string `json:"frm_payload"`
	} `json:"uplink_message"`
	JoinAccept   json.RawMessage `json:"join_accept"`
	DownlinkAck  json.RawMessage `json:"downlink_ack"`
	DownlinkSent json.RawMessage `json:"downlink_sent"`
}

// ttnProvider decodes The Things Stack webhook messages.
type ttnProvider struct{}

// NewTTNProvider returns the provider for The Things Stack webhooks.
func NewTTNProvider() Provider {
	return &ttnProvider{}
}

var _ Provider = (*ttnProvider)(nil)

func (p *ttnProvider) Name() string { return ttnName }

func (p *ttnProvider) PathSegment() string { return ttnName }

func (p *ttnProvider) ExtractMessageType(body []byte) (MessageType, error) {
	env, err := p.decode(body)
	if err != nil {
		return TypeUnknown, err
	}

	switch {
	case env.UplinkMessage != nil:
		return TypeUplink, nil
	case env.JoinAccept != nil:
		return TypeJoin, nil
	case env.DownlinkAck != nil, env.DownlinkSent != nil:
		return TypeDownlink, nil
	default:
		return TypeUnknown, nil
	}
}

func (p *ttnProvider) ExtractDeviceID(body []byte) (string, error) {
	env, err := p.decode(body)
	if err != nil {
		return "", err
	}

	if env.EndDeviceIDs.DevEUI == "" {
		return "", newMalformed(ttnName, "missing end_device_ids.dev_eui", nil)
	}

	return env.EndDeviceIDs.DevEUI, nil
}

func (p *ttnProvider) ExtractPayload(body []byte) ([]byte, error) {
	env, err := p.decode(body)
	if err != nil {
		return nil, err
	}

	if env.UplinkMessage == nil {
		return nil, newMalformed(ttnName, "missing uplink_message section", nil)
	}

	payload, err := base64.StdEncoding.DecodeString(env.UplinkMessage.FRMPayload)
	if err != nil {
		return nil, newMalformed(ttnName, "frm_payload is not valid base64", err)
	}

	return payload, nil
}

func (p *ttnProvider) decode(body []byte) (*ttnEnvelope, error) {
	var env ttnEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, newMalformed(ttnName, "body is not valid JSON", err)
	}

	return &env, nil
}
