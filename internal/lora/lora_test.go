package lora

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	registry, err := NewRegistry(NewTTNProvider(), NewChirpStackProvider())
	require.NoError(t, err)

	p, ok := registry.Lookup("ttn")
	require.True(t, ok)
	assert.Equal(t, "ttn", p.Name())

	p, ok = registry.Lookup("chirpstack")
	require.True(t, ok)
	assert.Equal(t, "chirpstack", p.Name())

	_, ok = registry.Lookup("unknown")
	assert.False(t, ok)

	assert.Len(t, registry.Providers(), 2)
}

func TestNewRegistryRejectsDuplicateSegments(t *testing.T) {
	_, err := NewRegistry(NewTTNProvider(), NewTTNProvider())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ttn")
}

func TestMessageTypeString(t *testing.T) {
	assert.Equal(t, "uplink", TypeUplink.String())
	assert.Equal(t, "downlink", TypeDownlink.String())
	assert.Equal(t, "join", TypeJoin.String())
	assert.Equal(t, "unknown", TypeUnknown.String())
	assert.Equal(t, "unknown", MessageType(42).String())
}

func TestTTNProviderUplink(t *testing.T) {
	provider := NewTTNProvider()

	payload := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03})
	body := []byte(`{
		"end_device_ids": {"device_id": "sensor-1", "dev_eui": "0102030405060708"},
		"uplink_message": {"f_port": 1, "frm_payload": "` + payload + `"}
	}`)

	msgType, err := provider.ExtractMessageType(body)
	require.NoError(t, err)
	assert.Equal(t, TypeUplink, msgType)

	deviceID, err := provider.ExtractDeviceID(body)
	require.NoError(t, err)
	assert.Equal(t, "0102030405060708", deviceID)

	decoded, err := provider.ExtractPayload(body)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, decoded)
}

func TestTTNProviderClassification(t *testing.T) {
	provider := NewTTNProvider()

	tests := []struct {
		name string
		body string
		want MessageType
	}{
		{"join", `{"join_accept": {}}`, TypeJoin},
		{"downlink ack", `{"downlink_ack": {}}`, TypeDownlink},
		{"downlink sent", `{"downlink_sent": {}}`, TypeDownlink},
		{"unrecognized", `{"location_solved": {}}`, TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgType, err := provider.ExtractMessageType([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, msgType)
		})
	}
}

func TestTTNProviderMalformed(t *testing.T) {
	provider := NewTTNProvider()

	_, err := provider.ExtractMessageType([]byte("not json"))
	var malformed *MalformedPayloadError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "ttn", malformed.Provider)

	_, err = provider.ExtractDeviceID([]byte(`{"uplink_message": {}}`))
	require.ErrorAs(t, err, &malformed)

	_, err = provider.ExtractPayload([]byte(`{"join_accept": {}}`))
	require.ErrorAs(t, err, &malformed)

	_, err = provider.ExtractPayload([]byte(`{"uplink_message": {"frm_payload": "%%%"}}`))
	require.ErrorAs(t, err, &malformed)
	assert.NotNil(t, errors.Unwrap(malformed))
}

func TestChirpStackProvider(t *testing.T) {
	provider := NewChirpStackProvider()

	body := []byte(`{
		"event": "up",
		"deviceInfo": {"devEui": "a1b2c3d4e5f60708"},
		"data": "` + base64.StdEncoding.EncodeToString([]byte("hello")) + `"
	}`)

	msgType, err := provider.ExtractMessageType(body)
	require.NoError(t, err)
	assert.Equal(t, TypeUplink, msgType)

	deviceID, err := provider.ExtractDeviceID(body)
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4e5f60708", deviceID)

	payload, err := provider.ExtractPayload(body)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), payload)
}

func TestChirpStackProviderClassification(t *testing.T) {
	provider := NewChirpStackProvider()

	tests := []struct {
		event string
		want  MessageType
	}{
		{"up", TypeUplink},
		{"join", TypeJoin},
		{"txack", TypeDownlink},
		{"ack", TypeDownlink},
		{"status", TypeUnknown},
		{"", TypeUnknown},
	}

	for _, tt := range tests {
		msgType, err := provider.ExtractMessageType([]byte(`{"event": "` + tt.event + `"}`))
		require.NoError(t, err)
		assert.Equal(t, tt.want, msgType, "event %q", tt.event)
	}
}

func TestChirpStackProviderMalformed(t *testing.T) {
	provider := NewChirpStackProvider()

	var malformed *MalformedPayloadError
	_, err := provider.ExtractDeviceID([]byte(`{"event": "up"}`))
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Error(), "devEui")

	_, err = provider.ExtractPayload([]byte(`{"event": "up", "data": "!!"}`))
	require.ErrorAs(t, err, &malformed)
}
