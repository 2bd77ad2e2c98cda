package adapter

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/aviotgw/internal/auth"
	"github.com/vyrodovalexey/aviotgw/internal/downstream"
	"github.com/vyrodovalexey/aviotgw/internal/lora"
	"github.com/vyrodovalexey/aviotgw/internal/registry"
	"github.com/vyrodovalexey/aviotgw/internal/tenant"
	"github.com/vyrodovalexey/aviotgw/internal/util"
)

// fakeProvider is a scriptable provider.
type fakeProvider struct {
	name        string
	messageType lora.MessageType
	classifyErr error
	deviceID    string
	deviceErr   error
	payload     []byte
	payloadErr  error
}

func (p *fakeProvider) Name() string        { return p.name }
func (p *fakeProvider) PathSegment() string { return p.name }

func (p *fakeProvider) ExtractMessageType([]byte) (lora.MessageType, error) {
	return p.messageType, p.classifyErr
}

func (p *fakeProvider) ExtractDeviceID([]byte) (string, error) {
	return p.deviceID, p.deviceErr
}

func (p *fakeProvider) ExtractPayload([]byte) ([]byte, error) {
	return p.payload, p.payloadErr
}

type fakeTenantClient struct {
	descriptor *tenant.Descriptor
	err        error
}

func (c *fakeTenantClient) Get(context.Context, string) (*tenant.Descriptor, error) {
	return c.descriptor, c.err
}

type fakeRegistrationClient struct {
	err error
}

func (c *fakeRegistrationClient) AssertRegistration(_ context.Context, _, deviceID string) (*registry.RegistrationInfo, error) {
	if c.err != nil {
		return nil, c.err
	}

	return &registry.RegistrationInfo{DeviceID: deviceID}, nil
}

// recordingSenderFactory records sent messages per kind.
type recordingSenderFactory struct {
	telemetry []*downstream.Message
	events    []*downstream.Message
	sendErr   error
}

func (f *recordingSenderFactory) GetTelemetrySender(string) downstream.Sender {
	return &recordingSender{factory: f, telemetry: true}
}

func (f *recordingSenderFactory) GetEventSender(string) downstream.Sender {
	return &recordingSender{factory: f}
}

func (f *recordingSenderFactory) Close() error { return nil }

type recordingSender struct {
	factory   *recordingSenderFactory
	telemetry bool
}

func (s *recordingSender) Send(_ context.Context, msg *downstream.Message) error {
	if s.factory.sendErr != nil {
		return s.factory.sendErr
	}

	if s.telemetry {
		s.factory.telemetry = append(s.factory.telemetry, msg)
	} else {
		s.factory.events = append(s.factory.events, msg)
	}

	return nil
}

func (s *recordingSender) SendAndWaitForOutcome(ctx context.Context, msg *downstream.Message) error {
	return s.Send(ctx, msg)
}

type fixture struct {
	adapter  *Adapter
	tenants  *fakeTenantClient
	devices  *fakeRegistrationClient
	senders  *recordingSenderFactory
	provider *fakeProvider
}

func newFixture() *fixture {
	tenants := &fakeTenantClient{
		descriptor: &tenant.Descriptor{TenantID: "tenant-a", Enabled: true},
	}
	devices := &fakeRegistrationClient{}
	senders := &recordingSenderFactory{}

	return &fixture{
		adapter: New(tenants, devices, senders),
		tenants: tenants,
		devices: devices,
		senders: senders,
		provider: &fakeProvider{
			name:        "ttn",
			messageType: lora.TypeUplink,
			deviceID:    "0102030405060708",
			payload:     []byte{0x01},
		},
	}
}

func performRequest(t *testing.T, f *fixture, identity *auth.GatewayIdentity) *httptest.ResponseRecorder {
	t.Helper()

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/"+f.provider.name, bytes.NewReader([]byte(`{}`)))

	if identity != nil {
		auth.SetIdentity(c, identity)
	}

	f.adapter.HandleProviderRoute(c, f.provider)

	// Flush the status recorded via c.Status; outside a full engine
	// run gin defers the header write until the response body.
	c.Writer.WriteHeaderNow()

	return w
}

func gatewayIdentity() *auth.GatewayIdentity {
	return &auth.GatewayIdentity{TenantID: "tenant-a", GatewayID: "gw-dev", AuthID: "gw-1"}
}

func TestHandleProviderRouteForwardsUplink(t *testing.T) {
	f := newFixture()

	w := performRequest(t, f, gatewayIdentity())

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, f.senders.telemetry, 1)

	msg := f.senders.telemetry[0]
	assert.Equal(t, "tenant-a", msg.TenantID)
	assert.Equal(t, "0102030405060708", msg.DeviceID)
	assert.Equal(t, []byte{0x01}, msg.Payload)
	assert.Equal(t, "application/octet-stream", msg.ContentType)
	assert.Equal(t, "ttn", msg.Properties[downstream.PropertyOrigin])
	assert.Equal(t, "/ttn", msg.Properties[downstream.PropertyOrigAddress])
}

func TestHandleProviderRouteUsesTenantDefaultContentType(t *testing.T) {
	f := newFixture()
	f.tenants.descriptor.Defaults = map[string]any{"content-type": "application/json"}

	w := performRequest(t, f, gatewayIdentity())

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, f.senders.telemetry, 1)
	assert.Equal(t, "application/json", f.senders.telemetry[0].ContentType)
}

func TestHandleProviderRouteAcknowledgesNonTelemetry(t *testing.T) {
	for _, msgType := range []lora.MessageType{lora.TypeJoin, lora.TypeDownlink, lora.TypeUnknown} {
		t.Run(msgType.String(), func(t *testing.T) {
			f := newFixture()
			f.provider.messageType = msgType

			w := performRequest(t, f, gatewayIdentity())

			assert.Equal(t, http.StatusAccepted, w.Code)
			assert.Empty(t, f.senders.telemetry)
			assert.Empty(t, f.senders.events)
		})
	}
}

func TestHandleProviderRouteRequiresIdentity(t *testing.T) {
	f := newFixture()

	w := performRequest(t, f, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, f.senders.telemetry)
}

func TestHandleProviderRouteBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fixture)
	}{
		{"classification failure", func(f *fixture) {
			f.provider.classifyErr = &lora.MalformedPayloadError{Provider: "ttn", Detail: "bad json"}
		}},
		{"missing device id", func(f *fixture) {
			f.provider.deviceErr = &lora.MalformedPayloadError{Provider: "ttn", Detail: "missing dev_eui"}
		}},
		{"payload extraction failure", func(f *fixture) {
			f.provider.payloadErr = &lora.MalformedPayloadError{Provider: "ttn", Detail: "bad base64"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.mutate(f)

			w := performRequest(t, f, gatewayIdentity())

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, f.senders.telemetry)
		})
	}
}

func TestHandleProviderRoutePropagatesLookupFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fixture)
		want   int
	}{
		{"unknown tenant", func(f *fixture) { f.tenants.err = util.ErrNotFound }, http.StatusNotFound},
		{"disabled tenant", func(f *fixture) { f.tenants.err = util.ErrDisabled }, http.StatusForbidden},
		{"unknown device", func(f *fixture) { f.devices.err = util.ErrNotFound }, http.StatusNotFound},
		{"tenant lookup infrastructure failure", func(f *fixture) {
			f.tenants.err = errors.New("registry down")
		}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.mutate(f)

			w := performRequest(t, f, gatewayIdentity())

			assert.Equal(t, tt.want, w.Code)
			assert.Empty(t, f.senders.telemetry)
		})
	}
}

func TestHandleProviderRouteReportsFailedForwardInitiation(t *testing.T) {
	f := newFixture()
	f.senders.sendErr = errors.New("all brokers down")

	w := performRequest(t, f, gatewayIdentity())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	assert.NotContains(t, w.Body.String(), "brokers")
}

func TestHandleOptionsRoute(t *testing.T) {
	f := newFixture()

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodOptions, "/ttn", nil)

	f.adapter.HandleOptionsRoute(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestCustomizeDownstreamMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(ProviderKey, "ttn")

	msg := downstream.NewMessage("tenant-a", "dev", "application/json", nil)
	msg.SetProperty("custom", "value")

	CustomizeDownstreamMessage(msg, c)
	assert.Equal(t, "ttn", msg.Properties[downstream.PropertyOrigin])
	assert.Equal(t, "value", msg.Properties["custom"])

	// stamping twice changes nothing
	CustomizeDownstreamMessage(msg, c)
	assert.Equal(t, "ttn", msg.Properties[downstream.PropertyOrigin])
	assert.Len(t, msg.Properties, 2)
}

func TestCustomizeDownstreamMessageWithoutProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	msg := downstream.NewMessage("tenant-a", "dev", "application/json", nil)
	CustomizeDownstreamMessage(msg, c)

	assert.NotContains(t, msg.Properties, downstream.PropertyOrigin)
}
