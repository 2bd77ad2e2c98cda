// Package adapter implements the provider message router: it accepts
// inbound network-server webhooks, scopes them to the authenticated
// gateway, and dispatches telemetry downstream.
package adapter

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/aviotgw/internal/auth"
	"github.com/vyrodovalexey/aviotgw/internal/downstream"
	"github.com/vyrodovalexey/aviotgw/internal/lora"
	"github.com/vyrodovalexey/aviotgw/internal/observability"
	"github.com/vyrodovalexey/aviotgw/internal/registry"
	"github.com/vyrodovalexey/aviotgw/internal/util"
)

// ProviderKey is the gin context key the handling provider's name is
// stored under. It is set before any other processing so follow-up
// middleware and handlers can attribute the request even when it
// fails early.
const ProviderKey = "lora-provider"

const defaultContentType = "application/octet-stream"

// Adapter routes inbound provider messages.
type Adapter struct {
	tenants       registry.TenantClient
	registrations registry.RegistrationClient
	senders       downstream.SenderFactory
	logger        observability.Logger
	metrics       *Metrics
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics. Defaults to the process-wide set.
func WithMetrics(metrics *Metrics) Option {
	return func(a *Adapter) {
		a.metrics = metrics
	}
}

// New creates an adapter routing messages to the given collaborators.
func New(tenants registry.TenantClient, registrations registry.RegistrationClient, senders downstream.SenderFactory, opts ...Option) *Adapter {
	a := &Adapter{
		tenants:       tenants,
		registrations: registrations,
		senders:       senders,
		logger:        observability.NopLogger(),
		metrics:       GetMetrics(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// HandleProviderRoute processes one inbound message for the given
// provider. It always terminates the request with exactly one
// response: 401 for a missing gateway identity, 400 for payloads the
// provider cannot decode, 202 for accepted messages whether or not
// they carry telemetry, and a 5xx code for unexpected failures.
func (a *Adapter) HandleProviderRoute(c *gin.Context, provider lora.Provider) {
	c.Set(ProviderKey, provider.Name())

	span := observability.SpanFromContext(c.Request.Context())
	span.SetAttributes(observability.AttrProvider.String(provider.Name()))

	identity := auth.GetIdentity(c)
	if identity == nil {
		a.respondError(c, provider, "unknown", util.NewUnauthorized("missing gateway identity"))

		return
	}

	span.SetAttributes(
		observability.AttrTenantID.String(identity.TenantID),
		observability.AttrGatewayID.String(identity.GatewayID),
	)

	body, err := c.GetRawData()
	if err != nil {
		a.respondError(c, provider, "unknown", util.NewBadRequestWithCause("failed to read request body", err))

		return
	}

	msgType, err := provider.ExtractMessageType(body)
	if err != nil {
		a.respondError(c, provider, "unknown", util.NewBadRequestWithCause("failed to classify message", err))

		return
	}

	span.SetAttributes(observability.AttrMessageType.String(msgType.String()))

	if msgType != lora.TypeUplink {
		a.logger.Debug("discarding non-telemetry message",
			observability.String("provider", provider.Name()),
			observability.String("type", msgType.String()),
			observability.String("tenant_id", identity.TenantID),
		)
		a.metrics.MessagesReceivedTotal.WithLabelValues(provider.Name(), msgType.String(), OutcomeDiscarded).Inc()
		c.Status(http.StatusAccepted)

		return
	}

	a.handleUplink(c, provider, identity, body)
}

// handleUplink resolves the device identity of an uplink and forwards
// its payload as telemetry.
func (a *Adapter) handleUplink(c *gin.Context, provider lora.Provider, identity *auth.GatewayIdentity, body []byte) {
	ctx := c.Request.Context()
	span := observability.SpanFromContext(ctx)

	deviceID, err := provider.ExtractDeviceID(body)
	if err != nil {
		a.respondError(c, provider, lora.TypeUplink.String(), util.NewBadRequestWithCause("failed to extract device ID", err))

		return
	}

	span.SetAttributes(observability.AttrDeviceID.String(deviceID))

	payload, err := provider.ExtractPayload(body)
	if err != nil {
		a.respondError(c, provider, lora.TypeUplink.String(), util.NewBadRequestWithCause("failed to extract payload", err))

		return
	}

	descriptor, err := a.tenants.Get(ctx, identity.TenantID)
	if err != nil {
		a.respondError(c, provider, lora.TypeUplink.String(), err)

		return
	}

	if _, err := a.registrations.AssertRegistration(ctx, identity.TenantID, deviceID); err != nil {
		a.respondError(c, provider, lora.TypeUplink.String(), err)

		return
	}

	contentType := defaultContentType
	if ct, ok := descriptor.Defaults["content-type"].(string); ok && ct != "" {
		contentType = ct
	}

	msg := downstream.NewMessage(identity.TenantID, deviceID, contentType, payload)
	msg.SetProperty(downstream.PropertyOrigAddress, c.Request.URL.Path)
	CustomizeDownstreamMessage(msg, c)

	// Fire and forget: initiation failures are server errors, but the
	// eventual broker outcome does not influence the response.
	if err := a.senders.GetTelemetrySender(identity.TenantID).Send(ctx, msg); err != nil {
		a.metrics.ForwardFailuresTotal.WithLabelValues(provider.Name()).Inc()
		a.respondError(c, provider, lora.TypeUplink.String(), err)

		return
	}

	a.logger.Debug("forwarded telemetry message",
		observability.String("provider", provider.Name()),
		observability.String("tenant_id", identity.TenantID),
		observability.String("device_id", deviceID),
		observability.Int("payload_size", len(payload)),
	)
	a.metrics.MessagesReceivedTotal.WithLabelValues(provider.Name(), lora.TypeUplink.String(), OutcomeForwarded).Inc()
	a.metrics.MessagesForwardedTotal.WithLabelValues(provider.Name(), "telemetry").Inc()

	c.Status(http.StatusAccepted)
}

// HandleOptionsRoute answers capability probes. Vendors probe the
// endpoint before configuring a webhook, so no authentication is
// required here.
func (a *Adapter) HandleOptionsRoute(c *gin.Context) {
	c.Status(http.StatusOK)
}

// CustomizeDownstreamMessage stamps the handling provider's name onto
// the message properties. Already present unrelated properties are
// preserved, and stamping twice is a no-op.
func CustomizeDownstreamMessage(msg *downstream.Message, c *gin.Context) {
	provider := c.GetString(ProviderKey)
	if provider == "" {
		return
	}

	if current, ok := msg.Properties[downstream.PropertyOrigin]; ok && current == provider {
		return
	}

	msg.SetProperty(downstream.PropertyOrigin, provider)
}

// respondError terminates the request with the outward status code of
// err and records the failure.
func (a *Adapter) respondError(c *gin.Context, provider lora.Provider, msgType string, err error) {
	status := util.StatusCode(err)

	outcome := OutcomeError
	switch status {
	case http.StatusUnauthorized:
		outcome = OutcomeUnauthorized
	case http.StatusBadRequest:
		outcome = OutcomeBadRequest
	}

	if status >= http.StatusInternalServerError {
		a.logger.Error("message processing failed",
			observability.String("provider", provider.Name()),
			observability.String("type", msgType),
			observability.Error(err),
		)
	} else {
		a.logger.Debug("message rejected",
			observability.String("provider", provider.Name()),
			observability.String("type", msgType),
			observability.Int("status", status),
			observability.Error(err),
		)
	}

	observability.SpanLogError(observability.SpanFromContext(c.Request.Context()), err)
	a.metrics.MessagesReceivedTotal.WithLabelValues(provider.Name(), msgType, outcome).Inc()

	c.AbortWithStatusJSON(status, gin.H{"error": publicMessage(err, status)})
}

// publicMessage keeps internal failure detail out of 5xx responses.
func publicMessage(err error, status int) string {
	if status >= http.StatusInternalServerError {
		return "internal server error"
	}

	return err.Error()
}
