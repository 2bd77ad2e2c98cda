package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// PropertiesCarrier adapts a string map to the OpenTelemetry text map
// carrier contract so trace context can travel inside a downstream
// message's application properties. The same carrier serves both
// directions: the sender injects into it, the consumer extracts from it.
type PropertiesCarrier map[string]string

var _ propagation.TextMapCarrier = PropertiesCarrier{}

// Get returns the value associated with the passed key.
func (c PropertiesCarrier) Get(key string) string {
	return c[key]
}

// Set stores the key-value pair.
func (c PropertiesCarrier) Set(key, value string) {
	c[key] = value
}

// Keys lists the keys stored in this carrier.
func (c PropertiesCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// InjectSpanContext injects the span context from ctx into the carrier
// using the process-wide propagator.
func InjectSpanContext(ctx context.Context, carrier PropertiesCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}

// ExtractSpanContext extracts a span context from the carrier and
// returns a context carrying it. The input context is returned
// unchanged when the carrier holds no trace context.
func ExtractSpanContext(ctx context.Context, carrier PropertiesCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
