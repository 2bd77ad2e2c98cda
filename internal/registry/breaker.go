package registry

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vyrodovalexey/aviotgw/internal/observability"
	"github.com/vyrodovalexey/aviotgw/internal/tenant"
	"github.com/vyrodovalexey/aviotgw/internal/util"
)

// BreakerSettings configures the circuit breakers guarding registry
// lookups.
type BreakerSettings struct {
	MaxRequests uint32        `yaml:"maxRequests"`
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
	MinRequests uint32        `yaml:"minRequests"`
	FailureRate float64       `yaml:"failureRate"`
}

// DefaultBreakerSettings returns conservative breaker defaults.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		MinRequests: 10,
		FailureRate: 0.5,
	}
}

// newBreaker builds a gobreaker instance from the settings. Client
// errors do not count as failures; only infrastructure faults should
// trip the breaker.
func newBreaker(name string, settings BreakerSettings, logger observability.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= settings.FailureRate
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var suppressed *suppressedError
			return asSuppressed(err, &suppressed)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				observability.String("breaker", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
		},
	})
}

// BreakerTenantClient guards a TenantClient with a circuit breaker.
type BreakerTenantClient struct {
	next    TenantClient
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerTenantClient creates a breaker decorator around next.
func NewBreakerTenantClient(next TenantClient, settings BreakerSettings, logger observability.Logger) *BreakerTenantClient {
	return &BreakerTenantClient{
		next:    next,
		breaker: newBreaker("tenant-client", settings, logger),
	}
}

// Get resolves a tenant descriptor through the breaker.
func (c *BreakerTenantClient) Get(ctx context.Context, tenantID string) (*tenant.Descriptor, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		descriptor, err := c.next.Get(ctx, tenantID)
		if err != nil && util.IsClientError(err) {
			// Report the client error without counting it as a failure.
			return (*tenant.Descriptor)(nil), &suppressedError{err}
		}
		return descriptor, err
	})
	if err != nil {
		var suppressed *suppressedError
		if asSuppressed(err, &suppressed) {
			return nil, suppressed.err
		}
		return nil, err
	}
	descriptor, _ := result.(*tenant.Descriptor)
	return descriptor, nil
}

// BreakerRegistrationClient guards a RegistrationClient with a circuit
// breaker.
type BreakerRegistrationClient struct {
	next    RegistrationClient
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerRegistrationClient creates a breaker decorator around next.
func NewBreakerRegistrationClient(
	next RegistrationClient, settings BreakerSettings, logger observability.Logger,
) *BreakerRegistrationClient {
	return &BreakerRegistrationClient{
		next:    next,
		breaker: newBreaker("registration-client", settings, logger),
	}
}

// AssertRegistration asserts a device registration through the breaker.
func (c *BreakerRegistrationClient) AssertRegistration(
	ctx context.Context, tenantID, deviceID string,
) (*RegistrationInfo, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		info, err := c.next.AssertRegistration(ctx, tenantID, deviceID)
		if err != nil && util.IsClientError(err) {
			return (*RegistrationInfo)(nil), &suppressedError{err}
		}
		return info, err
	})
	if err != nil {
		var suppressed *suppressedError
		if asSuppressed(err, &suppressed) {
			return nil, suppressed.err
		}
		return nil, err
	}
	info, _ := result.(*RegistrationInfo)
	return info, nil
}

// suppressedError carries a client error through gobreaker without it
// counting toward the failure rate.
type suppressedError struct {
	err error
}

func (e *suppressedError) Error() string {
	return e.err.Error()
}

func asSuppressed(err error, target **suppressedError) bool {
	se, ok := err.(*suppressedError)
	if ok {
		*target = se
	}
	return ok
}

var (
	_ TenantClient       = (*BreakerTenantClient)(nil)
	_ RegistrationClient = (*BreakerRegistrationClient)(nil)
)
