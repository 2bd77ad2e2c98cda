package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/aviotgw/internal/observability"
	"github.com/vyrodovalexey/aviotgw/internal/tenant"
	"github.com/vyrodovalexey/aviotgw/internal/util"
)

func fastBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		MinRequests: 3,
		FailureRate: 0.5,
	}
}

func TestBreakerTenantClientPassesThrough(t *testing.T) {
	upstream := &countingTenantClient{
		descriptor: &tenant.Descriptor{TenantID: "t1", Enabled: true},
	}
	client := NewBreakerTenantClient(upstream, fastBreakerSettings(), observability.NopLogger())

	descriptor, err := client.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", descriptor.TenantID)
}

func TestBreakerTenantClientOpensOnInfrastructureFailures(t *testing.T) {
	upstream := &countingTenantClient{err: errors.New("connection refused")}
	client := NewBreakerTenantClient(upstream, fastBreakerSettings(), observability.NopLogger())

	for i := 0; i < 5; i++ {
		_, _ = client.Get(context.Background(), "t1")
	}

	_, err := client.Get(context.Background(), "t1")
	require.Error(t, err)
	assert.LessOrEqual(t, upstream.calls, 5, "breaker must stop forwarding once open")
}

func TestBreakerTenantClientIgnoresClientErrors(t *testing.T) {
	upstream := &countingTenantClient{err: util.NewNotFound("no such tenant")}
	client := NewBreakerTenantClient(upstream, fastBreakerSettings(), observability.NopLogger())

	for i := 0; i < 10; i++ {
		_, err := client.Get(context.Background(), "t1")
		require.Error(t, err)
		var ce *util.ClientError
		require.ErrorAs(t, err, &ce, "client errors must surface unchanged, breaker stays closed")
	}
	assert.Equal(t, 10, upstream.calls)
}

type staticRegistrationClient struct {
	err   error
	calls int
}

func (c *staticRegistrationClient) AssertRegistration(
	_ context.Context, _, deviceID string,
) (*RegistrationInfo, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &RegistrationInfo{DeviceID: deviceID}, nil
}

func TestBreakerRegistrationClientPassesThrough(t *testing.T) {
	upstream := &staticRegistrationClient{}
	client := NewBreakerRegistrationClient(upstream, fastBreakerSettings(), observability.NopLogger())

	info, err := client.AssertRegistration(context.Background(), "t1", "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", info.DeviceID)
}
