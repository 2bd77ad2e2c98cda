package health

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

const dialTimeout = 2 * time.Second

// RedisCheck probes the tenant cache with a PING.
func RedisCheck(client redis.UniversalClient) CheckFunc {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}

		return nil
	}
}

// KafkaCheck probes broker reachability with a TCP dial. At least one
// broker must accept a connection.
func KafkaCheck(brokers []string) CheckFunc {
	return func(ctx context.Context) error {
		var lastErr error

		dialer := &net.Dialer{Timeout: dialTimeout}
		for _, broker := range brokers {
			conn, err := dialer.DialContext(ctx, "tcp", broker)
			if err != nil {
				lastErr = err

				continue
			}

			_ = conn.Close()

			return nil
		}

		if lastErr == nil {
			lastErr = fmt.Errorf("no brokers configured")
		}

		return fmt.Errorf("no kafka broker reachable: %w", lastErr)
	}
}
