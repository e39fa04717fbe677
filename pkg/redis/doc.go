// Package redis connects the application to Redis, which backs the
// distributed post lock and the delayed-task queue.
//
// It wraps the go-redis client with a retrying Connect and a
// health-check probe; configuration comes from the Config struct, whose
// fields carry env tags for github.com/caarlos0/env parsing.
//
// # Usage
//
//	cfg := redis.Config{
//	    ConnectionURL:  "redis://localhost:6379/0",
//	    RetryAttempts:  3,
//	    RetryInterval:  5 * time.Second,
//	    ConnectTimeout: 30 * time.Second,
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Register a probe in liveness or readiness endpoints:
//
//	check := redis.Healthcheck(client)
//	if err := check(ctx); err != nil {
//	    // redis is not healthy
//	}
//
// # Errors
//
// Failures wrap sentinel errors such as ErrRedisNotReady and
// ErrHealthcheckFailed with errors.Join, so callers can classify them
// with errors.Is while keeping the driver error available for logging.
package redis
