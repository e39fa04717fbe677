package redis

import "errors"

var (
	// ErrFailedToParseRedisConnString marks a malformed connection URL.
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")

	// ErrRedisNotReady is returned when no connection attempt succeeded
	// within the configured budget.
	ErrRedisNotReady = errors.New("redis did not become ready within the given time period")

	// ErrEmptyConnectionURL marks a missing connection URL.
	ErrEmptyConnectionURL = errors.New("empty redis connection URL")

	// ErrHealthcheckFailed wraps a failed PING probe.
	ErrHealthcheckFailed = errors.New("redis healthcheck failed")
)
