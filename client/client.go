// Package client is the daemon's counterpart library: a synchronous,
// retrying, circuit-breaking connection to the pool daemon's IPC socket,
// with an optional per-message result cache and a bounded-concurrency
// batch sender.
package client

import (
	"errors"
	"fmt"
	"time"
)

// ErrCircuitOpen is returned when an endpoint's breaker is tripped and
// the open window has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit_open")

// Options configures a Client. Zero values fall back to the wire
// contract's documented defaults.
type Options struct {
	SocketPath string

	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration

	CircuitBreaker bool
	CBThreshold    int
	CBTimeout      time.Duration

	CacheEnabled bool
	CacheTTL     time.Duration
}

func (o Options) withDefaults() Options {
	if o.SocketPath == "" {
		o.SocketPath = "/tmp/socket_pool_service.sock"
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 200 * time.Millisecond
	}
	if o.CBThreshold <= 0 {
		o.CBThreshold = 3
	}
	if o.CBTimeout <= 0 {
		o.CBTimeout = 30 * time.Second
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 10 * time.Second
	}
	return o
}

// Client is the application-facing handle to the pool daemon.
type Client struct {
	socketPath    string
	timeout       time.Duration
	retryAttempts int
	retryDelay    time.Duration

	breakerEnabled bool
	breakers       *breakerRegistry

	cache *resultCache
}

// New builds a Client from Options, applying documented defaults for any
// zero field.
func New(opts Options) *Client {
	opts = opts.withDefaults()
	c := &Client{
		socketPath:     opts.SocketPath,
		timeout:        opts.Timeout,
		retryAttempts:  opts.RetryAttempts,
		retryDelay:     opts.RetryDelay,
		breakerEnabled: opts.CircuitBreaker,
	}
	if opts.CircuitBreaker {
		c.breakers = newBreakerRegistry(opts.CBThreshold, opts.CBTimeout)
	}
	if opts.CacheEnabled {
		c.cache = newResultCache(opts.CacheTTL)
	}
	return c
}

// SendGPS sends message to host:port, honoring the per-endpoint circuit
// breaker and, if enabled, the result cache.
func (c *Client) SendGPS(host string, port int, message, vehicleID string) (SendGPSResult, error) {
	endpoint := fmt.Sprintf("%s:%d", host, port)

	var key string
	if c.cache != nil {
		key = cacheKey(host, port, message)
		if cached, ok := c.cache.get(key); ok {
			return cached, nil
		}
	}

	var breaker *circuitBreaker
	if c.breakerEnabled {
		breaker = c.breakers.get(endpoint)
		if !breaker.allow() {
			return SendGPSResult{}, ErrCircuitOpen
		}
	}

	resp, err := c.doRequest(request{Action: "send_gps", Host: host, Port: port, Message: message, VehicleID: vehicleID})
	if err != nil {
		if breaker != nil {
			breaker.recordFailure()
		}
		return SendGPSResult{}, err
	}
	if breaker != nil {
		breaker.recordSuccess()
	}

	var result SendGPSResult
	if err := decodeInto(resp.Data, &result); err != nil {
		return SendGPSResult{}, err
	}
	if c.cache != nil {
		c.cache.put(key, result)
	}
	return result, nil
}

// GetStats retrieves the daemon's pool and per-endpoint counters.
func (c *Client) GetStats() (StatsResult, error) {
	resp, err := c.doRequest(request{Action: "get_stats"})
	if err != nil {
		return StatsResult{}, err
	}
	var result StatsResult
	return result, decodeInto(resp.Data, &result)
}

// HealthCheck reports whether the daemon and its optional dependencies
// are healthy.
func (c *Client) HealthCheck() error {
	resp, err := c.doRequest(request{Action: "health_check"})
	if err != nil {
		return err
	}
	if status, ok := resp.Data.(map[string]interface{})["status"].(string); !ok || status != "healthy" {
		return fmt.Errorf("daemon reported unhealthy status")
	}
	return nil
}

// CloseConnection asks the daemon to drop its pooled entry for host:port.
func (c *Client) CloseConnection(host string, port int) error {
	_, err := c.doRequest(request{Action: "close_connection", Host: host, Port: port})
	return err
}
