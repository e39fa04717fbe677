package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/christian289/postalert/pkg/tasks"
)

// Deliverer POSTs combined push payloads to their destination URLs. It is
// registered on the task worker, so transport failures surface to the
// queue's retry policy instead of being retried inline.
type Deliverer struct {
	client *http.Client
}

// NewDeliverer creates a Deliverer with a pooled HTTP client.
func NewDeliverer(cfg Config) *Deliverer {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Deliverer{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// NewDelivererWithClient creates a Deliverer with a custom HTTP client,
// for tests and custom transports.
func NewDelivererWithClient(client *http.Client) *Deliverer {
	if client == nil {
		return NewDeliverer(Config{})
	}
	return &Deliverer{client: client}
}

// Handler returns the task handler performing deliveries.
func (d *Deliverer) Handler() tasks.Handler {
	return tasks.NewHandler(TaskKind, d.deliver)
}

func (d *Deliverer) deliver(ctx context.Context, delivery Delivery) error {
	body, err := json.Marshal(delivery.Payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, delivery.PushURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request to %s: %w", delivery.PushURL, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to push server %s: %w", delivery.PushURL, err)
	}
	defer resp.Body.Close()

	// Drain so the connection returns to the pool.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s answered %d", ErrDeliveryFailed, delivery.PushURL, resp.StatusCode)
	}
	return nil
}
