// Package narrative forwards finished decisions to the external
// narrative-generation service. Delivery is advisory: a decision is
// complete and persisted before dispatch, so failures are logged and
// dropped, never propagated.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"example.com/advisor/internal/domain"
)

// Client posts decision payloads to the narrative service.
type Client struct {
	url     string
	client  *http.Client
	timeout time.Duration
	log     zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient builds a Client. url is the narrative service endpoint;
// timeout bounds each individual delivery attempt.
func NewClient(url string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dispatch sends the decision in a background goroutine. It returns
// immediately; the decision pipeline never waits on the narrative service.
func (c *Client) Dispatch(decision domain.DecisionResult) {
	go c.deliver(decision)
}

func (c *Client) deliver(decision domain.DecisionResult) {
	payload, err := json.Marshal(decision)
	if err != nil {
		c.log.Error().Err(err).Str("decision_id", decision.ID).Msg("failed to encode narrative payload")
		return
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		return c.post(payload)
	}

	if err := backoff.Retry(operation, policy); err != nil {
		c.log.Warn().
			Err(err).
			Str("decision_id", decision.ID).
			Str("user_id", decision.UserID).
			Msg("narrative dispatch abandoned")
		return
	}

	c.log.Debug().Str("decision_id", decision.ID).Msg("narrative dispatched")
}

func (c *Client) post(payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("narrative service returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		// Client errors will not heal on retry.
		return backoff.Permanent(fmt.Errorf("narrative service returned %d", resp.StatusCode))
	}
	return nil
}
