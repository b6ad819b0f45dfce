/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package overpass queries an Overpass-style geodata API for surveillance
// devices within a bounding box, with bounded retry on transient failure
// and grid chunking for large regions.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carverauto/sightgrid/pkg/logger"
	"github.com/carverauto/sightgrid/pkg/models"
)

const (
	defaultRequestTimeout = 10 * time.Second

	// One initial attempt plus maxRetries re-issues per failure class.
	maxRetries = 3

	rateLimitBackoffBase = 5 * time.Second
	rateLimitBackoffCap  = 30 * time.Second
	serverBackoffBase    = 3 * time.Second
	serverBackoffCap     = 20 * time.Second
	networkBackoffBase   = 2 * time.Second
	networkBackoffCap    = 10 * time.Second
)

// Config describes the geodata endpoint.
type Config struct {
	Endpoint string          `json:"endpoint"`
	Timeout  models.Duration `json:"timeout"` // per-request timeout, default 10s
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		c.Endpoint = "https://overpass-api.de/api/interpreter"
	}

	if c.Timeout == 0 {
		c.Timeout = models.Duration(defaultRequestTimeout)
	}

	return nil
}

// Client queries the Overpass API. The query call has no side effects, so
// every retry re-issues the identical request.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     logger.Logger

	// sleep is swapped out in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates an Overpass client.
func NewClient(cfg Config, log logger.Logger) *Client {
	_ = cfg.Validate()

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     log,
		sleep:      sleepContext,
	}
}

// buildQuery renders the Overpass QL payload for surveillance devices
// inside the bounding box.
func buildQuery(region models.Region) string {
	bbox := fmt.Sprintf("%g,%g,%g,%g", region.South, region.West, region.North, region.East)

	var b strings.Builder

	b.WriteString("[out:json][timeout:25];\n(\n")

	for _, kind := range []string{"node", "way", "relation"} {
		fmt.Fprintf(&b, "  %s[\"man_made\"=\"surveillance\"](%s);\n", kind, bbox)
	}

	b.WriteString(");\nout center;")

	return b.String()
}

type failureClass int

const (
	failureNone failureClass = iota
	failureRateLimit
	failureServer
	failureNetwork
	failurePermanent
)

// Query fetches all surveillance elements within the region. It retries
// transient failures with per-class exponential backoff and fails only
// after exhausting the retry budget. A per-request timeout (distinct from
// the backoff timers) surfaces as ErrQueryTimeout so the caller can
// choose between degrading to an empty result and retrying.
func (c *Client) Query(ctx context.Context, region models.Region) ([]Element, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}

	payload := buildQuery(region)

	for attempt := 0; ; attempt++ {
		elements, class, err := c.doQuery(ctx, payload)

		switch class {
		case failureNone:
			return elements, nil
		case failurePermanent:
			return nil, err
		}

		if attempt >= maxRetries {
			return nil, exhaustedError(class, err)
		}

		delay := backoffDelay(class, attempt)

		c.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("Overpass query failed, backing off")

		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return nil, sleepErr
		}
	}
}

// doQuery issues one attempt and classifies the outcome.
func (c *Client) doQuery(ctx context.Context, payload string) ([]Element, failureClass, error) {
	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Timeout))
	defer cancel()

	form := url.Values{}
	form.Set("data", payload)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.Endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, failurePermanent, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The per-request deadline is a policy boundary of its own, not a
		// retryable network blip.
		if reqCtx.Err() != nil && ctx.Err() == nil {
			return nil, failurePermanent, fmt.Errorf("%w: %v", ErrQueryTimeout, err)
		}

		if ctx.Err() != nil {
			return nil, failurePermanent, ctx.Err()
		}

		return nil, failureNetwork, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return nil, failureRateLimit, fmt.Errorf("%w: %d", errUnexpectedStatusCode, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, failureServer, fmt.Errorf("%w: %d", errUnexpectedStatusCode, resp.StatusCode)
	default:
		return nil, failurePermanent, fmt.Errorf("%w: %d", errUnexpectedStatusCode, resp.StatusCode)
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, failureNetwork, fmt.Errorf("failed to decode response: %w", err)
	}

	return decoded.Elements, failureNone, nil
}

// backoffDelay doubles the class base per retry, capped per class.
func backoffDelay(class failureClass, attempt int) time.Duration {
	var base, limit time.Duration

	switch class {
	case failureRateLimit:
		base, limit = rateLimitBackoffBase, rateLimitBackoffCap
	case failureServer:
		base, limit = serverBackoffBase, serverBackoffCap
	default:
		base, limit = networkBackoffBase, networkBackoffCap
	}

	delay := base << attempt
	if delay > limit {
		delay = limit
	}

	return delay
}

func exhaustedError(class failureClass, cause error) error {
	switch class {
	case failureRateLimit:
		return fmt.Errorf("%w: %v", ErrRateLimitExceeded, cause)
	case failureServer:
		return fmt.Errorf("%w: %v", ErrServerError, cause)
	default:
		return fmt.Errorf("%w: %v", ErrNetworkError, cause)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
