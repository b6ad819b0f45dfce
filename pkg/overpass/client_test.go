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

package overpass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/sightgrid/pkg/logger"
	"github.com/carverauto/sightgrid/pkg/models"
)

var testRegion = models.Region{South: 40.5, North: 40.9, West: -74.3, East: -73.7}

// newTestClient points the client at the test server and replaces the
// sleeper with a recorder so retries are instantaneous.
func newTestClient(t *testing.T, endpoint string) (*Client, *[]time.Duration) {
	t.Helper()

	client := NewClient(Config{Endpoint: endpoint}, logger.NewTestLogger())

	slept := &[]time.Duration{}
	client.sleep = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}

	return client, slept
}

func elementsBody(t *testing.T, w http.ResponseWriter) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	_, err := w.Write([]byte(`{"elements":[
		{"type":"node","id":101,"lat":40.7,"lon":-74.0,"tags":{"man_made":"surveillance"}},
		{"type":"way","id":202,"center":{"lat":40.6,"lon":-74.1},"tags":{"man_made":"surveillance"}}
	]}`))
	require.NoError(t, err)
}

func TestQuerySuccess(t *testing.T) {
	var gotQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.PostFormValue("data")
		elementsBody(t, w)
	}))
	defer srv.Close()

	client, slept := newTestClient(t, srv.URL)

	elements, err := client.Query(context.Background(), testRegion)
	require.NoError(t, err)
	require.Len(t, elements, 2)

	assert.Equal(t, "node_101", elements[0].ExternalID())
	assert.Equal(t, "way_202", elements[1].ExternalID())

	lat, lon, ok := elements[1].Coordinates()
	require.True(t, ok)
	assert.Equal(t, 40.6, lat)
	assert.Equal(t, -74.1, lon)

	// Query covers nodes, ways and relations with the bbox in
	// south,west,north,east order.
	assert.Contains(t, gotQuery, `node["man_made"="surveillance"](40.5,-74.3,40.9,-73.7)`)
	assert.Contains(t, gotQuery, `way["man_made"="surveillance"]`)
	assert.Contains(t, gotQuery, `relation["man_made"="surveillance"]`)
	assert.Contains(t, gotQuery, "out center;")

	assert.Empty(t, *slept)
}

func TestQueryRetriesRateLimitThenSucceeds(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		elementsBody(t, w)
	}))
	defer srv.Close()

	client, slept := newTestClient(t, srv.URL)

	elements, err := client.Query(context.Background(), testRegion)
	require.NoError(t, err)
	assert.Len(t, elements, 2)

	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, *slept)
}

func TestQueryRateLimitExhausted(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, slept := newTestClient(t, srv.URL)

	_, err := client.Query(context.Background(), testRegion)
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))

	// Initial attempt plus three retries, backoff doubling from 5s.
	assert.EqualValues(t, 4, calls.Load())
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}, *slept)
}

func TestQueryServerErrorBackoff(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	client, slept := newTestClient(t, srv.URL)

	_, err := client.Query(context.Background(), testRegion)
	require.ErrorIs(t, err, ErrServerError)

	assert.EqualValues(t, 4, calls.Load())
	assert.Equal(t, []time.Duration{3 * time.Second, 6 * time.Second, 12 * time.Second}, *slept)
}

func TestQueryMalformedBodyRetriesAsNetworkFailure(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"elements": not json`))
	}))
	defer srv.Close()

	client, slept := newTestClient(t, srv.URL)

	_, err := client.Query(context.Background(), testRegion)
	require.ErrorIs(t, err, ErrNetworkError)

	assert.EqualValues(t, 4, calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, *slept)
}

func TestQueryFailsFastOnClientError(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client, slept := newTestClient(t, srv.URL)

	_, err := client.Query(context.Background(), testRegion)
	require.ErrorIs(t, err, errUnexpectedStatusCode)
	assert.False(t, IsRateLimited(err))

	assert.EqualValues(t, 1, calls.Load())
	assert.Empty(t, *slept)
}

func TestQueryPerRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
			elementsBody(t, w)
		}
	}))
	defer srv.Close()

	client, slept := newTestClient(t, srv.URL)
	client.cfg.Timeout = models.Duration(50 * time.Millisecond)

	_, err := client.Query(context.Background(), testRegion)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))

	// The deadline is terminal for the attempt loop, not a retry class.
	assert.Empty(t, *slept)
}

func TestQueryHonorsCallerCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	client.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := client.Query(ctx, testRegion)
	require.ErrorIs(t, err, context.Canceled)
}

func TestQueryRejectsInvalidRegion(t *testing.T) {
	client, _ := newTestClient(t, "http://127.0.0.1:0")

	_, err := client.Query(context.Background(), models.Region{South: 50, North: 40, West: 0, East: 1})
	assert.Error(t, err)
}

func TestConfigValidateDefaults(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://overpass-api.de/api/interpreter", cfg.Endpoint)
	assert.Equal(t, models.Duration(10*time.Second), cfg.Timeout)
}

func TestBackoffDelayCaps(t *testing.T) {
	tests := []struct {
		name    string
		class   failureClass
		attempt int
		want    time.Duration
	}{
		{"rate limit first", failureRateLimit, 0, 5 * time.Second},
		{"rate limit capped", failureRateLimit, 4, 30 * time.Second},
		{"server first", failureServer, 0, 3 * time.Second},
		{"server capped", failureServer, 3, 20 * time.Second},
		{"network first", failureNetwork, 0, 2 * time.Second},
		{"network capped", failureNetwork, 5, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, backoffDelay(tt.class, tt.attempt))
		})
	}
}
