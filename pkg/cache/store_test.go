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

package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/sightgrid/pkg/logger"
	"github.com/carverauto/sightgrid/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(Config{Path: filepath.Join(t.TempDir(), "cache.db")}, logger.NewTestLogger())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func floatPtr(v float64) *float64 { return &v }

func testDevice(id string, lat, lon float64) *models.Device {
	return &models.Device{
		ID:        id,
		Category:  models.CategoryALPR,
		Latitude:  floatPtr(lat),
		Longitude: floatPtr(lon),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func TestReplaceAllFullRefresh(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.True(t, store.ReplaceAll(ctx, []*models.Device{
		testDevice("a", 1, 2),
		testDevice("b", 3, 4),
	}, true))

	require.True(t, store.ReplaceAll(ctx, []*models.Device{
		testDevice("c", 5, 6),
	}, true))

	devices := store.GetAll(ctx)
	require.Len(t, devices, 1)
	assert.Equal(t, "c", devices[0].ID)

	meta := store.Metadata(ctx)
	require.NotNil(t, meta)
	assert.Equal(t, 1, meta.DeviceCount)
}

func TestReplaceAllIncrementalReconciliation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.True(t, store.ReplaceAll(ctx, []*models.Device{
		testDevice("a", 1, 2),
		testDevice("b", 3, 4),
		testDevice("c", 5, 6),
	}, true))

	// Incremental set drops "b" and adds "d": upserts plus deletion of
	// the absent record.
	require.True(t, store.ReplaceAll(ctx, []*models.Device{
		testDevice("a", 1, 2),
		testDevice("c", 5, 6),
		testDevice("d", 7, 8),
	}, false))

	devices := store.GetAll(ctx)
	ids := make([]string, 0, len(devices))

	for _, d := range devices {
		ids = append(ids, d.ID)
	}

	assert.ElementsMatch(t, []string{"a", "c", "d"}, ids)
}

func TestReplaceAllFiltersMalformedRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.True(t, store.ReplaceAll(ctx, []*models.Device{
		testDevice("ok", 10, 20),
		{ID: "no-coords"},
	}, true))

	devices := store.GetAll(ctx)
	require.Len(t, devices, 1)
	assert.Equal(t, "ok", devices[0].ID)

	meta := store.Metadata(ctx)
	require.NotNil(t, meta)
	assert.Equal(t, 1, meta.DeviceCount)
}

func TestReplaceAllEmptyInput(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.True(t, store.ReplaceAll(ctx, []*models.Device{testDevice("a", 1, 2)}, true))

	// Empty full refresh clears the store.
	require.True(t, store.ReplaceAll(ctx, nil, true))
	assert.Empty(t, store.GetAll(ctx))

	meta := store.Metadata(ctx)
	require.NotNil(t, meta)
	assert.Equal(t, 0, meta.DeviceCount)
}

func TestGetInBoundsInclusive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.True(t, store.ReplaceAll(ctx, []*models.Device{
		testDevice("inside", 15, 35),
		testDevice("south-edge", 10, 35),
		testDevice("northeast-corner", 20, 40),
		testDevice("outside-lat", 9.99, 35),
		testDevice("outside-lon", 15, 40.01),
	}, true))

	region := models.Region{South: 10, North: 20, West: 30, East: 40}

	devices := store.GetInBounds(ctx, region)
	ids := make([]string, 0, len(devices))

	for _, d := range devices {
		ids = append(ids, d.ID)
	}

	assert.ElementsMatch(t, []string{"inside", "south-edge", "northeast-corner"}, ids)
}

func TestUpsertOne(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.True(t, store.UpsertOne(ctx, testDevice("a", 1, 2)))

	// Overwrite with new coordinates.
	require.True(t, store.UpsertOne(ctx, testDevice("a", 9, 9)))

	devices := store.GetAll(ctx)
	require.Len(t, devices, 1)
	assert.Equal(t, 9.0, *devices[0].Latitude)

	// Records without coordinates are rejected.
	assert.False(t, store.UpsertOne(ctx, &models.Device{ID: "bad"}))
	assert.False(t, store.UpsertOne(ctx, nil))
}

func TestIsStaleThreshold(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// No metadata: unconditionally stale.
	assert.True(t, store.IsStale(ctx))

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	require.True(t, store.ReplaceAll(ctx, []*models.Device{testDevice("a", 1, 2)}, true))

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"immediately fresh", base, false},
		{"one hour later", base.Add(time.Hour), false},
		{"exactly 24h", base.Add(24 * time.Hour), false},
		{"just past 24h", base.Add(24*time.Hour + time.Millisecond), true},
		{"two days later", base.Add(48 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store.now = func() time.Time { return tt.now }
			assert.Equal(t, tt.want, store.IsStale(ctx))
		})
	}
}

func TestClearResetsStoreAndMetadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.True(t, store.ReplaceAll(ctx, []*models.Device{testDevice("a", 1, 2)}, true))
	require.True(t, store.Clear(ctx))

	assert.Empty(t, store.GetAll(ctx))
	assert.Nil(t, store.Metadata(ctx))
	assert.True(t, store.IsStale(ctx))
}

func TestLargeBatchedWrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// More records than one write transaction holds.
	devices := make([]*models.Device, 0, 4500)
	for i := 0; i < 4500; i++ {
		devices = append(devices, testDevice(models.NewDeviceID(), float64(i%90), float64(i%180)))
	}

	require.True(t, store.ReplaceAll(ctx, devices, true))
	assert.Len(t, store.GetAll(ctx), 4500)

	meta := store.Metadata(ctx)
	require.NotNil(t, meta)
	assert.Equal(t, 4500, meta.DeviceCount)
}
