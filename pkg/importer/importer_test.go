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

package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/sightgrid/pkg/logger"
	"github.com/carverauto/sightgrid/pkg/models"
	"github.com/carverauto/sightgrid/pkg/overpass"
	"github.com/carverauto/sightgrid/pkg/remote"
)

var importRegion = models.Region{South: 40.5, North: 40.9, West: -74.3, East: -73.7}

// fakeQuerier returns a scripted chunked result without touching the
// network.
type fakeQuerier struct {
	result *overpass.ChunkedResult
	err    error
}

func (f *fakeQuerier) QueryBatched(_ context.Context, _ models.Region, _ int, _ models.ProgressFunc) (*overpass.ChunkedResult, error) {
	return f.result, f.err
}

func newTestImporter(t *testing.T, store remote.Store, querier RegionQuerier) *Importer {
	t.Helper()

	im := New(store, querier, Config{}, logger.NewTestLogger())
	im.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	im.sleep = func(context.Context, time.Duration) error { return nil }

	return im
}

func makeElements(n int) []overpass.Element {
	elements := make([]overpass.Element, 0, n)

	for i := 0; i < n; i++ {
		lat, lon := 40.6, -74.0

		elements = append(elements, overpass.Element{
			Type: "node",
			ID:   int64(i + 1),
			Lat:  &lat,
			Lon:  &lon,
			Tags: map[string]string{"man_made": "surveillance"},
		})
	}

	return elements
}

func TestImportRegionBatchFailureIsContained(t *testing.T) {
	ctrl := gomock.NewController(t)

	// 1200 convertible elements split into batches of 500, 500 and 200;
	// the middle batch fails.
	querier := &fakeQuerier{result: &overpass.ChunkedResult{Elements: makeElements(1200)}}

	store := remote.NewMockStore(ctrl)
	gomock.InOrder(
		store.EXPECT().BatchWrite(gomock.Any(), gomock.Len(500)).Return(nil),
		store.EXPECT().BatchWrite(gomock.Any(), gomock.Len(500)).Return(errors.New("write refused")),
		store.EXPECT().BatchWrite(gomock.Any(), gomock.Len(200)).Return(nil),
	)

	im := newTestImporter(t, store, querier)

	result, err := im.ImportRegion(context.Background(), importRegion, nil)
	require.NoError(t, err)

	assert.Equal(t, 1200, result.Total)
	assert.Equal(t, 700, result.Imported)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 500, result.Errors)

	require.Len(t, result.ErrorsList, 1)
	assert.Equal(t, 2, result.ErrorsList[0].Batch)
	assert.Equal(t, 500, result.ErrorsList[0].Count)
	assert.Contains(t, result.ErrorsList[0].Err, "write refused")
}

func TestImportRegionSkipsElementsWithoutCoordinates(t *testing.T) {
	ctrl := gomock.NewController(t)

	elements := makeElements(3)
	elements = append(elements, overpass.Element{Type: "relation", ID: 900})

	querier := &fakeQuerier{result: &overpass.ChunkedResult{Elements: elements}}

	store := remote.NewMockStore(ctrl)
	store.EXPECT().BatchWrite(gomock.Any(), gomock.Len(3)).Return(nil)

	im := newTestImporter(t, store, querier)

	result, err := im.ImportRegion(context.Background(), importRegion, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []string{"relation_900"}, result.SkippedIDs)
	assert.Zero(t, result.Errors)
}

func TestImportRegionCarriesFailedChunks(t *testing.T) {
	ctrl := gomock.NewController(t)

	querier := &fakeQuerier{result: &overpass.ChunkedResult{
		Elements:     makeElements(2),
		FailedChunks: []models.FailedChunk{{Chunk: 4, Err: "rate limit retries exhausted"}},
	}}

	store := remote.NewMockStore(ctrl)
	store.EXPECT().BatchWrite(gomock.Any(), gomock.Len(2)).Return(nil)

	im := newTestImporter(t, store, querier)

	result, err := im.ImportRegion(context.Background(), importRegion, nil)
	require.NoError(t, err)

	require.Len(t, result.FailedChunks, 1)
	assert.Equal(t, 4, result.FailedChunks[0].Chunk)
	assert.Equal(t, 2, result.Imported)
}

func TestImportRegionEmptyResult(t *testing.T) {
	ctrl := gomock.NewController(t)

	querier := &fakeQuerier{result: &overpass.ChunkedResult{}}

	// No batches are written for an empty element set.
	store := remote.NewMockStore(ctrl)

	im := newTestImporter(t, store, querier)

	result, err := im.ImportRegion(context.Background(), importRegion, nil)
	require.NoError(t, err)

	assert.Zero(t, result.Total)
	assert.Zero(t, result.Imported)
}

func TestImportRegionQueryErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)

	querier := &fakeQuerier{err: context.Canceled}
	store := remote.NewMockStore(ctrl)

	im := newTestImporter(t, store, querier)

	_, err := im.ImportRegion(context.Background(), importRegion, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestImportRegionRejectsInvalidRegion(t *testing.T) {
	ctrl := gomock.NewController(t)

	im := newTestImporter(t, remote.NewMockStore(ctrl), &fakeQuerier{})

	_, err := im.ImportRegion(context.Background(), models.Region{South: 1, North: 0, West: 0, East: 1}, nil)
	assert.Error(t, err)
}

func TestImportRegionReportsProgressPhases(t *testing.T) {
	ctrl := gomock.NewController(t)

	querier := &fakeQuerier{result: &overpass.ChunkedResult{Elements: makeElements(1200)}}

	store := remote.NewMockStore(ctrl)
	store.EXPECT().BatchWrite(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	im := newTestImporter(t, store, querier)

	var phases []models.Progress

	_, err := im.ImportRegion(context.Background(), importRegion, func(p models.Progress) {
		phases = append(phases, p)
	})
	require.NoError(t, err)

	require.Len(t, phases, 4)
	assert.Equal(t, models.Progress{Phase: "converting", Current: 0, Total: 1200}, phases[0])
	assert.Equal(t, models.Progress{Phase: "storing", Current: 1, Total: 3}, phases[1])
	assert.Equal(t, models.Progress{Phase: "storing", Current: 3, Total: 3}, phases[3])
}

func TestImportRegionPausesBetweenBatches(t *testing.T) {
	ctrl := gomock.NewController(t)

	querier := &fakeQuerier{result: &overpass.ChunkedResult{Elements: makeElements(1200)}}

	store := remote.NewMockStore(ctrl)
	store.EXPECT().BatchWrite(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	im := newTestImporter(t, store, querier)

	var slept []time.Duration

	im.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	_, err := im.ImportRegion(context.Background(), importRegion, nil)
	require.NoError(t, err)

	// Pauses between batches, not after the last one.
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, slept)
}

func TestConfigValidateClampsBatchSize(t *testing.T) {
	tests := []struct {
		name string
		in   Config
		want int
	}{
		{"zero defaults to max", Config{}, remote.MaxBatchSize},
		{"above max clamps", Config{BatchSize: 900}, remote.MaxBatchSize},
		{"within range kept", Config{BatchSize: 100}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.in.Validate())
			assert.Equal(t, tt.want, tt.in.BatchSize)

			assert.Equal(t, overpass.DefaultGridSize, tt.in.GridSize)
			assert.Equal(t, models.Duration(100*time.Millisecond), tt.in.BatchPause)
		})
	}
}
