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

// Package importer turns deduplicated external geodata records into
// store-ready device records and commits them in fixed-size batches.
package importer

import (
	"context"
	"time"

	"github.com/carverauto/sightgrid/pkg/logger"
	"github.com/carverauto/sightgrid/pkg/models"
	"github.com/carverauto/sightgrid/pkg/overpass"
	"github.com/carverauto/sightgrid/pkg/remote"
)

const (
	defaultBatchPause = 100 * time.Millisecond
)

// RegionQuerier is the chunked geodata query consumed by the importer.
type RegionQuerier interface {
	QueryBatched(ctx context.Context, region models.Region, n int, progress models.ProgressFunc) (*overpass.ChunkedResult, error)
}

// Config controls the import pipeline.
type Config struct {
	GridSize   int             `json:"grid_size"`   // n for the n x n region split, default 3
	BatchSize  int             `json:"batch_size"`  // records per remote batch, default/max 500
	BatchPause models.Duration `json:"batch_pause"` // pause between batches, default 100ms
}

func (c *Config) Validate() error {
	if c.GridSize < 1 {
		c.GridSize = overpass.DefaultGridSize
	}

	if c.BatchSize <= 0 || c.BatchSize > remote.MaxBatchSize {
		c.BatchSize = remote.MaxBatchSize
	}

	if c.BatchPause == 0 {
		c.BatchPause = models.Duration(defaultBatchPause)
	}

	return nil
}

// Importer orchestrates the bulk import: chunked query, conversion,
// batched durable commit. Once started, an import runs to completion;
// partial failure is reported in the result, not raised.
type Importer struct {
	remote  remote.Store
	querier RegionQuerier
	cfg     Config
	logger  logger.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an importer.
func New(remoteStore remote.Store, querier RegionQuerier, cfg Config, log logger.Logger) *Importer {
	_ = cfg.Validate()

	return &Importer{
		remote:  remoteStore,
		querier: querier,
		cfg:     cfg,
		logger:  log,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// ImportRegion runs the full pipeline for one bounding box. The returned
// result itemizes skipped inputs, failed chunks and failed batches so a
// caller can scope a retry to just the missing data. Only context
// cancellation returns an error.
func (im *Importer) ImportRegion(ctx context.Context, region models.Region, progress models.ProgressFunc) (*models.ImportResult, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}

	chunked, err := im.querier.QueryBatched(ctx, region, im.cfg.GridSize, progress)
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{
		Total:        len(chunked.Elements),
		FailedChunks: chunked.FailedChunks,
	}

	progress.Report("converting", 0, result.Total)

	devices := make([]*models.Device, 0, len(chunked.Elements))
	now := im.now()

	for i := range chunked.Elements {
		el := &chunked.Elements[i]

		device, ok := Convert(el, now)
		if !ok {
			result.Skipped++
			result.SkippedIDs = append(result.SkippedIDs, el.ExternalID())

			continue
		}

		devices = append(devices, device)
	}

	im.commitBatches(ctx, devices, result, progress)

	im.logger.Info().
		Int("total", result.Total).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Int("errors", result.Errors).
		Int("failed_chunks", len(result.FailedChunks)).
		Msg("Import completed")

	return result, nil
}

// commitBatches writes the converted records in fixed-size batches with a
// short pause between batches. A failed batch is recorded with its index
// and record count and does not abort subsequent batches.
func (im *Importer) commitBatches(ctx context.Context, devices []*models.Device, result *models.ImportResult, progress models.ProgressFunc) {
	if len(devices) == 0 {
		return
	}

	totalBatches := (len(devices) + im.cfg.BatchSize - 1) / im.cfg.BatchSize

	for i := 0; i < totalBatches; i++ {
		start := i * im.cfg.BatchSize
		end := start + im.cfg.BatchSize

		if end > len(devices) {
			end = len(devices)
		}

		batch := devices[start:end]

		progress.Report("storing", i+1, totalBatches)

		if err := im.remote.BatchWrite(ctx, batch); err != nil {
			im.logger.Error().
				Err(err).
				Int("batch", i+1).
				Int("batch_size", len(batch)).
				Msg("Batch write failed, continuing with remaining batches")

			result.Errors += len(batch)
			result.ErrorsList = append(result.ErrorsList, models.BatchError{
				Batch: i + 1,
				Count: len(batch),
				Err:   err.Error(),
			})
		} else {
			result.Imported += len(batch)
		}

		if i < totalBatches-1 {
			if err := im.sleep(ctx, time.Duration(im.cfg.BatchPause)); err != nil {
				return
			}
		}
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
