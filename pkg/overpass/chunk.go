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
	"time"

	"github.com/carverauto/sightgrid/pkg/models"
)

const (
	// DefaultGridSize splits a region into 3x3 = 9 chunks.
	DefaultGridSize = 3

	// interRequestDelay keeps sequential chunk queries under the
	// upstream service's implicit rate limit. Independent of each
	// query's own retry delays.
	interRequestDelay = 2500 * time.Millisecond

	rateLimitCooldown = 10 * time.Second
	timeoutCooldown   = 5 * time.Second
)

// QueryBatched splits the region into an n x n grid and queries each
// chunk sequentially with a fixed inter-request delay. A failed chunk is
// recorded and the remaining chunks still run; results are merged keyed
// by external identifier, last-write-wins for the duplicates expected at
// grid-cell boundaries. Only context cancellation aborts the loop.
func (c *Client) QueryBatched(ctx context.Context, region models.Region, n int, progress models.ProgressFunc) (*ChunkedResult, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}

	if n < 1 {
		n = DefaultGridSize
	}

	chunks := region.Split(n)
	result := &ChunkedResult{}

	seen := make(map[string]int)

	for i, chunk := range chunks {
		if i > 0 {
			if err := c.sleep(ctx, interRequestDelay); err != nil {
				return result, err
			}
		}

		progress.Report("querying", i+1, len(chunks))

		elements, err := c.Query(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}

			c.logger.Warn().
				Err(err).
				Int("chunk", i).
				Int("chunks", len(chunks)).
				Msg("Chunk query failed, continuing with remaining chunks")

			result.FailedChunks = append(result.FailedChunks, models.FailedChunk{
				Chunk: i,
				Err:   err.Error(),
			})

			if cooldown := failureCooldown(err); cooldown > 0 {
				if sleepErr := c.sleep(ctx, cooldown); sleepErr != nil {
					return result, sleepErr
				}
			}

			continue
		}

		for _, el := range elements {
			key := el.ExternalID()

			if idx, ok := seen[key]; ok {
				result.Elements[idx] = el
				continue
			}

			seen[key] = len(result.Elements)
			result.Elements = append(result.Elements, el)
		}
	}

	c.logger.Info().
		Int("chunks", len(chunks)).
		Int("failed_chunks", len(result.FailedChunks)).
		Int("unique_elements", len(result.Elements)).
		Msg("Chunked query completed")

	return result, nil
}

// failureCooldown returns the extra pause inserted after a failed chunk
// before moving on: rate limiting gets a longer cooldown than a timeout.
func failureCooldown(err error) time.Duration {
	switch {
	case IsRateLimited(err):
		return rateLimitCooldown
	case IsTimeout(err):
		return timeoutCooldown
	default:
		return 0
	}
}
