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

package models

import (
	"errors"
	"fmt"
)

var errInvalidRegion = errors.New("invalid region: requires south <= north and west <= east")

// Region is a geographic bounding box in degrees.
type Region struct {
	South float64 `json:"south"`
	North float64 `json:"north"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

func (r Region) Validate() error {
	if r.South > r.North || r.West > r.East {
		return fmt.Errorf("%w: got %+v", errInvalidRegion, r)
	}

	return nil
}

// Contains reports whether the coordinate falls within the region.
// All four bounds are inclusive.
func (r Region) Contains(lat, lon float64) bool {
	return lat >= r.South && lat <= r.North && lon >= r.West && lon <= r.East
}

// Split partitions the region into an n x n grid of equal-sized
// sub-regions by linear interpolation, ordered row-major from the
// southwest corner. Adjacent cells share edges; their union reconstructs
// the original region exactly. n < 1 is treated as 1.
func (r Region) Split(n int) []Region {
	if n < 1 {
		n = 1
	}

	latStep := (r.North - r.South) / float64(n)
	lonStep := (r.East - r.West) / float64(n)

	regions := make([]Region, 0, n*n)

	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			sub := Region{
				South: r.South + float64(row)*latStep,
				West:  r.West + float64(col)*lonStep,
			}

			// Derive the far corners from the next grid line rather than
			// adding the step, so the outermost edges match the original
			// bounds without float drift.
			if row == n-1 {
				sub.North = r.North
			} else {
				sub.North = r.South + float64(row+1)*latStep
			}

			if col == n-1 {
				sub.East = r.East
			} else {
				sub.East = r.West + float64(col+1)*lonStep
			}

			regions = append(regions, sub)
		}
	}

	return regions
}
