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
	"fmt"

	"github.com/carverauto/sightgrid/pkg/models"
)

// LatLon is a plain coordinate pair.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Element is one record in the Overpass response envelope. Nodes carry
// lat/lon directly; ways and relations carry a center-of-geometry.
type Element struct {
	Type   string            `json:"type"` // node, way or relation
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *LatLon           `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// ExternalID is the element's identifier in the source system, used to
// deduplicate across overlapping chunk queries and to derive the
// deterministic local document id.
func (e *Element) ExternalID() string {
	return fmt.Sprintf("%s_%d", e.Type, e.ID)
}

// Coordinates resolves the element's position: a direct point for nodes,
// otherwise the center of geometry. ok is false when neither is present.
func (e *Element) Coordinates() (lat, lon float64, ok bool) {
	if e.Lat != nil && e.Lon != nil {
		return *e.Lat, *e.Lon, true
	}

	if e.Center != nil {
		return e.Center.Lat, e.Center.Lon, true
	}

	return 0, 0, false
}

type queryResponse struct {
	Elements []Element `json:"elements"`
}

// ChunkedResult is the outcome of a chunked region query: deduplicated
// elements plus the chunks that failed permanently. Partial success is a
// first-class outcome, not an error state.
type ChunkedResult struct {
	Elements     []Element
	FailedChunks []models.FailedChunk
}
