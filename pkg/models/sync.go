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

import "time"

// CacheMetadata is the singleton freshness record co-located with the
// local device replica.
type CacheMetadata struct {
	Timestamp   time.Time `json:"timestamp"`
	DeviceCount int       `json:"device_count"`
}

// Stale reports whether the metadata is older than maxAge relative to now.
func (m *CacheMetadata) Stale(now time.Time, maxAge time.Duration) bool {
	if m == nil || m.Timestamp.IsZero() {
		return true
	}

	return now.Sub(m.Timestamp) > maxAge
}

// Progress is an advisory phase/percentage report delivered to UI-facing
// callers during sync and import. It never gates correctness.
type Progress struct {
	Phase   string `json:"phase"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
}

// ProgressFunc receives progress updates. Implementations must be fast;
// they are invoked inline from the pipeline.
type ProgressFunc func(Progress)

// Report invokes the callback if it is non-nil.
func (f ProgressFunc) Report(phase string, current, total int) {
	if f != nil {
		f(Progress{Phase: phase, Current: current, Total: total})
	}
}

// BatchError describes one failed import batch.
type BatchError struct {
	Batch int    `json:"batch"`
	Count int    `json:"count"`
	Err   string `json:"error"`
}

// FailedChunk describes one failed region chunk of a batched geodata query.
type FailedChunk struct {
	Chunk int    `json:"chunk"`
	Err   string `json:"error"`
}

// ImportResult aggregates the outcome of a bulk import. Errors is the sum
// of record counts across failed batches; ErrorsList itemizes them so a
// caller can scope a retry to just the missing data.
type ImportResult struct {
	Total        int           `json:"total"`
	Imported     int           `json:"imported"`
	Skipped      int           `json:"skipped"`
	Errors       int           `json:"errors"`
	ErrorsList   []BatchError  `json:"errors_list,omitempty"`
	FailedChunks []FailedChunk `json:"failed_chunks,omitempty"`
	SkippedIDs   []string      `json:"skipped_ids,omitempty"`
}
