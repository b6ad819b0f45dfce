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

//go:generate mockgen -destination=mock_remote.go -package=remote github.com/carverauto/sightgrid/pkg/remote Store

// Package remote adapts the external document store holding the
// authoritative device dataset. The rest of the pipeline consumes it as
// an opaque read/write/subscribe contract.
package remote

import (
	"context"

	"github.com/carverauto/sightgrid/pkg/models"
)

// MaxBatchSize is the store's hard per-batch operation limit.
const MaxBatchSize = 500

// CancelFunc tears down a live subscription. It is synchronous and
// idempotent; calling it twice or on an already-cancelled subscription is
// a no-op.
type CancelFunc func()

// Store is the remote document store contract consumed by the cache
// synchronizer and the bulk import orchestrator.
type Store interface {
	// FetchAll returns device records ordered by creation time descending.
	// A limit <= 0 fetches everything.
	FetchAll(ctx context.Context, limit int) ([]*models.Device, error)

	// FetchInBounds returns up to maxCount records within the region.
	// Best-effort: returns an empty slice on unsupported-index or timeout
	// conditions rather than an error.
	FetchInBounds(ctx context.Context, region models.Region, maxCount int) ([]*models.Device, error)

	// SubscribeAll attaches a live change subscription. Each delivered
	// batch contains one or more changed records. onError receives
	// subscription-level failures.
	SubscribeAll(ctx context.Context, onChange func([]*models.Device), onError func(error)) (CancelFunc, error)

	// BatchWrite writes up to MaxBatchSize records keyed by their IDs,
	// overwriting on identifier collision. Fails fast before any network
	// call when the batch exceeds the limit or a record has no ID.
	BatchWrite(ctx context.Context, devices []*models.Device) error

	// Vote toggles the voter's membership in the device's voter set for
	// the given kind and adjusts the counter atomically relative to that
	// single document.
	Vote(ctx context.Context, kind models.VoteKind, deviceID, voterID string) (*models.VoteResult, error)

	// Close releases the underlying connection.
	Close() error
}
