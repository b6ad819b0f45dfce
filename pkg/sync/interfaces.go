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

package sync

import (
	"context"

	"github.com/carverauto/sightgrid/pkg/models"
)

// DeviceCache is the local replica consumed by the synchronizer.
// *cache.Store satisfies it. Failures degrade to bool/empty returns;
// the synchronizer treats them as a cold cache.
type DeviceCache interface {
	ReplaceAll(ctx context.Context, devices []*models.Device, fullRefresh bool) bool
	UpsertOne(ctx context.Context, device *models.Device) bool
	GetAll(ctx context.Context) []*models.Device
	Metadata(ctx context.Context) *models.CacheMetadata
	IsStale(ctx context.Context) bool
	Clear(ctx context.Context) bool
}

// State is the synchronizer lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateBootstrap
	StateFreshFromCache
	StateRebuilding
	StateStreaming
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBootstrap:
		return "bootstrap"
	case StateFreshFromCache:
		return "fresh_from_cache"
	case StateRebuilding:
		return "rebuilding"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
