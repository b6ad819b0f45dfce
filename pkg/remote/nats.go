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

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/sightgrid/pkg/logger"
	"github.com/carverauto/sightgrid/pkg/models"
)

const voteRetries = 3

// Config describes the NATS-backed remote store.
type Config struct {
	NATSURL string `json:"nats_url"`
	Bucket  string `json:"bucket"`
}

func (c *Config) Validate() error {
	if c.NATSURL == "" {
		c.NATSURL = "nats://localhost:4222"
	}

	if c.Bucket == "" {
		c.Bucket = "devices"
	}

	return nil
}

// NatsStore implements Store on a NATS JetStream KV bucket, one JSON
// document per device keyed by the device ID. The KV watch doubles as
// the live change subscription.
type NatsStore struct {
	nc     *nats.Conn
	kv     jetstream.KeyValue
	logger logger.Logger
}

// NewNatsStore connects to NATS and creates (or binds to) the device
// bucket.
func NewNatsStore(ctx context.Context, cfg Config, log logger.Logger) (*NatsStore, error) {
	_ = cfg.Validate()

	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: cfg.Bucket})
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create KV bucket: %w", err)
	}

	return &NatsStore{
		nc:     nc,
		kv:     kv,
		logger: log,
	}, nil
}

// FetchAll returns every device document, ordered by creation time
// descending. A limit <= 0 fetches everything.
func (n *NatsStore) FetchAll(ctx context.Context, limit int) ([]*models.Device, error) {
	lister, err := n.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []*models.Device{}, nil
		}

		return nil, fmt.Errorf("failed to list device keys: %w", err)
	}

	var devices []*models.Device

	for key := range lister.Keys() {
		entry, err := n.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue
			}

			_ = lister.Stop()

			return nil, fmt.Errorf("failed to get device %s: %w", key, err)
		}

		d, err := decodeDevice(entry.Value())
		if err != nil {
			n.logger.Warn().Err(err).Str("key", key).Msg("Skipping undecodable device document")
			continue
		}

		devices = append(devices, d)
	}

	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].CreatedAt.After(devices[j].CreatedAt)
	})

	if limit > 0 && len(devices) > limit {
		devices = devices[:limit]
	}

	return devices, nil
}

// FetchInBounds is best-effort: it scans the full dataset and filters by
// region, returning an empty slice instead of an error when the store is
// unreachable or the scan times out.
func (n *NatsStore) FetchInBounds(ctx context.Context, region models.Region, maxCount int) ([]*models.Device, error) {
	all, err := n.FetchAll(ctx, 0)
	if err != nil {
		n.logger.Warn().Err(err).Msg("Bounded fetch degraded to empty result")
		return []*models.Device{}, nil
	}

	matched := make([]*models.Device, 0)

	for _, d := range all {
		if !d.HasValidCoordinates() {
			continue
		}

		if region.Contains(*d.Latitude, *d.Longitude) {
			matched = append(matched, d)

			if maxCount > 0 && len(matched) >= maxCount {
				break
			}
		}
	}

	return matched, nil
}

// SubscribeAll watches the device bucket for changes. Updates that arrive
// close together are coalesced into one delivered batch. The returned
// cancel func is synchronous and idempotent.
func (n *NatsStore) SubscribeAll(ctx context.Context, onChange func([]*models.Device), onError func(error)) (CancelFunc, error) {
	subCtx, cancel := context.WithCancel(ctx)

	watcher, err := n.kv.WatchAll(subCtx, jetstream.UpdatesOnly())
	if err != nil {
		cancel()

		return nil, fmt.Errorf("failed to watch device bucket: %w", err)
	}

	go n.handleWatchUpdates(subCtx, watcher, onChange, onError)

	var once sync.Once

	return func() {
		once.Do(func() {
			cancel()

			if err := watcher.Stop(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
				n.logger.Debug().Err(err).Msg("Failed to stop device watcher")
			}
		})
	}, nil
}

func (n *NatsStore) handleWatchUpdates(ctx context.Context, watcher jetstream.KeyWatcher, onChange func([]*models.Device), onError func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-watcher.Updates():
			if !ok {
				return
			}

			if update == nil {
				continue
			}

			batch := n.collectBatch(watcher, update, onError)
			if len(batch) > 0 {
				onChange(batch)
			}
		}
	}
}

// collectBatch decodes the first update and drains any immediately
// available ones so bursts arrive as a single delta batch.
func (n *NatsStore) collectBatch(watcher jetstream.KeyWatcher, first jetstream.KeyValueEntry, onError func(error)) []*models.Device {
	var batch []*models.Device

	appendEntry := func(entry jetstream.KeyValueEntry) {
		if entry.Operation() != jetstream.KeyValuePut {
			return
		}

		d, err := decodeDevice(entry.Value())
		if err != nil {
			if onError != nil {
				onError(err)
			}

			return
		}

		batch = append(batch, d)
	}

	appendEntry(first)

	for {
		select {
		case update, ok := <-watcher.Updates():
			if !ok || update == nil {
				return batch
			}

			appendEntry(update)
		default:
			return batch
		}
	}
}

// BatchWrite writes the batch, one document per device. The size and
// identifier checks run before any network call; violations are caller
// bugs and fail fast.
func (n *NatsStore) BatchWrite(ctx context.Context, devices []*models.Device) error {
	if len(devices) > MaxBatchSize {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(devices), MaxBatchSize)
	}

	for _, d := range devices {
		if d == nil || d.ID == "" {
			return ErrMissingDeviceID
		}
	}

	for _, d := range devices {
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to marshal device %s: %w", d.ID, err)
		}

		if _, err := n.kv.Put(ctx, d.ID, data); err != nil {
			return fmt.Errorf("failed to write device %s: %w", d.ID, err)
		}
	}

	return nil
}

// Vote toggles the voter's membership and counter with a revision-checked
// update, retrying a bounded number of times on concurrent modification.
func (n *NatsStore) Vote(ctx context.Context, kind models.VoteKind, deviceID, voterID string) (*models.VoteResult, error) {
	for attempt := 0; attempt < voteRetries; attempt++ {
		entry, err := n.kv.Get(ctx, deviceID)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
			}

			return nil, fmt.Errorf("failed to read device %s: %w", deviceID, err)
		}

		device, err := decodeDevice(entry.Value())
		if err != nil {
			return nil, fmt.Errorf("failed to decode device %s: %w", deviceID, err)
		}

		result, err := device.ApplyVote(kind, voterID)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(device)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal device %s: %w", deviceID, err)
		}

		if _, err := n.kv.Update(ctx, deviceID, data, entry.Revision()); err != nil {
			// Concurrent writer bumped the revision; re-read and retry.
			n.logger.Debug().Err(err).Str("device_id", deviceID).Msg("Vote update conflicted, retrying")
			continue
		}

		return &result, nil
	}

	return nil, fmt.Errorf("%w: %s", errVoteConflict, deviceID)
}

// Close releases the NATS connection.
func (n *NatsStore) Close() error {
	n.nc.Close()

	return nil
}

func decodeDevice(data []byte) (*models.Device, error) {
	var d models.Device
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}

	return &d, nil
}

// Ensure NatsStore implements the Store contract.
var _ Store = (*NatsStore)(nil)
