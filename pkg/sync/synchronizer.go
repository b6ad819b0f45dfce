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

// Package sync keeps the local device replica consistent with the remote
// store: a one-time bootstrap (trust the cache or rebuild it) followed by
// a live change subscription.
package sync

import (
	"context"
	"fmt"
	"sync"

	"github.com/carverauto/sightgrid/pkg/logger"
	"github.com/carverauto/sightgrid/pkg/models"
	"github.com/carverauto/sightgrid/pkg/remote"
)

// Synchronizer orchestrates the bootstrap-then-stream lifecycle. At most
// one bootstrap runs per synchronizer lifetime and at most one live
// subscription is active at a time.
type Synchronizer struct {
	remote remote.Store
	cache  DeviceCache
	logger logger.Logger

	progress  models.ProgressFunc
	onDevices func([]*models.Device)

	mu           sync.Mutex
	state        State
	bootstrapped bool
	cancelSub    remote.CancelFunc
	ctx          context.Context
}

// New creates a synchronizer over the given remote store and local cache.
func New(remoteStore remote.Store, deviceCache DeviceCache, log logger.Logger) *Synchronizer {
	return &Synchronizer{
		remote: remoteStore,
		cache:  deviceCache,
		logger: log,
		state:  StateIdle,
	}
}

// OnDevices registers the consumer that receives the full device set
// after bootstrap and after every delta batch. Must be called before
// Start.
func (s *Synchronizer) OnDevices(fn func([]*models.Device)) {
	s.onDevices = fn
}

// OnProgress registers an advisory progress callback. Progress reports
// never gate correctness.
func (s *Synchronizer) OnProgress(fn models.ProgressFunc) {
	s.progress = fn
}

// State returns the current lifecycle state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Start runs bootstrap and attaches the live subscription. The guard flag
// makes a second Start a no-op, so an upstream ready signal firing more
// than once cannot trigger a duplicate bootstrap.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.bootstrapped {
		s.mu.Unlock()
		s.logger.Debug().Msg("Bootstrap already ran, ignoring duplicate start")

		return nil
	}

	s.bootstrapped = true
	s.state = StateBootstrap
	s.ctx = ctx
	s.mu.Unlock()

	if err := s.bootstrap(ctx); err != nil {
		return err
	}

	return s.attach(ctx)
}

// Refresh forces a full rebuild: it cancels the active subscription,
// clears the cache, refetches everything and re-attaches. The existing
// subscription is always cancelled before a new one starts.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()

	if s.cancelSub != nil {
		s.cancelSub()
		s.cancelSub = nil
	}

	s.state = StateRebuilding
	s.ctx = ctx
	s.mu.Unlock()

	if !s.cache.Clear(ctx) {
		s.logger.Warn().Msg("Cache clear failed during forced refresh, continuing")
	}

	if err := s.rebuild(ctx); err != nil {
		return err
	}

	return s.attach(ctx)
}

// Stop cancels the live subscription. Safe to call multiple times; this
// is the synchronizer's only mandatory cancellation point.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelSub != nil {
		s.cancelSub()
		s.cancelSub = nil
	}

	s.state = StateStopped
	s.logger.Info().Msg("Synchronizer stopped")
}

// bootstrap decides whether to trust the local cache or rebuild it.
func (s *Synchronizer) bootstrap(ctx context.Context) error {
	meta := s.cache.Metadata(ctx)

	if !s.cache.IsStale(ctx) && meta != nil && meta.DeviceCount > 0 {
		s.setState(StateFreshFromCache)
		s.logger.Info().
			Int("device_count", meta.DeviceCount).
			Time("synced_at", meta.Timestamp).
			Msg("Cache is fresh, serving cached records")

		s.publish(s.cache.GetAll(ctx))

		return nil
	}

	s.setState(StateRebuilding)

	return s.rebuild(ctx)
}

// rebuild performs the full remote fetch and replaces the cache contents.
func (s *Synchronizer) rebuild(ctx context.Context) error {
	s.progress.Report("connecting", 0, 0)
	s.progress.Report("fetching", 0, 0)

	devices, err := s.remote.FetchAll(ctx, 0)
	if err != nil {
		return fmt.Errorf("full remote fetch failed: %w", err)
	}

	s.progress.Report("processing", 0, len(devices))

	eligible := models.FilterCacheEligible(devices)

	s.progress.Report("storing", 0, len(eligible))

	if !s.cache.ReplaceAll(ctx, eligible, true) {
		// Storage failure degrades to operating without a cache; the
		// fetched data still reaches consumers.
		s.logger.Warn().Int("devices", len(eligible)).Msg("Cache write failed, operating without local cache")
	}

	s.logger.Info().
		Int("fetched", len(devices)).
		Int("cached", len(eligible)).
		Msg("Rebuilt local cache from remote store")

	s.publish(eligible)

	return nil
}

// attach starts the live subscription. Exactly one subscription may be
// active; callers cancel any existing one first.
func (s *Synchronizer) attach(ctx context.Context) error {
	cancel, err := s.remote.SubscribeAll(ctx, s.handleDelta, s.handleSubscriptionError)
	if err != nil {
		return fmt.Errorf("failed to attach change subscription: %w", err)
	}

	s.mu.Lock()
	s.cancelSub = cancel
	s.state = StateStreaming
	s.mu.Unlock()

	s.logger.Info().Msg("Live change subscription attached")

	return nil
}

// handleDelta upserts each valid changed record, then re-reads and
// republishes the full cached set. The republish trades redundant reads
// for tolerance of out-of-order delta batches: a delta lost to a
// concurrent full refresh is restored within one round trip.
func (s *Synchronizer) handleDelta(batch []*models.Device) {
	ctx := s.deltaContext()

	eligible := models.FilterCacheEligible(batch)

	for _, d := range eligible {
		if !s.cache.UpsertOne(ctx, d) {
			s.logger.Warn().Str("device_id", d.ID).Msg("Failed to cache delta record")
		}
	}

	if len(eligible) < len(batch) {
		s.logger.Debug().
			Int("filtered", len(batch)-len(eligible)).
			Msg("Dropped delta records without valid coordinates")
	}

	s.publish(s.cache.GetAll(ctx))
}

func (s *Synchronizer) handleSubscriptionError(err error) {
	s.logger.Error().Err(err).Msg("Change subscription error")
}

func (s *Synchronizer) deltaContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return s.ctx
	}

	return context.Background()
}

func (s *Synchronizer) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Synchronizer) publish(devices []*models.Device) {
	if s.onDevices != nil {
		s.onDevices(devices)
	}
}
