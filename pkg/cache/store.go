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

// Package cache provides the durable local replica of the device
// collection, backed by SQLite. Write operations degrade to a boolean
// failure and read operations to an empty result; callers must treat a
// failure as a cold cache, never as a fatal condition.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// Pure Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/carverauto/sightgrid/pkg/logger"
	"github.com/carverauto/sightgrid/pkg/models"
)

const (
	defaultMaxAge    = 24 * time.Hour
	defaultBatchSize = 2000
	busyTimeoutMS    = 5000
)

// Config controls the local cache store.
type Config struct {
	Path      string          `json:"path"`
	MaxAge    models.Duration `json:"max_age"`    // staleness threshold, default 24h
	BatchSize int             `json:"batch_size"` // records per write transaction, default 2000
}

// Store is the SQLite-backed device replica. It is safe for concurrent
// use; SQLite serializes transactions per database.
type Store struct {
	db     *sql.DB
	cfg    Config
	logger logger.Logger
	now    func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS devices (
	id         TEXT PRIMARY KEY,
	category   TEXT NOT NULL,
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL,
	doc        TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_devices_latitude ON devices (latitude);
CREATE INDEX IF NOT EXISTS idx_devices_longitude ON devices (longitude);
CREATE INDEX IF NOT EXISTS idx_devices_category ON devices (category);
CREATE TABLE IF NOT EXISTS cache_meta (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	synced_at    INTEGER NOT NULL,
	device_count INTEGER NOT NULL
);`

// NewStore opens (creating if necessary) the local cache store and its
// secondary indexes. Prefer obtaining a Store through a Manager so the
// process shares a single handle.
func NewStore(cfg Config, log logger.Logger) (*Store, error) {
	if cfg.MaxAge == 0 {
		cfg.MaxAge = models.Duration(defaultMaxAge)
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(%d)",
		cfg.Path, busyTimeoutMS)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return &Store{
		db:     db,
		cfg:    cfg,
		logger: log,
		now:    time.Now,
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceAll writes the given record set. With fullRefresh the store is
// cleared first; otherwise the records are upserted and any previously
// cached record absent from the new set is deleted. Writes happen in
// batched transactions so a large refresh never holds one long lock.
// Finishes by rewriting the cache metadata. Returns false on any storage
// failure.
func (s *Store) ReplaceAll(ctx context.Context, devices []*models.Device, fullRefresh bool) bool {
	eligible := models.FilterCacheEligible(devices)

	if fullRefresh {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM devices`); err != nil {
			s.logger.Error().Err(err).Msg("Failed to clear device cache for full refresh")
			return false
		}
	}

	for start := 0; start < len(eligible); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(eligible) {
			end = len(eligible)
		}

		if !s.writeBatch(ctx, eligible[start:end]) {
			return false
		}
	}

	if !fullRefresh {
		if !s.deleteAbsent(ctx, eligible) {
			return false
		}
	}

	return s.writeMetadata(ctx, len(eligible))
}

func (s *Store) writeBatch(ctx context.Context, devices []*models.Device) bool {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to begin cache write transaction")
		return false
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO devices (id, category, latitude, longitude, doc, updated_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		s.logger.Error().Err(err).Msg("Failed to prepare cache insert")

		return false
	}

	for _, d := range devices {
		doc, err := json.Marshal(d)
		if err != nil {
			continue
		}

		if _, err := stmt.ExecContext(ctx, d.ID, string(d.Category), *d.Latitude, *d.Longitude, string(doc), s.now().UnixMilli()); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			s.logger.Error().Err(err).Str("device_id", d.ID).Msg("Failed to write device to cache")

			return false
		}
	}

	_ = stmt.Close()

	if err := tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to commit cache write transaction")
		return false
	}

	return true
}

// deleteAbsent removes cached records that are not part of the new set.
func (s *Store) deleteAbsent(ctx context.Context, devices []*models.Device) bool {
	keep := make(map[string]struct{}, len(devices))
	for _, d := range devices {
		keep[d.ID] = struct{}{}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM devices`)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to scan cached device ids")
		return false
	}

	var absent []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return false
		}

		if _, ok := keep[id]; !ok {
			absent = append(absent, id)
		}
	}

	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return false
	}

	_ = rows.Close()

	for _, id := range absent {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id); err != nil {
			s.logger.Error().Err(err).Str("device_id", id).Msg("Failed to delete stale cached device")
			return false
		}
	}

	return true
}

func (s *Store) writeMetadata(ctx context.Context, count int) bool {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_meta (id, synced_at, device_count) VALUES (1, ?, ?)`,
		s.now().UnixMilli(), count)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to write cache metadata")
		return false
	}

	return true
}

// UpsertOne writes or overwrites a single record by identifier. Used for
// live-subscription deltas. Records without valid coordinates are
// rejected.
func (s *Store) UpsertOne(ctx context.Context, device *models.Device) bool {
	if device == nil || !device.HasValidCoordinates() {
		return false
	}

	return s.writeBatch(ctx, []*models.Device{device})
}

// GetAll returns every cached device record. Returns an empty slice on
// storage failure; callers must treat empty as unknown, not as a
// confirmed empty dataset.
func (s *Store) GetAll(ctx context.Context) []*models.Device {
	return s.queryDevices(ctx, `SELECT doc FROM devices`)
}

// GetInBounds returns all cached records whose coordinates fall within
// the region. All four bounds are inclusive.
func (s *Store) GetInBounds(ctx context.Context, region models.Region) []*models.Device {
	return s.queryDevices(ctx,
		`SELECT doc FROM devices WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?`,
		region.South, region.North, region.West, region.East)
}

func (s *Store) queryDevices(ctx context.Context, query string, args ...interface{}) []*models.Device {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error().Err(err).Msg("Cache query failed")
		return []*models.Device{}
	}
	defer func() { _ = rows.Close() }()

	devices := make([]*models.Device, 0)

	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			s.logger.Error().Err(err).Msg("Failed to scan cached device")
			return []*models.Device{}
		}

		var d models.Device
		if err := json.Unmarshal([]byte(doc), &d); err != nil {
			s.logger.Warn().Err(err).Msg("Skipping undecodable cached device")
			continue
		}

		devices = append(devices, &d)
	}

	if err := rows.Err(); err != nil {
		s.logger.Error().Err(err).Msg("Cache row iteration failed")
		return []*models.Device{}
	}

	return devices
}

// Metadata returns the singleton cache metadata, or nil if it has never
// been written or the store is unavailable.
func (s *Store) Metadata(ctx context.Context) *models.CacheMetadata {
	var (
		syncedAt int64
		count    int
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT synced_at, device_count FROM cache_meta WHERE id = 1`).Scan(&syncedAt, &count)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Error().Err(err).Msg("Failed to read cache metadata")
		}

		return nil
	}

	return &models.CacheMetadata{
		Timestamp:   time.UnixMilli(syncedAt),
		DeviceCount: count,
	}
}

// IsStale reports whether the cache should be rebuilt: true when metadata
// is missing or older than the configured max age.
func (s *Store) IsStale(ctx context.Context) bool {
	return s.Metadata(ctx).Stale(s.now(), time.Duration(s.cfg.MaxAge))
}

// Clear empties the store and resets metadata. Used for forced refresh.
func (s *Store) Clear(ctx context.Context) bool {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM devices`); err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear device cache")
		return false
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_meta`); err != nil {
		s.logger.Error().Err(err).Msg("Failed to reset cache metadata")
		return false
	}

	return true
}
