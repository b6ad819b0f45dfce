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

package cache

import (
	"sync"

	"github.com/carverauto/sightgrid/pkg/logger"
)

// Manager owns the process-wide cache store handle. Open is lazy and
// idempotent: concurrent callers receive the same underlying handle.
// Close nulls the cached handle, so the next Open creates a fresh one.
type Manager struct {
	mu     sync.Mutex
	cfg    Config
	logger logger.Logger
	store  *Store
}

// NewManager creates a manager; the store is not opened until first use.
func NewManager(cfg Config, log logger.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: log,
	}
}

// Open returns the shared store handle, creating it on first use.
func (m *Manager) Open() (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store != nil {
		return m.store, nil
	}

	store, err := NewStore(m.cfg, m.logger)
	if err != nil {
		return nil, err
	}

	m.store = store

	return m.store, nil
}

// Close closes and discards the shared handle. Safe to call when no
// store is open.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return nil
	}

	err := m.store.Close()
	m.store = nil

	return err
}
