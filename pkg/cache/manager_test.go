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
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/sightgrid/pkg/logger"
	"github.com/carverauto/sightgrid/pkg/models"
)

func TestManagerSharesHandle(t *testing.T) {
	mgr := NewManager(Config{Path: filepath.Join(t.TempDir(), "cache.db")}, logger.NewTestLogger())
	t.Cleanup(func() { _ = mgr.Close() })

	first, err := mgr.Open()
	require.NoError(t, err)

	second, err := mgr.Open()
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestManagerConcurrentOpen(t *testing.T) {
	mgr := NewManager(Config{Path: filepath.Join(t.TempDir(), "cache.db")}, logger.NewTestLogger())
	t.Cleanup(func() { _ = mgr.Close() })

	const goroutines = 16

	stores := make([]*Store, goroutines)

	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			store, err := mgr.Open()
			require.NoError(t, err)

			stores[i] = store
		}(i)
	}

	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, stores[0], stores[i])
	}
}

func TestManagerCloseDiscardsHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	mgr := NewManager(Config{Path: path}, logger.NewTestLogger())

	first, err := mgr.Open()
	require.NoError(t, err)

	require.True(t, first.UpsertOne(context.Background(), &models.Device{
		ID:        "a",
		Category:  models.CategoryOther,
		Latitude:  floatPtr(1),
		Longitude: floatPtr(2),
	}))

	require.NoError(t, mgr.Close())

	// Close is idempotent.
	require.NoError(t, mgr.Close())

	// A fresh handle sees the same database file.
	second, err := mgr.Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	assert.NotSame(t, first, second)
	assert.Len(t, second.GetAll(context.Background()), 1)
}
