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

// The sightgrid-sync daemon maintains the local device replica: one
// bootstrap against the remote store, then a live change subscription
// until shutdown.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/carverauto/sightgrid/pkg/cache"
	"github.com/carverauto/sightgrid/pkg/config"
	"github.com/carverauto/sightgrid/pkg/logger"
	"github.com/carverauto/sightgrid/pkg/models"
	"github.com/carverauto/sightgrid/pkg/remote"
	"github.com/carverauto/sightgrid/pkg/sync"
)

type syncConfig struct {
	Remote  remote.Config `json:"remote"`
	Cache   cache.Config  `json:"cache"`
	Logging logger.Config `json:"logging"`
}

func (c *syncConfig) Validate() error {
	if err := c.Remote.Validate(); err != nil {
		return err
	}

	if c.Cache.Path == "" {
		c.Cache.Path = "sightgrid.db"
	}

	return nil
}

func main() {
	configPath := flag.String("config", "/etc/sightgrid/sync.json", "Path to config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg syncConfig

	cfgLoader := config.NewConfig(nil)
	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	remoteStore, err := remote.NewNatsStore(ctx, cfg.Remote, logr)
	if err != nil {
		logr.Fatal().Err(err).Msg("Failed to connect to remote store")
	}
	defer func() { _ = remoteStore.Close() }()

	manager := cache.NewManager(cfg.Cache, logr)
	defer func() { _ = manager.Close() }()

	store, err := manager.Open()
	if err != nil {
		logr.Fatal().Err(err).Msg("Failed to open local cache store")
	}

	syncer := sync.New(remoteStore, store, logr)

	syncer.OnProgress(func(p models.Progress) {
		logr.Debug().Str("phase", p.Phase).Int("current", p.Current).Int("total", p.Total).Msg("Sync progress")
	})

	syncer.OnDevices(func(devices []*models.Device) {
		logr.Info().Int("devices", len(devices)).Msg("Published device set")
	})

	if err := syncer.Start(ctx); err != nil {
		logr.Fatal().Err(err).Msg("Synchronizer failed to start")
	}

	<-ctx.Done()

	syncer.Stop()
}
