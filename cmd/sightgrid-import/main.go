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

// The sightgrid-import CLI ingests surveillance devices from the Overpass
// API for a bounding box and commits them to the remote store. Optionally
// exports the full remote dataset afterwards.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/carverauto/sightgrid/pkg/config"
	"github.com/carverauto/sightgrid/pkg/export"
	"github.com/carverauto/sightgrid/pkg/importer"
	"github.com/carverauto/sightgrid/pkg/logger"
	"github.com/carverauto/sightgrid/pkg/models"
	"github.com/carverauto/sightgrid/pkg/overpass"
	"github.com/carverauto/sightgrid/pkg/remote"
)

type importConfig struct {
	Remote   remote.Config   `json:"remote"`
	Overpass overpass.Config `json:"overpass"`
	Import   importer.Config `json:"import"`
	Logging  logger.Config   `json:"logging"`
}

func (c *importConfig) Validate() error {
	if err := c.Remote.Validate(); err != nil {
		return err
	}

	if err := c.Overpass.Validate(); err != nil {
		return err
	}

	return c.Import.Validate()
}

func main() {
	var (
		configPath = flag.String("config", "/etc/sightgrid/import.json", "Path to config file")
		south      = flag.Float64("south", 0, "Region south latitude")
		north      = flag.Float64("north", 0, "Region north latitude")
		west       = flag.Float64("west", 0, "Region west longitude")
		east       = flag.Float64("east", 0, "Region east longitude")
		grid       = flag.Int("grid", 0, "Grid size n for the n x n region split (0 uses config)")
		exportPath = flag.String("export", "", "Optional path to export the remote dataset after import")
		exportKind = flag.String("export-format", "geojson", "Export format: json, csv or geojson")
	)

	flag.Parse()

	ctx := context.Background()

	var cfg importConfig

	cfgLoader := config.NewConfig(nil)
	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *grid > 0 {
		cfg.Import.GridSize = *grid
	}

	region := models.Region{South: *south, North: *north, West: *west, East: *east}
	if err := region.Validate(); err != nil {
		log.Fatalf("Invalid region: %v", err)
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

	client := overpass.NewClient(cfg.Overpass, logr)
	imp := importer.New(remoteStore, client, cfg.Import, logr)

	result, err := imp.ImportRegion(ctx, region, func(p models.Progress) {
		logr.Info().Str("phase", p.Phase).Int("current", p.Current).Int("total", p.Total).Msg("Import progress")
	})
	if err != nil {
		logr.Fatal().Err(err).Msg("Import failed")
	}

	summary, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(summary))

	if *exportPath != "" {
		if err := exportDataset(ctx, remoteStore, *exportPath, *exportKind); err != nil {
			logr.Fatal().Err(err).Msg("Export failed")
		}

		logr.Info().Str("path", *exportPath).Str("format", *exportKind).Msg("Exported remote dataset")
	}
}

func exportDataset(ctx context.Context, store remote.Store, path, format string) error {
	devices, err := store.FetchAll(ctx, 0)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	switch format {
	case "json":
		return export.WriteJSON(f, devices)
	case "csv":
		return export.WriteCSV(f, devices)
	case "geojson":
		return export.WriteGeoJSON(f, devices)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}
