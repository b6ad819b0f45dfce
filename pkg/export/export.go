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

// Package export provides stateless JSON, CSV and GeoJSON transforms over
// a fetched device set.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/carverauto/sightgrid/pkg/models"
)

// WriteJSON writes the device set as a JSON array.
func WriteJSON(w io.Writer, devices []*models.Device) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(devices)
}

var csvHeader = []string{
	"id", "category", "latitude", "longitude", "address", "description",
	"confirm_count", "inactive_report_count", "created_at", "updated_at",
}

// WriteCSV writes the device set as CSV with a fixed header row. Devices
// without valid coordinates are omitted.
func WriteCSV(w io.Writer, devices []*models.Device) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, d := range devices {
		if !d.HasValidCoordinates() {
			continue
		}

		record := []string{
			d.ID,
			string(d.Category),
			strconv.FormatFloat(*d.Latitude, 'f', -1, 64),
			strconv.FormatFloat(*d.Longitude, 'f', -1, 64),
			d.Address,
			d.Description,
			strconv.Itoa(d.ConfirmCount),
			strconv.Itoa(d.InactiveReportCount),
			d.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			d.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

type geoJSONGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type geoJSONFeature struct {
	Type       string                 `json:"type"`
	Geometry   geoJSONGeometry        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// WriteGeoJSON writes the device set as a GeoJSON FeatureCollection of
// points. Devices without valid coordinates are omitted.
func WriteGeoJSON(w io.Writer, devices []*models.Device) error {
	collection := geoJSONCollection{
		Type:     "FeatureCollection",
		Features: make([]geoJSONFeature, 0, len(devices)),
	}

	for _, d := range devices {
		if !d.HasValidCoordinates() {
			continue
		}

		props := map[string]interface{}{
			"id":                    d.ID,
			"category":              string(d.Category),
			"confirm_count":         d.ConfirmCount,
			"inactive_report_count": d.InactiveReportCount,
		}

		if d.Address != "" {
			props["address"] = d.Address
		}

		if d.Description != "" {
			props["description"] = d.Description
		}

		collection.Features = append(collection.Features, geoJSONFeature{
			Type: "Feature",
			Geometry: geoJSONGeometry{
				Type: "Point",
				// GeoJSON order is longitude, latitude.
				Coordinates: []float64{*d.Longitude, *d.Latitude},
			},
			Properties: props,
		})
	}

	enc := json.NewEncoder(w)

	if err := enc.Encode(collection); err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}

	return nil
}
