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

// Package models contains the shared data types for the SightGrid sync
// and import pipeline.
package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// DeviceCategory classifies a reported surveillance device.
type DeviceCategory string

const (
	CategoryALPR           DeviceCategory = "camera-alpr"
	CategoryPlateReader    DeviceCategory = "license-plate-reader"
	CategoryTrafficCamera  DeviceCategory = "traffic-camera"
	CategorySecurityCamera DeviceCategory = "security-camera"
	CategoryOther          DeviceCategory = "other"
)

// Attribution records who submitted a device. Bulk-imported records carry
// a source tag here, never a user email.
type Attribution struct {
	SubmittedBy string `json:"submitted_by,omitempty"`
	Anonymous   bool   `json:"anonymous,omitempty"`
}

// Device is the unit of replication and import. Latitude and longitude
// are pointers because remote documents may carry null coordinates; such
// records are never cache-eligible.
type Device struct {
	ID                  string         `json:"id"`
	Category            DeviceCategory `json:"category"`
	Latitude            *float64       `json:"latitude"`
	Longitude           *float64       `json:"longitude"`
	Address             string         `json:"address,omitempty"`
	Description         string         `json:"description,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	ConfirmCount        int            `json:"confirm_count"`
	InactiveReportCount int            `json:"inactive_report_count"`
	ConfirmedBy         []string       `json:"confirmed_by,omitempty"`
	InactiveReportedBy  []string       `json:"inactive_reported_by,omitempty"`
	Attribution         *Attribution   `json:"attribution,omitempty"`
}

// NewDeviceID returns an identifier for a user-submitted device.
// Imported devices use deterministic identifiers instead (see importer).
func NewDeviceID() string {
	return uuid.New().String()
}

// HasValidCoordinates reports whether the device carries a finite,
// in-range coordinate pair and is therefore cache-eligible.
func (d *Device) HasValidCoordinates() bool {
	if d.Latitude == nil || d.Longitude == nil {
		return false
	}

	lat, lon := *d.Latitude, *d.Longitude

	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}

	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// FilterCacheEligible drops devices with missing or malformed coordinates.
func FilterCacheEligible(devices []*Device) []*Device {
	eligible := make([]*Device, 0, len(devices))

	for _, d := range devices {
		if d != nil && d.HasValidCoordinates() {
			eligible = append(eligible, d)
		}
	}

	return eligible
}
