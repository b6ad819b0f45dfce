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

package importer

import (
	"strings"
	"time"

	"github.com/carverauto/sightgrid/pkg/models"
	"github.com/carverauto/sightgrid/pkg/overpass"
)

// importSource tags imported records in the attribution block. Imports
// never carry a user email.
const importSource = "import:overpass"

// alprVendors are brand/operator/manufacturer substrings that identify a
// license-plate-reader deployment regardless of how the element is
// otherwise tagged.
var alprVendors = []string{
	"flock",
	"motorola",
	"vigilant",
	"leonardo",
	"elsag",
	"neology",
	"genetec",
	"rekor",
}

// descriptionTags are concatenated, in this order, into the free-text
// description when present.
var descriptionTags = []string{
	"brand",
	"manufacturer",
	"operator",
	"surveillance:type",
	"direction",
	"note",
	"description",
}

// categorize maps element tags to a device category. Precedence: known
// ALPR vendor substring, then the surveillance:type tag, then a generic
// surveillance tag, then other.
func categorize(tags map[string]string) models.DeviceCategory {
	for _, key := range []string{"brand", "operator", "manufacturer"} {
		value := strings.ToLower(tags[key])
		if value == "" {
			continue
		}

		for _, vendor := range alprVendors {
			if strings.Contains(value, vendor) {
				return models.CategoryALPR
			}
		}
	}

	switch strings.ToLower(tags["surveillance:type"]) {
	case "alpr", "anpr":
		return models.CategoryALPR
	case "traffic", "traffic_camera":
		return models.CategoryTrafficCamera
	case "camera", "guard":
		return models.CategorySecurityCamera
	}

	if tags["man_made"] == "surveillance" || tags["surveillance"] != "" {
		return models.CategorySecurityCamera
	}

	return models.CategoryOther
}

// buildDescription concatenates the present tag fields in fixed order.
// Returns "" when no tag fields are present.
func buildDescription(tags map[string]string) string {
	parts := make([]string, 0, len(descriptionTags))

	for _, key := range descriptionTags {
		if v := strings.TrimSpace(tags[key]); v != "" {
			parts = append(parts, v)
		}
	}

	return strings.Join(parts, " | ")
}

// Convert maps an external element to a store-ready device record with a
// deterministic identifier, so re-importing the same element overwrites
// rather than duplicates. ok is false when the element has no resolvable
// coordinate; such elements are counted as skipped, never as errors.
func Convert(el *overpass.Element, now time.Time) (*models.Device, bool) {
	lat, lon, ok := el.Coordinates()
	if !ok {
		return nil, false
	}

	return &models.Device{
		ID:          el.ExternalID(),
		Category:    categorize(el.Tags),
		Latitude:    &lat,
		Longitude:   &lon,
		Description: buildDescription(el.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
		Attribution: &models.Attribution{
			SubmittedBy: importSource,
			Anonymous:   true,
		},
	}, true
}
