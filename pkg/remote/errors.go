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

import "errors"

var (
	// ErrBatchTooLarge indicates a caller bug: a batch over MaxBatchSize.
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")

	// ErrMissingDeviceID indicates a caller bug: a batched record without
	// an identifier.
	ErrMissingDeviceID = errors.New("device record has no identifier")

	// ErrDeviceNotFound is returned by Vote for an unknown device.
	ErrDeviceNotFound = errors.New("device not found")

	errVoteConflict = errors.New("vote update conflicted after retries")
)
