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

package overpass

import "errors"

var (
	// ErrRateLimitExceeded is returned after rate-limit retries are
	// exhausted.
	ErrRateLimitExceeded = errors.New("rate limit retries exhausted")

	// ErrServerError is returned after server-error retries are
	// exhausted; the final status code is embedded in the message.
	ErrServerError = errors.New("server error retries exhausted")

	// ErrNetworkError is returned after network or response-parsing
	// retries are exhausted.
	ErrNetworkError = errors.New("network retries exhausted")

	// ErrQueryTimeout marks a per-request timeout. Callers may treat it
	// as an empty result (degrade to no data) or as a retryable failure;
	// the chunked query records it as a failed chunk.
	ErrQueryTimeout = errors.New("query timed out")

	errUnexpectedStatusCode = errors.New("unexpected status code")
)

// IsRateLimited reports whether err is a rate-limit exhaustion.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// IsTimeout reports whether err is a per-request timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrQueryTimeout)
}
