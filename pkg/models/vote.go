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

package models

import (
	"errors"
	"fmt"
)

// VoteKind selects which counter a vote adjusts.
type VoteKind string

const (
	VoteConfirm  VoteKind = "confirm"
	VoteInactive VoteKind = "inactive"
)

// VoteAction reports what a vote toggle did.
type VoteAction string

const (
	VoteAdded   VoteAction = "added"
	VoteRemoved VoteAction = "removed"
)

// VoteResult is returned by a vote operation.
type VoteResult struct {
	Action   VoteAction `json:"action"`
	NewCount int        `json:"new_count"`
}

var (
	errUnknownVoteKind = errors.New("unknown vote kind")
	errEmptyVoterID    = errors.New("voter id must not be empty")
)

// ApplyVote toggles the voter's membership in the voter set for the given
// kind and adjusts the matching counter. At most one vote per user per
// kind; counters never go negative.
func (d *Device) ApplyVote(kind VoteKind, voterID string) (VoteResult, error) {
	if voterID == "" {
		return VoteResult{}, errEmptyVoterID
	}

	switch kind {
	case VoteConfirm:
		var added bool

		d.ConfirmedBy, d.ConfirmCount, added = toggleVoter(d.ConfirmedBy, d.ConfirmCount, voterID)

		return VoteResult{Action: voteAction(added), NewCount: d.ConfirmCount}, nil
	case VoteInactive:
		var added bool

		d.InactiveReportedBy, d.InactiveReportCount, added = toggleVoter(d.InactiveReportedBy, d.InactiveReportCount, voterID)

		return VoteResult{Action: voteAction(added), NewCount: d.InactiveReportCount}, nil
	default:
		return VoteResult{}, fmt.Errorf("%w: %q", errUnknownVoteKind, kind)
	}
}

func voteAction(added bool) VoteAction {
	if added {
		return VoteAdded
	}

	return VoteRemoved
}

func toggleVoter(voters []string, count int, voterID string) (out []string, newCount int, added bool) {
	for _, v := range voters {
		if v == voterID {
			out = make([]string, 0, len(voters)-1)

			for _, w := range voters {
				if w != voterID {
					out = append(out, w)
				}
			}

			if count > 0 {
				count--
			}

			return out, count, false
		}
	}

	return append(voters, voterID), count + 1, true
}
