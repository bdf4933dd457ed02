// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package decision arbitrates the final ALLOW/BLOCK/REVIEW action once a
// request has fallen through to the classifier (no policy matched).
package decision

import (
	"github.com/tami-bang/GateGuard/internal/classifier"
	"github.com/tami-bang/GateGuard/internal/policy"
)

// DefaultThreshold is used whenever configuration supplies a
// non-positive threshold.
const DefaultThreshold = 0.5

// Decide turns a classifier Result into a final policy.Action. A
// classifier call that didn't succeed (timeout, HTTP error, malformed
// response) always falls back to REVIEW — this guard never blocks or
// allows on an untrusted signal.
func Decide(r classifier.Result, threshold float64) policy.Action {
	if !r.OK {
		return policy.ActionReview
	}

	th := threshold
	if th <= 0 {
		th = DefaultThreshold
	}

	if r.Score >= th {
		return policy.ActionBlock
	}

	if r.Label == "benign" && r.Score < th*0.5 {
		return policy.ActionAllow
	}

	return policy.ActionReview
}
