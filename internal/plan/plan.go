// Copyright 2026 The Crux Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plan

import "errors"

// ErrUnknownTier is returned for a tier name outside the ladder.
var ErrUnknownTier = errors.New("unknown plan tier")

// Plan tier names, ordered from smallest to largest.
const (
	TierFree       = "free"
	TierStarter    = "starter"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

// Unlimited marks a tier without a review cap.
const Unlimited = -1

// upgradeThreshold is the fraction of the limit at which an upgrade is
// suggested.
const upgradeThreshold = 0.8

// Tier describes one plan level.
type Tier struct {
	Name       string `json:"name"`
	MaxReviews int    `json:"max_reviews"`
	NextTier   string `json:"next_tier,omitempty"`
}

// ladder is the ordered tier table. NextTier drives upgrade suggestions.
var ladder = map[string]Tier{
	TierFree:       {Name: TierFree, MaxReviews: 50, NextTier: TierStarter},
	TierStarter:    {Name: TierStarter, MaxReviews: 250, NextTier: TierPro},
	TierPro:        {Name: TierPro, MaxReviews: 1000, NextTier: TierEnterprise},
	TierEnterprise: {Name: TierEnterprise, MaxReviews: Unlimited},
}

// Lookup returns the tier definition for a tier name.
func Lookup(name string) (Tier, error) {
	t, ok := ladder[name]
	if !ok {
		return Tier{}, ErrUnknownTier
	}
	return t, nil
}

// DefaultTier is the tier assigned to new tenants.
const DefaultTier = TierFree

// Usage is the result of evaluating a usage count against a tier limit.
type Usage struct {
	Tier             string `json:"tier"`
	Count            int    `json:"count"`
	Limit            int    `json:"limit"`
	Allowed          bool   `json:"allowed"`
	UpgradeSuggested bool   `json:"upgrade_suggested"`
	SuggestedTier    string `json:"suggested_tier,omitempty"`
}

// Evaluate applies the plan-limit rules:
//   - count < limit  => allowed
//   - count >= limit => disallowed
//   - count >= 80% of limit => upgrade suggested, naming the next tier
//
// Unlimited tiers are always allowed and never suggest an upgrade.
func Evaluate(count int, tierName string) (Usage, error) {
	t, err := Lookup(tierName)
	if err != nil {
		return Usage{}, err
	}

	u := Usage{
		Tier:  t.Name,
		Count: count,
		Limit: t.MaxReviews,
	}

	if t.MaxReviews == Unlimited {
		u.Allowed = true
		return u, nil
	}

	u.Allowed = count < t.MaxReviews
	if float64(count) >= upgradeThreshold*float64(t.MaxReviews) {
		u.UpgradeSuggested = true
		u.SuggestedTier = t.NextTier
	}

	return u, nil
}
