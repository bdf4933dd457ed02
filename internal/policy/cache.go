// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package policy

import "sort"

type compiledPolicy struct {
	Policy
	rules []compiled
}

// Cache is a read-only, in-memory snapshot of every enabled policy and
// its rules, built once at startup. There is no reload operation: a new
// Cache is built and swapped in at process restart.
type Cache struct {
	policies []compiledPolicy
}

// NewCache compiles policies (and any REGEX rules within them) into a
// Cache ready for Match. Policies are evaluated in descending priority,
// then ascending policy ID, matching the original loader's ORDER BY.
func NewCache(policies []Policy) *Cache {
	sorted := make([]Policy, len(policies))
	copy(sorted, policies)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].PolicyID < sorted[j].PolicyID
	})

	c := &Cache{policies: make([]compiledPolicy, 0, len(sorted))}
	for _, p := range sorted {
		cp := compiledPolicy{Policy: p, rules: make([]compiled, 0, len(p.Rules))}
		for _, r := range p.Rules {
			cp.rules = append(cp.rules, compileRule(r))
		}
		c.policies = append(c.policies, cp)
	}
	return c
}

// Len reports how many policies the cache holds, enabled or not.
func (c *Cache) Len() int {
	return len(c.policies)
}

// Match walks policies in priority order and returns the first one with
// an enabled, matching rule. A policy with zero rules can never match.
// An empty path defaults to "/", mirroring the original extractor.
func (c *Cache) Match(host, path, urlNorm string) Decision {
	if path == "" {
		path = "/"
	}

	for _, p := range c.policies {
		if !p.Enabled || len(p.rules) == 0 {
			continue
		}

		for _, r := range p.rules {
			if matchOne(r, host, path, urlNorm) {
				status := p.BlockStatusCode
				if status <= 0 {
					status = 403
				}
				return Decision{
					Matched:         true,
					PolicyID:        p.PolicyID,
					Action:          p.Action,
					BlockStatusCode: status,
					RedirectURL:     p.RedirectURL,
				}
			}
		}
	}

	return Decision{}
}
