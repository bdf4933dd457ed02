// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Match_HostExact(t *testing.T) {
	c := NewCache([]Policy{
		{
			PolicyID: 1, Action: ActionBlock, Enabled: true, Priority: 10,
			BlockStatusCode: 403,
			Rules: []Rule{
				{Type: RuleTypeHost, MatchType: MatchExact, Pattern: "bad.example.com", Enabled: true},
			},
		},
	})

	d := c.Match("bad.example.com", "/", "bad.example.com/")
	require.True(t, d.Matched)
	assert.Equal(t, ActionBlock, d.Action)
	assert.Equal(t, int64(1), d.PolicyID)
}

func TestCache_Match_CaseInsensitiveByDefault(t *testing.T) {
	c := NewCache([]Policy{
		{
			PolicyID: 1, Action: ActionBlock, Enabled: true,
			Rules: []Rule{
				{Type: RuleTypeHost, MatchType: MatchExact, Pattern: "Bad.Example.com", Enabled: true},
			},
		},
	})
	d := c.Match("bad.example.com", "/", "")
	assert.True(t, d.Matched)
}

func TestCache_Match_Negation(t *testing.T) {
	c := NewCache([]Policy{
		{
			PolicyID: 1, Action: ActionAllow, Enabled: true,
			Rules: []Rule{
				{Type: RuleTypeHost, MatchType: MatchExact, Pattern: "trusted.example.com", Negated: true, CaseSensitive: true, Enabled: true},
			},
		},
	})
	// Negated match: anything that is NOT trusted.example.com matches.
	d := c.Match("other.example.com", "/", "")
	assert.True(t, d.Matched)

	d2 := c.Match("trusted.example.com", "/", "")
	assert.False(t, d2.Matched)
}

func TestCache_Match_PriorityOrderFirstWins(t *testing.T) {
	c := NewCache([]Policy{
		{PolicyID: 2, Action: ActionAllow, Enabled: true, Priority: 5, Rules: []Rule{
			{Type: RuleTypeHost, MatchType: MatchContains, Pattern: "example", Enabled: true},
		}},
		{PolicyID: 1, Action: ActionBlock, Enabled: true, Priority: 10, Rules: []Rule{
			{Type: RuleTypeHost, MatchType: MatchContains, Pattern: "example", Enabled: true},
		}},
	})
	d := c.Match("www.example.com", "/", "")
	require.True(t, d.Matched)
	assert.Equal(t, int64(1), d.PolicyID, "higher priority policy must win even though listed second")
	assert.Equal(t, ActionBlock, d.Action)
}

func TestCache_Match_DisabledPolicyNeverWins(t *testing.T) {
	c := NewCache([]Policy{
		{PolicyID: 1, Action: ActionBlock, Enabled: false, Priority: 100, Rules: []Rule{
			{Type: RuleTypeHost, MatchType: MatchContains, Pattern: "example", Enabled: true},
		}},
		{PolicyID: 2, Action: ActionAllow, Enabled: true, Priority: 1, Rules: []Rule{
			{Type: RuleTypeHost, MatchType: MatchContains, Pattern: "example", Enabled: true},
		}},
	})
	d := c.Match("www.example.com", "/", "")
	require.True(t, d.Matched)
	assert.Equal(t, int64(2), d.PolicyID)
}

func TestCache_Match_PolicyWithNoRulesNeverMatches(t *testing.T) {
	c := NewCache([]Policy{
		{PolicyID: 1, Action: ActionBlock, Enabled: true, Priority: 100},
	})
	d := c.Match("anything", "/", "")
	assert.False(t, d.Matched)
}

func TestCache_Match_RegexCompileFailureNeverMatches(t *testing.T) {
	c := NewCache([]Policy{
		{PolicyID: 1, Action: ActionBlock, Enabled: true, Rules: []Rule{
			{Type: RuleTypeURL, MatchType: MatchRegex, Pattern: "(unclosed", Enabled: true},
		}},
	})
	d := c.Match("host", "/path", "host/path")
	assert.False(t, d.Matched)
}

func TestCache_Match_Regex(t *testing.T) {
	c := NewCache([]Policy{
		{PolicyID: 1, Action: ActionReview, Enabled: true, Rules: []Rule{
			{Type: RuleTypePath, MatchType: MatchRegex, Pattern: `^/admin/.*`, CaseSensitive: true, Enabled: true},
		}},
	})
	d := c.Match("host", "/admin/users", "")
	assert.True(t, d.Matched)
	assert.False(t, c.Match("host", "/public", "").Matched)
}

func TestCache_Match_EmptyPathDefaultsToSlash(t *testing.T) {
	c := NewCache([]Policy{
		{PolicyID: 1, Action: ActionAllow, Enabled: true, Rules: []Rule{
			{Type: RuleTypePath, MatchType: MatchExact, Pattern: "/", CaseSensitive: true, Enabled: true},
		}},
	})
	assert.True(t, c.Match("host", "", "").Matched)
}

func TestActionFromString(t *testing.T) {
	assert.Equal(t, ActionAllow, ActionFromString("allow"))
	assert.Equal(t, ActionBlock, ActionFromString("BLOCK"))
	assert.Equal(t, ActionRedirect, ActionFromString("Redirect"))
	assert.Equal(t, ActionReview, ActionFromString("review"))
	assert.Equal(t, ActionUnknown, ActionFromString("bogus"))
}

func TestRuleTypeAndMatchTypeFromString(t *testing.T) {
	assert.Equal(t, RuleTypePath, RuleTypeFromString("path"))
	assert.Equal(t, RuleTypeURL, RuleTypeFromString("URL"))
	assert.Equal(t, RuleTypeHost, RuleTypeFromString("whatever"))

	assert.Equal(t, MatchPrefix, MatchTypeFromString("prefix"))
	assert.Equal(t, MatchContains, MatchTypeFromString("CONTAINS"))
	assert.Equal(t, MatchRegex, MatchTypeFromString("regex"))
	assert.Equal(t, MatchExact, MatchTypeFromString("nope"))
}
