// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package policy

import (
	"regexp"
	"strings"
)

// compiled pairs a Rule with its pre-parsed regexp, when applicable. Cache
// builds these once at load time so matching never touches regexp.Compile
// on the request path.
type compiled struct {
	Rule
	re *regexp.Regexp
}

func compileRule(r Rule) compiled {
	c := compiled{Rule: r}
	if r.Type != RuleTypeHost && r.Type != RuleTypePath && r.Type != RuleTypeURL {
		return c
	}
	if r.MatchType != MatchRegex {
		return c
	}

	flags := ""
	if !r.CaseSensitive {
		flags = "(?i)"
	}
	re, err := regexp.Compile(flags + r.Pattern)
	if err != nil {
		// A bad pattern permanently fails to match rather than erroring
		// the request; c.re stays nil.
		return c
	}
	c.re = re
	return c
}

// ruleTarget selects which normalized field of the request a rule
// compares against.
func ruleTarget(r Rule, host, path, urlNorm string) string {
	switch r.Type {
	case RuleTypeHost:
		return host
	case RuleTypePath:
		return path
	default:
		return urlNorm
	}
}

func matchOne(c compiled, host, path, urlNorm string) bool {
	if !c.Enabled {
		return false
	}

	target := ruleTarget(c.Rule, host, path, urlNorm)

	var matched bool
	switch c.MatchType {
	case MatchExact:
		if c.CaseSensitive {
			matched = target == c.Pattern
		} else {
			matched = strings.EqualFold(target, c.Pattern)
		}
	case MatchPrefix:
		if c.CaseSensitive {
			matched = strings.HasPrefix(target, c.Pattern)
		} else {
			matched = hasPrefixFold(target, c.Pattern)
		}
	case MatchContains:
		if c.CaseSensitive {
			matched = strings.Contains(target, c.Pattern)
		} else {
			matched = containsFold(target, c.Pattern)
		}
	case MatchRegex:
		matched = c.re != nil && c.re.MatchString(target)
	}

	if c.Negated {
		matched = !matched
	}
	return matched
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}

func containsFold(s, sub string) bool {
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
