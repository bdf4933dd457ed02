// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package policy

import (
	"database/sql"
	"fmt"
)

// LoadCache reads every enabled policy and its enabled rules from db's
// policy/policy_rule tables and compiles them into a Cache. Rows are
// read in the same order the original engine's loader used
// (policy: priority DESC, policy_id ASC; rule: policy_id ASC, rule_order
// ASC, rule_id ASC), though NewCache re-sorts policies itself so the
// query order here only needs to keep rules grouped per policy.
func LoadCache(db *sql.DB) (*Cache, error) {
	policies, index, err := loadPolicies(db)
	if err != nil {
		return nil, err
	}

	if err := loadRules(db, policies, index); err != nil {
		return nil, err
	}

	return NewCache(policies), nil
}

func loadPolicies(db *sql.DB) ([]Policy, map[int64]int, error) {
	rows, err := db.Query(
		`SELECT policy_id, policy_name, policy_type, action, priority, is_enabled,
		        risk_level, category, block_status_code, redirect_url
		 FROM policy
		 WHERE is_enabled=1
		 ORDER BY priority DESC, policy_id ASC`,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("policy: load policies: %w", err)
	}
	defer rows.Close()

	var policies []Policy
	index := make(map[int64]int)

	for rows.Next() {
		var (
			p          Policy
			actionStr  string
			enabledInt int
		)
		if err := rows.Scan(
			&p.PolicyID, &p.Name, &p.Type, &actionStr, &p.Priority, &enabledInt,
			&p.RiskLevel, &p.Category, &p.BlockStatusCode, &p.RedirectURL,
		); err != nil {
			return nil, nil, fmt.Errorf("policy: scan policy row: %w", err)
		}
		p.Action = ActionFromString(actionStr)
		p.Enabled = enabledInt != 0

		index[p.PolicyID] = len(policies)
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("policy: iterate policies: %w", err)
	}

	return policies, index, nil
}

func loadRules(db *sql.DB, policies []Policy, index map[int64]int) error {
	rows, err := db.Query(
		`SELECT rule_id, policy_id, rule_type, match_type, pattern,
		        is_case_sensitive, is_negated, rule_order, is_enabled
		 FROM policy_rule
		 WHERE is_enabled=1
		 ORDER BY policy_id ASC, rule_order ASC, rule_id ASC`,
	)
	if err != nil {
		return fmt.Errorf("policy: load rules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r                         Rule
			ruleTypeStr, matchTypeStr string
			caseSensitiveInt          int
			negatedInt                int
			enabledInt                int
		)
		if err := rows.Scan(
			&r.RuleID, &r.PolicyID, &ruleTypeStr, &matchTypeStr, &r.Pattern,
			&caseSensitiveInt, &negatedInt, &r.Order, &enabledInt,
		); err != nil {
			return fmt.Errorf("policy: scan rule row: %w", err)
		}
		r.Type = RuleTypeFromString(ruleTypeStr)
		r.MatchType = MatchTypeFromString(matchTypeStr)
		r.CaseSensitive = caseSensitiveInt != 0
		r.Negated = negatedInt != 0
		r.Enabled = enabledInt != 0

		i, ok := index[r.PolicyID]
		if !ok {
			continue
		}
		policies[i].Rules = append(policies[i].Rules, r)
	}
	return rows.Err()
}
