// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package audit

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAccessLog_DefaultsPathToSlash(t *testing.T) {
	s := openTestStore(t)
	id, err := s.InsertAccessLog("req-1", "1.2.3.4", "example.com", "")
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	var path, decision string
	require.NoError(t, s.db.QueryRow(`SELECT path, decision FROM access_log WHERE log_id=?`, id).Scan(&path, &decision))
	require.Equal(t, "/", path)
	require.Equal(t, "ERROR", decision)
}

func TestUpdateAccessLogDecision(t *testing.T) {
	s := openTestStore(t)
	id, err := s.InsertAccessLog("req-1", "1.2.3.4", "example.com", "/x")
	require.NoError(t, err)

	require.NoError(t, s.UpdateAccessLogDecision(id, "BLOCK", "POLICY", "POLICY_STAGE", 7))

	var decision, reason, stage string
	var policyID int64
	require.NoError(t, s.db.QueryRow(
		`SELECT decision, reason, decision_stage, policy_id FROM access_log WHERE log_id=?`, id,
	).Scan(&decision, &reason, &stage, &policyID))

	require.Equal(t, "BLOCK", decision)
	require.Equal(t, "POLICY", reason)
	require.Equal(t, "POLICY_STAGE", stage)
	require.Equal(t, int64(7), policyID)
}

func TestUpdateAccessLogDecision_ZeroPolicyIDStoresNull(t *testing.T) {
	s := openTestStore(t)
	id, err := s.InsertAccessLog("req-1", "1.2.3.4", "example.com", "/x")
	require.NoError(t, err)
	require.NoError(t, s.UpdateAccessLogDecision(id, "REVIEW", "AI", "AI_STAGE", 0))

	var policyID sql.NullInt64
	require.NoError(t, s.db.QueryRow(`SELECT policy_id FROM access_log WHERE log_id=?`, id).Scan(&policyID))
	require.False(t, policyID.Valid)
}

func TestUpdateAccessLogInject(t *testing.T) {
	s := openTestStore(t)
	id, err := s.InsertAccessLog("req-1", "1.2.3.4", "example.com", "/x")
	require.NoError(t, err)

	require.NoError(t, s.UpdateAccessLogInject(id, true, true, 0, 5, 403))

	var attempted, sendOK, latency, status int
	require.NoError(t, s.db.QueryRow(
		`SELECT inject_attempted, inject_send, inject_latency_ms, inject_status_code FROM access_log WHERE log_id=?`, id,
	).Scan(&attempted, &sendOK, &latency, &status))
	require.Equal(t, 1, attempted)
	require.Equal(t, 1, sendOK)
	require.Equal(t, 5, latency)
	require.Equal(t, 403, status)
}

func TestInsertAIAnalysis_SeqIsContiguousPerLogID(t *testing.T) {
	s := openTestStore(t)
	id, err := s.InsertAccessLog("req-1", "1.2.3.4", "example.com", "/x")
	require.NoError(t, err)

	require.NoError(t, s.InsertAIAnalysis(id, AIAnalysis{Score: 0.2, Label: "benign", ModelVersion: "v1"}, true))
	require.NoError(t, s.InsertAIAnalysis(id, AIAnalysis{Score: 0.9, Label: "malicious", ModelVersion: "v1"}, true))

	rows, err := s.db.Query(`SELECT analysis_seq FROM ai_analysis WHERE log_id=? ORDER BY analysis_seq ASC`, id)
	require.NoError(t, err)
	defer rows.Close()

	var seqs []int
	for rows.Next() {
		var seq int
		require.NoError(t, rows.Scan(&seq))
		seqs = append(seqs, seq)
	}
	require.Equal(t, []int{0, 1}, seqs)
}

func TestInsertAIAnalysis_ModelVersionDefaultsToUnknown(t *testing.T) {
	s := openTestStore(t)
	id, err := s.InsertAccessLog("req-1", "1.2.3.4", "example.com", "/x")
	require.NoError(t, err)
	require.NoError(t, s.InsertAIAnalysis(id, AIAnalysis{Score: 0.1}, false))

	var mv string
	require.NoError(t, s.db.QueryRow(`SELECT model_version FROM ai_analysis WHERE log_id=?`, id).Scan(&mv))
	require.Equal(t, "unknown", mv)
}
