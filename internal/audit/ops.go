// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package audit

import "database/sql"

// InsertAccessLog records the arrival of an HTTP event before any
// decision has been made, with a placeholder decision that later calls
// to UpdateAccessLogDecision overwrite. Returns the new row's log_id.
func (s *Store) InsertAccessLog(requestID, clientIP, host, path string) (int64, error) {
	if path == "" {
		path = "/"
	}

	res, err := s.db.Exec(
		`INSERT INTO access_log
			(request_id, client_ip, host, path, decision, reason, decision_stage)
		 VALUES (?, ?, ?, ?, 'ERROR', 'SYSTEM', 'FAIL_STAGE')`,
		requestID, clientIP, host, path,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateAccessLogDecision records the final decision, the stage that
// produced it (POLICY_STAGE / AI_STAGE / FAIL_STAGE), and the policy
// that matched, if any. A policyID of 0 is stored as NULL.
func (s *Store) UpdateAccessLogDecision(logID int64, decision, reason, stage string, policyID int64) error {
	var policyArg any
	if policyID != 0 {
		policyArg = policyID
	}

	_, err := s.db.Exec(
		`UPDATE access_log SET decision=?, reason=?, decision_stage=?, policy_id=? WHERE log_id=?`,
		decision, reason, stage, policyArg, logID,
	)
	return err
}

// UpdateAccessLogInject records the outcome of a single injection
// attempt. injectErrno is only stored when the send failed.
func (s *Store) UpdateAccessLogInject(logID int64, attempted, sendOK bool, injectErrno, latencyMS, statusCode int) error {
	var errnoArg any
	if !sendOK {
		errnoArg = injectErrno
	}

	_, err := s.db.Exec(
		`UPDATE access_log SET
			inject_attempted=?, inject_send=?, inject_errno=?,
			inject_latency_ms=?, inject_status_code=?
		 WHERE log_id=?`,
		boolToInt(attempted), boolToInt(sendOK), errnoArg, latencyMS, statusCode, logID,
	)
	return err
}

// AIAnalysis is one classifier call result to persist.
type AIAnalysis struct {
	Score        float64
	Label        string // empty stored as NULL
	ModelVersion string
	LatencyMS    int64
	ErrorCode    string // empty stored as NULL
}

// InsertAIAnalysis appends one ai_analysis row for logID, auto-assigning
// the next 0-based analysis_seq for that log_id. aiResponse records
// whether the classifier call itself succeeded (independent of the
// resulting score).
func (s *Store) InsertAIAnalysis(logID int64, ar AIAnalysis, aiResponse bool) error {
	seq, err := s.nextAnalysisSeq(logID)
	if err != nil {
		return err
	}

	var label, errCode any
	if ar.Label != "" {
		label = ar.Label
	}
	if ar.ErrorCode != "" {
		errCode = ar.ErrorCode
	}

	modelVersion := ar.ModelVersion
	if modelVersion == "" {
		modelVersion = "unknown"
	}

	_, err = s.db.Exec(
		`INSERT INTO ai_analysis
			(log_id, score, label, ai_response, latency_ms, model_version, error_code, analysis_seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		logID, ar.Score, label, boolToInt(aiResponse), ar.LatencyMS, modelVersion, errCode, seq,
	)
	return err
}

func (s *Store) nextAnalysisSeq(logID int64) (int, error) {
	var seq int
	err := s.db.QueryRow(
		`SELECT COALESCE(MAX(analysis_seq), -1) + 1 FROM ai_analysis WHERE log_id=?`,
		logID,
	).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
