// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package engine wires capture, policy matching, classification, and
// injection into the single synchronous pipeline each HTTP event is
// pushed through.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tami-bang/GateGuard/internal/audit"
	"github.com/tami-bang/GateGuard/internal/classifier"
	"github.com/tami-bang/GateGuard/internal/decision"
	"github.com/tami-bang/GateGuard/internal/httpevent"
	"github.com/tami-bang/GateGuard/internal/injector"
	"github.com/tami-bang/GateGuard/internal/logging"
	"github.com/tami-bang/GateGuard/internal/metrics"
	"github.com/tami-bang/GateGuard/internal/policy"
)

const (
	stagePolicy = "POLICY_STAGE"
	stageAI     = "AI_STAGE"
	stageFail   = "FAIL_STAGE"
)

// Dispatcher runs one HTTP event through policy matching, optionally
// the classifier, and injection, persisting every stage to the audit
// store.
type Dispatcher struct {
	cache      *policy.Cache
	classifier *classifier.Client
	injector   *injector.Injector
	store      *audit.Store
	metrics    *metrics.Metrics
	log        *logging.Logger
	threshold  float64
}

// New builds a Dispatcher. threshold<=0 falls back to
// decision.DefaultThreshold.
func New(cache *policy.Cache, cl *classifier.Client, inj *injector.Injector, store *audit.Store, m *metrics.Metrics, threshold float64) *Dispatcher {
	return &Dispatcher{
		cache:      cache,
		classifier: cl,
		injector:   inj,
		store:      store,
		metrics:    m,
		log:        logging.Default().WithComponent("engine"),
		threshold:  threshold,
	}
}

// Handle runs ev through the full pipeline: insert the access_log row,
// match the policy cache, and either settle on the policy's action or
// fall through to the classifier for a final ALLOW/BLOCK/REVIEW.
func (d *Dispatcher) Handle(ctx context.Context, ev *httpevent.Event) {
	d.metrics.HTTPEventsParsed.Inc()
	requestID := uuid.NewString()

	logID, err := d.store.InsertAccessLog(requestID, ev.Meta.ClientIP, ev.Host, ev.Path)
	if err != nil {
		d.log.Error("insert access_log failed", "err", err, "request_id", requestID)
		return
	}

	d.log.Debug("event received", "request_id", requestID, "host", ev.Host, "path", ev.Path, "log_id", logID)

	pd := d.cache.Match(ev.Host, ev.Path, ev.URLNorm)
	if pd.Matched {
		d.handlePolicyMatch(ctx, ev, logID, pd)
		return
	}

	d.handleClassifierFallback(ctx, ev, logID, requestID)
}

func (d *Dispatcher) handlePolicyMatch(ctx context.Context, ev *httpevent.Event, logID int64, pd policy.Decision) {
	action := pd.Action
	// A matched REDIRECT collapses to REVIEW: redirecting the spoofed
	// response is a future extension point, not yet implemented.
	recorded := action
	if action == policy.ActionRedirect {
		recorded = policy.ActionReview
		d.log.Warn("REDIRECT policy recorded as REVIEW", "policy_id", pd.PolicyID, "log_id", logID)
	}

	if err := d.store.UpdateAccessLogDecision(logID, recorded.String(), "POLICY", stagePolicy, pd.PolicyID); err != nil {
		d.log.Error("update access_log decision failed", "err", err, "log_id", logID)
	}
	d.metrics.ObserveDecision(stagePolicy, recorded.String())

	if recorded == policy.ActionBlock {
		d.inject(ev, logID, pd.BlockStatusCode)
	}
}

func (d *Dispatcher) handleClassifierFallback(ctx context.Context, ev *httpevent.Event, logID int64, requestID string) {
	start := time.Now()
	result := d.classifier.Classify(ctx, ev, requestID)
	latency := time.Since(start)

	errCode := ""
	if !result.OK {
		errCode = classifier.ErrorCodeString(result)
	} else {
		errCode = "OK"
	}
	d.metrics.ObserveClassifier(latency, errCode)

	aiResponse := result.OK
	analysisErrCode := ""
	if !result.OK {
		analysisErrCode = errCode
	}

	if err := d.store.InsertAIAnalysis(logID, audit.AIAnalysis{
		Score:        result.Score,
		Label:        result.Label,
		ModelVersion: result.ModelVersion,
		LatencyMS:    result.LatencyMS,
		ErrorCode:    analysisErrCode,
	}, aiResponse); err != nil {
		d.log.Error("insert ai_analysis failed", "err", err, "log_id", logID)
	}

	if !result.OK {
		// Fail policy: review and fail-stage until fail-open/closed is
		// made configurable.
		if err := d.store.UpdateAccessLogDecision(logID, policy.ActionReview.String(), "SYSTEM", stageFail, 0); err != nil {
			d.log.Error("update access_log decision failed", "err", err, "log_id", logID)
		}
		d.metrics.ObserveDecision(stageFail, policy.ActionReview.String())
		return
	}

	final := decision.Decide(result, d.threshold)
	if err := d.store.UpdateAccessLogDecision(logID, final.String(), "AI", stageAI, 0); err != nil {
		d.log.Error("update access_log decision failed", "err", err, "log_id", logID)
	}
	d.metrics.ObserveDecision(stageAI, final.String())

	if final == policy.ActionBlock {
		d.inject(ev, logID, 403)
	}
}

func (d *Dispatcher) inject(ev *httpevent.Event, logID int64, statusCode int) {
	start := time.Now()
	err := d.injector.Inject(ev, logID, statusCode)
	d.metrics.ObserveInjection(time.Since(start), err == nil)
	if err != nil {
		d.log.Warn("injection failed", "err", err, "log_id", logID)
	}
}
