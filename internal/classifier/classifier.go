// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package classifier calls the external URL-scoring service and parses
// its response, tolerating malformed or absent fields rather than
// failing the request.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/tami-bang/GateGuard/internal/httpevent"
)

// ErrorCode enumerates why a classification attempt failed. Zero value
// is OK (no error).
type ErrorCode int

const (
	ErrNone ErrorCode = iota
	ErrClient
	ErrHTTP
	ErrTimeout
	ErrParse
	ErrEmpty
)

// Result is the outcome of one classification call. OK reports whether
// Score/Label are usable; when false, Code explains why.
type Result struct {
	OK           bool
	Score        float64
	Label        string
	ModelVersion string
	HTTPStatus   int
	Code         ErrorCode
	LatencyMS    int64
	Raw          string
}

// Config configures a Client. Endpoint is the FastAPI-compatible scoring
// URL; Token, if set, is sent as a bearer token.
type Config struct {
	Endpoint       string
	Token          string
	ConnectTimeout time.Duration
	TotalTimeout   time.Duration
}

// Client posts normalized request metadata to an external classifier and
// parses its JSON response.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient builds a Client with a dedicated http.Client whose total
// timeout matches cfg.TotalTimeout; the connect-phase timeout is enforced
// separately by the transport's dialer, which uses cfg.ConnectTimeout.
func NewClient(cfg Config) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.TotalTimeout,
			Transport: transport,
		},
	}
}

type scoreRequest struct {
	RequestID string `json:"request_id,omitempty"`
	Host      string `json:"host"`
	Path      string `json:"path"`
}

type scoreResponse struct {
	Score        *float64 `json:"score"`
	Label        *string  `json:"label"`
	ModelVersion *string  `json:"model_version"`
}

// Classify scores ev and returns a Result. It never returns a Go error:
// every failure mode (no endpoint configured, connection refused,
// non-2xx, malformed JSON) is represented in the returned Result so the
// caller can persist it to the audit log uniformly.
func (c *Client) Classify(ctx context.Context, ev *httpevent.Event, requestID string) Result {
	if c.cfg.Endpoint == "" {
		return Result{Code: ErrClient, Raw: "classifier_not_configured"}
	}
	if ev == nil || ev.Host == "" {
		return Result{Code: ErrEmpty, Raw: "empty_event"}
	}

	path := ev.Path
	if path == "" {
		path = "/"
	}

	body, err := json.Marshal(scoreRequest{RequestID: requestID, Host: ev.Host, Path: path})
	if err != nil {
		return Result{Code: ErrClient, Raw: err.Error()}
	}

	connectCtx := ctx
	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout+c.cfg.TotalTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(connectCtx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{Code: ErrClient, Raw: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.Token))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		code := ErrClient
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			code = ErrTimeout
		}
		return Result{Code: code, LatencyMS: latency, Raw: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{
			Code:       ErrHTTP,
			HTTPStatus: resp.StatusCode,
			LatencyMS:  latency,
			Raw:        string(raw),
		}
	}

	var parsed scoreResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Score == nil || parsed.Label == nil {
		return Result{
			Code:       ErrParse,
			HTTPStatus: resp.StatusCode,
			LatencyMS:  latency,
			Raw:        string(raw),
		}
	}

	modelVersion := "unknown"
	if parsed.ModelVersion != nil && *parsed.ModelVersion != "" {
		modelVersion = *parsed.ModelVersion
	}

	return Result{
		OK:           true,
		Score:        *parsed.Score,
		Label:        *parsed.Label,
		ModelVersion: modelVersion,
		HTTPStatus:   resp.StatusCode,
		Code:         ErrNone,
		LatencyMS:    latency,
	}
}

// ErrorCodeString maps a failed Result to the audit-visible error code
// string, matching the original engine's ai_error_to_code mapping.
func ErrorCodeString(r Result) string {
	switch r.Code {
	case ErrNone:
		return "OK"
	case ErrTimeout:
		return "AI_TIMEOUT"
	case ErrHTTP:
		if r.HTTPStatus > 0 {
			return fmt.Sprintf("AI_HTTP_%d", r.HTTPStatus)
		}
		return "AI_HTTP"
	case ErrParse:
		return "AI_RESPONSE_INVALID"
	case ErrClient:
		return "AI_CURL"
	default:
		return "AI_EMPTY"
	}
}
