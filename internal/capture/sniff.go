// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package capture

import (
	"bytes"
	"fmt"

	"github.com/tami-bang/GateGuard/internal/httpevent"
)

// missingHost is recorded when a request carries no Host header at all,
// so the event still reaches the policy cache instead of being dropped.
const missingHost = "_missing_"

const maxRequestLineLen = 1023

var httpMethodPrefixes = [][]byte{
	[]byte("GET "),
	[]byte("POST"),
	[]byte("HEAD"),
	[]byte("PUT "),
	[]byte("DELE"),
	[]byte("OPTI"),
}

// looksLikeHTTPRequest reports whether payload starts with one of the
// known HTTP method prefixes. This only ever catches requests whose
// first TCP segment begins the request line; segments split across
// retransmits or earlier fragments are missed by design rather than
// reassembled.
func looksLikeHTTPRequest(payload []byte) bool {
	if len(payload) < 4 {
		return false
	}
	for _, prefix := range httpMethodPrefixes {
		if bytes.Equal(payload[:4], prefix) {
			return true
		}
	}
	return false
}

// parseRequestLine extracts the method and path from payload's first
// CRLF-terminated line, capped at maxRequestLineLen bytes.
func parseRequestLine(payload []byte) (method, path string, ok bool) {
	idx := bytes.Index(payload, []byte("\r\n"))
	if idx < 0 {
		return "", "", false
	}
	if idx > maxRequestLineLen {
		idx = maxRequestLineLen
	}
	line := payload[:idx]

	var m, p string
	n, _ := fmt.Sscanf(string(line), "%15s %511s", &m, &p)
	if n != 2 {
		return "", "", false
	}
	return m, p, true
}

var hostHeaderVariants = []struct {
	token     []byte
	valueSkip int
}{
	{[]byte("Host:"), 5},
	{[]byte("host:"), 5},
	{[]byte("Host :"), 6},
	{[]byte("host :"), 6},
}

// findHostHeader locates a Host header value inside payload, tolerating
// the "Host :" spaced variant, and returns ("", false) when no Host
// header or no terminating CRLF for it is present.
func findHostHeader(payload []byte) (string, bool) {
	var pos, skip int = -1, 0
	for _, v := range hostHeaderVariants {
		if i := bytes.Index(payload, v.token); i >= 0 {
			pos, skip = i, v.valueSkip
			break
		}
	}
	if pos < 0 {
		return "", false
	}

	rest := payload[pos+skip:]
	for len(rest) > 0 && (rest[0] == ' ' || rest[0] == '\t') {
		rest = rest[1:]
	}

	end := bytes.Index(rest, []byte("\r\n"))
	if end < 0 {
		return "", false
	}
	return string(rest[:end]), true
}

// buildEvent parses an HTTP request out of a single TCP segment's
// payload and attaches meta, returning ok=false when the segment does
// not look like the start of an HTTP request or has no request line.
func buildEvent(payload []byte, meta httpevent.TCPMeta, detectTSMillis int64) (*httpevent.Event, bool) {
	if !looksLikeHTTPRequest(payload) {
		return nil, false
	}

	method, path, ok := parseRequestLine(payload)
	if !ok {
		return nil, false
	}

	host, found := findHostHeader(payload)
	if !found {
		host = missingHost
	}

	ev := &httpevent.Event{
		Method:         method,
		Host:           host,
		Path:           path,
		URLNorm:        httpevent.URLNormalize(host, path),
		DetectTSMillis: detectTSMillis,
		Payload:        payload,
		Meta:           meta,
	}
	return ev, true
}
