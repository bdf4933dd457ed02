// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package httpevent holds the data model a captured HTTP request is
// normalized into before it travels through the policy/classifier/decision
// pipeline.
package httpevent

import "fmt"

// TCPMeta carries the 4-tuple and sequence state needed to forge a reply
// into the same TCP stream the request arrived on.
type TCPMeta struct {
	ClientIP   string
	ServerIP   string
	ClientPort uint16
	ServerPort uint16

	Seq uint32
	Ack uint32

	TCPFlags uint8

	// Numeric forms of the addresses and ports, filled in by the capture
	// layer alongside the fields above. The injector does not read them:
	// it parses ClientIP/ServerIP and uses ClientPort/ServerPort.
	ClientIPNBO   uint32
	ServerIPNBO   uint32
	ClientPortNBO uint16
	ServerPortNBO uint16
}

// Event is a single captured HTTP request, normalized from raw packet
// bytes by the capture package.
type Event struct {
	Method string
	Host   string
	Path   string

	// URLNorm is Host+Path, the string policy URL rules match against.
	URLNorm string

	DetectTSMillis int64
	Payload        []byte

	Meta TCPMeta
}

// URLNormalize builds the URLNorm field from Host and Path the same way
// the capture layer does at extraction time; exported so tests and the
// classifier can reconstruct it without duplicating the concatenation rule.
func URLNormalize(host, path string) string {
	return fmt.Sprintf("%s%s", host, path)
}
