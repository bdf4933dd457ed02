// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package injector forges and sends the single spoofed HTTP 403 segment a
// BLOCK decision produces, and records the attempt to the audit store.
package injector

import (
	"fmt"
	"net"
	"time"

	"github.com/tami-bang/GateGuard/internal/audit"
	"github.com/tami-bang/GateGuard/internal/httpevent"
	"github.com/tami-bang/GateGuard/internal/packetforge"
	"github.com/tami-bang/GateGuard/internal/rawsock"
)

const blockedBody = "Blocked by GateGuard\n"

// Injector owns the raw socket used to send forged responses and the
// audit store those attempts are recorded to.
type Injector struct {
	sender rawsock.Sender
	store  *audit.Store
}

// New returns an Injector sending through sender and recording to store.
func New(sender rawsock.Sender, store *audit.Store) *Injector {
	return &Injector{sender: sender, store: store}
}

// build403Response renders the fixed plaintext 403 response this guard
// always injects.
func build403Response() []byte {
	body := blockedBody
	return []byte(fmt.Sprintf(
		"HTTP/1.1 403 Forbidden\r\n"+
			"Content-Type: text/plain\r\n"+
			"Content-Length: %d\r\n"+
			"Connection: close\r\n"+
			"\r\n"+
			"%s",
		len(body), body,
	))
}

// Inject forges one spoofed server->client segment carrying a 403
// response into ev's TCP stream, attempts to send it, and always records
// the outcome to access_log regardless of success. statusCode is the
// value recorded alongside the attempt (the policy's configured block
// status code, or 403 for an AI-stage block).
func (inj *Injector) Inject(ev *httpevent.Event, logID int64, statusCode int) error {
	start := time.Now()

	if statusCode <= 0 {
		statusCode = 403
	}

	payload := build403Response()

	// The client's next expected server sequence is the ack it already
	// sent us; our ack is the client's sequence plus however much of its
	// request we observed.
	seq := ev.Meta.Ack
	ack := ev.Meta.Seq + uint32(len(ev.Payload))

	pkt, err := packetforge.BuildTCPIPv4(packetforge.TCPIPv4Params{
		SrcIP:   net.ParseIP(ev.Meta.ServerIP),
		DstIP:   net.ParseIP(ev.Meta.ClientIP),
		SrcPort: ev.Meta.ServerPort,
		DstPort: ev.Meta.ClientPort,
		Seq:     seq,
		Ack:     ack,
		Flags:   packetforge.FlagACK | packetforge.FlagPSH,
		Payload: payload,
		IPID:    uint16(logID & 0xFFFF),
	})
	if err != nil {
		latency := time.Since(start).Milliseconds()
		return inj.recordAndReturn(logID, true, false, rawsock.EINVAL, latency, statusCode, err)
	}

	sendErr := inj.sender.Send(pkt, net.ParseIP(ev.Meta.ClientIP))
	latency := time.Since(start).Milliseconds()

	return inj.recordAndReturn(logID, true, sendErr == nil, rawsock.ErrnoOf(sendErr), latency, statusCode, sendErr)
}

func (inj *Injector) recordAndReturn(logID int64, attempted, sendOK bool, errno int, latencyMS int64, statusCode int, cause error) error {
	if err := inj.store.UpdateAccessLogInject(logID, attempted, sendOK, errno, int(latencyMS), statusCode); err != nil {
		return fmt.Errorf("injector: record inject outcome: %w", err)
	}
	return cause
}
