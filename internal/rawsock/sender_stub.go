// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package rawsock

import (
	"fmt"
	"net"
)

// RawSender is a non-Linux stub: raw IP_HDRINCL sockets are a Linux-only
// facility, so every call fails rather than silently dropping injections.
type RawSender struct{}

// NewRawSender returns a Sender stub for unsupported platforms.
func NewRawSender() *RawSender {
	return &RawSender{}
}

func (s *RawSender) Send(packet []byte, dst net.IP) error {
	return fmt.Errorf("rawsock: raw IPv4 injection is not supported on this platform")
}

func (s *RawSender) Close() error {
	return nil
}

// ErrnoOf has no real errno to recover on this platform; every non-nil
// send error falls back to EIO.
func ErrnoOf(err error) int {
	if err == nil {
		return 0
	}
	return EIO
}
