// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package rawsock

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"golang.org/x/sys/unix"
)

// RawSender is a single lazily-initialized IP_HDRINCL raw socket, mirroring
// the original engine's one-socket-for-the-process-lifetime pattern: the
// fd is opened on first Send and reused for every subsequent injection.
type RawSender struct {
	mu sync.Mutex
	fd int
}

// NewRawSender returns a Sender backed by a real AF_INET/SOCK_RAW socket.
// The socket is not opened until the first Send call.
func NewRawSender() *RawSender {
	return &RawSender{fd: -1}
}

func (s *RawSender) init() error {
	if s.fd >= 0 {
		return nil
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_RAW)
	if err != nil {
		return fmt.Errorf("rawsock: socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_HDRINCL, 1); err != nil {
		unix.Close(fd)
		return fmt.Errorf("rawsock: setsockopt IP_HDRINCL: %w", err)
	}

	s.fd = fd
	return nil
}

// Send transmits packet (a complete IPv4 header + payload) to dst.
func (s *RawSender) Send(packet []byte, dst net.IP) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.init(); err != nil {
		return err
	}

	dst4 := dst.To4()
	if dst4 == nil {
		return fmt.Errorf("rawsock: destination is not an IPv4 address")
	}

	addr := unix.SockaddrInet4{}
	copy(addr.Addr[:], dst4)

	if err := unix.Sendto(s.fd, packet, 0, &addr); err != nil {
		return fmt.Errorf("rawsock: sendto: %w", err)
	}

	return nil
}

// ErrnoOf recovers the real OS errno unix.Sendto wrapped into err, falling
// back to EIO when err's chain carries no unix.Errno (e.g. a validation
// error raised before the syscall layer is reached).
func ErrnoOf(err error) int {
	if err == nil {
		return 0
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return EIO
}

// Close releases the underlying socket, if one was opened.
func (s *RawSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}
