// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"fmt"
	"io"
	"net"
	"time"
)

// SyslogConfig describes an optional remote syslog sink for audit-grade
// log mirroring alongside the normal stderr output.
type SyslogConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Protocol string // "udp" or "tcp"
	Tag      string
	Facility int
}

// DefaultSyslogConfig returns remote syslog disabled by default, with
// the defaults NewSyslogWriter applies when a field is left zero.
func DefaultSyslogConfig() SyslogConfig {
	return SyslogConfig{
		Enabled:  false,
		Port:     514,
		Protocol: "udp",
		Tag:      "gateguard",
		Facility: 1,
	}
}

// syslogWriter writes RFC3164-style lines to a remote syslog collector
// over a persistent UDP or TCP connection.
type syslogWriter struct {
	conn     net.Conn
	tag      string
	facility int
}

// NewSyslogWriter dials cfg.Host:cfg.Port and returns an io.Writer that
// forwards every write as one syslog message. Zero-valued Port,
// Protocol, and Tag are defaulted the same way DefaultSyslogConfig sets
// them.
func NewSyslogWriter(cfg SyslogConfig) (io.Writer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("logging: syslog host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 514
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
	if cfg.Tag == "" {
		cfg.Tag = "gateguard"
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := net.DialTimeout(cfg.Protocol, addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("logging: dial syslog %s: %w", addr, err)
	}

	return &syslogWriter{conn: conn, tag: cfg.Tag, facility: cfg.Facility}, nil
}

func (w *syslogWriter) Write(p []byte) (int, error) {
	priority := w.facility*8 + 6 // informational severity
	msg := fmt.Sprintf("<%d>%s %s: %s", priority, time.Now().Format(time.RFC3339), w.tag, p)
	if _, err := w.conn.Write([]byte(msg)); err != nil {
		return 0, err
	}
	return len(p), nil
}
