// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package injector

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tami-bang/GateGuard/internal/audit"
	"github.com/tami-bang/GateGuard/internal/httpevent"
	"github.com/tami-bang/GateGuard/internal/rawsock"
)

type fakeSender struct {
	lastPacket []byte
	lastDst    net.IP
	err        error
}

func (f *fakeSender) Send(packet []byte, dst net.IP) error {
	f.lastPacket = packet
	f.lastDst = dst
	return f.err
}

func (f *fakeSender) Close() error { return nil }

func newTestEvent() *httpevent.Event {
	return &httpevent.Event{
		Host:    "bad.example.com",
		Path:    "/malware",
		Payload: []byte("GET /malware HTTP/1.1\r\n"),
		Meta: httpevent.TCPMeta{
			ClientIP:   "10.0.0.5",
			ServerIP:   "10.0.0.2",
			ClientPort: 51234,
			ServerPort: 80,
			Seq:        1000,
			Ack:        2000,
		},
	}
}

func TestInject_Success(t *testing.T) {
	store, err := audit.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	logID, err := store.InsertAccessLog("req-1", "10.0.0.5", "bad.example.com", "/malware")
	require.NoError(t, err)

	sender := &fakeSender{}
	inj := New(sender, store)

	err = inj.Inject(newTestEvent(), logID, 403)
	require.NoError(t, err)
	require.NotNil(t, sender.lastPacket)
	require.True(t, sender.lastDst.Equal(net.ParseIP("10.0.0.5")))

	var attempted, sendOK, status int
	require.NoError(t, store.QueryRow(
		`SELECT inject_attempted, inject_send, inject_status_code FROM access_log WHERE log_id=?`,
		logID,
	).Scan(&attempted, &sendOK, &status))
	require.Equal(t, 1, attempted)
	require.Equal(t, 1, sendOK)
	require.Equal(t, 403, status)
}

func TestInject_SendFailureStillRecordsAttempt(t *testing.T) {
	store, err := audit.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	logID, err := store.InsertAccessLog("req-1", "10.0.0.5", "bad.example.com", "/malware")
	require.NoError(t, err)

	sender := &fakeSender{err: net.ErrClosed}
	inj := New(sender, store)

	err = inj.Inject(newTestEvent(), logID, 403)
	require.Error(t, err)

	var attempted, sendOK int
	require.NoError(t, store.QueryRow(
		`SELECT inject_attempted, inject_send FROM access_log WHERE log_id=?`,
		logID,
	).Scan(&attempted, &sendOK))
	require.Equal(t, 1, attempted)
	require.Equal(t, 0, sendOK)
}

func TestInject_BuildFailureStillRecordsAttempt(t *testing.T) {
	store, err := audit.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	logID, err := store.InsertAccessLog("req-1", "::1", "bad.example.com", "/malware")
	require.NoError(t, err)

	ev := newTestEvent()
	ev.Meta.ServerIP = "::1" // not an IPv4 address, forces BuildTCPIPv4 to fail

	sender := &fakeSender{}
	inj := New(sender, store)

	err = inj.Inject(ev, logID, 403)
	require.Error(t, err)
	require.Nil(t, sender.lastPacket)

	var attempted, sendOK, errno int
	require.NoError(t, store.QueryRow(
		`SELECT inject_attempted, inject_send, inject_errno FROM access_log WHERE log_id=?`,
		logID,
	).Scan(&attempted, &sendOK, &errno))
	require.Equal(t, 1, attempted)
	require.Equal(t, 0, sendOK)
	require.Equal(t, rawsock.EINVAL, errno)
}

func TestInject_DefaultsStatusCodeTo403(t *testing.T) {
	store, err := audit.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	logID, err := store.InsertAccessLog("req-1", "10.0.0.5", "bad.example.com", "/malware")
	require.NoError(t, err)

	inj := New(&fakeSender{}, store)
	require.NoError(t, inj.Inject(newTestEvent(), logID, 0))

	var status int
	require.NoError(t, store.QueryRow(
		`SELECT inject_status_code FROM access_log WHERE log_id=?`, logID,
	).Scan(&status))
	require.Equal(t, 403, status)
}
