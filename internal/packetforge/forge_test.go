// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package packetforge

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTCPIPv4_HeaderLayout(t *testing.T) {
	payload := []byte("hello")
	pkt, err := BuildTCPIPv4(TCPIPv4Params{
		SrcIP:   net.ParseIP("10.0.0.2"),
		DstIP:   net.ParseIP("10.0.0.5"),
		SrcPort: 80,
		DstPort: 51234,
		Seq:     1000,
		Ack:     2000,
		Flags:   FlagACK | FlagPSH,
		Payload: payload,
		IPID:    0x1234,
	})
	require.NoError(t, err)
	require.Len(t, pkt, ipHeaderLen+tcpHeaderLen+len(payload))

	assert.Equal(t, byte(0x45), pkt[0])
	assert.Equal(t, uint16(len(pkt)), binary.BigEndian.Uint16(pkt[2:4]))
	assert.Equal(t, uint16(0x1234), binary.BigEndian.Uint16(pkt[4:6]))
	assert.Equal(t, byte(64), pkt[8])
	assert.Equal(t, byte(protocolTCP), pkt[9])
	assert.True(t, net.IP(pkt[12:16]).Equal(net.ParseIP("10.0.0.2")))
	assert.True(t, net.IP(pkt[16:20]).Equal(net.ParseIP("10.0.0.5")))

	tcp := pkt[ipHeaderLen:]
	assert.Equal(t, uint16(80), binary.BigEndian.Uint16(tcp[0:2]))
	assert.Equal(t, uint16(51234), binary.BigEndian.Uint16(tcp[2:4]))
	assert.Equal(t, uint32(1000), binary.BigEndian.Uint32(tcp[4:8]))
	assert.Equal(t, uint32(2000), binary.BigEndian.Uint32(tcp[8:12]))
	assert.Equal(t, FlagACK|FlagPSH, tcp[13])
	assert.Equal(t, "hello", string(pkt[ipHeaderLen+tcpHeaderLen:]))

	// IP header sums to 0xFFFF when re-summed, so its checksum is 0.
	assert.Equal(t, uint16(0), Checksum16(pkt[0:ipHeaderLen]))
}

func TestBuildTCPIPv4_RejectsNonIPv4(t *testing.T) {
	_, err := BuildTCPIPv4(TCPIPv4Params{
		SrcIP: net.ParseIP("::1"),
		DstIP: net.ParseIP("10.0.0.5"),
	})
	assert.Error(t, err)
}

func TestBuildTCPIPv4_RejectsOversizedPayload(t *testing.T) {
	_, err := BuildTCPIPv4(TCPIPv4Params{
		SrcIP:   net.ParseIP("10.0.0.2"),
		DstIP:   net.ParseIP("10.0.0.5"),
		Payload: make([]byte, maxTotalLen),
	})
	assert.Error(t, err)
}

func TestBuildTCPIPv4_ChecksumChangesWithPayload(t *testing.T) {
	base := TCPIPv4Params{
		SrcIP: net.ParseIP("192.168.1.1"),
		DstIP: net.ParseIP("192.168.1.2"),
	}
	a, err := BuildTCPIPv4(base)
	require.NoError(t, err)

	base.Payload = []byte("x")
	b, err := BuildTCPIPv4(base)
	require.NoError(t, err)

	aTCPSum := binary.BigEndian.Uint16(a[ipHeaderLen+16 : ipHeaderLen+18])
	bTCPSum := binary.BigEndian.Uint16(b[ipHeaderLen+16 : ipHeaderLen+18])
	assert.NotEqual(t, aTCPSum, bTCPSum)
}
