// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package packetforge

import (
	"encoding/binary"
	"fmt"
	"net"
)

// TCP flag bits, combined into the single flags byte of the TCP header.
const (
	FlagFIN uint8 = 0x01
	FlagSYN uint8 = 0x02
	FlagRST uint8 = 0x04
	FlagPSH uint8 = 0x08
	FlagACK uint8 = 0x10
	FlagURG uint8 = 0x20
)

const (
	ipHeaderLen  = 20
	tcpHeaderLen = 20
	maxTotalLen  = 1600
	protocolTCP  = 6
)

// TCPIPv4Params describes a single forged TCP/IPv4 segment. Ports and
// sequence numbers are host byte order; BuildTCPIPv4 handles all wire-order
// conversion. No IP or TCP options are ever emitted, matching the
// fixed 20/20-byte header layout this guard forges.
type TCPIPv4Params struct {
	SrcIP, DstIP     net.IP
	SrcPort, DstPort uint16
	Seq, Ack         uint32
	Flags            uint8
	Payload          []byte
	IPID             uint16
}

// BuildTCPIPv4 lays out [IP header][TCP header][payload] into a single
// buffer with both checksums computed, ready for rawsock to hand to the
// kernel with IP_HDRINCL set.
func BuildTCPIPv4(p TCPIPv4Params) ([]byte, error) {
	srcIP := p.SrcIP.To4()
	dstIP := p.DstIP.To4()
	if srcIP == nil || dstIP == nil {
		return nil, fmt.Errorf("packetforge: src/dst must be IPv4 addresses")
	}

	total := ipHeaderLen + tcpHeaderLen + len(p.Payload)
	if total > maxTotalLen {
		return nil, fmt.Errorf("packetforge: forged segment too large: %d bytes", total)
	}

	out := make([]byte, total)

	ip := out[0:ipHeaderLen]
	ip[0] = 0x45 // version 4, IHL 5 (20 bytes, no options)
	ip[1] = 0    // TOS
	binary.BigEndian.PutUint16(ip[2:4], uint16(total))
	binary.BigEndian.PutUint16(ip[4:6], p.IPID)
	binary.BigEndian.PutUint16(ip[6:8], 0) // flags/fragment offset
	ip[8] = 64                             // TTL
	ip[9] = protocolTCP
	binary.BigEndian.PutUint16(ip[10:12], 0) // checksum placeholder
	copy(ip[12:16], srcIP)
	copy(ip[16:20], dstIP)
	binary.BigEndian.PutUint16(ip[10:12], Checksum16(ip))

	tcp := out[ipHeaderLen : ipHeaderLen+tcpHeaderLen]
	binary.BigEndian.PutUint16(tcp[0:2], p.SrcPort)
	binary.BigEndian.PutUint16(tcp[2:4], p.DstPort)
	binary.BigEndian.PutUint32(tcp[4:8], p.Seq)
	binary.BigEndian.PutUint32(tcp[8:12], p.Ack)
	tcp[12] = (tcpHeaderLen / 4) << 4 // data offset, no reserved bits
	tcp[13] = p.Flags
	binary.BigEndian.PutUint16(tcp[14:16], 65535) // window
	binary.BigEndian.PutUint16(tcp[16:18], 0)      // checksum placeholder
	binary.BigEndian.PutUint16(tcp[18:20], 0)      // urgent pointer

	if len(p.Payload) > 0 {
		copy(out[ipHeaderLen+tcpHeaderLen:], p.Payload)
	}

	binary.BigEndian.PutUint16(tcp[16:18], tcpChecksum(srcIP, dstIP, tcp, p.Payload))

	return out, nil
}

// tcpChecksum computes the TCP checksum over the IPv4 pseudo-header,
// the TCP header (with its checksum field zeroed) and the payload.
func tcpChecksum(srcIP, dstIP net.IP, tcpHeader, payload []byte) uint16 {
	pseudo := make([]byte, 12, 12+tcpHeaderLen+len(payload))
	copy(pseudo[0:4], srcIP)
	copy(pseudo[4:8], dstIP)
	pseudo[8] = 0
	pseudo[9] = protocolTCP
	binary.BigEndian.PutUint16(pseudo[10:12], uint16(len(tcpHeader)+len(payload)))

	buf := append(pseudo, tcpHeader...)
	buf[len(pseudo)+16] = 0
	buf[len(pseudo)+17] = 0
	buf = append(buf, payload...)

	return Checksum16(buf)
}
