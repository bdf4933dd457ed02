// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package capture sniffs live TCP traffic off an interface and turns
// HTTP request segments into httpevent.Event values for the dispatcher.
package capture

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcap"

	"github.com/tami-bang/GateGuard/internal/httpevent"
)

const (
	snapLen    = 65535
	bpfFilter  = "tcp and (port 80 or port 8080)"
	readTimeout = time.Second
)

// Capturer sniffs an interface for HTTP requests carried over TCP.
type Capturer struct {
	handle *pcap.Handle
	ifname string
}

// Open starts a live capture on ifname with the guard's BPF filter
// applied, in promiscuous mode.
func Open(ifname string) (*Capturer, error) {
	handle, err := pcap.OpenLive(ifname, snapLen, true, readTimeout)
	if err != nil {
		return nil, fmt.Errorf("capture: open %s: %w", ifname, err)
	}

	if err := handle.SetBPFFilter(bpfFilter); err != nil {
		handle.Close()
		return nil, fmt.Errorf("capture: set filter on %s: %w", ifname, err)
	}

	return &Capturer{handle: handle, ifname: ifname}, nil
}

// Close releases the underlying capture handle.
func (c *Capturer) Close() {
	c.handle.Close()
}

// Run reads packets until ctx is cancelled or the capture source is
// exhausted, calling onEvent for every segment recognized as the start
// of an HTTP request. onEvent is called synchronously from Run's
// goroutine; callers that need concurrency must provide it themselves.
func (c *Capturer) Run(ctx context.Context, onEvent func(*httpevent.Event)) error {
	source := gopacket.NewPacketSource(c.handle, c.handle.LinkType())
	packets := source.Packets()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case packet, open := <-packets:
			if !open {
				return nil
			}
			if ev, ok := eventFromPacket(packet); ok {
				onEvent(ev)
			}
		}
	}
}

func eventFromPacket(packet gopacket.Packet) (*httpevent.Event, bool) {
	ipLayer := packet.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return nil, false
	}
	ip, ok := ipLayer.(*layers.IPv4)
	if !ok {
		return nil, false
	}

	tcpLayer := packet.Layer(layers.LayerTypeTCP)
	if tcpLayer == nil {
		return nil, false
	}
	tcp, ok := tcpLayer.(*layers.TCP)
	if !ok {
		return nil, false
	}

	payload := tcp.LayerPayload()
	if len(payload) == 0 {
		return nil, false
	}

	meta := httpevent.TCPMeta{
		ClientIP:      ip.SrcIP.String(),
		ServerIP:      ip.DstIP.String(),
		ClientPort:    uint16(tcp.SrcPort),
		ServerPort:    uint16(tcp.DstPort),
		Seq:           tcp.Seq,
		Ack:           tcp.Ack,
		TCPFlags:      tcpFlagsOf(tcp),
		ClientIPNBO:   ipv4ToNBO(ip.SrcIP),
		ServerIPNBO:   ipv4ToNBO(ip.DstIP),
		ClientPortNBO: uint16(tcp.SrcPort),
		ServerPortNBO: uint16(tcp.DstPort),
	}

	var detectTS int64
	if meta2 := packet.Metadata(); meta2 != nil {
		detectTS = meta2.Timestamp.UnixMilli()
	}

	return buildEvent(payload, meta, detectTS)
}

func tcpFlagsOf(tcp *layers.TCP) uint8 {
	var flags uint8
	if tcp.FIN {
		flags |= 0x01
	}
	if tcp.SYN {
		flags |= 0x02
	}
	if tcp.RST {
		flags |= 0x04
	}
	if tcp.PSH {
		flags |= 0x08
	}
	if tcp.ACK {
		flags |= 0x10
	}
	if tcp.URG {
		flags |= 0x20
	}
	return flags
}

func ipv4ToNBO(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(v4)
}
