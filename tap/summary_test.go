package tap

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	srcMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	dstMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

func serialize(t *testing.T, l ...gopacket.SerializableLayer) []byte {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, l...))
	return buf.Bytes()
}

func TestSummarizeIPv4(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(10, 0, 0, 1),
		DstIP:    net.IPv4(10, 0, 0, 2),
	}

	s := Summarize(serialize(t, eth, ip, gopacket.Payload([]byte("hello"))))
	assert.Contains(t, s, "02:00:00:00:00:01 > 02:00:00:00:00:02")
	assert.Contains(t, s, "10.0.0.1 > 10.0.0.2 UDP")
}

func TestSummarizeARP(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: layers.EthernetBroadcast, EthernetType: layers.EthernetTypeARP}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   srcMAC,
		SourceProtAddress: []byte{10, 0, 0, 1},
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    []byte{10, 0, 0, 2},
	}

	s := Summarize(serialize(t, eth, arp))
	assert.Contains(t, s, "arp request 10.0.0.1 > 10.0.0.2")
}

func TestSummarizeMalformed(t *testing.T) {
	assert.Equal(t, "malformed ethernet frame (3 bytes)", Summarize([]byte{1, 2, 3}))
}
