package tap

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Summarize describes an ethernet frame for logs: MACs, ethertype and, for
// IPv4 and ARP, the network-layer addresses.
func Summarize(b []byte) string {
	var eth layers.Ethernet
	if err := eth.DecodeFromBytes(b, gopacket.NilDecodeFeedback); err != nil {
		return fmt.Sprintf("malformed ethernet frame (%d bytes)", len(b))
	}

	s := fmt.Sprintf("%s > %s %s", eth.SrcMAC, eth.DstMAC, eth.EthernetType)

	switch eth.EthernetType {
	case layers.EthernetTypeIPv4:
		var ip layers.IPv4
		if err := ip.DecodeFromBytes(eth.Payload, gopacket.NilDecodeFeedback); err == nil {
			s += fmt.Sprintf(" %s > %s %s", ip.SrcIP, ip.DstIP, ip.Protocol)
		}
	case layers.EthernetTypeIPv6:
		var ip layers.IPv6
		if err := ip.DecodeFromBytes(eth.Payload, gopacket.NilDecodeFeedback); err == nil {
			s += fmt.Sprintf(" %s > %s %s", ip.SrcIP, ip.DstIP, ip.NextHeader)
		}
	case layers.EthernetTypeARP:
		var arp layers.ARP
		if err := arp.DecodeFromBytes(eth.Payload, gopacket.NilDecodeFeedback); err == nil {
			op := "reply"
			if arp.Operation == layers.ARPRequest {
				op = "request"
			}
			s += fmt.Sprintf(" arp %s %s > %s", op, net.IP(arp.SourceProtAddress), net.IP(arp.DstProtAddress))
		}
	}

	return s
}
