// Package capturetest builds small in-memory captures for tests.
package capturetest

import (
	"bytes"
	"io"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Start is the timestamp of the first packet written by Write.
var Start = time.Date(2023, 3, 14, 9, 26, 53, 0, time.UTC)

// Endpoint is an IPv4 address and TCP port.
type Endpoint struct {
	IP   string
	Port uint16
}

var (
	Client = Endpoint{IP: "10.0.0.20", Port: 49712}
	Server = Endpoint{IP: "10.0.0.5", Port: 445}
)

// TCP serializes an Ethernet/IPv4/TCP frame carrying payload.
func TCP(src, dst Endpoint, payload []byte) []byte {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x0c, 0x29, 0x01, 0x02, 0x03},
		DstMAC:       net.HardwareAddr{0x00, 0x0c, 0x29, 0x04, 0x05, 0x06},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      128,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.ParseIP(src.IP).To4(),
		DstIP:    net.ParseIP(dst.IP).To4(),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(src.Port),
		DstPort: layers.TCPPort(dst.Port),
		PSH:     true,
		ACK:     true,
		Window:  8192,
	}
	tcp.SetNetworkLayerForChecksum(ip)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(payload)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Truncated returns an Ethernet frame announcing IPv4 with a cut-off header.
func Truncated() []byte {
	frame := TCP(Client, Server, []byte("x"))
	return frame[:14+6]
}

// Write writes frames as a pcap file with the given link type.
func Write(w io.Writer, linkType layers.LinkType, frames ...[]byte) error {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(65535, linkType); err != nil {
		return err
	}
	for i, frame := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     Start.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		if err := pw.WritePacket(ci, frame); err != nil {
			return err
		}
	}
	return nil
}

// WriteNg writes Ethernet frames as a pcapng file.
func WriteNg(w io.Writer, frames ...[]byte) error {
	nw, err := pcapgo.NewNgWriter(w, layers.LinkTypeEthernet)
	if err != nil {
		return err
	}
	for i, frame := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     Start.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		if err := nw.WritePacket(ci, frame); err != nil {
			return err
		}
	}
	return nw.Flush()
}

// Pcap returns an Ethernet pcap file containing frames.
func Pcap(frames ...[]byte) []byte {
	var b bytes.Buffer
	if err := Write(&b, layers.LinkTypeEthernet, frames...); err != nil {
		panic(err)
	}
	return b.Bytes()
}
