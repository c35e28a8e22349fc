// Package capture turns capture files and live interfaces into a stream of
// application-layer payloads.
package capture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/jfjallid/golog"
)

var log = golog.Get("github.com/stackviolator/ntlm_extract/internal/capture")

// ErrUnsupportedLinkType is returned when a capture is not Ethernet.
var ErrUnsupportedLinkType = errors.New("unsupported link type")

// pcapng Section Header Block type. Byte order independent.
const pcapngMagic = 0x0a0d0d0a

// Handle is a packet data source that knows its link type. *pcap.Handle,
// *pcapgo.Reader and *pcapgo.NgReader all satisfy it.
type Handle interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// DecodeError is returned by Source.Next for a packet whose headers could
// not be decoded. The source remains usable.
type DecodeError struct {
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("packet %d: %v", e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Flow identifies a conversation independent of direction.
type Flow struct {
	Network   gopacket.Flow
	Transport gopacket.Flow
}

func (f Flow) String() string {
	return f.Network.String() + " " + f.Transport.String()
}

// canonical orders the endpoints so both directions yield the same key.
func (f Flow) canonical() Flow {
	src, dst := f.Network.Endpoints()
	swap := dst.LessThan(src)
	if src == dst {
		tsrc, tdst := f.Transport.Endpoints()
		swap = tdst.LessThan(tsrc)
	}
	if swap {
		return Flow{Network: f.Network.Reverse(), Transport: f.Transport.Reverse()}
	}
	return f
}

// Payload is the application-layer content of one packet. Data is only
// valid until the next call to Source.Next.
type Payload struct {
	Index     int
	Timestamp time.Time
	Flow      Flow
	Data      []byte
}

// Source yields payloads from an Ethernet capture in capture order.
type Source struct {
	Name    string
	packets *gopacket.PacketSource
	closer  io.Closer
	index   int
}

// NewSource wraps h. Only Ethernet captures are accepted; on any other link
// type closer is closed and ErrUnsupportedLinkType is returned.
func NewSource(name string, h Handle, closer io.Closer) (*Source, error) {
	if lt := h.LinkType(); lt != layers.LinkTypeEthernet {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("%s: %w: %s (%d)", name, ErrUnsupportedLinkType, lt, uint8(lt))
	}
	packets := gopacket.NewPacketSource(h, layers.LinkTypeEthernet)
	packets.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}
	return &Source{
		Name:    name,
		packets: packets,
		closer:  closer,
	}, nil
}

// Open reads a pcap or pcapng stream from r.
func Open(name string, r io.Reader, closer io.Closer) (*Source, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("%s: reading capture header: %w", name, err)
	}

	var h Handle
	if binary.LittleEndian.Uint32(magic) == pcapngMagic {
		h, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		h, err = pcapgo.NewReader(br)
	}
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return NewSource(name, h, closer)
}

// OpenFile opens a pcap or pcapng file.
func OpenFile(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return Open(path, f, f)
}

// Next returns the next packet that carries an application-layer payload.
// It returns io.EOF when the capture is exhausted and a *DecodeError for
// packets with broken headers.
func (s *Source) Next() (Payload, error) {
	for {
		packet, err := s.packets.NextPacket()
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				log.Warningf("%s: capture truncated after packet %d\n", s.Name, s.index)
				return Payload{}, io.EOF
			}
			return Payload{}, err
		}
		s.index++

		if errLayer := packet.ErrorLayer(); errLayer != nil {
			return Payload{Index: s.index}, &DecodeError{Index: s.index, Err: errLayer.Error()}
		}
		app := packet.ApplicationLayer()
		if app == nil || len(app.Payload()) == 0 {
			continue
		}

		p := Payload{
			Index:     s.index,
			Timestamp: packet.Metadata().Timestamp,
			Data:      app.Payload(),
		}
		if nl := packet.NetworkLayer(); nl != nil {
			p.Flow.Network = nl.NetworkFlow()
		}
		if tl := packet.TransportLayer(); tl != nil {
			p.Flow.Transport = tl.TransportFlow()
		}
		p.Flow = p.Flow.canonical()
		return p, nil
	}
}

// Packets returns the number of packets read so far.
func (s *Source) Packets() int {
	return s.index
}

func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
