package ntlmssp

import (
	"encoding/binary"
	"fmt"
)

// Fixed positions inside NTLMSSP messages, relative to the start of the
// signature. See MS-NLMP 2.2.1.2 (CHALLENGE_MESSAGE) and 2.2.1.3
// (AUTHENTICATE_MESSAGE).
const (
	// ServerChallenge follows Signature(8), MessageType(4),
	// TargetNameFields(8) and NegotiateFlags(4).
	challengeAt  = 24
	challengeLen = 8

	// NtChallengeResponseFields.MaxLen. Anonymous and placeholder
	// AUTHENTICATE messages carry an empty (or 1 byte) NT response.
	discardAt        = 22
	discardThreshold = 1
)

// Field names a length/offset pair in an AUTHENTICATE_MESSAGE header.
type Field struct {
	Name     string
	LengthAt int
	OffsetAt int
}

var (
	LmResponseField = Field{Name: "LmChallengeResponse", LengthAt: 12, OffsetAt: 16}
	NtResponseField = Field{Name: "NtChallengeResponse", LengthAt: 20, OffsetAt: 24}
	DomainField     = Field{Name: "DomainName", LengthAt: 28, OffsetAt: 32}
	UserField       = Field{Name: "UserName", LengthAt: 36, OffsetAt: 40}
)

// BoundsError reports a declared field that does not fit in the buffer.
// Header is set when the length/offset pair itself could not be read.
type BoundsError struct {
	Field  string
	Header int
	Length int
	Offset int
	Size   int
}

func (e *BoundsError) Error() string {
	name := e.Field
	if name == "" {
		name = "field"
	}
	if e.Header >= 0 {
		return fmt.Sprintf("%s header at %d is past end of %d byte buffer", name, e.Header, e.Size)
	}
	return fmt.Sprintf("%s declares length %d at offset %d but buffer is %d bytes", name, e.Length, e.Offset, e.Size)
}

func readUint16(buf []byte, at int, name string) (int, error) {
	if at < 0 || at+2 > len(buf) {
		return 0, &BoundsError{Field: name, Header: at, Length: -1, Offset: -1, Size: len(buf)}
	}
	return int(binary.LittleEndian.Uint16(buf[at:])), nil
}

// Extract reads the little-endian uint16 length at lengthAt and uint16
// offset at offsetAt and returns buf[offset:offset+length]. The result
// aliases buf.
func Extract(buf []byte, lengthAt, offsetAt int) ([]byte, error) {
	return extract(buf, Field{LengthAt: lengthAt, OffsetAt: offsetAt})
}

// ExtractField is Extract for a named field.
func ExtractField(buf []byte, f Field) ([]byte, error) {
	return extract(buf, f)
}

func extract(buf []byte, f Field) ([]byte, error) {
	length, err := readUint16(buf, f.LengthAt, f.Name)
	if err != nil {
		return nil, err
	}
	offset, err := readUint16(buf, f.OffsetAt, f.Name)
	if err != nil {
		return nil, err
	}
	if offset+length > len(buf) {
		return nil, &BoundsError{Field: f.Name, Header: -1, Length: length, Offset: offset, Size: len(buf)}
	}
	return buf[offset : offset+length], nil
}

// fixed returns n bytes at a fixed position.
func fixed(buf []byte, at, n int, name string) ([]byte, error) {
	if at < 0 || at+n > len(buf) {
		return nil, &BoundsError{Field: name, Header: -1, Length: n, Offset: at, Size: len(buf)}
	}
	return buf[at : at+n], nil
}
