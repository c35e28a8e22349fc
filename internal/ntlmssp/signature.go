// Package ntlmssp finds NTLMSSP handshakes in raw packet payloads and turns
// correlated challenge/authenticate pairs into crackable hash lines.
package ntlmssp

import "bytes"

// MessageType is the 32-bit message type that follows the NTLMSSP signature.
type MessageType uint32

const (
	NegotiateMessage    MessageType = 1
	ChallengeMessage    MessageType = 2
	AuthenticateMessage MessageType = 3
)

// Signature is the 8-byte NTLMSSP header, including the terminating null.
var Signature = []byte("NTLMSSP\x00")

var signatures = map[MessageType][]byte{
	NegotiateMessage:    []byte("NTLMSSP\x00\x01\x00\x00\x00"),
	ChallengeMessage:    []byte("NTLMSSP\x00\x02\x00\x00\x00"),
	AuthenticateMessage: []byte("NTLMSSP\x00\x03\x00\x00\x00"),
}

func (t MessageType) String() string {
	switch t {
	case NegotiateMessage:
		return "NEGOTIATE"
	case ChallengeMessage:
		return "CHALLENGE"
	case AuthenticateMessage:
		return "AUTHENTICATE"
	}
	return "UNKNOWN"
}

// Match returns the offset of the first NTLMSSP message of type t in buf,
// or -1 if there is none. The buffer is treated as raw bytes.
func Match(buf []byte, t MessageType) int {
	sig, ok := signatures[t]
	if !ok {
		return -1
	}
	return bytes.Index(buf, sig)
}
