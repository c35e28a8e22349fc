package ntlmssp

import (
	"bytes"
	"encoding/binary"
)

const authenticateHeaderLen = 64

func challengeMessage(challenge []byte) []byte {
	msg := make([]byte, 48)
	copy(msg, signatures[ChallengeMessage])
	binary.LittleEndian.PutUint32(msg[20:], 0xa2898205)
	copy(msg[challengeAt:], challenge)
	return msg
}

type authenticate struct {
	lm, nt, domain, user []byte
	// ntMaxLen overrides NtChallengeResponseFields.MaxLen when non-zero.
	ntMaxLen uint16
}

func (a authenticate) bytes() []byte {
	msg := make([]byte, authenticateHeaderLen)
	copy(msg, signatures[AuthenticateMessage])

	put := func(at int, data []byte) {
		binary.LittleEndian.PutUint16(msg[at:], uint16(len(data)))
		binary.LittleEndian.PutUint16(msg[at+2:], uint16(len(data)))
		binary.LittleEndian.PutUint32(msg[at+4:], uint32(len(msg)))
		msg = append(msg, data...)
	}
	put(DomainField.LengthAt, a.domain)
	put(UserField.LengthAt, a.user)
	put(LmResponseField.LengthAt, a.lm)
	put(NtResponseField.LengthAt, a.nt)
	if a.ntMaxLen != 0 {
		binary.LittleEndian.PutUint16(msg[discardAt:], a.ntMaxLen)
	}
	return msg
}

func seq(start, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(start + i)
	}
	return b
}

func utf16le(s string) []byte {
	var b bytes.Buffer
	for _, r := range s {
		b.WriteByte(byte(r))
		b.WriteByte(byte(r >> 8))
	}
	return b.Bytes()
}

func withPrefix(n int, msg []byte) []byte {
	return append(bytes.Repeat([]byte{0xaa}, n), msg...)
}
