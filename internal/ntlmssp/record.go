package ntlmssp

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Kind is the response family of a recovered credential.
type Kind int

const (
	Malformed Kind = iota
	NTLMv1
	NTLMv2
)

const (
	// NTLMv1 responses are DESL output, always 24 bytes.
	v1ResponseLen = 24
	// NTLMv2 responses are NTProofStr(16) followed by a client blob; anything
	// not longer than this cannot hold a real blob.
	v2MinResponseLen = 60
	ntProofStrLen    = 16
)

// MalformedMarker is printed in place of a hash line for records whose NT
// response fits neither NTLMv1 nor NTLMv2.
const MalformedMarker = "[malformed NTLM response]"

func (k Kind) String() string {
	switch k {
	case NTLMv1:
		return "NTLMv1"
	case NTLMv2:
		return "NTLMv2"
	}
	return "Malformed"
}

// Classify maps an NT response length to its Kind.
func Classify(ntLen int) Kind {
	switch {
	case ntLen == v1ResponseLen:
		return NTLMv1
	case ntLen > v2MinResponseLen:
		return NTLMv2
	}
	return Malformed
}

// Record is one correlated challenge/response pair. Byte slices are owned by
// the record.
type Record struct {
	Kind       Kind
	User       string
	Domain     string
	Challenge  []byte
	LMResponse []byte
	NTResponse []byte
}

// NewRecord copies its inputs and classifies the result. The LM response is
// only kept for NTLMv1.
func NewRecord(challenge, lm, nt []byte, domain, user string) *Record {
	r := &Record{
		Kind:       Classify(len(nt)),
		User:       user,
		Domain:     domain,
		Challenge:  bytes.Clone(challenge),
		NTResponse: bytes.Clone(nt),
	}
	if r.Kind == NTLMv1 {
		r.LMResponse = bytes.Clone(lm)
	}
	return r
}

// NTProofStr returns the HMAC part of an NTLMv2 response.
func (r *Record) NTProofStr() []byte {
	if r.Kind != NTLMv2 {
		return nil
	}
	return r.NTResponse[:ntProofStrLen]
}

// Blob returns the client blob of an NTLMv2 response.
func (r *Record) Blob() []byte {
	if r.Kind != NTLMv2 {
		return nil
	}
	return r.NTResponse[ntProofStrLen:]
}

// String renders the record the way hashcat and john expect it:
//
//	NTLMv1: user::domain:lm:nt:challenge
//	NTLMv2: user::domain:challenge:ntproofstr:blob
func (r *Record) String() string {
	switch r.Kind {
	case NTLMv1:
		return fmt.Sprintf("%s::%s:%s:%s:%s",
			r.User,
			r.Domain,
			hex.EncodeToString(r.LMResponse),
			hex.EncodeToString(r.NTResponse),
			hex.EncodeToString(r.Challenge),
		)
	case NTLMv2:
		return fmt.Sprintf("%s::%s:%s:%s:%s",
			r.User,
			r.Domain,
			hex.EncodeToString(r.Challenge),
			hex.EncodeToString(r.NTProofStr()),
			hex.EncodeToString(r.Blob()),
		)
	}
	return MalformedMarker
}
