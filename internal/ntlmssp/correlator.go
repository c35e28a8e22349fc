package ntlmssp

import (
	"bytes"

	"github.com/jfjallid/golog"
)

var log = golog.Get("github.com/stackviolator/ntlm_extract/internal/ntlmssp")

// State of a Correlator.
type State int

const (
	Idle State = iota
	AwaitingResponse
)

func (s State) String() string {
	if s == AwaitingResponse {
		return "AwaitingResponse"
	}
	return "Idle"
}

// Correlator pairs AUTHENTICATE messages with the most recent CHALLENGE it
// has seen. It holds a single pending challenge and has no notion of
// connections: in a capture with several concurrent handshakes a response
// may be paired with another client's challenge. Use one Correlator per
// flow when that matters.
//
// A Correlator is not safe for concurrent use.
type Correlator struct {
	pending []byte
	decode  NameDecoder
}

// NewCorrelator returns an Idle correlator. A nil decoder means StripNulls.
func NewCorrelator(decode NameDecoder) *Correlator {
	if decode == nil {
		decode = StripNulls
	}
	return &Correlator{decode: decode}
}

func (c *Correlator) State() State {
	if c.pending == nil {
		return Idle
	}
	return AwaitingResponse
}

// Pending returns a copy of the pending challenge, or nil.
func (c *Correlator) Pending() []byte {
	return bytes.Clone(c.pending)
}

// Reset drops any pending challenge.
func (c *Correlator) Reset() {
	c.pending = nil
}

// Scan processes one payload. It returns a record when the payload completes
// a handshake. A *BoundsError means a message was found but its fields did
// not fit; the correlator has already recovered and the error is only
// informational.
func (c *Correlator) Scan(payload []byte) (*Record, error) {
	if c.pending == nil {
		return nil, c.captureChallenge(payload)
	}

	start := Match(payload, AuthenticateMessage)
	if start < 0 {
		// Newer challenge replaces the pending one.
		return nil, c.captureChallenge(payload)
	}
	msg := payload[start:]

	maxLen, err := readUint16(msg, discardAt, NtResponseField.Name)
	if err != nil {
		c.pending = nil
		return nil, err
	}
	if maxLen <= discardThreshold {
		log.Debugf("Ignoring AUTHENTICATE message with empty NT response at offset %d\n", start)
		return nil, nil
	}

	rec, err := c.parseAuthenticate(msg)
	c.pending = nil
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Correlator) captureChallenge(payload []byte) error {
	start := Match(payload, ChallengeMessage)
	if start < 0 {
		return nil
	}
	challenge, err := fixed(payload[start:], challengeAt, challengeLen, "ServerChallenge")
	if err != nil {
		return err
	}
	if c.pending != nil {
		log.Debugf("Replacing pending challenge %x with %x\n", c.pending, challenge)
	} else {
		log.Debugf("Captured server challenge %x\n", challenge)
	}
	c.pending = bytes.Clone(challenge)
	return nil
}

func (c *Correlator) parseAuthenticate(msg []byte) (*Record, error) {
	nt, err := ExtractField(msg, NtResponseField)
	if err != nil {
		return nil, err
	}
	var lm []byte
	if len(nt) == v1ResponseLen {
		lm, err = ExtractField(msg, LmResponseField)
		if err != nil {
			return nil, err
		}
	}
	domain, err := ExtractField(msg, DomainField)
	if err != nil {
		return nil, err
	}
	user, err := ExtractField(msg, UserField)
	if err != nil {
		return nil, err
	}
	return NewRecord(c.pending, lm, nt, c.decode(domain), c.decode(user)), nil
}
