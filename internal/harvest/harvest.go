// Package harvest drives payload sources through the NTLM correlator and
// hands recovered credentials to a sink.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jfjallid/golog"
	"github.com/stackviolator/ntlm_extract/internal/capture"
	"github.com/stackviolator/ntlm_extract/internal/ntlmssp"
)

var log = golog.Get("github.com/stackviolator/ntlm_extract/internal/harvest")

// Options controls how payloads are scanned.
type Options struct {
	// PerFlow correlates challenges and responses per TCP/UDP flow instead
	// of through one global slot.
	PerFlow  bool
	FlowTTL  time.Duration
	MaxFlows int
	// UTF16 decodes names as UTF-16LE instead of dropping null bytes.
	UTF16 bool
	// HTTP unwraps base64 NTLM tokens from HTTP authentication headers.
	HTTP bool
	// SMBOnly skips payloads that are not SMB messages.
	SMBOnly bool
}

func (o Options) decoder() ntlmssp.NameDecoder {
	if o.UTF16 {
		return ntlmssp.DecodeUTF16LE
	}
	return ntlmssp.StripNulls
}

// NewScanner returns a fresh scan state for one capture.
func (o Options) NewScanner() Scanner {
	if o.PerFlow {
		return NewFlowTracker(o.FlowTTL, o.MaxFlows, o.decoder())
	}
	return globalScanner{c: ntlmssp.NewCorrelator(o.decoder())}
}

// PayloadSource is satisfied by *capture.Source.
type PayloadSource interface {
	Next() (capture.Payload, error)
}

// Stats summarizes one or more scans.
type Stats struct {
	Payloads     int
	DecodeErrors int
	BoundsErrors int
	Records      int
	Malformed    int
}

func (s *Stats) Add(o Stats) {
	s.Payloads += o.Payloads
	s.DecodeErrors += o.DecodeErrors
	s.BoundsErrors += o.BoundsErrors
	s.Records += o.Records
	s.Malformed += o.Malformed
}

func (s Stats) String() string {
	return fmt.Sprintf("%d payloads, %d credentials (%d malformed), %d decode errors, %d bounds errors",
		s.Payloads, s.Records, s.Malformed, s.DecodeErrors, s.BoundsErrors)
}

// Run reads src until it is exhausted or ctx is cancelled. Per-packet
// problems are logged and skipped; only a failing source ends the scan with
// an error.
func Run(ctx context.Context, name string, src PayloadSource, opts Options, sink Sink) (Stats, error) {
	var st Stats
	scanner := opts.NewScanner()

	for ctx.Err() == nil {
		p, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var de *capture.DecodeError
			if errors.As(err, &de) {
				st.DecodeErrors++
				log.Warningf("%s: skipping packet: %v\n", name, de)
				continue
			}
			return st, fmt.Errorf("%s: reading packets: %w", name, err)
		}
		st.Payloads++

		if !prepare(&p, opts, name) {
			continue
		}

		rec, err := scanner.Scan(p)
		if err != nil {
			var be *ntlmssp.BoundsError
			if errors.As(err, &be) {
				st.BoundsErrors++
				log.Warningf("%s: packet %d (%s): %v\n", name, p.Index, p.Flow, be)
				continue
			}
			return st, err
		}
		if rec == nil {
			continue
		}

		st.Records++
		if rec.Kind == ntlmssp.Malformed {
			st.Malformed++
			log.Warningf("%s: packet %d (%s): NT response of %d bytes is neither NTLMv1 nor NTLMv2\n", name, p.Index, p.Flow, len(rec.NTResponse))
		} else {
			log.Infof("%s: packet %d (%s): %s response for %s\\%s\n", name, p.Index, p.Flow, rec.Kind, rec.Domain, rec.User)
		}
		if err = sink.Emit(name, p, rec); err != nil {
			return st, fmt.Errorf("writing credential: %w", err)
		}
	}

	if t, ok := scanner.(*FlowTracker); ok && t.Evicted() > 0 {
		log.Infof("%s: %d challenges never saw a response\n", name, t.Evicted())
	}
	return st, nil
}

// prepare applies the payload filters and reports whether p should be
// scanned.
func prepare(p *capture.Payload, opts Options, name string) bool {
	if opts.HTTP {
		if token := ntlmssp.HTTPToken(p.Data); token != nil {
			log.Debugf("%s: packet %d: NTLM token in HTTP header\n", name, p.Index)
			p.Data = token
			return true
		}
	}
	if capture.IsSMB(p.Data) {
		log.Debugf("%s: packet %d: SMB payload, %d bytes\n", name, p.Index, len(p.Data))
		return true
	}
	return !opts.SMBOnly
}
