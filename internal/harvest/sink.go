package harvest

import (
	"fmt"
	"io"
	"sync"

	"github.com/stackviolator/ntlm_extract/internal/capture"
	"github.com/stackviolator/ntlm_extract/internal/ntlmssp"
)

// Sink receives every record a scan produces. Implementations must be safe
// for concurrent use when shared between directory workers.
type Sink interface {
	Emit(source string, p capture.Payload, rec *ntlmssp.Record) error
}

// LineSink prints one line per record to Out and, when Hashes is set, appends
// crackable lines to it. Malformed records only go to Out.
type LineSink struct {
	mu     sync.Mutex
	Out    io.Writer
	Hashes io.Writer
}

func NewLineSink(out, hashes io.Writer) *LineSink {
	return &LineSink{Out: out, Hashes: hashes}
}

func (s *LineSink) Emit(source string, p capture.Payload, rec *ntlmssp.Record) error {
	line := rec.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintln(s.Out, line); err != nil {
		return err
	}
	if s.Hashes != nil && rec.Kind != ntlmssp.Malformed {
		if _, err := fmt.Fprintln(s.Hashes, line); err != nil {
			return err
		}
	}
	return nil
}
