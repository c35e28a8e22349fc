package harvest

import (
	"time"

	"github.com/stackviolator/ntlm_extract/internal/capture"
	"github.com/stackviolator/ntlm_extract/internal/ntlmssp"
)

const (
	DefaultFlowTTL  = 2 * time.Minute
	DefaultMaxFlows = 4096
)

// Scanner consumes payloads in capture order and returns recovered records.
type Scanner interface {
	Scan(p capture.Payload) (*ntlmssp.Record, error)
}

// globalScanner correlates every payload against a single pending challenge.
type globalScanner struct {
	c *ntlmssp.Correlator
}

func (s globalScanner) Scan(p capture.Payload) (*ntlmssp.Record, error) {
	return s.c.Scan(p.Data)
}

type flowEntry struct {
	c        *ntlmssp.Correlator
	lastSeen time.Time
}

// FlowTracker keeps one correlator per flow so that interleaved handshakes
// on different connections do not steal each other's challenge. Only flows
// with a pending challenge are tracked. Entries idle for longer than the
// TTL (in capture time) are dropped, and when the table is full the least
// recently seen flow is evicted.
type FlowTracker struct {
	ttl       time.Duration
	max       int
	decode    ntlmssp.NameDecoder
	flows     map[capture.Flow]*flowEntry
	nextSweep time.Time
	evicted   int
}

func NewFlowTracker(ttl time.Duration, max int, decode ntlmssp.NameDecoder) *FlowTracker {
	if ttl <= 0 {
		ttl = DefaultFlowTTL
	}
	if max <= 0 {
		max = DefaultMaxFlows
	}
	return &FlowTracker{
		ttl:    ttl,
		max:    max,
		decode: decode,
		flows:  make(map[capture.Flow]*flowEntry),
	}
}

func (t *FlowTracker) Scan(p capture.Payload) (*ntlmssp.Record, error) {
	t.expire(p.Timestamp)

	e, ok := t.flows[p.Flow]
	if !ok {
		if ntlmssp.Match(p.Data, ntlmssp.ChallengeMessage) < 0 {
			return nil, nil
		}
		if len(t.flows) >= t.max {
			t.evictOldest()
		}
		e = &flowEntry{c: ntlmssp.NewCorrelator(t.decode)}
		t.flows[p.Flow] = e
	}
	e.lastSeen = p.Timestamp

	rec, err := e.c.Scan(p.Data)
	if e.c.State() == ntlmssp.Idle {
		delete(t.flows, p.Flow)
	}
	return rec, err
}

// Len returns the number of flows waiting for a response.
func (t *FlowTracker) Len() int {
	return len(t.flows)
}

// Evicted returns how many pending challenges were dropped unanswered.
func (t *FlowTracker) Evicted() int {
	return t.evicted
}

func (t *FlowTracker) expire(now time.Time) {
	if now.Before(t.nextSweep) {
		return
	}
	t.nextSweep = now.Add(t.ttl / 2)
	for flow, e := range t.flows {
		if now.Sub(e.lastSeen) > t.ttl {
			log.Debugf("Dropping stale challenge for %s\n", flow)
			delete(t.flows, flow)
			t.evicted++
		}
	}
}

func (t *FlowTracker) evictOldest() {
	var (
		oldest capture.Flow
		seen   time.Time
		found  bool
	)
	for flow, e := range t.flows {
		if !found || e.lastSeen.Before(seen) {
			oldest, seen, found = flow, e.lastSeen, true
		}
	}
	if found {
		log.Debugf("Flow table full, dropping challenge for %s\n", oldest)
		delete(t.flows, oldest)
		t.evicted++
	}
}
