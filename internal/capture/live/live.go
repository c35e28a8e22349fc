// Package live opens network interfaces for capture through libpcap.
package live

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket/pcap"
	"github.com/stackviolator/ntlm_extract/internal/capture"
)

// Config controls how an interface is opened.
type Config struct {
	SnapLen     int32
	Promiscuous bool
	// Timeout bounds how long a read blocks before the context is checked.
	Timeout time.Duration
	// Filter is an optional BPF expression.
	Filter string
}

// DefaultConfig captures full frames in promiscuous mode. Zero SnapLen or
// Timeout values passed to Open fall back to it.
var DefaultConfig = Config{
	SnapLen:     65535,
	Promiscuous: true,
	Timeout:     500 * time.Millisecond,
}

type closer struct {
	*pcap.Handle
}

func (c closer) Close() error {
	c.Handle.Close()
	return nil
}

func isTimeout(err error) bool {
	return err == pcap.NextErrorTimeoutExpired
}

// Open starts capturing on iface. The capture ends when ctx is cancelled.
func Open(ctx context.Context, iface string, cfg Config) (*capture.Source, error) {
	if cfg.SnapLen <= 0 {
		cfg.SnapLen = DefaultConfig.SnapLen
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig.Timeout
	}

	ph, err := pcap.OpenLive(iface, cfg.SnapLen, cfg.Promiscuous, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", iface, err)
	}
	if cfg.Filter != "" {
		if err = ph.SetBPFFilter(cfg.Filter); err != nil {
			ph.Close()
			return nil, fmt.Errorf("setting filter %q on %s: %w", cfg.Filter, iface, err)
		}
	}
	return capture.NewSource(iface, capture.WithContext(ctx, ph, isTimeout), closer{ph})
}
