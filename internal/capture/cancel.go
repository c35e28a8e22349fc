package capture

import (
	"context"
	"io"

	"github.com/google/gopacket"
)

// cancelable retries reads that fail with a timeout until ctx is done, then
// reports io.EOF so a live capture ends like a file would.
type cancelable struct {
	Handle
	ctx       context.Context
	isTimeout func(error) bool
}

// WithContext wraps h for a live capture. Reads for which isTimeout reports
// true are retried while ctx is live; once ctx is done the next timeout ends
// the capture with io.EOF. Other errors are returned unchanged.
func WithContext(ctx context.Context, h Handle, isTimeout func(error) bool) Handle {
	return &cancelable{Handle: h, ctx: ctx, isTimeout: isTimeout}
}

func (c *cancelable) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	for {
		data, ci, err := c.Handle.ReadPacketData()
		if err != nil && c.isTimeout(err) {
			if c.ctx.Err() != nil {
				return nil, ci, io.EOF
			}
			continue
		}
		return data, ci, err
	}
}
