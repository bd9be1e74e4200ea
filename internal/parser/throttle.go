package parser

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// maxReadBurst bounds a single limiter reservation
const maxReadBurst = 1 << 20

func newReadLimiter(bytesPerSec int64) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	burst := bytesPerSec
	if burst > maxReadBurst {
		burst = maxReadBurst
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), int(burst))
}

// throttledReader blocks reads until the shared limiter admits them
type throttledReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if burst := t.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := t.r.Read(p)
	if n > 0 {
		if werr := t.limiter.WaitN(t.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
