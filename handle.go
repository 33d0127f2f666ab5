package ringchan

import (
	"context"
	"sync/atomic"
)

// Handle is an open endpoint on a Channel, the analog of an open file
// descriptor on the ring device: it carries the caller Identity and an
// O_NONBLOCK-style flag that can be flipped at any time. Any number of
// handles can be open on the same Channel concurrently.
type Handle struct {
	ch       *Channel
	id       Identity
	nonblock atomic.Bool
}

// Open returns a new Handle acting as id.
func (ch *Channel) Open(id Identity, nonblock bool) *Handle {
	h := &Handle{ch: ch, id: id}
	h.nonblock.Store(nonblock)
	return h
}

// SetNonblock switches the handle between blocking and non-blocking mode. It
// takes effect for the next Read() or Write(), not for one already parked.
func (h *Handle) SetNonblock(nonblock bool) { h.nonblock.Store(nonblock) }

func (h *Handle) Nonblock() bool { return h.nonblock.Load() }

func (h *Handle) Identity() Identity { return h.id }

// Read implements io.Reader. Note that a ring never reaches end-of-stream:
// an empty ring parks the call, or returns ErrWouldBlock in non-blocking mode.
func (h *Handle) Read(p []byte) (int, error) {
	return h.ReadContext(context.Background(), p)
}

// Write implements io.Writer. Unlike the io.Writer contract suggests, a short
// count with a nil error is possible: it is the amount of room there was.
func (h *Handle) Write(p []byte) (int, error) {
	return h.WriteContext(context.Background(), p)
}

func (h *Handle) ReadContext(ctx context.Context, p []byte) (int, error) {
	return h.ch.Read(ctx, p, h.id, h.nonblock.Load())
}

func (h *Handle) WriteContext(ctx context.Context, p []byte) (int, error) {
	return h.ch.Write(ctx, p, h.id, h.nonblock.Load())
}

// WriteAll keeps writing until p is exhausted, or an error (including
// ErrWouldBlock in non-blocking mode) occurs. It returns the number of bytes
// written in total.
func (h *Handle) WriteAll(ctx context.Context, p []byte) (written int, err error) {
	for written < len(p) {
		var n int
		n, err = h.WriteContext(ctx, p[written:])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (h *Handle) LastWriter(ctx context.Context) (Identity, error) { return h.ch.LastWriter(ctx) }

func (h *Handle) LastReader(ctx context.Context) (Identity, error) { return h.ch.LastReader(ctx) }
