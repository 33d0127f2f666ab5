// Package ringchan provides a single fixed-capacity byte ring shared by any
// number of concurrent readers and writers, exposed with the blocking and
// non-blocking semantics of a character device. Think of it as an in-process
// /dev/ring: every caller sees the same undifferentiated byte stream.
//
// Specifically an object of this package makes the following guarantees:
//  • Memory is allocated only at construction time, never during streaming
//  • Every Read() and Write() executes as one critical section under a single
//    gate, including the copy to/from the caller-supplied slice
//  • A blocking Write() parks while the ring is full, a blocking Read() parks
//    while it is empty. Parked callers never hold the gate
//  • Any transfer that changes the occupied count wakes every parked peer
//  • A context cancelled while a caller is parked (or waiting for the gate)
//    unblocks it promptly. The caller then reports ErrInterrupted, unless the
//    state has changed so that a non-zero transfer is possible right away, in
//    which case that partial transfer is reported as success
//  • Partial transfers are always reported as success with the actual count
//  • The identity of the last writer and the last reader is recorded on every
//    attempt that obtains the gate, and can be queried out of band
//
// Examples
//
// In code the basic usage looks roughly like this:
//
//  ch, initErr := ringchan.New( 4096, ringchan.Config{ … } )
//  …
//  me := ringchan.CurrentIdentity()
//  n, err := ch.Write( ctx, payload, me, false )
//  …
//  buf := make( []byte, 512 )
//  n, err = ch.Read( ctx, buf, me, false )
//  if errors.Is( err, ringchan.ErrInterrupted ) {
//      … // ctx was cancelled while parked on an empty ring
//  }
//  …
//  who, _ := ch.LastWriter( ctx )
//
// Or with file-like semantics via a handle:
//
//  h := ch.Open( me, false )
//  h.SetNonblock( true )
//  _, err := h.Write( []byte("HELLO") )   // io.Writer
//  if err == ringchan.ErrWouldBlock { … }
//
// Implementation notes
//
// The gate is a single-slot channel rather than a sync.Mutex, which lets
// acquisition itself observe ctx.Done(). The two conditions ("became non-empty"
// and "became non-full") are channels that get closed and replaced on every
// signal: a waiter captures the current channel while holding the gate, then
// releases the gate and selects on it. Since any state change happens under
// the gate and closes the captured channel, a wakeup can not be lost between
// the predicate check and the park.
//
// Here is an illustration of a channel lifecycle with capacity 10:
//
//  † R is the read cursor, W the derived write cursor (R + occupied) mod capacity
//
//  ⓪ Write("HELLOWORLD") fills the ring, W wraps onto R
//       ╆━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━╅
//       ┃H  E  L  L  O  W  O  R  L  D  ┃  occupied:10
//       R=0=W                          ┃
//       ╄━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━╃
//
//  ① Read(5) returns "HELLO", one span [0:5)
//       ╆━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━╅
//       ┃               W  O  R  L  D  ┃  occupied:5
//       W=0             R=5            ┃
//       ╄━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━╃
//
//  ② Write("!!!") lands at the start of the ring
//       ╆━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━╅
//       ┃!  !  !        W  O  R  L  D  ┃  occupied:8
//       ┃         W=3   R=5            ┃
//       ╄━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━╃
//
//  ③ Read(8) returns "WORLD!!!" in two spans: [5:10) then [0:3)
//
package ringchan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Config is the structure of options expected at initialization time. The
// zero value is valid. Note that passing a reference to a *Stats structure
// will incur a penalty, mainly from repeatedly calling time.Now()
type Config struct {
	Copier Copier       // Moves bytes between the ring and caller slices, MemCopier{} when nil
	Stats  *Stats       // Optional counters, updated under the gate
	Logger *slog.Logger // Debug tracing and invariant reports, discarded when nil
}

// Role selects which side of the ring QueryLastAccess reports on.
type Role int

const (
	RoleWriter Role = iota
	RoleReader
)

func (r Role) String() string {
	switch r {
	case RoleWriter:
		return "writer"
	case RoleReader:
		return "reader"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// State is a snapshot of the channel bookkeeping, for diagnostics.
type State struct {
	Capacity    int    `json:"capacity"`
	Occupied    int    `json:"occupied"`
	ReadCursor  int    `json:"readCursor"`
	WriteCursor int    `json:"writeCursor"`
	Closed      bool   `json:"closed"`
	Stats       *Stats `json:"stats,omitempty"`
}

// Channel is the bounded ring. All fields below gate are guarded by it.
type Channel struct {
	// Holding the gate means having sent the single token into it
	gate chan struct{}

	capacity   int
	buf        []byte
	occupied   int
	readPos    int
	lastWriter Identity
	lastReader Identity
	closed     bool

	copier       Copier
	stats        *Stats
	statsEnabled bool
	log          *slog.Logger
	tracing      bool

	// Closed and replaced on every signal, never sent to. Readers park on
	// condNotEmpty, writers on condNotFull
	condNotEmpty chan struct{}
	condNotFull  chan struct{}

	// Closed exactly once by Close(), never receives any values
	semClosed chan struct{}
}

// New allocates a channel of the given capacity.
func New(capacity int, cfg Config) (*Channel, error) {
	if capacity < 1 {
		return nil, fmt.Errorf(
			"%w: value of capacity '%d' out of range [1:...]",
			ErrInvalidCapacity,
			capacity,
		)
	}

	ch := &Channel{
		gate:         make(chan struct{}, 1),
		capacity:     capacity,
		buf:          make([]byte, capacity),
		copier:       cfg.Copier,
		stats:        cfg.Stats,
		statsEnabled: (cfg.Stats != nil),
		log:          cfg.Logger,
		condNotEmpty: make(chan struct{}),
		condNotFull:  make(chan struct{}),
		semClosed:    make(chan struct{}),
	}
	if ch.copier == nil {
		ch.copier = MemCopier{}
	}
	if ch.log == nil {
		ch.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		ch.tracing = ch.log.Enabled(context.Background(), slog.LevelDebug)
	}

	return ch, nil
}

// Capacity returns the fixed size of the ring in bytes.
func (ch *Channel) Capacity() int { return ch.capacity }

// lock obtains the gate, giving up when ctx is done or the channel is closed.
// Nothing is touched when it fails.
func (ch *Channel) lock(ctx context.Context) error {
	select {
	case ch.gate <- struct{}{}:
		return nil
	default:
		// contended - fall through to the cancellable wait
	}

	select {
	case ch.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return interrupted(ctx)
	case <-ch.semClosed:
		return ErrClosed
	}
}

func (ch *Channel) unlock() { <-ch.gate }

func (ch *Channel) broadcastCond(c *chan struct{}) {
	close(*c)
	*c = make(chan struct{})
}

// wait parks on the supplied cond-channel with the gate released, and returns
// with the gate held again. The caller must re-check its predicate.
func (ch *Channel) wait(ctx context.Context, c chan struct{}, side Role) (err error) {
	var t0 time.Time
	if ch.statsEnabled {
		if side == RoleReader {
			ch.stats.ReaderYields++
		} else {
			ch.stats.WriterYields++
		}
		t0 = time.Now()
	}

	ch.unlock()
	select {
	case <-c:
		// just waiting, nothing to do
	case <-ctx.Done():
		err = interrupted(ctx)
	case <-ch.semClosed:
		err = ErrClosed
	}
	// Not cancellable: the caller must leave with the gate held, and nobody
	// parks while holding it
	ch.gate <- struct{}{}

	if ch.statsEnabled {
		if side == RoleReader {
			ch.stats.ReaderWaitNanoseconds += time.Since(t0).Nanoseconds()
		} else {
			ch.stats.WriterWaitNanoseconds += time.Since(t0).Nanoseconds()
		}
	}
	return err
}

// Write transfers up to len(p) bytes from p into the ring. With nonBlocking
// set a full ring results in ErrWouldBlock, otherwise the call parks until
// some room frees up or ctx is done. A short count is not an error.
func (ch *Channel) Write(ctx context.Context, p []byte, id Identity, nonBlocking bool) (int, error) {
	if err := ch.lock(ctx); err != nil {
		return 0, err
	}
	defer ch.unlock()

	if ch.closed {
		return 0, ErrClosed
	}
	ch.lastWriter = id
	if ch.statsEnabled {
		ch.stats.WriteCalls++
	}

	if len(p) == 0 {
		return 0, nil
	}

	var waitErr error
	for ch.occupied == ch.capacity {
		if nonBlocking {
			if ch.statsEnabled {
				ch.stats.WouldBlocks++
			}
			return 0, ErrWouldBlock
		}
		if ch.tracing {
			ch.trace("writer parked", id, len(p))
		}
		if waitErr = ch.wait(ctx, ch.condNotFull, RoleWriter); waitErr != nil {
			break
		}
	}

	if ch.closed {
		return 0, ErrClosed
	}

	want := ch.capacity - ch.occupied
	if want > len(p) {
		want = len(p)
	}
	if want == 0 {
		if waitErr != nil {
			ch.countInterrupt()
			return 0, waitErr
		}
		return 0, ch.invariant("write of %d bytes found no room after waiting", len(p))
	}

	wrote, err := ch.copySpans(ch.writePos(), want, func(storage []byte, done int) int {
		return ch.copier.CopyIn(storage, p[done:want])
	})
	if err != nil {
		return 0, err
	}

	ch.occupied += wrote
	if ch.tracing {
		ch.trace("wrote", id, wrote)
	}
	if err := ch.checkInvariants(); err != nil {
		return wrote, err
	}

	if wrote > 0 {
		if ch.statsEnabled {
			ch.stats.BytesWritten += int64(wrote)
		}
		ch.broadcastCond(&ch.condNotEmpty)
		return wrote, nil
	}
	if waitErr != nil {
		ch.countInterrupt()
		return 0, waitErr
	}
	if ch.statsEnabled {
		ch.stats.TransferFaults++
	}
	return 0, ErrTransferFault
}

// Read transfers up to len(p) buffered bytes into p, the mirror image of
// Write: it parks while the ring is empty, and reports a short count as
// success.
func (ch *Channel) Read(ctx context.Context, p []byte, id Identity, nonBlocking bool) (int, error) {
	if err := ch.lock(ctx); err != nil {
		return 0, err
	}
	defer ch.unlock()

	if ch.closed {
		return 0, ErrClosed
	}
	ch.lastReader = id
	if ch.statsEnabled {
		ch.stats.ReadCalls++
	}

	if len(p) == 0 {
		return 0, nil
	}

	var waitErr error
	for ch.occupied == 0 {
		if nonBlocking {
			if ch.statsEnabled {
				ch.stats.WouldBlocks++
			}
			return 0, ErrWouldBlock
		}
		if ch.tracing {
			ch.trace("reader parked", id, len(p))
		}
		if waitErr = ch.wait(ctx, ch.condNotEmpty, RoleReader); waitErr != nil {
			break
		}
	}

	if ch.closed {
		return 0, ErrClosed
	}

	want := ch.occupied
	if want > len(p) {
		want = len(p)
	}
	if want == 0 {
		if waitErr != nil {
			ch.countInterrupt()
			return 0, waitErr
		}
		return 0, ch.invariant("read of %d bytes found no data after waiting", len(p))
	}

	read, err := ch.copySpans(ch.readPos, want, func(storage []byte, done int) int {
		return ch.copier.CopyOut(p[done:want], storage)
	})
	if err != nil {
		return 0, err
	}

	ch.occupied -= read
	ch.readPos = (ch.readPos + read) % ch.capacity
	if ch.tracing {
		ch.trace("read", id, read)
	}
	if err := ch.checkInvariants(); err != nil {
		return read, err
	}

	if read > 0 {
		if ch.statsEnabled {
			ch.stats.BytesRead += int64(read)
		}
		ch.broadcastCond(&ch.condNotFull)
		return read, nil
	}
	if waitErr != nil {
		ch.countInterrupt()
		return 0, waitErr
	}
	if ch.statsEnabled {
		ch.stats.TransferFaults++
	}
	return 0, ErrTransferFault
}

// QueryLastAccess returns the identity recorded by the most recent write or
// read attempt. The zero Identity is returned if there has been none.
func (ch *Channel) QueryLastAccess(ctx context.Context, which Role) (Identity, error) {
	if err := ch.lock(ctx); err != nil {
		return Identity{}, err
	}
	defer ch.unlock()

	if ch.closed {
		return Identity{}, ErrClosed
	}

	switch which {
	case RoleWriter:
		return ch.lastWriter, nil
	case RoleReader:
		return ch.lastReader, nil
	default:
		return Identity{}, fmt.Errorf("unknown access role %s", which)
	}
}

// LastWriter is shorthand for QueryLastAccess(ctx, RoleWriter).
func (ch *Channel) LastWriter(ctx context.Context) (Identity, error) {
	return ch.QueryLastAccess(ctx, RoleWriter)
}

// LastReader is shorthand for QueryLastAccess(ctx, RoleReader).
func (ch *Channel) LastReader(ctx context.Context) (Identity, error) {
	return ch.QueryLastAccess(ctx, RoleReader)
}

// Buffered returns the number of bytes written but not yet read. It is
// primarily useful for informative messages, as the value may be stale by the
// time it is inspected. A closed channel has nothing buffered.
func (ch *Channel) Buffered() int {
	if ch.lock(context.Background()) != nil {
		return 0
	}
	defer ch.unlock()
	return ch.occupied
}

// State returns a consistent snapshot of the channel bookkeeping, including a
// copy of the Stats if those were supplied at construction.
func (ch *Channel) State() State {
	if ch.lock(context.Background()) != nil {
		return State{Capacity: ch.capacity, Closed: true}
	}
	defer ch.unlock()

	s := State{
		Capacity:    ch.capacity,
		Occupied:    ch.occupied,
		ReadCursor:  ch.readPos,
		WriteCursor: ch.writePos(),
		Closed:      ch.closed,
	}
	if ch.statsEnabled {
		stats := *ch.stats
		s.Stats = &stats
	}
	return s
}

// Close releases the storage and wakes every parked caller, which then
// returns ErrClosed, as does any later call. Buffered bytes are discarded.
// Calling Close more than once is a no-op.
func (ch *Channel) Close() error {
	if ch.lock(context.Background()) != nil {
		return nil // already closed
	}
	defer ch.unlock()

	if ch.closed {
		return nil
	}
	if ch.tracing {
		ch.log.Debug("ring closed", "discarded", ch.occupied)
	}
	ch.closed = true
	ch.buf = nil
	ch.occupied = 0
	ch.readPos = 0
	close(ch.semClosed)
	return nil
}

func (ch *Channel) writePos() int { return (ch.readPos + ch.occupied) % ch.capacity }

func (ch *Channel) countInterrupt() {
	if ch.statsEnabled {
		ch.stats.Interrupts++
	}
}

func (ch *Channel) trace(msg string, id Identity, n int) {
	ch.log.Debug(msg,
		"pid", id.PID,
		"uid", id.UID,
		"n", n,
		"occupied", ch.occupied,
		"readPos", ch.readPos,
	)
}
