package main

import (
	"context"
	"encoding/hex"
	"io"
	"sync/atomic"

	"golang.org/x/crypto/sha3"

	ringchan "github.com/kolayne/go-ringchan"
	"github.com/kolayne/go-ringchan/internal/audit"
	"github.com/kolayne/go-ringchan/internal/config"
)

// pump moves stdin to stdout through the ring, the writer and the reader
// running concurrently. Both sides are hashed so the report shows whether the
// stream survived intact.
func pump(ctx context.Context, ch *ringchan.Channel, cfg config.Config, stdin io.Reader, stdout io.Writer) (audit.Report, error) {
	var (
		report   audit.Report
		bytesIn  atomic.Int64
		inHash   = sha3.New256()
		outHash  = sha3.New256()
		writeErr = make(chan error, 1)
	)

	me := ringchan.CurrentIdentity()
	w := ch.Open(me, false)
	r := ch.Open(me, false)

	writersDone, finishWriting := context.WithCancel(ctx)
	defer finishWriting()

	go func() {
		defer finishWriting()
		buf := make([]byte, cfg.Chunk)
		for {
			n, err := stdin.Read(buf)
			if n > 0 {
				inHash.Write(buf[:n])
				if _, werr := w.WriteAll(ctx, buf[:n]); werr != nil {
					writeErr <- werr
					return
				}
				bytesIn.Add(int64(n))
			}
			if err == io.EOF {
				writeErr <- nil
				return
			}
			if err != nil {
				writeErr <- err
				return
			}
		}
	}()

	readErr := consume(ctx, writersDone, r, cfg.Chunk, func(p []byte) error {
		outHash.Write(p)
		report.BytesOut += int64(len(p))
		_, err := stdout.Write(p)
		return err
	})

	report.DigestOut = hex.EncodeToString(outHash.Sum(nil))
	if readErr != nil {
		// unpark a writer stuck on a ring nobody drains any more
		ch.Close()
	}

	// The writer may still sit in a stdin read that no signal can interrupt,
	// only wait for it when it is known to be done or the reader gave up.
	var err error
	select {
	case err = <-writeErr:
		report.DigestIn = hex.EncodeToString(inHash.Sum(nil))
	case <-ctx.Done():
		err = ctx.Err()
	}
	report.BytesIn = bytesIn.Load()

	if readErr != nil {
		return report, readErr
	}
	return report, err
}
