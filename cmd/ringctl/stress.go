package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sync"

	ringchan "github.com/kolayne/go-ringchan"
	"github.com/kolayne/go-ringchan/internal/audit"
	"github.com/kolayne/go-ringchan/internal/config"
)

// stress runs Writers concurrent writers, each pushing Bytes copies of its own
// tag byte in randomly sized requests, against Readers concurrent readers.
// Ordering across writers is not defined, so the check is that every tag
// arrives exactly Bytes times and the ring never reports an impossible fill.
func stress(ctx context.Context, ch *ringchan.Channel, cfg config.Config, _ io.Reader, _ io.Writer) (audit.Report, error) {
	if cfg.Writers > 256 {
		return audit.Report{}, fmt.Errorf("value of writers '%d' out of range [1:256]", cfg.Writers)
	}

	var (
		report   audit.Report
		wg       sync.WaitGroup
		mu       sync.Mutex
		counts   = make([]int64, cfg.Writers)
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	me := ringchan.CurrentIdentity()
	writersDone, finishWriting := context.WithCancel(ctx)
	defer finishWriting()

	var writers sync.WaitGroup
	for i := 0; i < cfg.Writers; i++ {
		writers.Add(1)
		go func(tag int) {
			defer writers.Done()
			h := ch.Open(me, false)
			rng := rand.New(rand.NewSource(int64(tag)))
			buf := make([]byte, cfg.Chunk)
			for i := range buf {
				buf[i] = byte(tag)
			}

			for left := cfg.Bytes; left > 0; {
				n := int64(1 + rng.Intn(cfg.Chunk))
				if n > left {
					n = left
				}
				if _, err := h.WriteAll(ctx, buf[:n]); err != nil {
					fail(fmt.Errorf("writer %d: %w", tag, err))
					return
				}
				left -= n
			}
		}(i)
	}

	for i := 0; i < cfg.Readers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			h := ch.Open(me, false)
			err := consume(ctx, writersDone, h, cfg.Chunk, func(p []byte) error {
				if s := ch.State(); s.Occupied < 0 || s.Occupied > s.Capacity {
					return fmt.Errorf("occupied %d out of range [0:%d]", s.Occupied, s.Capacity)
				}
				mu.Lock()
				defer mu.Unlock()
				for _, b := range p {
					if int(b) >= len(counts) {
						return fmt.Errorf("reader %d: unknown tag %d", id, b)
					}
					counts[b]++
				}
				report.BytesOut += int64(len(p))
				return nil
			})
			if err != nil {
				fail(fmt.Errorf("reader %d: %w", id, err))
			}
		}(i)
	}

	writers.Wait()
	finishWriting()
	wg.Wait()

	report.BytesIn = int64(cfg.Writers) * cfg.Bytes
	if firstErr != nil {
		return report, firstErr
	}
	for tag, c := range counts {
		if c != cfg.Bytes {
			return report, fmt.Errorf("writer %d: %d bytes arrived, %d sent", tag, c, cfg.Bytes)
		}
	}
	return report, nil
}
