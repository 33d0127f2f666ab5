package main

import (
	"context"
	"fmt"
	"io"

	ringchan "github.com/kolayne/go-ringchan"
	"github.com/kolayne/go-ringchan/internal/audit"
	"github.com/kolayne/go-ringchan/internal/config"
)

// lastAccess performs one non-blocking write and one non-blocking read, then
// queries who the ring saw last on each side.
func lastAccess(ctx context.Context, ch *ringchan.Channel, _ config.Config, _ io.Reader, stdout io.Writer) (audit.Report, error) {
	var report audit.Report
	h := ch.Open(ringchan.CurrentIdentity(), true)

	n, err := h.WriteContext(ctx, []byte("ping"))
	if err != nil {
		return report, err
	}
	report.BytesIn = int64(n)

	buf := make([]byte, n)
	if n, err = h.ReadContext(ctx, buf); err != nil {
		return report, err
	}
	report.BytesOut = int64(n)

	writer, err := h.LastWriter(ctx)
	if err != nil {
		return report, err
	}
	reader, err := h.LastReader(ctx)
	if err != nil {
		return report, err
	}
	fmt.Fprintf(stdout, "Last writer: %s\n", writer)
	fmt.Fprintf(stdout, "Last reader: %s\n", reader)
	return report, nil
}
