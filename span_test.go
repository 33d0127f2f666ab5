package ringchan

import (
	"context"
	"errors"
	"testing"
)

func TestSpans(t *testing.T) {
	cases := []struct {
		cursor, n, capacity int
		first, second       span
	}{
		{0, 10, 10, span{0, 10}, span{}},
		{0, 1, 10, span{0, 1}, span{}},
		{5, 5, 10, span{5, 10}, span{}},
		{5, 8, 10, span{5, 10}, span{0, 3}},
		{9, 1, 10, span{9, 10}, span{}},
		{9, 10, 10, span{9, 10}, span{0, 9}},
		{0, 1, 1, span{0, 1}, span{}},
	}

	for _, c := range cases {
		first, second := spans(c.cursor, c.n, c.capacity)
		if first != c.first || second != c.second {
			t.Fatalf(
				"spans(%d, %d, %d) = %v %v, want %v %v",
				c.cursor, c.n, c.capacity,
				first, second,
				c.first, c.second,
			)
		}
		if first.size()+second.size() != c.n {
			t.Fatalf("spans(%d, %d, %d) lose bytes", c.cursor, c.n, c.capacity)
		}
	}
}

func TestCopySpansRejectsBadRequests(t *testing.T) {
	ch, _ := newTestChannel(t, 4)
	never := func([]byte, int) int {
		t.Fatal("move invoked for an invalid request")
		return 0
	}

	for _, c := range []struct{ cursor, want int }{
		{0, 0},
		{0, 5},
		{4, 1},
		{-1, 1},
	} {
		if _, err := ch.copySpans(c.cursor, c.want, never); !errors.Is(err, ErrInternalInvariant) {
			t.Fatalf("copySpans(%d, %d): expected ErrInternalInvariant, got %v", c.cursor, c.want, err)
		}
	}

	lying := func(storage []byte, _ int) int { return len(storage) + 1 }
	if _, err := ch.copySpans(0, 2, lying); !errors.Is(err, ErrInternalInvariant) {
		t.Fatalf("over-reporting copier: expected ErrInternalInvariant, got %v", err)
	}
}

type overCopier struct{ MemCopier }

func (overCopier) CopyIn(storage, src []byte) int { return len(storage) + 1 }

func TestOverReportingCopierSurfacesInvariant(t *testing.T) {
	ch, err := New(4, Config{Copier: overCopier{}})
	if err != nil {
		t.Fatal(err)
	}
	defer ch.Close()

	n, err := ch.Write(context.Background(), []byte("ab"), alice, false)
	if n != 0 || !errors.Is(err, ErrInternalInvariant) {
		t.Fatalf("expected invariant violation, got n=%d err=%v", n, err)
	}
	if ch.Buffered() != 0 {
		t.Fatal("invariant violation committed bytes")
	}
}
