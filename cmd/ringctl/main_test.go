package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/crypto/sha3"

	"github.com/kolayne/go-ringchan/internal/audit"
)

// lastReport decodes the JSON summary, the last line run() writes to stderr.
func lastReport(t *testing.T, stderr *bytes.Buffer) audit.Report {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(stderr.String()), "\n")
	var r audit.Report
	if err := sonnet.Unmarshal([]byte(lines[len(lines)-1]), &r); err != nil {
		t.Fatalf("no JSON report in %q: %v", stderr.String(), err)
	}
	return r
}

func TestPumpPreservesStream(t *testing.T) {
	input := make([]byte, 200_000)
	rand.New(rand.NewSource(1)).Read(input)

	var stdout, stderr bytes.Buffer
	code := run([]string{"pump", "-capacity", "13", "-chunk", "7"}, bytes.NewReader(input), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}
	if !bytes.Equal(stdout.Bytes(), input) {
		t.Fatalf("output differs from input (%d vs %d bytes)", stdout.Len(), len(input))
	}

	sum := sha3.Sum256(input)
	r := lastReport(t, &stderr)
	if r.Mode != "pump" || r.Capacity != 13 {
		t.Fatalf("unexpected report header: %+v", r)
	}
	if r.DigestIn != hex.EncodeToString(sum[:]) || r.DigestOut != r.DigestIn {
		t.Fatalf("digests in=%s out=%s, want %x", r.DigestIn, r.DigestOut, sum)
	}
	if r.BytesIn != int64(len(input)) || r.BytesOut != int64(len(input)) {
		t.Fatalf("byte counts in=%d out=%d", r.BytesIn, r.BytesOut)
	}
	if r.LastWriter.PID != os.Getpid() || r.LastReader.PID != os.Getpid() {
		t.Fatalf("identities not recorded: %+v %+v", r.LastWriter, r.LastReader)
	}
	if r.Stats.BytesRead != int64(len(input)) {
		t.Fatalf("stats disagree: %+v", r.Stats)
	}
}

func TestPumpEmptyInput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"pump"}, strings.NewReader(""), &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}
	if stdout.Len() != 0 {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestStress(t *testing.T) {
	var stdout, stderr bytes.Buffer
	args := []string{"stress", "-capacity", "5", "-chunk", "9", "-writers", "5", "-readers", "3", "-bytes", "20000"}
	if code := run(args, nil, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}
	r := lastReport(t, &stderr)
	if r.BytesIn != 100000 || r.BytesOut != 100000 {
		t.Fatalf("byte counts in=%d out=%d", r.BytesIn, r.BytesOut)
	}
}

func TestLastAccess(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"lastaccess"}, nil, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "Last writer: tgid=") || !strings.Contains(out, "Last reader: tgid=") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestConfigFileAndAudit(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	cfgPath := filepath.Join(dir, "ringctl.json")
	settings := `{"capacity": 3, "chunk": 2, "auditDB": "` + dbPath + `"}`
	if err := os.WriteFile(cfgPath, []byte(settings), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	// the flag overrides the file
	code := run([]string{"pump", "-config", cfgPath, "-capacity", "4"}, strings.NewReader("hello ring"), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}
	if stdout.String() != "hello ring" {
		t.Fatalf("output %q", stdout.String())
	}

	store, err := audit.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	runs, err := store.Recent(context.Background(), 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("recorded runs: %v %v", runs, err)
	}
	if runs[0].Capacity != 4 || runs[0].BytesOut != int64(len("hello ring")) {
		t.Fatalf("recorded run: %+v", runs[0])
	}
}

func TestBadInvocations(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"frobnicate"},
		{"pump", "-capacity", "0"},
		{"pump", "-no-such-flag"},
	} {
		var stdout, stderr bytes.Buffer
		if code := run(args, strings.NewReader(""), &stdout, &stderr); code != 2 {
			t.Fatalf("run(%q): exit code %d, want 2", args, code)
		}
	}
}
