// Command ringctl hosts one ring channel inside the process and drives it
// with concurrent readers and writers.
//
//	ringctl pump [flags] < in > out    stdin → ring → stdout, digests both sides
//	ringctl stress [flags]             many writers and readers, verifies every byte
//	ringctl lastaccess [flags]         one write, one read, prints the last writer/reader
//
// A summary of every run is written to stderr as JSON, and optionally stored
// in a sqlite database (-audit-db).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/sugawarayuuta/sonnet"

	ringchan "github.com/kolayne/go-ringchan"
	"github.com/kolayne/go-ringchan/internal/audit"
	"github.com/kolayne/go-ringchan/internal/config"
	"github.com/kolayne/go-ringchan/internal/logging"
)

type mode func(ctx context.Context, ch *ringchan.Channel, cfg config.Config, stdin io.Reader, stdout io.Writer) (audit.Report, error)

var modes = map[string]mode{
	"pump":       pump,
	"stress":     stress,
	"lastaccess": lastAccess,
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: ringctl pump|stress|lastaccess [flags]")
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}
	name := args[0]
	m, ok := modes[name]
	if !ok {
		usage(stderr)
		return 2
	}

	cfg, err := parseFlags(name, args[1:], stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	logger, err := logging.Setup(cfg.LogPath, cfg.Debug)
	if err != nil {
		fmt.Fprintf(stderr, "failed to setup logging: %v\n", err)
		return 1
	}
	defer logging.Close()

	ctx, stop := notifyContext(context.Background())
	defer stop()

	stats := &ringchan.Stats{}
	ch, err := ringchan.New(cfg.Capacity, ringchan.Config{
		Stats:  stats,
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to create ring", "error", err)
		return 1
	}
	defer ch.Close()

	logger.Info("ring ready", "mode", name, "capacity", ch.Capacity())

	started := time.Now()
	report, runErr := m(ctx, ch, cfg, stdin, stdout)
	report.Mode = name
	report.Started = started
	report.Duration = time.Since(started)
	report.Capacity = ch.Capacity()
	fillAccess(&report, ch)

	if out, err := sonnet.Marshal(report); err == nil {
		fmt.Fprintf(stderr, "%s\n", out)
	} else {
		logger.Warn("failed to encode report", "error", err)
	}

	if cfg.AuditDB != "" {
		if err := storeReport(cfg.AuditDB, report); err != nil {
			logger.Warn("failed to store report", "path", cfg.AuditDB, "error", err)
		}
	}

	if runErr != nil {
		logger.Error("run failed", "mode", name, "error", runErr)
		if errors.Is(runErr, ringchan.ErrInterrupted) || errors.Is(runErr, context.Canceled) {
			return 130
		}
		return 1
	}
	return 0
}

// parseFlags applies defaults, then the settings file named by -config, then
// every flag given explicitly.
func parseFlags(name string, args []string, stderr io.Writer) (config.Config, error) {
	cfg := config.Default()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "JSON settings file")
	fs.IntVar(&cfg.Capacity, "capacity", cfg.Capacity, "ring capacity in bytes")
	fs.IntVar(&cfg.Chunk, "chunk", cfg.Chunk, "bytes per read/write request")
	fs.IntVar(&cfg.Writers, "writers", cfg.Writers, "concurrent writers (stress)")
	fs.IntVar(&cfg.Readers, "readers", cfg.Readers, "concurrent readers (stress)")
	fs.Int64Var(&cfg.Bytes, "bytes", cfg.Bytes, "bytes per writer (stress)")
	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "rotating log file, stderr only when empty")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "trace every ring transfer")
	fs.StringVar(&cfg.AuditDB, "audit-db", cfg.AuditDB, "sqlite database to record the run in")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if *configPath != "" {
		cfg = config.Default()
		if err := config.Load(*configPath, &cfg); err != nil {
			return cfg, err
		}
		// second pass so that explicit flags win over the file
		if err := fs.Parse(args); err != nil {
			return cfg, err
		}
	}

	return cfg, cfg.Validate()
}

func fillAccess(r *audit.Report, ch *ringchan.Channel) {
	ctx := context.Background()
	r.LastWriter, _ = ch.LastWriter(ctx)
	r.LastReader, _ = ch.LastReader(ctx)
	if s := ch.State().Stats; s != nil {
		r.Stats = *s
	}
}

func storeReport(path string, r audit.Report) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := audit.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.Record(ctx, r)
	if err != nil {
		return err
	}
	slog.Info("run recorded", "path", path, "id", id)
	return nil
}
