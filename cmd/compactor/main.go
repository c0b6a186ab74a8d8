// Package main implements the compactor, a standalone CLI driving the
// multi-SST compaction algorithm (C8) over an existing set of SSTs. It
// reads engine configuration from a YAML file, builds one SST store
// backed by either an in-memory map (for local testing) or S3, groups
// the SST ids supplied on the command line into overlapping runs, and
// writes the compacted output back through the same store.
//
// This binary does not select which SSTs to compact, persist a manifest,
// or schedule recurring compaction jobs — per the engine's non-goals,
// those are a higher-level service's job. It drives exactly the one
// compaction job it is told to.
//
// Example usage:
//
//	compactor --config engine.yaml --group 10,11,12 --group 20,21
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/aws/aws-sdk-go/aws/session"
	"go.uber.org/zap"

	"github.com/dreamware/hummock/internal/compaction"
	"github.com/dreamware/hummock/internal/config"
	"github.com/dreamware/hummock/internal/iterator"
	"github.com/dreamware/hummock/internal/sstable"
	"github.com/dreamware/hummock/internal/stats"
)

// logFatal is a variable so tests can intercept a fatal exit without
// terminating the test process.
var logFatal = func(log *zap.Logger, msg string, fields ...zap.Field) {
	log.Fatal(msg, fields...)
}

// cli is the kong command definition for the compactor binary.
type cli struct {
	Config    string   `help:"Path to engine configuration YAML." default:"engine.yaml"`
	Group     []string `help:"Comma-separated SST ids forming one overlapping group; repeatable." required:""`
	OutIDBase uint64   `help:"First id assigned to an output SST; subsequent outputs increment from here." default:"1000"`
}

func main() {
	var c cli
	kong.Parse(&c, kong.Description("Drive one multi-SST compaction job."))

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "compactor: build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(c.Config)
	if err != nil {
		logFatal(log, "load config", zap.Error(err))
		return
	}

	reg := stats.NewRegistry()
	store, err := buildStore(cfg, log, reg)
	if err != nil {
		logFatal(log, "build store", zap.Error(err))
		return
	}

	groups, err := resolveGroups(ctx, store, c.Group)
	if err != nil {
		logFatal(log, "resolve groups", zap.Error(err))
		return
	}

	nextID := c.OutIDBase
	driver := &compaction.Driver{
		Limiter:          compaction.NewMemoryLimiter(int64(cfg.Compaction.MemoryBudget.Bytes())),
		Filter:           compaction.KeepAll,
		Publisher:        store,
		Log:              log,
		Reg:              reg,
		BuilderBytesHint: int64(cfg.Compaction.BuilderSizeHint.Bytes()),
		NewBuilder: func() compaction.Builder {
			return sstable.NewBuilder(cfg.Builder.BuilderOptions())
		},
		NextID: func() uint64 {
			id := nextID
			nextID++
			return id
		},
	}

	outputs, err := driver.Run(ctx, groups)
	if err != nil {
		logFatal(log, "compaction failed", zap.Error(err))
		return
	}

	log.Info("compaction complete", zap.Int("outputs", len(outputs)))
	for _, d := range outputs {
		log.Info("output sst", zap.Uint64("id", d.ID), zap.Uint64("file_size", d.FileSize))
	}
}

func buildStore(cfg config.Config, log *zap.Logger, reg *stats.Registry) (*sstable.Store, error) {
	var backend sstable.Backend
	switch cfg.Store.Backend {
	case "s3":
		sess, err := session.NewSession()
		if err != nil {
			return nil, fmt.Errorf("aws session: %w", err)
		}
		backend = sstable.NewS3Backend(sess, cfg.Store.S3Bucket, cfg.Store.S3Prefix)
	default:
		backend = sstable.NewMemoryBackend()
	}
	return sstable.NewStore(backend, cfg.Store.CacheSize, log, reg)
}

// resolveGroups parses --group flags (comma-separated SST ids) and loads
// each id's Handle and Descriptor through the store, building one
// iterator.Run per group in the order given on the command line. Groups
// are assumed pre-sorted by whoever invoked the binary; this repo does
// not itself decide which SSTs overlap (that selection is a non-goal).
func resolveGroups(ctx context.Context, store *sstable.Store, groupFlags []string) ([]iterator.Run, error) {
	groups := make([]iterator.Run, 0, len(groupFlags))
	for _, flag := range groupFlags {
		ids, err := parseIDs(flag)
		if err != nil {
			return nil, err
		}
		run := iterator.Run{
			Descriptors: make([]sstable.Descriptor, 0, len(ids)),
			Handles:     make([]*sstable.Handle, 0, len(ids)),
		}
		for _, id := range ids {
			h, err := store.Load(ctx, sstable.Descriptor{ID: id}, sstable.ReadOptions{})
			if err != nil {
				return nil, fmt.Errorf("load sst %d: %w", id, err)
			}
			run.Handles = append(run.Handles, h)
			run.Descriptors = append(run.Descriptors, sstable.Descriptor{
				ID:       h.ID,
				KeyRange: sstable.KeyRange{Left: h.Smallest, Right: h.Largest},
				FileSize: uint64(h.ByteSize()),
			})
		}
		groups = append(groups, run)
	}
	return groups, nil
}

func parseIDs(flag string) ([]uint64, error) {
	parts := strings.Split(flag, ",")
	ids := make([]uint64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid sst id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
