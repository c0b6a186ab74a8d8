package config

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"

	"github.com/dreamware/hummock/internal/sstable"
)

// Config is the engine configuration for a compactor process: how SSTs
// are built, cached, and stored, and how much memory compaction output
// buffering may use.
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Builder    BuilderConfig    `yaml:"builder"`
	Compaction CompactionConfig `yaml:"compaction"`
}

// StoreConfig configures the SST store's cache and backend.
type StoreConfig struct {
	CacheSize int    `yaml:"cache_size"`
	Backend   string `yaml:"backend"` // "memory" or "s3"
	S3Bucket  string `yaml:"s3_bucket"`
	S3Prefix  string `yaml:"s3_prefix"`
}

// BuilderConfig configures new SST construction.
type BuilderConfig struct {
	BlockSize       datasize.ByteSize `yaml:"block_size"`
	RestartInterval int               `yaml:"restart_interval"`
	Compression     string            `yaml:"compression"` // "none", "snappy", "zstd"
	BloomFPRate     float64           `yaml:"bloom_fp_rate"`
	TableCapacity   datasize.ByteSize `yaml:"table_capacity"`
}

// CompactionConfig configures the compaction driver's resource limits.
type CompactionConfig struct {
	MemoryBudget    datasize.ByteSize `yaml:"memory_budget"`
	BuilderSizeHint datasize.ByteSize `yaml:"builder_size_hint"`
}

// Default returns the configuration used when no file is supplied,
// tuned for a single-process local run.
func Default() Config {
	return Config{
		Store: StoreConfig{
			CacheSize: 256,
			Backend:   "memory",
		},
		Builder: BuilderConfig{
			BlockSize:       4 * datasize.KB,
			RestartInterval: 16,
			Compression:     "snappy",
			BloomFPRate:     0.01,
			TableCapacity:   64 * datasize.MB,
		},
		Compaction: CompactionConfig{
			MemoryBudget:    256 * datasize.MB,
			BuilderSizeHint: 8 * datasize.MB,
		},
	}
}

// Load reads and parses a YAML configuration file at path, filling any
// field the file omits from Default.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports configuration values this package cannot safely
// default around.
func (c Config) Validate() error {
	switch c.Builder.Compression {
	case "none", "snappy", "zstd":
	default:
		return fmt.Errorf("builder.compression: unknown algorithm %q", c.Builder.Compression)
	}
	if c.Builder.BloomFPRate <= 0 || c.Builder.BloomFPRate >= 1 {
		return fmt.Errorf("builder.bloom_fp_rate: %v out of (0, 1)", c.Builder.BloomFPRate)
	}
	switch c.Store.Backend {
	case "memory":
	case "s3":
		if c.Store.S3Bucket == "" {
			return fmt.Errorf("store.s3_bucket: required when store.backend is \"s3\"")
		}
	default:
		return fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend)
	}
	return nil
}

// CompressionAlgo maps the configured algorithm name to its sstable.Compression
// value.
func (c BuilderConfig) CompressionAlgo() sstable.Compression {
	switch c.Compression {
	case "zstd":
		return sstable.CompressionZstd
	case "snappy":
		return sstable.CompressionSnappy
	default:
		return sstable.CompressionNone
	}
}

// BuilderOptions translates the configured sizes into sstable's builder
// options type.
func (c BuilderConfig) BuilderOptions() sstable.BuilderOptions {
	return sstable.BuilderOptions{
		BlockCapacity:   int(c.BlockSize.Bytes()),
		TableCapacity:   int(c.TableCapacity.Bytes()),
		RestartInterval: c.RestartInterval,
		Compression:     c.CompressionAlgo(),
		BloomFPR:        c.BloomFPRate,
	}
}
