// Package config loads the engine configuration consumed by
// cmd/compactor: block/table capacities, compression, bloom false
// positive rate, cache sizing, and the memory limiter budget.
//
// # Overview
//
// Load reads a YAML file on top of Default, so a config file only needs to
// name the fields it overrides; Validate then rejects combinations this
// package cannot safely default around (an unknown compression algorithm,
// an out-of-range bloom false-positive rate, an "s3" backend missing its
// bucket). Sizes are expressed with github.com/c2h5oh/datasize
// (`block_size: 4MiB` rather than a raw byte count), matching how the
// teacher's own deployment configs read.
//
// # Errors
//
// Load wraps read and parse failures with the file path via fmt.Errorf's
// %w; Validate's errors name the offending field path (e.g.
// "builder.bloom_fp_rate") so a misconfigured deployment fails with a
// message that points at the exact YAML key to fix.
//
// # Testing
//
// config_test.go validates Default, loads a small YAML file written to a
// temporary directory to check that omitted fields keep their defaults,
// and exercises Validate's rejection paths and the builder-option
// translation directly.
package config
