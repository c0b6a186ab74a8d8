package chunk

import (
	"github.com/dreamware/hummock/internal/key"
	"github.com/dreamware/hummock/internal/sstable"
)

// Row is one key/value pair as it comes off an iterator, the unit
// Rechunk operates on.
type Row struct {
	Key   key.Encoded
	Value sstable.ValueView
}

// Rechunk flattens batches and regroups them into fixed-size batches of
// size rows (the last batch may be shorter). size <= 0 returns batches
// unchanged. Row order is preserved across the flatten/regroup.
func Rechunk(batches [][]Row, size int) [][]Row {
	if size <= 0 {
		return batches
	}
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	if total == 0 {
		return nil
	}

	out := make([][]Row, 0, (total+size-1)/size)
	cur := make([]Row, 0, size)
	for _, b := range batches {
		for _, r := range b {
			cur = append(cur, r)
			if len(cur) == size {
				out = append(out, cur)
				cur = make([]Row, 0, size)
			}
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
