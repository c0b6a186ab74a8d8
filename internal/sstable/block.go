package sstable

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/dreamware/hummock/internal/key"
)

// Compression names the on-disk block compression marker, per spec.md §6
// ("None | other").
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionSnappy
	CompressionZstd
)

// entry is one decoded block entry: a full versioned key plus its value
// view. Blocks are built with restart points every restartInterval entries
// to support prefix-compressed keys with random in-block seek (spec.md
// §6); this implementation keeps entries fully materialized per block
// (blocks are small, capacity-bounded, per the builder's BlockCapacity
// option) and uses the restart table purely to bound the linear scan a
// seek performs, matching the documented on-disk contract without forcing
// byte-level prefix compression.
type entry struct {
	k key.Encoded
	v ValueView
}

// Block is one decoded data block: a sorted run of entries plus the
// restart-point offsets spec.md §6 names. restartInterval entries separate
// consecutive restart points.
type Block struct {
	entries         []entry
	restarts        []int // indices into entries
	restartInterval int
}

// Len returns the number of entries in the block.
func (b *Block) Len() int { return len(b.entries) }

// At returns the i'th entry's key and value view.
func (b *Block) At(i int) (key.Encoded, ValueView) { return b.entries[i].k, b.entries[i].v }

// Seek returns the index of the first entry with key >= target (forward
// sense; callers reverse the comparison for backward iteration by
// searching for <= and taking the last qualifying index). Search starts
// from the restart point nearest target and then scans linearly, modeling
// the documented restart-interval seek strategy without a full binary
// search over prefix-compressed keys.
func (b *Block) Seek(target key.Encoded) int {
	// Binary search over restart points for the last restart whose key is
	// <= target, then linear-scan forward from there.
	lo, hi := 0, len(b.restarts)-1
	start := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		idx := b.restarts[mid]
		if key.Less(b.entries[idx].k, target) || key.Equal(b.entries[idx].k, target) {
			start = idx
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	for i := start; i < len(b.entries); i++ {
		if !key.Less(b.entries[i].k, target) {
			return i
		}
	}
	return len(b.entries)
}

// encodeBlock serializes entries into a checksummed, optionally compressed
// byte slice. Wire format: [u32 entry count][entries...][u32 restart
// count][restarts...][u32 crc32c of everything preceding].
func encodeBlock(entries []entry, restartInterval int) ([]byte, []int, error) {
	var buf bytes.Buffer
	var restarts []int

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(entries)))
	buf.Write(countBuf[:])

	for i, e := range entries {
		if i%restartInterval == 0 {
			restarts = append(restarts, i)
		}
		writeUvarint(&buf, uint64(len(e.k)))
		buf.Write(e.k)
		switch e.v.Kind {
		case Put:
			buf.WriteByte(byte(Put))
			writeUvarint(&buf, uint64(len(e.v.Bytes)))
			buf.Write(e.v.Bytes)
		case Delete:
			buf.WriteByte(byte(Delete))
		default:
			return nil, nil, fmt.Errorf("sstable: unknown value kind %d", e.v.Kind)
		}
	}

	var rcBuf [4]byte
	binary.BigEndian.PutUint32(rcBuf[:], uint32(len(restarts)))
	buf.Write(rcBuf[:])
	for _, r := range restarts {
		var rb [4]byte
		binary.BigEndian.PutUint32(rb[:], uint32(r))
		buf.Write(rb[:])
	}

	payload := buf.Bytes()
	checksum := crc32.Checksum(payload, crc32.MakeTable(crc32.Castagnoli))
	out := make([]byte, len(payload)+4)
	copy(out, payload)
	binary.BigEndian.PutUint32(out[len(payload):], checksum)
	return out, restarts, nil
}

// compress applies the given algorithm, returning raw bytes prefixed by a
// one-byte compression marker (spec.md §6's "compression marker" field).
func compress(raw []byte, algo Compression) ([]byte, error) {
	var body []byte
	switch algo {
	case CompressionNone:
		body = raw
	case CompressionSnappy:
		body = snappy.Encode(nil, raw)
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		body = enc.EncodeAll(raw, nil)
		_ = enc.Close()
	default:
		return nil, fmt.Errorf("sstable: unknown compression %d", algo)
	}
	out := make([]byte, len(body)+1)
	out[0] = byte(algo)
	copy(out[1:], body)
	return out, nil
}

// decodeBlock reverses compress then encodeBlock, verifying the checksum
// before parsing entries. Any mismatch is a fatal decode error per
// spec.md §7.
func decodeBlock(raw []byte, restartInterval int) (*Block, error) {
	if len(raw) < 1 {
		return nil, fmt.Errorf("sstable: empty block")
	}
	algo := Compression(raw[0])
	body := raw[1:]

	var payload []byte
	var err error
	switch algo {
	case CompressionNone:
		payload = body
	case CompressionSnappy:
		payload, err = snappy.Decode(nil, body)
	case CompressionZstd:
		dec, derr := zstd.NewReader(nil)
		if derr != nil {
			return nil, derr
		}
		payload, err = dec.DecodeAll(body, nil)
		dec.Close()
	default:
		return nil, fmt.Errorf("sstable: unknown compression marker %d", algo)
	}
	if err != nil {
		return nil, fmt.Errorf("sstable: decompress block: %w", err)
	}

	if len(payload) < 8 {
		return nil, fmt.Errorf("sstable: truncated block")
	}
	checksummed := payload[:len(payload)-4]
	wantChecksum := binary.BigEndian.Uint32(payload[len(payload)-4:])
	gotChecksum := crc32.Checksum(checksummed, crc32.MakeTable(crc32.Castagnoli))
	if wantChecksum != gotChecksum {
		return nil, fmt.Errorf("sstable: block checksum mismatch")
	}

	r := bytes.NewReader(checksummed)
	var countBuf [4]byte
	if _, err := r.Read(countBuf[:]); err != nil {
		return nil, fmt.Errorf("sstable: corrupt block header: %w", err)
	}
	count := int(binary.BigEndian.Uint32(countBuf[:]))

	entries := make([]entry, 0, count)
	for i := 0; i < count; i++ {
		klen, err := readUvarint(r)
		if err != nil {
			return nil, fmt.Errorf("sstable: corrupt entry framing: %w", err)
		}
		kb := make([]byte, klen)
		if _, err := r.Read(kb); err != nil {
			return nil, fmt.Errorf("sstable: corrupt entry key: %w", err)
		}
		kindByte, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("sstable: corrupt entry kind: %w", err)
		}
		var v ValueView
		switch ValueKind(kindByte) {
		case Put:
			vlen, err := readUvarint(r)
			if err != nil {
				return nil, fmt.Errorf("sstable: corrupt value framing: %w", err)
			}
			vb := make([]byte, vlen)
			if _, err := r.Read(vb); err != nil {
				return nil, fmt.Errorf("sstable: corrupt value: %w", err)
			}
			v = ValueView{Kind: Put, Bytes: vb}
		case Delete:
			v = ValueView{Kind: Delete}
		default:
			return nil, fmt.Errorf("sstable: unknown value kind %d", kindByte)
		}
		entries = append(entries, entry{k: key.Encoded(kb), v: v})
	}

	var rcBuf [4]byte
	if _, err := r.Read(rcBuf[:]); err != nil {
		return nil, fmt.Errorf("sstable: corrupt restart header: %w", err)
	}
	rcount := int(binary.BigEndian.Uint32(rcBuf[:]))
	restarts := make([]int, 0, rcount)
	for i := 0; i < rcount; i++ {
		var rb [4]byte
		if _, err := r.Read(rb[:]); err != nil {
			return nil, fmt.Errorf("sstable: corrupt restart entry: %w", err)
		}
		restarts = append(restarts, int(binary.BigEndian.Uint32(rb[:])))
	}
	if len(restarts) == 0 && len(entries) > 0 {
		restarts = []int{0}
	}

	return &Block{entries: entries, restarts: restarts, restartInterval: restartInterval}, nil
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func readUvarint(r *bytes.Reader) (uint64, error) {
	return binary.ReadUvarint(r)
}
