package sstable

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dreamware/hummock/internal/key"
)

// encodeTrailer serializes a BuiltMeta into the self-describing trailer
// Store.Publish appends after an SST's block data, so a Store can decode a
// freshly fetched object without a separate manifest service (this
// module's scope per spec.md's Non-goals excludes manifest persistence).
func encodeTrailer(meta BuiltMeta) []byte {
	var buf bytes.Buffer
	writeBytes(&buf, meta.Smallest)
	writeBytes(&buf, meta.Largest)
	buf.WriteByte(byte(meta.Compression))
	writeBytes(&buf, meta.BloomEncoded)

	var cb [4]byte
	binary.BigEndian.PutUint32(cb[:], uint32(len(meta.Blocks)))
	buf.Write(cb[:])
	for _, m := range meta.Blocks {
		var ob, lb [4]byte
		binary.BigEndian.PutUint32(ob[:], uint32(m.Offset))
		binary.BigEndian.PutUint32(lb[:], uint32(m.Length))
		buf.Write(ob[:])
		buf.Write(lb[:])
		writeBytes(&buf, m.LargestKey)
	}
	return buf.Bytes()
}

func decodeTrailer(raw []byte) (BuiltMeta, error) {
	r := bytes.NewReader(raw)

	smallest, err := readBytes(r)
	if err != nil {
		return BuiltMeta{}, fmt.Errorf("sstable: trailer smallest: %w", err)
	}
	largest, err := readBytes(r)
	if err != nil {
		return BuiltMeta{}, fmt.Errorf("sstable: trailer largest: %w", err)
	}
	compByte, err := r.ReadByte()
	if err != nil {
		return BuiltMeta{}, fmt.Errorf("sstable: trailer compression: %w", err)
	}
	bloomEnc, err := readBytes(r)
	if err != nil {
		return BuiltMeta{}, fmt.Errorf("sstable: trailer bloom: %w", err)
	}

	var cb [4]byte
	if _, err := r.Read(cb[:]); err != nil {
		return BuiltMeta{}, fmt.Errorf("sstable: trailer block count: %w", err)
	}
	count := int(binary.BigEndian.Uint32(cb[:]))
	blocks := make([]BlockMeta, 0, count)
	for i := 0; i < count; i++ {
		var ob, lb [4]byte
		if _, err := r.Read(ob[:]); err != nil {
			return BuiltMeta{}, fmt.Errorf("sstable: trailer block offset: %w", err)
		}
		if _, err := r.Read(lb[:]); err != nil {
			return BuiltMeta{}, fmt.Errorf("sstable: trailer block length: %w", err)
		}
		lk, err := readBytes(r)
		if err != nil {
			return BuiltMeta{}, fmt.Errorf("sstable: trailer block key: %w", err)
		}
		blocks = append(blocks, BlockMeta{
			Offset:     int(binary.BigEndian.Uint32(ob[:])),
			Length:     int(binary.BigEndian.Uint32(lb[:])),
			LargestKey: key.Encoded(lk),
		})
	}

	return BuiltMeta{
		Blocks:       blocks,
		Smallest:     key.Encoded(smallest),
		Largest:      key.Encoded(largest),
		Compression:  Compression(compByte),
		BloomEncoded: bloomEnc,
	}, nil
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
