package key

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EpochLen is the width, in bytes, of the big-endian epoch suffix appended
// to every encoded key.
const EpochLen = 8

// Encoded is a byte string ending with an 8-byte big-endian epoch suffix:
// user_key || epoch_be_u64. No component outside this package may compare
// two Encoded values directly with bytes.Compare; all ordering goes through
// Compare, which applies the versioned rule (user-key ascending, epoch
// descending).
type Encoded []byte

// Encode appends the big-endian epoch suffix to userKey, returning a fresh
// Encoded value. The caller's userKey slice is not retained.
func Encode(userKey []byte, epoch uint64) Encoded {
	out := make([]byte, len(userKey)+EpochLen)
	copy(out, userKey)
	binary.BigEndian.PutUint64(out[len(userKey):], epoch)
	return out
}

// UserKey returns the prefix of k before the epoch suffix. The returned
// slice aliases k and must not be retained past k's lifetime.
func (k Encoded) UserKey() []byte {
	if len(k) < EpochLen {
		return nil
	}
	return k[:len(k)-EpochLen]
}

// Epoch returns the big-endian epoch suffix of k.
func (k Encoded) Epoch() uint64 {
	if len(k) < EpochLen {
		return 0
	}
	return binary.BigEndian.Uint64(k[len(k)-EpochLen:])
}

// Compare orders two encoded keys: user-key prefix ascending, then epoch
// descending (newer epochs sort first). This is the VersionedComparator;
// every iterator in this module orders its output by this function, never
// by raw byte comparison.
func Compare(a, b Encoded) int {
	au, bu := a.UserKey(), b.UserKey()
	if c := bytes.Compare(au, bu); c != 0 {
		return c
	}
	ae, be := a.Epoch(), b.Epoch()
	switch {
	case ae > be:
		return -1
	case ae < be:
		return 1
	default:
		return 0
	}
}

// Less reports whether a sorts strictly before b under Compare.
func Less(a, b Encoded) bool { return Compare(a, b) < 0 }

// Equal reports whether a and b are the same encoded key (same user key and
// epoch).
func Equal(a, b Encoded) bool { return bytes.Equal(a, b) }

// CompareUser compares only the user-key prefixes of two encoded keys,
// ignoring epoch, against a bare user key that carries no version.
func CompareUser(a Encoded, userKey []byte) int {
	return bytes.Compare(a.UserKey(), userKey)
}

func (k Encoded) String() string {
	if len(k) < EpochLen {
		return fmt.Sprintf("%x", []byte(k))
	}
	return fmt.Sprintf("%x@%d", k.UserKey(), k.Epoch())
}
