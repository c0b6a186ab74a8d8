// Package key implements the versioned-key encoding and comparator that
// every other package in this module orders by.
//
// # Overview
//
// Every stored entry is addressed by an Encoded value: a user-supplied key
// followed by an 8-byte big-endian epoch. No package outside this one may
// compare two Encoded values with bytes.Compare directly — Compare is the
// single source of truth for ordering, and it does not agree with a plain
// byte-wise comparison once two keys share a user-key prefix but differ in
// epoch.
//
// # Ordering Rule
//
// Compare orders user-key prefixes ascending (the natural lexicographic
// order callers expect from a range scan) and, for equal user keys, orders
// epoch descending — the newest write for a given user key sorts first.
// This single rule is what lets a forward scan present "the latest value
// as of now" without a second pass: the first entry a scan sees for any
// user key is already the newest one.
//
//	Compare(a, b):
//	    if a.user_key != b.user_key: lexicographic order
//	    else:                        descending epoch order
//
// # Boundary Construction
//
// Callers that build a synthetic Encoded value to bound a range (a seek
// target, a compaction KeyRange) must pick the epoch sentinel deliberately,
// since it controls which real versions of the boundary's user key the
// bound includes:
//
//   - An inclusive lower bound needs the maximum epoch (^uint64(0)): every
//     real version of that user key has a lower epoch, so it compares as
//     "greater than" the bound and is kept.
//   - An inclusive upper bound needs epoch 0: every real version of that
//     user key has a higher epoch, so it compares as "less than or equal
//     to" the bound and is kept.
//
// Getting this backward silently excludes entries instead of failing
// loudly — internal/compaction's KeyRange and internal/iterator's
// seek-contract property test both rely on this convention.
//
// # Thread Safety
//
// Encoded values are immutable byte slices; Compare, Less, Equal, and the
// accessor methods perform no allocation beyond what the caller already
// holds and are safe to call concurrently on the same Encoded from many
// goroutines, since none of them mutate it.
package key
