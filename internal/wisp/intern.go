package wisp

import "github.com/cespare/xxhash/v2"

// internTable is the closed-addressing, weakly-held set of interned
// strings (spec.md §4.B). It is kept in-package rather than split into
// its own importable package because interning must allocate through
// the same Context the collector walks — the teacher's pkg/vm keeps
// every heap-object kind in one package for the identical reason.
//
// The hash itself is xxhash rather than a hand-rolled FNV loop,
// grounded in the erigon manifest's github.com/cespare/xxhash/v2
// dependency (_examples/other_examples/manifests/AKJUS-bsc-erigon).
type internTable struct {
	byHash map[uint64][]*ObjString
}

func newInternTable() *internTable {
	return &internTable{byHash: make(map[uint64][]*ObjString)}
}

func hashBytes(b []byte) uint64 { return xxhash.Sum64(b) }

// lookup returns the interned string with the given bytes, if any.
func (t *internTable) lookup(hash uint64, bytes []byte) *ObjString {
	for _, s := range t.byHash[hash] {
		if string(s.Bytes) == string(bytes) {
			return s
		}
	}
	return nil
}

// insert registers a freshly allocated string in the table.
func (t *internTable) insert(s *ObjString) {
	t.byHash[s.Hash] = append(t.byHash[s.Hash], s)
}

// sweep removes entries whose backing string the collector is about to
// free (spec.md §4.E: "The GC special-cases the string table: any
// entry whose key is not otherwise reachable is removed during sweep").
func (t *internTable) sweep() {
	for h, bucket := range t.byHash {
		kept := bucket[:0]
		for _, s := range bucket {
			if s.marked {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(t.byHash, h)
		} else {
			t.byHash[h] = kept
		}
	}
}

// Intern returns the canonical *ObjString for bytes, allocating and
// registering a new one only if an equal string is not already live.
// This is the sole path to constructing a string object: every other
// place in the VM that needs a string value calls through here so
// that "a string equal by bytes to a live interned string is never
// allocated separately" (spec.md §3 invariant) holds everywhere.
func (ctx *Context) Intern(bytes []byte) *ObjString {
	h := hashBytes(bytes)
	if existing := ctx.strings.lookup(h, bytes); existing != nil {
		return existing
	}
	owned := make([]byte, len(bytes))
	copy(owned, bytes)
	s := newString(owned, h)
	ctx.registerObject(s)
	ctx.strings.insert(s)
	return s
}

// InternString is a convenience wrapper over Intern for Go strings.
func (ctx *Context) InternString(s string) *ObjString { return ctx.Intern([]byte(s)) }
