package wisp

import "github.com/kristofer/wisp/internal/wisptable"

// wisptableIterator adapts wisptable.Iterator's "advance and return"
// protocol to the hasNext()/next() shape the language's iterator
// methods need, by eagerly pulling one entry ahead into a peek buffer.
// A modification detected while filling the peek buffer is stashed
// rather than swallowed, so mapNextNative/mapHasNextNative can raise
// spec.md §8's "Map modified during iteration" instead of the
// iterator silently reporting itself exhausted.
type wisptableIterator struct {
	it        *wisptable.Iterator[Value, Value]
	peeked    bool
	k, v      Value
	exhausted bool
	modified  bool
}

func newWisptableIterator(t *valueTable) *wisptableIterator {
	w := &wisptableIterator{it: t.NewIterator()}
	w.fill()
	return w
}

func (w *wisptableIterator) fill() {
	if w.peeked || w.exhausted || w.modified {
		return
	}
	k, v, ok, err := w.it.Next()
	if err != nil {
		w.modified = true
		return
	}
	if !ok {
		w.exhausted = true
		return
	}
	w.k, w.v = k, v
	w.peeked = true
}

func (w *wisptableIterator) hasNext() bool {
	w.fill()
	return w.peeked
}

func (w *wisptableIterator) next() (Value, Value, bool) {
	w.fill()
	if !w.peeked {
		return Nil, Nil, false
	}
	k, v := w.k, w.v
	w.peeked = false
	return k, v, true
}
