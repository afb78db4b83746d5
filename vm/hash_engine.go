package vm

import (
	"iter"

	"fortio.org/safecast"
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// HashEngine: insertion-ordered hash table
// ---------------------------------------------------------------------------

// entryHandle addresses a HashEntry in the engine's arena.
type entryHandle int32

const noEntry entryHandle = -1

// HashEntry is one key/value pair plus its position in insertion order.
//
// Entries form a circular doubly-linked list through prev/next handles.
// A removed entry stays linked (a tombstone) until the engine compacts;
// iteration skips it and it is not counted in Len.
type HashEntry struct {
	Key     Value
	Val     Value
	Hash    int64
	Removed bool

	prev, next entryHandle
}

// HashEngine maps keys to values and iterates in first-insertion order.
//
// Entries live in an arena slice and link to each other by handle, so the
// cyclic list never needs owning pointers. The index maps a hash code to
// the handles of the live entries carrying it. Index and list are updated
// together by every public operation.
//
// A HashEngine is not safe for concurrent use.
type HashEngine struct {
	hasher   KeyHasher
	identity bool

	entries []HashEntry
	index   map[int64][]entryHandle
	head    entryHandle

	size         int
	tombstones   int
	iterating    int
	compactRatio int

	log commonlog.Logger
}

// NewHashEngine creates an empty engine with room for capacity entries.
func NewHashEngine(hasher KeyHasher, capacity int) *HashEngine {
	if capacity < 0 {
		capacity = 0
	}
	return &HashEngine{
		hasher:       hasher,
		entries:      make([]HashEntry, 0, capacity),
		index:        make(map[int64][]entryHandle, capacity),
		head:         noEntry,
		compactRatio: DefaultCompactRatio,
		log:          commonlog.GetLogger("garnet.hash"),
	}
}

// SetLogger sets where rehash and compaction events are reported.
func (e *HashEngine) SetLogger(log commonlog.Logger) {
	if log != nil {
		e.log = log
	}
}

// Len returns the number of live entries.
func (e *HashEngine) Len() int { return e.size }

// Tombstones returns the number of removed entries not yet reclaimed.
func (e *HashEngine) Tombstones() int { return e.tombstones }

// IsIdentity reports whether keys compare by identity.
func (e *HashEngine) IsIdentity() bool { return e.identity }

// IsIterating reports whether an iteration is in progress.
func (e *HashEngine) IsIterating() bool { return e.iterating > 0 }

// SetCompactRatio sets the tombstone-to-live ratio that triggers compaction.
func (e *HashEngine) SetCompactRatio(n int) {
	if n > 0 {
		e.compactRatio = n
	}
}

// ---------------------------------------------------------------------------
// Lookup and mutation
// ---------------------------------------------------------------------------

// find returns key's hash code and the handle of the live entry holding an
// equal key, or noEntry.
func (e *HashEngine) find(key Value) (int64, entryHandle, error) {
	h, err := e.hasher.HashKey(key, e.identity)
	if err != nil {
		return 0, noEntry, err
	}
	eh, err := e.findWithHash(key, h)
	return h, eh, err
}

func (e *HashEngine) findWithHash(key Value, h int64) (entryHandle, error) {
	// The equality service may run user code. Holding the iteration guard
	// keeps that code from adding or deleting keys, so handles stay valid
	// and compaction cannot run until the search is over.
	e.iterating++
	defer func() { e.iterating-- }()

	chain := e.index[h]
	for _, eh := range chain {
		if int(eh) >= len(e.entries) || e.entries[eh].Removed {
			continue
		}
		same, err := e.hasher.KeysEqual(key, e.entries[eh].Key, e.identity)
		if err != nil {
			return noEntry, err
		}
		if same {
			return eh, nil
		}
	}
	return noEntry, nil
}

// Lookup returns the value stored under key.
func (e *HashEngine) Lookup(key Value) (Value, bool, error) {
	_, eh, err := e.find(key)
	if err != nil || eh == noEntry {
		return Undefined, false, err
	}
	return e.entries[eh].Val, true, nil
}

// Has reports whether key is present.
func (e *HashEngine) Has(key Value) (bool, error) {
	_, eh, err := e.find(key)
	return eh != noEntry, err
}

// Insert stores val under key. An existing key keeps its position and only
// its value changes. A new key is appended at the tail of the order, which
// is refused while an iteration is in progress.
func (e *HashEngine) Insert(key, val Value) error {
	h, eh, err := e.find(key)
	if err != nil {
		return err
	}
	if eh != noEntry {
		e.entries[eh].Val = val
		return nil
	}
	if e.iterating > 0 {
		return ConcurrentModificationError("can't add a new key into hash during iteration")
	}
	return e.appendEntry(key, val, h)
}

func (e *HashEngine) appendEntry(key, val Value, h int64) error {
	n, err := safecast.Conv[int32](len(e.entries))
	if err != nil {
		return RuntimeError("hash too large")
	}
	eh := entryHandle(n)
	ent := HashEntry{Key: key, Val: val, Hash: h, prev: eh, next: eh}
	if e.head == noEntry {
		e.entries = append(e.entries, ent)
		e.head = eh
	} else {
		tail := e.entries[e.head].prev
		ent.prev = tail
		ent.next = e.head
		e.entries = append(e.entries, ent)
		e.entries[tail].next = eh
		e.entries[e.head].prev = eh
	}
	e.index[h] = append(e.index[h], eh)
	e.size++
	return nil
}

// Delete removes key and returns its value. The entry is tombstoned: it
// leaves the index but stays linked in the order until compaction.
func (e *HashEngine) Delete(key Value) (Value, bool, error) {
	_, eh, err := e.find(key)
	if err != nil || eh == noEntry {
		return Undefined, false, err
	}
	if e.iterating > 0 {
		return Undefined, false, ConcurrentModificationError("can't delete a key from hash during iteration")
	}
	val := e.entries[eh].Val
	e.tombstone(eh)
	e.maybeCompact()
	return val, true, nil
}

func (e *HashEngine) tombstone(eh entryHandle) {
	ent := &e.entries[eh]
	if ent.Removed {
		return
	}
	ent.Removed = true

	chain := e.index[ent.Hash]
	for i, c := range chain {
		if c == eh {
			chain = append(chain[:i:i], chain[i+1:]...)
			break
		}
	}
	if len(chain) == 0 {
		delete(e.index, ent.Hash)
	} else {
		e.index[ent.Hash] = chain
	}

	e.size--
	e.tombstones++
}

// Clear removes every entry.
func (e *HashEngine) Clear() error {
	if e.iterating > 0 {
		return ConcurrentModificationError("can't delete a key from hash during iteration")
	}
	e.entries = e.entries[:0]
	clear(e.index)
	e.head = noEntry
	e.size = 0
	e.tombstones = 0
	return nil
}

// ---------------------------------------------------------------------------
// Iteration
// ---------------------------------------------------------------------------

// All returns a one-pass sequence over live entries in insertion order.
// Each call starts a fresh pass. While the pass runs the engine refuses
// structural mutation; replacing the value of an existing key is allowed.
func (e *HashEngine) All() iter.Seq2[Value, Value] {
	return func(yield func(Value, Value) bool) {
		e.iterating++
		defer func() { e.iterating-- }()

		start := e.head
		if start == noEntry {
			return
		}
		// start stays linked for the whole pass even if it is a tombstone,
		// because compaction never runs while iterating.
		cur := start
		for {
			ent := e.entries[cur]
			if !ent.Removed && !yield(ent.Key, ent.Val) {
				return
			}
			cur = e.entries[cur].next
			if cur == start {
				return
			}
		}
	}
}

// Each calls fn for every live entry in order, stopping at the first error.
func (e *HashEngine) Each(fn func(key, val Value) error) error {
	var err error
	for k, v := range e.All() {
		if err = fn(k, v); err != nil {
			break
		}
	}
	return err
}

// Keys returns the live keys in order.
func (e *HashEngine) Keys() []Value {
	keys := make([]Value, 0, e.size)
	for k := range e.All() {
		keys = append(keys, k)
	}
	return keys
}

// Values returns the live values in order.
func (e *HashEngine) Values() []Value {
	vals := make([]Value, 0, e.size)
	for _, v := range e.All() {
		vals = append(vals, v)
	}
	return vals
}

// liveEntries copies the live entries in order.
func (e *HashEngine) liveEntries() []HashEntry {
	out := make([]HashEntry, 0, e.size)
	if e.head == noEntry {
		return out
	}
	cur := e.head
	for {
		if !e.entries[cur].Removed {
			out = append(out, e.entries[cur])
		}
		cur = e.entries[cur].next
		if cur == e.head {
			return out
		}
	}
}

// ---------------------------------------------------------------------------
// Rehash and compaction
// ---------------------------------------------------------------------------

// Rehash recomputes every live key's hash code and rebuilds the index
// without changing iteration order. Tombstones are dropped. Keys that have
// become equal collapse into the first one, taking the later value.
func (e *HashEngine) Rehash() error {
	if e.iterating > 0 {
		return RuntimeError("rehash during iteration")
	}
	return e.rebuild(true)
}

// SetIdentity switches the comparison mode and rehashes.
func (e *HashEngine) SetIdentity(on bool) error {
	if e.identity == on {
		return nil
	}
	if e.iterating > 0 {
		return RuntimeError("compare_by_identity during iteration")
	}
	e.identity = on
	if err := e.rebuild(true); err != nil {
		e.identity = !on
		return err
	}
	return nil
}

// Compact physically reclaims tombstoned entries.
func (e *HashEngine) Compact() {
	if e.iterating > 0 || e.tombstones == 0 {
		return
	}
	// Without recomputation rebuild cannot fail.
	_ = e.rebuild(false)
}

func (e *HashEngine) maybeCompact() {
	if e.iterating == 0 && e.tombstones > 0 && e.tombstones >= e.size*e.compactRatio {
		e.Compact()
	}
}

// rebuild lays the live entries out afresh. The new table is assembled
// separately and swapped in only on success.
func (e *HashEngine) rebuild(recompute bool) error {
	live := e.liveEntries()
	fresh := NewHashEngine(e.hasher, max(len(live), cap(e.entries)/2))
	fresh.identity = e.identity
	fresh.compactRatio = e.compactRatio

	// Hash and equality may call back into user code that touches this
	// engine; treat the rebuild as an iteration.
	e.iterating++
	defer func() { e.iterating-- }()

	for _, ent := range live {
		h := ent.Hash
		if recompute {
			var err error
			if h, err = e.hasher.HashKey(ent.Key, e.identity); err != nil {
				return err
			}
			eh, err := fresh.findWithHash(ent.Key, h)
			if err != nil {
				return err
			}
			if eh != noEntry {
				fresh.entries[eh].Val = ent.Val
				continue
			}
		}
		if err := fresh.appendEntry(ent.Key, ent.Val, h); err != nil {
			return err
		}
	}

	if recompute {
		e.log.Debugf("rehash: %d entries, %d -> %d slots", fresh.size, cap(e.entries), cap(fresh.entries))
	} else {
		e.log.Debugf("compaction: dropped %d tombstones, %d -> %d slots", e.tombstones, cap(e.entries), cap(fresh.entries))
	}
	e.entries = fresh.entries
	e.index = fresh.index
	e.head = fresh.head
	e.size = fresh.size
	e.tombstones = 0
	return nil
}

// ---------------------------------------------------------------------------
// Set algebra
// ---------------------------------------------------------------------------

// Copy returns an engine with the same entries, order and comparison mode.
func (e *HashEngine) Copy() *HashEngine {
	c := NewHashEngine(e.hasher, e.size)
	c.identity = e.identity
	c.compactRatio = e.compactRatio
	c.log = e.log
	for _, ent := range e.liveEntries() {
		// Cannot fail: the copy is no larger than e.
		_ = c.appendEntry(ent.Key, ent.Val, ent.Hash)
	}
	return c
}

// MergeFunc resolves a key present on both sides of a merge.
type MergeFunc func(key, oldVal, newVal Value) (Value, error)

// Merge inserts every entry of other into e. When resolve is nil the
// incoming value wins; otherwise resolve decides for keys already in e.
func (e *HashEngine) Merge(other *HashEngine, resolve MergeFunc) error {
	return other.Each(func(k, v Value) error {
		if resolve != nil {
			old, found, err := e.Lookup(k)
			if err != nil {
				return err
			}
			if found {
				if v, err = resolve(k, old, v); err != nil {
					return err
				}
			}
		}
		return e.Insert(k, v)
	})
}

// Except returns a copy of e without the given keys.
func (e *HashEngine) Except(keys []Value) (*HashEngine, error) {
	c := e.Copy()
	for _, k := range keys {
		if _, _, err := c.Delete(k); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Slice returns a new engine holding only the given keys that are present,
// in argument order.
func (e *HashEngine) Slice(keys []Value) (*HashEngine, error) {
	s := NewHashEngine(e.hasher, len(keys))
	s.identity = e.identity
	s.compactRatio = e.compactRatio
	for _, k := range keys {
		v, found, err := e.Lookup(k)
		if err != nil {
			return nil, err
		}
		if found {
			if err := s.Insert(k, v); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// RemoveIf tombstones every live entry for which pred returns true and
// reports how many were removed. pred runs inside an iteration; removal
// happens once the pass is complete.
func (e *HashEngine) RemoveIf(pred func(key, val Value) (bool, error)) (int, error) {
	if e.iterating > 0 {
		return 0, ConcurrentModificationError("can't delete a key from hash during iteration")
	}
	var doomed []entryHandle
	e.iterating++
	err := func() error {
		defer func() { e.iterating-- }()
		if e.head == noEntry {
			return nil
		}
		cur := e.head
		for {
			ent := e.entries[cur]
			if !ent.Removed {
				drop, err := pred(ent.Key, ent.Val)
				if err != nil {
					return err
				}
				if drop {
					doomed = append(doomed, cur)
				}
			}
			cur = e.entries[cur].next
			if cur == e.head {
				return nil
			}
		}
	}()
	if err != nil {
		return 0, err
	}
	for _, eh := range doomed {
		e.tombstone(eh)
	}
	if len(doomed) > 0 {
		e.maybeCompact()
	}
	return len(doomed), nil
}

// Compacted removes nil-valued entries and reports how many were removed.
func (e *HashEngine) Compacted() (int, error) {
	return e.RemoveIf(func(_, v Value) (bool, error) {
		return v.IsNil(), nil
	})
}

// IsSubsetOf reports whether every pair of e is present in other with a
// value that eq accepts.
func (e *HashEngine) IsSubsetOf(other *HashEngine, eq func(a, b Value) (bool, error)) (bool, error) {
	if e.size > other.size {
		return false, nil
	}
	subset := true
	err := e.Each(func(k, v Value) error {
		ov, found, err := other.Lookup(k)
		if err != nil {
			return err
		}
		if !found {
			subset = false
			return errStopIteration
		}
		same, err := eq(v, ov)
		if err != nil {
			return err
		}
		if !same {
			subset = false
			return errStopIteration
		}
		return nil
	})
	if err == errStopIteration {
		err = nil
	}
	return subset, err
}

// errStopIteration ends an Each early without reporting a failure.
var errStopIteration = &RubyError{Kind: KindStandardError, Message: "stop iteration"}

// ---------------------------------------------------------------------------
// Tracing
// ---------------------------------------------------------------------------

// VisitChildren offers every key and value in the arena to v, including
// tombstones that are still linked.
func (e *HashEngine) VisitChildren(v Visitor) {
	for i := range e.entries {
		v.VisitValue(e.entries[i].Key)
		v.VisitValue(e.entries[i].Val)
	}
}
