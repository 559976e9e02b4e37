// Copyright (c) 2024 the linkmap authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package linkmap provides the Map type, a hash table of chained
// buckets with an optional second link structure that yields stable
// insertion-order iteration. Users provide an equal and a hash
// function for the key type.
//
// The following requirements are the user's responsibility to follow:
//   - equal(a, b) => hash(a) == hash(b)
//   - equal(a, a) must be true for all values of a. Be careful around
//     NaN float values; Map has no special case for them.
//   - If a key contains references -- such as pointers, maps, or
//     slices -- modifying the referenced data in a way that affects
//     the result of the equal or hash functions results in undefined
//     behavior.
//   - For good performance hash functions should return uniformly
//     distributed data across the entire 64 bits of the value.
//
// Map is not safe for concurrent mutation. Reads may proceed
// concurrently with each other, but a write concurrent with anything
// else requires external synchronization.
package linkmap

// The bucket array always has power-of-two length so the scrambled
// hash can be masked into an index. Each slot holds the head of a
// singly-linked chain of cells; insertion prepends to the chain.
// A linked map threads every cell into a second, doubly-linked list
// bounded by head and tip, in first-insertion order. Growth
// reallocates only the bucket array: every live cell is relinked
// against the new capacity, never copied.

import "hash/maphash"

// Stability selects the iteration contract of a Map, fixed at
// construction.
type Stability uint8

const (
	// Unlinked iteration walks buckets in index order and chains head
	// to tail. The order can change after any insert, delete, or
	// growth and carries no meaning.
	Unlinked Stability = iota
	// Linked iteration follows the order list, yielding entries in
	// the order their keys were first inserted.
	Linked
)

// hashWriting flags a write in progress, giving cheap detection of
// unsynchronized concurrent writes and of mutation from inside Each.
const hashWriting = 4

// cell is one chain node. It is owned by exactly one bucket slot (as
// chain head) or by the preceding cell in its chain. before and after
// are dormant in unlinked maps; in linked maps they thread this same
// cell into the order list, so the two link structures share one node
// and every mutation must update both together.
type cell[K, E any] struct {
	key  K
	elem E
	next *cell[K, E] // next in bucket chain

	before, after *cell[K, E] // order list neighbors, linked maps only
}

// Map implements a hash table of chained cells.
type Map[K, E any] struct {
	count     int // # live cells == size of map
	flags     uint32
	stability Stability
	policy    Policy

	// power-of-two array of chain heads; nil until the first write
	// when constructed without a size hint
	buckets []*cell[K, E]

	// order list endpoints, linked maps only; nil iff count == 0
	head, tip *cell[K, E]

	seed  maphash.Seed
	hash  func(maphash.Seed, K) uint64
	equal func(K, K) bool
}

// KeyElem contains a Key and Elem.
type KeyElem[K, E any] struct {
	Key  K
	Elem E
}

// New instantiates an unlinked Map initialized with any KeyElems
// passed, later pairs winning on duplicate keys. The equal func must
// return true for two values of K that are equal and false otherwise.
// The hash func should return a uniformly distributed hash value. If
// equal(a, b) then hash(a) == hash(b). The hash function is passed a
// [hash/maphash.Seed], this is meant to be used with functions and
// types in the [hash/maphash] package, though can be ignored.
func New[K, E any](
	equal func(a, b K) bool,
	hash func(maphash.Seed, K) uint64,
	kes ...KeyElem[K, E]) *Map[K, E] {

	m := NewWithPolicy[K, E](Unlinked, DefaultPolicy, len(kes), equal, hash)
	m.SetAll(kes...)
	return m
}

// NewLinked is New for a linked Map: iteration yields entries in the
// order their keys were first inserted, and the order survives growth
// and in-place updates.
func NewLinked[K, E any](
	equal func(a, b K) bool,
	hash func(maphash.Seed, K) uint64,
	kes ...KeyElem[K, E]) *Map[K, E] {

	m := NewWithPolicy[K, E](Linked, DefaultPolicy, len(kes), equal, hash)
	m.SetAll(kes...)
	return m
}

// NewHint instantiates an unlinked Map with a hint as to how many
// elements will be inserted. See [New] for discussion of the equal
// and hash arguments.
func NewHint[K, E any](
	hint int,
	equal func(a, b K) bool,
	hash func(maphash.Seed, K) uint64) *Map[K, E] {

	return NewWithPolicy[K, E](Unlinked, DefaultPolicy, hint, equal, hash)
}

// NewLinkedHint is NewHint for a linked Map.
func NewLinkedHint[K, E any](
	hint int,
	equal func(a, b K) bool,
	hash func(maphash.Seed, K) uint64) *Map[K, E] {

	return NewWithPolicy[K, E](Linked, DefaultPolicy, hint, equal, hash)
}

// NewWithPolicy instantiates a Map with full control over stability
// and sizing policy. Both are fixed for the lifetime of the map.
func NewWithPolicy[K, E any](
	s Stability,
	p Policy,
	hint int,
	equal func(a, b K) bool,
	hash func(maphash.Seed, K) uint64) *Map[K, E] {

	m := &Map[K, E]{
		stability: s,
		policy:    p.normalized(),
		seed:      maphash.MakeSeed(),
		hash:      hash,
		equal:     equal,
	}
	if hint > 0 {
		m.buckets = makeBuckets[K, E](m.policy.initialCapacity(hint))
	}
	return m
}

func makeBuckets[K, E any](n int) []*cell[K, E] {
	if n&(n-1) != 0 {
		panic("capacity is not a power of 2")
	}
	return make([]*cell[K, E], n)
}

// scramble mixes the high bits of h into the low bits consumed by the
// bucket mask.
func scramble(h uint64) uint64 {
	return h ^ h>>16
}

func (m *Map[K, E]) bucketMask() uint64 {
	return uint64(len(m.buckets) - 1)
}

func (m *Map[K, E]) bucketIndex(key K) int {
	return int(scramble(m.hash(m.seed, key)) & m.bucketMask())
}

// Stability returns the iteration contract m was constructed with.
func (m *Map[K, E]) Stability() Stability {
	return m.stability
}

// Len returns the count of entries in m.
func (m *Map[K, E]) Len() int {
	if m == nil {
		return 0
	}
	return m.count
}

// Empty reports whether m holds no entries.
func (m *Map[K, E]) Empty() bool {
	return m.Len() == 0
}

// find walks the chain for key and returns its cell, or nil.
func (m *Map[K, E]) find(key K) *cell[K, E] {
	if m == nil || m.count == 0 {
		return nil
	}
	for c := m.buckets[m.bucketIndex(key)]; c != nil; c = c.next {
		if m.equal(key, c.key) {
			return c
		}
	}
	return nil
}

// Get returns the elem associated with key and true if that key is in
// the Map, otherwise it returns the zero value of E and false.
func (m *Map[K, E]) Get(key K) (E, bool) {
	if c := m.find(key); c != nil {
		return c.elem, true
	}
	var zero E
	return zero, false
}

// Contains reports whether key has a live cell. It is the only
// reliable way to tell a missing key from a key stored with a zero or
// nil elem.
func (m *Map[K, E]) Contains(key K) bool {
	return m.find(key) != nil
}

func (m *Map[K, E]) beginWrite() {
	if m == nil {
		// We have to panic here rather than initialize an empty map
		// because we need the user to pass in hash and equal
		// functions.
		panic("write to nil Map")
	}
	if m.flags&hashWriting != 0 {
		panic("concurrent map writes")
	}
	m.flags ^= hashWriting
}

func (m *Map[K, E]) endWrite() {
	if m.flags&hashWriting == 0 {
		panic("concurrent map writes")
	}
	m.flags &^= hashWriting
}

// Set associates key with elem in m. When the key is already present
// its cell keeps both its chain and its order position; only the elem
// is replaced. The previous elem and true are returned on
// replacement, the zero value and false on a fresh insertion.
func (m *Map[K, E]) Set(key K, elem E) (prev E, replaced bool) {
	m.beginWrite()
	prev, replaced = m.set(key, elem)
	if !replaced {
		m.maybeGrow()
	}
	m.endWrite()
	return prev, replaced
}

// SetAll applies Set semantics for each pair, later pairs winning on
// duplicate keys, with a single growth check at the end instead of
// one per entry.
func (m *Map[K, E]) SetAll(kes ...KeyElem[K, E]) {
	m.beginWrite()
	for _, ke := range kes {
		m.set(ke.Key, ke.Elem)
	}
	m.maybeGrow()
	m.endWrite()
}

// SetIfAbsent stores elem only when key has no live cell, reporting
// whether it stored. Unlike Set on a present key, a false return
// leaves the existing elem untouched.
func (m *Map[K, E]) SetIfAbsent(key K, elem E) bool {
	m.beginWrite()
	absent := m.find(key) == nil
	if absent {
		m.set(key, elem)
		m.maybeGrow()
	}
	m.endWrite()
	return absent
}

// SetIfPresent replaces the elem of an existing cell, reporting
// whether the key was present.
func (m *Map[K, E]) SetIfPresent(key K, elem E) bool {
	m.beginWrite()
	c := m.find(key)
	if c != nil {
		c.elem = elem
	}
	m.endWrite()
	return c != nil
}

// Update gives the current elem for key to up and stores the result.
// An absent key hands up the zero value of E and inserts the result
// as a fresh entry.
func (m *Map[K, E]) Update(key K, up func(cur E) E) {
	m.beginWrite()
	if c := m.find(key); c != nil {
		c.elem = up(c.elem)
	} else {
		var zero E
		m.set(key, up(zero))
		m.maybeGrow()
	}
	m.endWrite()
}

// set finds or places the cell for key without a growth check. The
// caller holds the write flag.
func (m *Map[K, E]) set(key K, elem E) (prev E, replaced bool) {
	if m.buckets == nil {
		m.buckets = makeBuckets[K, E](m.policy.initialCapacity(0))
	}
	i := m.bucketIndex(key)
	for c := m.buckets[i]; c != nil; c = c.next {
		if m.equal(key, c.key) {
			prev, c.elem = c.elem, elem
			return prev, true
		}
	}
	c := &cell[K, E]{key: key, elem: elem, next: m.buckets[i]}
	m.buckets[i] = c
	if m.stability == Linked {
		m.pushOrder(c)
	}
	m.count++
	return prev, false
}

// pushOrder appends c to the tip of the order list, making it head as
// well when the list was empty.
func (m *Map[K, E]) pushOrder(c *cell[K, E]) {
	c.before = m.tip
	if m.tip == nil {
		m.head = c
	} else {
		m.tip.after = c
	}
	m.tip = c
}

// spliceOrder removes c from the order list, moving head or tip when
// c was an endpoint.
func (m *Map[K, E]) spliceOrder(c *cell[K, E]) {
	if c.before == nil {
		m.head = c.after
	} else {
		c.before.after = c.after
	}
	if c.after == nil {
		m.tip = c.before
	} else {
		c.after.before = c.before
	}
	c.before, c.after = nil, nil
}

// Delete removes key and its associated elem from the map, returning
// the removed elem and true when the key was present.
func (m *Map[K, E]) Delete(key K) (prev E, ok bool) {
	if m == nil || m.count == 0 {
		return prev, false
	}
	m.beginWrite()
	prev, ok = m.remove(key)
	m.endWrite()
	return prev, ok
}

// remove splices key's cell out of its chain and, in linked maps, out
// of the order list in the same operation; leaving either structure
// stale would corrupt lookups or iteration silently. The caller holds
// the write flag.
func (m *Map[K, E]) remove(key K) (prev E, ok bool) {
	i := m.bucketIndex(key)
	var before *cell[K, E]
	for c := m.buckets[i]; c != nil; before, c = c, c.next {
		if !m.equal(key, c.key) {
			continue
		}
		if before == nil {
			m.buckets[i] = c.next
		} else {
			before.next = c.next
		}
		c.next = nil
		if m.stability == Linked {
			m.spliceOrder(c)
		}
		m.count--
		// Reset the hash seed to make it more difficult for attackers
		// to repeatedly trigger hash collisions. See issue 25237.
		if m.count == 0 {
			m.seed = maphash.MakeSeed()
		}
		return c.elem, true
	}
	return prev, false
}

// Clear removes every entry from m. The bucket array keeps its
// capacity.
func (m *Map[K, E]) Clear() {
	if m == nil || m.count == 0 {
		return
	}
	m.beginWrite()
	for i := range m.buckets {
		m.buckets[i] = nil
	}
	m.head, m.tip = nil, nil
	m.count = 0
	m.seed = maphash.MakeSeed()
	m.endWrite()
}

// First returns the oldest live entry of a linked map. For unlinked
// maps it returns the head of the first non-empty bucket, an
// arbitrary entry with no claim to age. The third result is false on
// an empty map.
func (m *Map[K, E]) First() (key K, elem E, ok bool) {
	if m == nil || m.count == 0 {
		return key, elem, false
	}
	if m.stability == Linked {
		return m.head.key, m.head.elem, true
	}
	for _, c := range m.buckets {
		if c != nil {
			return c.key, c.elem, true
		}
	}
	return key, elem, false
}

// Count returns the number of entries satisfying pred. Every live
// entry is visited; there is no short-circuit.
func (m *Map[K, E]) Count(pred func(key K, elem E) bool) int {
	n := 0
	for it := m.Iter(); it.Next(); {
		if pred(it.Key(), it.Elem()) {
			n++
		}
	}
	return n
}

// Each invokes visit once per live entry, in the same order as
// iteration. visit must not mutate the map.
func (m *Map[K, E]) Each(visit func(key K, elem E)) {
	for it := m.Iter(); it.Next(); {
		visit(it.Key(), it.Elem())
	}
}

// maybeGrow consults the policy and rehashes when the load factor is
// crossed. The caller holds the write flag.
func (m *Map[K, E]) maybeGrow() {
	if m.policy.needsRehash(m.count, len(m.buckets)) {
		m.rehash(m.policy.targetCapacity(m.count))
	}
}

// rehash reallocates the bucket array at the new capacity and relinks
// every live cell's chain pointer against it. Cells and their entries
// are reused by reference, never copied, so order list links are
// undisturbed and linked iteration order survives growth.
func (m *Map[K, E]) rehash(capacity int) {
	old := m.buckets
	m.buckets = makeBuckets[K, E](capacity)
	mask := m.bucketMask()
	for _, c := range old {
		for c != nil {
			next := c.next
			i := int(scramble(m.hash(m.seed, c.key)) & mask)
			c.next = m.buckets[i]
			m.buckets[i] = c
			c = next
		}
	}
}

// Clone returns an independently mutable map with the same contents,
// stability, and policy. Keys and elems are shared by reference;
// topology is not. An unlinked clone copies chain topology directly
// with fresh cells; a linked clone rebuilds by sequential insertion,
// which preserves order with fresh cell identities.
func (m *Map[K, E]) Clone() *Map[K, E] {
	if m == nil {
		return nil
	}
	if m.stability == Linked {
		c := NewWithPolicy[K, E](Linked, m.policy, m.count, m.equal, m.hash)
		if m.count == 0 {
			return c
		}
		c.beginWrite()
		for n := m.head; n != nil; n = n.after {
			c.set(n.key, n.elem)
		}
		c.endWrite()
		return c
	}
	c := NewWithPolicy[K, E](Unlinked, m.policy, 0, m.equal, m.hash)
	if m.count == 0 {
		return c
	}
	// The chain copy reproduces m's bucket indexes, so the clone must
	// share m's seed and capacity.
	c.seed = m.seed
	c.count = m.count
	c.buckets = makeBuckets[K, E](len(m.buckets))
	for i, n := range m.buckets {
		tail := &c.buckets[i]
		for ; n != nil; n = n.next {
			cc := &cell[K, E]{key: n.key, elem: n.elem}
			*tail = cc
			tail = &cc.next
		}
	}
	return c
}

// Iterator is instantiated by a call to Iter. It allows iterating
// over a Map.
type Iterator[K, E any] struct {
	key  K
	elem E
	c    *cell[K, E] // next cell in the walk

	// snapshot of the bucket array, driving the unlinked walk
	buckets []*cell[K, E]
	bucket  int
	linked  bool
}

// Key returns the key at the iterator's current position. This is
// only valid after a call to Next() that returns true.
func (it *Iterator[K, E]) Key() K {
	return it.key
}

// Elem returns the element at the iterator's current position. This
// is only valid after a call to Next() that returns true.
func (it *Iterator[K, E]) Elem() E {
	return it.elem
}

// Iter instantiates an Iterator over m's entries, a finite walk fixed
// at the call. Linked maps yield entries in insertion order; unlinked
// maps walk buckets in index order and each chain head to tail.
// Mutating m during the walk is not supported.
func (m *Map[K, E]) Iter() *Iterator[K, E] {
	if m == nil || m.count == 0 {
		return &Iterator[K, E]{}
	}
	if m.stability == Linked {
		return &Iterator[K, E]{linked: true, c: m.head}
	}
	return &Iterator[K, E]{buckets: m.buckets}
}

// Next moves the iterator to the next entry. Next returns false when
// the walk is complete.
func (it *Iterator[K, E]) Next() bool {
	c := it.c
	if !it.linked {
		for c == nil && it.bucket < len(it.buckets) {
			c = it.buckets[it.bucket]
			it.bucket++
		}
	}
	if c == nil {
		var (
			zeroK K
			zeroE E
		)
		it.key, it.elem = zeroK, zeroE
		return false
	}
	it.key, it.elem = c.key, c.elem
	if it.linked {
		it.c = c.after
	} else {
		it.c = c.next
	}
	return true
}
