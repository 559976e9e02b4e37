// Copyright (c) 2024 the linkmap authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linkmap

import (
	"fmt"
	"hash/maphash"
	"strings"

	"golang.org/x/exp/slices"
)

// Equal returns true if the same set of keys and elems are in m1 and
// m2, whatever their stored order. Elements are compared using ==, so
// a key holding a zero elem on one side matches only a present zero
// elem on the other, never an absent key.
func Equal[K any, E comparable](m1, m2 *Map[K, E]) bool {
	return EqualFunc(m1, m2, func(a, b E) bool { return a == b })
}

// EqualFunc is Equal for element types without ==, comparing elems
// with eq.
func EqualFunc[K, E any](m1, m2 *Map[K, E], eq func(E, E) bool) bool {
	if m1.Len() != m2.Len() {
		return false
	}
	for it := m1.Iter(); it.Next(); {
		e2, ok := m2.Get(it.Key())
		if !ok || !eq(it.Elem(), e2) {
			return false
		}
	}
	return true
}

// Replace performs a guarded update: it stores new only when key is
// present in m and its current elem equals old, reporting whether it
// did. A miss on either condition leaves m unchanged.
func Replace[K any, E comparable](m *Map[K, E], key K, old, new E) bool {
	return ReplaceFunc(m, key, old, new, func(a, b E) bool { return a == b })
}

// ReplaceFunc is Replace for element types without ==, comparing the
// current elem to old with eq. The precision of the guard is exactly
// the precision of eq.
func ReplaceFunc[K, E any](m *Map[K, E], key K, old, new E, eq func(E, E) bool) bool {
	m.beginWrite()
	c := m.find(key)
	ok := c != nil && eq(c.elem, old)
	if ok {
		c.elem = new
	}
	m.endWrite()
	return ok
}

// DeleteEntry removes key only when its current elem equals old,
// reporting whether it removed anything.
func DeleteEntry[K any, E comparable](m *Map[K, E], key K, old E) bool {
	return DeleteEntryFunc(m, key, old, func(a, b E) bool { return a == b })
}

// DeleteEntryFunc is DeleteEntry for element types without ==,
// comparing the current elem to old with eq.
func DeleteEntryFunc[K, E any](m *Map[K, E], key K, old E, eq func(E, E) bool) bool {
	if m == nil || m.count == 0 {
		return false
	}
	m.beginWrite()
	c := m.find(key)
	ok := c != nil && eq(c.elem, old)
	if ok {
		m.remove(key)
	}
	m.endWrite()
	return ok
}

// HashFunc returns an order-independent digest of m's contents: the
// sum over live entries of the key hash combined with hashE of the
// elem. Maps holding equal contents produce the same digest under the
// same seed whatever their stored order, so callers comparing digests
// across maps must share a seed rather than rely on each map's
// internal one.
func HashFunc[K, E any](m *Map[K, E], seed maphash.Seed, hashE func(maphash.Seed, E) uint64) uint64 {
	var sum uint64
	for it := m.Iter(); it.Next(); {
		sum += m.hash(seed, it.Key()) ^ hashE(seed, it.Elem())
	}
	return sum
}

// String renders m with fmt formatting of keys and elems.
func (m *Map[K, E]) String() string {
	return StringFunc(m,
		func(key K) string { return fmt.Sprint(key) },
		func(elem E) string { return fmt.Sprint(elem) },
	)
}

// String converts m to a string representation using K's and E's
// String functions.
func String[K fmt.Stringer, E fmt.Stringer](m *Map[K, E]) string {
	return StringFunc(m,
		func(key K) string { return key.String() },
		func(elem E) string { return elem.String() },
	)
}

type strKE struct {
	k string
	e string
}

// StringFunc converts m to a string representation with the help of
// strK and strE functions to stringify m's keys and elems. Entries
// are sorted by rendered key so the result is deterministic for both
// stability modes.
func StringFunc[K any, E any](m *Map[K, E],
	strK func(key K) string,
	strE func(elem E) string) string {
	if m == nil || m.Len() == 0 {
		return "linkmap.Map[]"
	}
	strs := make([]strKE, m.Len())
	s := 0
	i := 0
	for it := m.Iter(); it.Next(); {
		ke := &strs[i]
		ke.k = strK(it.Key())
		ke.e = strE(it.Elem())
		s += len(ke.k) + len(ke.e)
		i++
	}
	slices.SortFunc(strs, func(a, b strKE) bool { return a.k < b.k })

	var b strings.Builder
	b.Grow(len("linkmap.Map[]") + // space for header and footer
		len(strs)*2 - 1 + // space for delimiters
		s) // space for keys and elems
	b.WriteString("linkmap.Map[")
	for i, ke := range strs {
		if i != 0 {
			b.WriteByte(' ')
		}
		b.WriteString(ke.k)
		b.WriteByte(':')
		b.WriteString(ke.e)
	}
	b.WriteByte(']')
	return b.String()
}
