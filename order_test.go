// Copyright (c) 2024 the linkmap authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linkmap

import (
	"hash/maphash"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newLinkedStr(t *testing.T, kes ...KeyElem[string, int]) *Map[string, int] {
	t.Helper()
	return NewLinked(
		func(a, b string) bool { return a == b },
		maphash.String,
		kes...,
	)
}

func collect[K, E any](m *Map[K, E]) []KeyElem[K, E] {
	var kes []KeyElem[K, E]
	for it := m.Iter(); it.Next(); {
		kes = append(kes, KeyElem[K, E]{it.Key(), it.Elem()})
	}
	return kes
}

func TestInsertionOrder(t *testing.T) {
	m := newLinkedStr(t)
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	// updating in place keeps the order position
	prev, replaced := m.Set("a", 10)
	assert.True(t, replaced)
	assert.Equal(t, 1, prev)
	assert.Equal(t, []KeyElem[string, int]{{"a", 10}, {"b", 2}, {"c", 3}}, collect(m))

	// removal splices the middle of the order list
	v, ok := m.Delete("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, []KeyElem[string, int]{{"a", 10}, {"c", 3}}, collect(m))
	assert.Equal(t, 2, m.Len())

	// remove + reinsert moves the key to the current tail
	m.Delete("a")
	m.Set("a", 99)
	assert.Equal(t, []KeyElem[string, int]{{"c", 3}, {"a", 99}}, collect(m))

	m.checkShape(t)
}

func TestOrderSurvivesChurn(t *testing.T) {
	const n = 200
	m := NewLinked[int, int](intEqual, intHash)
	for i := 0; i < n; i++ {
		m.Set(i, 2*i)
	}
	// overwrite half the entries; growth has happened several times
	// by now and neither disturbs the walk
	for i := 0; i < n; i += 2 {
		m.Set(i, 4*i)
	}
	want := 0
	for it := m.Iter(); it.Next(); {
		assert.Equal(t, want, it.Key())
		want++
	}
	assert.Equal(t, n, want)
	m.checkShape(t)
}

func TestIterRestartable(t *testing.T) {
	m := newLinkedStr(t,
		KeyElem[string, int]{"x", 1},
		KeyElem[string, int]{"y", 2},
	)
	first := collect(m)
	second := collect(m)
	assert.Equal(t, first, second, "each Iter call walks the full sequence again")
}

func TestConditionalReplace(t *testing.T) {
	m := newLinkedStr(t)
	m.Set("a", 10)

	assert.True(t, Replace(m, "a", 10, 99))
	v, _ := m.Get("a")
	assert.Equal(t, 99, v)

	// stale expected value: guard fails, map untouched
	assert.False(t, Replace(m, "a", 10, 5))
	v, _ = m.Get("a")
	assert.Equal(t, 99, v)

	// missing key: guard fails even for the zero value
	assert.False(t, Replace(m, "zz", 0, 1))
	assert.False(t, m.Contains("zz"))
}

func TestConditionalDelete(t *testing.T) {
	m := newLinkedStr(t)
	m.Set("a", 1)
	m.Set("b", 2)

	assert.False(t, DeleteEntry(m, "a", 2), "mismatched elem must not remove")
	assert.True(t, m.Contains("a"))

	assert.True(t, DeleteEntry(m, "a", 1))
	assert.False(t, m.Contains("a"))
	assert.Equal(t, 1, m.Len())

	assert.False(t, DeleteEntry(m, "a", 1), "already removed")

	// the Func variants decide equality exactly as told: 102 matches
	// the stored 2 under mod-100 comparison
	assert.True(t, ReplaceFunc(m, "b", 102, -1,
		func(a, b int) bool { return a%100 == b%100 }))
	v, _ := m.Get("b")
	assert.Equal(t, -1, v)
}

func TestCloneLinked(t *testing.T) {
	m := newLinkedStr(t)
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	c := m.Clone()
	assert.Equal(t, Linked, c.Stability())
	assert.True(t, Equal(m, c))
	// clone identity is content and order equivalence, not shared
	// cells: the order must match entry for entry
	assert.Equal(t, collect(m), collect(c))

	// mutations do not leak in either direction
	c.Set("d", 4)
	c.Set("a", -1)
	assert.False(t, m.Contains("d"))
	va, _ := m.Get("a")
	assert.Equal(t, 1, va)

	m.Delete("b")
	vb, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, vb)

	c.checkShape(t)
	m.checkShape(t)
}

func TestCloneUnlinked(t *testing.T) {
	m := New[int, int](intEqual, intHash)
	for i := 0; i < 100; i++ {
		m.Set(i, i)
	}
	c := m.Clone()
	assert.Equal(t, Unlinked, c.Stability())
	assert.True(t, Equal(m, c))
	assert.Equal(t, m.Len(), c.Len())

	c.Delete(0)
	assert.True(t, m.Contains(0))
	m.Set(1, -1)
	v, _ := c.Get(1)
	assert.Equal(t, 1, v)

	c.checkShape(t)
	m.checkShape(t)
}

func TestCloneEmpty(t *testing.T) {
	m := newLinkedStr(t)
	c := m.Clone()
	assert.True(t, c.Empty())
	c.Set("a", 1)
	assert.True(t, m.Empty())
}

func TestRoundTrip(t *testing.T) {
	m := newLinkedStr(t)
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)
	m.Delete("b")
	m.Set("b", 20)

	fresh := newLinkedStr(t)
	fresh.SetAll(collect(m)...)
	assert.True(t, Equal(m, fresh))
	assert.Equal(t, collect(m), collect(fresh))
}

func TestHashFunc(t *testing.T) {
	seed := maphash.MakeSeed()
	hashE := func(s maphash.Seed, e int) uint64 { return intHash(s, e) }

	a := newLinkedStr(t)
	a.Set("x", 1)
	a.Set("y", 2)
	a.Set("z", 3)

	// same contents inserted in a different order, into a map with a
	// different internal seed and stability
	b := New(
		func(a, b string) bool { return a == b },
		maphash.String,
		KeyElem[string, int]{"z", 3},
		KeyElem[string, int]{"x", 1},
		KeyElem[string, int]{"y", 2},
	)
	assert.Equal(t, HashFunc(a, seed, hashE), HashFunc(b, seed, hashE))

	b.Set("y", -2)
	assert.NotEqual(t, HashFunc(a, seed, hashE), HashFunc(b, seed, hashE))

	empty := newLinkedStr(t)
	assert.Zero(t, HashFunc(empty, seed, hashE))
}
