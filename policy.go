// Copyright (c) 2024 the linkmap authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linkmap

import "math/bits"

// Policy controls bucket array sizing. It is a pure value consulted
// by the map after insertions; it holds no state of its own. Every
// capacity it produces is a power of two, which the map relies on to
// mask hashes into bucket indexes.
//
// Growth triggers when size > capacity*LoadNum/LoadDen. The ratio is
// kept as two integers so the load test stays in integer math.
type Policy struct {
	Initial int // starting slot count when the element count is unknown
	Growth  int // capacity multiplier applied when growth triggers
	LoadNum uint64
	LoadDen uint64
}

// DefaultPolicy is the classic 3/4 load factor with doubling growth.
var DefaultPolicy = Policy{Initial: 16, Growth: 2, LoadNum: 3, LoadDen: 4}

// normalized returns p with zero or nonsense fields replaced by the
// defaults, so a partially filled Policy literal still behaves.
func (p Policy) normalized() Policy {
	if p.Initial <= 0 {
		p.Initial = DefaultPolicy.Initial
	}
	if p.Growth < 2 {
		p.Growth = DefaultPolicy.Growth
	}
	if p.LoadNum == 0 || p.LoadDen == 0 || p.LoadNum > p.LoadDen {
		p.LoadNum, p.LoadDen = DefaultPolicy.LoadNum, DefaultPolicy.LoadDen
	}
	return p
}

// initialCapacity returns the smallest power-of-two slot count that
// holds hint entries without an early rehash. A hint <= 0 means the
// element count cannot be predicted and the configured starting
// capacity is used instead.
func (p Policy) initialCapacity(hint int) int {
	if hint <= 0 {
		return nextPow2(p.Initial)
	}
	n := nextPow2(hint)
	for p.needsRehash(hint, n) {
		n *= 2
	}
	return n
}

// targetCapacity returns the slot count to grow to for a map
// currently holding length entries. The result always passes
// needsRehash, so a single growth step suffices even after a bulk
// insert added many entries at once.
func (p Policy) targetCapacity(length int) int {
	c := nextPow2(length * p.Growth)
	for p.needsRehash(length, c) {
		c *= 2
	}
	return c
}

// needsRehash reports whether length entries in capacity slots exceed
// the configured load factor.
func (p Policy) needsRehash(length, capacity int) bool {
	return uint64(length)*p.LoadDen > uint64(capacity)*p.LoadNum
}

// nextPow2 returns the smallest power of two >= n. The result for
// n <= 1 is 1.
func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
