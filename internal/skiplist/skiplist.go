// Package skiplist provides the ordered-set index: a probabilistic
// multi-level list over (score, member) pairs with expected O(log n)
// insert, remove and rank.
//
// Nodes live in an arena and reference each other by index rather than
// by pointer. Each node carries fixed-capacity forward and span arrays,
// and removed slots are recycled through a free list, so deletion is a
// matter of resplicing indices instead of chasing pointer chains.
package skiplist

const (
	maxHeight = 16
	nilIdx    = -1
)

// Element is one (member, score) pair in ascending order.
type Element struct {
	Member string
	Score  float64
}

type node struct {
	member string
	score  float64
	next   [maxHeight]int32
	// span[i] is the number of level-0 steps covered by next[i].
	span [maxHeight]int32
}

// List is the skip list proper. Ordering key is (score, member) with the
// member as lexicographic tie-break, so the order is strictly total and
// duplicate keys cannot occur.
type List struct {
	arena  []node
	free   []int32
	level  int
	length int
	rng    uint64
}

// New creates an empty list. Index 0 of the arena is the head sentinel.
func New() *List {
	l := &List{
		arena: make([]node, 1),
		level: 1,
		rng:   1,
	}
	head := &l.arena[0]
	for i := range head.next {
		head.next[i] = nilIdx
	}
	return l
}

// Len returns the number of elements.
func (l *List) Len() int {
	return l.length
}

// randomLevel draws a height in [1, maxHeight] from a geometric
// distribution with p = 1/4, using an xorshift64 generator.
func (l *List) randomLevel() int {
	lvl := 1
	for lvl < maxHeight {
		l.rng ^= l.rng << 13
		l.rng ^= l.rng >> 7
		l.rng ^= l.rng << 17
		if l.rng&0xFFFF >= 0x4000 {
			break
		}
		lvl++
	}
	return lvl
}

// less reports whether node at idx orders before (score, member).
func (l *List) less(idx int32, score float64, member string) bool {
	n := &l.arena[idx]
	return n.score < score || (n.score == score && n.member < member)
}

func (l *List) alloc(member string, score float64) int32 {
	if n := len(l.free); n > 0 {
		idx := l.free[n-1]
		l.free = l.free[:n-1]
		l.arena[idx] = node{member: member, score: score}
		return idx
	}
	l.arena = append(l.arena, node{member: member, score: score})
	return int32(len(l.arena) - 1)
}

// Insert adds a (score, member) pair. The caller must ensure the member
// is not already present; SortedSet handles update-in-place by removing
// the old pair first.
func (l *List) Insert(member string, score float64) {
	var update [maxHeight]int32
	var rank [maxHeight]int

	x := int32(0)
	for i := l.level - 1; i >= 0; i-- {
		if i == l.level-1 {
			rank[i] = 0
		} else {
			rank[i] = rank[i+1]
		}
		for l.arena[x].next[i] != nilIdx && l.less(l.arena[x].next[i], score, member) {
			rank[i] += int(l.arena[x].span[i])
			x = l.arena[x].next[i]
		}
		update[i] = x
	}

	lvl := l.randomLevel()
	if lvl > l.level {
		for i := l.level; i < lvl; i++ {
			rank[i] = 0
			update[i] = 0
			l.arena[0].span[i] = int32(l.length)
		}
		l.level = lvl
	}

	idx := l.alloc(member, score)
	for i := 0; i < lvl; i++ {
		l.arena[idx].next[i] = l.arena[update[i]].next[i]
		l.arena[update[i]].next[i] = idx

		l.arena[idx].span[i] = l.arena[update[i]].span[i] - int32(rank[0]-rank[i])
		l.arena[update[i]].span[i] = int32(rank[0]-rank[i]) + 1
	}
	for i := lvl; i < l.level; i++ {
		l.arena[update[i]].span[i]++
	}
	l.length++
}

// Remove unsplices the exact (score, member) pair. Returns false if the
// pair is not present.
func (l *List) Remove(member string, score float64) bool {
	var update [maxHeight]int32

	x := int32(0)
	for i := l.level - 1; i >= 0; i-- {
		for l.arena[x].next[i] != nilIdx && l.less(l.arena[x].next[i], score, member) {
			x = l.arena[x].next[i]
		}
		update[i] = x
	}

	target := l.arena[x].next[0]
	if target == nilIdx || l.arena[target].score != score || l.arena[target].member != member {
		return false
	}

	for i := 0; i < l.level; i++ {
		if l.arena[update[i]].next[i] == target {
			l.arena[update[i]].span[i] += l.arena[target].span[i] - 1
			l.arena[update[i]].next[i] = l.arena[target].next[i]
		} else {
			l.arena[update[i]].span[i]--
		}
	}
	for l.level > 1 && l.arena[0].next[l.level-1] == nilIdx {
		l.level--
	}

	l.arena[target] = node{}
	for i := range l.arena[target].next {
		l.arena[target].next[i] = nilIdx
	}
	l.free = append(l.free, target)
	l.length--
	return true
}

// Rank returns the 0-based position of the exact (score, member) pair in
// ascending order. The spans accumulated while descending make this a
// single O(log n) pass instead of a level-0 scan.
func (l *List) Rank(member string, score float64) (int, bool) {
	rank := 0
	x := int32(0)
	for i := l.level - 1; i >= 0; i-- {
		for l.arena[x].next[i] != nilIdx {
			n := &l.arena[l.arena[x].next[i]]
			if n.score < score || (n.score == score && n.member <= member) {
				rank += int(l.arena[x].span[i])
				x = l.arena[x].next[i]
			} else {
				break
			}
		}
		if x != 0 && l.arena[x].member == member && l.arena[x].score == score {
			return rank - 1, true
		}
	}
	return 0, false
}

// RangeByScore returns all elements with start <= score <= end, both
// bounds inclusive, in ascending (score, member) order.
func (l *List) RangeByScore(start, end float64) []Element {
	x := int32(0)
	for i := l.level - 1; i >= 0; i-- {
		for l.arena[x].next[i] != nilIdx && l.arena[l.arena[x].next[i]].score < start {
			x = l.arena[x].next[i]
		}
	}

	var result []Element
	for idx := l.arena[x].next[0]; idx != nilIdx; idx = l.arena[idx].next[0] {
		n := &l.arena[idx]
		if n.score > end {
			break
		}
		result = append(result, Element{Member: n.member, Score: n.score})
	}
	return result
}
