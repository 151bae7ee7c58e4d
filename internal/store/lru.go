package store

const lruNil = -1

type lruNode struct {
	key  string
	prev int32
	next int32
}

// lruIndex keeps every live key on a doubly-linked recency list, most
// recently used first. Nodes live in an arena with prev/next as indices
// and a free list for recycled slots; a side map gives O(1) key lookup.
// Indices 0 and 1 are the head and tail sentinels.
type lruIndex struct {
	nodes []lruNode
	free  []int32
	index map[string]int32
}

func newLRUIndex() *lruIndex {
	l := &lruIndex{index: make(map[string]int32)}
	l.nodes = append(l.nodes,
		lruNode{prev: lruNil, next: 1},
		lruNode{prev: 0, next: lruNil},
	)
	return l
}

func (l *lruIndex) len() int {
	return len(l.index)
}

func (l *lruIndex) unlink(idx int32) {
	n := l.nodes[idx]
	l.nodes[n.prev].next = n.next
	l.nodes[n.next].prev = n.prev
}

func (l *lruIndex) linkFront(idx int32) {
	first := l.nodes[0].next
	l.nodes[idx].prev = 0
	l.nodes[idx].next = first
	l.nodes[first].prev = idx
	l.nodes[0].next = idx
}

// insert adds key at the most-recently-used position. When limit > 0 and
// the list grows past it, the least-recently-used key is unlinked and
// returned; the caller must drop it from the hash table synchronously.
func (l *lruIndex) insert(key string, limit int) (string, bool) {
	var idx int32
	if n := len(l.free); n > 0 {
		idx = l.free[n-1]
		l.free = l.free[:n-1]
		l.nodes[idx] = lruNode{key: key}
	} else {
		l.nodes = append(l.nodes, lruNode{key: key})
		idx = int32(len(l.nodes) - 1)
	}
	l.index[key] = idx
	l.linkFront(idx)

	if limit > 0 && len(l.index) > limit {
		return l.popTail()
	}
	return "", false
}

// touch moves key to the most-recently-used position.
func (l *lruIndex) touch(key string) {
	idx, ok := l.index[key]
	if !ok {
		return
	}
	l.unlink(idx)
	l.linkFront(idx)
}

// remove unlinks key and recycles its slot.
func (l *lruIndex) remove(key string) {
	idx, ok := l.index[key]
	if !ok {
		return
	}
	l.unlink(idx)
	l.nodes[idx] = lruNode{prev: lruNil, next: lruNil}
	l.free = append(l.free, idx)
	delete(l.index, key)
}

// popTail removes and returns the least-recently-used key.
func (l *lruIndex) popTail() (string, bool) {
	idx := l.nodes[1].prev
	if idx == 0 {
		return "", false
	}
	key := l.nodes[idx].key
	l.remove(key)
	return key, true
}
