package store

import "testing"

func TestLRUInsertAndEvict(t *testing.T) {
	l := newLRUIndex()

	for _, k := range []string{"a", "b", "c"} {
		if evicted, ok := l.insert(k, 3); ok {
			t.Errorf("unexpected eviction of %q under capacity", evicted)
		}
	}

	evicted, ok := l.insert("d", 3)
	if !ok || evicted != "a" {
		t.Errorf("evicted %q, %v; want a, true", evicted, ok)
	}
	if l.len() != 3 {
		t.Errorf("len = %d, want 3", l.len())
	}
}

func TestLRUTouchReordersEviction(t *testing.T) {
	l := newLRUIndex()
	l.insert("a", 3)
	l.insert("b", 3)
	l.insert("c", 3)

	l.touch("a") // now b is least recently used

	evicted, ok := l.insert("d", 3)
	if !ok || evicted != "b" {
		t.Errorf("evicted %q, %v; want b, true", evicted, ok)
	}
}

func TestLRURemove(t *testing.T) {
	l := newLRUIndex()
	l.insert("a", 0)
	l.insert("b", 0)
	l.remove("a")

	if l.len() != 1 {
		t.Errorf("len = %d after remove, want 1", l.len())
	}
	key, ok := l.popTail()
	if !ok || key != "b" {
		t.Errorf("popTail = %q, %v; want b, true", key, ok)
	}
	if _, ok := l.popTail(); ok {
		t.Error("popTail on empty list reported a key")
	}
}

func TestLRUUnlimitedInsert(t *testing.T) {
	l := newLRUIndex()
	for i := 0; i < 100; i++ {
		if _, ok := l.insert(string(rune('a'+i%26))+string(rune('0'+i/26)), 0); ok {
			t.Fatal("eviction with limit 0")
		}
	}
	if l.len() != 100 {
		t.Errorf("len = %d, want 100", l.len())
	}
}

func TestLRUSlotReuse(t *testing.T) {
	l := newLRUIndex()
	l.insert("a", 0)
	l.insert("b", 0)
	l.remove("a")
	arenaLen := len(l.nodes)
	l.insert("c", 0)
	if len(l.nodes) != arenaLen {
		t.Errorf("arena grew from %d to %d despite a free slot", arenaLen, len(l.nodes))
	}
}
