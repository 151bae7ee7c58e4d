// Package store implements the unified key space: one hash table whose
// values are either strings or sorted sets, bounded by an LRU-evicting
// capacity limit and journaled through an append-only log.
//
// The store is not locked. All mutation happens on the server's event
// loop goroutine, which makes every command atomic with respect to other
// clients by construction. The metrics counters are atomic so the admin
// surface can read them from other goroutines.
package store

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/dhrubo326/imds/internal/kverr"
	"github.com/dhrubo326/imds/internal/skiplist"
)

// Appender journals one mutating command before it is applied in memory.
// A failed append aborts the mutation.
type Appender interface {
	Append(args []string) error
}

// Metrics is a point-in-time snapshot of store counters.
type Metrics struct {
	Keys      int64 `json:"keys"`
	Reads     int64 `json:"reads"`
	Writes    int64 `json:"writes"`
	Deletes   int64 `json:"deletes"`
	Evictions int64 `json:"evictions"`
}

// Store owns the hash table and the LRU index. Invariants: every key in
// the table has exactly one LRU node and vice versa, and outside of
// recovery the table never holds more than capacity keys.
type Store struct {
	capacity  int
	table     map[string]Value
	lru       *lruIndex
	log       Appender
	restoring bool

	keys      atomic.Int64
	reads     atomic.Int64
	writes    atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64
}

// New creates an empty store bounded to capacity keys. A capacity of 0
// disables eviction.
func New(capacity int) *Store {
	return &Store{
		capacity: capacity,
		table:    make(map[string]Value),
		lru:      newLRUIndex(),
	}
}

// AttachLog sets the append-only log. Mutations performed before a log is
// attached (i.e. during recovery) are not journaled.
func (s *Store) AttachLog(log Appender) {
	s.log = log
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	return len(s.table)
}

// Metrics returns a snapshot of the store counters.
func (s *Store) Metrics() Metrics {
	return Metrics{
		Keys:      s.keys.Load(),
		Reads:     s.reads.Load(),
		Writes:    s.writes.Load(),
		Deletes:   s.deletes.Load(),
		Evictions: s.evictions.Load(),
	}
}

// append journals a mutating command. Called after validation and before
// the in-memory apply, so a crash between the two is repaired by replay
// and a failed append leaves the store untouched.
func (s *Store) append(args ...string) error {
	if s.log == nil {
		return nil
	}
	if err := s.log.Append(args); err != nil {
		return kverr.Internal("append to log failed", err)
	}
	return nil
}

// insertNew adds a key that is not yet present, honoring the LRU eviction
// signal synchronously so capacity is never exceeded, not even transiently
// past the end of the command. Capacity is not enforced during recovery.
func (s *Store) insertNew(key string, v Value) {
	s.table[key] = v
	s.keys.Add(1)

	limit := s.capacity
	if s.restoring {
		limit = 0
	}
	if evicted, ok := s.lru.insert(key, limit); ok {
		delete(s.table, evicted)
		s.keys.Add(-1)
		s.evictions.Add(1)
	}
}

func (s *Store) dropKey(key string) {
	delete(s.table, key)
	s.lru.remove(key)
	s.keys.Add(-1)
}

// Get returns the string payload stored at key.
func (s *Store) Get(key string) (string, error) {
	v, ok := s.table[key]
	if !ok {
		return "", kverr.NotFound("key " + key)
	}
	s.lru.touch(key)
	switch v.Kind {
	case KindString:
		s.reads.Add(1)
		return v.Str, nil
	case KindSortedSet:
		return "", kverr.WrongType("GET on " + v.Kind.String() + " value")
	default:
		return "", kverr.Internal("corrupt value kind", nil)
	}
}

// Set upserts a string value at key, replacing the slot regardless of the
// prior value kind.
func (s *Store) Set(key, value string) error {
	if err := s.append("SET", key, value); err != nil {
		return err
	}
	if _, ok := s.table[key]; ok {
		s.table[key] = StringValue(value)
		s.lru.touch(key)
	} else {
		s.insertNew(key, StringValue(value))
	}
	s.writes.Add(1)
	return nil
}

// Del removes key entirely, whatever kind of value it holds.
func (s *Store) Del(key string) error {
	if _, ok := s.table[key]; !ok {
		return kverr.NotFound("key " + key)
	}
	if err := s.append("DEL", key); err != nil {
		return err
	}
	s.dropKey(key)
	s.deletes.Add(1)
	return nil
}

// ZAdd inserts member into the sorted set at key, creating the set if the
// key is absent and updating the member's score in place if it exists.
func (s *Store) ZAdd(key string, score float64, member string) error {
	v, ok := s.table[key]
	stale := false
	if ok {
		s.lru.touch(key)
		if v.Kind != KindSortedSet {
			if !s.restoring {
				return kverr.WrongType("ZADD on " + v.Kind.String() + " value")
			}
			// Replay keeps evicted keys alive, so a journaled ZADD can land
			// on a string slot that a live server would have rejected. The
			// record proves the string was evicted before the ZADD ran; the
			// record wins over the stale slot.
			stale = true
		}
	}
	if err := s.append("ZADD", key, formatScore(score), member); err != nil {
		return err
	}
	switch {
	case stale:
		set := skiplist.NewSortedSet()
		set.Add(member, score)
		s.table[key] = SortedSetValue(set)
	case ok:
		v.Set.Add(member, score)
	default:
		set := skiplist.NewSortedSet()
		set.Add(member, score)
		s.insertNew(key, SortedSetValue(set))
	}
	s.writes.Add(1)
	return nil
}

// ZRange returns members of the sorted set at key with
// start <= score <= end, ascending. An absent key yields an empty result.
func (s *Store) ZRange(key string, start, end float64) ([]skiplist.Element, error) {
	v, ok := s.table[key]
	if !ok {
		return nil, nil
	}
	s.lru.touch(key)
	if v.Kind != KindSortedSet {
		return nil, kverr.WrongType("ZRANGE on " + v.Kind.String() + " value")
	}
	s.reads.Add(1)
	return v.Set.RangeByScore(start, end), nil
}

// ZRank returns member's 0-based rank in ascending (score, member) order.
func (s *Store) ZRank(key, member string) (int, error) {
	v, ok := s.table[key]
	if !ok {
		return 0, kverr.NotFound("key " + key)
	}
	s.lru.touch(key)
	if v.Kind != KindSortedSet {
		return 0, kverr.WrongType("ZRANK on " + v.Kind.String() + " value")
	}
	rank, ok := v.Set.Rank(member)
	if !ok {
		return 0, kverr.NotFound("member " + member)
	}
	s.reads.Add(1)
	return rank, nil
}

// ZRem removes member from the sorted set at key. Members are unique, so
// removal is keyed by member alone; the score token is part of the wire
// command and the journal record but does not select the node. A set left
// empty is dropped from the key space entirely.
func (s *Store) ZRem(key string, score float64, member string) error {
	v, ok := s.table[key]
	if !ok {
		return kverr.NotFound("key " + key)
	}
	s.lru.touch(key)
	if v.Kind != KindSortedSet {
		return kverr.WrongType("ZREM on " + v.Kind.String() + " value")
	}
	if _, ok := v.Set.Score(member); !ok {
		return kverr.NotFound("member " + member)
	}
	if err := s.append("ZREM", key, formatScore(score), member); err != nil {
		return err
	}
	v.Set.Remove(member)
	if v.Set.Len() == 0 {
		s.dropKey(key)
	}
	s.deletes.Add(1)
	return nil
}

// ApplyRecord replays one journaled write command against the store.
// Capacity is not enforced while applying; FinishRestore trims the excess
// once the whole log has been consumed.
func (s *Store) ApplyRecord(args []string) error {
	if len(args) == 0 {
		return kverr.BadArguments("empty record")
	}
	s.restoring = true
	defer func() { s.restoring = false }()

	switch strings.ToLower(args[0]) {
	case "set":
		if len(args) != 3 {
			return kverr.BadArguments("SET record needs key and value")
		}
		return s.Set(args[1], args[2])
	case "del":
		if len(args) != 2 {
			return kverr.BadArguments("DEL record needs key")
		}
		return s.Del(args[1])
	case "zadd":
		if len(args) != 4 {
			return kverr.BadArguments("ZADD record needs key, score and member")
		}
		score, err := ParseScore(args[2])
		if err != nil {
			return err
		}
		return s.ZAdd(args[1], score, args[3])
	case "zrem":
		if len(args) != 4 {
			return kverr.BadArguments("ZREM record needs key, score and member")
		}
		score, err := ParseScore(args[2])
		if err != nil {
			return err
		}
		return s.ZRem(args[1], score, args[3])
	default:
		return kverr.BadArguments("unknown record " + args[0])
	}
}

// FinishRestore re-establishes the capacity invariant after replay by
// evicting from the LRU tail (replay order stands in for recency), then
// attaches the log for normal operation. Returns the number of keys
// trimmed.
func (s *Store) FinishRestore(log Appender) int {
	trimmed := 0
	for s.capacity > 0 && len(s.table) > s.capacity {
		key, ok := s.lru.popTail()
		if !ok {
			break
		}
		delete(s.table, key)
		s.keys.Add(-1)
		s.evictions.Add(1)
		trimmed++
	}
	s.log = log
	return trimmed
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'g', -1, 64)
}

// ParseScore parses a score token from the wire.
func ParseScore(token string) (float64, error) {
	score, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, kverr.BadArguments("score must be a number")
	}
	return score, nil
}
