package skiplist

// SortedSet pairs the skip list with a member→score map so membership
// checks and score lookups are O(1). Members are unique: re-adding an
// existing member moves it to its new score instead of duplicating it.
type SortedSet struct {
	list    *List
	members map[string]float64
}

// NewSortedSet creates an empty sorted set.
func NewSortedSet() *SortedSet {
	return &SortedSet{
		list:    New(),
		members: make(map[string]float64),
	}
}

// Len returns the number of members.
func (s *SortedSet) Len() int {
	return s.list.Len()
}

// Score returns the member's score, if present.
func (s *SortedSet) Score(member string) (float64, bool) {
	score, ok := s.members[member]
	return score, ok
}

// Add inserts a member or updates its score. An update removes the old
// (score, member) pair and reinserts at the new position.
func (s *SortedSet) Add(member string, score float64) {
	if old, ok := s.members[member]; ok {
		if old == score {
			return
		}
		s.list.Remove(member, old)
	}
	s.list.Insert(member, score)
	s.members[member] = score
}

// Remove deletes a member. Returns false if the member is absent.
func (s *SortedSet) Remove(member string) bool {
	score, ok := s.members[member]
	if !ok {
		return false
	}
	s.list.Remove(member, score)
	delete(s.members, member)
	return true
}

// Rank returns the member's 0-based position in ascending (score, member)
// order, if present.
func (s *SortedSet) Rank(member string) (int, bool) {
	score, ok := s.members[member]
	if !ok {
		return 0, false
	}
	return s.list.Rank(member, score)
}

// RangeByScore returns members with start <= score <= end in ascending
// (score, member) order.
func (s *SortedSet) RangeByScore(start, end float64) []Element {
	return s.list.RangeByScore(start, end)
}
