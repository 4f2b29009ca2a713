package harvest

// SeenSet tracks entity ids already handled during one harvest run. It is
// scoped to the run and thrown away afterwards. Not safe for concurrent
// use: marks must happen in the completion-draining loop, never inside
// concurrently-running fetch bodies.
type SeenSet struct {
	seen map[string]struct{}
}

// NewSeenSet creates an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{seen: make(map[string]struct{})}
}

// MarkIfNew records the id if it has not been seen before and returns
// true. Empty ids are never new.
func (s *SeenSet) MarkIfNew(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

// Len reports how many ids have been marked.
func (s *SeenSet) Len() int {
	return len(s.seen)
}
