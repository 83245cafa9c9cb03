package mapper

import (
	"sort"
	"sync"
)

// Match is one realized correspondence: the original input index of the
// matched point and the original input index of the point whose query found
// it.
type Match struct {
	InputIdx    int
	QuerySrcIdx int
}

// Group is a snapshot of one offset's match list.
type Group struct {
	OffsetIdx int
	Matches   []Match
}

// KernelMap maps a kernel-offset index to the ordered list of matches
// realized by that offset. Within one offset's list, matches appear in
// discovery order, which under concurrent lookup is scheduling-dependent.
// Append is safe for concurrent use; the lock is held only for a single
// list append.
type KernelMap struct {
	mu     sync.Mutex
	groups map[int][]Match
}

// NewKernelMap creates an empty kernel map.
func NewKernelMap() *KernelMap {
	return &KernelMap{groups: make(map[int][]Match)}
}

// Append adds a match to the given offset's list.
func (m *KernelMap) Append(offsetIdx int, match Match) {
	m.mu.Lock()
	m.groups[offsetIdx] = append(m.groups[offsetIdx], match)
	m.mu.Unlock()
}

// Matches returns a copy of one offset's match list.
func (m *KernelMap) Matches(offsetIdx int) []Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.groups[offsetIdx]
	out := make([]Match, len(src))
	copy(out, src)
	return out
}

// TotalMatches returns the sum of all list lengths.
func (m *KernelMap) TotalMatches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, g := range m.groups {
		total += len(g)
	}
	return total
}

// SortedGroups returns a snapshot of all groups ordered by descending match
// count. Equal-length groups are ordered by ascending offset index, so the
// output order is deterministic for a fixed map.
func (m *KernelMap) SortedGroups() []Group {
	m.mu.Lock()
	out := make([]Group, 0, len(m.groups))
	for idx, matches := range m.groups {
		g := Group{OffsetIdx: idx, Matches: make([]Match, len(matches))}
		copy(g.Matches, matches)
		out = append(out, g)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Matches) != len(out[j].Matches) {
			return len(out[i].Matches) > len(out[j].Matches)
		}
		return out[i].OffsetIdx < out[j].OffsetIdx
	})
	return out
}
