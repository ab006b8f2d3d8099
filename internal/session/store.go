package session

import (
	"sort"
	"sync"

	"github.com/flagpole/c2/internal/contest"
)

// Store holds the latest known state of every node for live observers. The
// coordinator writes it; status feeds read it. Final results never come from
// here, they are read from the monitors after the join barrier.
type Store struct {
	mu       sync.RWMutex
	nodes    map[string]*NodeState
	nextLane int
}

func NewStore() *Store {
	return &Store{
		nodes: make(map[string]*NodeState),
	}
}

func (s *Store) Get(id string) (*NodeState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.nodes[id]
	if !ok {
		return nil, false
	}
	return st.Clone(), true
}

// GetAll returns copies of every node ordered by lane.
func (s *Store) GetAll() []*NodeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*NodeState, 0, len(s.nodes))
	for _, st := range s.nodes {
		result = append(result, st.Clone())
	}
	return SortByLane(result)
}

// SortByLane orders nodes by lane in place and returns them.
func SortByLane(nodes []*NodeState) []*NodeState {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Lane < nodes[j].Lane })
	return nodes
}

// Update records a node snapshot. A node keeps the lane it was first given.
func (s *Store) Update(nt contest.NodeTimes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lane := s.nextLane
	if existing, ok := s.nodes[nt.ID]; ok {
		lane = existing.Lane
	} else {
		s.nextLane++
	}
	st := &NodeState{NodeTimes: nt, Lane: lane}
	s.nodes[nt.ID] = st.Clone()
}

func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
}

// ActiveCount returns the number of nodes still running.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, st := range s.nodes {
		if st.Running {
			count++
		}
	}
	return count
}
