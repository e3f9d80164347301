package keyhist

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
)

var ErrDuplicateLabel = errors.New("duplicate detector label")

// The keypoint values loaded from one input file.
type SampleSet struct {
	Label  string
	Path   string
	Values []float64
}

// What SampleSets.Put does when a label is already present.
type DuplicatePolicy int

const (
	// The later set replaces the earlier one but keeps its position.
	DuplicateOverwrite DuplicatePolicy = iota
	// Put fails with ErrDuplicateLabel.
	DuplicateReject
)

// An insertion ordered mapping from detector label to sample set.
type SampleSets struct {
	policy DuplicatePolicy
	order  []string
	sets   map[string]SampleSet
}

func NewSampleSets(policy DuplicatePolicy) *SampleSets {
	return &SampleSets{
		policy: policy,
		order:  make([]string, 0),
		sets:   make(map[string]SampleSet),
	}
}

// Returns true if the set replaced an existing one.
func (s *SampleSets) Put(set SampleSet) (bool, error) {
	previous, exists := s.sets[set.Label]
	if exists && s.policy == DuplicateReject {
		return false, fmt.Errorf("%w: %q from %s and %s", ErrDuplicateLabel, set.Label, previous.Path, set.Path)
	}

	if !exists {
		s.order = append(s.order, set.Label)
	}
	s.sets[set.Label] = set

	return exists, nil
}

func (s *SampleSets) Get(label string) (SampleSet, bool) {
	set, ok := s.sets[label]
	return set, ok
}

// The position of label in insertion order, or -1.
func (s *SampleSets) Index(label string) int {
	return slices.Index(s.order, label)
}

func (s *SampleSets) Labels() []string {
	return slices.Clone(s.order)
}

func (s *SampleSets) Len() int {
	return len(s.order)
}

// All sets in insertion order.
func (s *SampleSets) Sets() []SampleSet {
	sets := make([]SampleSet, 0, len(s.order))
	for _, label := range s.order {
		sets = append(sets, s.sets[label])
	}
	return sets
}
