package keyhist

import (
	"os"
	"path/filepath"
	"testing"
)

// writeFiles creates each file (relative to dir) with the given content,
// making parent directories as needed.
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

// newSampleSets builds an overwrite-policy mapping from label/values pairs.
func newSampleSets(t *testing.T, sets ...SampleSet) *SampleSets {
	t.Helper()
	s := NewSampleSets(DuplicateOverwrite)
	for _, set := range sets {
		if _, err := s.Put(set); err != nil {
			t.Fatalf("Put(%s): %v", set.Label, err)
		}
	}
	return s
}

// distinctSets returns n sample sets labelled D0, D1, ... each with a small
// spread of values.
func distinctSets(n int) []SampleSet {
	sets := make([]SampleSet, n)
	for i := range sets {
		sets[i] = SampleSet{
			Label:  "D" + string(rune('0'+i)),
			Values: []float64{float64(i), float64(i) + 1, float64(i) + 2},
		}
	}
	return sets
}
