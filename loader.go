package keyhist

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Finds the keypoint files under Root and parses each one into a SampleSet.
type Loader struct {
	// Directory searched recursively. Defaults to DefaultInputDir.
	Root string

	// Base name pattern of the input files. Defaults to DefaultInputPattern.
	Pattern string

	Format     Format
	Duplicates DuplicatePolicy
}

func NewLoader(root string) *Loader {
	return &Loader{
		Root:    root,
		Pattern: DefaultInputPattern,
	}
}

// Any error aborts the whole load.
func (l *Loader) Load(ctx context.Context) (*SampleSets, error) {
	root := l.Root
	if root == "" {
		root = DefaultInputDir
	}

	pattern := l.Pattern
	if pattern == "" {
		pattern = DefaultInputPattern
	}

	logger := logrus.WithFields(logrus.Fields{
		"tag":     "Loader",
		"root":    root,
		"pattern": pattern,
	})

	files, err := FindInputFiles(root, pattern)
	if err != nil {
		return nil, err
	}

	logger.WithField("numFiles", len(files)).Debug("found input files")

	sets := NewSampleSets(l.Duplicates)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		values, err := l.loadFile(ctx, path)
		if err != nil {
			return nil, err
		}

		set := SampleSet{
			Label:  DetectorLabel(path),
			Path:   path,
			Values: values,
		}

		replaced, err := sets.Put(set)
		if err != nil {
			return nil, err
		}

		fileLogger := logger.WithFields(logrus.Fields{
			"file":      path,
			"label":     set.Label,
			"numValues": len(values),
		})
		if replaced {
			fileLogger.Warn("detector label seen before, replacing earlier data")
		} else {
			fileLogger.Info("loaded keypoint file")
		}
	}

	return sets, nil
}

func (l *Loader) loadFile(ctx context.Context, path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	values, err := ReadSamples(ctx, NewStringReader(l.Format, f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return values, nil
}
