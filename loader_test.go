package keyhist

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoader(t *testing.T) {
	t.Run("SingleFile", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{
			"A_keypoints.csv": "1.0\n2.0\n3.0\n",
		})

		sets, err := NewLoader(dir).Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := sets.Labels(); !reflect.DeepEqual(got, []string{"A"}) {
			t.Fatalf("unexpected labels: %v", got)
		}

		set, _ := sets.Get("A")
		if !reflect.DeepEqual(set.Values, []float64{1, 2, 3}) {
			t.Fatalf("unexpected values: %v", set.Values)
		}
		if set.Path != filepath.Join(dir, "A_keypoints.csv") {
			t.Fatalf("unexpected path: %s", set.Path)
		}
	})

	t.Run("DuplicateLabelLastWriteWins", func(t *testing.T) {
		dir := t.TempDir()
		// X_keypoints.csv sorts before X_other_keypoints.csv, so the latter
		// is processed last.
		writeFiles(t, dir, map[string]string{
			"X_keypoints.csv":       "1\n2\n",
			"X_other_keypoints.csv": "7\n8\n9\n",
		})

		sets, err := NewLoader(dir).Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sets.Len() != 1 {
			t.Fatalf("expected exactly one entry, got %v", sets.Labels())
		}

		set, _ := sets.Get("X")
		if !reflect.DeepEqual(set.Values, []float64{7, 8, 9}) {
			t.Fatalf("expected data of the later file, got %v", set.Values)
		}
	})

	t.Run("DuplicateLabelRejected", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{
			"X_keypoints.csv":       "1\n",
			"X_other_keypoints.csv": "2\n",
		})

		loader := NewLoader(dir)
		loader.Duplicates = DuplicateReject
		_, err := loader.Load(context.Background())
		if !errors.Is(err, ErrDuplicateLabel) {
			t.Fatalf("expected ErrDuplicateLabel, got %v", err)
		}
	})

	t.Run("NoFiles", func(t *testing.T) {
		sets, err := NewLoader(t.TempDir()).Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sets.Len() != 0 {
			t.Fatalf("expected no sets, got %v", sets.Labels())
		}
	})

	t.Run("ParseErrorNamesFile", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{
			"FAST_keypoints.csv": "1\n2\n",
			"ORB_keypoints.csv":  "1\nnot-a-number\n",
		})

		_, err := NewLoader(dir).Load(context.Background())
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("expected *ParseError, got %v", err)
		}
		if parseErr.Line != 2 {
			t.Fatalf("unexpected line: %d", parseErr.Line)
		}
		if !strings.Contains(err.Error(), "ORB_keypoints.csv") {
			t.Fatalf("error should name the file: %v", err)
		}
	})

	t.Run("MissingDirectory", func(t *testing.T) {
		_, err := NewLoader(filepath.Join(t.TempDir(), "missing")).Load(context.Background())
		if err == nil {
			t.Fatal("expected an error for a missing directory")
		}
	})

	t.Run("CsvFormat", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{
			"BRISK_keypoints.csv": "1,2\n3\n",
		})

		loader := NewLoader(dir)
		loader.Format = FormatCSV
		sets, err := loader.Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		set, _ := sets.Get("BRISK")
		if !reflect.DeepEqual(set.Values, []float64{1, 2, 3}) {
			t.Fatalf("unexpected values: %v", set.Values)
		}
	})

	t.Run("CustomPattern", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{
			"FAST_keypoints.csv": "1\n",
			"FAST_sizes.txt":     "5\n",
		})

		loader := NewLoader(dir)
		loader.Pattern = "*_sizes.txt"
		sets, err := loader.Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		set, _ := sets.Get("FAST")
		if !reflect.DeepEqual(set.Values, []float64{5}) {
			t.Fatalf("unexpected values: %v", set.Values)
		}
	})

	t.Run("CanceledContext", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"A_keypoints.csv": "1\n"})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewLoader(dir).Load(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}
