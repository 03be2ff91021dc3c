package dataset

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/nerkit/biospans/internal/files"
	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
	"k8s.io/klog/v2"
)

// SplitFile names a split of the dataset and the file, relative to the dataset directory, holding it.
type SplitFile struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

// Split is a loaded split of the dataset.
type Split struct {
	Name      string
	Path      string
	Sentences []Sentence
	Stats     *LoadStats
}

// LoadFile reads the sentences of the file at path, which is memory-mapped.
func LoadFile(path string, opts Options) ([]Sentence, *LoadStats, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to mmap %s", path)
	}
	defer func() { _ = reader.Close() }()
	if opts.Name == "" {
		opts.Name = path
	}
	return ReadSentences(io.NewSectionReader(reader, 0, int64(reader.Len())), opts)
}

// SplitPaths returns the path of each split file in dir.
func SplitPaths(dir string, splits []SplitFile) []string {
	paths := make([]string, len(splits))
	for ii, split := range splits {
		paths[ii] = filepath.Join(dir, split.File)
	}
	return paths
}

// CheckSplits returns an error wrapping ErrDatasetMissing listing the split files missing in dir.
func CheckSplits(dir string, splits []SplitFile) error {
	if len(splits) == 0 {
		return errors.Wrap(ErrDatasetMissing, "no splits configured")
	}
	missing := files.Missing(SplitPaths(dir, splits)...)
	if len(missing) > 0 {
		return errors.Wrapf(ErrDatasetMissing, "%s not found, make sure you have downloaded the right dataset",
			strings.Join(missing, ", "))
	}
	return nil
}

// LoadSplits loads the given splits from dir, in order.
//
// All split files are checked before any is read: if one is missing it returns an error wrapping
// ErrDatasetMissing.
func LoadSplits(dir string, splits []SplitFile, opts Options) ([]*Split, error) {
	if err := CheckSplits(dir, splits); err != nil {
		return nil, err
	}
	paths := SplitPaths(dir, splits)
	loaded := make([]*Split, 0, len(splits))
	for ii, split := range splits {
		splitOpts := opts
		splitOpts.Name = split.Name
		klog.Infof("loading split %q from %s", split.Name, paths[ii])
		sentences, stats, err := LoadFile(paths[ii], splitOpts)
		if err != nil {
			return nil, errors.WithMessagef(err, "loading split %q", split.Name)
		}
		klog.Infof("split %q: %d sentences, %d tokens (%d lines repaired, %d dropped)",
			split.Name, stats.Sentences, stats.Tokens, stats.Repaired, stats.Dropped)
		loaded = append(loaded, &Split{Name: split.Name, Path: paths[ii], Sentences: sentences, Stats: stats})
	}
	return loaded, nil
}
