package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/nerkit/biospans/config"
	"github.com/nerkit/biospans/dataset"
	"github.com/nerkit/biospans/doccano"
	"github.com/nerkit/biospans/internal/files"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// ManifestFileName is written in the output directory after a conversion.
const ManifestFileName = "manifest.yaml"

// ConvertCmd converts the dataset splits to doccano annotations.
type ConvertCmd struct {
	ConfigFlags

	Fetch bool `help:"Download missing split files from the configured fetch_url first."`
}

// Manifest records a conversion run.
type Manifest struct {
	RunID     string           `yaml:"run_id"`
	CreatedAt time.Time        `yaml:"created_at"`
	Config    *config.Config   `yaml:"config"`
	Splits    []*SplitManifest `yaml:"splits"`
}

// SplitManifest records the conversion of one split.
type SplitManifest struct {
	Name           string         `yaml:"name"`
	Source         string         `yaml:"source"`
	Output         string         `yaml:"output"`
	Sentences      int            `yaml:"sentences"`
	RepairedLines  int            `yaml:"repaired_lines"`
	DroppedLines   int            `yaml:"dropped_lines"`
	LostTokens     int            `yaml:"lost_tokens"`
	Records        int            `yaml:"records"`
	Skipped        int            `yaml:"skipped"`
	Entities       int            `yaml:"entities"`
	EntitiesByType map[string]int `yaml:"entities_by_type"`
	LastItemID     int            `yaml:"last_item_id"`
	LastEntityID   int            `yaml:"last_entity_id"`
}

func (c *ConvertCmd) Run(globals *Globals) error {
	cfg, err := c.resolve(globals)
	if err != nil {
		return err
	}
	if c.Fetch {
		if err := fetchSplits(context.Background(), cfg, false); err != nil {
			return err
		}
	}
	klog.Infof("loading dataset from %s", cfg.DataDir)
	splits, err := dataset.LoadSplits(cfg.DataDir, cfg.Splits, cfg.LoaderOptions())
	if err != nil {
		return err
	}
	manifest, err := convertSplits(cfg, splits)
	if err != nil {
		return err
	}
	printConversion(manifest)
	return nil
}

// convertSplits writes one output file per split in the output directory, and the manifest.
// The output directory is locked during the conversion.
func convertSplits(cfg *config.Config, splits []*dataset.Split) (*Manifest, error) {
	opts, err := cfg.DoccanoOptions()
	if err != nil {
		return nil, err
	}
	builder, err := doccano.NewBuilder(opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutputDir, dataset.DefaultDirCreationPerm); err != nil {
		return nil, errors.Wrapf(err, "failed to create output directory %q", cfg.OutputDir)
	}

	manifest := &Manifest{RunID: uuid.NewString(), CreatedAt: time.Now().UTC(), Config: cfg}
	decoder := cfg.Decoder()
	format := cfg.Format()
	err = files.ExecOnFileLock(filepath.Join(cfg.OutputDir, ".lock"), func() error {
		for _, split := range splits {
			outputPath := filepath.Join(cfg.OutputDir, format.FileName(split.Name))
			klog.Infof("writing split %q into %s", split.Name, outputPath)
			stats, err := convertSplit(split, outputPath, format, func(w doccano.Writer) (*doccano.ConvertStats, error) {
				return doccano.Convert(split, decoder, builder, w, cfg.InvalidPolicy())
			})
			if err != nil {
				return err
			}
			manifest.Splits = append(manifest.Splits, &SplitManifest{
				Name:           split.Name,
				Source:         split.Path,
				Output:         outputPath,
				Sentences:      split.Stats.Sentences,
				RepairedLines:  split.Stats.Repaired,
				DroppedLines:   split.Stats.Dropped,
				LostTokens:     split.Stats.LostTokens,
				Records:        stats.Records,
				Skipped:        stats.Skipped,
				Entities:       stats.Entities,
				EntitiesByType: stats.EntitiesByType,
				LastItemID:     stats.LastItemID,
				LastEntityID:   stats.LastEntityID,
			})
		}
		return writeManifest(filepath.Join(cfg.OutputDir, ManifestFileName), manifest)
	})
	if err != nil {
		return nil, err
	}
	return manifest, nil
}

// convertSplit creates the output file, runs fn on its writer, and closes it on every path.
func convertSplit(split *dataset.Split, outputPath string, format doccano.Format,
	fn func(w doccano.Writer) (*doccano.ConvertStats, error)) (stats *doccano.ConvertStats, err error) {
	w, err := doccano.Create(outputPath, format)
	if err != nil {
		return nil, err
	}
	defer func() {
		closeErr := w.Close()
		if err == nil && closeErr != nil {
			err = errors.WithMessagef(closeErr, "split %q", split.Name)
		}
	}()
	return fn(w)
}

func writeManifest(path string, manifest *Manifest) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return errors.Wrap(err, "encoding manifest")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "writing manifest %q", path)
}
