// Package config holds the configuration of a corpus conversion, loaded from a YAML file.
package config

import (
	"os"

	"github.com/nerkit/biospans/bio"
	"github.com/nerkit/biospans/dataset"
	"github.com/nerkit/biospans/doccano"
	"github.com/nerkit/biospans/internal/files"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for configurations that can't be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config of a conversion. Every option of the output format is explicit.
type Config struct {
	// DataDir holds the BIO split files.
	DataDir string `yaml:"data_dir"`

	// OutputDir receives one output file per split.
	OutputDir string `yaml:"output_dir"`

	// Splits in the order they are converted, which matters with global id numbering.
	Splits []dataset.SplitFile `yaml:"splits"`

	// InputEncoding is the character encoding of the split files, e.g. "utf-8" or "gbk".
	InputEncoding string `yaml:"input_encoding"`

	// FlushFinalSentence keeps a last sentence not followed by a blank line.
	FlushFinalSentence bool `yaml:"flush_final_sentence"`

	// FlushTrailingSpan emits entities still open at the end of a sentence. Changing it changes the
	// entity counts: see bio.Decoder.
	FlushTrailingSpan bool `yaml:"flush_trailing_span"`

	// TextJoin is "concatenate" or "space".
	TextJoin string `yaml:"text_join"`

	// OffsetBase is 0 or 1.
	OffsetBase int `yaml:"offset_base"`

	// IDNumbering is "global" or "split".
	IDNumbering string `yaml:"id_numbering"`

	// OutputFormat is "jsonl" or "parquet".
	OutputFormat string `yaml:"output_format"`

	// OnInvalid is "fail" or "skip".
	OnInvalid string `yaml:"on_invalid"`

	// ExpectedCounts, per split and entity type, checked by the verify command.
	ExpectedCounts dataset.ExpectedCounts `yaml:"expected_counts"`

	// FetchURL is where the split files are downloaded from, if missing.
	FetchURL string `yaml:"fetch_url"`
}

// MSRAExpectedCounts are the number of annotated entities in the MSRA NER corpus.
var MSRAExpectedCounts = dataset.ExpectedCounts{
	"train": {"LOC": 36860, "ORG": 20584, "PER": 17615},
	"test":  {"LOC": 2886, "ORG": 1331, "PER": 1973},
}

// Default returns the configuration converting the MSRA corpus: character level text, 0-based offsets,
// ids incrementing across splits.
func Default() *Config {
	return &Config{
		DataDir:       "data/MSRA/BIO",
		OutputDir:     "data/MSRA/doccano",
		Splits:        []dataset.SplitFile{{Name: "train", File: "train.tsv"}, {Name: "test", File: "test.tsv"}},
		InputEncoding: "utf-8",
		TextJoin:      doccano.Concatenate.String(),
		OffsetBase:    0,
		IDNumbering:   doccano.Global.String(),
		OutputFormat:  doccano.JSONL.String(),
		OnInvalid:     doccano.Fail.String(),
	}
}

// Load returns the Default configuration overlaid with the YAML file at path.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading configuration %q", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing configuration %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "configuration %q", path)
	}
	return cfg, nil
}

// Validate checks every option, and expands "~" in the directories.
func (c *Config) Validate() error {
	if _, err := c.DoccanoOptions(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if _, err := doccano.ParseFormat(c.OutputFormat); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if _, err := doccano.ParseOnInvalid(c.OnInvalid); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if len(c.Splits) == 0 {
		return errors.Wrap(ErrInvalidConfig, "no splits configured")
	}
	seen := make(map[string]bool, len(c.Splits))
	for _, split := range c.Splits {
		if split.Name == "" || split.File == "" {
			return errors.Wrapf(ErrInvalidConfig, "split %+v needs a name and a file", split)
		}
		if seen[split.Name] {
			return errors.Wrapf(ErrInvalidConfig, "split %q configured twice", split.Name)
		}
		seen[split.Name] = true
	}
	var err error
	if c.DataDir, err = files.ReplaceTildeInDir(c.DataDir); err != nil {
		return err
	}
	if c.OutputDir, err = files.ReplaceTildeInDir(c.OutputDir); err != nil {
		return err
	}
	return nil
}

// DoccanoOptions returns the output options.
func (c *Config) DoccanoOptions() (doccano.Options, error) {
	var opts doccano.Options
	var err error
	if opts.TextJoin, err = doccano.ParseTextJoin(c.TextJoin); err != nil {
		return opts, err
	}
	if opts.IDNumbering, err = doccano.ParseIDNumbering(c.IDNumbering); err != nil {
		return opts, err
	}
	opts.OffsetBase = c.OffsetBase
	return opts, opts.Validate()
}

// Format returns the output format. The configuration must be valid.
func (c *Config) Format() doccano.Format {
	format, _ := doccano.ParseFormat(c.OutputFormat)
	return format
}

// InvalidPolicy returns the handling of invalid sentences. The configuration must be valid.
func (c *Config) InvalidPolicy() doccano.OnInvalid {
	onInvalid, _ := doccano.ParseOnInvalid(c.OnInvalid)
	return onInvalid
}

// LoaderOptions returns the options to read the split files.
func (c *Config) LoaderOptions() dataset.Options {
	return dataset.Options{Encoding: c.InputEncoding, FlushFinal: c.FlushFinalSentence}
}

// Decoder returns the configured decoder.
func (c *Config) Decoder() bio.Decoder {
	return bio.Decoder{FlushTrailing: c.FlushTrailingSpan}
}
