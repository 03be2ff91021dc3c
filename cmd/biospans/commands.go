package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/nerkit/biospans/config"
	"github.com/nerkit/biospans/dataset"
	"github.com/nerkit/biospans/doccano"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// VerifyCmd checks the decoder against the corpus.
type VerifyCmd struct {
	ConfigFlags

	MSRA bool `name:"msra" help:"Check the totals of the MSRA corpus when no expected_counts are configured."`
}

func (c *VerifyCmd) Run(globals *Globals) error {
	cfg, err := c.resolve(globals)
	if err != nil {
		return err
	}
	expected := cfg.ExpectedCounts
	if len(expected) == 0 && c.MSRA {
		expected = config.MSRAExpectedCounts
	}
	splits, err := dataset.LoadSplits(cfg.DataDir, cfg.Splits, cfg.LoaderOptions())
	if err != nil {
		return err
	}
	klog.Info("verifying BIO decoding")
	report, err := dataset.Verify(splits, expected, cfg.Decoder())
	printVerification(report)
	if err != nil {
		return err
	}
	klog.Info("verification done")
	return nil
}

// ExportCmd writes the splits in the sentences.txt/tags.txt layout.
type ExportCmd struct {
	ConfigFlags

	To string `help:"Directory receiving one sub-directory per split." default:"data/sentences"`
}

func (c *ExportCmd) Run(globals *Globals) error {
	cfg, err := c.resolve(globals)
	if err != nil {
		return err
	}
	splits, err := dataset.LoadSplits(cfg.DataDir, cfg.Splits, cfg.LoaderOptions())
	if err != nil {
		return err
	}
	for _, split := range splits {
		if err := dataset.SaveSentences(filepath.Join(c.To, split.Name), split.Sentences); err != nil {
			return errors.WithMessagef(err, "exporting split %q", split.Name)
		}
	}
	return nil
}

// FetchCmd downloads the split files.
type FetchCmd struct {
	ConfigFlags

	URL   string `name:"url" help:"Base URL of the split files, overrides fetch_url."`
	Force bool   `help:"Download even if the files exist."`
}

func (c *FetchCmd) Run(globals *Globals) error {
	cfg, err := c.resolve(globals)
	if err != nil {
		return err
	}
	if c.URL != "" {
		cfg.FetchURL = c.URL
	}
	return fetchSplits(context.Background(), cfg, c.Force)
}

func fetchSplits(ctx context.Context, cfg *config.Config, force bool) error {
	fetcher := &dataset.Fetcher{BaseURL: cfg.FetchURL, Dir: cfg.DataDir, Force: force}
	_, err := fetcher.Fetch(ctx, cfg.Splits)
	return err
}

// DecodeCmd decodes a single BIO file to doccano records.
type DecodeCmd struct {
	ConfigFlags

	Input string `arg:"" optional:"" help:"BIO file to decode, stdin if empty or \"-\"."`
}

func (c *DecodeCmd) Run(globals *Globals) error {
	cfg, err := c.resolve(globals)
	if err != nil {
		return err
	}
	var in io.Reader = os.Stdin
	loaderOpts := cfg.LoaderOptions()
	loaderOpts.Name = "stdin"
	if c.Input != "" && c.Input != "-" {
		f, err := os.Open(c.Input)
		if err != nil {
			return errors.Wrapf(err, "opening %q", c.Input)
		}
		defer func() { _ = f.Close() }()
		in = f
		loaderOpts.Name = c.Input
	}
	sentences, stats, err := dataset.ReadSentences(in, loaderOpts)
	if err != nil {
		return err
	}
	opts, err := cfg.DoccanoOptions()
	if err != nil {
		return err
	}
	builder, err := doccano.NewBuilder(opts)
	if err != nil {
		return err
	}
	split := &dataset.Split{Name: loaderOpts.Name, Sentences: sentences, Stats: stats}
	w := doccano.NewJSONLWriter(nopCloser{stdout})
	_, err = doccano.Convert(split, cfg.Decoder(), builder, w, cfg.InvalidPolicy())
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	return err
}

// nopCloser keeps the JSONLWriter from closing stdout.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
