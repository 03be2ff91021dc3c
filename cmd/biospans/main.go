// biospans converts BIO tagged NER corpora to doccano annotations.
//
// The corpus is a directory with one tab separated "token<TAB>tag" file per split (e.g. MSRA's
// train.tsv and test.tsv). Options are read from a YAML file (--config) and can be overridden
// by flags. Run with --help to see the commands.
package main

import (
	"flag"
	"io"
	"os"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/nerkit/biospans/config"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// stdout receives the reports and the decode output.
var stdout io.Writer = os.Stdout

// Globals are flags shared by all commands.
type Globals struct {
	Config    string `short:"c" help:"YAML configuration file, defaults to the MSRA conversion." type:"existingfile"`
	Verbosity int    `short:"v" help:"Log verbosity level." default:"0"`
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Convert ConvertCmd `cmd:"" help:"Convert the dataset splits to doccano annotations."`
	Verify  VerifyCmd  `cmd:"" help:"Check the decoded entities against the tags and the expected counts."`
	Export  ExportCmd  `cmd:"" help:"Write the splits as sentences.txt and tags.txt files."`
	Fetch   FetchCmd   `cmd:"" help:"Download the missing split files."`
	Decode  DecodeCmd  `cmd:"" help:"Decode a single BIO file (or stdin) to doccano records on stdout."`
}

// ConfigFlags override the configuration file. Empty values keep the configured ones.
type ConfigFlags struct {
	DataDir       string `help:"Directory with the BIO split files."`
	OutputDir     string `help:"Directory where to write the output files."`
	Encoding      string `help:"Character encoding of the split files: utf-8, gbk, gb18030..."`
	TextJoin      string `help:"How tokens are joined into the text: concatenate or space."`
	OffsetBase    string `help:"Base of the entity offsets: 0 or 1."`
	IDNumbering   string `name:"id-numbering" help:"Scope of the ids: global or split."`
	Format        string `help:"Output format: jsonl or parquet."`
	OnInvalid     string `help:"What to do with sentences the decoder rejects: fail or skip."`
	FlushTrailing bool   `help:"Also emit entities still open at the end of a sentence (changes entity counts)."`
	FlushFinal    bool   `help:"Keep a last sentence not followed by a blank line."`
}

// resolve loads the configuration and applies the flags.
func (f *ConfigFlags) resolve(globals *Globals) (*config.Config, error) {
	cfg := config.Default()
	if globals.Config != "" {
		var err error
		if cfg, err = config.Load(globals.Config); err != nil {
			return nil, err
		}
	}
	overrides := []struct {
		flag  string
		value *string
	}{
		{f.DataDir, &cfg.DataDir},
		{f.OutputDir, &cfg.OutputDir},
		{f.Encoding, &cfg.InputEncoding},
		{f.TextJoin, &cfg.TextJoin},
		{f.IDNumbering, &cfg.IDNumbering},
		{f.Format, &cfg.OutputFormat},
		{f.OnInvalid, &cfg.OnInvalid},
	}
	for _, o := range overrides {
		if o.flag != "" {
			*o.value = o.flag
		}
	}
	if f.OffsetBase != "" {
		base, err := strconv.Atoi(f.OffsetBase)
		if err != nil {
			return nil, errors.Wrapf(config.ErrInvalidConfig, "offset base %q is not a number", f.OffsetBase)
		}
		cfg.OffsetBase = base
	}
	cfg.FlushTrailingSpan = cfg.FlushTrailingSpan || f.FlushTrailing
	cfg.FlushFinalSentence = cfg.FlushFinalSentence || f.FlushFinal
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogging sets klog's verbosity.
func initLogging(verbosity int) {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	_ = fs.Set("v", strconv.Itoa(verbosity))
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("biospans"),
		kong.Description("Decode BIO tagged corpora into entity spans and doccano annotations."),
		kong.UsageOnError())
	initLogging(cli.Verbosity)
	err := ctx.Run(&cli.Globals)
	klog.Flush()
	ctx.FatalIfErrorf(err)
}
