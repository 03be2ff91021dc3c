// Package dataset loads BIO tagged corpora: files with one "token<TAB>tag" pair per line and
// sentences separated by blank lines, e.g.:
//
//	当	O
//	希	O
//	望	O
//	工	B-ORG
//	程	I-ORG
//
// It also verifies a corpus against the decoder (see Verify), exports it in the
// sentences.txt/tags.txt layout, and fetches missing split files.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"k8s.io/klog/v2"
)

var (
	// ErrMalformedLine is wrapped by the diagnostics of lines that could not be parsed.
	ErrMalformedLine = errors.New("malformed line")

	// ErrDatasetMissing is returned when a split file of the dataset doesn't exist.
	ErrDatasetMissing = errors.New("dataset missing")
)

const (
	// FieldSeparator separates the token from the tag in a line.
	FieldSeparator = "\t"

	// MaxDiagnostics is the maximum number of diagnostics kept in LoadStats.
	MaxDiagnostics = 100

	maxLineSize = 1 << 20
)

// Sentence is an aligned sequence of tokens and tags.
type Sentence struct {
	Tokens []string
	Tags   []string

	// Line is the 1-based line number of the first token in the source.
	Line int
}

// Len returns the number of tokens in the sentence.
func (s Sentence) Len() int {
	return len(s.Tokens)
}

// LineError describes a line that was dropped.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// LoadStats counts what happened while loading a source.
type LoadStats struct {
	Lines     int
	Sentences int
	Tokens    int

	// Repaired lines had an empty token or tag, and got the tag "O".
	Repaired int

	// Dropped lines couldn't be parsed, see Diagnostics.
	Dropped int

	// LostTokens is the number of tokens of a final sentence not followed by a blank line.
	LostTokens int

	// Diagnostics holds the first MaxDiagnostics dropped lines.
	Diagnostics []*LineError
}

// Options configure how a source is read.
type Options struct {
	// Name identifies the source in the logs.
	Name string

	// Encoding is the WHATWG label of the source character encoding (e.g. "utf-8", "gbk", "gb18030").
	// Empty means "utf-8". A byte order mark, if present, takes precedence.
	Encoding string

	// FlushFinal keeps a final sentence that is not followed by a blank line.
	// By default, as with the corpora tooling this reproduces, such a sentence is discarded.
	FlushFinal bool
}

// decodingReader wraps r to convert from the configured encoding to UTF-8.
func decodingReader(r io.Reader, label string) (io.Reader, error) {
	if label == "" {
		label = "utf-8"
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown input encoding %q", label)
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// ReadSentences reads all sentences from r.
//
// Lines without exactly one tab separator are dropped, with a diagnostic. Lines with an empty token
// or tag are kept with the tag "O". Blank (or whitespace-only) lines end the current sentence.
func ReadSentences(r io.Reader, opts Options) ([]Sentence, *LoadStats, error) {
	src, err := decodingReader(r, opts.Encoding)
	if err != nil {
		return nil, nil, err
	}
	name := opts.Name
	if name == "" {
		name = "<input>"
	}

	stats := &LoadStats{}
	var sentences []Sentence
	var current Sentence
	flush := func() {
		if current.Len() == 0 {
			return
		}
		sentences = append(sentences, current)
		stats.Sentences++
		stats.Tokens += current.Len()
		current = Sentence{}
	}
	drop := func(lineNum int, line string, reason string) {
		lineErr := &LineError{Line: lineNum, Text: line, Err: errors.Wrap(ErrMalformedLine, reason)}
		klog.Warningf("%s: skipping %v", name, lineErr)
		stats.Dropped++
		if len(stats.Diagnostics) < MaxDiagnostics {
			stats.Diagnostics = append(stats.Diagnostics, lineErr)
		}
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		stats.Lines++
		lineNum := stats.Lines
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		fields := strings.Split(line, FieldSeparator)
		if len(fields) < 2 {
			drop(lineNum, line, "missing tab separator")
			continue
		}
		if len(fields) > 2 {
			drop(lineNum, line, fmt.Sprintf("%d fields, expected 2", len(fields)))
			continue
		}
		token, tag := fields[0], strings.TrimSpace(fields[1])
		if token == "" || tag == "" {
			klog.V(1).Infof("%s: line %d: empty token or tag in %q, using tag \"O\"", name, lineNum, line)
			tag = "O"
			stats.Repaired++
		}
		if current.Len() == 0 {
			current.Line = lineNum
		}
		current.Tokens = append(current.Tokens, token)
		current.Tags = append(current.Tags, tag)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrapf(err, "reading %s", name)
	}
	if current.Len() > 0 {
		if opts.FlushFinal {
			flush()
		} else {
			stats.LostTokens = current.Len()
			klog.Warningf("%s: last sentence (line %d, %d tokens) is not followed by a blank line and was discarded",
				name, current.Line, current.Len())
		}
	}
	return sentences, stats, nil
}
