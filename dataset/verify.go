package dataset

import (
	"maps"
	"slices"

	"github.com/nerkit/biospans/bio"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ExpectedCounts maps split name to entity type to the number of entities annotated in the split.
type ExpectedCounts map[string]map[string]int

// SentenceIssue is a sentence that failed verification.
type SentenceIssue struct {
	Split string
	Line  int
	Err   error
}

// TypeTotal holds the totals of one entity type in one split.
type TypeTotal struct {
	Split string
	Type  string

	// Begins is the number of B tags: the entities annotated in the split.
	Begins int

	// Decoded is the number of entities returned by the decoder.
	Decoded int

	// Expected is the configured number of entities, or -1 if not configured.
	Expected int
}

// Matches returns whether Begins matches the configured Expected count, if any.
func (t TypeTotal) Matches() bool {
	return t.Expected < 0 || t.Expected == t.Begins
}

// VerifyReport is the result of Verify.
type VerifyReport struct {
	Sentences int

	// Invalid sentences couldn't be decoded (e.g. fewer than 2 tokens). They are still counted
	// in TypeTotal.Begins.
	Invalid []SentenceIssue

	// Mismatches are sentences whose decoded entities don't match their B tags, see bio.Decoder.CheckCounts.
	Mismatches []SentenceIssue

	Totals []TypeTotal
}

// OK returns whether every sentence and every configured total matched.
func (r *VerifyReport) OK() bool {
	if len(r.Mismatches) > 0 {
		return false
	}
	for _, total := range r.Totals {
		if !total.Matches() {
			return false
		}
	}
	return true
}

// Verify decodes every sentence of the splits and checks that:
//
//   - each sentence decodes to as many entities per type as bio.ExpectedCounts predicts from its tags;
//   - the number of B tags per type in each split matches expected, for the splits and types listed there.
//
// It returns the report, and an error wrapping bio.ErrCountMismatch if any check failed.
// Malformed tags abort the verification.
func Verify(splits []*Split, expected ExpectedCounts, d bio.Decoder) (*VerifyReport, error) {
	report := &VerifyReport{}
	for _, split := range splits {
		begins := make(map[string]int)
		decoded := make(map[string]int)
		for _, sentence := range split.Sentences {
			report.Sentences++
			tags, err := bio.ParseTags(sentence.Tags)
			if err != nil {
				return report, errors.WithMessagef(err, "split %q, sentence at line %d", split.Name, sentence.Line)
			}
			for typ, count := range bio.CountBegins(tags) {
				begins[typ] += count
			}
			entities, err := d.CheckCounts(sentence.Tokens, sentence.Tags)
			switch {
			case errors.Is(err, bio.ErrInvalidInput):
				report.Invalid = append(report.Invalid, SentenceIssue{Split: split.Name, Line: sentence.Line, Err: err})
				continue
			case errors.Is(err, bio.ErrCountMismatch):
				klog.V(1).Infof("split %q, sentence at line %d: %v", split.Name, sentence.Line, err)
				report.Mismatches = append(report.Mismatches, SentenceIssue{Split: split.Name, Line: sentence.Line, Err: err})
			case err != nil:
				return report, errors.WithMessagef(err, "split %q, sentence at line %d", split.Name, sentence.Line)
			}
			for typ, count := range bio.CountByType(entities) {
				decoded[typ] += count
			}
		}

		types := slices.Collect(maps.Keys(begins))
		for typ := range decoded {
			if _, found := begins[typ]; !found {
				types = append(types, typ)
			}
		}
		for typ := range expected[split.Name] {
			if !slices.Contains(types, typ) {
				types = append(types, typ)
			}
		}
		slices.Sort(types)
		for _, typ := range types {
			total := TypeTotal{Split: split.Name, Type: typ, Begins: begins[typ], Decoded: decoded[typ], Expected: -1}
			if want, found := expected[split.Name][typ]; found {
				total.Expected = want
			}
			report.Totals = append(report.Totals, total)
		}
	}

	if !report.OK() {
		var failedTotals int
		for _, total := range report.Totals {
			if !total.Matches() {
				failedTotals++
			}
		}
		return report, errors.Wrapf(bio.ErrCountMismatch, "%d sentences and %d split totals failed verification",
			len(report.Mismatches), failedTotals)
	}
	return report, nil
}
