package doccano

import (
	"github.com/nerkit/biospans/bio"
	"github.com/nerkit/biospans/dataset"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// OnInvalid is what Convert does with a sentence the decoder rejects.
type OnInvalid int

const (
	// Fail aborts the conversion.
	Fail OnInvalid = iota

	// Skip leaves the sentence out of the output, and counts it in ConvertStats.Skipped.
	Skip
)

// ParseOnInvalid parses "fail" or "skip".
func ParseOnInvalid(s string) (OnInvalid, error) {
	switch s {
	case "fail":
		return Fail, nil
	case "skip":
		return Skip, nil
	}
	return 0, errors.Wrapf(ErrInvalidOption, "on invalid %q, valid values are \"fail\" and \"skip\"", s)
}

// String returns the value parsed by ParseOnInvalid.
func (o OnInvalid) String() string {
	if o == Skip {
		return "skip"
	}
	return "fail"
}

// ConvertStats summarizes the conversion of one split.
type ConvertStats struct {
	Split    string
	Records  int
	Entities int

	// EntitiesByType counts the entities written per label.
	EntitiesByType map[string]int

	// Skipped sentences, with OnInvalid == Skip.
	Skipped int

	// LastItemID and LastEntityID are the last ids assigned, as reported by the Counter.
	LastItemID, LastEntityID int
}

// Convert decodes every sentence of the split and writes its record to w.
//
// The caller owns w: Convert doesn't close it.
func Convert(split *dataset.Split, d bio.Decoder, b *Builder, w Writer, onInvalid OnInvalid) (*ConvertStats, error) {
	stats := &ConvertStats{Split: split.Name, EntitiesByType: make(map[string]int)}
	b.StartSplit()
	for _, sentence := range split.Sentences {
		entities, err := d.Decode(sentence.Tokens, sentence.Tags)
		if err != nil {
			if onInvalid == Skip && (errors.Is(err, bio.ErrInvalidInput) || errors.Is(err, bio.ErrMalformedTag)) {
				klog.Warningf("split %q: skipping sentence at line %d: %v", split.Name, sentence.Line, err)
				stats.Skipped++
				continue
			}
			return stats, errors.WithMessagef(err, "split %q, sentence at line %d", split.Name, sentence.Line)
		}
		record := b.Build(sentence.Tokens, entities)
		if err := w.Write(record); err != nil {
			return stats, errors.WithMessagef(err, "split %q", split.Name)
		}
		stats.Records++
		stats.Entities += len(record.Entities)
		for _, e := range record.Entities {
			stats.EntitiesByType[e.Label]++
		}
	}
	stats.LastItemID = b.Counter.Items()
	stats.LastEntityID = b.Counter.Entities()
	if stats.Skipped > 0 {
		klog.Warningf("split %q: %d sentences skipped", split.Name, stats.Skipped)
	}
	return stats, nil
}
