package bio

import (
	"maps"
	"slices"

	"github.com/pkg/errors"
)

// ErrCountMismatch is returned by CheckCounts when the decoded entities don't match the tags.
var ErrCountMismatch = errors.New("entity count mismatch")

// CountBegins returns, per entity type, the number of Begin tags: the ground truth number of
// entities annotated in the sentence.
func CountBegins(tags []Tag) map[string]int {
	counts := make(map[string]int)
	for _, tag := range tags {
		if tag.Label == Begin {
			counts[tag.Type]++
		}
	}
	return counts
}

// ExpectedCounts returns, per entity type, the number of entities a Decoder must return for the tags,
// assuming every run starts with a Begin and keeps the same type. Dangling "I-" runs and runs
// whose type changes are therefore reported by CheckCounts.
//
// A Begin tag at position k yields an entity only if its run is closed, that is, if some later tag
// is an Outside or a Begin. With flushTrailing every Begin yields an entity.
// When the sentence ends with an Outside or a Begin tag, this is the number of Begin tags strictly
// before the last position.
func ExpectedCounts(tags []Tag, flushTrailing bool) map[string]int {
	if flushTrailing {
		return CountBegins(tags)
	}
	lastClosing := -1
	for ii := len(tags) - 1; ii >= 0; ii-- {
		if tags[ii].Label != Inside {
			lastClosing = ii
			break
		}
	}
	if lastClosing <= 0 {
		return make(map[string]int)
	}
	return CountBegins(tags[:lastClosing])
}

// CountByType returns the number of entities per type.
func CountByType(entities []Entity) map[string]int {
	counts := make(map[string]int)
	for _, e := range entities {
		counts[e.Type]++
	}
	return counts
}

// CheckCounts decodes the sentence and checks that the number of entities per type matches
// ExpectedCounts.
//
// It returns the decoded entities, and an error wrapping ErrCountMismatch on a mismatch, or the
// decoding error.
func (d Decoder) CheckCounts(tokens, tags []string) ([]Entity, error) {
	parsed, err := ParseTags(tags)
	if err != nil {
		return nil, err
	}
	entities, err := d.DecodeTags(tokens, parsed)
	if err != nil {
		return nil, err
	}
	want := ExpectedCounts(parsed, d.FlushTrailing)
	got := CountByType(entities)
	if !maps.Equal(want, got) {
		types := slices.Sorted(maps.Keys(want))
		for _, typ := range slices.Sorted(maps.Keys(got)) {
			if _, found := want[typ]; !found {
				types = append(types, typ)
			}
		}
		for _, typ := range types {
			if want[typ] != got[typ] {
				return entities, errors.Wrapf(ErrCountMismatch, "type %q: expected %d entities, decoded %d",
					typ, want[typ], got[typ])
			}
		}
	}
	return entities, nil
}
