package bio

import (
	"math/rand/v2"
	"strconv"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecodeClosedEntity tests an entity closed by an O.
func TestDecodeClosedEntity(t *testing.T) {
	entities, err := Decode([]string{"x", "y", "z"}, []string{"O", "B-ORG", "O"})
	require.NoError(t, err)
	assert.Equal(t, []Entity{{Text: "y", Type: "ORG", Begin: 1, End: 2}}, entities)
}

// TestDecodeTrailingSpanDropped tests that a span still open at the end of the sentence is not emitted.
func TestDecodeTrailingSpanDropped(t *testing.T) {
	tokens := []string{"当", "希", "望", "工", "程"}
	tags := []string{"O", "O", "O", "B-ORG", "I-ORG"}
	entities, err := Decode(tokens, tags)
	require.NoError(t, err)
	assert.Empty(t, entities)

	// Same sentence, flushing the trailing span.
	entities, err = Decoder{FlushTrailing: true}.Decode(tokens, tags)
	require.NoError(t, err)
	assert.Equal(t, []Entity{{Text: "工程", Type: "ORG", Begin: 3, End: 5}}, entities)
}

// TestDecodeDanglingInside tests that an I with no preceding B opens a span.
func TestDecodeDanglingInside(t *testing.T) {
	// The I is the last token: its span is never closed by the default decoder.
	entities, err := Decode([]string{"x", "y"}, []string{"O", "I-LOC"})
	require.NoError(t, err)
	assert.Empty(t, entities)

	entities, err = Decoder{FlushTrailing: true}.Decode([]string{"x", "y"}, []string{"O", "I-LOC"})
	require.NoError(t, err)
	assert.Equal(t, []Entity{{Text: "y", Type: "LOC", Begin: 1, End: 2}}, entities)

	entities, err = Decode([]string{"x", "y", "z"}, []string{"O", "I-LOC", "O"})
	require.NoError(t, err)
	assert.Equal(t, []Entity{{Text: "y", Type: "LOC", Begin: 1, End: 2}}, entities)

	// Dangling I at the very start, running for two tokens.
	entities, err = Decode([]string{"a", "b", "c"}, []string{"I-PER", "I-PER", "O"})
	require.NoError(t, err)
	assert.Equal(t, []Entity{{Text: "ab", Type: "PER", Begin: 0, End: 2}}, entities)
}

// TestDecodeFirstToken tests that an entity can start at position 0.
func TestDecodeFirstToken(t *testing.T) {
	entities, err := Decode([]string{"Beijing", "is"}, []string{"B-LOC", "O"})
	require.NoError(t, err)
	assert.Equal(t, []Entity{{Text: "Beijing", Type: "LOC", Begin: 0, End: 1}}, entities)
}

// TestDecodeConsecutiveBegins tests that a B always closes the open span, even of the same type.
func TestDecodeConsecutiveBegins(t *testing.T) {
	tokens := []string{"a", "b", "c", "d", "e", "f"}
	tags := []string{"B-LOC", "I-LOC", "B-LOC", "B-PER", "I-PER", "O"}
	entities, err := Decode(tokens, tags)
	require.NoError(t, err)
	assert.Equal(t, []Entity{
		{Text: "ab", Type: "LOC", Begin: 0, End: 2},
		{Text: "c", Type: "LOC", Begin: 2, End: 3},
		{Text: "de", Type: "PER", Begin: 3, End: 5},
	}, entities)
}

// TestDecodeLastSeenType tests that an entity takes the type of its last tag.
func TestDecodeLastSeenType(t *testing.T) {
	entities, err := Decode([]string{"a", "b", "c", "d"}, []string{"B-LOC", "I-LOC", "I-ORG", "O"})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "ORG", entities[0].Type)
	assert.Equal(t, "abc", entities[0].Text)
	assert.Equal(t, 3, entities[0].Len())
}

// TestDecodeAllOutside tests that a sentence without entities decodes to an empty list.
func TestDecodeAllOutside(t *testing.T) {
	for _, flush := range []bool{false, true} {
		entities, err := Decoder{FlushTrailing: flush}.Decode([]string{"a", "b", "c"}, []string{"O", "O", "O"})
		require.NoError(t, err)
		assert.Empty(t, entities)
	}
}

// TestDecodeInvalidInput tests the decoder preconditions.
func TestDecodeInvalidInput(t *testing.T) {
	_, err := Decode([]string{"a", "b"}, []string{"O"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = Decode([]string{"a"}, []string{"B-LOC"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = Decode(nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = Decoder{}.DecodeTags([]string{"a", "b", "c"}, []Tag{OutsideTag})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = Decode([]string{"a", "b"}, []string{"O", ""})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedTag))
}

// randomSentence generates a well-formed BIO sentence: runs start with a B and keep their type.
func randomSentence(rng *rand.Rand) (tokens, tags []string) {
	types := []string{"LOC", "ORG", "PER"}
	n := MinSentenceLength + rng.IntN(30)
	tokens = make([]string, n)
	tags = make([]string, n)
	var currentType string
	for ii := range n {
		tokens[ii] = strconv.Itoa(ii)
		switch r := rng.IntN(10); {
		case r < 4:
			tags[ii] = "O"
			currentType = ""
		case r < 7 || currentType == "":
			currentType = types[rng.IntN(len(types))]
			tags[ii] = "B-" + currentType
		default:
			tags[ii] = "I-" + currentType
		}
	}
	return
}

// TestDecodeProperties checks count consistency, ordering, non-overlap and idempotence on random sentences.
func TestDecodeProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	for range 2000 {
		tokens, tags := randomSentence(rng)
		parsed, err := ParseTags(tags)
		require.NoError(t, err)
		for _, d := range []Decoder{{}, {FlushTrailing: true}} {
			entities, err := d.Decode(tokens, tags)
			require.NoError(t, err)

			assert.Equal(t, ExpectedCounts(parsed, d.FlushTrailing), CountByType(entities),
				"tags=%v flush=%v", tags, d.FlushTrailing)

			for ii, e := range entities {
				assert.Greater(t, e.End, e.Begin)
				assert.Equal(t, Begin, parsed[e.Begin].Label, "entity %s must start on a B", e)
				if ii > 0 {
					assert.LessOrEqual(t, entities[ii-1].End, e.Begin, "entities must be sorted and disjoint")
				}
				if !d.FlushTrailing {
					assert.Less(t, e.End, len(tokens), "the last token is never part of an entity")
				}
			}

			again, err := d.Decode(tokens, tags)
			require.NoError(t, err)
			assert.Equal(t, entities, again)
		}

		// Ending with an O, the count is the number of B tags before the last position.
		tags[len(tags)-1] = "O"
		entities, err := Decode(tokens, tags)
		require.NoError(t, err)
		parsed, err = ParseTags(tags[:len(tags)-1])
		require.NoError(t, err)
		assert.Equal(t, CountBegins(parsed), CountByType(entities))
	}
}

// TestDecodeConcurrent tests that the decoder can be used from many goroutines.
func TestDecodeConcurrent(t *testing.T) {
	tokens := []string{"a", "b", "c", "d"}
	tags := []string{"B-LOC", "I-LOC", "O", "O"}
	want := []Entity{{Text: "ab", Type: "LOC", Begin: 0, End: 2}}
	var wg sync.WaitGroup
	results := make([][]Entity, 16)
	for ii := range results {
		wg.Go(func() {
			results[ii], _ = Decode(tokens, tags)
		})
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}
