package doccano

import (
	"testing"

	"github.com/nerkit/biospans/bio"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuild tests the record of a sentence with the default options.
func TestBuild(t *testing.T) {
	b, err := NewBuilder(Options{})
	require.NoError(t, err)
	tokens := []string{"我", "在", "北", "京"}
	record := b.Build(tokens, []bio.Entity{{Text: "北京", Type: "LOC", Begin: 2, End: 4}})
	assert.Equal(t, Record{
		ID:        1,
		Text:      "我在北京",
		Entities:  []Entity{{Entity: "北京", ID: 1, Label: "LOC", StartOffset: 2, EndOffset: 4}},
		Relations: []Relation{},
	}, record)

	record = b.Build([]string{"好", "。"}, nil)
	assert.Equal(t, 2, record.ID)
	assert.NotNil(t, record.Entities)
	assert.Empty(t, record.Entities)
}

// TestBuildOptions tests the space joined text and 1-based offsets.
func TestBuildOptions(t *testing.T) {
	b, err := NewBuilder(Options{TextJoin: SpaceJoined, OffsetBase: 1})
	require.NoError(t, err)
	record := b.Build([]string{"Hi", "Beijing", "!"}, []bio.Entity{{Text: "Beijing", Type: "LOC", Begin: 1, End: 2}})
	assert.Equal(t, "Hi Beijing !", record.Text)
	assert.Equal(t, 2, record.Entities[0].StartOffset)
	assert.Equal(t, 3, record.Entities[0].EndOffset)

	_, err = NewBuilder(Options{OffsetBase: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidOption))
}

// TestIDNumbering tests that ids restart per split only with PerSplit.
func TestIDNumbering(t *testing.T) {
	entities := []bio.Entity{{Text: "a", Type: "PER", Begin: 0, End: 1}}
	for _, tc := range []struct {
		numbering IDNumbering
		wantID    int
	}{{Global, 2}, {PerSplit, 1}} {
		b, err := NewBuilder(Options{IDNumbering: tc.numbering})
		require.NoError(t, err)
		b.StartSplit()
		b.Build([]string{"a", "b"}, entities)
		b.StartSplit()
		record := b.Build([]string{"a", "b"}, entities)
		assert.Equal(t, tc.wantID, record.ID, "numbering %s", tc.numbering)
		assert.Equal(t, tc.wantID, record.Entities[0].ID, "numbering %s", tc.numbering)
	}
}

// TestParseOptions tests the textual option values.
func TestParseOptions(t *testing.T) {
	join, err := ParseTextJoin("space")
	require.NoError(t, err)
	assert.Equal(t, SpaceJoined, join)
	assert.Equal(t, "space", join.String())
	_, err = ParseTextJoin("tab")
	assert.True(t, errors.Is(err, ErrInvalidOption))

	numbering, err := ParseIDNumbering("split")
	require.NoError(t, err)
	assert.Equal(t, PerSplit, numbering)
	_, err = ParseIDNumbering("local")
	assert.True(t, errors.Is(err, ErrInvalidOption))

	format, err := ParseFormat("parquet")
	require.NoError(t, err)
	assert.Equal(t, "test.parquet", format.FileName("test"))
	_, err = ParseFormat("csv")
	assert.True(t, errors.Is(err, ErrInvalidOption))

	onInvalid, err := ParseOnInvalid("skip")
	require.NoError(t, err)
	assert.Equal(t, Skip, onInvalid)
	_, err = ParseOnInvalid("ignore")
	assert.True(t, errors.Is(err, ErrInvalidOption))
}
