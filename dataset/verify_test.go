package dataset

import (
	"testing"

	"github.com/nerkit/biospans/bio"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentence(line int, pairs ...string) Sentence {
	s := Sentence{Line: line}
	for ii := 0; ii+1 < len(pairs); ii += 2 {
		s.Tokens = append(s.Tokens, pairs[ii])
		s.Tags = append(s.Tags, pairs[ii+1])
	}
	return s
}

// TestVerify tests a split where every sentence and total matches.
func TestVerify(t *testing.T) {
	splits := []*Split{{
		Name: "train",
		Sentences: []Sentence{
			sentence(1, "北", "B-LOC", "京", "I-LOC", "的", "O", "王", "B-PER", "。", "O"),
			sentence(7, "好", "O", "。", "O"),
			sentence(10, "x", "B-ORG"), // Too short: invalid, but still annotated.
		},
	}}
	expected := ExpectedCounts{"train": {"LOC": 1, "PER": 1, "ORG": 1}}
	report, err := Verify(splits, expected, bio.Decoder{})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 3, report.Sentences)
	require.Len(t, report.Invalid, 1)
	assert.Equal(t, 10, report.Invalid[0].Line)
	assert.Equal(t, []TypeTotal{
		{Split: "train", Type: "LOC", Begins: 1, Decoded: 1, Expected: 1},
		{Split: "train", Type: "ORG", Begins: 1, Decoded: 0, Expected: 1},
		{Split: "train", Type: "PER", Begins: 1, Decoded: 1, Expected: 1},
	}, report.Totals)
}

// TestVerifyFailures tests that sentence mismatches and wrong totals are reported.
func TestVerifyFailures(t *testing.T) {
	splits := []*Split{{
		Name: "test",
		Sentences: []Sentence{
			sentence(1, "a", "O", "b", "I-LOC", "c", "O"),
			sentence(5, "d", "B-PER", "e", "O"),
		},
	}}
	expected := ExpectedCounts{"test": {"PER": 2, "ORG": 3}}
	report, err := Verify(splits, expected, bio.Decoder{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, bio.ErrCountMismatch))
	assert.False(t, report.OK())
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, 1, report.Mismatches[0].Line)

	var failed []string
	for _, total := range report.Totals {
		if !total.Matches() {
			failed = append(failed, total.Type)
		}
	}
	assert.Equal(t, []string{"ORG", "PER"}, failed)
}

// TestVerifyMalformedTag tests that a malformed tag aborts verification.
func TestVerifyMalformedTag(t *testing.T) {
	splits := []*Split{{Name: "train", Sentences: []Sentence{sentence(3, "a", "S-LOC", "b", "O")}}}
	_, err := Verify(splits, nil, bio.Decoder{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, bio.ErrMalformedTag))
	assert.Contains(t, err.Error(), "line 3")
}
