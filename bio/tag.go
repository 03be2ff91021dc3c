// Package bio decodes BIO (Begin/Inside/Outside) tag sequences into entity spans.
//
// A BIO tag is either "O", or a label "B"/"I" followed by a "-" and an entity type, e.g. "B-LOC".
// The decoder scans a sentence's aligned tokens and tags once, left to right, and returns the
// recognized entities in order. See Decode for the exact transition rules, including the
// handling of dangling "I-" tags and of spans still open at the end of the sentence.
package bio

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidInput is returned when tokens and tags are not aligned, or the sentence is too short.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedTag is returned when a tag is not one of "O", "B-<TYPE>" or "I-<TYPE>".
	ErrMalformedTag = errors.New("malformed tag")
)

// Label is the first component of a BIO tag.
type Label int

const (
	Outside Label = iota
	Begin
	Inside
)

// String returns "O", "B" or "I".
func (l Label) String() string {
	switch l {
	case Outside:
		return "O"
	case Begin:
		return "B"
	case Inside:
		return "I"
	default:
		return "?"
	}
}

// TypeSeparator separates the label from the entity type in a tag.
const TypeSeparator = '-'

// Tag is a parsed BIO tag. Type is empty for Outside.
type Tag struct {
	Label Label
	Type  string
}

// OutsideTag is the tag of tokens not belonging to any entity.
var OutsideTag = Tag{Label: Outside}

// String returns the canonical form of the tag, e.g. "B-LOC".
func (t Tag) String() string {
	if t.Label == Outside {
		return "O"
	}
	return t.Label.String() + string(TypeSeparator) + t.Type
}

// ParseTag parses a tag in the form "O", "B-<TYPE>" or "I-<TYPE>".
//
// Any other form, including the empty string and labels of other tagging schemes (e.g. "S-LOC"),
// returns an error wrapping ErrMalformedTag.
func ParseTag(s string) (Tag, error) {
	if s == "O" {
		return OutsideTag, nil
	}
	if s == "" {
		return Tag{}, errors.Wrap(ErrMalformedTag, "empty tag")
	}
	var label Label
	switch s[0] {
	case 'B':
		label = Begin
	case 'I':
		label = Inside
	default:
		return Tag{}, errors.Wrapf(ErrMalformedTag, "unknown label in tag %q", s)
	}
	if len(s) < 2 || s[1] != TypeSeparator {
		return Tag{}, errors.Wrapf(ErrMalformedTag, "missing %q separator in tag %q", TypeSeparator, s)
	}
	if len(s) == 2 {
		return Tag{}, errors.Wrapf(ErrMalformedTag, "empty entity type in tag %q", s)
	}
	return Tag{Label: label, Type: s[2:]}, nil
}

// ParseTags parses each tag with ParseTag. The error reports the position of the first malformed tag.
func ParseTags(tags []string) ([]Tag, error) {
	parsed := make([]Tag, len(tags))
	for ii, s := range tags {
		tag, err := ParseTag(s)
		if err != nil {
			return nil, errors.WithMessagef(err, "tag #%d", ii)
		}
		parsed[ii] = tag
	}
	return parsed, nil
}
