package bio

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// MinSentenceLength is the minimum number of tokens accepted by the decoder.
const MinSentenceLength = 2

// Entity is a contiguous span of tokens recognized from the tags.
//
// Begin and End are 0-based token indices into the sentence, End exclusive.
// Text is the concatenation of the spanned tokens.
type Entity struct {
	Text  string `json:"entity"`
	Type  string `json:"type"`
	Begin int    `json:"begin"`
	End   int    `json:"end"`
}

// Len returns the number of tokens spanned by the entity.
func (e Entity) Len() int {
	return e.End - e.Begin
}

// String implements fmt.Stringer.
func (e Entity) String() string {
	return fmt.Sprintf("%s[%s]@[%d,%d)", e.Text, e.Type, e.Begin, e.End)
}

// Decoder converts BIO tag sequences to entities.
//
// The zero value reproduces the corpus tooling exactly: a span still open when the sentence
// ends is dropped, since only transitions up to the last token are evaluated. Corpora statistics
// (see ExpectedCounts) were computed with this behavior.
type Decoder struct {
	// FlushTrailing makes the decoder also accumulate the last token and emit a span that is
	// still open at the end of the sentence.
	FlushTrailing bool
}

// Decode decodes the tags with the zero Decoder. See Decoder.Decode.
func Decode(tokens, tags []string) ([]Entity, error) {
	return Decoder{}.Decode(tokens, tags)
}

// Decode parses the tags and returns the entities found in the sentence, in left-to-right order.
//
// It returns an error wrapping ErrInvalidInput if len(tokens) != len(tags) or if there are fewer
// than MinSentenceLength tokens, and an error wrapping ErrMalformedTag if any tag can't be parsed.
func (d Decoder) Decode(tokens, tags []string) ([]Entity, error) {
	if err := checkLengths(len(tokens), len(tags)); err != nil {
		return nil, err
	}
	parsed, err := ParseTags(tags)
	if err != nil {
		return nil, err
	}
	return d.scan(tokens, parsed), nil
}

// DecodeTags is like Decode, but takes already parsed tags.
func (d Decoder) DecodeTags(tokens []string, tags []Tag) ([]Entity, error) {
	if err := checkLengths(len(tokens), len(tags)); err != nil {
		return nil, err
	}
	return d.scan(tokens, tags), nil
}

func checkLengths(numTokens, numTags int) error {
	if numTokens != numTags {
		return errors.Wrapf(ErrInvalidInput, "%d tokens but %d tags", numTokens, numTags)
	}
	if numTokens < MinSentenceLength {
		return errors.Wrapf(ErrInvalidInput, "sentence has %d tokens, at least %d required", numTokens, MinSentenceLength)
	}
	return nil
}

// span is the entity being accumulated during a scan.
type span struct {
	text       strings.Builder
	typ        string
	begin, end int
}

func (s *span) entity() Entity {
	return Entity{Text: s.text.String(), Type: s.typ, Begin: s.begin, End: s.end}
}

// scanState is threaded through the scan: the open span (nil if none) and the entities emitted so far.
type scanState struct {
	pending  *span
	entities []Entity
}

// accumulate folds token at position pos, with the given tag, into the pending span.
//
// A Begin always starts a fresh span. An Inside extends the open span, or opens one if there is
// none (dangling "I-"). The pending type is always overwritten: the last seen type wins.
func (st *scanState) accumulate(pos int, token string, tag Tag) {
	switch tag.Label {
	case Begin:
		st.pending = &span{begin: pos, end: pos + 1}
	case Inside:
		if st.pending == nil {
			st.pending = &span{begin: pos, end: pos + 1}
		} else {
			st.pending.end++
		}
	default:
		return
	}
	st.pending.text.WriteString(token)
	st.pending.typ = tag.Type
}

// close emits the pending span, if any.
func (st *scanState) close() {
	if st.pending == nil {
		return
	}
	st.entities = append(st.entities, st.pending.entity())
	st.pending = nil
}

// scan implements the state machine over (previous, current) tag pairs:
//
//	O -> O: nothing.
//	O -> I: tolerated, the I opens a span as if it were a B.
//	O -> B, B -> B, I -> B: close the open span (if any), the B starts a new one.
//	B -> I, I -> I: keep accumulating.
//	B -> O, I -> O: close the open span.
//
// At step idx the previous token (idx-1) is accumulated, then the current tag decides whether
// to close. The last token is only accumulated when FlushTrailing is set.
func (d Decoder) scan(tokens []string, tags []Tag) []Entity {
	var st scanState
	for idx := 1; idx < len(tokens); idx++ {
		st.accumulate(idx-1, tokens[idx-1], tags[idx-1])
		if current := tags[idx].Label; current == Outside || current == Begin {
			st.close()
		}
	}
	if d.FlushTrailing {
		last := len(tokens) - 1
		st.accumulate(last, tokens[last], tags[last])
		st.close()
	}
	return st.entities
}
