// Package doccano converts decoded entities to doccano's JSON-lines annotation format:
//
//	{"id": 1, "text": "...", "entities": [{"entity": "...", "id": 1, "label": "LOC", "start_offset": 0, "end_offset": 2}], "relations": []}
//
// How the text is joined, the base of the offsets and the numbering of ids are explicit Options.
package doccano

import (
	"strings"

	"github.com/nerkit/biospans/bio"
	"github.com/pkg/errors"
)

// ErrInvalidOption is returned when parsing an unknown option value.
var ErrInvalidOption = errors.New("invalid option")

// TextJoin is how the tokens of a sentence are joined into the record text.
type TextJoin int

const (
	// Concatenate tokens with no separator, for character level corpora (e.g. Chinese).
	Concatenate TextJoin = iota

	// SpaceJoined joins tokens with a space, for word level corpora.
	SpaceJoined
)

// ParseTextJoin parses "concatenate" or "space".
func ParseTextJoin(s string) (TextJoin, error) {
	switch s {
	case "concatenate":
		return Concatenate, nil
	case "space":
		return SpaceJoined, nil
	}
	return 0, errors.Wrapf(ErrInvalidOption, "text join %q, valid values are \"concatenate\" and \"space\"", s)
}

// String returns the value parsed by ParseTextJoin.
func (j TextJoin) String() string {
	if j == SpaceJoined {
		return "space"
	}
	return "concatenate"
}

func (j TextJoin) separator() string {
	if j == SpaceJoined {
		return " "
	}
	return ""
}

// IDNumbering is the scope of record and entity ids.
type IDNumbering int

const (
	// Global ids keep incrementing across splits.
	Global IDNumbering = iota

	// PerSplit ids restart at 1 for every split.
	PerSplit
)

// ParseIDNumbering parses "global" or "split".
func ParseIDNumbering(s string) (IDNumbering, error) {
	switch s {
	case "global":
		return Global, nil
	case "split":
		return PerSplit, nil
	}
	return 0, errors.Wrapf(ErrInvalidOption, "id numbering %q, valid values are \"global\" and \"split\"", s)
}

// String returns the value parsed by ParseIDNumbering.
func (n IDNumbering) String() string {
	if n == PerSplit {
		return "split"
	}
	return "global"
}

// Options of the conversion.
type Options struct {
	TextJoin TextJoin

	// OffsetBase is added to the 0-based token positions of the entities: 0 or 1.
	OffsetBase int

	IDNumbering IDNumbering
}

// Validate returns an error if OffsetBase is not 0 or 1.
func (o Options) Validate() error {
	if o.OffsetBase != 0 && o.OffsetBase != 1 {
		return errors.Wrapf(ErrInvalidOption, "offset base %d, valid values are 0 and 1", o.OffsetBase)
	}
	return nil
}

// Entity is an entity of a Record.
type Entity struct {
	Entity      string `json:"entity" parquet:"entity"`
	ID          int    `json:"id" parquet:"id"`
	Label       string `json:"label" parquet:"label"`
	StartOffset int    `json:"start_offset" parquet:"start_offset"`
	EndOffset   int    `json:"end_offset" parquet:"end_offset"`
}

// Relation between two entities of a Record. The converter never produces any.
type Relation struct {
	ID     int    `json:"id" parquet:"id"`
	FromID int    `json:"from_id" parquet:"from_id"`
	ToID   int    `json:"to_id" parquet:"to_id"`
	Type   string `json:"type" parquet:"type"`
}

// Record is one annotated sentence.
type Record struct {
	ID        int        `json:"id" parquet:"id"`
	Text      string     `json:"text" parquet:"text"`
	Entities  []Entity   `json:"entities" parquet:"entities"`
	Relations []Relation `json:"relations" parquet:"relations"`
}

// Counter assigns record and entity ids, starting at 1.
type Counter struct {
	items, entities int
}

// NextItem returns the next record id.
func (c *Counter) NextItem() int {
	c.items++
	return c.items
}

// NextEntity returns the next entity id.
func (c *Counter) NextEntity() int {
	c.entities++
	return c.entities
}

// Items returns the last record id assigned.
func (c *Counter) Items() int { return c.items }

// Entities returns the last entity id assigned.
func (c *Counter) Entities() int { return c.entities }

// Reset restarts the numbering.
func (c *Counter) Reset() {
	c.items, c.entities = 0, 0
}

// Builder builds records from sentences and their decoded entities.
type Builder struct {
	Options Options
	Counter *Counter
}

// NewBuilder returns a Builder with a new Counter.
func NewBuilder(opts Options) (*Builder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Builder{Options: opts, Counter: &Counter{}}, nil
}

// StartSplit must be called before the records of each split: it restarts the ids with PerSplit numbering.
func (b *Builder) StartSplit() {
	if b.Options.IDNumbering == PerSplit {
		b.Counter.Reset()
	}
}

// Build returns the record for the tokens of a sentence and its entities.
func (b *Builder) Build(tokens []string, entities []bio.Entity) Record {
	record := Record{
		ID:        b.Counter.NextItem(),
		Text:      strings.Join(tokens, b.Options.TextJoin.separator()),
		Entities:  make([]Entity, 0, len(entities)),
		Relations: []Relation{},
	}
	for _, e := range entities {
		record.Entities = append(record.Entities, Entity{
			Entity:      e.Text,
			ID:          b.Counter.NextEntity(),
			Label:       e.Type,
			StartOffset: e.Begin + b.Options.OffsetBase,
			EndOffset:   e.End + b.Options.OffsetBase,
		})
	}
	return record
}
