// Package fields detects fillable fields in legal form documents and rewrites
// blank lines and checkboxes into placeholder tokens.
package fields

import (
	ferrors "github.com/a3tai/mcp-legal-forms/internal/errors"
)

// FragmentSource records where a fragment was flattened from
type FragmentSource string

const (
	SourceParagraph FragmentSource = "paragraph"
	SourceTableCell FragmentSource = "table_cell"
)

// Fragment is one normalized unit of document text with its position in the
// flattened sequence
type Fragment struct {
	Index    int            `json:"index"`
	Text     string         `json:"text"`
	Source   FragmentSource `json:"source"`
	Bold     bool           `json:"bold,omitempty"`
	Centered bool           `json:"centered,omitempty"`
}

// Header is a fragment identified as a section title
type Header struct {
	Text  string `json:"text" yaml:"text"`
	Index int    `json:"index" yaml:"index"`
}

// FieldKind is the closed set of detected field types
type FieldKind string

const (
	KindCheckbox        FieldKind = "checkbox"
	KindUnderscoreBlank FieldKind = "underscore_blank"
	KindLabeledColon    FieldKind = "labeled_colon"
	KindTableCell       FieldKind = "table_cell"
	KindOtherPattern    FieldKind = "other_pattern"
)

// Label sentinels used when no label can be inferred
const (
	UnlabeledCheckbox = "Unlabeled checkbox"
	UnlabeledField    = "Unlabeled field"
)

// Kinds lists every field kind in reporting order
func Kinds() []FieldKind {
	return []FieldKind{KindCheckbox, KindUnderscoreBlank, KindLabeledColon, KindTableCell, KindOtherPattern}
}

// Valid reports whether k is one of the known kinds
func (k FieldKind) Valid() bool {
	switch k {
	case KindCheckbox, KindUnderscoreBlank, KindLabeledColon, KindTableCell, KindOtherPattern:
		return true
	default:
		return false
	}
}

// DisplayName is the human-readable kind used in text reports
func (k FieldKind) DisplayName() string {
	switch k {
	case KindCheckbox:
		return "Checkbox"
	case KindUnderscoreBlank:
		return "Underscore Field"
	case KindLabeledColon:
		return "Labeled Field"
	case KindTableCell:
		return "Table Field"
	case KindOtherPattern:
		return "Other Field"
	default:
		return "Field"
	}
}

// sentinel returns the fallback label for the kind
func (k FieldKind) sentinel() string {
	if k == KindCheckbox {
		return UnlabeledCheckbox
	}
	return UnlabeledField
}

// FieldCandidate is one detected field occurrence. Start and End are byte
// offsets into SourceText. For table cells FragmentIndex is the position the
// cell occupies in the fragment sequence; an empty cell emits no fragment, so
// it shares the index of the next fragment.
type FieldCandidate struct {
	Kind          FieldKind `json:"kind" yaml:"kind"`
	Label         string    `json:"label" yaml:"label"`
	Context       string    `json:"context" yaml:"context"`
	SourceText    string    `json:"source_text" yaml:"source_text"`
	Length        int       `json:"length,omitempty" yaml:"length,omitempty"`
	Pattern       string    `json:"pattern" yaml:"pattern"`
	FragmentIndex int       `json:"fragment_index" yaml:"fragment_index"`
	Start         int       `json:"start" yaml:"start"`
	End           int       `json:"end" yaml:"end"`
	Checked       bool      `json:"checked,omitempty" yaml:"checked,omitempty"`
	Unlabeled     bool      `json:"unlabeled,omitempty" yaml:"unlabeled,omitempty"`
}

// newCandidate builds a candidate, applying the kind's sentinel when label is
// empty
func newCandidate(kind FieldKind, label string, f Fragment, start, end int, pattern string) FieldCandidate {
	c := FieldCandidate{
		Kind:          kind,
		Label:         label,
		SourceText:    f.Text,
		Pattern:       pattern,
		FragmentIndex: f.Index,
		Start:         start,
		End:           end,
	}
	if c.Label == "" {
		c.Label = kind.sentinel()
		c.Unlabeled = true
	}
	return c
}

// SkippedMatch records a matcher failure or a document-level note that did not
// abort detection
type SkippedMatch struct {
	FragmentIndex int               `json:"fragment_index"`
	Matcher       string            `json:"matcher,omitempty"`
	Type          ferrors.ErrorType `json:"type"`
	Reason        string            `json:"reason"`
}

// FormDocument is the result of one detection run, in document order
type FormDocument struct {
	Source  string           `json:"source"`
	Headers []Header         `json:"headers"`
	Fields  []FieldCandidate `json:"fields"`
	Skipped []SkippedMatch   `json:"skipped,omitempty"`
}

// ByKind returns the candidates of one kind in first-seen order
func (d *FormDocument) ByKind(kind FieldKind) []FieldCandidate {
	var out []FieldCandidate
	for _, f := range d.Fields {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// Counts returns the number of candidates per kind
func (d *FormDocument) Counts() map[FieldKind]int {
	counts := make(map[FieldKind]int, len(Kinds()))
	for _, f := range d.Fields {
		counts[f.Kind]++
	}
	return counts
}

// Options are the tunable heuristics of the detector. Zero values fall back to
// the defaults.
type Options struct {
	// LabelWords is the number of trailing words kept for blank-field labels.
	LabelWords int
	// MinBlankRun is the shortest underscore run reported as a blank field.
	MinBlankRun int
	// BlankMarker triggers the secondary blank-field rule.
	BlankMarker string
	// HeaderMinLength is the minimum rune count of a header paragraph.
	HeaderMinLength int
	Context         ContextOptions
}

const (
	DefaultLabelWords      = 3
	DefaultMinBlankRun     = 3
	DefaultBlankMarker     = "______"
	DefaultHeaderMinLength = 4
)

// DefaultOptions returns the standard heuristic settings
func DefaultOptions() Options {
	return Options{
		LabelWords:      DefaultLabelWords,
		MinBlankRun:     DefaultMinBlankRun,
		BlankMarker:     DefaultBlankMarker,
		HeaderMinLength: DefaultHeaderMinLength,
		Context:         DefaultContextOptions(),
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.LabelWords <= 0 {
		o.LabelWords = def.LabelWords
	}
	if o.MinBlankRun <= 0 {
		o.MinBlankRun = def.MinBlankRun
	}
	if o.BlankMarker == "" {
		o.BlankMarker = def.BlankMarker
	}
	if o.HeaderMinLength <= 0 {
		o.HeaderMinLength = def.HeaderMinLength
	}
	o.Context = o.Context.withDefaults()
	return o
}
