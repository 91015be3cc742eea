package fields

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/a3tai/mcp-legal-forms/internal/document"
	ferrors "github.com/a3tai/mcp-legal-forms/internal/errors"
)

var (
	checkboxPattern   = regexp.MustCompile(`\[\s*[xX✓✔✗✘*]?\s*\]`)
	underscorePattern = regexp.MustCompile(`_+`)
)

const labelDelimiters = ".,:;\n"

// labeledPattern is one label-capture expression of the labeled-field matcher
type labeledPattern struct {
	name string
	kind FieldKind
	re   *regexp.Regexp
}

var labeledPatterns = []labeledPattern{
	{name: "colon_end", kind: KindLabeledColon, re: regexp.MustCompile(`([A-Za-z\s]+):\s*$`)},
	{name: "colon_blank", kind: KindLabeledColon, re: regexp.MustCompile(`([A-Za-z\s]+):\s*_+`)},
	{name: "enter_imperative", kind: KindOtherPattern, re: regexp.MustCompile(`Enter ([A-Za-z\s]+)`)},
	{name: "required_marker", kind: KindOtherPattern, re: regexp.MustCompile(`([A-Za-z\s]+) \(required\)`)},
}

type matcherKind int

const (
	matchCheckbox matcherKind = iota
	matchBlank
	matchLabeledText
)

// Matcher is one of the fixed text matchers. The set is closed; use
// TextMatchers to obtain it.
type Matcher struct {
	kind matcherKind
	name string
}

var (
	CheckboxMatcher = Matcher{kind: matchCheckbox, name: "checkbox"}
	BlankMatcher    = Matcher{kind: matchBlank, name: "blank"}
	LabeledMatcher  = Matcher{kind: matchLabeledText, name: "labeled"}
)

// TextMatchers returns the per-fragment matchers in the order they run
func TextMatchers() []Matcher {
	return []Matcher{CheckboxMatcher, BlankMatcher, LabeledMatcher}
}

// Name identifies the matcher in logs and skip records
func (m Matcher) Name() string {
	return m.name
}

// Match returns the candidates found in one fragment. An empty result means no
// match; an error means the fragment could not be examined.
func (m Matcher) Match(f Fragment, opts Options) ([]FieldCandidate, error) {
	if !utf8.ValidString(f.Text) {
		return nil, ferrors.New(ferrors.ErrorTypeMalformedFragment, "fragment is not valid UTF-8").WithFragment(f.Index)
	}
	opts = opts.withDefaults()

	switch m.kind {
	case matchCheckbox:
		return matchCheckboxes(f), nil
	case matchBlank:
		return matchBlanks(f, opts), nil
	case matchLabeledText:
		return matchLabeled(f), nil
	default:
		return nil, fmt.Errorf("unknown matcher %q", m.name)
	}
}

// matchCheckboxes labels each bracket from the text after it, up to the next
// bracket, falling back to the text before it, back to the previous bracket
func matchCheckboxes(f Fragment) []FieldCandidate {
	spans := checkboxPattern.FindAllStringIndex(f.Text, -1)
	if len(spans) == 0 {
		return nil
	}

	out := make([]FieldCandidate, 0, len(spans))
	for i, span := range spans {
		afterEnd := len(f.Text)
		if i+1 < len(spans) {
			afterEnd = spans[i+1][0]
		}
		beforeStart := 0
		if i > 0 {
			beforeStart = spans[i-1][1]
		}

		label := firstPhrase(f.Text[span[1]:afterEnd])
		if label == "" {
			label = lastPhrase(f.Text[beforeStart:span[0]])
		}

		c := newCandidate(KindCheckbox, label, f, span[0], span[1], CheckboxMatcher.name)
		inner := strings.TrimSpace(f.Text[span[0]+1 : span[1]-1])
		c.Checked = inner != ""
		out = append(out, c)
	}
	return out
}

// firstPhrase returns the text up to the first label delimiter
func firstPhrase(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, labelDelimiters); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// lastPhrase returns the text after the last label delimiter. A delimiter at
// the very end yields no phrase.
func lastPhrase(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexAny(s, labelDelimiters); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

// matchBlanks reports underscore runs of at least MinBlankRun characters, plus
// the run holding the first BlankMarker occurrence
func matchBlanks(f Fragment, opts Options) []FieldCandidate {
	var out []FieldCandidate
	prevEnd := 0
	for _, span := range underscorePattern.FindAllStringIndex(f.Text, -1) {
		if span[1]-span[0] < opts.MinBlankRun {
			continue
		}
		out = append(out, blankCandidate(f, opts, prevEnd, span[0], span[1], BlankMatcher.name))
		prevEnd = span[1]
	}

	if i := strings.Index(f.Text, opts.BlankMarker); i >= 0 {
		start, end := i, i+len(opts.BlankMarker)
		for start > 0 && f.Text[start-1] == '_' {
			start--
		}
		for end < len(f.Text) && f.Text[end] == '_' {
			end++
		}
		labelFrom := 0
		for _, c := range out {
			if c.End <= start {
				labelFrom = c.End
			}
		}
		out = append(out, blankCandidate(f, opts, labelFrom, start, end, "blank_marker"))
	}
	return out
}

func blankCandidate(f Fragment, opts Options, labelFrom, start, end int, pattern string) FieldCandidate {
	c := newCandidate(KindUnderscoreBlank, blankLabel(f.Text[labelFrom:start], opts.LabelWords), f, start, end, pattern)
	c.Length = end - start
	return c
}

// blankLabel strips one trailing colon and keeps the last n words
func blankLabel(s string, n int) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, ":"))
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[len(words)-n:], " ")
}

// matchLabeled runs every labeled pattern in order
func matchLabeled(f Fragment) []FieldCandidate {
	var out []FieldCandidate
	for _, p := range labeledPatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(f.Text, -1) {
			label := strings.TrimSpace(f.Text[m[2]:m[3]])
			out = append(out, newCandidate(p.kind, label, f, m[0], m[1], p.name))
		}
	}
	return out
}

// CellCandidate is a table-cell field with its grid position
type CellCandidate struct {
	FieldCandidate
	Row    int
	Column int
	Cell   *document.Cell
}

// MatchTable flags cells that are empty or hold a lone blank run. The label
// comes from the first other non-blank cell of the row, then the previous
// row's text.
func MatchTable(t *document.Table, opts Options) []CellCandidate {
	opts = opts.withDefaults()
	var out []CellCandidate
	prevRowText := ""
	for r, row := range t.Rows {
		texts := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			texts[i] = Normalize(cell.Text())
		}

		for col, text := range texts {
			length, ok := blankCell(text, opts.MinBlankRun)
			if !ok {
				continue
			}

			var label string
			var others []string
			for j, other := range texts {
				if j == col {
					continue
				}
				if _, blank := blankCell(other, opts.MinBlankRun); blank {
					continue
				}
				if label == "" {
					label = other
				}
				others = append(others, other)
			}

			context := strings.Join(others, " ")
			if label == "" && prevRowText != "" {
				label = truncate(prevRowText, opts.Context.MaxLength)
			}
			if context == "" {
				context = prevRowText
			}

			f := Fragment{Text: text, Source: SourceTableCell}
			c := newCandidate(KindTableCell, label, f, 0, len(text), "table_cell")
			c.Context = truncate(context, opts.Context.MaxLength)
			c.Length = length
			out = append(out, CellCandidate{FieldCandidate: c, Row: r, Column: col, Cell: row.Cells[col]})
		}

		prevRowText = Normalize(row.Text())
	}
	return out
}

// blankCell reports whether normalized cell text is empty or a single run of at
// least minRun underscores, returning the run length
func blankCell(text string, minRun int) (int, bool) {
	if text == "" {
		return 0, true
	}
	if len(text) >= minRun && strings.Trim(text, "_") == "" {
		return len(text), true
	}
	return 0, false
}
