package fields

import (
	"fmt"
	"log/slog"
	"sort"
	"unicode/utf8"

	"github.com/a3tai/mcp-legal-forms/internal/document"
	ferrors "github.com/a3tai/mcp-legal-forms/internal/errors"
)

// Detector finds field candidates in documents. It holds no per-document state
// and is safe for concurrent use.
type Detector struct {
	opts   Options
	logger *slog.Logger
}

// NewDetector creates a detector. A nil logger uses slog.Default.
func NewDetector(opts Options, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{opts: opts.withDefaults(), logger: logger}
}

// Options returns the effective detector settings
func (d *Detector) Options() Options {
	return d.opts
}

// flattened is a document reduced to fragments plus the fragment position of
// every table cell
type flattened struct {
	fragments []Fragment
	headers   []Header
	tables    []*document.Table
	anchors   map[*document.Cell]int
}

// Flatten turns the document body into normalized fragments and identifies
// headers. Table cell paragraphs are included in document order.
func (d *Detector) Flatten(doc *document.Document) ([]Fragment, []Header) {
	fl := d.flatten(doc)
	return fl.fragments, fl.headers
}

func (d *Detector) flatten(doc *document.Document) *flattened {
	fl := &flattened{anchors: make(map[*document.Cell]int)}

	addParagraph := func(p *document.Paragraph, source FragmentSource) {
		text := Normalize(p.Text())
		if text == "" {
			return
		}
		f := Fragment{
			Index:    len(fl.fragments),
			Text:     text,
			Source:   source,
			Bold:     p.Bold,
			Centered: p.Centered,
		}
		fl.fragments = append(fl.fragments, f)
		if (p.Bold || p.Centered) && utf8.RuneCountInString(text) >= d.opts.HeaderMinLength {
			fl.headers = append(fl.headers, Header{Text: text, Index: f.Index})
		}
	}

	var walkTable func(t *document.Table)
	walkTable = func(t *document.Table) {
		fl.tables = append(fl.tables, t)
		for _, row := range t.Rows {
			for _, cell := range row.Cells {
				fl.anchors[cell] = len(fl.fragments)
				for _, p := range cell.Paragraphs {
					addParagraph(p, SourceTableCell)
				}
				for _, nested := range cell.Tables {
					walkTable(nested)
				}
			}
		}
	}

	for _, b := range doc.Body {
		switch v := b.(type) {
		case *document.Paragraph:
			addParagraph(v, SourceParagraph)
		case *document.Table:
			walkTable(v)
		}
	}
	return fl
}

type positioned struct {
	key       int
	candidate FieldCandidate
}

type spanKey struct {
	fragment, start, end int
}

// Detect runs every matcher over the document. Matcher failures are logged and
// recorded in Skipped; only a missing document is an error.
func (d *Detector) Detect(doc *document.Document) (*FormDocument, error) {
	if doc == nil {
		return nil, ferrors.New(ferrors.ErrorTypeUnreadableDocument, "no document to analyze")
	}

	fl := d.flatten(doc)
	result := &FormDocument{
		Source:  doc.Path,
		Headers: fl.headers,
		Fields:  []FieldCandidate{},
	}
	if result.Headers == nil {
		result.Headers = []Header{}
	}

	if len(fl.fragments) == 0 && len(fl.tables) == 0 {
		result.Skipped = append(result.Skipped, SkippedMatch{
			FragmentIndex: -1,
			Type:          ferrors.ErrorTypeMissingContent,
			Reason:        "document has no extractable text or tables",
		})
		d.logger.Info("document has no content", "path", doc.Path)
		return result, nil
	}

	var found []positioned

	for _, f := range fl.fragments {
		var context string
		for _, m := range TextMatchers() {
			cands, err := d.runMatcher(m, f)
			if err != nil {
				d.skip(result, doc.Path, f.Index, m.Name(), err)
				continue
			}
			if len(cands) > 0 && context == "" {
				context = ResolveContext(f.Index, fl.fragments, fl.headers, d.opts.Context)
			}
			for _, c := range cands {
				c.Context = context
				found = append(found, positioned{key: f.Index*2 + 1, candidate: c})
			}
		}
	}

	for _, t := range fl.tables {
		cells, err := d.runTableMatcher(t)
		if err != nil {
			d.skip(result, doc.Path, -1, "table_cell", err)
			continue
		}
		for _, cc := range cells {
			c := cc.FieldCandidate
			anchor := fl.anchors[cc.Cell]
			c.FragmentIndex = anchor
			if c.Context == "" {
				c.Context = ResolveContext(anchor, fl.fragments, fl.headers, d.opts.Context)
			}
			found = append(found, positioned{key: anchor * 2, candidate: c})
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].key < found[j].key })

	seen := make(map[spanKey]bool)
	for _, p := range found {
		c := p.candidate
		if c.Kind == KindUnderscoreBlank {
			k := spanKey{c.FragmentIndex, c.Start, c.End}
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		result.Fields = append(result.Fields, c)
	}

	d.logger.Debug("detection complete",
		"path", doc.Path,
		"fragments", len(fl.fragments),
		"headers", len(fl.headers),
		"fields", len(result.Fields),
		"skipped", len(result.Skipped))
	return result, nil
}

func (d *Detector) runMatcher(m Matcher, f Fragment) (cands []FieldCandidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ferrors.New(ferrors.ErrorTypeMalformedFragment, fmt.Sprintf("matcher panicked: %v", r)).WithFragment(f.Index)
		}
	}()
	return m.Match(f, d.opts)
}

func (d *Detector) runTableMatcher(t *document.Table) (cells []CellCandidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ferrors.New(ferrors.ErrorTypeMalformedFragment, fmt.Sprintf("table matcher panicked: %v", r))
		}
	}()
	return MatchTable(t, d.opts), nil
}

func (d *Detector) skip(result *FormDocument, path string, index int, matcher string, err error) {
	d.logger.Warn("skipping malformed fragment",
		"path", path,
		"fragment", index,
		"matcher", matcher,
		"error", err)

	errType := ferrors.TypeOf(err)
	if errType == ferrors.ErrorTypeUnknown {
		errType = ferrors.ErrorTypeMalformedFragment
	}
	result.Skipped = append(result.Skipped, SkippedMatch{
		FragmentIndex: index,
		Matcher:       matcher,
		Type:          errType,
		Reason:        err.Error(),
	})
}
