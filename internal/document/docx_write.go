package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ferrors "github.com/a3tai/mcp-legal-forms/internal/errors"
)

var (
	// ErrReadOnly is returned by SetText on paragraphs that cannot be written back
	ErrReadOnly = errors.New("paragraph is read-only")
	// ErrNoTextRun is returned by SetText when the paragraph has no w:t element to carry text
	ErrNoTextRun = errors.New("paragraph has no text run")
)

// SetText replaces the paragraph text. The first run keeps its formatting and
// receives the whole text; the remaining runs are emptied.
func (p *Paragraph) SetText(text string) error {
	if p.part == nil {
		return ErrReadOnly
	}
	if text == p.text {
		return nil
	}
	if p.carrier() < 0 {
		return ErrNoTextRun
	}
	p.text = text
	p.edited = true
	return nil
}

func (p *Paragraph) carrier() int {
	for i, pc := range p.pieces {
		if pc.kind == pieceText && !pc.selfClosing {
			return i
		}
	}
	return -1
}

type splice struct {
	start, end int
	repl       string
}

// render produces the part bytes with every edited paragraph applied
func (part *docxPart) render() ([]byte, bool) {
	var edits []splice
	for _, p := range part.paragraphs {
		if p.edited {
			edits = append(edits, p.splices()...)
		}
	}
	if len(edits) == 0 {
		return nil, false
	}

	sort.SliceStable(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var out bytes.Buffer
	out.Grow(len(part.data))
	pos := 0
	for _, e := range edits {
		out.Write(part.data[pos:e.start])
		out.WriteString(e.repl)
		pos = e.end
	}
	out.Write(part.data[pos:])
	return out.Bytes(), true
}

func (p *Paragraph) splices() []splice {
	c := p.carrier()
	if c < 0 {
		return nil
	}
	carrier := p.pieces[c]
	prefix := ""
	if i := strings.Index(carrier.tagName, ":"); i >= 0 {
		prefix = carrier.tagName[:i+1]
	}

	var out []splice
	for i, pc := range p.pieces {
		switch {
		case i == c:
			out = append(out, splice{
				start: pc.tagStart,
				end:   pc.contentEnd,
				repl:  "<" + pc.tagName + preserveSpace + encodeRunText(p.text, pc.tagName, prefix),
			})
		case pc.kind == pieceText && !pc.selfClosing:
			out = append(out, splice{start: pc.contentStart, end: pc.contentEnd})
		case pc.kind == pieceTab || pc.kind == pieceBreak:
			out = append(out, splice{start: pc.tagStart, end: pc.tagEnd})
		}
	}
	return out
}

// encodeRunText escapes text for a w:t element, turning tabs and newlines into
// w:tab and w:br siblings inside the same run
func encodeRunText(text, tagName, prefix string) string {
	var b strings.Builder
	reopen := "</" + tagName + "><" + prefix + "%s/><" + tagName + preserveSpace
	seg := 0
	flush := func(end int) {
		if end > seg {
			_ = xml.EscapeText(&b, []byte(text[seg:end]))
		}
	}
	for i, r := range text {
		var elem string
		switch r {
		case '\t':
			elem = "tab"
		case '\n':
			elem = "br"
		default:
			continue
		}
		flush(i)
		b.WriteString(strings.Replace(reopen, "%s", elem, 1))
		seg = i + 1
	}
	flush(len(text))
	return b.String()
}

// Save writes the document with every edited paragraph to path, creating
// missing parent directories. Untouched package entries are copied as is.
func (d *Document) Save(path string) error {
	if !d.Writable() {
		return ferrors.New(ferrors.ErrorTypeUnsupportedFormat, "only DOCX documents can be saved").WithPath(path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ferrors.Wrap(ferrors.ErrorTypeWriteFailure, "cannot create output directory", err).WithPath(path)
	}

	rendered := make(map[string][]byte)
	for _, part := range d.archive.parts {
		if data, changed := part.render(); changed {
			rendered[part.name] = data
		}
	}

	tmp, err := os.CreateTemp(dir, ".form-*.docx")
	if err != nil {
		return ferrors.Wrap(ferrors.ErrorTypeWriteFailure, "cannot create output file", err).WithPath(path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := d.archive.write(tmp, rendered); err != nil {
		tmp.Close()
		return ferrors.Wrap(ferrors.ErrorTypeWriteFailure, "cannot write document", err).WithPath(path)
	}
	if err := tmp.Close(); err != nil {
		return ferrors.Wrap(ferrors.ErrorTypeWriteFailure, "cannot write document", err).WithPath(path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return ferrors.Wrap(ferrors.ErrorTypeWriteFailure, "cannot move document into place", err).WithPath(path)
	}
	return nil
}

func (a *docxArchive) write(f *os.File, rendered map[string][]byte) error {
	zw := zip.NewWriter(f)
	for _, entry := range a.zr.File {
		data, ok := rendered[entry.Name]
		if !ok {
			if err := zw.Copy(entry); err != nil {
				return err
			}
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry.Name,
			Method:   zip.Deflate,
			Modified: entry.Modified,
		})
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return zw.Close()
}
