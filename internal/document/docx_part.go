package document

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const (
	wordNS        = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	wordStrictNS  = "http://purl.oclc.org/ooxml/wordprocessingml/main"
	relNS         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	relStrictNS   = "http://purl.oclc.org/ooxml/officeDocument/relationships"
	markupCompNS  = "http://schemas.openxmlformats.org/markup-compatibility/2006"
	preserveSpace = ` xml:space="preserve">`
)

type pieceKind int

const (
	pieceText pieceKind = iota
	pieceTab
	pieceBreak
)

// piece is one text-bearing element of a paragraph with its byte span in the
// part it was parsed from
type piece struct {
	kind         pieceKind
	tagName      string
	selfClosing  bool
	tagStart     int
	contentStart int
	contentEnd   int
	tagEnd       int
	text         string
}

// docxPart is one XML part of the package
type docxPart struct {
	name       string
	data       []byte
	paragraphs []*Paragraph
}

// sectionRefs holds the relationship ids referenced by one w:sectPr
type sectionRefs struct {
	headers []string
	footers []string
}

// partContent is the result of scanning one part
type partContent struct {
	blocks       []Block
	tables       []*Table
	textBoxes    []*Paragraph
	controls     []ContentControl
	simpleFields []SimpleField
	instructions []string
	sections     []sectionRefs
}

type sdtState struct {
	tag      string
	inPr     bool
	text     strings.Builder
	hasValue bool
}

type fldState struct {
	instr string
	text  strings.Builder
}

// partScanner walks the token stream of one part and builds the block tree
type partScanner struct {
	part *docxPart
	dec  *xml.Decoder
	out  partContent

	cells      []*Cell
	tables     []*Table
	paragraphs []*Paragraph
	open       *piece
	textBuf    strings.Builder
	runDepth   int
	textBoxes  int
	fallback   int
	sdts       []*sdtState
	fields     []*fldState
	section    *sectionRefs
	inInstr    bool
	instrBuf   strings.Builder
}

func attrValue(attrs []xml.Attr, local string) string {
	for _, a := range attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func relID(attrs []xml.Attr) string {
	for _, a := range attrs {
		if a.Name.Local == "id" && (a.Name.Space == relNS || a.Name.Space == relStrictNS) {
			return a.Value
		}
	}
	return ""
}

// onOff reads a WordprocessingML toggle property such as w:b
func onOff(attrs []xml.Attr) bool {
	switch strings.ToLower(attrValue(attrs, "val")) {
	case "0", "false", "off", "none":
		return false
	default:
		return true
	}
}

// scanPart parses a document, header or footer part
func scanPart(part *docxPart) (*partContent, error) {
	s := &partScanner{
		part: part,
		dec:  xml.NewDecoder(bytes.NewReader(part.data)),
	}
	if err := s.run(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", part.name, err)
	}
	return &s.out, nil
}

func (s *partScanner) run() error {
	for {
		start := int(s.dec.InputOffset())
		tok, err := s.dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		end := int(s.dec.InputOffset())

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == markupCompNS && t.Name.Local == "Fallback" {
				s.fallback++
				continue
			}
			if s.fallback > 0 {
				continue
			}
			s.startElement(t, start, end)
		case xml.EndElement:
			if t.Name.Space == markupCompNS && t.Name.Local == "Fallback" {
				s.fallback--
				continue
			}
			if s.fallback > 0 {
				continue
			}
			s.endElement(t, start, end)
		case xml.CharData:
			if s.fallback > 0 {
				continue
			}
			if s.open != nil && s.open.kind == pieceText {
				s.textBuf.Write(t)
			}
			if s.inInstr {
				s.instrBuf.Write(t)
			}
		}
	}
}

func (s *partScanner) currentParagraph() *Paragraph {
	if len(s.paragraphs) == 0 {
		return nil
	}
	return s.paragraphs[len(s.paragraphs)-1]
}

func (s *partScanner) startElement(t xml.StartElement, start, end int) {
	if t.Name.Space != wordNS && t.Name.Space != wordStrictNS {
		return
	}

	switch t.Name.Local {
	case "p":
		s.paragraphs = append(s.paragraphs, &Paragraph{part: s.part})
	case "r":
		s.runDepth++
	case "t":
		if s.currentParagraph() == nil {
			return
		}
		s.open = &piece{
			kind:         pieceText,
			tagName:      rawTagName(s.part.data[start:end]),
			selfClosing:  isSelfClosing(s.part.data[start:end]),
			tagStart:     start,
			contentStart: end,
		}
		s.textBuf.Reset()
	case "tab", "br", "cr":
		if s.runDepth == 0 || s.currentParagraph() == nil {
			return
		}
		kind := pieceBreak
		if t.Name.Local == "tab" {
			kind = pieceTab
		}
		s.open = &piece{kind: kind, tagStart: start, contentStart: end}
	case "b":
		if p := s.currentParagraph(); p != nil && onOff(t.Attr) {
			p.Bold = true
		}
	case "jc":
		if p := s.currentParagraph(); p != nil && attrValue(t.Attr, "val") == "center" {
			p.Centered = true
		}
	case "pStyle":
		if p := s.currentParagraph(); p != nil {
			p.Style = attrValue(t.Attr, "val")
		}
	case "tbl":
		tbl := &Table{}
		if len(s.cells) > 0 {
			c := s.cells[len(s.cells)-1]
			c.Tables = append(c.Tables, tbl)
		} else if s.currentParagraph() == nil && s.textBoxes == 0 {
			s.out.blocks = append(s.out.blocks, tbl)
		}
		s.tables = append(s.tables, tbl)
		if s.textBoxes == 0 {
			s.out.tables = append(s.out.tables, tbl)
		}
	case "tr":
		if len(s.tables) > 0 {
			tbl := s.tables[len(s.tables)-1]
			tbl.Rows = append(tbl.Rows, &Row{})
		}
	case "tc":
		if len(s.tables) == 0 {
			return
		}
		tbl := s.tables[len(s.tables)-1]
		if len(tbl.Rows) == 0 {
			tbl.Rows = append(tbl.Rows, &Row{})
		}
		row := tbl.Rows[len(tbl.Rows)-1]
		cell := &Cell{}
		row.Cells = append(row.Cells, cell)
		s.cells = append(s.cells, cell)
	case "txbxContent":
		s.textBoxes++
	case "sdt":
		s.sdts = append(s.sdts, &sdtState{})
	case "sdtPr":
		if len(s.sdts) > 0 {
			s.sdts[len(s.sdts)-1].inPr = true
		}
	case "tag":
		if len(s.sdts) > 0 && s.sdts[len(s.sdts)-1].inPr {
			s.sdts[len(s.sdts)-1].tag = attrValue(t.Attr, "val")
		}
	case "fldSimple":
		s.fields = append(s.fields, &fldState{instr: attrValue(t.Attr, "instr")})
	case "instrText":
		s.inInstr = true
		s.instrBuf.Reset()
	case "sectPr":
		s.section = &sectionRefs{}
	case "headerReference":
		if s.section != nil {
			if id := relID(t.Attr); id != "" {
				s.section.headers = append(s.section.headers, id)
			}
		}
	case "footerReference":
		if s.section != nil {
			if id := relID(t.Attr); id != "" {
				s.section.footers = append(s.section.footers, id)
			}
		}
	}
}

func (s *partScanner) endElement(t xml.EndElement, start, end int) {
	if t.Name.Space != wordNS && t.Name.Space != wordStrictNS {
		return
	}

	switch t.Name.Local {
	case "p":
		s.closeParagraph()
	case "r":
		if s.runDepth > 0 {
			s.runDepth--
		}
	case "t", "tab", "br", "cr":
		if s.open == nil {
			return
		}
		pc := s.open
		s.open = nil
		pc.contentEnd = start
		pc.tagEnd = end
		switch pc.kind {
		case pieceText:
			pc.text = s.textBuf.String()
			for _, sdt := range s.sdts {
				if !sdt.inPr {
					sdt.text.WriteString(pc.text)
					sdt.hasValue = true
				}
			}
			for _, f := range s.fields {
				f.text.WriteString(pc.text)
			}
		case pieceTab:
			pc.text = "\t"
		case pieceBreak:
			pc.text = "\n"
		}
		p := s.currentParagraph()
		p.pieces = append(p.pieces, *pc)
	case "tc":
		if len(s.cells) > 0 {
			s.cells = s.cells[:len(s.cells)-1]
		}
	case "tbl":
		if len(s.tables) > 0 {
			s.tables = s.tables[:len(s.tables)-1]
		}
	case "txbxContent":
		if s.textBoxes > 0 {
			s.textBoxes--
		}
	case "sdtPr":
		if len(s.sdts) > 0 {
			s.sdts[len(s.sdts)-1].inPr = false
		}
	case "sdt":
		if len(s.sdts) == 0 {
			return
		}
		sdt := s.sdts[len(s.sdts)-1]
		s.sdts = s.sdts[:len(s.sdts)-1]
		if sdt.hasValue {
			s.out.controls = append(s.out.controls, ContentControl{Tag: sdt.tag, Text: sdt.text.String()})
		}
	case "fldSimple":
		if len(s.fields) == 0 {
			return
		}
		f := s.fields[len(s.fields)-1]
		s.fields = s.fields[:len(s.fields)-1]
		s.out.simpleFields = append(s.out.simpleFields, SimpleField{Instruction: f.instr, Text: f.text.String()})
	case "instrText":
		if s.inInstr {
			s.inInstr = false
			if instr := strings.TrimSpace(s.instrBuf.String()); instr != "" {
				s.out.instructions = append(s.out.instructions, instr)
			}
		}
	case "sectPr":
		if s.section != nil {
			s.out.sections = append(s.out.sections, *s.section)
			s.section = nil
		}
	}
}

func (s *partScanner) closeParagraph() {
	n := len(s.paragraphs)
	if n == 0 {
		return
	}
	p := s.paragraphs[n-1]
	s.paragraphs = s.paragraphs[:n-1]

	var b strings.Builder
	for _, pc := range p.pieces {
		b.WriteString(pc.text)
	}
	p.text = b.String()
	s.part.paragraphs = append(s.part.paragraphs, p)

	switch {
	case s.textBoxes > 0 || len(s.paragraphs) > 0:
		s.out.textBoxes = append(s.out.textBoxes, p)
	case len(s.cells) > 0:
		c := s.cells[len(s.cells)-1]
		c.Paragraphs = append(c.Paragraphs, p)
	default:
		s.out.blocks = append(s.out.blocks, p)
	}
}

// rawTagName returns the qualified name as written in the start tag, e.g. "w:t"
func rawTagName(tag []byte) string {
	name := strings.TrimPrefix(string(tag), "<")
	if i := strings.IndexAny(name, " \t\r\n/>"); i >= 0 {
		name = name[:i]
	}
	return name
}

func isSelfClosing(tag []byte) bool {
	return bytes.HasSuffix(bytes.TrimRight(tag, " \t\r\n"), []byte("/>"))
}
