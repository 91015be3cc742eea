package document

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-legal-forms/internal/document/docxtest"
	ferrors "github.com/a3tai/mcp-legal-forms/internal/errors"
)

func TestReadDocx_Structure(t *testing.T) {
	data := docxtest.New().
		Bold("GENERAL INFORMATION").
		Centered("Petition for Custody").
		Paragraph("Case Number: ", "_____").
		Table([]string{"Name:", ""}, []string{"Date of Birth", "___"}).
		Header("Page header ____").
		Footer("Footer [ ]").
		Bytes()

	doc, err := ReadDocx(data, "form.docx")
	require.NoError(t, err)

	assert.Equal(t, FormatDocx, doc.Format)
	assert.True(t, doc.Writable())
	require.Len(t, doc.Body, 4)

	paras := doc.Paragraphs()
	require.Len(t, paras, 3)
	assert.True(t, paras[0].Bold)
	assert.False(t, paras[0].Centered)
	assert.True(t, paras[1].Centered)
	assert.Equal(t, "Case Number: _____", paras[2].Text())

	tables := doc.Tables()
	require.Len(t, tables, 1)
	require.Len(t, tables[0].Rows, 2)
	assert.Equal(t, "Name:", tables[0].Rows[0].Cells[0].Text())
	assert.Equal(t, "", tables[0].Rows[0].Cells[1].Text())
	assert.Equal(t, "Date of Birth ___", tables[0].Rows[1].Text())

	require.Len(t, doc.Sections, 1)
	require.Len(t, doc.Sections[0].Headers, 1)
	require.Len(t, doc.Sections[0].Footers, 1)
	assert.Equal(t, "Page header ____", doc.Sections[0].Headers[0].Text())
	assert.Equal(t, "Footer [ ]", doc.Sections[0].Footers[0].Text())
}

func TestReadDocx_RunContent(t *testing.T) {
	data := docxtest.New().
		Raw(`<w:p><w:r><w:t>A</w:t><w:tab/><w:t>B</w:t><w:br/><w:t>C</w:t></w:r></w:p>`).
		Raw(`<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t>Only</w:t></w:r></w:p>`).
		Raw(`<w:p><w:r><w:rPr><w:b w:val="0"/></w:rPr><w:t>Plain</w:t></w:r></w:p>`).
		Bytes()

	doc, err := ReadDocx(data, "runs.docx")
	require.NoError(t, err)

	paras := doc.Paragraphs()
	require.Len(t, paras, 3)
	assert.Equal(t, "A\tB\nC", paras[0].Text())
	assert.Equal(t, "Only", paras[1].Text())
	assert.False(t, paras[2].Bold)
}

func TestReadDocx_NestedTablesAndTextBoxes(t *testing.T) {
	data := docxtest.New().
		Raw(`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Outer</w:t></w:r></w:p>` +
			`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Inner</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
			`</w:tc></w:tr></w:tbl>`).
		Raw(`<w:p><w:r><w:t>Anchor</w:t><w:pict><v:shape xmlns:v="urn:schemas-microsoft-com:vml"><v:textbox>` +
			`<w:txbxContent><w:p><w:r><w:t>Boxed text</w:t></w:r></w:p></w:txbxContent>` +
			`</v:textbox></v:shape></w:pict></w:r></w:p>`).
		Bytes()

	doc, err := ReadDocx(data, "nested.docx")
	require.NoError(t, err)

	tables := doc.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, "Outer", tables[0].Rows[0].Cells[0].Text())
	assert.Equal(t, "Inner", tables[1].Rows[0].Cells[0].Text())
	require.Len(t, tables[0].Rows[0].Cells[0].Tables, 1)

	paras := doc.Paragraphs()
	require.Len(t, paras, 1)
	assert.Equal(t, "Anchor", paras[0].Text())
	require.Len(t, doc.TextBoxes, 1)
	assert.Equal(t, "Boxed text", doc.TextBoxes[0].Text())
}

func TestReadDocx_ControlsAndFields(t *testing.T) {
	data := docxtest.New().
		Raw(`<w:sdt><w:sdtPr><w:tag w:val="client"/></w:sdtPr><w:sdtContent>` +
			`<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p></w:sdtContent></w:sdt>`).
		Raw(`<w:p><w:fldSimple w:instr=" DATE "><w:r><w:t>1/1/2024</w:t></w:r></w:fldSimple></w:p>`).
		Raw(`<w:p><w:r><w:instrText> MERGEFIELD Client </w:instrText></w:r></w:p>`).
		Bytes()

	doc, err := ReadDocx(data, "controls.docx")
	require.NoError(t, err)

	require.Len(t, doc.ContentControls, 1)
	assert.Equal(t, ContentControl{Tag: "client", Text: "Jane Doe"}, doc.ContentControls[0])
	require.Len(t, doc.SimpleFields, 1)
	assert.Equal(t, "1/1/2024", doc.SimpleFields[0].Text)
	assert.Equal(t, []string{"MERGEFIELD Client"}, doc.FieldInstructions)

	text := doc.Text()
	assert.Contains(t, text, "client: Jane Doe")
	assert.Contains(t, text, "DATE: 1/1/2024")
	assert.Contains(t, text, "MERGEFIELD Client")
}

func TestReadDocx_Metadata(t *testing.T) {
	data := docxtest.New().
		Paragraph("Body").
		Core("dc:title", "Petition").
		Core("dc:creator", "Clerk").
		Core("cp:lastModifiedBy", "Paralegal").
		Core("dcterms:modified", "2024-03-01T10:00:00Z").
		Custom("CaseType", "Family").
		Bytes()

	doc, err := ReadDocx(data, "meta.docx")
	require.NoError(t, err)

	md := doc.Metadata
	assert.Equal(t, "Petition", md.Title)
	assert.Equal(t, "Clerk", md.Author)
	assert.Equal(t, "Paralegal", md.LastModifiedBy)
	assert.Equal(t, "2024-03-01 10:00:00", md.Modified)
	assert.Equal(t, map[string]string{"CaseType": "Family"}, md.Custom)
}

func TestReadDocx_Invalid(t *testing.T) {
	_, err := ReadDocx([]byte("not a zip"), "bad.docx")
	require.Error(t, err)
	assert.True(t, ferrors.IsType(err, ferrors.ErrorTypeUnreadableDocument))
}

func TestSetTextAndSave(t *testing.T) {
	dir := t.TempDir()
	src := docxtest.New().
		Paragraph("Name: ", "_____").
		Paragraph("Untouched [ ] box").
		Header("Header ____").
		Write(t, dir, "in.docx")

	doc, err := Open(src, Options{})
	require.NoError(t, err)

	paras := doc.Paragraphs()
	require.NoError(t, paras[0].SetText("Name: $Line"))
	assert.True(t, paras[0].Edited())
	require.NoError(t, paras[1].SetText(paras[1].Text()))
	assert.False(t, paras[1].Edited())
	require.NoError(t, doc.Sections[0].Headers[0].SetText("Header\t<$Line>"))

	out := filepath.Join(dir, "nested", "out", "form.docx")
	require.NoError(t, doc.Save(out))

	reopened, err := Open(out, Options{})
	require.NoError(t, err)
	got := reopened.Paragraphs()
	assert.Equal(t, "Name: $Line", got[0].Text())
	assert.Equal(t, "Untouched [ ] box", got[1].Text())
	assert.Equal(t, "Header\t<$Line>", reopened.Sections[0].Headers[0].Text())

	xml := docxtest.ReadPart(t, out, "word/document.xml")
	assert.Contains(t, xml, `<w:t xml:space="preserve">Name: $Line</w:t>`)
	headerXML := docxtest.ReadPart(t, out, "word/header1.xml")
	assert.Contains(t, headerXML, "&lt;$Line&gt;")
	assert.Contains(t, headerXML, "<w:tab/>")

	// the source file is left alone
	original, err := Open(src, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Name: _____", original.Paragraphs()[0].Text())
}

func TestSetText_Errors(t *testing.T) {
	readOnly := &Paragraph{text: "pdf line"}
	assert.ErrorIs(t, readOnly.SetText("x"), ErrReadOnly)

	data := docxtest.New().Raw(`<w:p><w:r><w:tab/></w:r></w:p>`).Bytes()
	doc, err := ReadDocx(data, "tab.docx")
	require.NoError(t, err)
	assert.ErrorIs(t, doc.Paragraphs()[0].SetText("text"), ErrNoTextRun)
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "notes.txt"), Options{})
	assert.True(t, ferrors.IsType(err, ferrors.ErrorTypeUnsupportedFormat))

	_, err = Open(filepath.Join(dir, "missing.docx"), Options{})
	assert.True(t, ferrors.IsType(err, ferrors.ErrorTypeUnreadableDocument))

	big := docxtest.New().Paragraph("x").Write(t, dir, "big.docx")
	_, err = Open(big, Options{MaxFileSize: 10})
	assert.True(t, ferrors.IsType(err, ferrors.ErrorTypeFileTooLarge))

	pdfDoc := &Document{Format: FormatPDF}
	err = pdfDoc.Save(filepath.Join(dir, "out.pdf"))
	assert.True(t, ferrors.IsType(err, ferrors.ErrorTypeUnsupportedFormat))
}

func TestSave_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	src := docxtest.New().Paragraph("x").Write(t, dir, "in.docx")
	doc, err := Open(src, Options{})
	require.NoError(t, err)

	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err = doc.Save(filepath.Join(blocker, "out.docx"))
	require.Error(t, err)
	var fe *ferrors.FormError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, ferrors.ErrorTypeWriteFailure, fe.Type)
}

func TestFormatOf(t *testing.T) {
	f, ok := FormatOf("A.DOCX")
	assert.True(t, ok)
	assert.Equal(t, FormatDocx, f)
	f, ok = FormatOf("scan.pdf")
	assert.True(t, ok)
	assert.Equal(t, FormatPDF, f)
	_, ok = FormatOf("form.doc")
	assert.False(t, ok)
}

func TestFormatPDFDate(t *testing.T) {
	assert.Equal(t, "2024-01-02 03:04:05", formatPDFDate("D:20240102030405+00'00'"))
	assert.Equal(t, "2024-01-02 00:00:00", formatPDFDate("D:20240102"))
	assert.Equal(t, "garbage", formatPDFDate("garbage"))
}
