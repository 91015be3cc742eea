package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"strings"
	"time"
)

const (
	corePropsPart   = "docProps/core.xml"
	customPropsPart = "docProps/custom.xml"
	timeLayout      = "2006-01-02 15:04:05"
)

// readDocxMetadata reads the core and custom property parts. Missing or
// malformed parts leave the corresponding fields empty.
func readDocxMetadata(zr *zip.Reader) Metadata {
	var md Metadata

	if data, err := readZipEntry(zr, corePropsPart); err == nil {
		for name, value := range leafValues(data) {
			switch name {
			case "title":
				md.Title = value
			case "subject":
				md.Subject = value
			case "creator":
				md.Author = value
			case "keywords":
				md.Keywords = value
			case "description":
				md.Description = value
			case "category":
				md.Category = value
			case "lastModifiedBy":
				md.LastModifiedBy = value
			case "revision":
				md.Revision = value
			case "created":
				md.Created = formatW3CDTF(value)
			case "modified":
				md.Modified = formatW3CDTF(value)
			case "lastPrinted":
				md.LastPrinted = formatW3CDTF(value)
			}
		}
	}

	if data, err := readZipEntry(zr, customPropsPart); err == nil {
		md.Custom = customProperties(data)
	}
	return md
}

// leafValues maps the local name of every direct child of the root element to
// its text
func leafValues(data []byte) map[string]string {
	out := make(map[string]string)
	dec := xml.NewDecoder(bytes.NewReader(data))
	depth := 0
	var current string
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				current = t.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if depth >= 2 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 2 && current != "" {
				out[current] = strings.TrimSpace(text.String())
				current = ""
			}
			depth--
		}
	}
}

func customProperties(data []byte) map[string]string {
	out := make(map[string]string)
	dec := xml.NewDecoder(bytes.NewReader(data))
	var name string
	var text strings.Builder
	inProperty := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "property" {
				inProperty = true
				name = attrValue(t.Attr, "name")
				text.Reset()
			}
		case xml.CharData:
			if inProperty {
				text.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "property" {
				if name != "" {
					out[name] = strings.TrimSpace(text.String())
				}
				inProperty = false
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func formatW3CDTF(value string) string {
	if value == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Format(timeLayout)
		}
	}
	return value
}

// formatPDFDate converts a PDF date string (D:YYYYMMDDHHmmSS...) to the common
// layout, returning the input unchanged when it does not parse
func formatPDFDate(value string) string {
	raw := strings.TrimPrefix(strings.TrimSpace(value), "D:")
	if len(raw) < 14 {
		if len(raw) >= 8 {
			if t, err := time.Parse("20060102", raw[:8]); err == nil {
				return t.Format(timeLayout)
			}
		}
		return value
	}
	t, err := time.Parse("20060102150405", raw[:14])
	if err != nil {
		return value
	}
	return t.Format(timeLayout)
}
