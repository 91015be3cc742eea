package fields

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const noContext = "No context"

// ReportItem is one line of a field report
type ReportItem struct {
	Type    string `json:"type" yaml:"type"`
	Label   string `json:"label" yaml:"label"`
	Length  *int   `json:"length,omitempty" yaml:"length,omitempty"`
	Context string `json:"context" yaml:"context"`
}

// Report is the serializable form of a FormDocument
type Report struct {
	Source  string       `json:"source" yaml:"source"`
	Headers []string     `json:"headers" yaml:"headers"`
	Fields  []ReportItem `json:"fields" yaml:"fields"`
}

// ReportFormat selects a report writer
type ReportFormat string

const (
	FormatText ReportFormat = "text"
	FormatJSON ReportFormat = "json"
	FormatYAML ReportFormat = "yaml"
)

// ParseReportFormat accepts text, json, yaml or yml
func ParseReportFormat(s string) (ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// Report lists every field in document order
func (d *FormDocument) Report() Report {
	r := Report{
		Source:  d.Source,
		Headers: make([]string, 0, len(d.Headers)),
		Fields:  make([]ReportItem, 0, len(d.Fields)),
	}
	for _, h := range d.Headers {
		r.Headers = append(r.Headers, h.Text)
	}
	for _, f := range d.Fields {
		item := ReportItem{
			Type:    f.Kind.DisplayName(),
			Label:   f.Label,
			Context: f.Context,
		}
		if f.Length > 0 {
			length := f.Length
			item.Length = &length
		}
		if item.Context == "" {
			item.Context = noContext
		}
		r.Fields = append(r.Fields, item)
	}
	return r
}

// WriteReport renders the document's report in the given format
func WriteReport(w io.Writer, d *FormDocument, format ReportFormat) error {
	report := d.Report()
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return writeTextReport(w, report)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func writeTextReport(w io.Writer, r Report) error {
	var b strings.Builder
	if r.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", r.Source)
	}
	b.WriteString("===== SECTION HEADERS =====\n")
	if len(r.Headers) == 0 {
		b.WriteString("(none)\n")
	}
	for _, h := range r.Headers {
		fmt.Fprintf(&b, "- %s\n", h)
	}
	b.WriteString("===== FORM FIELDS =====\n")
	if len(r.Fields) == 0 {
		b.WriteString("No form fields detected.\n")
	}
	for i, f := range r.Fields {
		fmt.Fprintf(&b, "%d. %s: %s", i+1, f.Type, f.Label)
		if f.Length != nil {
			fmt.Fprintf(&b, " (Length: %d)", *f.Length)
		}
		fmt.Fprintf(&b, " - Context: %s\n", f.Context)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
