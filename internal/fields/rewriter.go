package fields

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/a3tai/mcp-legal-forms/internal/document"
	ferrors "github.com/a3tai/mcp-legal-forms/internal/errors"
)

// Placeholder tokens written by the default rules
const (
	LineToken     = "$Line"
	CheckboxToken = "[$C]"
)

// PlaceholderRule replaces every occurrence of Pattern with Token. Literal
// rules match Pattern as plain text, the others as a regular expression.
type PlaceholderRule struct {
	Name    string `yaml:"name" json:"name"`
	Pattern string `yaml:"pattern" json:"pattern"`
	Token   string `yaml:"token" json:"token"`
	Literal bool   `yaml:"literal" json:"literal"`

	re *regexp.Regexp
}

// DefaultRules turns exactly five underscores into $Line and an empty bracket
// with up to two spaces into [$C]
func DefaultRules() []PlaceholderRule {
	return []PlaceholderRule{
		{Name: "line", Pattern: "_____", Token: LineToken, Literal: true},
		{Name: "checkbox", Pattern: `\[ {0,2}\]`, Token: CheckboxToken},
	}
}

func (r *PlaceholderRule) compile() error {
	if r.Name == "" {
		return fmt.Errorf("rule with pattern %q has no name", r.Pattern)
	}
	if r.Pattern == "" {
		return fmt.Errorf("rule %s has an empty pattern", r.Name)
	}
	if r.Literal {
		return nil
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return fmt.Errorf("rule %s: %w", r.Name, err)
	}
	r.re = re
	return nil
}

// apply returns s with the rule applied and the number of replacements
func (r *PlaceholderRule) apply(s string) (string, int) {
	if r.Literal {
		n := strings.Count(s, r.Pattern)
		if n == 0 {
			return s, 0
		}
		return strings.ReplaceAll(s, r.Pattern, r.Token), n
	}
	n := len(r.re.FindAllStringIndex(s, -1))
	if n == 0 {
		return s, 0
	}
	return r.re.ReplaceAllLiteralString(s, r.Token), n
}

type ruleFile struct {
	Rules []PlaceholderRule `yaml:"rules"`
}

// ParseRules reads a YAML rule list:
//
//	rules:
//	  - name: line
//	    pattern: "_____"
//	    token: "$Line"
//	    literal: true
func ParseRules(data []byte) ([]PlaceholderRule, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if len(rf.Rules) == 0 {
		return nil, errors.New("rule file defines no rules")
	}
	for i := range rf.Rules {
		if err := rf.Rules[i].compile(); err != nil {
			return nil, err
		}
	}
	return rf.Rules, nil
}

// LoadRules reads a YAML rule file
func LoadRules(path string) ([]PlaceholderRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// RewriteResult summarizes one rewrite pass
type RewriteResult struct {
	ParagraphsChanged int            `json:"paragraphs_changed"`
	Replacements      int            `json:"replacements"`
	ByRule            map[string]int `json:"by_rule"`
	Skipped           int            `json:"skipped,omitempty"`
}

// Rewriter applies placeholder rules to every text scope of a document
type Rewriter struct {
	rules  []PlaceholderRule
	logger *slog.Logger
}

// NewRewriter compiles the rules. No rules means DefaultRules.
func NewRewriter(rules []PlaceholderRule, logger *slog.Logger) (*Rewriter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	compiled := make([]PlaceholderRule, len(rules))
	copy(compiled, rules)
	for i := range compiled {
		if err := compiled[i].compile(); err != nil {
			return nil, err
		}
	}
	return &Rewriter{rules: compiled, logger: logger}, nil
}

// Rules returns the rules in application order
func (r *Rewriter) Rules() []PlaceholderRule {
	out := make([]PlaceholderRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// RewriteText applies every rule to s
func (r *Rewriter) RewriteText(s string) (string, map[string]int) {
	counts := make(map[string]int)
	for i := range r.rules {
		var n int
		s, n = r.rules[i].apply(s)
		if n > 0 {
			counts[r.rules[i].Name] += n
		}
	}
	return s, counts
}

// Rewrite replaces placeholders in body paragraphs, table cells at any depth
// and every section header and footer. The document is changed in memory;
// saving it is up to the caller.
func (r *Rewriter) Rewrite(doc *document.Document) (RewriteResult, error) {
	result := RewriteResult{ByRule: make(map[string]int)}
	if doc == nil {
		return result, ferrors.New(ferrors.ErrorTypeUnreadableDocument, "no document to rewrite")
	}
	if !doc.Writable() {
		return result, ferrors.New(ferrors.ErrorTypeUnsupportedFormat, "placeholders can only be written to DOCX documents").WithPath(doc.Path)
	}

	for _, p := range rewriteScopes(doc) {
		updated, counts := r.RewriteText(p.Text())
		if len(counts) == 0 {
			continue
		}
		if err := p.SetText(updated); err != nil {
			r.logger.Warn("cannot rewrite paragraph", "path", doc.Path, "error", err)
			result.Skipped++
			continue
		}
		result.ParagraphsChanged++
		for name, n := range counts {
			result.ByRule[name] += n
			result.Replacements += n
		}
	}

	r.logger.Debug("rewrite complete",
		"path", doc.Path,
		"paragraphs", result.ParagraphsChanged,
		"replacements", result.Replacements)
	return result, nil
}

// rewriteScopes lists each paragraph once, in document order
func rewriteScopes(doc *document.Document) []*document.Paragraph {
	seen := make(map[*document.Paragraph]bool)
	var out []*document.Paragraph
	add := func(ps []*document.Paragraph) {
		for _, p := range ps {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}

	add(doc.Paragraphs())
	for _, t := range doc.Tables() {
		for _, row := range t.Rows {
			for _, cell := range row.Cells {
				add(cell.Paragraphs)
			}
		}
	}
	for _, s := range doc.Sections {
		add(s.Headers)
		add(s.Footers)
	}
	return out
}
