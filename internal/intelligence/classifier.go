// Package intelligence classifies legal forms by area of law with weighted
// keyword, pattern and structure rules.
package intelligence

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/a3tai/mcp-legal-forms/internal/fields"
)

const (
	keywordConfidence = 0.1
	patternConfidence = 0.15
)

// Classifier performs rule-based form classification
type Classifier struct {
	config Config
	rules  []ClassificationRule
	logger *slog.Logger
}

// NewClassifier compiles the default rules plus cfg.ExtraRules
func NewClassifier(cfg Config) (*Classifier, error) {
	def := DefaultConfig()
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.MaxAlternatives < 0 {
		cfg.MaxAlternatives = 0
	}
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = def.MaxContentLength
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	rules := append(DefaultRules(), cfg.ExtraRules...)
	for i := range rules {
		if err := rules[i].compile(); err != nil {
			return nil, err
		}
	}

	return &Classifier{config: cfg, rules: rules, logger: cfg.Logger}, nil
}

func (r *ClassificationRule) compile() error {
	if r.Name == "" {
		return fmt.Errorf("classification rule for %q has no name", r.Category)
	}
	if r.Category == "" {
		return fmt.Errorf("classification rule %s has no category", r.Name)
	}
	if r.Weight <= 0 {
		r.Weight = 1.0
	}
	r.compiled = make([]*regexp.Regexp, 0, len(r.Patterns))
	for _, p := range r.Patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return fmt.Errorf("classification rule %s: %w", r.Name, err)
		}
		r.compiled = append(r.compiled, re)
	}
	return nil
}

// Rules returns the active rules
func (c *Classifier) Rules() []ClassificationRule {
	out := make([]ClassificationRule, 0, len(c.rules))
	for _, r := range c.rules {
		if !r.Disabled {
			out = append(out, r)
		}
	}
	return out
}

// Classify scores form and its plain text against every rule
func (c *Classifier) Classify(ctx context.Context, form *fields.FormDocument, content string) (*Classification, error) {
	if len(content) > c.config.MaxContentLength {
		content = content[:c.config.MaxContentLength]
	}
	lower := strings.ToLower(content)
	elements := structuralElements(form)

	scores := make(map[FormCategory]float64)
	reasons := make(map[FormCategory][]Reason)
	var applied []string

	for i := range c.rules {
		rule := &c.rules[i]
		if rule.Disabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		confidence, ruleReasons := evaluateRule(rule, lower, elements)
		if confidence > 0 && confidence >= rule.MinConfidence {
			scores[rule.Category] += confidence * rule.Weight
			reasons[rule.Category] = append(reasons[rule.Category], ruleReasons...)
			applied = append(applied, rule.Name)
		}
	}

	ranked := rank(scores)
	result := &Classification{Category: CategoryUnknown, RulesApplied: applied}
	if len(ranked) > 0 {
		top := ranked[0]
		result.Confidence = top.Confidence
		if top.Confidence >= c.config.MinConfidence {
			result.Category = top.Category
			result.Reasons = reasons[top.Category]
			ranked = ranked[1:]
		}
	}

	for _, alt := range ranked {
		if len(result.Alternatives) >= c.config.MaxAlternatives {
			break
		}
		if alt.Confidence >= c.config.MinConfidence*0.5 {
			result.Alternatives = append(result.Alternatives, alt)
		}
	}

	c.logger.Debug("form classified",
		"source", sourceOf(form),
		"category", result.Category,
		"confidence", result.Confidence,
		"rules", len(applied))

	return result, nil
}

// evaluateRule returns the mean confidence of the rule components
func evaluateRule(rule *ClassificationRule, lower string, elements map[string]int) (float64, []Reason) {
	var total float64
	var reasons []Reason
	components := 0

	if len(rule.Keywords) > 0 || len(rule.compiled) > 0 {
		components++
		conf, rs := evaluateKeywords(rule, lower)
		total += conf
		reasons = append(reasons, rs...)
	}

	if len(rule.Structure) > 0 {
		components++
		conf, rs := evaluateStructure(rule, elements)
		total += conf
		reasons = append(reasons, rs...)
	}

	if components == 0 {
		return 0, nil
	}
	return min(total/float64(components), 1.0), reasons
}

func evaluateKeywords(rule *ClassificationRule, lower string) (float64, []Reason) {
	var confidence float64
	var reasons []Reason

	for _, keyword := range rule.Keywords {
		count := strings.Count(lower, strings.ToLower(keyword))
		if count == 0 {
			continue
		}
		conf := keywordConfidence * float64(count)
		confidence += conf
		reasons = append(reasons, Reason{
			Rule:       rule.Name,
			Kind:       "keyword",
			Evidence:   fmt.Sprintf("Found keyword '%s' %d times", keyword, count),
			Confidence: conf,
			Weight:     rule.Weight,
		})
	}

	for i, re := range rule.compiled {
		matches := len(re.FindAllStringIndex(lower, -1))
		if matches == 0 {
			continue
		}
		conf := patternConfidence * float64(matches)
		confidence += conf
		reasons = append(reasons, Reason{
			Rule:       rule.Name,
			Kind:       "pattern",
			Evidence:   fmt.Sprintf("Pattern '%s' matched %d times", rule.Patterns[i], matches),
			Confidence: conf,
			Weight:     rule.Weight,
		})
	}

	return confidence, reasons
}

func evaluateStructure(rule *ClassificationRule, elements map[string]int) (float64, []Reason) {
	var confidence float64
	var reasons []Reason

	for _, sr := range rule.Structure {
		count := elements[sr.Element]
		meetsMin := sr.MinCount == 0 || count >= sr.MinCount
		meetsMax := sr.MaxCount == 0 || count <= sr.MaxCount
		if !meetsMin || !meetsMax {
			continue
		}
		confidence += sr.Confidence
		reasons = append(reasons, Reason{
			Rule:       rule.Name,
			Kind:       "structure",
			Evidence:   fmt.Sprintf("Found %d '%s' elements", count, sr.Element),
			Confidence: sr.Confidence,
			Weight:     rule.Weight,
		})
	}

	return confidence, reasons
}

// structuralElements counts headers, fields and fields per kind
func structuralElements(form *fields.FormDocument) map[string]int {
	elements := make(map[string]int)
	if form == nil {
		return elements
	}
	elements["header"] = len(form.Headers)
	elements["field"] = len(form.Fields)
	for kind, n := range form.Counts() {
		elements[string(kind)] = n
	}
	return elements
}

// rank orders categories by score, then by name. Confidences are capped at 1
// after ordering so saturated scores keep their order.
func rank(scores map[FormCategory]float64) []Alternative {
	categories := make([]FormCategory, 0, len(scores))
	for category := range scores {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool {
		a, b := categories[i], categories[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return a < b
	})

	ranked := make([]Alternative, len(categories))
	for i, category := range categories {
		ranked[i] = Alternative{Category: category, Confidence: min(scores[category], 1.0)}
	}
	return ranked
}

func sourceOf(form *fields.FormDocument) string {
	if form == nil {
		return ""
	}
	return form.Source
}
