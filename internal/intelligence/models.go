package intelligence

import (
	"log/slog"
	"regexp"
)

// FormCategory is the area of law a form belongs to
type FormCategory string

const (
	CategoryUnknown     FormCategory = "unknown"
	CategoryFamily      FormCategory = "family"
	CategoryHousing     FormCategory = "housing"
	CategoryProbate     FormCategory = "probate"
	CategoryCivil       FormCategory = "civil"
	CategoryCriminal    FormCategory = "criminal"
	CategorySmallClaims FormCategory = "small_claims"
	CategoryEmployment  FormCategory = "employment"
)

// Classification is the result of classifying one form
type Classification struct {
	Category     FormCategory  `json:"category" yaml:"category"`
	Confidence   float64       `json:"confidence" yaml:"confidence"` // 0.0 to 1.0
	Alternatives []Alternative `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
	Reasons      []Reason      `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	RulesApplied []string      `json:"rules_applied,omitempty" yaml:"rules_applied,omitempty"`
}

// Alternative is a lower scoring category
type Alternative struct {
	Category   FormCategory `json:"category" yaml:"category"`
	Confidence float64      `json:"confidence" yaml:"confidence"`
}

// Reason explains one piece of evidence behind a classification
type Reason struct {
	Rule       string  `json:"rule" yaml:"rule"`
	Kind       string  `json:"kind" yaml:"kind"` // keyword, pattern, structure
	Evidence   string  `json:"evidence" yaml:"evidence"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Weight     float64 `json:"weight" yaml:"weight"`
}

// ClassificationRule scores one category. A rule may combine keywords,
// regular expressions and structure requirements; its confidence is the mean
// of the components it defines.
type ClassificationRule struct {
	Name          string          `json:"name" yaml:"name"`
	Category      FormCategory    `json:"category" yaml:"category"`
	Keywords      []string        `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Patterns      []string        `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Structure     []StructureRule `json:"structure,omitempty" yaml:"structure,omitempty"`
	Weight        float64         `json:"weight" yaml:"weight"`
	MinConfidence float64         `json:"min_confidence" yaml:"min_confidence"`
	Disabled      bool            `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Description   string          `json:"description,omitempty" yaml:"description,omitempty"`

	compiled []*regexp.Regexp
}

// StructureRule requires a number of structural elements. Element is
// "header", "field" or a field kind such as "checkbox" or "table_cell".
type StructureRule struct {
	Element    string  `json:"element" yaml:"element"`
	MinCount   int     `json:"min_count" yaml:"min_count"`
	MaxCount   int     `json:"max_count,omitempty" yaml:"max_count,omitempty"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Config configures the classifier
type Config struct {
	// MinConfidence below which a form is reported as unknown
	MinConfidence float64
	// MaxAlternatives is the number of runner-up categories returned
	MaxAlternatives int
	// MaxContentLength bounds the text scanned for keywords
	MaxContentLength int
	// ExtraRules are appended to the default rules
	ExtraRules []ClassificationRule
	Logger     *slog.Logger
}

// DefaultConfig returns the standard classifier settings
func DefaultConfig() Config {
	return Config{
		MinConfidence:    0.3,
		MaxAlternatives:  3,
		MaxContentLength: 200_000,
	}
}
