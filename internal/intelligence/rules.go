package intelligence

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultRules returns the built-in classification rules
func DefaultRules() []ClassificationRule {
	return []ClassificationRule{
		// Family law
		{
			Name:     "family_keywords",
			Category: CategoryFamily,
			Keywords: []string{
				"custody", "visitation", "child support", "spousal support",
				"dissolution of marriage", "divorce", "parenting plan", "parenting time",
				"paternity", "guardianship of minor", "domestic violence",
				"restraining order", "protective order", "alimony",
			},
			Patterns: []string{
				`\b(petitioner|respondent)\b`,
				`\bminor child(ren)?\b`,
				`\bdate of (marriage|separation)\b`,
			},
			Weight:        1.0,
			MinConfidence: 0.2,
			Description:   "Family court forms: divorce, custody, support and protection orders",
		},

		// Landlord and tenant
		{
			Name:     "housing_keywords",
			Category: CategoryHousing,
			Keywords: []string{
				"landlord", "tenant", "eviction", "unlawful detainer", "lease",
				"rent", "security deposit", "premises", "notice to quit",
				"notice to vacate", "habitability", "rental unit",
			},
			Patterns: []string{
				`\b\d{1,2}[- ]day notice\b`,
				`\bmonthly rent\b`,
			},
			Weight:        1.0,
			MinConfidence: 0.2,
			Description:   "Eviction notices, leases and tenant answers",
		},

		// Estates and guardianship of adults
		{
			Name:     "probate_keywords",
			Category: CategoryProbate,
			Keywords: []string{
				"probate", "estate of", "decedent", "executor", "executrix",
				"administrator", "letters testamentary", "last will", "testament",
				"heir", "beneficiary", "intestate", "conservatorship",
			},
			Patterns: []string{
				`\bdate of death\b`,
				`\bestate of [a-z]+\b`,
			},
			Weight:        1.0,
			MinConfidence: 0.2,
			Description:   "Probate, estate administration and conservatorship",
		},

		// Civil litigation
		{
			Name:     "civil_keywords",
			Category: CategoryCivil,
			Keywords: []string{
				"plaintiff", "defendant", "complaint", "summons", "motion",
				"declaration", "proof of service", "subpoena", "judgment",
				"cause of action", "damages", "hearing date",
			},
			Patterns: []string{
				`\bcase (no\.?|number)\b`,
				`\bsuperior court\b`,
			},
			Weight:        0.8,
			MinConfidence: 0.2,
			Description:   "General civil pleadings, motions and service forms",
		},

		// Criminal
		{
			Name:     "criminal_keywords",
			Category: CategoryCriminal,
			Keywords: []string{
				"people of the state", "arraignment", "plea", "bail", "probation",
				"sentencing", "misdemeanor", "felony", "expungement",
				"record clearance", "public defender", "conviction",
			},
			Patterns: []string{
				`\bpenal code\b`,
				`\b(guilty|no contest)\b`,
			},
			Weight:        1.0,
			MinConfidence: 0.2,
			Description:   "Criminal pleas, record clearance and probation forms",
		},

		// Small claims
		{
			Name:     "small_claims_keywords",
			Category: CategorySmallClaims,
			Keywords: []string{
				"small claims", "claim amount", "plaintiff's claim",
				"demand letter", "amount owed", "claim and order",
			},
			Patterns: []string{
				`\$\s?[\d,]+(\.\d{2})?`,
				`\bsmall claims (court|case)\b`,
			},
			Weight:        1.0,
			MinConfidence: 0.2,
			Description:   "Small claims filings and demand letters",
		},

		// Employment
		{
			Name:     "employment_keywords",
			Category: CategoryEmployment,
			Keywords: []string{
				"employer", "employee", "wage claim", "unpaid wages", "overtime",
				"termination", "wrongful termination", "workers' compensation",
				"discrimination", "harassment", "retaliation", "hire date",
			},
			Patterns: []string{
				`\bdate of (hire|termination)\b`,
				`\bhourly (rate|wage)\b`,
			},
			Weight:        1.0,
			MinConfidence: 0.2,
			Description:   "Wage claims and workplace complaints",
		},

		// Court form layout
		{
			Name:     "court_form_structure",
			Category: CategoryCivil,
			Structure: []StructureRule{
				{Element: "header", MinCount: 2, Confidence: 0.2},
				{Element: "checkbox", MinCount: 2, Confidence: 0.2},
			},
			Weight:        0.4,
			MinConfidence: 0.4,
			Description:   "Sectioned court forms with option checkboxes",
		},
	}
}

type ruleFile struct {
	Rules []ClassificationRule `yaml:"rules"`
}

// LoadRules reads additional classification rules from a YAML file:
//
//	rules:
//	  - name: immigration_keywords
//	    category: immigration
//	    keywords: [asylum, visa, removal proceedings]
//	    weight: 1.0
//	    min_confidence: 0.2
func LoadRules(path string) ([]ClassificationRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read classification rules: %w", err)
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse classification rules: %w", err)
	}
	if len(rf.Rules) == 0 {
		return nil, errors.New("classification rule file defines no rules")
	}
	return rf.Rules, nil
}
