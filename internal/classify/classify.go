// Package classify assigns glycemic-impact categories to food descriptions
package classify

import (
	"strings"

	"github.com/mrcode/glucose-insights/internal/models"
)

type compiledKeyword struct {
	phrase string
	words  []string
}

type compiledRule struct {
	category models.Category
	keywords []compiledKeyword
}

// Classifier matches descriptions against an ordered rule table
type Classifier struct {
	rules []compiledRule
}

// New creates a Classifier over rules, evaluated in the given order
func New(rules []Rule) *Classifier {
	c := &Classifier{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		compiled := compiledRule{category: r.Category}
		for _, k := range r.Keywords {
			phrase := strings.ToLower(k)
			compiled.keywords = append(compiled.keywords, compiledKeyword{
				phrase: phrase,
				words:  strings.Fields(phrase),
			})
		}
		c.rules = append(c.rules, compiled)
	}
	return c
}

// NewDefault creates a Classifier over DefaultRules
func NewDefault() *Classifier {
	return New(DefaultRules)
}

// Classify returns the category of description. Whole-word matches in any rule
// outrank substring matches in every rule.
func (c *Classifier) Classify(description string) models.Category {
	description = strings.ToLower(strings.TrimSpace(description))
	if description == "" {
		return models.CategoryUnknown
	}

	tokens := make(map[string]struct{})
	for _, w := range strings.Fields(description) {
		tokens[w] = struct{}{}
	}

	for _, r := range c.rules {
		for _, k := range r.keywords {
			if containsAllWords(tokens, k.words) {
				return r.category
			}
		}
	}

	for _, r := range c.rules {
		for _, k := range r.keywords {
			if strings.Contains(description, k.phrase) {
				return r.category
			}
		}
	}

	return models.CategoryUnknown
}

func containsAllWords(tokens map[string]struct{}, words []string) bool {
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if _, ok := tokens[w]; !ok {
			return false
		}
	}
	return true
}
