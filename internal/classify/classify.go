// Package classify derives interest tags from a job posting's free text.
// It is a pure keyword classifier: no state, no network, deterministic
// output for a given rule set and input.
package classify

import (
	"sort"
	"strings"
)

// Rules maps an interest tag to the lowercase keywords that imply it.
// A tag applies when any of its keywords appears as a substring of the
// posting's title or department (case-insensitive).
type Rules map[string][]string

// Default returns the built-in rule set used when no rules are configured.
func Default() Rules {
	return Rules{
		"quant":       {"quant", "trading", "trader"},
		"engineering": {"engineer", "software", "developer", "infrastructure", "platform"},
		"data":        {"data", "machine learning", "analytics"},
		"research":    {"research", "scientist"},
		"product":     {"product"},
		"design":      {"design", "designer"},
		"sales":       {"sales", "account executive"},
		"operations":  {"operations", "ops"},
	}
}

// Tags returns the sorted set of tags matching the title and department.
// An empty result means the posting matched no interest category.
func (r Rules) Tags(title, department string) []string {
	text := strings.ToLower(title + " " + department)

	var tags []string
	for tag, keywords := range r {
		for _, kw := range keywords {
			if kw != "" && strings.Contains(text, kw) {
				tags = append(tags, tag)
				break
			}
		}
	}
	sort.Strings(tags)
	return tags
}
