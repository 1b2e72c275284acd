package builder

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/sicko7947/usecasekit"
)

// placeholderPattern matches {{kind:label}} placeholders in a prompt template
var placeholderPattern = regexp.MustCompile(`\{\{([a-zA-Z]+):([^}]*)\}\}`)

// Placeholder is one input slot of a prompt template
type Placeholder struct {
	Kind  string
	Label string
}

// Placeholders returns the distinct placeholders of template in order of first appearance
func Placeholders(template string) []Placeholder {
	var placeholders []Placeholder
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		p := Placeholder{Kind: m[1], Label: m[2]}
		if !slices.Contains(placeholders, p) {
			placeholders = append(placeholders, p)
		}
	}
	return placeholders
}

// ValidateExamples checks that every example value targets a placeholder label
// of the prompt template
func ValidateExamples(content usecasekit.UseCaseContent) error {
	labels := make(map[string]bool)
	for _, p := range Placeholders(content.PromptTemplate) {
		labels[p.Label] = true
	}

	for i, ex := range content.InputExamples {
		if ex.Title == "" {
			return fmt.Errorf("example %d has no title", i)
		}
		for label := range ex.Examples {
			if !labels[label] {
				return fmt.Errorf("example %q sets %q, which is not a placeholder of the prompt template", ex.Title, label)
			}
		}
	}

	return nil
}
