package advisor

import (
	"fmt"
	"strings"
)

// Persona defines the assistant's advisory behavior. It is rendered into the
// per-call system instruction and is never stored in conversation history.
type Persona struct {
	Name              string
	Description       string
	ProductCategories []string
	EligibilityRules  []string
}

// Validate ensures the persona can produce a usable instruction.
func (p Persona) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("persona name is empty")
	}
	if len(p.ProductCategories) == 0 {
		return fmt.Errorf("persona has no product categories")
	}
	if len(p.EligibilityRules) == 0 {
		return fmt.Errorf("persona has no eligibility rules")
	}
	return nil
}

// Instruction renders the persona into a system instruction.
func (p Persona) Instruction() string {
	var b strings.Builder

	b.WriteString("You are ")
	b.WriteString(p.Name)
	if desc := strings.TrimSpace(p.Description); desc != "" {
		b.WriteString(", ")
		b.WriteString(desc)
	}
	b.WriteString(".\n\n")

	b.WriteString("You may only recommend the following insurance products:\n")
	for _, category := range p.ProductCategories {
		b.WriteString("- ")
		b.WriteString(category)
		b.WriteString("\n")
	}

	b.WriteString("\nEligibility rules you must apply:\n")
	for _, rule := range p.EligibilityRules {
		b.WriteString("- ")
		b.WriteString(rule)
		b.WriteString("\n")
	}

	b.WriteString("\nIf a request falls outside these products or rules, explain that you cannot help with it.")

	return b.String()
}
