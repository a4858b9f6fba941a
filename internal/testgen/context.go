// SPDX-License-Identifier: AGPL-3.0-or-later
package testgen

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// TemplateContext holds substitution variables loaded from CONTEXT.yaml.
type TemplateContext struct {
	vars map[string]string
}

// LoadContext reads CONTEXT.yaml from the feature directory. A missing file
// yields an empty context, not an error.
func LoadContext(path string) (*TemplateContext, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &TemplateContext{vars: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading context file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing context file: %w", err)
	}

	vars := make(map[string]string, len(raw))
	for k, v := range raw {
		vars[k] = fmt.Sprintf("%v", v)
	}
	return &TemplateContext{vars: vars}, nil
}

// Set adds or overrides a variable.
func (c *TemplateContext) Set(key, value string) {
	c.vars[key] = value
}

// Resolve substitutes {{VAR}} placeholders. Unknown placeholders are left
// intact so missing context is visible in the generated file.
func (c *TemplateContext) Resolve(template string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := c.vars[key]; ok {
			return v
		}
		return m
	})
}

// Unresolved returns the placeholder names in template that have no value.
func (c *TemplateContext) Unresolved(template string) []string {
	var missing []string
	seen := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		key := m[1]
		if _, ok := c.vars[key]; !ok && !seen[key] {
			seen[key] = true
			missing = append(missing, key)
		}
	}
	return missing
}
