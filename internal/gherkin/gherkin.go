// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gherkin converts acceptance criteria in user story markdown into
// Gherkin feature files and step definition stubs.
package gherkin

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/projection"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/util"
)

// Step is a single Gherkin step.
type Step struct {
	Keyword string // Given, When, Then, And
	Text    string
}

// Scenario is one scenario or scenario outline within a story.
type Scenario struct {
	Name     string
	Steps    []Step
	Outline  bool
	Examples [][]string // first row is the header
}

// Story is a parsed user story with its acceptance scenarios.
type Story struct {
	ID        string
	Title     string
	Narrative []string
	Scenarios []Scenario
}

var (
	storyIDRe   = regexp.MustCompile(`Story\s+([\w.]+)|US-([\w.]+)`)
	scenarioRe  = regexp.MustCompile(`^(?:####?\s+)?Scenario(?:\s+Outline)?:\s*(.+)$`)
	stepRe      = regexp.MustCompile(`^(?:[-*]\s+)?(Given|When|Then|And|But)\s+(.+)$`)
	narrativeRe = regexp.MustCompile(`^(?:[-*]\s+)?(As an?|I want|So that)\s+(.+)$`)
	tableRowRe  = regexp.MustCompile(`^\|(.+)\|$`)
)

// ParseStoryFile parses one USER_STORIES markdown file into stories.
func ParseStoryFile(path string) ([]Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading story file: %w", err)
	}
	return parseStories(string(data)), nil
}

func parseStories(content string) []Story {
	var stories []Story
	var current *Story
	var scenario *Scenario

	flushScenario := func() {
		if scenario != nil && current != nil && len(scenario.Steps) > 0 {
			current.Scenarios = append(current.Scenarios, *scenario)
		}
		scenario = nil
	}
	flushStory := func() {
		flushScenario()
		if current != nil && (len(current.Scenarios) > 0 || current.Title != "") {
			stories = append(stories, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if m := scenarioRe.FindStringSubmatch(trimmed); m != nil {
			flushScenario()
			if current == nil {
				current = &Story{}
			}
			scenario = &Scenario{
				Name:    strings.TrimSpace(m[1]),
				Outline: strings.Contains(trimmed, "Outline"),
			}
			continue
		}

		if strings.HasPrefix(trimmed, "#") {
			if id, title, ok := storyHeader(trimmed); ok {
				flushStory()
				current = &Story{ID: id, Title: title}
				continue
			}
		}

		if m := stepRe.FindStringSubmatch(trimmed); m != nil && scenario != nil {
			scenario.Steps = append(scenario.Steps, Step{Keyword: m[1], Text: strings.TrimSpace(m[2])})
			continue
		}

		if m := tableRowRe.FindStringSubmatch(trimmed); m != nil && scenario != nil && scenario.Outline {
			cells := splitTableRow(m[1])
			if isSeparatorRow(cells) {
				continue
			}
			scenario.Examples = append(scenario.Examples, cells)
			continue
		}

		if m := narrativeRe.FindStringSubmatch(trimmed); m != nil && current != nil && scenario == nil {
			current.Narrative = append(current.Narrative, m[1]+" "+m[2])
		}
	}
	flushStory()
	return stories
}

func storyHeader(line string) (id, title string, ok bool) {
	text := strings.TrimLeft(line, "# ")
	m := storyIDRe.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	if m[1] != "" {
		id = "US-" + m[1]
	} else {
		id = "US-" + m[2]
	}
	if idx := strings.Index(text, ":"); idx >= 0 {
		title = strings.TrimSpace(text[idx+1:])
	}
	return id, title, true
}

func splitTableRow(inner string) []string {
	parts := strings.Split(inner, "|")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "- :") != "" {
			return false
		}
	}
	return true
}

// RenderFeature renders a story as a .feature file.
func RenderFeature(story Story) string {
	var b strings.Builder
	title := story.Title
	if title == "" {
		title = story.ID
	}
	b.WriteString(fmt.Sprintf("Feature: %s\n", title))
	for _, n := range story.Narrative {
		b.WriteString("  " + n + "\n")
	}
	b.WriteString("\n")

	for _, sc := range story.Scenarios {
		keyword := "Scenario"
		if sc.Outline {
			keyword = "Scenario Outline"
		}
		b.WriteString(fmt.Sprintf("  %s: %s\n", keyword, sc.Name))
		for _, step := range sc.Steps {
			b.WriteString(fmt.Sprintf("    %s %s\n", step.Keyword, step.Text))
		}
		if sc.Outline && len(sc.Examples) > 0 {
			b.WriteString("\n    Examples:\n")
			for _, row := range sc.Examples {
				b.WriteString("      | " + strings.Join(row, " | ") + " |\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderStepDefinitions renders cucumber-js step definition stubs covering
// every distinct step across the stories.
func RenderStepDefinitions(stories []Story) string {
	type stepDef struct {
		keyword string
		text    string
	}
	seen := make(map[string]stepDef)

	for _, story := range stories {
		for _, sc := range story.Scenarios {
			lastKeyword := "Given"
			for _, step := range sc.Steps {
				keyword := step.Keyword
				if keyword == "And" || keyword == "But" {
					keyword = lastKeyword
				} else {
					lastKeyword = keyword
				}
				key := keyword + "|" + step.Text
				if _, ok := seen[key]; !ok {
					seen[key] = stepDef{keyword: keyword, text: step.Text}
				}
			}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("const { Given, When, Then } = require('@cucumber/cucumber');\n\n")
	for _, k := range keys {
		def := seen[k]
		pattern := outlineParams(def.text)
		b.WriteString(fmt.Sprintf("%s(%q, async function () {\n", def.keyword, pattern))
		b.WriteString("  return 'pending';\n")
		b.WriteString("});\n\n")
	}
	return b.String()
}

var outlineParamRe = regexp.MustCompile(`<(\w+)>`)

// outlineParams converts <placeholder> outline parameters into cucumber
// expression parameters.
func outlineParams(text string) string {
	return outlineParamRe.ReplaceAllString(text, "{string}")
}

// GenerateFeatures parses every markdown file under storiesDir and writes
// .feature files plus a steps.js stub into outputDir.
func GenerateFeatures(storiesDir, outputDir string) ([]string, error) {
	entries, err := os.ReadDir(storiesDir)
	if err != nil {
		return nil, fmt.Errorf("reading stories directory: %w", err)
	}

	var all []Story
	var written []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		stories, err := ParseStoryFile(filepath.Join(storiesDir, e.Name()))
		if err != nil {
			return written, err
		}
		all = append(all, stories...)
	}

	for _, story := range all {
		if len(story.Scenarios) == 0 {
			continue
		}
		name := util.SnakeCase(story.Title)
		if name == "" {
			name = util.SnakeCase(story.ID)
		}
		path := filepath.Join(outputDir, name+".feature")
		if err := projection.AtomicWrite(path, []byte(RenderFeature(story))); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if len(all) > 0 {
		path := filepath.Join(outputDir, "steps.js")
		if err := projection.AtomicWrite(path, []byte(RenderStepDefinitions(all))); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
