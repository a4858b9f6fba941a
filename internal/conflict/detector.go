// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conflict detects resource and logic conflicts between parallel
// development tasks before they cause merge or runtime problems.
package conflict

import (
	"bufio"
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/registry"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/scanner"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/taskgraph"
)

// Severity levels, ordered critical > major > minor.
const (
	SeverityCritical = "critical"
	SeverityMajor    = "major"
	SeverityMinor    = "minor"
)

// Conflict types.
const (
	TypeFile      = "file"
	TypeEndpoint  = "endpoint"
	TypeDatabase  = "database"
	TypeComponent = "component"
	TypeDuplicate = "duplicate_implementation"
)

// ResourceConflict is a conflict over a shared resource (file, endpoint, table, component).
type ResourceConflict struct {
	ConflictID   string   `json:"conflict_id"`
	ConflictType string   `json:"conflict_type"`
	ResourceID   string   `json:"resource_id"`
	TaskIDs      []string `json:"task_ids"`
	Severity     string   `json:"severity"`
	Description  string   `json:"description"`
	Resolution   string   `json:"resolution"`
	Evidence     []string `json:"evidence,omitempty"`
	Timestamp    string   `json:"timestamp"`
}

// LogicConflict is an incompatibility between task implementations.
type LogicConflict struct {
	ConflictID   string   `json:"conflict_id"`
	ConflictType string   `json:"conflict_type"`
	TaskIDs      []string `json:"task_ids"`
	Severity     string   `json:"severity"`
	Description  string   `json:"description"`
	Resolution   string   `json:"resolution"`
	Evidence     []string `json:"evidence,omitempty"`
	Timestamp    string   `json:"timestamp"`
}

var sourceExtensions = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".rs": true, ".go": true, ".java": true, ".kt": true, ".cpp": true,
	".c": true, ".h": true, ".hpp": true, ".cs": true, ".swift": true,
	".rb": true, ".php": true,
}

var (
	taskAnnotationRe = regexp.MustCompile(`@task\s+([\d.]+)`)
	taskDirRe        = regexp.MustCompile(`/(\d+)/`)

	tablePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)CREATE TABLE\s+(?:IF NOT EXISTS\s+)?['"` + "`" + `]?(\w+)['"` + "`" + `]?`),
		regexp.MustCompile(`(?i)ALTER TABLE\s+['"` + "`" + `]?(\w+)['"` + "`" + `]?`),
		regexp.MustCompile(`(?i)DROP TABLE\s+(?:IF EXISTS\s+)?['"` + "`" + `]?(\w+)['"` + "`" + `]?`),
	}

	componentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:function|const|class)\s+(\w+Component)`),
		regexp.MustCompile(`export default function (\w+)`),
	}

	implementationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:function|def|class|const)\s+(\w+)`),
		regexp.MustCompile(`(?:interface|type)\s+(\w+)`),
	}
)

// Detector indexes task-to-resource mappings and detects conflicts among them.
type Detector struct {
	featureDir string
	projectDir string
	store      *registry.Store
	reg        *registry.Registry
	scanner    *scanner.Scanner

	taskFiles     map[string]map[string]bool
	fileTasks     map[string]map[string]bool
	endpointTasks map[string]map[string]bool
	tableTasks    map[string]map[string]bool
}

// NewDetector loads the feature registry and builds resource mappings from
// task code_mappings, falling back to a codebase scan when none exist.
func NewDetector(ctx context.Context, featureDir, projectDir string) (*Detector, error) {
	store := registry.NewStore(featureDir)
	reg, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}

	d := &Detector{
		featureDir:    featureDir,
		projectDir:    projectDir,
		store:         store,
		reg:           reg,
		scanner:       scanner.New(projectDir),
		taskFiles:     map[string]map[string]bool{},
		fileTasks:     map[string]map[string]bool{},
		endpointTasks: map[string]map[string]bool{},
		tableTasks:    map[string]map[string]bool{},
	}

	if d.buildFromCodeMappings() == 0 {
		d.scanCodebase(ctx)
	}
	d.scanDatabaseFiles(ctx)
	return d, nil
}

// Registry exposes the loaded registry for callers that also need graph analysis.
func (d *Detector) Registry() *registry.Registry {
	return d.reg
}

func (d *Detector) buildFromCodeMappings() int {
	count := 0
	for _, phase := range d.reg.Phases {
		for _, task := range phase.Tasks {
			for _, m := range task.CodeMappings {
				count++
				addMapping(d.taskFiles, task.TaskID, m.FilePath)
				addMapping(d.fileTasks, m.FilePath, task.TaskID)
				if m.MappingType == "endpoint" && m.Name != "" {
					addMapping(d.endpointTasks, m.Name, task.TaskID)
				}
			}
		}
	}
	return count
}

// scanCodebase maps tracked source files to tasks via @task annotations or
// numeric directory conventions. Unreadable files are skipped.
func (d *Detector) scanCodebase(ctx context.Context) {
	files, err := d.scanner.TrackedFilesFiltered(ctx, scanner.FilterOptions{
		ExcludeDirs: scanner.DefaultExcludeDirs(),
	})
	if err != nil {
		return
	}

	for _, rel := range files {
		if !sourceExtensions[filepath.Ext(rel)] {
			continue
		}
		taskID := d.inferTask(rel)
		if taskID == "" {
			continue
		}
		addMapping(d.taskFiles, taskID, rel)
		addMapping(d.fileTasks, rel, taskID)
	}
}

func (d *Detector) scanDatabaseFiles(ctx context.Context) {
	dbDirs := []string{"migrations", "migrate", "database", "db", "prisma", "drizzle"}
	dbExts := map[string]bool{".sql": true, ".js": true, ".ts": true, ".py": true, ".prisma": true}

	files, err := d.scanner.TrackedFiles(ctx)
	if err != nil {
		return
	}

	for _, rel := range files {
		top := strings.SplitN(rel, "/", 2)[0]
		inDBDir := false
		for _, dir := range dbDirs {
			if top == dir {
				inDBDir = true
				break
			}
		}
		if !inDBDir || !dbExts[filepath.Ext(rel)] {
			continue
		}

		content, err := os.ReadFile(filepath.Join(d.projectDir, rel))
		if err != nil {
			continue
		}
		taskID := d.inferTask(rel)
		if taskID == "" {
			continue
		}
		for _, re := range tablePatterns {
			for _, m := range re.FindAllStringSubmatch(string(content), -1) {
				addMapping(d.tableTasks, m[1], taskID)
			}
		}
	}
}

// inferTask maps a project-relative file path to a task ID: an @task
// annotation in the first 20 lines wins, then a numeric path segment.
func (d *Detector) inferTask(rel string) string {
	f, err := os.Open(filepath.Join(d.projectDir, rel))
	if err == nil {
		sc := bufio.NewScanner(f)
		for i := 0; i < 20 && sc.Scan(); i++ {
			if m := taskAnnotationRe.FindStringSubmatch(sc.Text()); m != nil {
				f.Close()
				return m[1]
			}
		}
		f.Close()
	}

	if m := taskDirRe.FindStringSubmatch("/" + rel); m != nil {
		return "1." + m[1]
	}
	return ""
}

// activeTasks filters a resource's task set down to tasks that are not completed.
func (d *Detector) activeTasks(taskIDs map[string]bool) []string {
	var active []string
	for id := range taskIDs {
		t := d.reg.FindTask(id)
		if t == nil || t.Status != registry.StatusCompleted {
			active = append(active, id)
		}
	}
	sort.Strings(active)
	return active
}

// DetectResourceConflicts finds all file, endpoint, database and component conflicts.
func (d *Detector) DetectResourceConflicts(ctx context.Context) []ResourceConflict {
	var conflicts []ResourceConflict
	conflicts = append(conflicts, d.detectFileConflicts()...)
	conflicts = append(conflicts, d.detectEndpointConflicts()...)
	conflicts = append(conflicts, d.detectDatabaseConflicts()...)
	conflicts = append(conflicts, d.detectComponentConflicts(ctx)...)
	return conflicts
}

func (d *Detector) detectFileConflicts() []ResourceConflict {
	var conflicts []ResourceConflict
	for _, file := range sortedMapKeys(d.fileTasks) {
		tasks := d.fileTasks[file]
		if len(tasks) < 2 {
			continue
		}
		active := d.activeTasks(tasks)
		if len(active) < 2 {
			continue
		}

		taskList := strings.Join(active, ", ")
		conflicts = append(conflicts, ResourceConflict{
			ConflictID:   conflictID("file", file),
			ConflictType: TypeFile,
			ResourceID:   file,
			TaskIDs:      active,
			Severity:     fileSeverity(file),
			Description:  fmt.Sprintf("Multiple tasks (%s) are modifying the same file. This will cause merge conflicts.", taskList),
			Resolution:   fileResolution(active, file),
			Evidence: []string{
				"File: " + file,
				"Conflicting tasks: " + taskList,
				fmt.Sprintf("Total tasks accessing this file: %d", len(tasks)),
			},
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return conflicts
}

func (d *Detector) detectEndpointConflicts() []ResourceConflict {
	var conflicts []ResourceConflict
	for _, endpoint := range sortedMapKeys(d.endpointTasks) {
		active := d.activeTasks(d.endpointTasks[endpoint])
		if len(active) < 2 {
			continue
		}
		conflicts = append(conflicts, ResourceConflict{
			ConflictID:   conflictID("endpoint", endpoint),
			ConflictType: TypeEndpoint,
			ResourceID:   endpoint,
			TaskIDs:      active,
			Severity:     SeverityCritical,
			Description:  fmt.Sprintf("Multiple tasks are defining the same API endpoint: %s. This will cause runtime conflicts.", endpoint),
			Resolution:   "Choose one task to own this endpoint. Other tasks should either use different endpoints or call this one's implementation.",
			Evidence: []string{
				"Endpoint: " + endpoint,
				"Conflicting tasks: " + strings.Join(active, ", "),
			},
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return conflicts
}

func (d *Detector) detectDatabaseConflicts() []ResourceConflict {
	var conflicts []ResourceConflict
	for _, table := range sortedMapKeys(d.tableTasks) {
		active := d.activeTasks(d.tableTasks[table])
		if len(active) < 2 {
			continue
		}
		conflicts = append(conflicts, ResourceConflict{
			ConflictID:   conflictID("db", table),
			ConflictType: TypeDatabase,
			ResourceID:   table,
			TaskIDs:      active,
			Severity:     SeverityMajor,
			Description:  fmt.Sprintf("Multiple tasks are modifying database table: %s. This may cause migration conflicts.", table),
			Resolution:   "Coordinate table changes. Create a shared migration or decide which task owns schema changes.",
			Evidence: []string{
				"Table: " + table,
				"Conflicting tasks: " + strings.Join(active, ", "),
			},
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return conflicts
}

func (d *Detector) detectComponentConflicts(ctx context.Context) []ResourceConflict {
	componentTasks := map[string]map[string]bool{}

	files, err := d.scanner.TrackedFilesFiltered(ctx, scanner.FilterOptions{
		ExcludeDirs:       scanner.DefaultExcludeDirs(),
		IncludeExtensions: []string{".tsx", ".jsx", ".vue", ".svelte"},
	})
	if err == nil {
		for _, rel := range files {
			content, err := os.ReadFile(filepath.Join(d.projectDir, rel))
			if err != nil {
				continue
			}
			taskID := d.inferTask(rel)
			if taskID == "" {
				continue
			}
			for _, re := range componentPatterns {
				for _, m := range re.FindAllStringSubmatch(string(content), -1) {
					addMapping(componentTasks, m[1], taskID)
				}
			}
		}
	}

	var conflicts []ResourceConflict
	for _, comp := range sortedMapKeys(componentTasks) {
		active := d.activeTasks(componentTasks[comp])
		if len(active) < 2 {
			continue
		}
		conflicts = append(conflicts, ResourceConflict{
			ConflictID:   conflictID("component", comp),
			ConflictType: TypeComponent,
			ResourceID:   comp,
			TaskIDs:      active,
			Severity:     SeverityMinor,
			Description:  fmt.Sprintf("Multiple tasks are implementing component: %s. This may cause naming conflicts.", comp),
			Resolution:   "Rename components to include task context or extract shared component to a common location.",
			Timestamp:    time.Now().Format(time.RFC3339),
		})
	}
	return conflicts
}

// DetectLogicConflicts finds duplicate implementations of the same-named
// function, class or type across different tasks.
func (d *Detector) DetectLogicConflicts(ctx context.Context) []LogicConflict {
	implTasks := map[string]map[string]bool{}

	files, err := d.scanner.TrackedFilesFiltered(ctx, scanner.FilterOptions{
		ExcludeDirs: scanner.DefaultExcludeDirs(),
	})
	if err != nil {
		return nil
	}

	for _, rel := range files {
		if !sourceExtensions[filepath.Ext(rel)] {
			continue
		}
		taskID := d.inferTask(rel)
		if taskID == "" {
			continue
		}
		content, err := os.ReadFile(filepath.Join(d.projectDir, rel))
		if err != nil {
			continue
		}
		for _, re := range implementationPatterns {
			for _, m := range re.FindAllStringSubmatch(string(content), -1) {
				name := m[1]
				// Short and generic names produce noise, not conflicts.
				if len(name) < 4 || name == "main" || name == "init" || name == "setup" || name == "test" {
					continue
				}
				addMapping(implTasks, name, taskID)
			}
		}
	}

	var conflicts []LogicConflict
	for _, name := range sortedMapKeys(implTasks) {
		active := d.activeTasks(implTasks[name])
		if len(implTasks[name]) < 2 || len(active) < 2 {
			continue
		}
		conflicts = append(conflicts, LogicConflict{
			ConflictID:   conflictID("duplicate", name),
			ConflictType: TypeDuplicate,
			TaskIDs:      active,
			Severity:     SeverityMinor,
			Description:  fmt.Sprintf("Multiple tasks implement similar functionality: %s. This may indicate duplicate work.", name),
			Resolution:   "Consolidate implementations into a shared utility or clarify task boundaries to avoid overlap.",
			Evidence: []string{
				"Function/Class: " + name,
				"Tasks: " + strings.Join(active, ", "),
			},
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return conflicts
}

// CyclesWithConflicts returns dependency cycles that include at least one
// conflicting task.
func (d *Detector) CyclesWithConflicts(ctx context.Context) [][]string {
	graph := taskgraph.New(d.reg)
	cycles := graph.DetectCycles()
	if len(cycles) == 0 {
		return nil
	}

	conflicting := make(map[string]bool)
	for _, rc := range d.DetectResourceConflicts(ctx) {
		for _, id := range rc.TaskIDs {
			conflicting[id] = true
		}
	}
	for _, lc := range d.DetectLogicConflicts(ctx) {
		for _, id := range lc.TaskIDs {
			conflicting[id] = true
		}
	}

	var out [][]string
	for _, cycle := range cycles {
		for _, id := range cycle {
			if conflicting[id] {
				out = append(out, cycle)
				break
			}
		}
	}
	return out
}

func fileSeverity(file string) string {
	base := strings.ToLower(filepath.Base(file))

	switch base {
	case "package.json", "pom.xml", "build.gradle", "cargo.toml",
		"index.ts", "index.js", "main.ts", "main.js",
		"app.ts", "app.js", "server.ts", "server.js":
		return SeverityCritical
	}

	switch filepath.Ext(base) {
	case ".json", ".yaml", ".yml", ".toml":
		return SeverityMajor
	}
	if strings.HasSuffix(base, ".d.ts") || strings.HasSuffix(base, ".config.js") || strings.HasSuffix(base, ".config.ts") {
		return SeverityMajor
	}
	return SeverityMinor
}

func fileResolution(taskIDs []string, file string) string {
	switch filepath.Base(file) {
	case "index.ts", "index.js", "mod.rs", "__init__.py":
		return "This is a module index file. Consider refactoring to have each task export from its own module, then import into a central index."
	}
	return fmt.Sprintf("Sequential execution recommended. Complete one task's changes before starting the next. Tasks: %s", strings.Join(taskIDs, ", "))
}

// conflictID derives a stable four-digit ID from the resource name.
func conflictID(kind, resource string) string {
	h := fnv.New32a()
	h.Write([]byte(resource))
	return fmt.Sprintf("%s_%04d", kind, h.Sum32()%10000)
}

func addMapping(m map[string]map[string]bool, key, value string) {
	if m[key] == nil {
		m[key] = make(map[string]bool)
	}
	m[key][value] = true
}

func sortedMapKeys(m map[string]map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
