// SPDX-License-Identifier: AGPL-3.0-or-later

// Package classify infers a project's type from its files and manifests.
// The type drives which workflow phases a feature gets.
package classify

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Recognized project types.
const (
	TypeBaaSFullstack = "baas-fullstack"
	TypeFullStack     = "full-stack"
	TypeFrontendOnly  = "frontend-only"
	TypeStaticSite    = "static-site"
)

// Result is a classification with the evidence that produced it.
type Result struct {
	ProjectType string   `json:"project_type"`
	Evidence    []string `json:"evidence"`
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

var baasMarkers = []string{"supabase", "firebase"}
var baasDeps = []string{"@supabase/supabase-js", "firebase", "firebase-admin", "@clerk/nextjs", "convex"}
var serverDeps = []string{"express", "fastify", "koa", "@nestjs/core", "hono", "next"}
var frontendDeps = []string{"react", "vue", "svelte", "@angular/core", "solid-js", "preact"}

// Classify inspects projectDir and returns the best matching project type.
// A directory with no recognizable manifest is a static site.
func Classify(projectDir string) Result {
	var evidence []string

	for _, marker := range baasMarkers {
		if dirExists(filepath.Join(projectDir, marker)) {
			evidence = append(evidence, marker+"/ directory present")
		}
	}

	pkg, pkgErr := readPackageJSON(filepath.Join(projectDir, "package.json"))

	hasBaas := len(evidence) > 0
	hasServer := false
	hasFrontend := false

	if pkgErr == nil {
		deps := merged(pkg)
		for _, d := range baasDeps {
			if _, ok := deps[d]; ok {
				hasBaas = true
				evidence = append(evidence, "dependency "+d)
			}
		}
		for _, d := range serverDeps {
			if _, ok := deps[d]; ok {
				hasServer = true
				evidence = append(evidence, "dependency "+d)
			}
		}
		for _, d := range frontendDeps {
			if _, ok := deps[d]; ok {
				hasFrontend = true
				evidence = append(evidence, "dependency "+d)
			}
		}
	}

	// Backend manifests in other ecosystems also mean a server exists.
	for _, manifest := range []string{"go.mod", "requirements.txt", "pyproject.toml", "Gemfile", "pom.xml"} {
		if fileExists(filepath.Join(projectDir, manifest)) {
			hasServer = true
			evidence = append(evidence, manifest+" present")
		}
	}

	switch {
	case hasBaas && hasFrontend:
		return Result{ProjectType: TypeBaaSFullstack, Evidence: evidence}
	case hasServer && hasFrontend:
		return Result{ProjectType: TypeFullStack, Evidence: evidence}
	case hasServer:
		return Result{ProjectType: TypeFullStack, Evidence: evidence}
	case hasFrontend:
		return Result{ProjectType: TypeFrontendOnly, Evidence: evidence}
	}

	if fileExists(filepath.Join(projectDir, "index.html")) {
		evidence = append(evidence, "index.html present")
	}
	return Result{ProjectType: TypeStaticSite, Evidence: evidence}
}

func readPackageJSON(path string) (*packageJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

func merged(pkg *packageJSON) map[string]string {
	out := make(map[string]string, len(pkg.Dependencies)+len(pkg.DevDependencies))
	for k, v := range pkg.Dependencies {
		out[k] = v
	}
	for k, v := range pkg.DevDependencies {
		out[k] = v
	}
	return out
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
