// Package discover finds workspace projects as a pluggable collaborator the
// core engine never reaches into directly. It hands back the
// {name, root_path, source_globs} list via workspace.Project. Three
// implementations ship here: Rush, npm/yarn/pnpm package.json "workspaces"
// globs, and a minimal Turborepo/Nx presence detector that falls back to
// package-manager workspaces since both layer on top of one rather than
// redefining their own.
package discover

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gooddata-labs/affected/internal/workspace"
)

// defaultSourceGlobs is applied to every discoverer when a project manifest
// doesn't otherwise say which files are source. TypeScript/JavaScript
// projects almost universally keep source under src/, with tests alongside
// it, so "everything under the project root with a recognized extension" is
// the broadest reasonable default rather than guessing a narrower layout.
var defaultSourceGlobs = []string{
	"**/*.ts", "**/*.tsx", "**/*.js", "**/*.jsx", "**/*.mjs", "**/*.cjs",
}

// Discoverer finds the set of projects in a workspace rooted at root.
type Discoverer interface {
	Discover(root string) ([]workspace.Project, error)
	// Applies reports whether this discoverer's marker files are present at
	// root, so a caller can auto-select one without being told which to use.
	Applies(root string) bool
}

// jsoncLineComment and jsoncBlockComment strip // line comments and /* */
// block comments from a JSONC document, and trailingComma removes a comma immediately
// before a closing brace/bracket — together enough to parse rush.json with
// encoding/json.
var (
	jsoncLineComment  = regexp.MustCompile(`//[^\n]*`)
	jsoncBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	trailingComma     = regexp.MustCompile(`,(\s*[}\]])`)
)

func stripJSONCCommentsAndTrailingCommas(raw []byte) []byte {
	s := string(raw)
	s = jsoncBlockComment.ReplaceAllString(s, "")
	s = jsoncLineComment.ReplaceAllString(s, "")
	s = trailingComma.ReplaceAllString(s, "$1")
	return []byte(s)
}

// ---- Rush ----

type rushConfig struct {
	Projects []rushProjectEntry `json:"projects"`
}

type rushProjectEntry struct {
	PackageName   string `json:"packageName"`
	ProjectFolder string `json:"projectFolder"`
}

// Rush discovers projects from a Rush monorepo's common/config/rush/rush.json
// (or a root-level rush.json, both layouts appear in the wild), tolerating
// the JSONC comments and trailing commas Rush's own config format allows.
type Rush struct{}

func (Rush) Applies(root string) bool {
	_, ok := findRushConfig(root)
	return ok
}

func (Rush) Discover(root string) ([]workspace.Project, error) {
	path, ok := findRushConfig(root)
	if !ok {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cleaned := stripJSONCCommentsAndTrailingCommas(raw)
	var cfg rushConfig
	if err := json.Unmarshal(cleaned, &cfg); err != nil {
		return nil, err
	}

	projects := make([]workspace.Project, 0, len(cfg.Projects))
	for _, p := range cfg.Projects {
		projects = append(projects, workspace.Project{
			Name:        p.PackageName,
			RootPath:    filepath.Join(root, p.ProjectFolder),
			SourceGlobs: defaultSourceGlobs,
		})
	}
	return projects, nil
}

func findRushConfig(root string) (string, bool) {
	candidates := []string{
		filepath.Join(root, "rush.json"),
		filepath.Join(root, "common", "config", "rush", "rush.json"),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}

// ---- npm/yarn/pnpm workspaces ----

type rootPackageJSON struct {
	Name       string      `json:"name"`
	Workspaces interface{} `json:"workspaces"`
}

// PackageManagerWorkspaces discovers projects from a root package.json's
// "workspaces" field (array form, or the Yarn-style
// {"packages": [...]} object form) and from pnpm-workspace.yaml's
// "packages" list.
type PackageManagerWorkspaces struct{}

func (PackageManagerWorkspaces) Applies(root string) bool {
	globs := workspaceGlobs(root)
	return len(globs) > 0
}

func (PackageManagerWorkspaces) Discover(root string) ([]workspace.Project, error) {
	globs := workspaceGlobs(root)
	var projects []workspace.Project
	for _, g := range globs {
		matches, err := filepath.Glob(filepath.Join(root, g))
		if err != nil {
			continue
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || !info.IsDir() {
				continue
			}
			name := readPackageName(filepath.Join(m, "package.json"))
			if name == "" {
				name = filepath.Base(m)
			}
			projects = append(projects, workspace.Project{
				Name:        name,
				RootPath:    m,
				SourceGlobs: defaultSourceGlobs,
			})
		}
	}
	return projects, nil
}

func workspaceGlobs(root string) []string {
	if globs, ok := npmWorkspaceGlobs(root); ok {
		return globs
	}
	return pnpmWorkspaceGlobs(root)
}

func npmWorkspaceGlobs(root string) ([]string, bool) {
	raw, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return nil, false
	}
	var pkg rootPackageJSON
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil, false
	}
	switch v := pkg.Workspaces.(type) {
	case []interface{}:
		return toStrings(v), len(v) > 0
	case map[string]interface{}:
		if packages, ok := v["packages"].([]interface{}); ok {
			return toStrings(packages), len(packages) > 0
		}
	}
	return nil, false
}

func toStrings(items []interface{}) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func readPackageName(manifestPath string) string {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return ""
	}
	var pkg rootPackageJSON
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return ""
	}
	return pkg.Name
}

// ---- Turborepo / Nx ----

// MonorepoTool detects a turbo.json or nx.json at the workspace root and
// defers to PackageManagerWorkspaces for the actual project list, since
// neither tool redefines workspace membership — they both consume whatever
// the package manager already declares.
type MonorepoTool struct {
	fallback PackageManagerWorkspaces
}

func (MonorepoTool) Applies(root string) bool {
	for _, marker := range []string{"turbo.json", "nx.json"} {
		if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
			return true
		}
	}
	return false
}

func (m MonorepoTool) Discover(root string) ([]workspace.Project, error) {
	return m.fallback.Discover(root)
}

// ---- pnpm-workspace.yaml ----

// pnpmWorkspaceGlobs does a minimal line-oriented read of
// pnpm-workspace.yaml's "packages:" list, avoiding a full YAML dependency
// here since the shape is always a flat list of quoted glob strings; the
// richer YAML parsing in this repo lives in internal/wsconfig where the
// config document has real nesting.
func pnpmWorkspaceGlobs(root string) []string {
	raw, err := os.ReadFile(filepath.Join(root, "pnpm-workspace.yaml"))
	if err != nil {
		return nil
	}
	var globs []string
	inPackages := false
	for _, line := range strings.Split(string(raw), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "packages:" {
			inPackages = true
			continue
		}
		if inPackages {
			if strings.HasPrefix(trimmed, "-") {
				item := strings.TrimSpace(strings.TrimPrefix(trimmed, "-"))
				item = strings.Trim(item, `"'`)
				globs = append(globs, item)
				continue
			}
			if trimmed != "" {
				inPackages = false
			}
		}
	}
	return globs
}

// Auto picks the first applicable discoverer in Rush, Turborepo/Nx,
// package-manager-workspaces order, matching the precedence a real monorepo
// would actually exhibit (a Rush repo's rush.json is authoritative even if a
// root package.json also happens to declare workspaces for tooling
// compatibility).
func Auto(root string) Discoverer {
	candidates := []Discoverer{Rush{}, MonorepoTool{}, PackageManagerWorkspaces{}}
	for _, d := range candidates {
		if d.Applies(root) {
			return d
		}
	}
	return PackageManagerWorkspaces{}
}
