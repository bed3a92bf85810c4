// Package project implements the Project Mapper: assigning each affected
// file to the workspace project that owns it via longest path-prefix match
// among all projects.
package project

import (
	"sort"
	"strings"

	"github.com/gooddata-labs/affected/internal/diag"
	"github.com/gooddata-labs/affected/internal/workspace"
)

// Project is the subset of workspace.Project the mapper needs: a name and
// the root path it owns.
type Project struct {
	Name     string
	RootPath string
}

// MapAll assigns each affected file to the project whose RootPath is the
// longest path-prefix match. Files matching no project are recorded as
// OrphanFile diagnostics rather than errors. The returned project name list
// is sorted and deduplicated.
func MapAll(affected []string, projects []Project, diagnostics *diag.Collector) []string {
	affectedProjects := make(map[string]bool)

	for _, file := range affected {
		owner, ok := longestPrefixOwner(file, projects)
		if !ok {
			diagnostics.Add(diag.KindOrphanFile, file, "no project claims this path")
			continue
		}
		affectedProjects[owner] = true
	}

	names := make([]string, 0, len(affectedProjects))
	for name := range affectedProjects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func longestPrefixOwner(file string, projects []Project) (string, bool) {
	var bestName string
	var bestLen = -1
	for _, p := range projects {
		root := strings.TrimSuffix(p.RootPath, "/")
		if file != root && !strings.HasPrefix(file, root+"/") {
			continue
		}
		if len(root) > bestLen {
			bestLen = len(root)
			bestName = p.Name
		}
	}
	if bestLen < 0 {
		return "", false
	}
	return bestName, true
}

// FromWorkspaceProjects adapts workspace.Project (which also carries source
// globs the mapper doesn't need) down to the Project shape above.
func FromWorkspaceProjects(projects []workspace.Project) []Project {
	out := make([]Project, len(projects))
	for i, p := range projects {
		out[i] = Project{Name: p.Name, RootPath: p.RootPath}
	}
	return out
}
