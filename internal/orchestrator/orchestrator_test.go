package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gooddata-labs/affected/internal/workspace"
)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return full
}

func TestRunAllSkipsDiffAndReturnsEveryProject(t *testing.T) {
	opts := Options{
		Projects: []workspace.Project{
			{Name: "zeta", RootPath: "packages/zeta"},
			{Name: "alpha", RootPath: "packages/alpha"},
		},
		All: true,
	}
	result, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"alpha", "zeta"}
	if len(result.Projects) != 2 || result.Projects[0] != want[0] || result.Projects[1] != want[1] {
		t.Fatalf("got %v want %v", result.Projects, want)
	}
}

func TestRunEndToEndDirectImportAffectsDownstreamProject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "packages/lib/src/index.ts", "export function compute() { return 1; }\n")
	writeFile(t, dir, "packages/app/src/index.ts", "import { compute } from '../../lib/src/index';\ncompute();\n")

	opts := Options{
		WorkspaceRoot: dir,
		Projects: []workspace.Project{
			{Name: "lib", RootPath: filepath.Join(dir, "packages/lib"), SourceGlobs: []string{"src/*.ts"}},
			{Name: "app", RootPath: filepath.Join(dir, "packages/app"), SourceGlobs: []string{"src/*.ts"}},
		},
		DiffText: unifiedDiffChangingComputeBody(dir),
		Debug:    true,
	}

	result, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	found := map[string]bool{}
	for _, p := range result.Projects {
		found[p] = true
	}
	if !found["lib"] || !found["app"] {
		t.Fatalf("expected both lib and app affected, got %v", result.Projects)
	}
	if result.Report == nil {
		t.Fatalf("expected debug report to be populated")
	}
}

func unifiedDiffChangingComputeBody(dir string) string {
	path := filepath.Join(dir, "packages/lib/src/index.ts")
	rel, _ := filepath.Rel(dir, path)
	return "diff --git a/" + rel + " b/" + rel + "\n" +
		"index 1111111..2222222 100644\n" +
		"--- a/" + rel + "\n" +
		"+++ b/" + rel + "\n" +
		"@@ -1,1 +1,1 @@\n" +
		"-export function compute() { return 1; }\n" +
		"+export function compute() { return 2; }\n"
}

func TestRunCancelledContextReturnsErrCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "packages/lib/src/index.ts", "export function compute() { return 1; }\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := Options{
		WorkspaceRoot: dir,
		Projects: []workspace.Project{
			{Name: "lib", RootPath: filepath.Join(dir, "packages/lib"), SourceGlobs: []string{"src/*.ts"}},
		},
	}
	_, err := Run(ctx, opts)
	if err != ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}
