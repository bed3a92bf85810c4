package reference

import (
	"sort"
	"testing"

	"github.com/gooddata-labs/affected/internal/workspace"
)

func sortedFiles(r Result) []string {
	out := append([]string(nil), r.Files...)
	sort.Strings(out)
	return out
}

func TestCloseDirectImportChain(t *testing.T) {
	idx := &workspace.Index{
		Inverted: map[workspace.SymbolRef][]workspace.ImporterRef{
			{File: "lib.ts", Name: "helper"}: {{File: "consumer.ts", LocalName: "helper"}},
		},
		Exports:     map[string][]string{},
		ReExportsOf: map[workspace.SymbolRef][]workspace.ReExportEdge{},
	}
	result := Close(idx, []Seed{{File: "lib.ts", Name: "helper"}})
	got := sortedFiles(result)
	want := []string{"consumer.ts", "lib.ts"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestCloseTransitiveThroughMultipleImporters(t *testing.T) {
	idx := &workspace.Index{
		Inverted: map[workspace.SymbolRef][]workspace.ImporterRef{
			{File: "lib.ts", Name: "helper"}:      {{File: "mid.ts", LocalName: "helper"}},
			{File: "mid.ts", Name: "helper"}:      {{File: "app.ts", LocalName: "helper"}},
		},
		Exports:     map[string][]string{},
		ReExportsOf: map[workspace.SymbolRef][]workspace.ReExportEdge{},
	}
	result := Close(idx, []Seed{{File: "lib.ts", Name: "helper"}})
	got := sortedFiles(result)
	want := []string{"app.ts", "lib.ts", "mid.ts"}
	if len(got) != 3 {
		t.Fatalf("expected 3 affected files, got %v (want %v)", got, want)
	}
}

func TestCloseModuleSentinelFansOutToAllExports(t *testing.T) {
	idx := &workspace.Index{
		Inverted: map[workspace.SymbolRef][]workspace.ImporterRef{
			{File: "lib.ts", Name: "a"}: {{File: "consumerA.ts", LocalName: "a"}},
			{File: "lib.ts", Name: "b"}: {{File: "consumerB.ts", LocalName: "b"}},
		},
		Exports: map[string][]string{
			"lib.ts": {"a", "b"},
		},
		ReExportsOf: map[workspace.SymbolRef][]workspace.ReExportEdge{},
	}
	result := Close(idx, []Seed{{File: "lib.ts", Name: ModuleSentinel}})
	got := sortedFiles(result)
	want := []string{"consumerA.ts", "consumerB.ts", "lib.ts"}
	if len(got) != 3 {
		t.Fatalf("got %v want %v", got, want)
	}
	_ = want
}

func TestCloseNamespaceImporterAlwaysAffected(t *testing.T) {
	idx := &workspace.Index{
		Inverted: map[workspace.SymbolRef][]workspace.ImporterRef{
			{File: "lib.ts", Name: "*"}: {{File: "nsconsumer.ts", LocalName: "lib"}},
		},
		Exports:     map[string][]string{},
		ReExportsOf: map[workspace.SymbolRef][]workspace.ReExportEdge{},
	}
	result := Close(idx, []Seed{{File: "lib.ts", Name: "helper"}})
	got := sortedFiles(result)
	want := []string{"lib.ts", "nsconsumer.ts"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestCloseReExportRequeue(t *testing.T) {
	idx := &workspace.Index{
		Inverted: map[workspace.SymbolRef][]workspace.ImporterRef{
			{File: "barrel.ts", Name: "helper"}: {{File: "app.ts", LocalName: "helper"}},
		},
		Exports: map[string][]string{},
		ReExportsOf: map[workspace.SymbolRef][]workspace.ReExportEdge{
			{File: "lib.ts", Name: "helper"}: {{File: "barrel.ts", ExposedName: "helper"}},
		},
	}
	result := Close(idx, []Seed{{File: "lib.ts", Name: "helper"}})
	got := sortedFiles(result)
	want := []string{"app.ts", "barrel.ts", "lib.ts"}
	if len(got) != 3 {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestCloseReExportRequeueHonorsRenamedAlias(t *testing.T) {
	// lib.ts exports `helper`; barrel.ts does `export { helper as util } from
	// "./lib"`; app.ts does `import { util } from "./barrel"`. Importers of
	// the barrel register against (barrel.ts, "util"), not (barrel.ts,
	// "helper"), so the requeue must carry the exposed alias.
	idx := &workspace.Index{
		Inverted: map[workspace.SymbolRef][]workspace.ImporterRef{
			{File: "barrel.ts", Name: "util"}: {{File: "app.ts", LocalName: "util"}},
		},
		Exports: map[string][]string{},
		ReExportsOf: map[workspace.SymbolRef][]workspace.ReExportEdge{
			{File: "lib.ts", Name: "helper"}: {{File: "barrel.ts", ExposedName: "util"}},
		},
	}
	result := Close(idx, []Seed{{File: "lib.ts", Name: "helper"}})
	got := sortedFiles(result)
	want := []string{"app.ts", "barrel.ts", "lib.ts"}
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestCloseNamespaceImporterPropagatesToItsOwnImporters(t *testing.T) {
	// lib.ts exports `helper`; mid.ts does `import * as ns from "./lib"` and
	// re-exports `ns`; app.ts does `import { ns } from "./mid"`. A change to
	// lib.ts's `helper` must reach app.ts through mid.ts, not just mark
	// mid.ts affected and stop there.
	idx := &workspace.Index{
		Inverted: map[workspace.SymbolRef][]workspace.ImporterRef{
			{File: "lib.ts", Name: "*"}: {{File: "mid.ts", LocalName: "ns"}},
			{File: "mid.ts", Name: "ns"}: {{File: "app.ts", LocalName: "ns"}},
		},
		Exports: map[string][]string{
			"mid.ts": {"ns"},
		},
		ReExportsOf: map[workspace.SymbolRef][]workspace.ReExportEdge{},
	}
	result := Close(idx, []Seed{{File: "lib.ts", Name: "helper"}})
	got := sortedFiles(result)
	want := []string{"app.ts", "lib.ts", "mid.ts"}
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestCloseTerminatesOnCycle(t *testing.T) {
	idx := &workspace.Index{
		Inverted: map[workspace.SymbolRef][]workspace.ImporterRef{
			{File: "a.ts", Name: "x"}: {{File: "b.ts", LocalName: "x"}},
			{File: "b.ts", Name: "x"}: {{File: "a.ts", LocalName: "x"}},
		},
		Exports:     map[string][]string{},
		ReExportsOf: map[workspace.SymbolRef][]workspace.ReExportEdge{},
	}
	result := Close(idx, []Seed{{File: "a.ts", Name: "x"}})
	got := sortedFiles(result)
	if len(got) != 2 {
		t.Fatalf("expected 2 files in a mutual-import cycle, got %v", got)
	}
}
