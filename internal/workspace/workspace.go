// Package workspace implements the Workspace Analyzer: a bounded-concurrency
// fan-out that parses every source file in every project, resolves its
// imports, and merges the results into one workspace-wide, read-only-after-
// build Index. File discovery uses github.com/bmatcuk/doublestar/v4 and the
// parse fan-out uses golang.org/x/sync/errgroup with a mutex-guarded merge.
package workspace

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/gooddata-labs/affected/internal/diag"
	"github.com/gooddata-labs/affected/internal/resolve"
	"github.com/gooddata-labs/affected/internal/tsparse"
)

// Project is the external-collaborator-provided shape a discoverer hands to
// the analyzer: a workspace member with its own source globs.
type Project struct {
	Name        string
	RootPath    string
	SourceGlobs []string
}

// SymbolRef names one exported symbol of one file. Name == "*" is the
// namespace sentinel used for `import * as ns` edges and `export *`
// re-export fan-out.
type SymbolRef struct {
	File string
	Name string
}

// ImporterRef names the file and local binding that imported a SymbolRef.
type ImporterRef struct {
	File      string
	LocalName string
}

// ReExportEdge names a file that re-exports a SymbolRef, and the name it
// exposes that symbol under to its own importers. For `export { X as Y }
// from "./r"`, the edge keyed on (r, X) carries ExposedName "Y" — the
// barrel's own importers write `import { Y } from "barrel"`, not X.
type ReExportEdge struct {
	File        string
	ExposedName string
}

// Index is the immutable-after-build result of a workspace parse.
type Index struct {
	Forward     map[string][]ImportEdge
	Inverted    map[SymbolRef][]ImporterRef
	Exports     map[string][]string
	ReExportsOf map[SymbolRef][]ReExportEdge

	// Files lists every file the analyzer parsed, for callers that need to
	// iterate the full set.
	Files []string
	// Parsed keeps every ParsedFile's tree alive for the run; Close releases
	// them all together.
	Parsed []*tsparse.ParsedFile
}

func (idx *Index) Close() {
	for _, p := range idx.Parsed {
		p.Close()
	}
}

// ImportEdge is one resolved (or unresolved) import inside a file.
type ImportEdge struct {
	ToFile     string
	Specifier  string
	Unresolved bool
	Reason     resolve.Reason
}

// Config bundles everything Build needs: the project list, an alias map for
// the resolver, and a concurrency cap (0 = runtime.GOMAXPROCS(0)).
type Config struct {
	WorkspaceRoot string
	Projects      []Project
	AliasMap      map[string]string
	Concurrency   int
}

type fileJob struct {
	path string
}

// Build fans out over every project's source_globs and merges the parsed
// results into a single Index. The parse+resolve step for each file runs
// concurrently; the merge into shared maps is serialized behind one mutex.
func Build(ctx context.Context, cfg Config, diagnostics *diag.Collector) (*Index, error) {
	parser, err := tsparse.NewParser()
	if err != nil {
		return nil, err
	}

	files, err := discoverFiles(cfg)
	if err != nil {
		parser.Close()
		return nil, err
	}

	resolver := resolve.New(resolve.OSFS{}, cfg.WorkspaceRoot, cfg.AliasMap)

	idx := &Index{
		Forward:     make(map[string][]ImportEdge),
		Inverted:    make(map[SymbolRef][]ImporterRef),
		Exports:     make(map[string][]string),
		ReExportsOf: make(map[SymbolRef][]ReExportEdge),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	limit := cfg.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)

	for _, f := range files {
		f := f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pf := parser.ParseFile(f)

			mu.Lock()
			defer mu.Unlock()

			idx.Files = append(idx.Files, f)
			idx.Parsed = append(idx.Parsed, pf)

			if pf.Analysis.ParseFailed {
				diagnostics.Add(diag.KindParseFailure, f, "parse failed or unreadable")
				return nil
			}

			mergeFile(idx, resolver, f, &pf.Analysis, diagnostics)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		parser.Close()
		idx.Close()
		return nil, err
	}

	resolveTransitiveStarExports(idx)

	parser.Close()
	return idx, nil
}

func mergeFile(idx *Index, resolver *resolve.Resolver, file string, analysis *tsparse.FileAnalysis, diagnostics *diag.Collector) {
	var exportNames []string
	for _, exp := range analysis.Exports {
		if exp.IsStar {
			// Transitive resolution happens in resolveTransitiveStarExports
			// once every file's direct exports are known; record the
			// re-export edge for now.
			continue
		}
		exportNames = append(exportNames, exp.Name)
	}
	idx.Exports[file] = exportNames

	for _, imp := range analysis.Imports {
		res := resolver.Resolve(file, imp.Source)
		edge := ImportEdge{Specifier: imp.Source}
		if res.Unresolved {
			edge.Unresolved = true
			edge.Reason = res.Reason
			diagnostics.Add(diag.KindResolutionFailure, file, "unresolved specifier "+imp.Source)
			idx.Forward[file] = append(idx.Forward[file], edge)
			continue
		}
		edge.ToFile = res.ResolvedPath
		idx.Forward[file] = append(idx.Forward[file], edge)

		for imported, local := range imp.Names {
			ref := SymbolRef{File: res.ResolvedPath, Name: imported}
			idx.Inverted[ref] = append(idx.Inverted[ref], ImporterRef{File: file, LocalName: local})
		}
	}

	for _, exp := range analysis.Exports {
		if exp.Source == "" {
			continue
		}
		res := resolver.Resolve(file, exp.Source)
		if res.Unresolved {
			diagnostics.Add(diag.KindResolutionFailure, file, "unresolved re-export source "+exp.Source)
			continue
		}
		if exp.IsStar {
			ref := SymbolRef{File: res.ResolvedPath, Name: "*"}
			idx.ReExportsOf[ref] = append(idx.ReExportsOf[ref], ReExportEdge{File: file, ExposedName: "*"})
			continue
		}
		local := exp.LocalName
		if local == "" {
			local = exp.Name
		}
		ref := SymbolRef{File: res.ResolvedPath, Name: local}
		idx.ReExportsOf[ref] = append(idx.ReExportsOf[ref], ReExportEdge{File: file, ExposedName: exp.Name})
	}
}

// resolveTransitiveStarExports expands `export * from` chains so idx.Exports
// reflects every name reachable through re-export, with a per-file
// in-flight marker guarding against barrel-file cycles (a cycle simply
// contributes whatever had already been resolved by the time it's
// revisited, rather than looping forever).
func resolveTransitiveStarExports(idx *Index) {
	// starTargets[file] = list of files that `file` does `export * from`.
	starTargets := make(map[string][]string)
	for ref, reexporters := range idx.ReExportsOf {
		if ref.Name != "*" {
			continue
		}
		for _, edge := range reexporters {
			starTargets[edge.File] = append(starTargets[edge.File], ref.File)
		}
	}
	if len(starTargets) == 0 {
		return
	}

	inFlight := make(map[string]bool)
	resolved := make(map[string]bool)

	var expand func(file string) []string
	expand = func(file string) []string {
		if resolved[file] || inFlight[file] {
			return idx.Exports[file]
		}
		inFlight[file] = true

		names := append([]string(nil), idx.Exports[file]...)
		for _, target := range starTargets[file] {
			names = append(names, expand(target)...)
		}
		names = dedupeStrings(names)
		idx.Exports[file] = names

		delete(inFlight, file)
		resolved[file] = true
		return names
	}

	for file := range starTargets {
		expand(file)
	}
}

func dedupeStrings(items []string) []string {
	if len(items) < 2 {
		return items
	}
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, s := range items {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func discoverFiles(cfg Config) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, proj := range cfg.Projects {
		for _, pattern := range proj.SourceGlobs {
			full := filepath.Join(proj.RootPath, pattern)
			matches, err := doublestar.FilepathGlob(full)
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				if seen[m] {
					continue
				}
				info, err := os.Stat(m)
				if err != nil || info.IsDir() {
					continue
				}
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}
