// Package orchestrator sequences the whole pipeline: workspace parse barrier
// → diff read → per-changed-file symbol location → seed set → reference
// closure → project mapping → sorted, deduplicated project list.
package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"sort"

	"github.com/gooddata-labs/affected/internal/diag"
	"github.com/gooddata-labs/affected/internal/diffreader"
	"github.com/gooddata-labs/affected/internal/project"
	"github.com/gooddata-labs/affected/internal/reference"
	"github.com/gooddata-labs/affected/internal/symbols"
	"github.com/gooddata-labs/affected/internal/tsparse"
	"github.com/gooddata-labs/affected/internal/workspace"
)

// ErrCancelled is returned, with no partial output, when ctx is found
// cancelled during or right after the workspace parse, or after seeding,
// before the reference closure starts. The closure itself does not check
// ctx; once started it runs to completion.
var ErrCancelled = errors.New("orchestrator: run cancelled")

// Options bundles everything one run needs.
type Options struct {
	Projects      []workspace.Project
	WorkspaceRoot string
	AliasMap      map[string]string
	Concurrency   int

	// DiffText is the unified diff supplied by the host VCS layer; ignored
	// when All is set.
	DiffText string

	IncludeTypes bool
	// All skips the diff/seed/BFS phases entirely and reports every project
	// in the workspace as affected — the bootstrapping shortcut a from-scratch
	// CI build needs.
	All bool
	// Debug requests the structured Report in the Result.
	Debug bool
}

// Report is the optional structured trace emitted under --debug: for each
// affected file, the seed that reached it and the importer chain.
type Report struct {
	Seeds  []symbols.Seed
	Traces []reference.Trace
}

// Result is everything one run produces.
type Result struct {
	Projects    []string
	Diagnostics []diag.Diagnostic
	Report      *Report
}

// Run executes the full pipeline.
func Run(ctx context.Context, opts Options) (*Result, error) {
	diagnostics := diag.NewCollector()

	if opts.All {
		names := make([]string, 0, len(opts.Projects))
		for _, p := range opts.Projects {
			names = append(names, p.Name)
		}
		sort.Strings(names)
		return &Result{Projects: names}, nil
	}

	idx, err := workspace.Build(ctx, workspace.Config{
		WorkspaceRoot: opts.WorkspaceRoot,
		Projects:      opts.Projects,
		AliasMap:      opts.AliasMap,
		Concurrency:   opts.Concurrency,
	}, diagnostics)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, err
	}
	defer idx.Close()

	if ctx.Err() != nil {
		return nil, ErrCancelled
	}

	analysisByPath := make(map[string]*tsparse.FileAnalysis, len(idx.Parsed))
	for _, pf := range idx.Parsed {
		analysisByPath[pf.Analysis.Path] = &pf.Analysis
	}

	regions := diffreader.Read(opts.DiffText, diagnostics)
	seeds := seedsFromRegions(regions, analysisByPath, idx, opts.WorkspaceRoot, opts.IncludeTypes)

	if ctx.Err() != nil {
		return nil, ErrCancelled
	}

	closure := reference.Close(idx, seeds)

	projects := project.MapAll(closure.Files, project.FromWorkspaceProjects(opts.Projects), diagnostics)

	result := &Result{
		Projects:    projects,
		Diagnostics: diagnostics.All(),
	}
	if opts.Debug {
		result.Report = &Report{Seeds: seeds, Traces: closure.Traces}
	}
	return result, nil
}

// seedsFromRegions looks up each changed region's parsed analysis.
// region.File comes out of the diff workspace-relative (the "a/"/"b/"
// prefix stripped, e.g. "packages/lib/src/index.ts"), while the index keys
// everything by the absolute path discoverFiles produced
// (filepath.Join(project.RootPath, pattern) under an already-absolute
// workspace root). The two must be rebased onto the same path before any
// map lookup, or every lookup misses and the seed set comes back empty.
func seedsFromRegions(regions []diffreader.ChangedRegion, analysisByPath map[string]*tsparse.FileAnalysis, idx *workspace.Index, workspaceRoot string, includeTypes bool) []symbols.Seed {
	var seeds []symbols.Seed

	for _, region := range regions {
		absFile := filepath.Join(workspaceRoot, region.File)
		if region.IsDeleted {
			seeds = append(seeds, seedsForDeletedFile(absFile, idx)...)
			continue
		}
		analysis, ok := analysisByPath[absFile]
		if !ok {
			// Not a parsed source file (outside every project's
			// source_globs, e.g. a config file): skipped, contributing no
			// seed and no diagnostic.
			continue
		}
		seeds = append(seeds, symbols.Locate(analysis, region, includeTypes)...)
	}
	return seeds
}

// seedsForDeletedFile seeds the names the index knows the deleted file by:
// its Exports entry, or, when that is empty, the names under which the
// inverted index records it as imported. The index is built from the files
// on disk at parse time, not from a pre-diff revision, so a file already
// removed from disk has no Exports entry and imports of it do not resolve;
// when neither source yields a name, the file is seeded with the module
// sentinel alone.
func seedsForDeletedFile(file string, idx *workspace.Index) []symbols.Seed {
	names := idx.Exports[file]
	if len(names) == 0 {
		seen := make(map[string]bool)
		for ref := range idx.Inverted {
			if ref.File == file && !seen[ref.Name] {
				seen[ref.Name] = true
				names = append(names, ref.Name)
			}
		}
	}
	if len(names) == 0 {
		return []symbols.Seed{{File: file, Name: symbols.ModuleSentinel}}
	}
	seeds := make([]symbols.Seed, 0, len(names))
	for _, n := range names {
		seeds = append(seeds, symbols.Seed{File: file, Name: n})
	}
	return seeds
}
