// Package reference implements the Reference Finder: a BFS worklist over the
// Workspace Analyzer's inverted import index that turns a set of changed
// symbol seeds into the full set of files that transitively reference them,
// as a single workspace-global pass over one inverted index.
package reference

import (
	"github.com/gooddata-labs/affected/internal/symbols"
	"github.com/gooddata-labs/affected/internal/workspace"
)

// ModuleSentinel mirrors symbols.ModuleSentinel; re-declared here so callers
// that only need the Reference Finder don't have to import internal/symbols
// just for the constant.
const ModuleSentinel = symbols.ModuleSentinel

// namespaceSentinel marks the "*" name slot used for namespace imports and
// `export * as ns from` re-exports in the Workspace Analyzer's index.
const namespaceSentinel = "*"

// Seed names one changed symbol in one file, the starting point for the
// closure.
type Seed = symbols.Seed

// Trace records why one file ended up in the affected set: Seed is the
// first seed queued in File, and Via is the file whose seed propagated to
// it (the file that File imports or re-exports from). Used for the
// structured debug report; the direct seeds themselves have an empty Via.
type Trace struct {
	File string
	Seed Seed
	Via  string
}

// Result is the outcome of one closure run.
type Result struct {
	Files  []string
	Traces []Trace
}

// Close runs the four-rule BFS worklist: direct seeds, index-edge
// propagation, re-export requeueing, and module/namespace fan-out to every
// exported name of a fully-changed file. A visited-seed set guarantees
// termination since the seed universe (file × name) is finite.
func Close(idx *workspace.Index, seeds []Seed) Result {
	visited := make(map[Seed]bool)
	affected := make(map[string]bool)
	var traces []Trace
	queue := make([]Seed, 0, len(seeds))

	enqueue := func(s Seed, via string) {
		if visited[s] {
			return
		}
		visited[s] = true
		queue = append(queue, s)
		if !affected[s.File] {
			affected[s.File] = true
			traces = append(traces, Trace{File: s.File, Seed: s, Via: via})
		}
	}

	for _, s := range seeds {
		enqueue(s, "")
	}

	for len(queue) > 0 {
		seed := queue[0]
		queue = queue[1:]

		if seed.Name == ModuleSentinel {
			for _, name := range idx.Exports[seed.File] {
				enqueue(Seed{File: seed.File, Name: name}, seed.File)
			}
			for _, reexporter := range idx.ReExportsOf[workspace.SymbolRef{File: seed.File, Name: namespaceSentinel}] {
				enqueue(Seed{File: reexporter.File, Name: ModuleSentinel}, seed.File)
			}
		}

		ref := workspace.SymbolRef{File: seed.File, Name: seed.Name}
		for _, importer := range idx.Inverted[ref] {
			enqueue(Seed{File: importer.File, Name: importer.LocalName}, seed.File)
		}

		// Namespace importers (`import * as ns from seed.File`) pull in
		// every export, so any single changed export makes them affected
		// without needing the changed name to match a local binding. They
		// are requeued under the module sentinel, not just marked affected,
		// so a namespace importer that itself re-exports `ns` still
		// propagates the change to its own importers.
		for _, importer := range idx.Inverted[workspace.SymbolRef{File: seed.File, Name: namespaceSentinel}] {
			enqueue(Seed{File: importer.File, Name: ModuleSentinel}, seed.File)
		}

		// Re-export requeueing: a barrel that does `export { x as y } from
		// seed.File` forwards the change under the name it exposes to its
		// own importers (y), not the name seed.File exported it under (x) —
		// the two differ exactly when the re-export renames.
		for _, reexporter := range idx.ReExportsOf[ref] {
			enqueue(Seed{File: reexporter.File, Name: reexporter.ExposedName}, seed.File)
		}
		// `export * from seed.File` forwards every name unchanged, so the
		// requeue keeps seed.Name as-is.
		for _, reexporter := range idx.ReExportsOf[workspace.SymbolRef{File: seed.File, Name: namespaceSentinel}] {
			enqueue(Seed{File: reexporter.File, Name: seed.Name}, seed.File)
		}
	}

	files := make([]string, 0, len(affected))
	for f := range affected {
		files = append(files, f)
	}
	return Result{Files: files, Traces: traces}
}
