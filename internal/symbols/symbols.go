// Package symbols implements the Symbol Locator: it turns a parsed file plus
// the diff's changed line ranges into the set of seeds the Reference Finder
// starts its closure from. It is a pure interval test against
// tree-sitter-derived spans, not an old-AST-vs-new-AST comparison.
package symbols

import (
	"github.com/gooddata-labs/affected/internal/diffreader"
	"github.com/gooddata-labs/affected/internal/tsparse"
)

// ModuleSentinel is the seed name used when a change can't be attributed to
// any individual top-level symbol span — the whole module is conservatively
// treated as changed.
const ModuleSentinel = "__module__"

// Seed names one changed symbol in one file.
type Seed struct {
	File string
	Name string
}

// Locate intersects each symbol's span against every changed range in the
// file's region and returns the resulting seed set. A FullyChanged region
// (malformed diff hunk) or a parse failure on a changed file seeds
// ModuleSentinel unconditionally rather than attempting symbol-level
// attribution.
func Locate(analysis *tsparse.FileAnalysis, region diffreader.ChangedRegion, includeTypes bool) []Seed {
	if analysis.ParseFailed || region.FullyChanged {
		return []Seed{{File: analysis.Path, Name: ModuleSentinel}}
	}
	if region.IsNewFile && len(analysis.Symbols) == 0 {
		return []Seed{{File: analysis.Path, Name: ModuleSentinel}}
	}

	var seeds []Seed
	matchedAnyRange := make([]bool, len(region.Ranges))

	for _, sym := range analysis.Symbols {
		// A type-only symbol filtered out by includeTypes still claims the
		// ranges it overlaps, so they don't fall through to the module
		// sentinel below.
		filtered := sym.IsTypeOnly && !includeTypes
		symRange := diffreader.LineRange{Start: sym.StartLine, End: sym.EndLine}
		hit := false
		for i, r := range region.Ranges {
			if symRange.Overlaps(r) {
				hit = true
				matchedAnyRange[i] = true
			}
		}
		if hit && !filtered {
			name := sym.Name
			if name == "" {
				name = ModuleSentinel
			}
			seeds = append(seeds, Seed{File: analysis.Path, Name: name})
		}
	}

	// Any changed range that didn't land inside a known symbol span (import
	// lines, module-level side effects, a declaration kind we don't model)
	// still needs representation: seed the module sentinel for it.
	for i, matched := range matchedAnyRange {
		if !matched && i < len(region.Ranges) {
			seeds = append(seeds, Seed{File: analysis.Path, Name: ModuleSentinel})
			break
		}
	}

	if len(region.Ranges) == 0 && !region.IsDeleted {
		// A region entry with no ranges and not flagged new/deleted/fully
		// changed shouldn't normally occur, but fail safe conservatively.
		seeds = append(seeds, Seed{File: analysis.Path, Name: ModuleSentinel})
	}

	return dedupe(seeds)
}

func dedupe(seeds []Seed) []Seed {
	if len(seeds) < 2 {
		return seeds
	}
	seen := make(map[Seed]bool, len(seeds))
	out := seeds[:0]
	for _, s := range seeds {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
