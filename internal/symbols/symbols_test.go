package symbols

import (
	"testing"

	"github.com/gooddata-labs/affected/internal/diffreader"
	"github.com/gooddata-labs/affected/internal/tsparse"
)

func analysisWith(symbols ...tsparse.SymbolDecl) *tsparse.FileAnalysis {
	return &tsparse.FileAnalysis{Path: "src/foo.ts", Symbols: symbols}
}

func TestLocateDirectHit(t *testing.T) {
	a := analysisWith(tsparse.SymbolDecl{Name: "doThing", Kind: tsparse.KindFunction, StartLine: 10, EndLine: 20})
	region := diffreader.ChangedRegion{File: a.Path, Ranges: []diffreader.LineRange{{Start: 15, End: 15}}}

	seeds := Locate(a, region, true)
	if len(seeds) != 1 || seeds[0].Name != "doThing" {
		t.Fatalf("expected single seed doThing, got %+v", seeds)
	}
}

func TestLocateNoSymbolOverlapSeedsModule(t *testing.T) {
	a := analysisWith(tsparse.SymbolDecl{Name: "doThing", Kind: tsparse.KindFunction, StartLine: 10, EndLine: 20})
	region := diffreader.ChangedRegion{File: a.Path, Ranges: []diffreader.LineRange{{Start: 1, End: 2}}}

	seeds := Locate(a, region, true)
	if len(seeds) != 1 || seeds[0].Name != ModuleSentinel {
		t.Fatalf("expected module sentinel, got %+v", seeds)
	}
}

func TestLocateFullyChangedSeedsModule(t *testing.T) {
	a := analysisWith(tsparse.SymbolDecl{Name: "doThing", Kind: tsparse.KindFunction, StartLine: 10, EndLine: 20})
	region := diffreader.ChangedRegion{File: a.Path, FullyChanged: true}

	seeds := Locate(a, region, true)
	if len(seeds) != 1 || seeds[0].Name != ModuleSentinel {
		t.Fatalf("expected module sentinel for fully-changed file, got %+v", seeds)
	}
}

func TestLocateParseFailureSeedsModule(t *testing.T) {
	a := &tsparse.FileAnalysis{Path: "src/broken.ts", ParseFailed: true}
	region := diffreader.ChangedRegion{File: a.Path, Ranges: []diffreader.LineRange{{Start: 1, End: 1}}}

	seeds := Locate(a, region, true)
	if len(seeds) != 1 || seeds[0].Name != ModuleSentinel {
		t.Fatalf("expected module sentinel for parse failure, got %+v", seeds)
	}
}

func TestLocateFiltersTypeOnlyWhenDisabled(t *testing.T) {
	a := analysisWith(
		tsparse.SymbolDecl{Name: "Shape", Kind: tsparse.KindInterface, StartLine: 1, EndLine: 3, IsTypeOnly: true},
		tsparse.SymbolDecl{Name: "run", Kind: tsparse.KindFunction, StartLine: 5, EndLine: 7},
	)
	region := diffreader.ChangedRegion{File: a.Path, Ranges: []diffreader.LineRange{{Start: 2, End: 2}, {Start: 6, End: 6}}}

	seeds := Locate(a, region, false)
	if len(seeds) != 1 || seeds[0].Name != "run" {
		t.Fatalf("expected only run to survive with includeTypes=false, got %+v", seeds)
	}

	seedsWithTypes := Locate(a, region, true)
	names := map[string]bool{}
	for _, s := range seedsWithTypes {
		names[s.Name] = true
	}
	if !names["Shape"] || !names["run"] {
		t.Fatalf("expected both Shape and run with includeTypes=true, got %+v", seedsWithTypes)
	}
}

func TestLocateMultiDeclaratorSpansAreIndependent(t *testing.T) {
	a := analysisWith(
		tsparse.SymbolDecl{Name: "a", Kind: tsparse.KindVariable, StartLine: 1, EndLine: 1},
		tsparse.SymbolDecl{Name: "b", Kind: tsparse.KindVariable, StartLine: 2, EndLine: 2},
	)
	region := diffreader.ChangedRegion{File: a.Path, Ranges: []diffreader.LineRange{{Start: 2, End: 2}}}

	seeds := Locate(a, region, true)
	if len(seeds) != 1 || seeds[0].Name != "b" {
		t.Fatalf("expected only b seeded, got %+v", seeds)
	}
}
