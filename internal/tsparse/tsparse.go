// Package tsparse turns TypeScript/TSX/JavaScript source into the import,
// export, and declaration facts the rest of the engine reasons about, using
// github.com/tree-sitter/go-tree-sitter. Parsers are pooled one per grammar
// and mutex-guarded because tree-sitter parsers are not safe for concurrent
// use.
package tsparse

import (
	"os"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// SymbolKind classifies a top-level declaration.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindClass     SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindType      SymbolKind = "type"
	KindEnum      SymbolKind = "enum"
	KindVariable  SymbolKind = "variable"
	KindNamespace SymbolKind = "namespace"
)

// Import is a single module reference found in the file: a static
// import_statement or a require(...) call.
type Import struct {
	Source string
	// Names holds the local bindings this import introduces: default import
	// under key "default", namespace import under key "*", everything else
	// under its imported name (or its "as" alias).
	Names map[string]string
	IsTypeOnly bool
}

// Export describes one name the file makes available to importers.
type Export struct {
	Name string
	// LocalName is the name bound inside this file, empty for "export *".
	LocalName string
	// Source is non-empty for re-exports ("export { x } from './y'",
	// "export * from './y'").
	Source     string
	IsStar     bool
	IsTypeOnly bool
}

// SymbolDecl is one top-level declaration, spanning only its own node (a
// multi-declarator variable statement yields one SymbolDecl per declarator).
type SymbolDecl struct {
	Name       string
	Kind       SymbolKind
	StartLine  int
	EndLine    int
	IsExported bool
	IsDefault  bool
	IsTypeOnly bool
}

// FileAnalysis is everything ParseFile extracted from one source file.
type FileAnalysis struct {
	Path       string
	Imports    []Import
	Exports    []Export
	Symbols    []SymbolDecl
	SourceText string
	// ParseFailed is set when the read failed or the tree is dominated by
	// syntax ERROR nodes; Imports/Exports/Symbols are empty in that case.
	ParseFailed bool
}

// ParsedFile is a FileAnalysis paired with the tree-sitter tree that backs
// it. The workspace index keeps these alive for the run and closes them all
// together at the end.
type ParsedFile struct {
	Analysis FileAnalysis
	Tree     *tree_sitter.Tree
}

func (p *ParsedFile) Close() {
	if p.Tree != nil {
		p.Tree.Close()
	}
}

// Parser owns one pooled, mutex-guarded *tree_sitter.Parser per grammar.
// TypeScript and TSX are distinct grammars upstream; plain JS/JSX content is
// routed to the TSX grammar since it is a JSX-accepting superset of JS,
// while the TypeScript grammar rejects JSX syntax outright.
type Parser struct {
	mu       sync.Mutex
	tsParser *tree_sitter.Parser
	tsxParser *tree_sitter.Parser
}

func NewParser() (*Parser, error) {
	tsLang := tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	tsxLang := tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())

	tsParser := tree_sitter.NewParser()
	if err := tsParser.SetLanguage(tsLang); err != nil {
		return nil, err
	}
	tsxParser := tree_sitter.NewParser()
	if err := tsxParser.SetLanguage(tsxLang); err != nil {
		return nil, err
	}
	return &Parser{tsParser: tsParser, tsxParser: tsxParser}, nil
}

func (p *Parser) Close() {
	p.tsParser.Close()
	p.tsxParser.Close()
}

func languageFor(path string) (useTSX bool) {
	switch {
	case strings.HasSuffix(path, ".tsx"),
		strings.HasSuffix(path, ".jsx"),
		strings.HasSuffix(path, ".js"),
		strings.HasSuffix(path, ".mjs"),
		strings.HasSuffix(path, ".cjs"):
		return true
	default:
		// .ts, .mts, .cts, .d.ts
		return false
	}
}

// ParseFile reads and parses one file from disk.
func (p *Parser) ParseFile(path string) *ParsedFile {
	content, err := os.ReadFile(path)
	if err != nil {
		return &ParsedFile{Analysis: FileAnalysis{Path: path, ParseFailed: true}}
	}
	return p.ParseContent(path, content)
}

// ParseContent parses already-loaded source, useful for tests and for
// historical revisions pulled from git show.
func (p *Parser) ParseContent(path string, content []byte) *ParsedFile {
	useTSX := languageFor(path)

	p.mu.Lock()
	var tree *tree_sitter.Tree
	if useTSX {
		tree = p.tsxParser.Parse(content, nil)
	} else {
		tree = p.tsParser.Parse(content, nil)
	}
	p.mu.Unlock()

	if tree == nil {
		return &ParsedFile{Analysis: FileAnalysis{Path: path, SourceText: string(content), ParseFailed: true}}
	}

	root := tree.RootNode()
	analysis := FileAnalysis{
		Path:       path,
		SourceText: string(content),
	}

	if hasSignificantErrors(root, content) {
		analysis.ParseFailed = true
		return &ParsedFile{Analysis: analysis, Tree: tree}
	}

	w := &walker{content: content}
	w.walkTopLevel(root)
	analysis.Imports = w.imports
	analysis.Exports = w.exports
	analysis.Symbols = w.symbols

	return &ParsedFile{Analysis: analysis, Tree: tree}
}

// hasSignificantErrors reports a parse failure when ERROR nodes cover more
// than a small fraction of the file — a handful of recovered error tokens
// around, say, a decorator the grammar doesn't model is not worth discarding
// the whole file's facts, but a badly garbled file is.
func hasSignificantErrors(root *tree_sitter.Node, content []byte) bool {
	if !root.HasError() {
		return false
	}
	var errorBytes uint
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n.IsError() || n.IsMissing() {
			errorBytes += n.EndByte() - n.StartByte()
			return
		}
		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			if c := n.Child(i); c != nil {
				walk(c)
			}
		}
	}
	walk(root)
	if len(content) == 0 {
		return errorBytes > 0
	}
	return float64(errorBytes)/float64(len(content)) > 0.05
}

func nodeText(n *tree_sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	return string(content[n.StartByte():n.EndByte()])
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
