package tsparse

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// walker accumulates import/export/symbol facts while visiting the direct
// children of the program node. Node-kind names below (import_statement,
// import_clause, named_imports, import_specifier, namespace_import,
// export_statement, export_clause, export_specifier, lexical_declaration,
// variable_declarator, ...) follow the tree-sitter-typescript grammar.
type walker struct {
	content []byte
	imports []Import
	exports []Export
	symbols []SymbolDecl
}

func (w *walker) walkTopLevel(root *tree_sitter.Node) {
	count := root.ChildCount()
	for i := uint(0); i < count; i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		w.visitStatement(child)
	}
}

func (w *walker) visitStatement(n *tree_sitter.Node) {
	switch n.Kind() {
	case "import_statement":
		w.visitImportStatement(n)
	case "export_statement":
		w.visitExportStatement(n)
	case "expression_statement":
		if call := findRequireCall(n); call != nil {
			w.visitRequireCall(call)
		}
		w.collectBareDeclarations(n)
	case "lexical_declaration", "variable_declaration":
		// `const fs = require('fs')`
		if call := findRequireCall(n); call != nil {
			w.visitRequireCall(call)
		}
		w.collectBareDeclarations(n)
	default:
		w.collectBareDeclarations(n)
	}
}

// collectBareDeclarations handles a top-level declaration that isn't
// wrapped in an export_statement (unexported function/class/const/etc).
func (w *walker) collectBareDeclarations(n *tree_sitter.Node) {
	switch n.Kind() {
	case "function_declaration":
		w.addFunctionSymbol(n, false, false)
	case "class_declaration":
		w.addClassSymbol(n, false, false)
	case "interface_declaration":
		w.addInterfaceSymbol(n, false, false)
	case "type_alias_declaration":
		w.addTypeAliasSymbol(n, false, false)
	case "enum_declaration":
		w.addEnumSymbol(n, false, false)
	case "lexical_declaration", "variable_declaration":
		w.addVariableSymbols(n, false, false)
	case "internal_module", "module", "ambient_declaration":
		w.addNamespaceSymbol(n, false, false)
	}
}

// ---- imports ----

func (w *walker) visitImportStatement(n *tree_sitter.Node) {
	source := ""
	if src := n.ChildByFieldName("source"); src != nil {
		source = stripQuotes(nodeText(src, w.content))
	}
	imp := Import{Source: source, Names: map[string]string{}}

	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "import_clause":
			w.collectImportClause(child, &imp)
		case "type":
			imp.IsTypeOnly = true
		}
	}
	if imp.Source != "" {
		w.imports = append(w.imports, imp)
	}
}

func (w *walker) collectImportClause(clause *tree_sitter.Node, imp *Import) {
	count := clause.ChildCount()
	for i := uint(0); i < count; i++ {
		child := clause.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier":
			// bare default import: `import Foo from './foo'`
			imp.Names["default"] = nodeText(child, w.content)
		case "named_imports":
			w.collectNamedImports(child, imp)
		case "namespace_import":
			name := child.ChildByFieldName("name")
			if name == nil {
				name = findChildByKind(child, "identifier")
			}
			if name != nil {
				imp.Names["*"] = nodeText(name, w.content)
			}
		}
	}
}

func (w *walker) collectNamedImports(n *tree_sitter.Node, imp *Import) {
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		spec := n.Child(i)
		if spec == nil || spec.Kind() != "import_specifier" {
			continue
		}
		name := spec.ChildByFieldName("name")
		alias := spec.ChildByFieldName("alias")
		if name == nil {
			continue
		}
		imported := nodeText(name, w.content)
		local := imported
		if alias != nil {
			local = nodeText(alias, w.content)
		}
		imp.Names[imported] = local
	}
}

func findRequireCall(exprStmt *tree_sitter.Node) *tree_sitter.Node {
	var find func(n *tree_sitter.Node) *tree_sitter.Node
	find = func(n *tree_sitter.Node) *tree_sitter.Node {
		if n.Kind() == "call_expression" {
			fn := n.ChildByFieldName("function")
			if fn != nil && fn.Kind() == "identifier" {
				return n
			}
		}
		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			if c := n.Child(i); c != nil {
				if r := find(c); r != nil {
					return r
				}
			}
		}
		return nil
	}
	return find(exprStmt)
}

func (w *walker) visitRequireCall(call *tree_sitter.Node) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return
	}
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	requireName := nodeTextBytes(fn, w.content)
	if requireName != "require" {
		return
	}
	strNode := findChildByKind(args, "string")
	if strNode == nil {
		return
	}
	source := stripQuotes(nodeText(strNode, w.content))
	w.imports = append(w.imports, Import{Source: source, Names: map[string]string{}})
}

func nodeTextBytes(n *tree_sitter.Node, content []byte) string {
	return nodeText(n, content)
}

func findChildByKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		c := n.Child(i)
		if c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

// ---- exports ----

func (w *walker) visitExportStatement(n *tree_sitter.Node) {
	isTypeOnly := false
	var source string
	if src := n.ChildByFieldName("source"); src != nil {
		source = stripQuotes(nodeText(src, w.content))
	}

	count := n.ChildCount()
	var starSeen, defaultSeen bool
	var clause, decl *tree_sitter.Node
	var exportNamespace *tree_sitter.Node

	for i := uint(0); i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "type":
			isTypeOnly = true
		case "*":
			starSeen = true
		case "default":
			defaultSeen = true
		case "export_clause":
			clause = child
		case "namespace_export":
			exportNamespace = child
		case "function_declaration", "class_declaration", "interface_declaration",
			"type_alias_declaration", "enum_declaration", "lexical_declaration",
			"variable_declaration", "internal_module", "module", "ambient_declaration":
			decl = child
		case "identifier", "call_expression", "arrow_function", "object", "assignment_expression":
			if defaultSeen {
				decl = child
			}
		}
	}

	switch {
	case exportNamespace != nil:
		// `export * as ns from`: the grammar nests the "*" inside
		// namespace_export, so starSeen is not set for this form.
		name := findChildByKind(exportNamespace, "identifier")
		localName := ""
		if name != nil {
			localName = nodeText(name, w.content)
		}
		w.exports = append(w.exports, Export{Name: localName, LocalName: localName, Source: source, IsStar: true, IsTypeOnly: isTypeOnly})
	case starSeen:
		w.exports = append(w.exports, Export{Source: source, IsStar: true, IsTypeOnly: isTypeOnly})
	case clause != nil:
		w.collectExportClause(clause, source, isTypeOnly)
	case defaultSeen && decl != nil:
		w.addExportDefault(decl, isTypeOnly)
	case decl != nil:
		w.addInlineExportedDecl(decl, isTypeOnly)
	}
}

func (w *walker) collectExportClause(clause *tree_sitter.Node, source string, isTypeOnly bool) {
	count := clause.ChildCount()
	for i := uint(0); i < count; i++ {
		spec := clause.Child(i)
		if spec == nil || spec.Kind() != "export_specifier" {
			continue
		}
		name := spec.ChildByFieldName("name")
		alias := spec.ChildByFieldName("alias")
		if name == nil {
			continue
		}
		local := nodeText(name, w.content)
		exported := local
		if alias != nil {
			exported = nodeText(alias, w.content)
		}
		w.exports = append(w.exports, Export{Name: exported, LocalName: local, Source: source, IsTypeOnly: isTypeOnly})
	}
}

func (w *walker) addExportDefault(decl *tree_sitter.Node, isTypeOnly bool) {
	switch decl.Kind() {
	case "function_declaration":
		w.addFunctionSymbol(decl, true, true)
	case "class_declaration":
		w.addClassSymbol(decl, true, true)
	default:
		// anonymous default export expression (export default 1 + 2, etc.)
		w.symbols = append(w.symbols, SymbolDecl{
			Name: "default", Kind: KindVariable,
			StartLine: int(decl.StartPosition().Row) + 1, EndLine: int(decl.EndPosition().Row) + 1,
			IsExported: true, IsDefault: true, IsTypeOnly: isTypeOnly,
		})
	}
	w.exports = append(w.exports, Export{Name: "default", LocalName: declName(decl, w.content), IsTypeOnly: isTypeOnly})
}

func (w *walker) addInlineExportedDecl(decl *tree_sitter.Node, isTypeOnly bool) {
	switch decl.Kind() {
	case "function_declaration":
		w.addFunctionSymbol(decl, true, false)
		w.exportName(decl, isTypeOnly)
	case "class_declaration":
		w.addClassSymbol(decl, true, false)
		w.exportName(decl, isTypeOnly)
	case "interface_declaration":
		w.addInterfaceSymbol(decl, true, false)
		w.exportName(decl, true)
	case "type_alias_declaration":
		w.addTypeAliasSymbol(decl, true, false)
		w.exportName(decl, true)
	case "enum_declaration":
		w.addEnumSymbol(decl, true, false)
		w.exportName(decl, isTypeOnly)
	case "internal_module", "module", "ambient_declaration":
		w.addNamespaceSymbol(decl, true, false)
		w.exportName(decl, isTypeOnly)
	case "lexical_declaration", "variable_declaration":
		before := len(w.symbols)
		w.addVariableSymbols(decl, true, false)
		for _, s := range w.symbols[before:] {
			w.exports = append(w.exports, Export{Name: s.Name, LocalName: s.Name, IsTypeOnly: isTypeOnly})
		}
	}
}

func (w *walker) exportName(decl *tree_sitter.Node, isTypeOnly bool) {
	name := declName(decl, w.content)
	if name == "" {
		return
	}
	w.exports = append(w.exports, Export{Name: name, LocalName: name, IsTypeOnly: isTypeOnly})
}

func declName(decl *tree_sitter.Node, content []byte) string {
	if nameNode := decl.ChildByFieldName("name"); nameNode != nil {
		return nodeText(nameNode, content)
	}
	return ""
}

// ---- symbol builders ----

func (w *walker) addFunctionSymbol(n *tree_sitter.Node, exported, isDefault bool) {
	name := declName(n, w.content)
	if name == "" && isDefault {
		name = "default"
	}
	w.symbols = append(w.symbols, SymbolDecl{
		Name: name, Kind: KindFunction,
		StartLine: int(n.StartPosition().Row) + 1, EndLine: int(n.EndPosition().Row) + 1,
		IsExported: exported, IsDefault: isDefault,
	})
}

func (w *walker) addClassSymbol(n *tree_sitter.Node, exported, isDefault bool) {
	name := declName(n, w.content)
	if name == "" && isDefault {
		name = "default"
	}
	w.symbols = append(w.symbols, SymbolDecl{
		Name: name, Kind: KindClass,
		StartLine: int(n.StartPosition().Row) + 1, EndLine: int(n.EndPosition().Row) + 1,
		IsExported: exported, IsDefault: isDefault,
	})
}

func (w *walker) addInterfaceSymbol(n *tree_sitter.Node, exported, isDefault bool) {
	w.symbols = append(w.symbols, SymbolDecl{
		Name: declName(n, w.content), Kind: KindInterface,
		StartLine: int(n.StartPosition().Row) + 1, EndLine: int(n.EndPosition().Row) + 1,
		IsExported: exported, IsDefault: isDefault, IsTypeOnly: true,
	})
}

func (w *walker) addTypeAliasSymbol(n *tree_sitter.Node, exported, isDefault bool) {
	w.symbols = append(w.symbols, SymbolDecl{
		Name: declName(n, w.content), Kind: KindType,
		StartLine: int(n.StartPosition().Row) + 1, EndLine: int(n.EndPosition().Row) + 1,
		IsExported: exported, IsDefault: isDefault, IsTypeOnly: true,
	})
}

func (w *walker) addEnumSymbol(n *tree_sitter.Node, exported, isDefault bool) {
	w.symbols = append(w.symbols, SymbolDecl{
		Name: declName(n, w.content), Kind: KindEnum,
		StartLine: int(n.StartPosition().Row) + 1, EndLine: int(n.EndPosition().Row) + 1,
		IsExported: exported, IsDefault: isDefault,
	})
}

func (w *walker) addNamespaceSymbol(n *tree_sitter.Node, exported, isDefault bool) {
	name := declName(n, w.content)
	if name == "" {
		if id := findChildByKind(n, "identifier"); id != nil {
			name = nodeText(id, w.content)
		}
	}
	w.symbols = append(w.symbols, SymbolDecl{
		Name: name, Kind: KindNamespace,
		StartLine: int(n.StartPosition().Row) + 1, EndLine: int(n.EndPosition().Row) + 1,
		IsExported: exported, IsDefault: isDefault,
	})
}

// addVariableSymbols emits one SymbolDecl per declarator in a
// lexical_declaration/variable_declaration, each spanning only its own
// declarator node so `export const a = 1, b = 2` yields two independently
// seedable symbols.
func (w *walker) addVariableSymbols(n *tree_sitter.Node, exported, isDefault bool) {
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		child := n.Child(i)
		if child == nil || child.Kind() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		w.symbols = append(w.symbols, SymbolDecl{
			Name: nodeText(nameNode, w.content), Kind: KindVariable,
			StartLine: int(child.StartPosition().Row) + 1, EndLine: int(child.EndPosition().Row) + 1,
			IsExported: exported, IsDefault: isDefault,
		})
	}
}
