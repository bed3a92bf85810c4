// Package resolve implements the Module Resolver: turning an import
// specifier seen in one file into the concrete source file it points at, or
// a reason it couldn't be resolved. Resolution covers relative specifiers,
// alias-map prefixes, the fixed extension probe order, and package.json
// `exports`/`main`/`module`/`browser`/`types` fallback, with the `exports`
// condition priority ordered import → default → types.
package resolve

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// extensionProbeOrder is the fixed probe order applied both to a bare
// specifier and, with "/index" appended, to a directory specifier.
var extensionProbeOrder = []string{".ts", ".tsx", ".d.ts", ".js", ".jsx", ".mjs", ".cjs"}

// Reason enumerates why a specifier could not be turned into a workspace
// file.
type Reason string

const (
	ReasonExternal    Reason = "external"
	ReasonNotFound    Reason = "not_found"
	ReasonUnsupported Reason = "unsupported"
)

// Resolution is the result of resolving one (fromFile, specifier) pair.
type Resolution struct {
	// ResolvedPath is non-empty when resolution succeeded.
	ResolvedPath string
	// Unresolved is true when the specifier could not be pinned to a
	// workspace file; Reason explains why.
	Unresolved bool
	Reason     Reason
}

// FS abstracts the filesystem probes the resolver needs, so tests can run
// against an in-memory fixture instead of real files.
type FS interface {
	Stat(path string) (isDir bool, ok bool)
	ReadFile(path string) ([]byte, bool)
}

// OSFS is the default FS backed by the real filesystem.
type OSFS struct{}

func (OSFS) Stat(p string) (bool, bool) {
	info, err := os.Stat(p)
	if err != nil {
		return false, false
	}
	return info.IsDir(), true
}

func (OSFS) ReadFile(p string) ([]byte, bool) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	return b, true
}

// packageJSON is the subset of fields the resolver reads.
type packageJSON struct {
	Main    string          `json:"main"`
	Module  string          `json:"module"`
	Browser string          `json:"browser"`
	Types   string          `json:"types"`
	Exports json.RawMessage `json:"exports"`
}

// Resolver resolves import specifiers against a workspace root, an alias
// map (longest-prefix matched), and a cache memoized on (fromFile,
// specifier) since the Workspace Analyzer calls Resolve concurrently during
// the parse fan-out and the cache must survive to be read-only afterward.
type Resolver struct {
	fs           FS
	workspaceRoot string
	// aliasMap maps a path-alias prefix (e.g. "@app/") to its target
	// directory, longest prefix wins.
	aliasMap map[string]string
	cache    sync.Map // key: fromFile + "\x00" + specifier -> Resolution
}

func New(fs FS, workspaceRoot string, aliasMap map[string]string) *Resolver {
	if fs == nil {
		fs = OSFS{}
	}
	return &Resolver{fs: fs, workspaceRoot: workspaceRoot, aliasMap: aliasMap}
}

// Resolve turns specifier, as seen inside fromFile, into a Resolution.
func (r *Resolver) Resolve(fromFile, specifier string) Resolution {
	key := fromFile + "\x00" + specifier
	if cached, ok := r.cache.Load(key); ok {
		return cached.(Resolution)
	}
	res := r.resolveUncached(fromFile, specifier)
	r.cache.Store(key, res)
	return res
}

func (r *Resolver) resolveUncached(fromFile, specifier string) Resolution {
	switch {
	case strings.HasPrefix(specifier, "./"), strings.HasPrefix(specifier, "../"):
		target := filepath.Join(filepath.Dir(fromFile), specifier)
		return r.probeTarget(target)

	default:
		if aliasTarget, ok := r.matchAlias(specifier); ok {
			return r.probeTarget(aliasTarget)
		}
		// Bare specifier: only resolvable if it names a path inside the
		// workspace root itself (a workspace package referenced by a path
		// rather than its package name is out of scope here); otherwise
		// it's an external dependency leaf.
		if strings.HasPrefix(specifier, r.workspaceRoot) {
			return r.probeTarget(specifier)
		}
		return Resolution{Unresolved: true, Reason: ReasonExternal}
	}
}

func (r *Resolver) matchAlias(specifier string) (string, bool) {
	var bestPrefix string
	var bestTarget string
	for prefix, target := range r.aliasMap {
		if strings.HasPrefix(specifier, prefix) && len(prefix) > len(bestPrefix) {
			bestPrefix = prefix
			bestTarget = target
		}
	}
	if bestPrefix == "" {
		return "", false
	}
	rest := strings.TrimPrefix(specifier, bestPrefix)
	return filepath.Join(bestTarget, rest), true
}

// probeTarget tries target as a direct file (with each extension appended),
// then as a directory holding a package.json / index.* file.
func (r *Resolver) probeTarget(target string) Resolution {
	if isDir, ok := r.fs.Stat(target); ok && isDir {
		if res, ok := r.resolveDirectory(target); ok {
			return res
		}
		return Resolution{Unresolved: true, Reason: ReasonNotFound}
	}

	if _, ok := r.fs.Stat(target); ok {
		// Exact file already exists (extension included in specifier).
		return Resolution{ResolvedPath: target}
	}

	for _, ext := range extensionProbeOrder {
		candidate := target + ext
		if isDir, ok := r.fs.Stat(candidate); ok && !isDir {
			return Resolution{ResolvedPath: candidate}
		}
	}

	// Directory-style index probe for a target that doesn't exist as a
	// directory either — some resolvers still accept "./foo" resolving to
	// "./foo/index.ts" without "./foo" existing as a stat-able directory in
	// degenerate fixtures; harmless to also try here.
	for _, ext := range extensionProbeOrder {
		candidate := filepath.Join(target, "index"+ext)
		if isDir, ok := r.fs.Stat(candidate); ok && !isDir {
			return Resolution{ResolvedPath: candidate}
		}
	}

	return Resolution{Unresolved: true, Reason: ReasonNotFound}
}

func (r *Resolver) resolveDirectory(dir string) (Resolution, bool) {
	manifestPath := filepath.Join(dir, "package.json")
	if raw, ok := r.fs.ReadFile(manifestPath); ok {
		var pkg packageJSON
		if err := json.Unmarshal(raw, &pkg); err == nil {
			if len(pkg.Exports) > 0 {
				if target, ok := resolveExportsField(pkg.Exports); ok {
					resolved := filepath.Join(dir, target)
					if res := r.probeTarget(resolved); !res.Unresolved {
						return res, true
					}
				}
			}
			for _, field := range []string{pkg.Module, pkg.Browser, pkg.Main, pkg.Types} {
				if field == "" {
					continue
				}
				resolved := filepath.Join(dir, field)
				if res := r.probeTarget(resolved); !res.Unresolved {
					return res, true
				}
			}
		}
	}

	for _, ext := range extensionProbeOrder {
		candidate := filepath.Join(dir, "index"+ext)
		if isDir, ok := r.fs.Stat(candidate); ok && !isDir {
			return Resolution{ResolvedPath: candidate}, true
		}
	}
	return Resolution{}, false
}

// resolveExportsField resolves the "." condition of a package.json exports
// map, honoring import → default → types priority. Both the simple
// string form ("exports": "./index.js") and the conditions-object form are
// accepted; a map keyed by subpath ("." , "./feature") is also accepted,
// only the "." entry is consulted since this resolver only ever probes
// directory roots.
func resolveExportsField(raw json.RawMessage) (string, bool) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, true
	}

	var asMap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return "", false
	}

	if dot, ok := asMap["."]; ok {
		return resolveExportValue(dot)
	}
	return resolveExportValue(raw)
}

func resolveExportValue(raw json.RawMessage) (string, bool) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, true
	}

	var asMap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return "", false
	}

	for _, cond := range []string{"import", "default", "types"} {
		if v, ok := asMap[cond]; ok {
			if s, ok := resolveExportValue(v); ok {
				return s, true
			}
		}
	}
	return "", false
}

// NormalizeRelative returns specifier rewritten relative to the workspace
// root, useful for index keys that must stay stable regardless of the
// caller's working directory.
func NormalizeRelative(workspaceRoot, p string) string {
	rel, err := filepath.Rel(workspaceRoot, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

// JoinSlash joins path segments using forward slashes regardless of OS, for
// specifiers that are always written POSIX-style in source.
func JoinSlash(segments ...string) string {
	return path.Join(segments...)
}
