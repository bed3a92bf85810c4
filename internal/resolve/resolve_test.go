package resolve

import "testing"

type fakeFS struct {
	dirs  map[string]bool
	files map[string][]byte
}

func newFakeFS() *fakeFS {
	return &fakeFS{dirs: map[string]bool{}, files: map[string][]byte{}}
}

func (f *fakeFS) addFile(p string, content string) {
	f.files[p] = []byte(content)
}

func (f *fakeFS) addDir(p string) {
	f.dirs[p] = true
}

func (f *fakeFS) Stat(p string) (bool, bool) {
	if f.dirs[p] {
		return true, true
	}
	if _, ok := f.files[p]; ok {
		return false, true
	}
	return false, false
}

func (f *fakeFS) ReadFile(p string) ([]byte, bool) {
	b, ok := f.files[p]
	return b, ok
}

func TestResolveRelativeWithExtensionProbe(t *testing.T) {
	fs := newFakeFS()
	fs.addFile("src/utils.ts", "export const x = 1")

	r := New(fs, "/repo", nil)
	res := r.Resolve("src/index.ts", "./utils")
	if res.Unresolved || res.ResolvedPath != "src/utils.ts" {
		t.Fatalf("expected src/utils.ts, got %+v", res)
	}
}

func TestResolveRelativeToDirectoryIndex(t *testing.T) {
	fs := newFakeFS()
	fs.addDir("src/feature")
	fs.addFile("src/feature/index.ts", "export const y = 1")

	r := New(fs, "/repo", nil)
	res := r.Resolve("src/main.ts", "./feature")
	if res.Unresolved || res.ResolvedPath != "src/feature/index.ts" {
		t.Fatalf("expected src/feature/index.ts, got %+v", res)
	}
}

func TestResolveAliasLongestPrefixWins(t *testing.T) {
	fs := newFakeFS()
	fs.addFile("packages/widgets/src/button.ts", "export const Button = 1")

	aliasMap := map[string]string{
		"@app/":         "packages/app",
		"@app/widgets/": "packages/widgets/src",
	}
	r := New(fs, "/repo", aliasMap)
	res := r.Resolve("anywhere.ts", "@app/widgets/button")
	if res.Unresolved || res.ResolvedPath != "packages/widgets/src/button.ts" {
		t.Fatalf("expected longest-prefix alias match, got %+v", res)
	}
}

func TestResolveExternalBareSpecifier(t *testing.T) {
	fs := newFakeFS()
	r := New(fs, "/repo", nil)
	res := r.Resolve("src/index.ts", "react")
	if !res.Unresolved || res.Reason != ReasonExternal {
		t.Fatalf("expected external unresolved, got %+v", res)
	}
}

func TestResolvePackageJSONExportsPriority(t *testing.T) {
	fs := newFakeFS()
	fs.addDir("packages/lib")
	fs.addFile("packages/lib/package.json", `{
		"exports": {
			".": {
				"types": "./dist/index.d.ts",
				"default": "./dist/index.js",
				"import": "./src/index.ts"
			}
		}
	}`)
	fs.addFile("packages/lib/src/index.ts", "export const z = 1")
	fs.addFile("packages/lib/dist/index.js", "module.exports = {}")

	r := New(fs, "/repo", nil)
	res := r.Resolve("anywhere.ts", "./lib")
	// resolveUncached treats "./lib" as relative to fromFile's dir (".")
	// so build the path manually instead, exercising resolveDirectory via
	// probeTarget on the known directory.
	res2 := r.probeTarget("packages/lib")
	if res2.Unresolved || res2.ResolvedPath != "packages/lib/src/index.ts" {
		t.Fatalf("expected import condition to win over default/types, got %+v (direct relative attempt was %+v)", res2, res)
	}
}

func TestResolveNotFound(t *testing.T) {
	fs := newFakeFS()
	r := New(fs, "/repo", nil)
	res := r.Resolve("src/index.ts", "./missing")
	if !res.Unresolved || res.Reason != ReasonNotFound {
		t.Fatalf("expected not_found, got %+v", res)
	}
}

func TestResolveIsMemoized(t *testing.T) {
	fs := newFakeFS()
	fs.addFile("src/utils.ts", "export const x = 1")
	r := New(fs, "/repo", nil)

	first := r.Resolve("src/index.ts", "./utils")
	delete(fs.files, "src/utils.ts")
	second := r.Resolve("src/index.ts", "./utils")

	if first != second {
		t.Fatalf("expected cached resolution to be stable across underlying fs changes, got %+v vs %+v", first, second)
	}
}
