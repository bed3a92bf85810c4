// Package diffreader parses a unified diff into per-file ChangedRegions,
// tracking the post-image line counter through each hunk and merging the
// result into contiguous line ranges so the Symbol Locator can do a single
// interval test per symbol.
package diffreader

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gooddata-labs/affected/internal/diag"
)

// LineRange is a 1-based, inclusive closed interval in the post-image file.
type LineRange struct {
	Start int
	End   int
}

func (r LineRange) Overlaps(other LineRange) bool {
	return r.Start <= other.End && r.End >= other.Start
}

// ChangedRegion is everything the diff says changed about one post-image
// file.
type ChangedRegion struct {
	File string
	// Ranges is sorted and non-overlapping.
	Ranges []LineRange
	// IsNewFile is true when the diff introduced this path.
	IsNewFile bool
	// IsDeleted is true when the diff removed this path; Ranges is empty
	// for deletions since there is no post-image to point into.
	IsDeleted bool
	// FullyChanged is set when a hunk header could not be parsed (the file
	// is then treated conservatively as changed in its entirety). Binary
	// diffs produce no region at all.
	FullyChanged bool
}

// Read parses a unified diff string, reporting malformed hunk headers to
// diagnostics rather than aborting (spec's DiffMalformed policy: the
// offending file is recorded and treated as fully changed, non-fatal).
func Read(diffText string, diagnostics *diag.Collector) []ChangedRegion {
	var result []ChangedRegion
	byPath := make(map[string]*ChangedRegion)

	lines := strings.Split(diffText, "\n")
	var current *ChangedRegion
	newLine := 0 // last post-image line number assigned in the current hunk
	inHunk := false
	// pendingNewFile carries a "new file mode" line over to the region that
	// the following "+++" line selects.
	pendingNewFile := false
	var pendingStart = -1
	var pendingEnd = -1

	flushPending := func() {
		if current == nil || pendingStart < 0 {
			return
		}
		current.Ranges = append(current.Ranges, LineRange{Start: pendingStart, End: pendingEnd})
		pendingStart, pendingEnd = -1, -1
	}

	finishFile := func() {
		flushPending()
		current = nil
		newLine = 0
		inHunk = false
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			finishFile()
			pendingNewFile = false

		case strings.HasPrefix(line, "Binary files "):
			// Binary diffs carry no line-addressable regions.
			finishFile()

		case strings.HasPrefix(line, "GIT binary patch"):
			finishFile()

		case strings.HasPrefix(line, "--- "):
			// old-image marker; nothing to do, path comes from the +++ line.

		case strings.HasPrefix(line, "+++ "):
			finishFile()
			path := strings.TrimPrefix(line, "+++ ")
			if path == "/dev/null" {
				// Pure deletion: the companion "--- a/<path>" line carries
				// the real path; findDeletedPaths recovers it after this loop.
				continue
			}
			path = stripGitPrefix(path)
			region, ok := byPath[path]
			if !ok {
				result = append(result, ChangedRegion{File: path})
				region = &result[len(result)-1]
				byPath[path] = region
			}
			current = region
			if pendingNewFile {
				current.IsNewFile = true
			}

		case strings.HasPrefix(line, "deleted file mode"):
			// Nothing to record here: git emits "--- a/<path>" immediately
			// followed by "+++ /dev/null" for deletions, and findDeletedPaths
			// recovers the path from that pair after this loop.

		case strings.HasPrefix(line, "rename to "):
			// Renames get no special handling: only the hunks git emits
			// against the new path are recorded, as for any modified file.
			// The new path is not marked fully changed, the old path is not
			// recorded as deleted, and a rename without content changes
			// yields no region at all.

		case strings.HasPrefix(line, "new file mode"):
			// Git emits this before the "+++" line that selects current.
			pendingNewFile = true

		case strings.HasPrefix(line, "@@ "):
			flushPending()
			start, count, ok := parseHunkHeader(line)
			if !ok {
				if current != nil {
					current.FullyChanged = true
					diagnostics.Add(diag.KindDiffMalformed, current.File, "unparseable hunk header: "+line)
				}
				newLine = 0
				inHunk = false
				continue
			}
			newLine = start - 1
			inHunk = true
			if count == 0 {
				// A hunk that adds nothing to the new file (pure deletion
				// site) still marks an insertion point immediately after.
				pendingStart, pendingEnd = start, start
			}

		case inHunk && current != nil:
			if strings.HasPrefix(line, "-") {
				// A removed line marks its deletion site: the post-image
				// line that now follows it.
				if pendingStart < 0 {
					pendingStart = newLine + 1
				}
				pendingEnd = newLine + 1
				continue
			}
			newLine++
			if strings.HasPrefix(line, "+") {
				if pendingStart < 0 {
					pendingStart = newLine
				}
				pendingEnd = newLine
			} else {
				flushPending()
			}
		}
	}
	finishFile()

	// Second pass: recover deletions. Git's "--- a/<path>" / "+++ /dev/null"
	// pair for a deleted file never produced a byPath entry above (we skip
	// /dev/null targets), so scan again keyed on "--- a/" lines followed by
	// a /dev/null companion.
	deleted := findDeletedPaths(diffText)
	for _, p := range deleted {
		if _, ok := byPath[p]; ok {
			continue
		}
		result = append(result, ChangedRegion{File: p, IsDeleted: true})
	}

	for i := range result {
		sortAndMerge(&result[i])
	}
	return result
}

func stripGitPrefix(path string) string {
	path = strings.TrimSuffix(path, "\t")
	// Strip diff timestamp suffix some tools append ("\tTIMESTAMP").
	if idx := strings.Index(path, "\t"); idx >= 0 {
		path = path[:idx]
	}
	if strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}

func findDeletedPaths(diffText string) []string {
	var result []string
	lines := strings.Split(diffText, "\n")
	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(lines[i], "--- a/") {
			continue
		}
		if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], "+++ /dev/null") {
			continue
		}
		result = append(result, strings.TrimPrefix(lines[i], "--- a/"))
	}
	return result
}

// parseHunkHeader extracts the post-image start line and line count from a
// "@@ -a,b +c,d @@" header, also returning the count so the caller can
// special-case pure-deletion hunks (count == 0).
func parseHunkHeader(line string) (start, count int, ok bool) {
	plusIdx := strings.Index(line, "+")
	if plusIdx < 0 {
		return 0, 0, false
	}
	rest := line[plusIdx+1:]
	spaceIdx := strings.Index(rest, " ")
	if spaceIdx < 0 {
		return 0, 0, false
	}
	rangeStr := rest[:spaceIdx]
	parts := strings.SplitN(rangeStr, ",", 2)
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	count = 1
	if len(parts) == 2 {
		count, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, false
		}
	}
	return start, count, true
}

func sortAndMerge(r *ChangedRegion) {
	if len(r.Ranges) < 2 {
		return
	}
	sort.Slice(r.Ranges, func(i, j int) bool { return r.Ranges[i].Start < r.Ranges[j].Start })
	merged := r.Ranges[:1]
	for _, cur := range r.Ranges[1:] {
		last := &merged[len(merged)-1]
		if cur.Start <= last.End+1 {
			if cur.End > last.End {
				last.End = cur.End
			}
			continue
		}
		merged = append(merged, cur)
	}
	r.Ranges = merged
}
