package diff

import (
	"regexp"
	"strconv"
	"strings"
)

// LineRange is a contiguous span of visible right-side lines.
type LineRange struct {
	Start int
	End   int
}

// LineIndex maps each file in a unified diff to the right-side line
// numbers visible in its hunks. Findings are clamped to these ranges so
// inline comments always land on a commentable line.
type LineIndex struct {
	ranges map[string][]LineRange
}

var (
	filePattern = regexp.MustCompile(`(?m)^\+\+\+ (?:b/)?(.+)$`)
	hunkPattern = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)
)

// NewLineIndex parses a unified diff into a line index.
func NewLineIndex(diff string) *LineIndex {
	idx := &LineIndex{ranges: make(map[string][]LineRange)}

	var currentFile string
	var currentLine int
	var inHunk bool

	for _, line := range strings.Split(diff, "\n") {
		if m := filePattern.FindStringSubmatch(line); len(m) > 1 {
			currentFile = normalizePath(strings.TrimSpace(m[1]))
			inHunk = false
			continue
		}
		if m := hunkPattern.FindStringSubmatch(line); len(m) > 1 {
			currentLine, _ = strconv.Atoi(m[1])
			inHunk = true
			continue
		}
		if !inHunk || currentFile == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			idx.add(currentFile, currentLine)
			currentLine++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			// Deleted line: right-side line number does not advance
		case strings.HasPrefix(line, " ") || line == "":
			idx.add(currentFile, currentLine)
			currentLine++
		}
	}
	return idx
}

func (idx *LineIndex) add(file string, line int) {
	ranges := idx.ranges[file]
	for i := range ranges {
		if line == ranges[i].End+1 {
			ranges[i].End = line
			return
		}
		if line >= ranges[i].Start && line <= ranges[i].End {
			return
		}
	}
	idx.ranges[file] = append(ranges, LineRange{Start: line, End: line})
}

// Has reports whether the file appears in the diff at all.
func (idx *LineIndex) Has(file string) bool {
	_, ok := idx.lookup(file)
	return ok
}

// Clamp snaps a finding's line into the file's visible range. Unknown
// files keep the original line (minimum 1) so the finding is not lost.
func (idx *LineIndex) Clamp(file string, line int) int {
	if line < 1 {
		line = 1
	}
	ranges, ok := idx.lookup(file)
	if !ok || len(ranges) == 0 {
		return line
	}

	best := ranges[0].Start
	bestDist := -1
	for _, r := range ranges {
		if line >= r.Start && line <= r.End {
			return line
		}
		for _, edge := range []int{r.Start, r.End} {
			d := line - edge
			if d < 0 {
				d = -d
			}
			if bestDist < 0 || d < bestDist {
				bestDist = d
				best = edge
			}
		}
	}
	return best
}

func (idx *LineIndex) lookup(file string) ([]LineRange, bool) {
	norm := normalizePath(file)
	if ranges, ok := idx.ranges[norm]; ok {
		return ranges, true
	}
	// Model replies sometimes carry a different path prefix
	for f, ranges := range idx.ranges {
		if strings.HasSuffix(f, "/"+norm) || strings.HasSuffix(norm, "/"+f) {
			return ranges, true
		}
	}
	return nil, false
}

func normalizePath(p string) string {
	p = strings.TrimPrefix(p, "a/")
	p = strings.TrimPrefix(p, "b/")
	return strings.TrimPrefix(p, "/")
}
