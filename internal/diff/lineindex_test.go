package diff

import "testing"

const indexedDiff = `diff --git a/src/app.go b/src/app.go
index 0000000..1111111 100644
--- a/src/app.go
+++ b/src/app.go
@@ -10,3 +10,4 @@ func main() {
 context line
+added line
+another added
 trailing context
@@ -40,2 +41,3 @@ func helper() {
 context
+late addition
 context
diff --git a/docs/notes.md b/docs/notes.md
index 0000000..1111111 100644
--- a/docs/notes.md
+++ b/docs/notes.md
@@ -1,1 +1,2 @@
 title
+new note
`

func TestLineIndex_Has(t *testing.T) {
	idx := NewLineIndex(indexedDiff)

	if !idx.Has("src/app.go") {
		t.Error("expected src/app.go indexed")
	}
	if !idx.Has("docs/notes.md") {
		t.Error("expected docs/notes.md indexed")
	}
	if idx.Has("missing.go") {
		t.Error("unexpected file indexed")
	}
}

func TestLineIndex_ClampInsideRange(t *testing.T) {
	idx := NewLineIndex(indexedDiff)

	// First hunk covers right-side lines 10..13
	for line := 10; line <= 13; line++ {
		if got := idx.Clamp("src/app.go", line); got != line {
			t.Errorf("line %d inside range moved to %d", line, got)
		}
	}
}

func TestLineIndex_ClampSnapsToNearestEdge(t *testing.T) {
	idx := NewLineIndex(indexedDiff)

	tests := []struct {
		line int
		want int
	}{
		{1, 10},   // far below first hunk
		{14, 13},  // just above first hunk
		{500, 43}, // far beyond second hunk (lines 41..43)
		{30, 41},  // between hunks, closer to the second
	}

	for _, tt := range tests {
		if got := idx.Clamp("src/app.go", tt.line); got != tt.want {
			t.Errorf("Clamp(%d) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestLineIndex_UnknownFileKeepsLine(t *testing.T) {
	idx := NewLineIndex(indexedDiff)

	if got := idx.Clamp("unknown.go", 42); got != 42 {
		t.Errorf("unknown file line changed to %d", got)
	}
	if got := idx.Clamp("unknown.go", -5); got != 1 {
		t.Errorf("negative line should floor at 1, got %d", got)
	}
}

func TestLineIndex_PathPrefixTolerance(t *testing.T) {
	idx := NewLineIndex(indexedDiff)

	// Model replies sometimes carry only the basename path tail
	if !idx.Has("app.go") {
		t.Error("expected suffix match on app.go")
	}
	if got := idx.Clamp("b/src/app.go", 11); got != 11 {
		t.Errorf("prefixed path should clamp normally, got %d", got)
	}
}
