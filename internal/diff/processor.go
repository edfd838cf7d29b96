package diff

import (
	"log/slog"
	"strings"

	"code-critics/internal/domain"
)

const fileBoundary = "diff --git "

// FileSection is one file's slice of a unified diff, byte-for-byte.
type FileSection struct {
	Path    string
	Content string
}

// Processor applies the size policy to a fetched diff: file-boundary
// chunking, extension filtering, and the oversize skip rules.
type Processor struct {
	maxDiffSize int
	multiplier  float64
	chunkSize   int
	extensions  []string // lowercased, dot-prefixed
}

// NewProcessor creates a diff processor.
func NewProcessor(maxDiffSize int, multiplier float64, chunkSize int, extensions []string) *Processor {
	if maxDiffSize <= 0 {
		maxDiffSize = 100000
	}
	if multiplier < 1 {
		multiplier = 1.5
	}
	if chunkSize <= 0 {
		chunkSize = 50000
	}
	return &Processor{
		maxDiffSize: maxDiffSize,
		multiplier:  multiplier,
		chunkSize:   chunkSize,
		extensions:  extensions,
	}
}

// Result of processing: either a reviewable diff or a skip reason.
type Result struct {
	Diff    string
	Skipped bool
	Reason  domain.SkipReason
}

// Process applies the size-adaptive policy. Diffs under the threshold
// pass through untouched; larger ones are extension-filtered, and diffs
// still over threshold × multiplier after filtering are skipped.
func (p *Processor) Process(diff string) Result {
	if len(diff) <= p.maxDiffSize {
		return Result{Diff: diff}
	}

	filtered := p.Filter(diff)
	if strings.TrimSpace(filtered) == "" {
		slog.Info("no supported files after filtering", "original_size", len(diff))
		return Result{Skipped: true, Reason: domain.SkipNoSupportedFiles}
	}

	limit := int(float64(p.maxDiffSize) * p.multiplier)
	if len(filtered) > limit {
		slog.Info("diff too large after filtering",
			"filtered_size", len(filtered), "limit", limit)
		return Result{Skipped: true, Reason: domain.SkipDiffTooLarge}
	}

	return Result{Diff: filtered}
}

// SplitFiles splits a unified diff at file boundaries. Concatenating the
// returned sections reproduces the input exactly; any preamble before the
// first boundary is attached to the first section.
func SplitFiles(diff string) []FileSection {
	if diff == "" {
		return nil
	}

	var starts []int
	if strings.HasPrefix(diff, fileBoundary) {
		starts = append(starts, 0)
	}
	for i := 0; ; {
		idx := strings.Index(diff[i:], "\n"+fileBoundary)
		if idx < 0 {
			break
		}
		starts = append(starts, i+idx+1)
		i += idx + 1
	}

	if len(starts) == 0 {
		return []FileSection{{Path: "", Content: diff}}
	}
	if starts[0] != 0 {
		// Preamble belongs to the first section so bytes are preserved
		starts[0] = 0
	}

	sections := make([]FileSection, 0, len(starts))
	for i, start := range starts {
		end := len(diff)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		content := diff[start:end]
		sections = append(sections, FileSection{
			Path:    headerPath(content),
			Content: content,
		})
	}
	return sections
}

// headerPath extracts the new-side filename from the section's
// "diff --git a/x b/y" header line. The header need not be the first
// line: the first section may carry preamble ahead of its boundary.
func headerPath(section string) string {
	rest, ok := strings.CutPrefix(section, fileBoundary)
	if !ok {
		idx := strings.Index(section, "\n"+fileBoundary)
		if idx < 0 {
			return ""
		}
		rest = section[idx+1+len(fileBoundary):]
	}
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		rest = rest[:idx]
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimPrefix(fields[len(fields)-1], "b/")
}

// Filter keeps only file sections whose filename carries an allowed
// extension. Matching is case-insensitive. Filtering twice is a no-op.
func (p *Processor) Filter(diff string) string {
	sections := SplitFiles(diff)
	var sb strings.Builder
	for _, s := range sections {
		if p.allowedPath(s.Path) {
			sb.WriteString(s.Content)
		}
	}
	return sb.String()
}

func (p *Processor) allowedPath(path string) bool {
	if path == "" {
		return false
	}
	lower := strings.ToLower(path)
	for _, ext := range p.extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Chunk greedily packs file sections into chunks of at most the byte
// budget. A chunk never straddles a file boundary; a single file larger
// than the budget forms its own chunk. Concatenating all chunks
// reproduces the input.
func (p *Processor) Chunk(diff string) []string {
	sections := SplitFiles(diff)
	if len(sections) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder
	for _, s := range sections {
		if current.Len() > 0 && current.Len()+len(s.Content) > p.chunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(s.Content)
		if current.Len() > p.chunkSize {
			// Oversized single file: flush it as its own chunk
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
