package review

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"code-critics/internal/config"
	"code-critics/internal/domain"
)

// Field defaults applied to tolerably malformed blocks.
const (
	defaultIssueType   = "Code Issue"
	defaultDescription = "No description provided"
	defaultSuggestion  = "No specific change suggested"
)

const (
	labelLocation    = "Location"
	labelIssueType   = "Issue Type"
	labelDescription = "Description"
	labelSeverity    = "Severity"
	labelSuggestion  = "Suggested Change"
)

// ParseFindings converts the model reply into typed findings. The parser
// is tolerant: malformed blocks are logged and skipped, never fatal.
func ParseFindings(reply string) []domain.Finding {
	if strings.Contains(reply, config.NoIssuesSentinel) {
		return nil
	}

	var findings []domain.Finding
	for _, block := range splitBlocks(reply) {
		f, ok := parseBlock(block)
		if !ok {
			continue
		}
		findings = append(findings, f)
	}
	return findings
}

// splitBlocks separates the reply at lines containing only "---".
func splitBlocks(reply string) []string {
	var blocks []string
	var current []string
	for _, line := range strings.Split(reply, "\n") {
		if strings.TrimSpace(line) == "---" {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = current[:0]
			continue
		}
		current = append(current, line)
	}
	blocks = append(blocks, strings.Join(current, "\n"))
	return blocks
}

// parseBlock reads labeled lines and multi-line continuations. A block
// lacking a path or any description is dropped.
func parseBlock(block string) (domain.Finding, bool) {
	if strings.TrimSpace(block) == "" {
		return domain.Finding{}, false
	}

	f := domain.Finding{Line: 1}
	var sawDescription, sawSuggestion bool
	// Continuation target: the last multi-line-capable field
	appendTo := func(string) {}

	for _, line := range strings.Split(block, "\n") {
		label, value, ok := matchLabel(line)
		if !ok {
			trimmed := strings.TrimRight(line, " \t")
			if strings.TrimSpace(trimmed) != "" || f.Description != "" || f.Suggestion != "" {
				appendTo(trimmed)
			}
			continue
		}

		switch label {
		case labelLocation:
			f.Path, f.Line = parseLocation(value)
			appendTo = func(string) {}
		case labelIssueType:
			f.IssueType = value
			appendTo = func(string) {}
		case labelSeverity:
			f.Severity = normalizeSeverity(value)
			appendTo = func(string) {}
		case labelDescription:
			sawDescription = true
			f.Description = value
			appendTo = func(s string) {
				f.Description = joinLines(f.Description, s)
			}
		case labelSuggestion:
			sawSuggestion = true
			f.Suggestion = value
			appendTo = func(s string) {
				f.Suggestion = joinLines(f.Suggestion, s)
			}
		}
	}

	if f.Path == "" {
		slog.Debug("dropping finding block without path", "block_preview", preview(block))
		return domain.Finding{}, false
	}
	if !sawDescription && f.Description == "" {
		slog.Debug("dropping finding block without description", "path", f.Path)
		return domain.Finding{}, false
	}

	if f.IssueType == "" {
		f.IssueType = defaultIssueType
	}
	if f.Severity == "" {
		f.Severity = domain.SeverityMedium
	}
	if f.Description == "" {
		f.Description = defaultDescription
	}
	if !sawSuggestion || f.Suggestion == "" {
		f.Suggestion = defaultSuggestion
	}
	return f, true
}

// matchLabel recognizes "**Label**: value" lines for the known labels.
func matchLabel(line string) (label, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	for _, l := range []string{labelLocation, labelIssueType, labelDescription, labelSeverity, labelSuggestion} {
		prefix := "**" + l + "**:"
		if strings.HasPrefix(trimmed, prefix) {
			return l, strings.TrimSpace(trimmed[len(prefix):]), true
		}
	}
	return "", "", false
}

// parseLocation splits "path[:line]", stripping backticks. A missing,
// unparseable, or non-positive line defaults to 1. An unparseable suffix
// is stripped from the path unless it looks like part of the path itself.
func parseLocation(value string) (string, int) {
	value = strings.Trim(strings.TrimSpace(value), "`")
	if value == "" {
		return "", 1
	}

	path := value
	line := 1
	if idx := strings.LastIndex(value, ":"); idx > 0 {
		suffix := strings.TrimSpace(value[idx+1:])
		if n, err := strconv.Atoi(suffix); err == nil {
			if n >= 1 {
				line = n
			}
			path = value[:idx]
		} else if !strings.Contains(suffix, "/") {
			path = value[:idx]
		}
	}
	return strings.TrimSpace(path), line
}

func normalizeSeverity(value string) domain.Severity {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "critical":
		return domain.SeverityCritical
	case "high":
		return domain.SeverityHigh
	case "low":
		return domain.SeverityLow
	case "medium":
		return domain.SeverityMedium
	case "":
		return ""
	default:
		return domain.SeverityMedium
	}
}

func joinLines(existing, next string) string {
	if existing == "" {
		return next
	}
	return existing + "\n" + next
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}

// RenderFinding produces the inline comment body for a finding. The four
// labels always appear, in order, followed by the inline marker.
func RenderFinding(f domain.Finding) string {
	return fmt.Sprintf("**Issue Type**: %s\n**Description**: %s\n**Severity**: %s\n**Suggested Change**: %s\n\n%s",
		f.IssueType, f.Description, f.Severity, f.Suggestion, config.MarkerInline)
}
