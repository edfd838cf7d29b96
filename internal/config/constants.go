package config

// Provider names
const (
	ProviderGemini   = "gemini"
	ProviderDeepSeek = "deepseek"
)

// Bot comment markers. Every body the service posts carries one of these
// HTML comments so later runs can recognize their own output.
const (
	MarkerSummary   = "<!-- code-critics-review -->"
	MarkerInline    = "<!-- code-critics-comment -->"
	MarkerTimestamp = "<!-- timestamp: %d -->"
)

// MentionToken triggers a manual re-review when it appears in a PR comment.
const MentionToken = "@codecritics"

// StatusContext is the commit status context for all state updates.
const StatusContext = "CodeCritic AI Review"

// NoIssuesSentinel is the exact phrase the model emits when the diff is clean.
const NoIssuesSentinel = "No significant issues found. Good job!"

// DefaultAllowedExtensions is the extension filter applied when a diff
// exceeds the size threshold and no override is configured.
var DefaultAllowedExtensions = []string{
	".ts", ".js", ".jsx", ".tsx", ".py", ".java", ".cpp", ".c", ".go",
	".rs", ".php", ".rb", ".cs", ".swift", ".kt", ".scala", ".sh",
	".sql", ".json", ".yaml", ".yml", ".md",
}

// User-visible failure messages, keyed by error category.
const (
	MsgAuthFailure    = "Authentication configuration issue detected."
	MsgNetworkFailure = "Network connectivity issue encountered."
	MsgTimeout        = "Request timeout — the review took too long to complete."
	MsgRateLimited    = "Rate limit exceeded — please try again later."
	MsgUnexpected     = "An unexpected error occurred during the review process."
)

// Log sanitization limits for webhook payload echo.
const (
	MaxLoggedTitleLen   = 100
	MaxLoggedCommentLen = 100
	TruncatedSuffix     = "... [TRUNCATED]"
)
