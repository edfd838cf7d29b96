package webhook

import (
	"code-critics/internal/config"
	"code-critics/internal/types"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// fields dropped wholesale from the logged payload echo
var strippedPaths = []string{
	"installation",
	"sender.gravatar_id",
	"repository.owner.gravatar_id",
	"pull_request.head.repo",
	"pull_request.base.repo",
	"pull_request._links",
	"repository.permissions",
}

// fields truncated to keep the log line bounded
var truncatedPaths = map[string]int{
	"pull_request.title": config.MaxLoggedTitleLen,
	"pull_request.body":  config.MaxLoggedCommentLen,
	"comment.body":       config.MaxLoggedCommentLen,
	"issue.title":        config.MaxLoggedTitleLen,
}

// SanitizePayload prepares a webhook body for post-ACK logging: secrets
// are redacted, noisy subtrees dropped, and free-text fields truncated.
func SanitizePayload(body []byte) string {
	if !gjson.ValidBytes(body) {
		return types.Redact(truncate(string(body), 500))
	}

	result := string(body)
	for _, path := range strippedPaths {
		result, _ = sjson.Delete(result, path)
	}

	for path, max := range truncatedPaths {
		val := gjson.Get(result, path)
		if val.Type == gjson.String && len(val.String()) > max {
			result, _ = sjson.Set(result, path, val.String()[:max]+config.TruncatedSuffix)
		}
	}

	return types.Redact(result)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
