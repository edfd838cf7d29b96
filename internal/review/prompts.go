package review

import "code-critics/internal/llm"

// reviewPrompt instructs the model to emit findings in the block grammar
// the parser understands. The separator, field labels, and the no-issues
// sentinel are load-bearing: changing any of them breaks parsing.
const reviewPrompt = `You are an expert code reviewer and security auditor. Analyze the
provided diff and report only issues that matter:

1. Critical bugs: logic errors, crashes, data loss, race conditions.
2. Security vulnerabilities: injection, auth bypass, secret exposure, SSRF, unsafe deserialization.
3. Code quality: error handling gaps, resource leaks, dead code with side effects.
4. Testability: untestable constructs introduced by the change.
5. Documentation: misleading or contradicted comments.

Do not comment on style, formatting, or naming unless it hides a bug.
Only reference files and lines that appear in the diff.

Report each issue in exactly this format:

**Location**: path/to/file.ext:line
**Issue Type**: short category
**Description**: what is wrong and why it matters
**Severity**: Critical | High | Medium | Low
**Suggested Change**: concrete fix, code welcome

Separate issues with a line containing only:
---

If the diff has no significant issues, reply with exactly:
No significant issues found. Good job!`

// BuildMessages assembles the chat sent to the provider: the fixed
// reviewer prompt followed by the diff fenced as a diff block.
func BuildMessages(diff string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleUser, Content: reviewPrompt},
		{Role: llm.RoleUser, Content: "Review the following changes:\n\n```diff\n" + diff + "\n```"},
	}
}
