package webhook

import (
	"testing"

	"code-critics/internal/domain"
)

const prOpenedPayload = `{
	"action": "opened",
	"repository": {"full_name": "alice/repo", "private": false},
	"pull_request": {
		"number": 7,
		"diff_url": "https://github.com/alice/repo/pull/7.diff",
		"head": {"sha": "abc123"}
	}
}`

func TestParsePayload_PROpened(t *testing.T) {
	env, err := ParsePayload("pull_request", "d-1", []byte(prOpenedPayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.Kind != domain.EventPRChanged {
		t.Errorf("expected pr_changed, got %s", env.Kind)
	}
	if env.PullNumber != 7 {
		t.Errorf("expected pull number 7, got %d", env.PullNumber)
	}
	if env.Repo.Owner != "alice" || env.Repo.Name != "repo" {
		t.Errorf("unexpected repo split: %+v", env.Repo)
	}
	if env.HeadSHA != "abc123" {
		t.Errorf("expected head sha abc123, got %s", env.HeadSHA)
	}
	if env.DiffURL == "" {
		t.Error("expected diff url")
	}
	if env.DeliveryID != "d-1" {
		t.Errorf("expected delivery id d-1, got %s", env.DeliveryID)
	}
}

func TestParsePayload_PRActions(t *testing.T) {
	tests := []struct {
		action string
		kind   domain.EventKind
	}{
		{"opened", domain.EventPRChanged},
		{"synchronize", domain.EventPRChanged},
		{"reopened", domain.EventPRChanged},
		{"closed", domain.EventOther},
		{"labeled", domain.EventOther},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			payload := `{
				"action": "` + tt.action + `",
				"repository": {"full_name": "alice/repo"},
				"pull_request": {"number": 1, "diff_url": "https://github.com/alice/repo/pull/1.diff"}
			}`
			env, err := ParsePayload("pull_request", "d", []byte(payload))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if env.Kind != tt.kind {
				t.Errorf("action %s: expected %s, got %s", tt.action, tt.kind, env.Kind)
			}
		})
	}
}

func TestParsePayload_MentionComment(t *testing.T) {
	payload := `{
		"action": "created",
		"repository": {"full_name": "alice/repo"},
		"issue": {"number": 9, "pull_request": {"url": "https://api.github.com/repos/alice/repo/pulls/9"}},
		"comment": {"body": "hey @CodeCritics please take another look", "user": {"login": "bob"}}
	}`

	env, err := ParsePayload("issue_comment", "d", []byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Kind != domain.EventMentionComment {
		t.Fatalf("expected mention_comment, got %s", env.Kind)
	}
	if env.PullNumber != 9 {
		t.Errorf("expected pull number 9, got %d", env.PullNumber)
	}
	if env.Commenter != "bob" {
		t.Errorf("expected commenter bob, got %s", env.Commenter)
	}
}

func TestParsePayload_CommentWithoutMention(t *testing.T) {
	payload := `{
		"action": "created",
		"repository": {"full_name": "alice/repo"},
		"issue": {"number": 9, "pull_request": {}},
		"comment": {"body": "nice change"}
	}`

	env, err := ParsePayload("issue_comment", "d", []byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Kind != domain.EventOther {
		t.Errorf("expected other, got %s", env.Kind)
	}
}

func TestParsePayload_CommentOnIssueIgnored(t *testing.T) {
	// No issue.pull_request means a plain issue, not a PR
	payload := `{
		"action": "created",
		"repository": {"full_name": "alice/repo"},
		"issue": {"number": 9},
		"comment": {"body": "@codecritics review this"}
	}`

	env, err := ParsePayload("issue_comment", "d", []byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Kind != domain.EventOther {
		t.Errorf("expected other for non-PR issue, got %s", env.Kind)
	}
}

func TestParsePayload_Ping(t *testing.T) {
	env, err := ParsePayload("ping", "d", []byte(`{"zen": "Design for failure."}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Kind != domain.EventPing {
		t.Errorf("expected ping, got %s", env.Kind)
	}
}

func TestParsePayload_StructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		event   string
		payload string
	}{
		{"invalid json", "pull_request", `{not json`},
		{"missing action", "pull_request", `{"repository": {"full_name": "a/b"}}`},
		{"missing repo", "pull_request", `{"action": "opened"}`},
		{"non-string action", "pull_request", `{"action": 5, "repository": {"full_name": "a/b"}}`},
		{"bad full_name", "pull_request", `{"action": "opened", "repository": {"full_name": "nodash"}}`},
		{"missing pr number", "pull_request", `{"action": "opened", "repository": {"full_name": "a/b"}, "pull_request": {"diff_url": "x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePayload(tt.event, "d", []byte(tt.payload))
			if err == nil {
				t.Fatal("expected validation error")
			}
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if len(ve.Details) == 0 {
				t.Error("expected field details")
			}
		})
	}
}
