package webhook

import (
	"fmt"
	"strings"

	"code-critics/internal/config"
	"code-critics/internal/domain"

	"github.com/tidwall/gjson"
)

// ValidationError carries the field-level problems of a rejected payload.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "invalid payload: " + strings.Join(e.Details, "; ")
}

// prChangedActions are the pull_request actions that trigger an automatic review.
var prChangedActions = map[string]bool{
	"opened":      true,
	"synchronize": true,
	"reopened":    true,
}

// ParsePayload validates the raw webhook body against the event header and
// classifies it into an Envelope. Structural violations return a
// ValidationError listing every failed field.
func ParsePayload(event, deliveryID string, body []byte) (*domain.Envelope, error) {
	if !gjson.ValidBytes(body) {
		return nil, &ValidationError{Details: []string{"body is not valid JSON"}}
	}

	env := &domain.Envelope{
		DeliveryID: deliveryID,
		Kind:       domain.EventOther,
	}

	if event == "ping" {
		env.Kind = domain.EventPing
		return env, nil
	}

	var details []string

	action := gjson.GetBytes(body, "action")
	if !action.Exists() || action.Type != gjson.String {
		details = append(details, "action: required string")
	}
	env.Action = action.String()

	fullName := gjson.GetBytes(body, "repository.full_name")
	if !fullName.Exists() || fullName.Type != gjson.String || fullName.String() == "" {
		details = append(details, "repository.full_name: required string")
	}
	if len(details) > 0 {
		return nil, &ValidationError{Details: details}
	}

	env.Repo = domain.Repo{
		FullName: fullName.String(),
		Private:  gjson.GetBytes(body, "repository.private").Bool(),
	}
	if owner, name, ok := strings.Cut(env.Repo.FullName, "/"); ok {
		env.Repo.Owner = owner
		env.Repo.Name = name
	} else {
		return nil, &ValidationError{Details: []string{
			fmt.Sprintf("repository.full_name: expected owner/name, got %q", env.Repo.FullName),
		}}
	}

	switch event {
	case "pull_request":
		if !prChangedActions[env.Action] {
			return env, nil // Ignored action, stays EventOther
		}
		number := gjson.GetBytes(body, "pull_request.number")
		if !number.Exists() || number.Type != gjson.Number {
			details = append(details, "pull_request.number: required integer")
		}
		diffURL := gjson.GetBytes(body, "pull_request.diff_url")
		if !diffURL.Exists() || diffURL.Type != gjson.String {
			details = append(details, "pull_request.diff_url: required string")
		}
		if len(details) > 0 {
			return nil, &ValidationError{Details: details}
		}
		env.Kind = domain.EventPRChanged
		env.PullNumber = int(number.Int())
		env.DiffURL = diffURL.String()
		env.HeadSHA = gjson.GetBytes(body, "pull_request.head.sha").String()
		return env, nil

	case "issue_comment":
		if env.Action != "created" {
			return env, nil
		}
		// Only comments on pull requests carry issue.pull_request
		if !gjson.GetBytes(body, "issue.pull_request").Exists() {
			return env, nil
		}
		commentBody := gjson.GetBytes(body, "comment.body").String()
		if !strings.Contains(strings.ToLower(commentBody), config.MentionToken) {
			return env, nil
		}
		number := gjson.GetBytes(body, "issue.number")
		if !number.Exists() || number.Type != gjson.Number {
			return nil, &ValidationError{Details: []string{"issue.number: required integer"}}
		}
		env.Kind = domain.EventMentionComment
		env.PullNumber = int(number.Int())
		env.CommentBody = commentBody
		env.Commenter = gjson.GetBytes(body, "comment.user.login").String()
		return env, nil
	}

	return env, nil
}
