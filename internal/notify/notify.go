// Package notify posts low-confidence classifications to a Slack review
// channel so a human can file a correction.
package notify

import (
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/slack-go/slack"

	"triagebot/internal/domain"
)

// Poster is the slice of the Slack client the notifier uses.
type Poster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// Reviewer sends a review request for every result whose confidence falls
// below the threshold. Failures are logged, never returned: notification is
// best effort and must not affect classification.
type Reviewer struct {
	api       Poster
	channelID string
	threshold float64
}

func NewReviewer(api Poster, channelID string, threshold float64) *Reviewer {
	return &Reviewer{api: api, channelID: channelID, threshold: threshold}
}

// MaybeNotify posts a review request when confidence is below the threshold.
// Reports whether a notification was sent.
func (r *Reviewer) MaybeNotify(analysisID string, issue domain.IssueInput, result domain.ClassificationResult) bool {
	if result.Confidence >= r.threshold {
		return false
	}
	msg := ReviewMessage(analysisID, issue, result)
	if _, _, err := r.api.PostMessage(r.channelID, slack.MsgOptionText(msg, false)); err != nil {
		log.Printf("review notification error analysis=%s: %v", analysisID, err)
		return false
	}
	return true
}

// ReviewMessage renders the review request text. Split out so formatting can
// be tested without a Slack client.
func ReviewMessage(analysisID string, issue domain.IssueInput, result domain.ClassificationResult) string {
	title := strings.TrimSpace(issue.Title)
	if title == "" {
		title = "(untitled issue)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, ":mag: *Low-confidence classification* `%s`\n", analysisID)
	fmt.Fprintf(&b, "*Issue:* %s\n", title)
	fmt.Fprintf(&b, "*Category:* `%s`  *Intent:* `%s`  *Impact:* `%s`\n", result.Category, result.Intent, result.Impact)
	fmt.Fprintf(&b, "*Confidence:* %.2f (%s)\n", result.Confidence, result.Source)
	if result.Reasoning != nil {
		if summary := result.Reasoning.Summary(); summary != "" {
			fmt.Fprintf(&b, "*Reasoning:* %s\n", truncate(summary, 300))
		}
	}
	b.WriteString("If this looks wrong, file a correction via `POST /corrections`.")
	return b.String()
}

// truncate cuts on a rune boundary so multi-byte text is never split
// mid-character.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
