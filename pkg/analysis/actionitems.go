package analysis

import (
	"context"
	"regexp"
	"strings"

	"github.com/otherjamesbrown/confab/pkg/session"
)

// Phrases that flag a sentence as an actionable commitment.
var actionPhrases = []string{
	"will",
	"need to",
	"needs to",
	"should",
	"must",
	"have to",
	"has to",
	"going to",
	"action item",
	"follow up",
	"take care of",
	"responsible for",
	"assigned to",
	"by tomorrow",
	"by next week",
	"by end of",
	"deadline",
}

var (
	assigneeRegex = regexp.MustCompile(`(?i)([\w\s]+?)\s+(?:will|should|must|needs? to|has to|is going to)\b`)

	deadlineRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bby\s+((?:\w+\s+)?\w+day)\b`),
		regexp.MustCompile(`(?i)\bby\s+(tomorrow|tonight|today)\b`),
		regexp.MustCompile(`(?i)\bby\s+(?:the\s+)?(end of (?:the )?(?:day|week|month|quarter|year))\b`),
		regexp.MustCompile(`(?i)\bby\s+(next \w+)\b`),
		regexp.MustCompile(`(?i)\b(?:on|before)\s+(\w+day)\b`),
		regexp.MustCompile(`(?i)\bdeadline\s+(?:is|of)?\s*(\w+(?:\s+\w+)?)`),
		regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
	}

	// Pronouns and fillers that never count as a named assignee.
	nonAssignees = map[string]struct{}{
		"i": {}, "we": {}, "you": {}, "they": {}, "he": {}, "she": {},
		"it": {}, "this": {}, "that": {}, "there": {}, "someone": {},
		"everybody": {}, "everyone": {}, "anybody": {}, "anyone": {},
	}
)

// RuleBased is the built-in action item extractor. It scans sentences for
// commitment phrases and pulls out who owns the task and when it is due.
type RuleBased struct{}

// NewRuleBased creates the built-in action item extractor.
func NewRuleBased() *RuleBased {
	return &RuleBased{}
}

// Extract pulls action items out of a transcript. A transcript
// with no actionable sentences yields an empty item list plus a note so
// callers can tell "none found" apart from "not analyzed".
func (r *RuleBased) Extract(ctx context.Context, text string) (*session.ActionItemsResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]session.ActionItem, 0, 4)
	for _, sentence := range splitSentences(text) {
		if !isActionable(sentence) {
			continue
		}
		items = append(items, session.ActionItem{
			Task:     sentence,
			Assignee: assigneeOf(sentence),
			Deadline: deadlineOf(sentence),
		})
	}

	result := &session.ActionItemsResult{Items: items}
	if len(items) == 0 {
		result.Note = NoActionItemsNote
	}
	return result, nil
}

func isActionable(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, phrase := range actionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// assigneeOf returns the named owner of a commitment, or "" when the
// subject is a pronoun or nothing matched.
func assigneeOf(sentence string) string {
	m := assigneeRegex.FindStringSubmatch(sentence)
	if m == nil {
		return ""
	}
	candidate := strings.TrimSpace(m[1])
	// keep only the trailing words closest to the verb
	words := strings.Fields(candidate)
	if len(words) > 2 {
		words = words[len(words)-2:]
		candidate = strings.Join(words, " ")
	}
	if _, ok := nonAssignees[strings.ToLower(candidate)]; ok {
		return ""
	}
	if len(words) == 2 {
		if _, ok := nonAssignees[strings.ToLower(words[1])]; ok {
			return ""
		}
	}
	return candidate
}

func deadlineOf(sentence string) string {
	for _, re := range deadlineRegexes {
		if m := re.FindStringSubmatch(sentence); m != nil {
			return strings.ToLower(strings.TrimSpace(m[1]))
		}
	}
	return ""
}
