// Package intent routes a request to action, recall or mixed handling using
// fixed keyword sets. Classification is pure: no I/O, no model, no failure.
package intent

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Kind is the coarse request category.
type Kind string

const (
	Action Kind = "action"
	Recall Kind = "recall"
	Mixed  Kind = "mixed"
)

// NeedsMemory reports whether requests of this kind retrieve memory.
func (k Kind) NeedsMemory() bool {
	return k == Recall || k == Mixed
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case Action, Recall, Mixed:
		return true
	}
	return false
}

// ParseKind parses a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("intent: unknown kind %q", s)
	}
	return k, nil
}

// UnmarshalJSON rejects unknown kinds.
func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Result is the outcome of Classify.
type Result struct {
	Intent     Kind    `json:"intent"`
	Confidence float64 `json:"confidence"`
	// PostAction is set only for mixed requests: true when the action part
	// dominates and should run after recall.
	PostAction *bool `json:"postAction,omitempty"`
}

var actionKeywords = []string{
	"create", "schedule", "send", "add", "remind", "set up", "book",
	"update", "delete", "remove", "record", "make", "write", "start",
	"cancel", "move", "plan",
}

var recallKeywords = []string{
	"summarize", "summary", "show me", "find", "search", "recall",
	"look up", "what did", "when did", "list my", "history", "review",
	"remember when", "did i",
}

var (
	mixedIndicator = regexp.MustCompile(`\b(then|after|also|next|followed by)\b`)
	questionPrefix = regexp.MustCompile(`^(what|who|when|where|why|how|can you|could you|do you|did i|have i)\b`)
)

// Classify maps raw user text to an intent and confidence in [0, 1].
func Classify(text string) Result {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return Result{Intent: Action, Confidence: 0.5}
	}

	actions := countMatches(t, actionKeywords)
	recalls := countMatches(t, recallKeywords)

	if mixedIndicator.MatchString(t) || (actions > 0 && recalls > 0) {
		return Result{
			Intent:     Mixed,
			Confidence: math.Min(0.9, 0.6+0.1*float64(actions+recalls)),
			PostAction: boolPtr(actions >= recalls),
		}
	}

	words := len(strings.Fields(t))
	switch {
	case actions > recalls:
		return Result{Intent: Action, Confidence: densityConfidence(actions, words)}
	case recalls > actions:
		return Result{Intent: Recall, Confidence: densityConfidence(recalls, words)}
	case actions == 0:
		if questionPrefix.MatchString(t) {
			return Result{Intent: Recall, Confidence: 0.6}
		}
		return Result{Intent: Action, Confidence: 0.5}
	default:
		return Result{Intent: Mixed, Confidence: 0.7, PostAction: boolPtr(true)}
	}
}

// countMatches sums non-overlapping substring occurrences of every keyword.
func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		n += strings.Count(text, kw)
	}
	return n
}

func densityConfidence(matches, words int) float64 {
	if words == 0 {
		return 0.7
	}
	return math.Min(0.95, 0.7+2*float64(matches)/float64(words))
}

func boolPtr(b bool) *bool { return &b }
