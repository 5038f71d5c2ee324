// Package tokens approximates language-model token counts and enforces
// per-role ceilings by proportional truncation.
//
// A token is estimated as four characters, where a character is one Unicode
// code point. The estimate is deliberately tokenizer-free; truncation can
// leave a result marginally over its ceiling on text with unusual density.
package tokens

import (
	"fmt"
	"unicode/utf8"
)

// CharsPerToken is the fixed character-to-token ratio of the estimate.
const CharsPerToken = 4

// DefaultRatio is the safety factor applied to proportional cuts.
const DefaultRatio = 0.9

// Ellipsis marks content that was cut by Truncate.
const Ellipsis = "..."

// Estimate returns ceil(characters / 4).
func Estimate(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + CharsPerToken - 1) / CharsPerToken
}

// Truncate returns s unchanged when its estimate fits within maxTokens.
// Otherwise it keeps floor(chars * maxTokens/estimate * ratio) characters
// and appends Ellipsis. A ratio outside (0, 1] is replaced by DefaultRatio.
func Truncate(s string, maxTokens int, ratio float64) string {
	est := Estimate(s)
	if est <= maxTokens {
		return s
	}
	if maxTokens <= 0 {
		return Ellipsis
	}
	if ratio <= 0 || ratio > 1 {
		ratio = DefaultRatio
	}

	runes := []rune(s)
	keep := int(float64(len(runes)) * (float64(maxTokens) / float64(est)) * ratio)
	if keep > len(runes) {
		keep = len(runes)
	}
	return string(runes[:keep]) + Ellipsis
}

// Head returns the first n characters of s without any marker.
func Head(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Budget partitions the prompt into per-role token ceilings.
type Budget struct {
	System int `json:"system"`
	User   int `json:"user"`
	Memory int `json:"memory"`
	Tools  int `json:"tools"`
}

// DefaultBudget returns the standard ceilings.
func DefaultBudget() Budget {
	return Budget{
		System: 1500,
		User:   800,
		Memory: 1200,
		Tools:  800,
	}
}

// Validate reports a non-positive ceiling.
func (b Budget) Validate() error {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"system", b.System},
		{"user", b.User},
		{"memory", b.Memory},
		{"tools", b.Tools},
	} {
		if f.v <= 0 {
			return fmt.Errorf("tokens: %s budget must be positive, got %d", f.name, f.v)
		}
	}
	return nil
}

// Total returns the sum of all ceilings.
func (b Budget) Total() int {
	return b.System + b.User + b.Memory + b.Tools
}
