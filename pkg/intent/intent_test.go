package intent

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		intent     Kind
		confidence float64
		postAction *bool
	}{
		{name: "empty", text: "", intent: Action, confidence: 0.5},
		{name: "whitespace only", text: "   \n\t", intent: Action, confidence: 0.5},
		{name: "single action keyword", text: "Create a new task", intent: Action, confidence: 0.95},
		{name: "action density", text: "please create something for the whole team today ok", intent: Action, confidence: 0.7 + 2.0/9.0},
		{name: "recall keyword", text: "Summarize my week", intent: Recall, confidence: 0.95},
		{name: "recall two keywords", text: "Find my history", intent: Recall, confidence: 0.95},
		{name: "question without keywords", text: "What is on my calendar", intent: Recall, confidence: 0.6},
		{name: "statement without keywords", text: "Hello there", intent: Action, confidence: 0.5},
		{name: "mixed by indicator", text: "Create a task then summarize my notes", intent: Mixed, confidence: 0.8, postAction: boolPtr(true)},
		{name: "mixed by both counts", text: "Show me my notes and send them to Sam", intent: Mixed, confidence: 0.8, postAction: boolPtr(true)},
		{name: "mixed recall heavy", text: "Find my journal entries then summarize them", intent: Mixed, confidence: 0.8, postAction: boolPtr(false)},
		{name: "mixed indicator only", text: "I went running and also swam", intent: Mixed, confidence: 0.6, postAction: boolPtr(true)},
		{name: "mixed confidence capped", text: "create add send schedule then", intent: Mixed, confidence: 0.9, postAction: boolPtr(true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			if got.Intent != tt.intent {
				t.Errorf("Classify(%q).Intent = %s, want %s", tt.text, got.Intent, tt.intent)
			}
			if math.Abs(got.Confidence-tt.confidence) > 1e-9 {
				t.Errorf("Classify(%q).Confidence = %v, want %v", tt.text, got.Confidence, tt.confidence)
			}
			switch {
			case tt.postAction == nil && got.PostAction != nil:
				t.Errorf("Classify(%q).PostAction = %v, want nil", tt.text, *got.PostAction)
			case tt.postAction != nil && got.PostAction == nil:
				t.Errorf("Classify(%q).PostAction = nil, want %v", tt.text, *tt.postAction)
			case tt.postAction != nil && *got.PostAction != *tt.postAction:
				t.Errorf("Classify(%q).PostAction = %v, want %v", tt.text, *got.PostAction, *tt.postAction)
			}
		})
	}
}

func TestClassify_IndicatorNeedsWordBoundary(t *testing.T) {
	// "authentic" contains "then" but is not the word.
	got := Classify("authentic")
	if got.Intent == Mixed {
		t.Errorf("expected no mixed detection inside a word, got %+v", got)
	}
}

func TestClassify_ConfidenceInRange(t *testing.T) {
	inputs := []string{
		"",
		"?",
		"🙂🙂🙂",
		"日本語のテキスト",
		"create create create create create",
		"find find find find then",
		strings.Repeat("summarize ", 500),
		strings.Repeat("x", 10000),
		"how",
		"HOW DO I",
		"did i add the receipt",
		"Remind me after lunch",
	}

	for _, in := range inputs {
		got := Classify(in)
		if got.Confidence < 0 || got.Confidence > 1 {
			t.Errorf("Classify(%q) confidence %v out of [0,1]", in, got.Confidence)
		}
		if !got.Intent.Valid() {
			t.Errorf("Classify(%q) returned invalid kind %q", in, got.Intent)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	text := "Schedule a call and then show me last week's notes"
	first := Classify(text)
	for i := 0; i < 10; i++ {
		got := Classify(text)
		if got.Intent != first.Intent || got.Confidence != first.Confidence {
			t.Fatalf("non-deterministic result: %+v vs %+v", got, first)
		}
	}
}

func TestKind_NeedsMemory(t *testing.T) {
	if Action.NeedsMemory() {
		t.Error("action must not need memory")
	}
	if !Recall.NeedsMemory() || !Mixed.NeedsMemory() {
		t.Error("recall and mixed need memory")
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"action", "Recall", " mixed "} {
		if _, err := ParseKind(s); err != nil {
			t.Errorf("ParseKind(%q): %v", s, err)
		}
	}
	if _, err := ParseKind("chat"); err == nil {
		t.Error("expected error for unknown kind")
	}

	var k Kind
	if err := json.Unmarshal([]byte(`"chat"`), &k); err == nil {
		t.Error("expected unmarshal error for unknown kind")
	}
	if err := json.Unmarshal([]byte(`"recall"`), &k); err != nil || k != Recall {
		t.Errorf("unmarshal recall: kind=%q err=%v", k, err)
	}
}
