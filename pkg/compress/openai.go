package compress

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const summarizePrompt = "You compress personal notes for an assistant's memory. " +
	"Summarize the note in at most %d tokens. Keep names, dates, amounts and decisions. " +
	"Reply with the summary only."

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

type chatCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIConfig configures the OpenAI summarizer.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenAISummarizer summarizes each item with one chat completion.
type OpenAISummarizer struct {
	completions chatCompletions
	model       string
}

// NewOpenAISummarizer creates a summarizer backed by the chat completions API.
func NewOpenAISummarizer(cfg OpenAIConfig) (*OpenAISummarizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	client := openai.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAISummarizer{completions: &client.Chat.Completions, model: model}, nil
}

// Name implements Summarizer.
func (s *OpenAISummarizer) Name() string { return "openai" }

// Summarize implements Summarizer. Per-item failures, including items left
// unsent when ctx expires, are reported in Output.Error so every id gets an
// entry and finished summaries are kept.
func (s *OpenAISummarizer) Summarize(ctx context.Context, items []Item, maxTokensPerItem int) ([]Output, error) {
	if maxTokensPerItem <= 0 {
		maxTokensPerItem = 1
	}
	out := make([]Output, len(items))
	for i, it := range items {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(items); j++ {
				out[j] = Output{ID: items[j].ID, Error: err.Error()}
			}
			break
		}
		text, err := s.summarizeOne(ctx, it.Content, maxTokensPerItem)
		if err != nil {
			out[i] = Output{ID: it.ID, Error: err.Error()}
			continue
		}
		out[i] = Output{ID: it.ID, Text: text}
	}
	return out, nil
}

func (s *OpenAISummarizer) summarizeOne(ctx context.Context, content string, maxTokens int) (string, error) {
	completion, err := s.completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(s.model),
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(summarizePrompt, maxTokens)),
			openai.UserMessage(content),
		},
	})
	if err != nil {
		return "", err
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}
