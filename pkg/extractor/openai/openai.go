// Package openai implements extractor.Extractor via a strict-JSON chat
// completion, a direct port of
// original_source/backend/scripts/pref_worker.py's extract_prefs_llm, built
// on sashabaranov/go-openai following the client-construction shape of
// scttfrdmn-agenkit-go/adapter/llm/openai.go.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/Valino123/trip-memory/pkg/extractor"
)

const (
	// DefaultModel mirrors pref_worker.py's ChatOpenAI fallback model.
	DefaultModel = "gpt-4o-mini"

	// maxConvoLen matches pref_worker.py's convo[:8000] truncation.
	maxConvoLen = 8000
)

const promptPreamble = "Extract stable user travel preferences from this conversation.\n" +
	"Return STRICT JSON with keys among: budget (int), departure_city (str), likes (list[str]), avoid_crowds (bool).\n" +
	"If unknown, omit the key. Conversation:\n"

// Config holds configuration for the LLM-backed extractor.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Extractor calls an OpenAI-compatible chat model to extract preferences.
type Extractor struct {
	client *openai.Client
	model  string
}

// New returns an Extractor, or an error if no API key is configured.
func New(cfg Config) (*Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm preference extraction: missing API key")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Extractor{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Extract implements extractor.Extractor. On any LLM or parse failure it
// returns an empty map and no error, matching pref_worker.py's
// swallow-and-return-{} behaviour: preference extraction is best-effort and
// never blocks the worker's ack.
func (e *Extractor) Extract(ctx context.Context, messages []string) (map[string]any, error) {
	convo := strings.Join(messages, "\n")
	if len(convo) > maxConvoLen {
		convo = convo[:maxConvoLen]
	}

	prompt := promptPreamble + convo + "\nJSON only:"

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		return map[string]any{}, nil
	}

	text := resp.Choices[0].Message.Content
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return map[string]any{}, nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &data); err != nil {
		return map[string]any{}, nil
	}

	return data, nil
}

var _ extractor.Extractor = (*Extractor)(nil)
