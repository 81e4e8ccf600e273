// Package tokencount estimates prompt and completion token usage with
// tiktoken-go. Providers that report usage in the response take precedence;
// the counter fills in when they do not.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	// encodings are embedded; no BPE download at runtime
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// fallbackEncoding approximates tokenizers that tiktoken does not ship (Gemini, Llama, Claude).
const fallbackEncoding = "cl100k_base"

// TokenUsage represents token counts for an LLM API call.
type TokenUsage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
}

// Counter provides thread-safe token counting for LLM models.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.Mutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{encodingCache: make(map[string]*tiktoken.Tiktoken)}
}

func (c *Counter) encoding(model string) (*tiktoken.Tiktoken, error) {
	name := normalizeModelName(model)

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
	}
	c.encodingCache[name] = enc
	return enc, nil
}

// normalizeModelName strips provider prefixes ("models/", "google/") and
// maps OpenAI families onto names tiktoken recognises.
func normalizeModelName(model string) string {
	model = strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	switch {
	case strings.HasPrefix(model, "gpt-4"):
		return "gpt-4"
	case strings.HasPrefix(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		return model
	}
}

// CountTokens counts the number of tokens in text for model.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.encoding(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// CountChatTokens counts a system+user chat request including the per-message
// framing used by OpenAI-compatible APIs.
func (c *Counter) CountChatTokens(systemPrompt, userPrompt, model string) (int, error) {
	enc, err := c.encoding(model)
	if err != nil {
		return 0, err
	}
	const perMessage = 4
	n := perMessage + len(enc.Encode("system", nil, nil)) + len(enc.Encode(systemPrompt, nil, nil))
	n += perMessage + len(enc.Encode("user", nil, nil)) + len(enc.Encode(userPrompt, nil, nil))
	// reply priming
	return n + 3, nil
}

// Usage computes full usage, falling back to ~4 characters per token when encoding fails.
func (c *Counter) Usage(systemPrompt, userPrompt, completion, model string) TokenUsage {
	prompt, err := c.CountChatTokens(systemPrompt, userPrompt, model)
	if err != nil {
		slog.Warn("failed to count prompt tokens, using estimate", slog.String("model", model), slog.Any("error", err))
		prompt = (len(systemPrompt) + len(userPrompt)) / 4
	}
	comp, err := c.CountTokens(completion, model)
	if err != nil {
		comp = len(completion) / 4
	}
	return TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: comp,
		TotalTokens:      prompt + comp,
		Model:            model,
	}
}
