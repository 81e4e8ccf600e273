// Package real implements domain.AIClient against an OpenAI-compatible
// chat completions endpoint (Gemini's compatibility layer by default).
package real

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-mock-interview/internal/adapter/ai"
	"github.com/fairyhunter13/ai-mock-interview/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-mock-interview/internal/adapter/observability"
	"github.com/fairyhunter13/ai-mock-interview/internal/config"
	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
	obsctx "github.com/fairyhunter13/ai-mock-interview/internal/observability"
)

const (
	provider     = "openai_compat"
	snippetLimit = 512
)

// Client implements domain.AIClient. Every call is a single attempt; the
// caller owns the deadline and there is no retry.
type Client struct {
	cfg     config.Config
	hc      *http.Client
	cleaner *ai.ResponseCleaner
	tokens  *tokencount.Counter
}

// New constructs a client with an instrumented transport. The HTTP timeout
// is a backstop above the per-call context deadline.
func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   cfg.GetAICallTimeout() + 5*time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cleaner: ai.NewResponseCleaner(),
		tokens:  tokencount.NewCounter(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ChatText returns the first choice's content.
func (c *Client) ChatText(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return c.chat(ctx, "chat_text", systemPrompt, userPrompt, maxTokens, nil)
}

// ChatJSON requests a JSON object and returns it cleaned of fences and surrounding prose.
func (c *Client) ChatJSON(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	out, err := c.chat(ctx, "chat_json", systemPrompt, userPrompt, maxTokens, &responseFormat{Type: "json_object"})
	if err != nil {
		return "", err
	}
	cleaned, err := c.cleaner.CleanAndValidateJSON(out)
	if err != nil {
		return "", fmt.Errorf("op=ai.chat_json: %w", err)
	}
	return cleaned, nil
}

func (c *Client) chat(ctx domain.Context, op, systemPrompt, userPrompt string, maxTokens int, format *responseFormat) (string, error) {
	lg := obsctx.LoggerFromContext(ctx)
	if c.cfg.AIAPIKey == "" {
		lg.Error("AI API key missing", slog.String("provider", provider))
		return "", fmt.Errorf("%w: AI_API_KEY missing", domain.ErrInvalidArgument)
	}
	if maxTokens <= 0 {
		maxTokens = c.cfg.AIMaxTokens
	}
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.AIModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    c.cfg.AITemperature,
		MaxTokens:      maxTokens,
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("op=ai.%s: %w", op, err)
	}

	endpoint := strings.TrimRight(c.cfg.AIBaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("op=ai.%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AIAPIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveAIRequest(provider, op, "transport_error", time.Since(start))
		lg.Warn("ai provider request failed", slog.String("provider", provider), slog.String("op", op), slog.Any("error", err))
		return "", fmt.Errorf("op=ai.%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.ObserveAIRequest(provider, op, "read_error", time.Since(start))
		return "", fmt.Errorf("op=ai.%s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.ObserveAIRequest(provider, op, fmt.Sprintf("http_%d", resp.StatusCode), time.Since(start))
		lg.Warn("ai provider non-2xx",
			slog.String("provider", provider),
			slog.String("op", op),
			slog.Int("status", resp.StatusCode),
			slog.String("model", c.cfg.AIModel),
			slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
			slog.String("body", snippet(raw)))
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("op=ai.%s: %w: provider status 429", op, domain.ErrRateLimited)
		}
		return "", fmt.Errorf("op=ai.%s: provider status %d", op, resp.StatusCode)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		observability.ObserveAIRequest(provider, op, "decode_error", time.Since(start))
		return "", fmt.Errorf("op=ai.%s: decode: %w", op, err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		observability.ObserveAIRequest(provider, op, "empty", time.Since(start))
		return "", fmt.Errorf("op=ai.%s: %w", op, errEmptyCompletion)
	}
	observability.ObserveAIRequest(provider, op, "ok", time.Since(start))

	content := out.Choices[0].Message.Content
	prompt, completion := c.usage(out, systemPrompt, userPrompt, content)
	observability.ObserveAITokens(provider, prompt, completion)
	lg.Debug("ai provider call succeeded",
		slog.String("provider", provider),
		slog.String("op", op),
		slog.String("model", c.cfg.AIModel),
		slog.Int("prompt_tokens", prompt),
		slog.Int("completion_tokens", completion),
		slog.Duration("elapsed", time.Since(start)))
	return content, nil
}

var errEmptyCompletion = errors.New("empty completion")

// usage prefers provider-reported counts and estimates otherwise.
func (c *Client) usage(out chatResponse, systemPrompt, userPrompt, content string) (int, int) {
	if out.Usage != nil && out.Usage.PromptTokens > 0 {
		return out.Usage.PromptTokens, out.Usage.CompletionTokens
	}
	u := c.tokens.Usage(systemPrompt, userPrompt, content, c.cfg.AIModel)
	return u.PromptTokens, u.CompletionTokens
}

func snippet(b []byte) string {
	if len(b) > snippetLimit {
		b = b[:snippetLimit]
	}
	return string(b)
}
