package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// Request carries everything the backend needs for one generation call.
// CurrentContent is set on iterations so the model sees what it is changing.
type Request struct {
	SystemPrompt   string
	UserPrompt     string
	CurrentContent string
}

// Response is the backend's raw completion text. Parsing it into site content
// is the caller's problem; the backend is untrusted and fallible.
type Response struct {
	Text       string
	TokensUsed int
}

// Backend is the external text-completion service. Implementations must
// honor ctx cancellation: the call can take seconds.
type Backend interface {
	GenerateSite(ctx context.Context, req Request) (*Response, error)
}

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIBackend implements Backend over the OpenAI chat completions API.
type OpenAIBackend struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

func NewOpenAIBackend(cfg Config) *OpenAIBackend {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 45 * time.Second
	}

	return &OpenAIBackend{
		client:      openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
	}
}

func (b *OpenAIBackend) GenerateSite(ctx context.Context, req Request) (*Response, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
	}
	if req.CurrentContent != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: "Current site content:\n" + req.CurrentContent,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       b.model,
		Messages:    messages,
		Temperature: b.temperature,
		MaxTokens:   b.maxTokens,
	})
	elapsed := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Str("model", b.model).
			Dur("elapsed", elapsed).
			Msg("generation backend call failed")
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion from backend")
	}

	log.Info().
		Str("model", b.model).
		Int("tokensUsed", resp.Usage.TotalTokens).
		Dur("elapsed", elapsed).
		Msg("generation backend call completed")

	return &Response{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
