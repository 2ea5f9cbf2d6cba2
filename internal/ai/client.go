package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"voiceai-platform/internal/config"
	"voiceai-platform/internal/session"
)

// Client is the external NLU boundary. Errors returned here must never reach
// the caller as silence: the orchestrator converts every failure into the
// deterministic dialogue path.
type Client interface {
	// Chat produces a free-text assistant reply from the tenant's style
	// prompt plus recent utterance history.
	Chat(ctx context.Context, req ChatRequest) (string, error)

	// Transcribe converts recorded caller audio to text.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type ChatRequest struct {
	SystemPrompt string
	History      []session.Utterance
	UserInput    string
}

var ErrNotConfigured = errors.New("ai: client not configured")

// historyWindow bounds how many prior turns are sent upstream; phone
// conversations are short and token budgets tighter than chat.
const historyWindow = 10

// OpenAIClient implements Client on the OpenAI API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

func NewOpenAIClient(cfg config.OpenAIConfig) *OpenAIClient {
	c := &OpenAIClient{
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
	}
	if cfg.APIKey != "" {
		c.client = openai.NewClient(cfg.APIKey)
	}
	return c
}

func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if c.client == nil {
		return "", ErrNotConfigured
	}

	msgs := make([]openai.ChatCompletionMessage, 0, historyWindow+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: req.SystemPrompt,
	})

	hist := req.History
	if len(hist) > historyWindow {
		hist = hist[len(hist)-historyWindow:]
	}
	for _, u := range hist {
		role := openai.ChatMessageRoleUser
		if u.Role == session.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: u.Text})
	}
	if req.UserInput != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: req.UserInput,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("ai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ai: empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if c.client == nil {
		return "", ErrNotConfigured
	}
	if len(audio) == 0 {
		return "", errors.New("ai: empty audio")
	}
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(audio),
		FilePath: "utterance.wav",
	})
	if err != nil {
		return "", fmt.Errorf("ai: transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
