package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"insightstream/internal/config"
)

type OpenAIGenerator struct {
	client openai.Client
	model  openai.ChatModel
}

func NewOpenAIGenerator(cfg config.ReplyConfig) *OpenAIGenerator {
	model := openai.ChatModel(cfg.Model)
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &OpenAIGenerator{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
