package services

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// azureOpenAIOracle generates text through an Azure OpenAI deployment.
type azureOpenAIOracle struct {
	client     *openai.Client
	deployment string
}

func newAzureOpenAIOracle(cfg AIConfig) (*azureOpenAIOracle, error) {
	if cfg.AzureEndpoint == "" || cfg.AzureAPIKey == "" || cfg.AzureDeployment == "" {
		return nil, fmt.Errorf("azure-openai provider requires endpoint, api key and deployment")
	}

	config := openai.DefaultAzureConfig(cfg.AzureAPIKey, cfg.AzureEndpoint)
	return &azureOpenAIOracle{
		client:     openai.NewClientWithConfig(config),
		deployment: cfg.AzureDeployment,
	}, nil
}

func (o *azureOpenAIOracle) Generate(ctx context.Context, instructions []Instruction, cfg GenerationConfig) (string, error) {
	messages := make([]openai.ChatCompletionMessage, len(instructions))
	for i, in := range instructions {
		messages[i] = openai.ChatCompletionMessage{Role: in.Role, Content: in.Content}
	}

	req := openai.ChatCompletionRequest{
		Model:       o.deployment,
		Messages:    messages,
		Temperature: cfg.Temperature,
	}
	if cfg.MaxTokens > 0 {
		req.MaxTokens = cfg.MaxTokens
	}
	if cfg.JSONResponse {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("azure openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("azure openai: no choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
