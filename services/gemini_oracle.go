package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const geminiModelName = "gemini-2.5-flash"

// geminiOracle generates text through the Gemini API.
type geminiOracle struct {
	client *genai.Client
}

func newGeminiOracle(cfg AIConfig) (*geminiOracle, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("gemini provider requires an api key")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiOracle{client: client}, nil
}

func (o *geminiOracle) Generate(ctx context.Context, instructions []Instruction, cfg GenerationConfig) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(cfg.Temperature),
	}
	if cfg.MaxTokens > 0 {
		config.MaxOutputTokens = int32(cfg.MaxTokens)
	}
	if cfg.JSONResponse {
		config.ResponseMIMEType = "application/json"
	}

	// Gemini takes the system instruction out of band; the rest of the
	// sequence maps user->user and assistant->model.
	var contents []*genai.Content
	for _, in := range instructions {
		switch in.Role {
		case RoleSystem:
			config.SystemInstruction = genai.NewContentFromText(in.Content, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(in.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(in.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		contents = append(contents, genai.NewContentFromText("Hello", genai.RoleUser))
	}

	result, err := o.client.Models.GenerateContent(ctx, geminiModelName, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}

	return strings.TrimSpace(result.Text()), nil
}
