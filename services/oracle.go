package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Instruction roles, in the order the oracles expect them.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Instruction is one entry in the ordered sequence sent to an oracle.
type Instruction struct {
	Role    string
	Content string
}

// GenerationConfig tunes a single oracle call. JSONResponse constrains the
// reply to a single JSON object (used by the analysis path).
type GenerationConfig struct {
	Temperature  float32
	MaxTokens    int
	JSONResponse bool
}

// Oracle is a text-generation service invoked synchronously from within an
// event handler. Implementations wrap one provider; callers own all
// degradation policy, so an error here never crashes a session.
type Oracle interface {
	Generate(ctx context.Context, instructions []Instruction, cfg GenerationConfig) (string, error)
}

// NewOracle builds the configured provider.
func NewOracle(cfg AIConfig) (Oracle, error) {
	switch cfg.Provider {
	case "azure-openai":
		return newAzureOpenAIOracle(cfg)
	case "gemini":
		return newGeminiOracle(cfg)
	default:
		return nil, fmt.Errorf("unknown AI provider %q: supported providers are azure-openai, gemini", cfg.Provider)
	}
}

// AnalysisReport is the structured reply of an analysis call. Every field is
// individually defaulted when missing, so a partial reply still produces a
// usable report.
type AnalysisReport struct {
	OverallScore    int    `json:"overall_score"`
	ConfidenceScore int    `json:"confidence_score"`
	ClarityScore    int    `json:"clarity_score"`
	FeedbackSummary string `json:"feedback_summary"`
}

const missingFeedbackSummary = "Feedback could not be generated."

// parseAnalysisReport decodes the oracle's structured reply. Missing numeric
// fields default to 0 and a missing summary to a fixed placeholder; a single
// absent field never discards the rest of the reply.
func parseAnalysisReport(raw string) (AnalysisReport, error) {
	var payload struct {
		OverallScore    *float64 `json:"overall_score"`
		ConfidenceScore *float64 `json:"confidence_score"`
		ClarityScore    *float64 `json:"clarity_score"`
		FeedbackSummary *string  `json:"feedback_summary"`
	}

	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &payload); err != nil {
		return AnalysisReport{}, fmt.Errorf("failed to decode analysis reply: %w", err)
	}

	report := AnalysisReport{FeedbackSummary: missingFeedbackSummary}
	if payload.OverallScore != nil {
		report.OverallScore = int(math.Round(*payload.OverallScore))
	}
	if payload.ConfidenceScore != nil {
		report.ConfidenceScore = int(math.Round(*payload.ConfidenceScore))
	}
	if payload.ClarityScore != nil {
		report.ClarityScore = int(math.Round(*payload.ClarityScore))
	}
	if payload.FeedbackSummary != nil {
		if summary := SanitizeOracleText(*payload.FeedbackSummary); summary != "" {
			report.FeedbackSummary = summary
		}
	}
	return report, nil
}

// stripCodeFences unwraps a reply some models insist on fencing as
// ```json ... ``` despite the JSON response constraint.
func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
