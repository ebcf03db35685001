package services

import (
	"testing"
)

func TestParseAnalysisReport(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    AnalysisReport
		wantErr bool
	}{
		{
			name: "complete reply",
			raw:  `{"overall_score": 82, "confidence_score": 75, "clarity_score": 88, "feedback_summary": "Well done."}`,
			want: AnalysisReport{OverallScore: 82, ConfidenceScore: 75, ClarityScore: 88, FeedbackSummary: "Well done."},
		},
		{
			name: "fractional scores round",
			raw:  `{"overall_score": 82.6, "confidence_score": 74.4, "clarity_score": 87.5, "feedback_summary": "ok"}`,
			want: AnalysisReport{OverallScore: 83, ConfidenceScore: 74, ClarityScore: 88, FeedbackSummary: "ok"},
		},
		{
			name: "missing fields default individually",
			raw:  `{"overall_score": 70}`,
			want: AnalysisReport{OverallScore: 70, FeedbackSummary: missingFeedbackSummary},
		},
		{
			name: "blank summary defaults",
			raw:  `{"overall_score": 70, "confidence_score": 65, "clarity_score": 68, "feedback_summary": "   "}`,
			want: AnalysisReport{OverallScore: 70, ConfidenceScore: 65, ClarityScore: 68, FeedbackSummary: missingFeedbackSummary},
		},
		{
			name: "summary is sanitized",
			raw:  `{"overall_score": 80, "confidence_score": 75, "clarity_score": 78, "feedback_summary": "Great job! 😊🚀 Keep going."}`,
			want: AnalysisReport{OverallScore: 80, ConfidenceScore: 75, ClarityScore: 78, FeedbackSummary: "Great job!  Keep going."},
		},
		{
			name: "emoji-only summary defaults",
			raw:  `{"overall_score": 80, "confidence_score": 75, "clarity_score": 78, "feedback_summary": "😊🚀"}`,
			want: AnalysisReport{OverallScore: 80, ConfidenceScore: 75, ClarityScore: 78, FeedbackSummary: missingFeedbackSummary},
		},
		{
			name: "fenced reply",
			raw:  "```json\n{\"overall_score\": 55, \"confidence_score\": 50, \"clarity_score\": 52, \"feedback_summary\": \"fenced\"}\n```",
			want: AnalysisReport{OverallScore: 55, ConfidenceScore: 50, ClarityScore: 52, FeedbackSummary: "fenced"},
		},
		{
			name:    "not json",
			raw:     "The candidate did great!",
			wantErr: true,
		},
		{
			name:    "empty reply",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAnalysisReport(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseAnalysisReport(%q) succeeded, want error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAnalysisReport(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("parseAnalysisReport(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNewOracleUnknownProvider(t *testing.T) {
	if _, err := NewOracle(AIConfig{Provider: "clippy"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripCodeFences(tt.raw); got != tt.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
