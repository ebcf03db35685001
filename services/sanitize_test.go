package services

import "testing"

func TestSanitizeOracleText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "Tell me about a challenge you faced.", "Tell me about a challenge you faced."},
		{"emoji stripped", "Great job! 🎉", "Great job!"},
		{"emoticon range", "Nice 😊😊 work", "Nice  work"},
		{"whitespace trimmed", "  hello  ", "hello"},
		{"only emoji", "🚀", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeOracleText(tt.in); got != tt.want {
				t.Errorf("SanitizeOracleText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
