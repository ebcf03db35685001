package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func speechTestService(handler http.HandlerFunc) (*AzureSpeechService, *httptest.Server) {
	server := httptest.NewServer(handler)
	service := NewAzureSpeechService(SpeechConfig{
		Endpoint: server.URL,
		APIKey:   "test-key",
	})
	return service, server
}

func TestTranscribeWAVSuccess(t *testing.T) {
	service, server := speechTestService(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "test-key" {
			t.Errorf("subscription key header = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "audio/wav; codecs=audio/pcm; samplerate=16000" {
			t.Errorf("content type = %q", got)
		}
		if got := r.URL.Query().Get("language"); got != "en-US" {
			t.Errorf("language = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"RecognitionStatus": "Success",
			"DisplayText":       "Tell me about yourself.",
		})
	})
	defer server.Close()

	text, err := service.transcribeWAV(context.Background(), []byte("wav-bytes"))
	if err != nil {
		t.Fatalf("transcribeWAV error: %v", err)
	}
	if text != "Tell me about yourself." {
		t.Errorf("text = %q", text)
	}
}

func TestTranscribeWAVNoMatch(t *testing.T) {
	service, server := speechTestService(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"RecognitionStatus": "NoMatch"})
	})
	defer server.Close()

	text, err := service.transcribeWAV(context.Background(), []byte("wav-bytes"))
	if err != nil {
		t.Fatalf("transcribeWAV error: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty for NoMatch", text)
	}
}

func TestTranscribeWAVServerError(t *testing.T) {
	service, server := speechTestService(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	defer server.Close()

	if _, err := service.transcribeWAV(context.Background(), []byte("wav-bytes")); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestTranscribeSwallowsFailures(t *testing.T) {
	service, server := speechTestService(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	defer server.Close()

	// Invalid audio fails conversion before any request; either way the
	// caller sees an empty string, never an error.
	if got := service.Transcribe(context.Background(), []byte("not-webm")); got != "" {
		t.Errorf("Transcribe() = %q, want empty", got)
	}
}
