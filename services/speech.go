package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"time"
)

// Transcriber converts a raw audio clip into text. An empty string signals
// failure or no recognizable speech; no error crosses this boundary.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) string
}

// AzureSpeechService transcribes webm audio through the Azure Speech REST
// API, converting to 16kHz mono WAV with ffmpeg first.
type AzureSpeechService struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewAzureSpeechService(cfg SpeechConfig) *AzureSpeechService {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf(
			"https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1",
			cfg.Region,
		)
	}

	return &AzureSpeechService{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Transcribe converts the clip and sends it for recognition. Every failure
// path logs and returns "".
func (s *AzureSpeechService) Transcribe(ctx context.Context, audio []byte) string {
	wav, err := convertWebMToWAV(audio)
	if err != nil {
		slog.Error("Audio conversion failed", "error", err)
		return ""
	}

	text, err := s.transcribeWAV(ctx, wav)
	if err != nil {
		slog.Error("Speech transcription failed", "error", err)
		return ""
	}
	return text
}

func (s *AzureSpeechService) transcribeWAV(ctx context.Context, wav []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", s.endpoint+"?language=en-US", bytes.NewReader(wav))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", s.apiKey)
	req.Header.Set("Content-Type", "audio/wav; codecs=audio/pcm; samplerate=16000")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("speech API error: %d - %s", resp.StatusCode, string(body))
	}

	var result struct {
		RecognitionStatus string `json:"RecognitionStatus"`
		DisplayText       string `json:"DisplayText"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode recognition result: %w", err)
	}

	if result.RecognitionStatus != "Success" {
		slog.Warn("Speech recognition did not succeed", "status", result.RecognitionStatus)
		return "", nil
	}

	slog.Info("Audio transcribed", "text_length", len(result.DisplayText))
	return result.DisplayText, nil
}

// convertWebMToWAV converts browser-recorded WebM audio to 16kHz 16-bit
// mono PCM WAV using ffmpeg.
func convertWebMToWAV(webmData []byte) ([]byte, error) {
	inputFile, err := os.CreateTemp("", "input-*.webm")
	if err != nil {
		return nil, fmt.Errorf("failed to create input temp file: %w", err)
	}
	defer os.Remove(inputFile.Name())
	defer inputFile.Close()

	outputFile, err := os.CreateTemp("", "output-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create output temp file: %w", err)
	}
	defer os.Remove(outputFile.Name())
	defer outputFile.Close()

	if _, err := inputFile.Write(webmData); err != nil {
		return nil, fmt.Errorf("failed to write WebM data: %w", err)
	}
	inputFile.Close()
	outputFile.Close()

	cmd := exec.Command("ffmpeg",
		"-i", inputFile.Name(),
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		outputFile.Name(),
	)

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg conversion failed: %w", err)
	}

	wavData, err := os.ReadFile(outputFile.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read converted WAV file: %w", err)
	}

	slog.Info("Audio conversion completed", "webm_size", len(webmData), "wav_size", len(wavData))
	return wavData, nil
}
