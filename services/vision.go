package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// PresenceDetector reports whether a person is visible in a camera frame.
type PresenceDetector interface {
	DetectPerson(ctx context.Context, image []byte) (bool, error)
}

// AzureVisionService detects people in camera frames through the Azure AI
// Vision image analysis REST API.
type AzureVisionService struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewAzureVisionService(cfg VisionConfig) *AzureVisionService {
	return &AzureVisionService{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (s *AzureVisionService) DetectPerson(ctx context.Context, image []byte) (bool, error) {
	url := s.endpoint + "/computervision/imageanalysis:analyze?features=people&api-version=2023-10-01"

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(image))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", s.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("vision API error: %d - %s", resp.StatusCode, string(body))
	}

	var result struct {
		PeopleResult struct {
			Values []struct {
				Confidence float64 `json:"confidence"`
			} `json:"values"`
		} `json:"peopleResult"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode vision result: %w", err)
	}

	detected := len(result.PeopleResult.Values) > 0
	slog.Debug("Frame analyzed", "person_detected", detected)
	return detected, nil
}
