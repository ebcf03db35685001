package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cariera-ai/cariera/backend/models"
)

func newFinalizeFixture(t *testing.T) (*Finalizer, *fakeStore, *fakeOracle) {
	t.Helper()

	store := newFakeStore()
	store.addSession(&models.InterviewSession{
		ID:              "sess-1",
		UserID:          "user-1",
		Context:         "Product manager role",
		Difficulty:      models.DifficultyStandard,
		DurationMinutes: 3,
		Status:          models.SessionOngoing,
		StartTime:       time.Now(),
	})
	oracle := &fakeOracle{}
	return NewFinalizer(store, oracle), store, oracle
}

func addExchange(store *fakeStore, sessionID string, pairs ...string) {
	for i, text := range pairs {
		speaker := models.SpeakerUser
		if i%2 == 1 {
			speaker = models.SpeakerAI
		}
		store.CreateInterviewTurn(context.Background(), &models.InterviewTurn{
			SessionID: sessionID,
			Speaker:   speaker,
			Text:      text,
		})
	}
}

func addPresencePoints(store *fakeStore, sessionID string, detections ...bool) {
	for _, detected := range detections {
		store.points = append(store.points, models.InterviewAnalysisPoint{
			SessionID:      sessionID,
			PersonDetected: detected,
		})
	}
}

func TestFinalizeSuccess(t *testing.T) {
	finalizer, store, oracle := newFinalizeFixture(t)
	addExchange(store, "sess-1", "I led a migration to Kubernetes.", "How did you handle rollbacks?")
	addPresencePoints(store, "sess-1", true, true, false, true)
	oracle.replies = []string{`{"overall_score": 82, "confidence_score": 78.6, "clarity_score": 85, "feedback_summary": "Strong structure throughout."}`}

	finalizer.Finalize(context.Background(), "sess-1")

	result := store.results["sess-1"]
	if result == nil {
		t.Fatal("no result written")
	}
	if result.OverallScore != 82 || result.ConfidenceScore != 79 || result.ClarityScore != 85 {
		t.Errorf("scores = %d/%d/%d", result.OverallScore, result.ConfidenceScore, result.ClarityScore)
	}
	if result.CameraPresenceScore != 75 {
		t.Errorf("camera presence = %d, want 75", result.CameraPresenceScore)
	}
	if result.FeedbackSummary != "Strong structure throughout." {
		t.Errorf("summary = %q", result.FeedbackSummary)
	}

	session, _ := store.GetOwnedInterviewSession(context.Background(), "sess-1", "user-1")
	if session.Status != models.SessionCompleted {
		t.Errorf("session status = %q, want completed", session.Status)
	}
	if session.EndTime == nil {
		t.Error("end time not stamped")
	}

	cfg := oracle.configs[0]
	if cfg.Temperature != 0.5 || !cfg.JSONResponse {
		t.Errorf("generation config = %+v", cfg)
	}

	system := oracle.calls[0][0].Content
	if !strings.Contains(system, "Engagement Score was: 75/100") {
		t.Errorf("system prompt missing presence score: %q", system)
	}
	transcript := oracle.calls[0][1].Content
	if !strings.Contains(transcript, "USER: I led a migration to Kubernetes.") ||
		!strings.Contains(transcript, "AI: How did you handle rollbacks?") {
		t.Errorf("transcript = %q", transcript)
	}
}

func TestFinalizeShortSessionSkipsOracle(t *testing.T) {
	finalizer, store, oracle := newFinalizeFixture(t)
	addExchange(store, "sess-1", "Hello?")

	finalizer.Finalize(context.Background(), "sess-1")

	if oracle.callCount() != 0 {
		t.Errorf("oracle called %d times for a short session", oracle.callCount())
	}

	result := store.results["sess-1"]
	if result == nil {
		t.Fatal("no result written")
	}
	if result.OverallScore != 0 || result.ConfidenceScore != 0 || result.ClarityScore != 0 || result.CameraPresenceScore != 0 {
		t.Errorf("short session scored: %+v", result)
	}
	if result.FeedbackSummary != tooShortSummary {
		t.Errorf("summary = %q", result.FeedbackSummary)
	}

	session, _ := store.GetOwnedInterviewSession(context.Background(), "sess-1", "user-1")
	if session.Status != models.SessionCompleted {
		t.Errorf("session status = %q, want completed", session.Status)
	}
}

func TestFinalizeOracleFailureWritesFallback(t *testing.T) {
	finalizer, store, oracle := newFinalizeFixture(t)
	addExchange(store, "sess-1", "Answer.", "Question?")
	oracle.err = context.DeadlineExceeded

	finalizer.Finalize(context.Background(), "sess-1")

	result := store.results["sess-1"]
	if result == nil {
		t.Fatal("no result written after oracle failure")
	}
	if result.OverallScore != 0 || result.FeedbackSummary != analysisFailedSummary {
		t.Errorf("fallback result = %+v", result)
	}
}

func TestFinalizeMalformedReplyWritesFallback(t *testing.T) {
	finalizer, store, oracle := newFinalizeFixture(t)
	addExchange(store, "sess-1", "Answer.", "Question?")
	oracle.replies = []string{"I would rate this interview quite highly!"}

	finalizer.Finalize(context.Background(), "sess-1")

	result := store.results["sess-1"]
	if result == nil {
		t.Fatal("no result written after malformed reply")
	}
	if result.FeedbackSummary != analysisFailedSummary {
		t.Errorf("summary = %q", result.FeedbackSummary)
	}
}

func TestFinalizePersistsSanitizedSummary(t *testing.T) {
	finalizer, store, oracle := newFinalizeFixture(t)
	addExchange(store, "sess-1", "Answer.", "Question?")
	oracle.replies = []string{`{"overall_score": 80, "confidence_score": 75, "clarity_score": 78, "feedback_summary": "Great job! 😊🚀 Keep going."}`}

	finalizer.Finalize(context.Background(), "sess-1")

	result := store.results["sess-1"]
	if result == nil {
		t.Fatal("no result written")
	}
	if result.FeedbackSummary != "Great job!  Keep going." {
		t.Errorf("summary = %q, want emoji stripped", result.FeedbackSummary)
	}
}

func TestFinalizeTwiceConvergesOnLaterResult(t *testing.T) {
	finalizer, store, oracle := newFinalizeFixture(t)
	addExchange(store, "sess-1", "Answer.", "Question?")
	oracle.replies = []string{
		`{"overall_score": 60, "confidence_score": 55, "clarity_score": 58, "feedback_summary": "First pass."}`,
		`{"overall_score": 72, "confidence_score": 70, "clarity_score": 71, "feedback_summary": "Second pass."}`,
	}

	finalizer.Finalize(context.Background(), "sess-1")
	finalizer.Finalize(context.Background(), "sess-1")

	if len(store.results) != 1 {
		t.Fatalf("results = %d rows, want 1", len(store.results))
	}
	result := store.results["sess-1"]
	if result.OverallScore != 72 || result.FeedbackSummary != "Second pass." {
		t.Errorf("result = %+v, want second pass values", result)
	}
	if store.upsertCalls != 2 {
		t.Errorf("upsert calls = %d, want 2", store.upsertCalls)
	}
}

func TestFinalizeRetriesStatusWrite(t *testing.T) {
	finalizer, store, oracle := newFinalizeFixture(t)
	addExchange(store, "sess-1", "Answer.", "Question?")
	store.completeFails = 1
	oracle.replies = []string{`{"overall_score": 70, "confidence_score": 70, "clarity_score": 70, "feedback_summary": "Fine."}`}

	finalizer.Finalize(context.Background(), "sess-1")

	if store.completeCalls < 2 {
		t.Errorf("complete calls = %d, want a retry", store.completeCalls)
	}
	if result := store.results["sess-1"]; result == nil || result.OverallScore != 70 {
		t.Errorf("result = %+v", result)
	}
}

func TestFinalizeAsyncCompletes(t *testing.T) {
	finalizer, store, oracle := newFinalizeFixture(t)
	addExchange(store, "sess-1", "Answer.", "Question?")
	oracle.replies = []string{`{"overall_score": 65, "confidence_score": 60, "clarity_score": 62, "feedback_summary": "Solid."}`}

	select {
	case <-finalizer.FinalizeAsync("sess-1"):
	case <-time.After(5 * time.Second):
		t.Fatal("finalize did not complete")
	}

	if store.results["sess-1"] == nil {
		t.Error("no result after async finalize")
	}
}

func TestCameraPresenceScore(t *testing.T) {
	tests := []struct {
		name       string
		detections []bool
		want       int
	}{
		{"no samples", nil, 0},
		{"three of four", []bool{true, true, false, true}, 75},
		{"all present", []bool{true, true}, 100},
		{"never present", []bool{false, false, false}, 0},
		{"one of three rounds down", []bool{true, false, false}, 33},
		{"two of three rounds up", []bool{true, true, false}, 67},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := make([]models.InterviewAnalysisPoint, len(tt.detections))
			for i, detected := range tt.detections {
				points[i] = models.InterviewAnalysisPoint{PersonDetected: detected}
			}
			if got := cameraPresenceScore(points); got != tt.want {
				t.Errorf("cameraPresenceScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSweeperFinalizesAbandonedSessions(t *testing.T) {
	finalizer, store, oracle := newFinalizeFixture(t)
	store.sessions["sess-1"].StartTime = time.Now().Add(-time.Hour)
	addExchange(store, "sess-1", "Answer.", "Question?")
	oracle.replies = []string{`{"overall_score": 64, "confidence_score": 61, "clarity_score": 66, "feedback_summary": "Done."}`}

	live := map[string]int{}
	sweeper := NewSessionSweeper(store, finalizer, func(sessionID string) int {
		return live[sessionID]
	})

	// Still connected: nothing happens.
	live["sess-1"] = 1
	sweeper.sweep(context.Background())
	if store.results["sess-1"] != nil {
		t.Fatal("sweeper finalized a live session")
	}

	// Client gone: the session is finalized.
	live["sess-1"] = 0
	sweeper.sweep(context.Background())
	if store.results["sess-1"] == nil {
		t.Fatal("sweeper did not finalize abandoned session")
	}

	// Completed sessions are never swept again.
	calls := oracle.callCount()
	sweeper.sweep(context.Background())
	if oracle.callCount() != calls {
		t.Error("sweeper re-finalized a completed session")
	}
}
