package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cariera-ai/cariera/backend/models"
)

const (
	// minScoredTurns is the smallest turn log worth analyzing: one full
	// exchange, a candidate answer and an interviewer follow-up.
	minScoredTurns = 2

	tooShortSummary = "This interview session was too short to generate a meaningful analysis. Please try again and complete at least one full exchange with the AI interviewer."

	analysisFailedSummary = "An unexpected error occurred while analyzing your interview. Please try again."

	// finalizeTimeout bounds one full finalize run, analysis call included.
	finalizeTimeout = 2 * time.Minute
)

// ResultStore is the persistence surface finalization needs.
// *repository.GORMRepository satisfies it.
type ResultStore interface {
	CompleteInterviewSession(ctx context.Context, sessionID string, endTime time.Time) error
	GetInterviewTurns(ctx context.Context, sessionID string) ([]models.InterviewTurn, error)
	GetAnalysisPoints(ctx context.Context, sessionID string) ([]models.InterviewAnalysisPoint, error)
	UpsertInterviewResult(ctx context.Context, result *models.InterviewResult) error
}

// Finalizer turns a finished session into a scored result. Finalize always
// tries to leave a result row behind: when any stage fails, a zero-score
// fallback is written instead of nothing. Running it twice for the same
// session converges on a single row with the later values.
type Finalizer struct {
	store  ResultStore
	oracle Oracle
}

func NewFinalizer(store ResultStore, oracle Oracle) *Finalizer {
	return &Finalizer{
		store:  store,
		oracle: oracle,
	}
}

// FinalizeAsync runs Finalize in its own goroutine with a fresh context, the
// way a disconnect handler needs it: the session outcome must not depend on
// the lifetime of the connection that triggered it. The returned channel
// closes when the run ends.
func (f *Finalizer) FinalizeAsync(sessionID string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
		defer cancel()

		f.Finalize(ctx, sessionID)
	}()
	return done
}

// Finalize completes the session and writes its result.
func (f *Finalizer) Finalize(ctx context.Context, sessionID string) {
	slog.Info("Starting interview analysis", "session_id", sessionID)

	if err := f.analyze(ctx, sessionID); err != nil {
		slog.Error("Interview analysis failed", "error", err, "session_id", sessionID)
		f.writeResult(ctx, sessionID, AnalysisReport{FeedbackSummary: analysisFailedSummary}, 0)
	}
}

func (f *Finalizer) analyze(ctx context.Context, sessionID string) error {
	// The status write gets a few retries: it is the one step that must land
	// even when the database is briefly unavailable during shutdown.
	endTime := time.Now()
	completeOp := func() error {
		return f.store.CompleteInterviewSession(ctx, sessionID, endTime)
	}
	if err := backoff.Retry(completeOp, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)); err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}

	turns, err := f.store.GetInterviewTurns(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load turns: %w", err)
	}

	if len(turns) < minScoredTurns {
		slog.Info("Session too short for analysis", "session_id", sessionID, "turns", len(turns))
		if err := f.writeResult(ctx, sessionID, AnalysisReport{FeedbackSummary: tooShortSummary}, 0); err != nil {
			return err
		}
		return nil
	}

	transcript := buildTranscript(turns)

	points, err := f.store.GetAnalysisPoints(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load analysis points: %w", err)
	}
	presenceScore := cameraPresenceScore(points)

	raw, err := f.oracle.Generate(ctx, []Instruction{
		{Role: RoleSystem, Content: analysisInstructions(presenceScore)},
		{Role: RoleUser, Content: "Analyze this transcript:\n\n" + transcript},
	}, GenerationConfig{
		Temperature:  0.5,
		JSONResponse: true,
	})
	if err != nil {
		return fmt.Errorf("analysis generation failed: %w", err)
	}

	report, err := parseAnalysisReport(raw)
	if err != nil {
		return err
	}

	if err := f.writeResult(ctx, sessionID, report, presenceScore); err != nil {
		return err
	}

	slog.Info("Interview analysis saved", "session_id", sessionID, "overall_score", report.OverallScore)
	return nil
}

func (f *Finalizer) writeResult(ctx context.Context, sessionID string, report AnalysisReport, presenceScore int) error {
	result := &models.InterviewResult{
		SessionID:           sessionID,
		OverallScore:        report.OverallScore,
		ConfidenceScore:     report.ConfidenceScore,
		ClarityScore:        report.ClarityScore,
		CameraPresenceScore: presenceScore,
		FeedbackSummary:     report.FeedbackSummary,
	}
	if err := f.store.UpsertInterviewResult(ctx, result); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// buildTranscript flattens the turn log into "SPEAKER: text" lines in
// conversation order.
func buildTranscript(turns []models.InterviewTurn) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, strings.ToUpper(turn.Speaker)+": "+turn.Text)
	}
	return strings.Join(lines, "\n")
}

// cameraPresenceScore is the percentage of samples with a person visible,
// rounded to the nearest int. No samples means camera analysis never ran
// and scores zero without penalizing the oracle's assessment.
func cameraPresenceScore(points []models.InterviewAnalysisPoint) int {
	if len(points) == 0 {
		return 0
	}
	detected := 0
	for _, point := range points {
		if point.PersonDetected {
			detected++
		}
	}
	return int(math.Round(100 * float64(detected) / float64(len(points))))
}

func analysisInstructions(presenceScore int) string {
	return fmt.Sprintf(
		"You are a positive and encouraging AI career coach named Cariera. Your task is to analyze an interview transcript and provide constructive feedback and scores in a valid JSON format. "+
			"You MUST respond with ONLY a valid JSON object. "+
			"The JSON object must have keys: 'overall_score', 'confidence_score', 'clarity_score', and 'feedback_summary'.\n\n"+
			"SCORING RUBRIC (0-100 scale):\n"+
			"- **50-60:** Average performance. The user answered the questions but lacked detail or structure.\n"+
			"- **70-80:** Good performance. The user was clear, confident, and provided good examples.\n"+
			"- **80-90:** Excellent performance. The user was articulate, confident, and gave structured, impactful answers.\n"+
			"- **90+:** Exceptional, job-ready performance.\n\n"+
			"METRIC DEFINITIONS:\n"+
			"- **Clarity Score:** How clear and easy to understand were the user's answers? Did they use STAR method (Situation, Task, Action, Result) logic?\n"+
			"- **Confidence Score:** How confident did the user sound? Base this on their word choice and the provided Engagement Score from the camera analysis. A high engagement score should lead to a higher confidence score.\n"+
			"- **Overall Score:** Your holistic assessment based on all factors.\n\n"+
			"FEEDBACK GUIDELINES:\n"+
			"- Start by highlighting a key strength.\n"+
			"- Gently point out 1-2 areas for improvement.\n"+
			"- End with an encouraging statement.\n\n"+
			"CONTEXT FOR THIS ANALYSIS:\n"+
			"- User's On-Camera Engagement Score was: %d/100. Incorporate this into your assessment of their confidence.",
		presenceScore,
	)
}
