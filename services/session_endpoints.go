package services

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cariera-ai/cariera/backend/models"
	"github.com/cariera-ai/cariera/backend/repository"
)

// maxUploadSize bounds frame and audio uploads.
const maxUploadSize = 10 << 20 // 10MB

type InterviewEndpoints struct {
	repo        *repository.GORMRepository
	transcriber Transcriber
	vision      PresenceDetector
	validate    *validator.Validate
}

func NewInterviewEndpoints(repo *repository.GORMRepository, transcriber Transcriber, vision PresenceDetector) *InterviewEndpoints {
	return &InterviewEndpoints{
		repo:        repo,
		transcriber: transcriber,
		vision:      vision,
		validate:    validator.New(),
	}
}

type CreateInterviewRequest struct {
	Context         string `json:"context"`
	Difficulty      string `json:"difficulty" validate:"omitempty,oneof=simple standard hard"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=1,max=60"`
}

type RenameInterviewRequest struct {
	Title string `json:"title" validate:"required,max=255"`
}

type InterviewResponse struct {
	Session models.InterviewSession `json:"session"`
	Message string                  `json:"message,omitempty"`
}

type InterviewListResponse struct {
	Sessions []models.InterviewSession `json:"sessions"`
	Count    int                       `json:"count"`
}

type InterviewResultResponse struct {
	Session      models.InterviewSession `json:"session"`
	Result       *models.InterviewResult `json:"result,omitempty"`
	ResultsReady bool                    `json:"results_ready"`
}

func (e *InterviewEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/interviews", func(r chi.Router) {
		r.Post("/", e.CreateInterviewHandler)
		r.Get("/", e.ListInterviewsHandler)
		r.Get("/{id}", e.GetInterviewHandler)
		r.Patch("/{id}", e.RenameInterviewHandler)
		r.Delete("/{id}", e.DeleteInterviewHandler)
		r.Get("/{id}/result", e.GetInterviewResultHandler)
		r.Post("/{id}/frames", e.AnalyzeFrameHandler)
		r.Post("/{id}/speech", e.TranscribeSpeechHandler)
	})
}

func (e *InterviewEndpoints) CreateInterviewHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	var req CreateInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := e.validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Difficulty == "" {
		req.Difficulty = models.DifficultyStandard
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = 3
	}

	now := time.Now()
	session := models.InterviewSession{
		ID:              uuid.New().String(),
		UserID:          user.ID,
		Context:         strings.TrimSpace(req.Context),
		Difficulty:      req.Difficulty,
		DurationMinutes: req.DurationMinutes,
		Status:          models.SessionOngoing,
		StartTime:       now,
	}
	session.Title = deriveInterviewTitle(session.Context, now)

	if err := e.repo.CreateInterviewSession(r.Context(), &session); err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, InterviewResponse{
		Session: session,
		Message: "Session created successfully",
	})
}

func (e *InterviewEndpoints) ListInterviewsHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	sessions, err := e.repo.ListInterviewSessions(r.Context(), user.ID, query)
	if err != nil {
		http.Error(w, "Failed to get sessions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, InterviewListResponse{
		Sessions: sessions,
		Count:    len(sessions),
	})
}

func (e *InterviewEndpoints) GetInterviewHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := e.ownedSession(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, InterviewResponse{Session: *session})
}

func (e *InterviewEndpoints) RenameInterviewHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := e.ownedSession(w, r)
	if !ok {
		return
	}

	var req RenameInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := e.validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session.Title = req.Title
	if err := e.repo.UpdateInterviewSession(r.Context(), session); err != nil {
		http.Error(w, "Failed to rename session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, InterviewResponse{
		Session: *session,
		Message: "Session renamed successfully",
	})
}

func (e *InterviewEndpoints) DeleteInterviewHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := e.ownedSession(w, r)
	if !ok {
		return
	}

	if err := e.repo.DeleteInterviewSession(r.Context(), session.ID); err != nil {
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted successfully"})
}

// GetInterviewResultHandler returns the result when analysis has finished.
// Clients poll it after a session ends; a missing result is not an error.
func (e *InterviewEndpoints) GetInterviewResultHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := e.ownedSession(w, r)
	if !ok {
		return
	}

	result, err := e.repo.GetInterviewResult(r.Context(), session.ID)
	if err != nil {
		http.Error(w, "Failed to get result", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, InterviewResultResponse{
		Session:      *session,
		Result:       result,
		ResultsReady: result != nil && session.Status == models.SessionCompleted,
	})
}

// AnalyzeFrameHandler ingests one camera frame, runs person detection and
// stores the sample for the session's presence score.
func (e *InterviewEndpoints) AnalyzeFrameHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := e.ownedSession(w, r)
	if !ok {
		return
	}

	image, ok := readUpload(w, r, "frame")
	if !ok {
		return
	}

	detected, err := e.vision.DetectPerson(r.Context(), image)
	if err != nil {
		slog.Error("Frame analysis failed", "error", err, "session_id", session.ID)
		http.Error(w, "Frame analysis failed", http.StatusBadGateway)
		return
	}

	point := &models.InterviewAnalysisPoint{
		SessionID:      session.ID,
		PersonDetected: detected,
	}
	if err := e.repo.CreateAnalysisPoint(r.Context(), point); err != nil {
		http.Error(w, "Failed to store analysis point", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "success",
		"person_detected": detected,
	})
}

// TranscribeSpeechHandler converts an audio clip to text. Transcription
// failures surface as empty text, never as an error status, so a flaky
// speech backend cannot interrupt a running interview.
func (e *InterviewEndpoints) TranscribeSpeechHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := e.ownedSession(w, r)
	if !ok {
		return
	}

	audio, ok := readUpload(w, r, "audio")
	if !ok {
		return
	}

	text := e.transcriber.Transcribe(r.Context(), audio)
	slog.Info("Speech clip transcribed", "session_id", session.ID, "text_length", len(text))

	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// ownedSession resolves the {id} route parameter to a session owned by the
// authenticated user, writing the error response itself when it cannot.
func (e *InterviewEndpoints) ownedSession(w http.ResponseWriter, r *http.Request) (*models.InterviewSession, bool) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return nil, false
	}

	sessionID := chi.URLParam(r, "id")
	session, err := e.repo.GetOwnedInterviewSession(r.Context(), sessionID, user.ID)
	if err != nil {
		http.Error(w, "Failed to get session", http.StatusInternalServerError)
		return nil, false
	}
	if session == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

// readUpload pulls one multipart file field, writing the error response
// itself when the upload is missing or unreadable.
func readUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return nil, false
	}

	file, _, err := r.FormFile(field)
	if err != nil {
		http.Error(w, "Missing "+field+" upload", http.StatusBadRequest)
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		http.Error(w, "Failed to read "+field+" upload", http.StatusBadRequest)
		return nil, false
	}
	return data, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// deriveInterviewTitle builds the default session title: the leading part of
// the context when one was given, otherwise the start date.
func deriveInterviewTitle(interviewContext string, start time.Time) string {
	if interviewContext != "" {
		title := []rune(interviewContext)
		if len(title) > 50 {
			title = title[:50]
		}
		return "Interview Practice: " + string(title) + "..."
	}
	return "Interview on " + start.Format("January 2, 2006 at 3:04 PM")
}
