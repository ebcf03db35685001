package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cariera-ai/cariera/backend/models"
	"github.com/cariera-ai/cariera/backend/websocket"
)

// WebSocket event types exchanged with the interview client.
const (
	EventUserSpeech = "user_speech"
	EventAIResponse = "ai_response"
)

// GreetingMessage opens every session. It is emitted only, never stored, so
// the turn log holds nothing until the candidate actually speaks.
const GreetingMessage = "Hello! I'm your AI interviewer from Cariera. I'm here to help you practice. When you're ready, please tell me a bit about yourself to begin."

// apologyMessage replaces the interviewer's reply when generation fails. It
// is stored and emitted like any other AI turn, so the log always advances
// one full exchange per speech event.
const apologyMessage = "I'm sorry, I encountered an error. Please try speaking again."

// ErrSessionNotFound is returned when a session id does not exist or does not
// belong to the requesting user. Callers must not distinguish the two cases.
var ErrSessionNotFound = errors.New("interview session not found")

// hollandCodeLabels expands the letters of a Holland Code into the interest
// labels quoted in interviewer instructions.
var hollandCodeLabels = map[rune]string{
	'R': "Realistic",
	'I': "Investigative",
	'A': "Artistic",
	'S': "Social",
	'E': "Enterprising",
	'C': "Conventional",
}

// InterviewStore is the persistence surface the live session loop needs.
// *repository.GORMRepository satisfies it.
type InterviewStore interface {
	GetOwnedInterviewSession(ctx context.Context, sessionID, userID string) (*models.InterviewSession, error)
	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	CreateInterviewTurn(ctx context.Context, turn *models.InterviewTurn) error
	GetInterviewTurns(ctx context.Context, sessionID string) ([]models.InterviewTurn, error)
}

// InterviewService runs the live half of a mock interview: it authorizes
// connections, greets the candidate, and turns each speech event into a
// persisted exchange with the AI interviewer.
//
// Events for one client arrive from the read pump one at a time, so the
// service needs no per-session locking; the turn log ordering follows
// directly from handling order.
type InterviewService struct {
	store  InterviewStore
	oracle Oracle
	hub    *websocket.Hub
}

func NewInterviewService(store InterviewStore, oracle Oracle, hub *websocket.Hub) *InterviewService {
	return &InterviewService{
		store:  store,
		oracle: oracle,
		hub:    hub,
	}
}

// AuthorizeConnection checks that the session exists and belongs to the user.
// It runs before the WebSocket upgrade: a rejected attempt leaves no trace,
// no client registration and no turns.
func (s *InterviewService) AuthorizeConnection(ctx context.Context, sessionID, userID string) (*models.InterviewSession, error) {
	session, err := s.store.GetOwnedInterviewSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		slog.Warn("WebSocket connection rejected", "session_id", sessionID, "user_id", userID)
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Greet emits the opening message to the session group. The greeting is
// never persisted as a turn.
func (s *InterviewService) Greet(client *websocket.Client) {
	payload, err := json.Marshal(sessionEvent{Type: EventAIResponse, Message: GreetingMessage})
	if err != nil {
		return
	}
	s.hub.Broadcast(client.SessionID, payload)
}

type sessionEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// HandleMessage processes one inbound WebSocket event. Only user_speech
// events advance the session; every other type is ignored without error so
// unknown client messages can never break a running interview.
func (s *InterviewService) HandleMessage(client *websocket.Client, raw []byte) {
	var event sessionEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		slog.Warn("Ignoring malformed session event", "error", err, "session_id", client.SessionID)
		return
	}

	if event.Type != EventUserSpeech {
		slog.Debug("Ignoring session event", "type", event.Type, "session_id", client.SessionID)
		return
	}

	ctx := context.Background()

	userTurn := &models.InterviewTurn{
		SessionID: client.SessionID,
		Speaker:   models.SpeakerUser,
		Text:      event.Message,
	}
	if err := s.store.CreateInterviewTurn(ctx, userTurn); err != nil {
		s.sendAIMessage(client.SessionID, apologyMessage)
		return
	}

	reply, err := s.respond(ctx, client.SessionID, client.UserID)
	if err != nil {
		slog.Error("Failed to generate interviewer reply", "error", err, "session_id", client.SessionID)
		reply = apologyMessage
	}

	aiTurn := &models.InterviewTurn{
		SessionID: client.SessionID,
		Speaker:   models.SpeakerAI,
		Text:      reply,
	}
	if err := s.store.CreateInterviewTurn(ctx, aiTurn); err != nil {
		// The reply still goes out so the client is never left hanging.
		slog.Error("Failed to persist AI turn", "error", err, "session_id", client.SessionID)
	}

	s.sendAIMessage(client.SessionID, reply)
}

// respond rebuilds the conversation from the stored turn log and asks the
// oracle for the interviewer's next line.
func (s *InterviewService) respond(ctx context.Context, sessionID, userID string) (string, error) {
	session, err := s.store.GetOwnedInterviewSession(ctx, sessionID, userID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", ErrSessionNotFound
	}

	profile, err := s.store.GetUserProfile(ctx, userID)
	if err != nil {
		// The prompt degrades to generic instructions; the exchange goes on.
		slog.Warn("Failed to load user profile", "error", err, "user_id", userID)
		profile = nil
	}

	instructions := []Instruction{{
		Role:    RoleSystem,
		Content: interviewerInstructions(session, profile),
	}}

	turns, err := s.store.GetInterviewTurns(ctx, sessionID)
	if err != nil {
		return "", err
	}
	for _, turn := range turns {
		role := RoleAssistant
		if turn.Speaker == models.SpeakerUser {
			role = RoleUser
		}
		instructions = append(instructions, Instruction{Role: role, Content: turn.Text})
	}

	reply, err := s.oracle.Generate(ctx, instructions, GenerationConfig{
		Temperature: 0.8,
		MaxTokens:   200,
	})
	if err != nil {
		return "", err
	}

	reply = SanitizeOracleText(reply)
	if reply == "" {
		return "", fmt.Errorf("oracle returned an empty reply")
	}
	return reply, nil
}

func (s *InterviewService) sendAIMessage(sessionID, message string) {
	payload, err := json.Marshal(sessionEvent{Type: EventAIResponse, Message: message})
	if err != nil {
		slog.Error("Failed to encode AI message", "error", err, "session_id", sessionID)
		return
	}
	s.hub.Broadcast(sessionID, payload)
}

// interviewerInstructions builds the system prompt for the live exchange from
// the session configuration and the candidate's assessment profile.
func interviewerInstructions(session *models.InterviewSession, profile *models.UserProfile) string {
	interviewContext := session.Context
	if interviewContext == "" {
		interviewContext = "General Practice"
	}

	personalityContext := "The user has not completed a personality assessment."
	if profile != nil && profile.PersonalityType != "" {
		personalityContext = fmt.Sprintf(
			"User's Holland Code is %s (%s). Tailor questions accordingly.",
			profile.PersonalityType, expandHollandCode(profile.PersonalityType),
		)
	}

	return fmt.Sprintf(
		"You are an expert AI mock interviewer named Cariera. Be friendly and professional. "+
			"Interview Context: '%s' | Difficulty: '%s'. "+
			"Ask one question at a time. %s",
		interviewContext, session.DifficultyDisplay(), personalityContext,
	)
}

// expandHollandCode maps each letter of a Holland Code to its interest label.
// Unrecognized letters are skipped rather than rejected.
func expandHollandCode(code string) string {
	var labels []string
	for _, letter := range strings.ToUpper(code) {
		if label, ok := hollandCodeLabels[letter]; ok {
			labels = append(labels, label)
		}
	}
	return strings.Join(labels, ", ")
}
