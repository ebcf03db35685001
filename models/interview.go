package models

import (
	"time"

	"gorm.io/gorm"
)

// Interview difficulty levels selected at session setup.
const (
	DifficultySimple   = "simple"
	DifficultyStandard = "standard"
	DifficultyHard     = "hard"
)

// Session lifecycle. The only legal transition is ongoing -> completed,
// performed exactly once when the session is finalized.
const (
	SessionOngoing   = "ongoing"
	SessionCompleted = "completed"
)

// Turn speakers.
const (
	SpeakerUser = "user"
	SpeakerAI   = "ai"
)

// InterviewSession records one mock-interview attempt from connect to
// finalized result.
type InterviewSession struct {
	ID              string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID          string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Title           string         `gorm:"size:255" json:"title,omitempty"`
	Context         string         `gorm:"type:text" json:"context,omitempty"` // job role, scholarship type, etc.
	Difficulty      string         `gorm:"size:10;not null;default:'standard';check:difficulty IN ('simple', 'standard', 'hard')" json:"difficulty"`
	DurationMinutes int            `gorm:"not null;default:3" json:"duration_minutes"`
	Status          string         `gorm:"size:20;not null;default:'ongoing';check:status IN ('ongoing', 'completed')" json:"status"`
	StartTime       time.Time      `gorm:"not null" json:"start_time"`
	EndTime         *time.Time     `json:"end_time,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User           User                     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Turns          []InterviewTurn          `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"turns,omitempty"`
	AnalysisPoints []InterviewAnalysisPoint `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"analysis_points,omitempty"`
	Result         *InterviewResult         `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"result,omitempty"`
}

// DifficultyDisplay returns the human-readable difficulty label used in
// oracle instructions.
func (s *InterviewSession) DifficultyDisplay() string {
	switch s.Difficulty {
	case DifficultySimple:
		return "Simple"
	case DifficultyHard:
		return "Hard"
	default:
		return "Standard"
	}
}

// InterviewTurn is one utterance in the conversation. Turns are append-only:
// once created they are never mutated or reordered, and timestamp ascending
// is the canonical conversation order.
type InterviewTurn struct {
	ID        string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SessionID string         `gorm:"type:uuid;not null;index" json:"session_id"`
	Speaker   string         `gorm:"size:10;not null;check:speaker IN ('user', 'ai')" json:"speaker"`
	Text      string         `gorm:"type:text;not null" json:"text"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Session InterviewSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
}

// InterviewAnalysisPoint is a single camera-presence sample taken during the
// session, independent of the turn exchange. Points are only read in
// aggregate at finalize time.
type InterviewAnalysisPoint struct {
	ID             string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SessionID      string         `gorm:"type:uuid;not null;index" json:"session_id"`
	Timestamp      time.Time      `gorm:"not null" json:"timestamp"`
	PersonDetected bool           `gorm:"not null;default:false" json:"person_detected"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Session InterviewSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
}

// InterviewResult holds the scored outcome of a completed session. Exactly
// one exists per session; finalize creates or overwrites it.
type InterviewResult struct {
	ID                  string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SessionID           string         `gorm:"type:uuid;not null;uniqueIndex" json:"session_id"`
	OverallScore        int            `gorm:"not null" json:"overall_score"`         // 0-100
	ConfidenceScore     int            `gorm:"not null" json:"confidence_score"`      // 0-100
	ClarityScore        int            `gorm:"not null" json:"clarity_score"`         // 0-100
	CameraPresenceScore int            `gorm:"not null;default:0" json:"camera_presence_score"` // 0-100, computed from analysis points
	FeedbackSummary     string         `gorm:"type:text;not null" json:"feedback_summary"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Session InterviewSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
}
