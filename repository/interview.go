package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/cariera-ai/cariera/backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Interview session operations

func (r *GORMRepository) CreateInterviewSession(ctx context.Context, session *models.InterviewSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		slog.Error("Failed to create interview session", "error", err)
		return err
	}
	slog.Info("Interview session created", "session_id", session.ID, "user_id", session.UserID)
	return nil
}

// GetInterviewSession gets an interview session by ID without an ownership
// check. Used by internal flows that already hold an authorized session id.
func (r *GORMRepository) GetInterviewSession(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := r.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get interview session", "error", err, "session_id", sessionID)
		return nil, err
	}
	return &session, nil
}

// GetOwnedInterviewSession returns the session only when it belongs to the
// given user. Connection attempts and all user-facing session endpoints go
// through this lookup.
func (r *GORMRepository) GetOwnedInterviewSession(ctx context.Context, sessionID, userID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get owned interview session", "error", err, "session_id", sessionID, "user_id", userID)
		return nil, err
	}
	return &session, nil
}

// ListInterviewSessions returns a user's completed sessions, newest first,
// optionally filtered by a search query on title and context.
func (r *GORMRepository) ListInterviewSessions(ctx context.Context, userID, query string) ([]models.InterviewSession, error) {
	var sessions []models.InterviewSession
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.SessionCompleted).
		Order("start_time DESC")
	if query != "" {
		pattern := "%" + query + "%"
		q = q.Where("(title ILIKE ? OR context ILIKE ?)", pattern, pattern)
	}
	if err := q.Find(&sessions).Error; err != nil {
		slog.Error("Failed to list interview sessions", "error", err, "user_id", userID)
		return nil, err
	}
	return sessions, nil
}

// ListOverdueOngoingSessions returns ongoing sessions whose configured
// duration plus the grace window elapsed before now. The sweeper finalizes
// these when their client is gone.
func (r *GORMRepository) ListOverdueOngoingSessions(ctx context.Context, now time.Time, grace time.Duration) ([]models.InterviewSession, error) {
	var sessions []models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND start_time + make_interval(mins => duration_minutes) < ?",
			models.SessionOngoing, now.Add(-grace)).
		Find(&sessions).Error
	if err != nil {
		slog.Error("Failed to list overdue sessions", "error", err)
		return nil, err
	}
	return sessions, nil
}

func (r *GORMRepository) UpdateInterviewSession(ctx context.Context, session *models.InterviewSession) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		slog.Error("Failed to update interview session", "error", err, "session_id", session.ID)
		return err
	}
	return nil
}

// CompleteInterviewSession marks a session completed and stamps the end
// time. The write is idempotent: completing an already-completed session
// leaves it completed with the later end time.
func (r *GORMRepository) CompleteInterviewSession(ctx context.Context, sessionID string, endTime time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.InterviewSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"status":   models.SessionCompleted,
			"end_time": endTime,
		}).Error
	if err != nil {
		slog.Error("Failed to complete interview session", "error", err, "session_id", sessionID)
		return err
	}
	slog.Info("Interview session completed", "session_id", sessionID)
	return nil
}

// DeleteInterviewSession removes a session together with its turns,
// analysis points and result.
func (r *GORMRepository) DeleteInterviewSession(ctx context.Context, sessionID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.InterviewTurn{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.InterviewAnalysisPoint{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.InterviewResult{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", sessionID).Delete(&models.InterviewSession{}).Error
	})
	if err != nil {
		slog.Error("Failed to delete interview session", "error", err, "session_id", sessionID)
		return err
	}
	slog.Info("Interview session deleted", "session_id", sessionID)
	return nil
}

// Turn operations

func (r *GORMRepository) CreateInterviewTurn(ctx context.Context, turn *models.InterviewTurn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(turn).Error; err != nil {
		slog.Error("Failed to create interview turn", "error", err, "session_id", turn.SessionID)
		return err
	}
	return nil
}

// GetInterviewTurns returns the full turn log for a session in canonical
// order (timestamp ascending).
func (r *GORMRepository) GetInterviewTurns(ctx context.Context, sessionID string) ([]models.InterviewTurn, error) {
	var turns []models.InterviewTurn
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Find(&turns).Error
	if err != nil {
		slog.Error("Failed to get interview turns", "error", err, "session_id", sessionID)
		return nil, err
	}
	return turns, nil
}

// Analysis point operations

func (r *GORMRepository) CreateAnalysisPoint(ctx context.Context, point *models.InterviewAnalysisPoint) error {
	if point.Timestamp.IsZero() {
		point.Timestamp = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(point).Error; err != nil {
		slog.Error("Failed to create analysis point", "error", err, "session_id", point.SessionID)
		return err
	}
	return nil
}

func (r *GORMRepository) GetAnalysisPoints(ctx context.Context, sessionID string) ([]models.InterviewAnalysisPoint, error) {
	var points []models.InterviewAnalysisPoint
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Find(&points).Error
	if err != nil {
		slog.Error("Failed to get analysis points", "error", err, "session_id", sessionID)
		return nil, err
	}
	return points, nil
}

// Result operations

// UpsertInterviewResult creates the result for a session or overwrites the
// scores and summary when one already exists. Keyed by session_id so a
// repeated finalize converges to a single row with the later values.
func (r *GORMRepository) UpsertInterviewResult(ctx context.Context, result *models.InterviewResult) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"overall_score", "confidence_score", "clarity_score",
			"camera_presence_score", "feedback_summary", "updated_at",
		}),
	}).Create(result).Error
	if err != nil {
		slog.Error("Failed to upsert interview result", "error", err, "session_id", result.SessionID)
		return err
	}
	slog.Info("Interview result saved", "session_id", result.SessionID, "overall_score", result.OverallScore)
	return nil
}

func (r *GORMRepository) GetInterviewResult(ctx context.Context, sessionID string) (*models.InterviewResult, error) {
	var result models.InterviewResult
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get interview result", "error", err, "session_id", sessionID)
		return nil, err
	}
	return &result, nil
}
