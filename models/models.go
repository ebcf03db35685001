package models

// This file serves as the central export point for all database models
// Import this package to access all model types

// All models are automatically exported from their respective files:
// - User, UserProfile, RefreshToken from user.go
// - InterviewSession, InterviewTurn, InterviewAnalysisPoint, InterviewResult from interview.go

// Database schema overview:
// 1. users - Managed by cookie-based authentication
// 2. user_profiles - One per user; holds the Holland Code personality type
// 3. refresh_tokens - Hashed long-lived tokens backing cookie refresh
// 4. interview_sessions - Records each mock-interview attempt for a user
// 5. interview_turns - Append-only, timestamp-ordered conversation log
// 6. interview_analysis_points - Append-only camera-presence samples
// 7. interview_results - Exactly one scored result per completed session
