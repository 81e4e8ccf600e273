package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrRateLimited     = errors.New("rate limited")
	ErrPersistence     = errors.New("persistence failure")
	ErrInternal        = errors.New("internal error")
)

// Scoring constants shared by the evaluation workflow and the results view.
const (
	// DefaultMaxScore applies when a stored question carries no maximum.
	DefaultMaxScore = 10
	// FollowUpThreshold is the minimum score ratio that earns a follow-up.
	FollowUpThreshold = 0.7
	// FollowUpScoreRatio scales a parent maximum into the follow-up maximum.
	FollowUpScoreRatio = 0.5
	// PassingPercentage is the inclusive pass mark for an interview.
	PassingPercentage = 70
)

// Question categories
const (
	CategoryHR        = "HR"
	CategoryTechnical = "TECHNICAL"
	CategoryAptitude  = "APTITUDE"
)

// Interview is one mock interview owned by a single user.
// Invariants: UserID non-empty; Questions ordered by Position.
type Interview struct {
	ID              string
	UserID          string
	JobPosition     string
	JobDescription  string
	JobExperience   int
	DifficultyLevel string
	Skills          []string
	CreatedAt       time.Time
	Questions       []Question
	// QuestionCount is populated by list queries only.
	QuestionCount int
}

// Question is a main interview question. Immutable once created.
type Question struct {
	ID          string
	InterviewID string
	Text        string
	Category    string
	MaxScore    int
	Position    int
	CreatedAt   time.Time
	FollowUps   []FollowUpQuestion
	// Answer is the requesting user's answer, if any.
	Answer *Answer
	// Interview is the parent, loaded when evaluation needs its context.
	Interview *Interview
}

// EffectiveMaxScore returns MaxScore, or DefaultMaxScore when unset.
func (q Question) EffectiveMaxScore() int {
	if q.MaxScore <= 0 {
		return DefaultMaxScore
	}
	return q.MaxScore
}

// FollowUpQuestion is a probing question derived from one main question.
type FollowUpQuestion struct {
	ID             string
	MainQuestionID string
	Text           string
	Category       string
	MaxScore       int
	CreatedAt      time.Time
	MainQuestion   *Question
	Answer         *Answer
}

// EffectiveMaxScore returns MaxScore, or DefaultMaxScore when unset.
func (f FollowUpQuestion) EffectiveMaxScore() int {
	if f.MaxScore <= 0 {
		return DefaultMaxScore
	}
	return f.MaxScore
}

// FollowUpMaxScore derives the maximum score of a follow-up from its parent.
func FollowUpMaxScore(parentMax int) int {
	return int(float64(parentMax) * FollowUpScoreRatio)
}

// Answer is a user's response to exactly one main or follow-up question.
// Invariant: exactly one of QuestionID and FollowUpQuestionID is set.
type Answer struct {
	ID                 string
	UserID             string
	QuestionID         *string
	FollowUpQuestionID *string
	Text               string
	MediaRef           *string
	Score              int
	Feedback           string
	KeyPoints          map[string]bool
	VoiceTone          *string
	Confidence         *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AnalysisResult is the structured outcome of parsing one evaluation.
type AnalysisResult struct {
	Score            int
	Feedback         string
	MatchedKeyPoints []string
	VoiceTone        *string
	Confidence       *string
}

// KeyPointSet converts the ordered key points into the stored presence map.
func (a AnalysisResult) KeyPointSet() map[string]bool {
	out := make(map[string]bool, len(a.MatchedKeyPoints))
	for _, k := range a.MatchedKeyPoints {
		out[k] = true
	}
	return out
}

// EligibleForFollowUp reports whether score/max reaches FollowUpThreshold.
func EligibleForFollowUp(score, maxScore int) bool {
	if maxScore <= 0 {
		return false
	}
	return float64(score)/float64(maxScore) >= FollowUpThreshold
}

// AnswerEvaluatedEvent is published after an answer is persisted.
type AnswerEvaluatedEvent struct {
	AnswerID            string    `json:"answer_id"`
	UserID              string    `json:"user_id"`
	InterviewID         string    `json:"interview_id"`
	QuestionID          string    `json:"question_id,omitempty"`
	FollowUpQuestionID  string    `json:"follow_up_question_id,omitempty"`
	Score               int       `json:"score"`
	MaxScore            int       `json:"max_score"`
	EligibleForFollowUp bool      `json:"eligible_for_follow_up"`
	FallbackUsed        bool      `json:"fallback_used"`
	EvaluatedAt         time.Time `json:"evaluated_at"`
}

// MediaObject describes a stored recording.
type MediaObject struct {
	Ref         string
	ContentType string
	Size        int64
}

// Context is an alias to allow decoupling from std context in domain.
// Adapters and usecases should pass context.Context through.
type Context = context.Context
