package domain

import "time"

// Repositories (ports)

// InterviewRepository persists interviews and their main questions.
// Every read is scoped to the owning user; rows of other users are reported as ErrNotFound.
type InterviewRepository interface {
	// Create stores the interview and its questions atomically and returns the interview ID.
	Create(ctx Context, iv Interview) (string, error)
	// GetOwned loads the interview tree with the owner's answers.
	GetOwned(ctx Context, id, userID string) (Interview, error)
	// ListOwned returns the owner's interviews newest first with QuestionCount set.
	ListOwned(ctx Context, userID string) ([]Interview, error)
	// DeleteOwned removes matching rows and reports how many were deleted.
	DeleteOwned(ctx Context, id, userID string) (int64, error)
}

// QuestionRepository reads questions for evaluation and stores follow-ups.
type QuestionRepository interface {
	// GetForEvaluation loads a main question with its interview and follow-ups.
	GetForEvaluation(ctx Context, questionID, userID string) (Question, error)
	// GetFollowUpForEvaluation loads a follow-up with its main question and interview.
	GetFollowUpForEvaluation(ctx Context, followUpID, userID string) (FollowUpQuestion, error)
	CreateFollowUp(ctx Context, f FollowUpQuestion) (FollowUpQuestion, error)
}

// AnswerRepository persists answers. Upserts are atomic per (question, user).
type AnswerRepository interface {
	FindForQuestion(ctx Context, questionID, userID string) (Answer, error)
	UpsertMain(ctx Context, a Answer) (Answer, error)
	// UpsertFollowUp keeps the stored MediaRef when a.MediaRef is nil.
	UpsertFollowUp(ctx Context, a Answer) (Answer, error)
}

// AIClient (port)

type AIClient interface {
	// ChatText returns the raw completion text for one prompt.
	ChatText(ctx Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
	// ChatJSON returns a cleaned JSON object extracted from the completion.
	ChatJSON(ctx Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// QuotaLimiter (port) meters AI calls per key.
type QuotaLimiter interface {
	Allow(ctx Context, key string, cost int) (bool, time.Duration, error)
}

// EventPublisher (port) emits evaluation events to downstream consumers.
type EventPublisher interface {
	PublishAnswerEvaluated(ctx Context, ev AnswerEvaluatedEvent) error
}

// MediaStore (port) keeps recorded answers.
type MediaStore interface {
	Put(ctx Context, key, contentType string, data []byte) error
}
