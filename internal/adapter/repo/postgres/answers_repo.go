package postgres

import (
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
)

// AnswerRepo persists answers with atomic upserts.
type AnswerRepo struct{ Pool PgxPool }

// NewAnswerRepo constructs an AnswerRepo with the given pool.
func NewAnswerRepo(p PgxPool) *AnswerRepo { return &AnswerRepo{Pool: p} }

const upsertMainSQL = `INSERT INTO answers (id, user_id, question_id, follow_up_question_id, text, media_ref, score, feedback, key_points, voice_tone, confidence, created_at, updated_at)
	VALUES ($1,$2,$3,NULL,$4,$5,$6,$7,$8,$9,$10,$11,$11)
	ON CONFLICT (question_id, user_id)
	DO UPDATE SET text=EXCLUDED.text, media_ref=EXCLUDED.media_ref, score=EXCLUDED.score, feedback=EXCLUDED.feedback,
		key_points=EXCLUDED.key_points, voice_tone=EXCLUDED.voice_tone, confidence=EXCLUDED.confidence, updated_at=EXCLUDED.updated_at
	RETURNING id, media_ref, created_at, updated_at`

const upsertFollowUpSQL = `INSERT INTO answers (id, user_id, question_id, follow_up_question_id, text, media_ref, score, feedback, key_points, voice_tone, confidence, created_at, updated_at)
	VALUES ($1,$2,NULL,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
	ON CONFLICT (follow_up_question_id, user_id)
	DO UPDATE SET text=EXCLUDED.text, media_ref=COALESCE(EXCLUDED.media_ref, answers.media_ref), score=EXCLUDED.score, feedback=EXCLUDED.feedback,
		key_points=EXCLUDED.key_points, voice_tone=EXCLUDED.voice_tone, confidence=EXCLUDED.confidence, updated_at=EXCLUDED.updated_at
	RETURNING id, media_ref, created_at, updated_at`

// FindForQuestion returns the user's answer to a main question.
func (r *AnswerRepo) FindForQuestion(ctx domain.Context, questionID, userID string) (domain.Answer, error) {
	ctx, span := startSpan(ctx, "answers", "SELECT", "FindForQuestion")
	defer span.End()

	var na nullableAnswer
	row := r.Pool.QueryRow(ctx, `SELECT `+answerCols+` FROM answers a WHERE a.question_id=$1 AND a.user_id=$2`, questionID, userID)
	if err := row.Scan(na.dest()...); err != nil {
		return domain.Answer{}, wrapErr("answer.find", err)
	}
	a, err := na.answer()
	if err != nil {
		return domain.Answer{}, wrapErr("answer.find", err)
	}
	if a == nil {
		return domain.Answer{}, wrapErr("answer.find", domain.ErrNotFound)
	}
	return *a, nil
}

// UpsertMain inserts or replaces the answer keyed by (question_id, user_id).
// A nil MediaRef clears the stored reference.
func (r *AnswerRepo) UpsertMain(ctx domain.Context, a domain.Answer) (domain.Answer, error) {
	ctx, span := startSpan(ctx, "answers", "UPSERT", "UpsertMain")
	defer span.End()
	if a.QuestionID == nil {
		return domain.Answer{}, wrapErr("answer.upsert_main", domain.ErrInvalidArgument)
	}
	return r.upsert(ctx, "answer.upsert_main", upsertMainSQL, *a.QuestionID, a)
}

// UpsertFollowUp inserts or replaces the answer keyed by (follow_up_question_id, user_id).
// A nil MediaRef keeps the stored reference.
func (r *AnswerRepo) UpsertFollowUp(ctx domain.Context, a domain.Answer) (domain.Answer, error) {
	ctx, span := startSpan(ctx, "answers", "UPSERT", "UpsertFollowUp")
	defer span.End()
	if a.FollowUpQuestionID == nil {
		return domain.Answer{}, wrapErr("answer.upsert_follow_up", domain.ErrInvalidArgument)
	}
	return r.upsert(ctx, "answer.upsert_follow_up", upsertFollowUpSQL, *a.FollowUpQuestionID, a)
}

func (r *AnswerRepo) upsert(ctx domain.Context, op, query, targetID string, a domain.Answer) (domain.Answer, error) {
	kp, err := encodeKeyPoints(a.KeyPoints)
	if err != nil {
		return domain.Answer{}, wrapErr(op, err)
	}
	id := uuid.New().String()
	now := time.Now().UTC()
	row := r.Pool.QueryRow(ctx, query, id, a.UserID, targetID, a.Text, a.MediaRef, a.Score, a.Feedback, kp, a.VoiceTone, a.Confidence, now)
	if err := row.Scan(&a.ID, &a.MediaRef, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return domain.Answer{}, wrapErr(op, err)
	}
	return a, nil
}
