package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
)

// InterviewRepo persists interviews with their questions.
type InterviewRepo struct{ Pool PgxPool }

// NewInterviewRepo constructs an InterviewRepo with the given pool.
func NewInterviewRepo(p PgxPool) *InterviewRepo { return &InterviewRepo{Pool: p} }

// Create stores the interview and its questions in one transaction.
func (r *InterviewRepo) Create(ctx domain.Context, iv domain.Interview) (string, error) {
	ctx, span := startSpan(ctx, "interviews", "INSERT", "Create")
	defer span.End()

	id := iv.ID
	if id == "" {
		id = uuid.New().String()
	}
	created := iv.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	skills := iv.Skills
	if skills == nil {
		skills = []string{}
	}
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", wrapErr("interview.create", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `INSERT INTO interviews (id, user_id, job_position, job_description, job_experience, difficulty_level, skills, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		id, iv.UserID, iv.JobPosition, iv.JobDescription, iv.JobExperience, iv.DifficultyLevel, skills, created)
	if err != nil {
		return "", wrapErr("interview.create", err)
	}
	for _, q := range iv.Questions {
		qid := q.ID
		if qid == "" {
			qid = uuid.New().String()
		}
		if _, err := tx.Exec(ctx, `INSERT INTO questions (id, interview_id, text, category, max_score, position, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			qid, id, q.Text, q.Category, q.MaxScore, q.Position, created); err != nil {
			return "", wrapErr("interview.create_question", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return "", wrapErr("interview.create", err)
	}
	return id, nil
}

// GetOwned loads the interview tree including the owner's answers.
func (r *InterviewRepo) GetOwned(ctx domain.Context, id, userID string) (domain.Interview, error) {
	ctx, span := startSpan(ctx, "interviews", "SELECT", "GetOwned")
	defer span.End()

	var iv domain.Interview
	row := r.Pool.QueryRow(ctx, `SELECT id, user_id, job_position, job_description, job_experience, difficulty_level, skills, created_at
	FROM interviews WHERE id=$1 AND user_id=$2`, id, userID)
	if err := row.Scan(&iv.ID, &iv.UserID, &iv.JobPosition, &iv.JobDescription, &iv.JobExperience, &iv.DifficultyLevel, &iv.Skills, &iv.CreatedAt); err != nil {
		return domain.Interview{}, wrapErr("interview.get", err)
	}

	questions, err := r.questionsWithAnswers(ctx, id, userID)
	if err != nil {
		return domain.Interview{}, err
	}
	followUps, err := r.followUpsWithAnswers(ctx, id, userID)
	if err != nil {
		return domain.Interview{}, err
	}
	for i := range questions {
		questions[i].FollowUps = followUps[questions[i].ID]
	}
	iv.Questions = questions
	iv.QuestionCount = len(questions)
	return iv, nil
}

const answerCols = `a.id, a.user_id, a.question_id, a.follow_up_question_id, a.text, a.media_ref, a.score, a.feedback, a.key_points, a.voice_tone, a.confidence, a.created_at, a.updated_at`

func (r *InterviewRepo) questionsWithAnswers(ctx context.Context, interviewID, userID string) ([]domain.Question, error) {
	rows, err := r.Pool.Query(ctx, `SELECT q.id, q.interview_id, q.text, q.category, q.max_score, q.position, q.created_at, `+answerCols+`
	FROM questions q
	LEFT JOIN answers a ON a.question_id = q.id AND a.user_id = $2
	WHERE q.interview_id = $1
	ORDER BY q.position, q.created_at`, interviewID, userID)
	if err != nil {
		return nil, wrapErr("interview.questions", err)
	}
	defer rows.Close()
	out := []domain.Question{}
	for rows.Next() {
		var q domain.Question
		var na nullableAnswer
		dest := append([]any{&q.ID, &q.InterviewID, &q.Text, &q.Category, &q.MaxScore, &q.Position, &q.CreatedAt}, na.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, wrapErr("interview.questions", err)
		}
		q.Answer, err = na.answer()
		if err != nil {
			return nil, wrapErr("interview.questions", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("interview.questions", err)
	}
	return out, nil
}

func (r *InterviewRepo) followUpsWithAnswers(ctx context.Context, interviewID, userID string) (map[string][]domain.FollowUpQuestion, error) {
	rows, err := r.Pool.Query(ctx, `SELECT f.id, f.main_question_id, f.text, f.category, f.max_score, f.created_at, `+answerCols+`
	FROM follow_up_questions f
	JOIN questions q ON q.id = f.main_question_id
	LEFT JOIN answers a ON a.follow_up_question_id = f.id AND a.user_id = $2
	WHERE q.interview_id = $1
	ORDER BY f.created_at, f.id`, interviewID, userID)
	if err != nil {
		return nil, wrapErr("interview.follow_ups", err)
	}
	defer rows.Close()
	out := map[string][]domain.FollowUpQuestion{}
	for rows.Next() {
		var f domain.FollowUpQuestion
		var na nullableAnswer
		dest := append([]any{&f.ID, &f.MainQuestionID, &f.Text, &f.Category, &f.MaxScore, &f.CreatedAt}, na.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, wrapErr("interview.follow_ups", err)
		}
		f.Answer, err = na.answer()
		if err != nil {
			return nil, wrapErr("interview.follow_ups", err)
		}
		out[f.MainQuestionID] = append(out[f.MainQuestionID], f)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("interview.follow_ups", err)
	}
	return out, nil
}

// ListOwned returns the owner's interviews newest first with question counts.
func (r *InterviewRepo) ListOwned(ctx domain.Context, userID string) ([]domain.Interview, error) {
	ctx, span := startSpan(ctx, "interviews", "SELECT", "ListOwned")
	defer span.End()

	rows, err := r.Pool.Query(ctx, `SELECT i.id, i.user_id, i.job_position, i.job_description, i.job_experience, i.difficulty_level, i.skills, i.created_at,
	(SELECT COUNT(*) FROM questions q WHERE q.interview_id = i.id)
	FROM interviews i WHERE i.user_id=$1 ORDER BY i.created_at DESC, i.id`, userID)
	if err != nil {
		return nil, wrapErr("interview.list", err)
	}
	defer rows.Close()
	out := []domain.Interview{}
	for rows.Next() {
		var iv domain.Interview
		if err := rows.Scan(&iv.ID, &iv.UserID, &iv.JobPosition, &iv.JobDescription, &iv.JobExperience, &iv.DifficultyLevel, &iv.Skills, &iv.CreatedAt, &iv.QuestionCount); err != nil {
			return nil, wrapErr("interview.list", err)
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("interview.list", err)
	}
	return out, nil
}

// DeleteOwned deletes the interview when owned by userID. Questions, follow-ups
// and answers go with it through ON DELETE CASCADE.
func (r *InterviewRepo) DeleteOwned(ctx domain.Context, id, userID string) (int64, error) {
	ctx, span := startSpan(ctx, "interviews", "DELETE", "DeleteOwned")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM interviews WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return 0, wrapErr("interview.delete", err)
	}
	return tag.RowsAffected(), nil
}

// nullableAnswer scans the LEFT JOINed answer columns.
type nullableAnswer struct {
	ID                 *string
	UserID             *string
	QuestionID         *string
	FollowUpQuestionID *string
	Text               *string
	MediaRef           *string
	Score              *int
	Feedback           *string
	KeyPoints          []byte
	VoiceTone          *string
	Confidence         *string
	CreatedAt          *time.Time
	UpdatedAt          *time.Time
}

func (n *nullableAnswer) dest() []any {
	return []any{&n.ID, &n.UserID, &n.QuestionID, &n.FollowUpQuestionID, &n.Text, &n.MediaRef, &n.Score, &n.Feedback, &n.KeyPoints, &n.VoiceTone, &n.Confidence, &n.CreatedAt, &n.UpdatedAt}
}

func (n *nullableAnswer) answer() (*domain.Answer, error) {
	if n.ID == nil {
		return nil, nil
	}
	a := domain.Answer{
		ID:                 *n.ID,
		QuestionID:         n.QuestionID,
		FollowUpQuestionID: n.FollowUpQuestionID,
		MediaRef:           n.MediaRef,
		VoiceTone:          n.VoiceTone,
		Confidence:         n.Confidence,
	}
	if n.UserID != nil {
		a.UserID = *n.UserID
	}
	if n.Text != nil {
		a.Text = *n.Text
	}
	if n.Score != nil {
		a.Score = *n.Score
	}
	if n.Feedback != nil {
		a.Feedback = *n.Feedback
	}
	if n.CreatedAt != nil {
		a.CreatedAt = *n.CreatedAt
	}
	if n.UpdatedAt != nil {
		a.UpdatedAt = *n.UpdatedAt
	}
	kp, err := decodeKeyPoints(n.KeyPoints)
	if err != nil {
		return nil, err
	}
	a.KeyPoints = kp
	return &a, nil
}

func decodeKeyPoints(raw []byte) (map[string]bool, error) {
	out := map[string]bool{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode key_points: %w", err)
	}
	return out, nil
}

func encodeKeyPoints(kp map[string]bool) (string, error) {
	if kp == nil {
		return "{}", nil
	}
	b, err := json.Marshal(kp)
	if err != nil {
		return "", fmt.Errorf("encode key_points: %w", err)
	}
	return string(b), nil
}
