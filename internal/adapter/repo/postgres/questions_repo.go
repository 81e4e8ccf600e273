package postgres

import (
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
)

// QuestionRepo loads questions for evaluation and stores follow-ups.
type QuestionRepo struct{ Pool PgxPool }

// NewQuestionRepo constructs a QuestionRepo with the given pool.
func NewQuestionRepo(p PgxPool) *QuestionRepo { return &QuestionRepo{Pool: p} }

// GetForEvaluation loads a main question scoped to interviews owned by userID.
func (r *QuestionRepo) GetForEvaluation(ctx domain.Context, questionID, userID string) (domain.Question, error) {
	ctx, span := startSpan(ctx, "questions", "SELECT", "GetForEvaluation")
	defer span.End()

	var q domain.Question
	var iv domain.Interview
	row := r.Pool.QueryRow(ctx, `SELECT q.id, q.interview_id, q.text, q.category, q.max_score, q.position, q.created_at,
	i.id, i.user_id, i.job_position, i.job_description, i.job_experience, i.difficulty_level, i.created_at
	FROM questions q JOIN interviews i ON i.id = q.interview_id
	WHERE q.id=$1 AND i.user_id=$2`, questionID, userID)
	if err := row.Scan(&q.ID, &q.InterviewID, &q.Text, &q.Category, &q.MaxScore, &q.Position, &q.CreatedAt,
		&iv.ID, &iv.UserID, &iv.JobPosition, &iv.JobDescription, &iv.JobExperience, &iv.DifficultyLevel, &iv.CreatedAt); err != nil {
		return domain.Question{}, wrapErr("question.get", err)
	}
	q.Interview = &iv

	rows, err := r.Pool.Query(ctx, `SELECT id, main_question_id, text, category, max_score, created_at
	FROM follow_up_questions WHERE main_question_id=$1 ORDER BY created_at, id`, q.ID)
	if err != nil {
		return domain.Question{}, wrapErr("question.follow_ups", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f domain.FollowUpQuestion
		if err := rows.Scan(&f.ID, &f.MainQuestionID, &f.Text, &f.Category, &f.MaxScore, &f.CreatedAt); err != nil {
			return domain.Question{}, wrapErr("question.follow_ups", err)
		}
		q.FollowUps = append(q.FollowUps, f)
	}
	if err := rows.Err(); err != nil {
		return domain.Question{}, wrapErr("question.follow_ups", err)
	}
	return q, nil
}

// GetFollowUpForEvaluation loads a follow-up with its main question and interview.
func (r *QuestionRepo) GetFollowUpForEvaluation(ctx domain.Context, followUpID, userID string) (domain.FollowUpQuestion, error) {
	ctx, span := startSpan(ctx, "follow_up_questions", "SELECT", "GetForEvaluation")
	defer span.End()

	var f domain.FollowUpQuestion
	var q domain.Question
	var iv domain.Interview
	row := r.Pool.QueryRow(ctx, `SELECT f.id, f.main_question_id, f.text, f.category, f.max_score, f.created_at,
	q.id, q.interview_id, q.text, q.category, q.max_score, q.position,
	i.id, i.user_id, i.job_position, i.job_description
	FROM follow_up_questions f
	JOIN questions q ON q.id = f.main_question_id
	JOIN interviews i ON i.id = q.interview_id
	WHERE f.id=$1 AND i.user_id=$2`, followUpID, userID)
	if err := row.Scan(&f.ID, &f.MainQuestionID, &f.Text, &f.Category, &f.MaxScore, &f.CreatedAt,
		&q.ID, &q.InterviewID, &q.Text, &q.Category, &q.MaxScore, &q.Position,
		&iv.ID, &iv.UserID, &iv.JobPosition, &iv.JobDescription); err != nil {
		return domain.FollowUpQuestion{}, wrapErr("follow_up.get", err)
	}
	q.Interview = &iv
	f.MainQuestion = &q
	return f, nil
}

// CreateFollowUp stores a new follow-up question and returns it with its id.
func (r *QuestionRepo) CreateFollowUp(ctx domain.Context, f domain.FollowUpQuestion) (domain.FollowUpQuestion, error) {
	ctx, span := startSpan(ctx, "follow_up_questions", "INSERT", "Create")
	defer span.End()

	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := r.Pool.Exec(ctx, `INSERT INTO follow_up_questions (id, main_question_id, text, category, max_score, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		f.ID, f.MainQuestionID, f.Text, f.Category, f.MaxScore, f.CreatedAt)
	if err != nil {
		return domain.FollowUpQuestion{}, wrapErr("follow_up.create", err)
	}
	return f, nil
}
