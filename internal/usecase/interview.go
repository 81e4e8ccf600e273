package usecase

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
	"github.com/fairyhunter13/ai-mock-interview/internal/observability"
)

const (
	defaultTotalQuestions = 5
	maxTotalQuestions     = 20
)

// QuestionGenerator proposes main questions for a new interview.
type QuestionGenerator interface {
	GenerateQuestions(ctx domain.Context, plan QuestionPlan) ([]GeneratedQuestion, error)
}

// InterviewService manages interviews owned by the caller.
type InterviewService struct {
	Interviews domain.InterviewRepository
	Generator  QuestionGenerator
	// Fallback supplies questions when generation fails.
	Fallback func(n int, skills []string) []GeneratedQuestion
}

// NewInterviewService constructs an InterviewService.
func NewInterviewService(r domain.InterviewRepository, g QuestionGenerator, fallback func(n int, skills []string) []GeneratedQuestion) InterviewService {
	return InterviewService{Interviews: r, Generator: g, Fallback: fallback}
}

// CreateInterviewInput describes a new HR interview round.
type CreateInterviewInput struct {
	JobPosition     string
	JobDescription  string
	Skills          []string
	JobExperience   int
	DifficultyLevel string
	TotalQuestions  int
}

// Create stores a new interview with generated questions and returns it.
func (s InterviewService) Create(ctx domain.Context, userID string, in CreateInterviewInput) (domain.Interview, error) {
	if userID == "" {
		return domain.Interview{}, fmt.Errorf("op=interview.Create: %w", domain.ErrUnauthenticated)
	}
	in.JobPosition = strings.TrimSpace(in.JobPosition)
	in.JobDescription = strings.TrimSpace(in.JobDescription)
	if in.JobPosition == "" || in.JobDescription == "" {
		return domain.Interview{}, fmt.Errorf("%w: jobPosition and jobDescription required", domain.ErrInvalidArgument)
	}
	if in.JobExperience < 0 {
		return domain.Interview{}, fmt.Errorf("%w: jobExperience must be >= 0", domain.ErrInvalidArgument)
	}
	if in.TotalQuestions <= 0 {
		in.TotalQuestions = defaultTotalQuestions
	}
	if in.TotalQuestions > maxTotalQuestions {
		return domain.Interview{}, fmt.Errorf("%w: totalQuestions must be <= %d", domain.ErrInvalidArgument, maxTotalQuestions)
	}
	skills := cleanSkills(in.Skills)
	lg := observability.LoggerFromContext(ctx)

	plan := QuestionPlan{
		JobPosition:     in.JobPosition,
		JobDescription:  in.JobDescription,
		Skills:          skills,
		JobExperience:   in.JobExperience,
		DifficultyLevel: in.DifficultyLevel,
		Count:           in.TotalQuestions,
	}
	var generated []GeneratedQuestion
	if s.Generator != nil {
		qs, err := s.Generator.GenerateQuestions(ctx, plan)
		if err != nil {
			lg.Warn("question generation failed, using question bank", slog.Any("error", err))
		}
		generated = qs
	}
	if len(generated) == 0 && s.Fallback != nil {
		generated = s.Fallback(in.TotalQuestions, skills)
	}
	if len(generated) == 0 {
		return domain.Interview{}, fmt.Errorf("op=interview.Create: %w: no questions available", domain.ErrInternal)
	}

	iv := domain.Interview{
		UserID:          userID,
		JobPosition:     in.JobPosition,
		JobDescription:  in.JobDescription,
		JobExperience:   in.JobExperience,
		DifficultyLevel: in.DifficultyLevel,
		Skills:          skills,
		CreatedAt:       time.Now().UTC(),
	}
	for i, g := range generated {
		iv.Questions = append(iv.Questions, domain.Question{
			Text:     g.Text,
			Category: g.Category,
			MaxScore: g.MaxScore,
			Position: i,
		})
	}
	id, err := s.Interviews.Create(ctx, iv)
	if err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.Create: %w: %w", domain.ErrPersistence, err)
	}
	lg.Info("interview created", slog.String("interview_id", id), slog.Int("questions", len(iv.Questions)))
	return s.Interviews.GetOwned(ctx, id, userID)
}

// Get returns the caller's interview with questions, follow-ups and answers.
func (s InterviewService) Get(ctx domain.Context, id, userID string) (domain.Interview, error) {
	if userID == "" {
		return domain.Interview{}, fmt.Errorf("op=interview.Get: %w", domain.ErrUnauthenticated)
	}
	if strings.TrimSpace(id) == "" {
		return domain.Interview{}, fmt.Errorf("%w: id required", domain.ErrInvalidArgument)
	}
	iv, err := s.Interviews.GetOwned(ctx, id, userID)
	if err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.Get: %w", err)
	}
	return iv, nil
}

// List returns the caller's interviews newest first.
func (s InterviewService) List(ctx domain.Context, userID string) ([]domain.Interview, error) {
	if userID == "" {
		return nil, fmt.Errorf("op=interview.List: %w", domain.ErrUnauthenticated)
	}
	out, err := s.Interviews.ListOwned(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("op=interview.List: %w", err)
	}
	return out, nil
}

// Delete removes the caller's interview. Deleting a missing id succeeds.
func (s InterviewService) Delete(ctx domain.Context, id, userID string) error {
	if userID == "" {
		return fmt.Errorf("op=interview.Delete: %w", domain.ErrUnauthenticated)
	}
	n, err := s.Interviews.DeleteOwned(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("op=interview.Delete: %w", err)
	}
	observability.LoggerFromContext(ctx).Info("interview deleted", slog.String("interview_id", id), slog.Int64("rows", n))
	return nil
}

func cleanSkills(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			key := strings.ToLower(part)
			if part == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}
