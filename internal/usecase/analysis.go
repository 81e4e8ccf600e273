package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
	"github.com/fairyhunter13/ai-mock-interview/internal/observability"
	"github.com/fairyhunter13/ai-mock-interview/pkg/textx"
)

// maxPromptFieldRunes bounds user-supplied text embedded in prompts.
const maxPromptFieldRunes = 6000

const analysisSystemPrompt = `You are an experienced interviewer grading a candidate's answer.
Reply in plain text using exactly these labeled lines and nothing else first:
Score: <integer>
Feedback: <one or two sentences, no bullet points>
Key Points: <comma separated list of points the answer covered>
Voice Tone: <one word, or "n/a">
Confidence: <low, medium or high>
After those lines you may add Strengths: and Areas of Improvement: sections.`

const followUpSystemPrompt = `You are an experienced interviewer. Reply with exactly one follow-up question and nothing else.`

const questionsSystemPrompt = `You are an HR interviewer preparing a mock interview. Reply with JSON only.`

// ErrNoAnalysis reports that the model produced nothing usable.
var ErrNoAnalysis = errors.New("no analysis available")

// AnalysisService wraps the language model. It is safe for concurrent use.
// Every call is a single attempt bounded by Timeout.
type AnalysisService struct {
	AI        domain.AIClient
	Quota     domain.QuotaLimiter
	Timeout   time.Duration
	MaxTokens int
}

// NewAnalysisService constructs an AnalysisService. quota may be nil.
func NewAnalysisService(ai domain.AIClient, quota domain.QuotaLimiter, timeout time.Duration, maxTokens int) AnalysisService {
	return AnalysisService{AI: ai, Quota: quota, Timeout: timeout, MaxTokens: maxTokens}
}

// AnalyzeAnswer returns the raw evaluation text, or nil on any failure.
func (s AnalysisService) AnalyzeAnswer(ctx domain.Context, question, answer string, maxScore int, additionalContext string) *string {
	return s.call(ctx, "analyze", analysisSystemPrompt, buildAnalysisPrompt(question, answer, maxScore, additionalContext))
}

// GenerateFollowUp returns one follow-up question, or nil on any failure.
func (s AnalysisService) GenerateFollowUp(ctx domain.Context, mainQuestion, answer, additionalContext string) *string {
	out := s.call(ctx, "followup", followUpSystemPrompt, buildFollowUpPrompt(mainQuestion, answer, additionalContext))
	if out == nil {
		return nil
	}
	q := strings.TrimSpace(strings.Trim(strings.TrimSpace(*out), `"`))
	if q == "" {
		return nil
	}
	return &q
}

// QuestionPlan describes the interview to generate questions for.
type QuestionPlan struct {
	JobPosition     string
	JobDescription  string
	Skills          []string
	JobExperience   int
	DifficultyLevel string
	Count           int
}

// GeneratedQuestion is one model-proposed main question.
type GeneratedQuestion struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	MaxScore int    `json:"maxScore"`
}

// GenerateQuestions asks the model for plan.Count HR questions.
// It returns ErrNoAnalysis when the model is unavailable or returns nothing usable.
func (s AnalysisService) GenerateQuestions(ctx domain.Context, plan QuestionPlan) ([]GeneratedQuestion, error) {
	if s.AI == nil {
		return nil, ErrNoAnalysis
	}
	if !s.allow(ctx, "questions") {
		return nil, ErrNoAnalysis
	}
	cctx, cancel := s.withTimeout(ctx)
	defer cancel()
	raw, err := s.AI.ChatJSON(cctx, questionsSystemPrompt, buildQuestionsPrompt(plan), s.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("op=analysis.GenerateQuestions: %w", err)
	}
	var payload struct {
		Questions []GeneratedQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("op=analysis.GenerateQuestions: decode: %w", err)
	}
	out := make([]GeneratedQuestion, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" {
			continue
		}
		q.Category = domain.CategoryHR
		if q.MaxScore <= 0 {
			q.MaxScore = domain.DefaultMaxScore
		}
		out = append(out, q)
		if plan.Count > 0 && len(out) == plan.Count {
			break
		}
	}
	if len(out) == 0 {
		return nil, ErrNoAnalysis
	}
	return out, nil
}

func (s AnalysisService) call(ctx domain.Context, op, system, user string) *string {
	lg := observability.LoggerFromContext(ctx)
	if s.AI == nil {
		return nil
	}
	if !s.allow(ctx, op) {
		return nil
	}
	cctx, cancel := s.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	out, err := s.AI.ChatText(cctx, system, user, s.MaxTokens)
	if err != nil {
		lg.Warn("ai call failed", slog.String("op", op), slog.Duration("elapsed", time.Since(start)), slog.Any("error", err))
		return nil
	}
	if strings.TrimSpace(out) == "" {
		lg.Warn("ai returned empty text", slog.String("op", op))
		return nil
	}
	lg.Debug("ai call completed", slog.String("op", op), slog.Duration("elapsed", time.Since(start)), slog.Int("chars", len(out)))
	return &out
}

// allow consumes one unit of the caller's quota. The limiter fails open.
func (s AnalysisService) allow(ctx domain.Context, op string) bool {
	if s.Quota == nil {
		return true
	}
	key := "ai:" + observability.UserIDFromContext(ctx)
	ok, retryAfter, err := s.Quota.Allow(ctx, key, 1)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("ai quota check failed", slog.String("op", op), slog.Any("error", err))
		return true
	}
	if !ok {
		observability.LoggerFromContext(ctx).Info("ai quota exhausted", slog.String("op", op), slog.Duration("retry_after", retryAfter))
	}
	return ok
}

func (s AnalysisService) withTimeout(ctx domain.Context) (domain.Context, func()) {
	if s.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.Timeout)
}

func buildAnalysisPrompt(question, answer string, maxScore int, additionalContext string) string {
	var b strings.Builder
	b.WriteString("Analyze this interview answer:\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	if c := strings.TrimSpace(additionalContext); c != "" {
		fmt.Fprintf(&b, "Context: %s\n", c)
	}
	fmt.Fprintf(&b, "Candidate's Answer: %s\n\n", textx.TruncateRunes(answer, maxPromptFieldRunes))
	b.WriteString("Provide a detailed evaluation with:\n")
	fmt.Fprintf(&b, "- Numerical Score (out of %d)\n", maxScore)
	b.WriteString("- Concise, Constructive Feedback\n")
	b.WriteString("- Key Points Covered\n")
	b.WriteString("- Strengths and Areas of Improvement")
	return b.String()
}

func buildFollowUpPrompt(mainQuestion, answer, additionalContext string) string {
	var b strings.Builder
	b.WriteString("Create an insightful follow-up question based on:\n")
	fmt.Fprintf(&b, "Original Question: %s\n", mainQuestion)
	fmt.Fprintf(&b, "Candidate's Answer: %s\n", textx.TruncateRunes(answer, maxPromptFieldRunes))
	if c := strings.TrimSpace(additionalContext); c != "" {
		fmt.Fprintf(&b, "Additional Context: %s\n", c)
	}
	b.WriteString("\nGuidelines:\n")
	b.WriteString("- Be specific and probing\n")
	b.WriteString("- Aim for deeper understanding\n")
	b.WriteString("- Encourage more detailed explanation")
	return b.String()
}

func buildQuestionsPrompt(p QuestionPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d HR interview questions for the position %q.\n", p.Count, p.JobPosition)
	if d := strings.TrimSpace(p.JobDescription); d != "" {
		fmt.Fprintf(&b, "Job description: %s\n", textx.TruncateRunes(d, maxPromptFieldRunes))
	}
	if len(p.Skills) > 0 {
		fmt.Fprintf(&b, "Skills: %s\n", strings.Join(p.Skills, ", "))
	}
	fmt.Fprintf(&b, "Years of experience: %d\n", p.JobExperience)
	if p.DifficultyLevel != "" {
		fmt.Fprintf(&b, "Difficulty: %s\n", p.DifficultyLevel)
	}
	b.WriteString(`Return {"questions":[{"text":"...","category":"HR","maxScore":10}]}`)
	return b.String()
}
