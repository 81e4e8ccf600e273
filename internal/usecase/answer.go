package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
	"github.com/fairyhunter13/ai-mock-interview/internal/observability"
	"github.com/fairyhunter13/ai-mock-interview/pkg/textx"
)

// Follow-up outcomes reported on MainAnswerResult.FollowUpSource.
const (
	FollowUpNone        = "none"
	FollowUpReused      = "reused"
	FollowUpGenerated   = "generated"
	FollowUpUnavailable = "unavailable"
)

// Analyzer is the subset of AnalysisService the answer workflow needs.
type Analyzer interface {
	AnalyzeAnswer(ctx domain.Context, question, answer string, maxScore int, additionalContext string) *string
	GenerateFollowUp(ctx domain.Context, mainQuestion, answer, additionalContext string) *string
}

// AnswerService evaluates and persists answers. It holds no session state;
// the next prompt a client shows is derived from the returned result.
type AnswerService struct {
	Questions domain.QuestionRepository
	Answers   domain.AnswerRepository
	Analysis  Analyzer
	Events    domain.EventPublisher
	Now       func() time.Time
}

// NewAnswerService constructs an AnswerService. events may be nil.
func NewAnswerService(q domain.QuestionRepository, a domain.AnswerRepository, an Analyzer, events domain.EventPublisher) AnswerService {
	return AnswerService{Questions: q, Answers: a, Analysis: an, Events: events, Now: func() time.Time { return time.Now().UTC() }}
}

// MainAnswerInput is a submission for a main question.
type MainAnswerInput struct {
	QuestionID string
	AnswerText string
	MediaRef   *string
}

// FollowUpAnswerInput is a submission for a follow-up question.
type FollowUpAnswerInput struct {
	FollowUpQuestionID string
	AnswerText         string
	MediaRef           *string
}

// MainAnswerResult is the outcome of SubmitMain.
type MainAnswerResult struct {
	Answer              domain.Answer
	Analysis            domain.AnalysisResult
	MaxScore            int
	NextQuestion        *domain.FollowUpQuestion
	EligibleForFollowUp bool
	FollowUpSource      string
	FallbackUsed        bool
}

// FollowUpAnswerResult is the outcome of SubmitFollowUp.
type FollowUpAnswerResult struct {
	Answer       domain.Answer
	Analysis     domain.AnalysisResult
	MaxScore     int
	FallbackUsed bool
}

// SubmitMain evaluates an answer to a main question, stores it, and decides
// whether a follow-up question should be offered.
func (s AnswerService) SubmitMain(ctx domain.Context, userID string, in MainAnswerInput) (MainAnswerResult, error) {
	if userID == "" {
		return MainAnswerResult{}, fmt.Errorf("op=answer.SubmitMain: %w", domain.ErrUnauthenticated)
	}
	in.AnswerText = textx.SanitizeText(in.AnswerText)
	if strings.TrimSpace(in.QuestionID) == "" || strings.TrimSpace(in.AnswerText) == "" {
		return MainAnswerResult{}, fmt.Errorf("%w: missing required fields", domain.ErrInvalidArgument)
	}
	lg := observability.LoggerFromContext(ctx).With(slog.String("question_id", in.QuestionID))

	q, err := s.Questions.GetForEvaluation(ctx, in.QuestionID, userID)
	if err != nil {
		return MainAnswerResult{}, fmt.Errorf("op=answer.SubmitMain: %w", err)
	}
	jobDesc := interviewContext(q.Interview)
	maxScore := q.EffectiveMaxScore()

	raw := s.Analysis.AnalyzeAnswer(ctx, q.Text, in.AnswerText, maxScore, jobDesc)
	analysis := ParseAnalysis(raw, maxScore)
	if raw == nil {
		lg.Warn("analysis unavailable, using fallback score", slog.Int("score", analysis.Score))
	}

	if prev, err := s.Answers.FindForQuestion(ctx, q.ID, userID); err == nil {
		lg.Info("replacing existing answer", slog.String("answer_id", prev.ID), slog.Int("previous_score", prev.Score))
	} else if !errors.Is(err, domain.ErrNotFound) {
		lg.Warn("prior answer lookup failed", slog.Any("error", err))
	}

	qid := q.ID
	saved, err := s.Answers.UpsertMain(ctx, domain.Answer{
		UserID:     userID,
		QuestionID: &qid,
		Text:       in.AnswerText,
		MediaRef:   normalizeRef(in.MediaRef),
		Score:      analysis.Score,
		Feedback:   analysis.Feedback,
		KeyPoints:  analysis.KeyPointSet(),
		VoiceTone:  analysis.VoiceTone,
		Confidence: analysis.Confidence,
	})
	if err != nil {
		lg.Error("failed to save answer", slog.Any("error", err))
		return MainAnswerResult{}, fmt.Errorf("op=answer.SubmitMain: %w: %w", domain.ErrPersistence, err)
	}

	res := MainAnswerResult{
		Answer:              saved,
		Analysis:            analysis,
		MaxScore:            maxScore,
		EligibleForFollowUp: domain.EligibleForFollowUp(analysis.Score, maxScore),
		FollowUpSource:      FollowUpNone,
		FallbackUsed:        raw == nil,
	}
	if res.EligibleForFollowUp {
		next, source, err := s.followUpFor(ctx, q, in.AnswerText, jobDesc)
		if err != nil {
			lg.Error("failed to save follow-up question", slog.Any("error", err))
			return MainAnswerResult{}, fmt.Errorf("op=answer.SubmitMain: %w: %w", domain.ErrPersistence, err)
		}
		res.NextQuestion = next
		res.FollowUpSource = source
	}

	s.publish(ctx, domain.AnswerEvaluatedEvent{
		AnswerID:            saved.ID,
		UserID:              userID,
		InterviewID:         q.InterviewID,
		QuestionID:          q.ID,
		Score:               analysis.Score,
		MaxScore:            maxScore,
		EligibleForFollowUp: res.EligibleForFollowUp,
		FallbackUsed:        res.FallbackUsed,
	})
	lg.Info("answer evaluated",
		slog.Int("score", analysis.Score),
		slog.Int("max_score", maxScore),
		slog.Bool("eligible_for_follow_up", res.EligibleForFollowUp),
		slog.String("follow_up", res.FollowUpSource))
	return res, nil
}

// followUpFor reuses the first existing follow-up or generates a new one.
// A nil question with FollowUpUnavailable means generation failed.
func (s AnswerService) followUpFor(ctx domain.Context, q domain.Question, answer, jobDesc string) (*domain.FollowUpQuestion, string, error) {
	if len(q.FollowUps) > 0 {
		f := q.FollowUps[0]
		return &f, FollowUpReused, nil
	}
	text := s.Analysis.GenerateFollowUp(ctx, q.Text, answer, jobDesc)
	if text == nil {
		return nil, FollowUpUnavailable, nil
	}
	created, err := s.Questions.CreateFollowUp(ctx, domain.FollowUpQuestion{
		MainQuestionID: q.ID,
		Text:           *text,
		Category:       q.Category,
		MaxScore:       domain.FollowUpMaxScore(q.EffectiveMaxScore()),
	})
	if err != nil {
		return nil, "", err
	}
	return &created, FollowUpGenerated, nil
}

// SubmitFollowUp evaluates an answer to a follow-up question. Resubmission
// overwrites the previous evaluation; follow-ups never chain.
func (s AnswerService) SubmitFollowUp(ctx domain.Context, userID string, in FollowUpAnswerInput) (FollowUpAnswerResult, error) {
	if userID == "" {
		return FollowUpAnswerResult{}, fmt.Errorf("op=answer.SubmitFollowUp: %w", domain.ErrUnauthenticated)
	}
	in.AnswerText = textx.SanitizeText(in.AnswerText)
	if strings.TrimSpace(in.FollowUpQuestionID) == "" || strings.TrimSpace(in.AnswerText) == "" {
		return FollowUpAnswerResult{}, fmt.Errorf("%w: missing required fields", domain.ErrInvalidArgument)
	}
	lg := observability.LoggerFromContext(ctx).With(slog.String("follow_up_question_id", in.FollowUpQuestionID))

	f, err := s.Questions.GetFollowUpForEvaluation(ctx, in.FollowUpQuestionID, userID)
	if err != nil {
		return FollowUpAnswerResult{}, fmt.Errorf("op=answer.SubmitFollowUp: %w", err)
	}
	maxScore := f.EffectiveMaxScore()
	var interviewID, addl string
	if f.MainQuestion != nil {
		interviewID = f.MainQuestion.InterviewID
		addl = "Follow-up to: " + f.MainQuestion.Text
		if jd := interviewContext(f.MainQuestion.Interview); jd != "" {
			addl += "\nJob description: " + jd
		}
	}

	raw := s.Analysis.AnalyzeAnswer(ctx, f.Text, in.AnswerText, maxScore, addl)
	analysis := ParseAnalysis(raw, maxScore)
	if raw == nil {
		lg.Warn("analysis unavailable, using fallback score", slog.Int("score", analysis.Score))
	}

	fid := f.ID
	saved, err := s.Answers.UpsertFollowUp(ctx, domain.Answer{
		UserID:             userID,
		FollowUpQuestionID: &fid,
		Text:               in.AnswerText,
		MediaRef:           normalizeRef(in.MediaRef),
		Score:              analysis.Score,
		Feedback:           analysis.Feedback,
		KeyPoints:          analysis.KeyPointSet(),
		VoiceTone:          analysis.VoiceTone,
		Confidence:         analysis.Confidence,
	})
	if err != nil {
		lg.Error("failed to save follow-up answer", slog.Any("error", err))
		return FollowUpAnswerResult{}, fmt.Errorf("op=answer.SubmitFollowUp: %w: %w", domain.ErrPersistence, err)
	}

	s.publish(ctx, domain.AnswerEvaluatedEvent{
		AnswerID:           saved.ID,
		UserID:             userID,
		InterviewID:        interviewID,
		FollowUpQuestionID: f.ID,
		Score:              analysis.Score,
		MaxScore:           maxScore,
		FallbackUsed:       raw == nil,
	})
	lg.Info("follow-up answer evaluated", slog.Int("score", analysis.Score), slog.Int("max_score", maxScore))
	return FollowUpAnswerResult{Answer: saved, Analysis: analysis, MaxScore: maxScore, FallbackUsed: raw == nil}, nil
}

func (s AnswerService) publish(ctx domain.Context, ev domain.AnswerEvaluatedEvent) {
	if s.Events == nil {
		return
	}
	if s.Now != nil {
		ev.EvaluatedAt = s.Now()
	} else {
		ev.EvaluatedAt = time.Now().UTC()
	}
	if err := s.Events.PublishAnswerEvaluated(ctx, ev); err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to publish answer event", slog.String("answer_id", ev.AnswerID), slog.Any("error", err))
	}
}

func interviewContext(iv *domain.Interview) string {
	if iv == nil {
		return ""
	}
	return strings.TrimSpace(iv.JobDescription)
}

func normalizeRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	v := strings.TrimSpace(*ref)
	if v == "" {
		return nil
	}
	return &v
}
