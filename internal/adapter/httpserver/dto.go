package httpserver

import (
	"time"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
)

type mainAnswerRequest struct {
	QuestionID string  `json:"questionId" validate:"required,max=64"`
	AnswerText string  `json:"answerText" validate:"required,max=20000"`
	MediaRef   *string `json:"mediaRef,omitempty" validate:"omitempty,max=512"`
}

type followUpAnswerRequest struct {
	FollowUpQuestionID string  `json:"followUpQuestionId" validate:"required,max=64"`
	AnswerText         string  `json:"answerText" validate:"required,max=20000"`
	MediaRef           *string `json:"mediaRef,omitempty" validate:"omitempty,max=512"`
}

type createInterviewRequest struct {
	JobPosition     string   `json:"jobPosition" validate:"required,max=200"`
	JobDescription  string   `json:"jobDescription" validate:"required,max=10000"`
	Skills          []string `json:"skills" validate:"max=50,dive,max=100"`
	JobExperience   int      `json:"jobExperience" validate:"min=0,max=60"`
	DifficultyLevel string   `json:"difficultyLevel" validate:"max=50"`
	TotalQuestions  int      `json:"totalQuestions" validate:"min=0,max=20"`
}

type analysisDTO struct {
	Score            int      `json:"score"`
	MaxScore         int      `json:"maxScore"`
	Feedback         string   `json:"feedback"`
	MatchedKeyPoints []string `json:"matchedKeyPoints"`
	VoiceTone        *string  `json:"voiceTone"`
	Confidence       *string  `json:"confidence"`
	FallbackUsed     bool     `json:"fallbackUsed"`
}

type answerDTO struct {
	ID                 string          `json:"id"`
	QuestionID         *string         `json:"questionId,omitempty"`
	FollowUpQuestionID *string         `json:"followUpQuestionId,omitempty"`
	AnswerText         string          `json:"answerText"`
	MediaRef           *string         `json:"mediaRef"`
	Score              int             `json:"score"`
	Feedback           string          `json:"feedback"`
	KeyPoints          map[string]bool `json:"keyPoints"`
	VoiceTone          *string         `json:"voiceTone"`
	Confidence         *string         `json:"confidence"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

type followUpDTO struct {
	ID             string     `json:"id"`
	MainQuestionID string     `json:"mainQuestionId"`
	Text           string     `json:"text"`
	Category       string     `json:"category"`
	MaxScore       int        `json:"maxScore"`
	CreatedAt      time.Time  `json:"createdAt"`
	Answer         *answerDTO `json:"answer,omitempty"`
}

type questionDTO struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Category  string        `json:"category"`
	MaxScore  int           `json:"maxScore"`
	Position  int           `json:"position"`
	CreatedAt time.Time     `json:"createdAt"`
	FollowUps []followUpDTO `json:"followUps"`
	Answer    *answerDTO    `json:"answer,omitempty"`
}

type interviewDTO struct {
	ID              string        `json:"id"`
	JobPosition     string        `json:"jobPosition"`
	JobDescription  string        `json:"jobDescription"`
	JobExperience   int           `json:"jobExperience"`
	DifficultyLevel string        `json:"difficultyLevel"`
	Skills          []string      `json:"skills"`
	CreatedAt       time.Time     `json:"createdAt"`
	QuestionCount   int           `json:"questionCount"`
	Questions       []questionDTO `json:"questions,omitempty"`
}

type mediaDTO struct {
	MediaRef    string `json:"mediaRef"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

func toAnswerDTO(a *domain.Answer) *answerDTO {
	if a == nil {
		return nil
	}
	kp := a.KeyPoints
	if kp == nil {
		kp = map[string]bool{}
	}
	return &answerDTO{
		ID:                 a.ID,
		QuestionID:         a.QuestionID,
		FollowUpQuestionID: a.FollowUpQuestionID,
		AnswerText:         a.Text,
		MediaRef:           a.MediaRef,
		Score:              a.Score,
		Feedback:           a.Feedback,
		KeyPoints:          kp,
		VoiceTone:          a.VoiceTone,
		Confidence:         a.Confidence,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

func toAnalysisDTO(a domain.AnalysisResult, maxScore int, fallback bool) analysisDTO {
	kp := a.MatchedKeyPoints
	if kp == nil {
		kp = []string{}
	}
	return analysisDTO{
		Score:            a.Score,
		MaxScore:         maxScore,
		Feedback:         a.Feedback,
		MatchedKeyPoints: kp,
		VoiceTone:        a.VoiceTone,
		Confidence:       a.Confidence,
		FallbackUsed:     fallback,
	}
}

func toFollowUpDTO(f domain.FollowUpQuestion) followUpDTO {
	return followUpDTO{
		ID:             f.ID,
		MainQuestionID: f.MainQuestionID,
		Text:           f.Text,
		Category:       f.Category,
		MaxScore:       f.EffectiveMaxScore(),
		CreatedAt:      f.CreatedAt,
		Answer:         toAnswerDTO(f.Answer),
	}
}

func toInterviewDTO(iv domain.Interview) interviewDTO {
	out := interviewDTO{
		ID:              iv.ID,
		JobPosition:     iv.JobPosition,
		JobDescription:  iv.JobDescription,
		JobExperience:   iv.JobExperience,
		DifficultyLevel: iv.DifficultyLevel,
		Skills:          iv.Skills,
		CreatedAt:       iv.CreatedAt,
		QuestionCount:   iv.QuestionCount,
	}
	if out.Skills == nil {
		out.Skills = []string{}
	}
	if len(iv.Questions) > 0 {
		out.QuestionCount = len(iv.Questions)
		out.Questions = make([]questionDTO, 0, len(iv.Questions))
	}
	for _, q := range iv.Questions {
		qd := questionDTO{
			ID:        q.ID,
			Text:      q.Text,
			Category:  q.Category,
			MaxScore:  q.EffectiveMaxScore(),
			Position:  q.Position,
			CreatedAt: q.CreatedAt,
			FollowUps: make([]followUpDTO, 0, len(q.FollowUps)),
			Answer:    toAnswerDTO(q.Answer),
		}
		for _, f := range q.FollowUps {
			qd.FollowUps = append(qd.FollowUps, toFollowUpDTO(f))
		}
		out.Questions = append(out.Questions, qd)
	}
	return out
}
