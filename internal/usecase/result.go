package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
)

// Result item kinds
const (
	ItemMain     = "main"
	ItemFollowUp = "followUp"
)

// InterviewResults is the aggregate score of one interview for one user.
type InterviewResults struct {
	InterviewID   string       `json:"interviewId"`
	JobPosition   string       `json:"jobPosition"`
	TotalScore    int          `json:"totalScore"`
	MaxScore      int          `json:"maxScore"`
	Percentage    int          `json:"percentage"`
	Passed        bool         `json:"passed"`
	AnsweredCount int          `json:"answeredCount"`
	QuestionCount int          `json:"questionCount"`
	Items         []ResultItem `json:"items"`
}

// ResultItem is one answered question in the breakdown.
type ResultItem struct {
	Kind               string   `json:"kind"`
	QuestionID         string   `json:"questionId"`
	FollowUpQuestionID string   `json:"followUpQuestionId,omitempty"`
	Question           string   `json:"question"`
	Category           string   `json:"category"`
	Answer             string   `json:"answer"`
	Score              int      `json:"score"`
	MaxScore           int      `json:"maxScore"`
	Feedback           string   `json:"feedback"`
	KeyPoints          []string `json:"keyPoints"`
}

// ResultService provides read access to interview results and handles
// conditional responses based on ETag.
type ResultService struct {
	Interviews domain.InterviewRepository
}

// NewResultService constructs a ResultService with the given repository.
func NewResultService(r domain.InterviewRepository) ResultService {
	return ResultService{Interviews: r}
}

// Results loads the caller's interview and aggregates its answers.
func (s ResultService) Results(ctx domain.Context, interviewID, userID string) (InterviewResults, error) {
	if userID == "" {
		return InterviewResults{}, fmt.Errorf("op=result.Results: %w", domain.ErrUnauthenticated)
	}
	iv, err := s.Interviews.GetOwned(ctx, interviewID, userID)
	if err != nil {
		return InterviewResults{}, fmt.Errorf("op=result.Results: %w", err)
	}
	return Aggregate(iv), nil
}

// Fetch returns the HTTP status code, results, and ETag for the interview.
// It answers 304 Not Modified when ifNoneMatch equals the current ETag.
func (s ResultService) Fetch(ctx domain.Context, interviewID, userID, ifNoneMatch string) (int, InterviewResults, string, error) {
	res, err := s.Results(ctx, interviewID, userID)
	if err != nil {
		return 0, InterviewResults{}, "", err
	}
	etag := makeETag(res)
	if ifNoneMatch != "" && ifNoneMatch == etag {
		return http.StatusNotModified, InterviewResults{}, etag, nil
	}
	return http.StatusOK, res, etag, nil
}

// Aggregate sums scores over every answered main and follow-up question.
// Percentage rounds half away from zero and is 0 when nothing is answered.
func Aggregate(iv domain.Interview) InterviewResults {
	res := InterviewResults{
		InterviewID:   iv.ID,
		JobPosition:   iv.JobPosition,
		QuestionCount: len(iv.Questions),
		Items:         []ResultItem{},
	}
	for _, q := range iv.Questions {
		if q.Answer != nil {
			res.add(ResultItem{
				Kind:       ItemMain,
				QuestionID: q.ID,
				Question:   q.Text,
				Category:   q.Category,
				MaxScore:   q.EffectiveMaxScore(),
			}, *q.Answer)
		}
		for _, f := range q.FollowUps {
			if f.Answer == nil {
				continue
			}
			res.add(ResultItem{
				Kind:               ItemFollowUp,
				QuestionID:         q.ID,
				FollowUpQuestionID: f.ID,
				Question:           f.Text,
				Category:           f.Category,
				MaxScore:           f.EffectiveMaxScore(),
			}, *f.Answer)
		}
	}
	if res.MaxScore > 0 {
		res.Percentage = int(math.Round(100 * float64(res.TotalScore) / float64(res.MaxScore)))
	}
	res.Passed = res.Percentage >= domain.PassingPercentage
	return res
}

func (r *InterviewResults) add(item ResultItem, a domain.Answer) {
	item.Answer = a.Text
	item.Score = a.Score
	item.Feedback = a.Feedback
	item.KeyPoints = sortedKeys(a.KeyPoints)
	r.TotalScore += a.Score
	r.MaxScore += item.MaxScore
	r.AnsweredCount++
	r.Items = append(r.Items, item)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func makeETag(v any) string {
	b, _ := json.Marshal(v)
	s := sha256.Sum256(b)
	return hex.EncodeToString(s[:])
}
