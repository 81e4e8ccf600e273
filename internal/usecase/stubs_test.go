package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
)

type stubAI struct {
	text     string
	jsonText string
	err      error
	calls    int
	prompts  []string
	block    bool
}

func (s *stubAI) ChatText(ctx domain.Context, _ string, user string, _ int) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, user)
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, s.err
}

func (s *stubAI) ChatJSON(_ domain.Context, _ string, user string, _ int) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, user)
	return s.jsonText, s.err
}

type stubQuota struct {
	allow bool
	err   error
	keys  []string
}

func (q *stubQuota) Allow(_ domain.Context, key string, _ int) (bool, time.Duration, error) {
	q.keys = append(q.keys, key)
	return q.allow, time.Second, q.err
}

// stubAnalyzer returns canned analysis and follow-up texts.
type stubAnalyzer struct {
	analysis      *string
	followUp      *string
	analyzeCalls  int
	followUpCalls int
	lastMaxScore  int
	lastContext   string
}

func (a *stubAnalyzer) AnalyzeAnswer(_ domain.Context, _, _ string, maxScore int, additionalContext string) *string {
	a.analyzeCalls++
	a.lastMaxScore = maxScore
	a.lastContext = additionalContext
	return a.analysis
}

func (a *stubAnalyzer) GenerateFollowUp(_ domain.Context, _, _, _ string) *string {
	a.followUpCalls++
	return a.followUp
}

// memStore is an in-memory store implementing the repository ports.
type memStore struct {
	mu         sync.Mutex
	interviews map[string]domain.Interview
	questions  map[string]domain.Question
	followUps  map[string]domain.FollowUpQuestion
	answers    map[string]domain.Answer
	seq        int
	upsertErr  error
	followErr  error
	createErr  error
	writes     int
}

func newMemStore() *memStore {
	return &memStore{
		interviews: map[string]domain.Interview{},
		questions:  map[string]domain.Question{},
		followUps:  map[string]domain.FollowUpQuestion{},
		answers:    map[string]domain.Answer{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) addInterview(userID, jobDesc string, maxScores ...int) domain.Interview {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv := domain.Interview{ID: m.nextID("iv"), UserID: userID, JobPosition: "Engineer", JobDescription: jobDesc, CreatedAt: time.Now()}
	m.interviews[iv.ID] = iv
	for i, ms := range maxScores {
		q := domain.Question{ID: m.nextID("q"), InterviewID: iv.ID, Text: fmt.Sprintf("question %d", i), Category: domain.CategoryHR, MaxScore: ms, Position: i}
		m.questions[q.ID] = q
	}
	return iv
}

func (m *memStore) questionIDs(interviewID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0)
	for pos := 0; ; pos++ {
		found := false
		for _, q := range m.questions {
			if q.InterviewID == interviewID && q.Position == pos {
				ids = append(ids, q.ID)
				found = true
			}
		}
		if !found {
			return ids
		}
	}
}

func answerKey(a domain.Answer) string {
	if a.QuestionID != nil {
		return "q:" + *a.QuestionID + ":" + a.UserID
	}
	return "f:" + *a.FollowUpQuestionID + ":" + a.UserID
}

// InterviewRepository

func (m *memStore) Create(_ domain.Context, iv domain.Interview) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	iv.ID = m.nextID("iv")
	for _, q := range iv.Questions {
		q.ID = m.nextID("q")
		q.InterviewID = iv.ID
		m.questions[q.ID] = q
	}
	iv.Questions = nil
	m.interviews[iv.ID] = iv
	return iv.ID, nil
}

func (m *memStore) GetOwned(_ domain.Context, id, userID string) (domain.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.interviews[id]
	if !ok || iv.UserID != userID {
		return domain.Interview{}, fmt.Errorf("op=interview.get: %w", domain.ErrNotFound)
	}
	for pos := 0; ; pos++ {
		var q *domain.Question
		for _, cand := range m.questions {
			if cand.InterviewID == id && cand.Position == pos {
				c := cand
				q = &c
			}
		}
		if q == nil {
			break
		}
		if a, ok := m.answers["q:"+q.ID+":"+userID]; ok {
			a := a
			q.Answer = &a
		}
		for _, f := range m.followUps {
			if f.MainQuestionID == q.ID {
				if a, ok := m.answers["f:"+f.ID+":"+userID]; ok {
					a := a
					f.Answer = &a
				}
				q.FollowUps = append(q.FollowUps, f)
			}
		}
		iv.Questions = append(iv.Questions, *q)
	}
	return iv, nil
}

func (m *memStore) ListOwned(_ domain.Context, userID string) ([]domain.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Interview
	for _, iv := range m.interviews {
		if iv.UserID == userID {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (m *memStore) DeleteOwned(_ domain.Context, id, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.interviews[id]
	if !ok || iv.UserID != userID {
		return 0, nil
	}
	delete(m.interviews, id)
	return 1, nil
}

// QuestionRepository

func (m *memStore) GetForEvaluation(_ domain.Context, questionID, userID string) (domain.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[questionID]
	if !ok {
		return domain.Question{}, fmt.Errorf("op=question.get: %w", domain.ErrNotFound)
	}
	iv := m.interviews[q.InterviewID]
	if iv.UserID != userID {
		return domain.Question{}, fmt.Errorf("op=question.get: %w", domain.ErrNotFound)
	}
	q.Interview = &iv
	for _, f := range m.followUps {
		if f.MainQuestionID == q.ID {
			q.FollowUps = append(q.FollowUps, f)
		}
	}
	return q, nil
}

func (m *memStore) GetFollowUpForEvaluation(_ domain.Context, followUpID, userID string) (domain.FollowUpQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.followUps[followUpID]
	if !ok {
		return domain.FollowUpQuestion{}, fmt.Errorf("op=followup.get: %w", domain.ErrNotFound)
	}
	q := m.questions[f.MainQuestionID]
	iv := m.interviews[q.InterviewID]
	if iv.UserID != userID {
		return domain.FollowUpQuestion{}, fmt.Errorf("op=followup.get: %w", domain.ErrNotFound)
	}
	q.Interview = &iv
	f.MainQuestion = &q
	return f, nil
}

func (m *memStore) CreateFollowUp(_ domain.Context, f domain.FollowUpQuestion) (domain.FollowUpQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.followErr != nil {
		return domain.FollowUpQuestion{}, m.followErr
	}
	f.ID = m.nextID("f")
	m.followUps[f.ID] = f
	return f, nil
}

// AnswerRepository

func (m *memStore) FindForQuestion(_ domain.Context, questionID, userID string) (domain.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.answers["q:"+questionID+":"+userID]
	if !ok {
		return domain.Answer{}, domain.ErrNotFound
	}
	return a, nil
}

func (m *memStore) upsert(a domain.Answer, keepMedia bool) (domain.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return domain.Answer{}, m.upsertErr
	}
	m.writes++
	key := answerKey(a)
	if prev, ok := m.answers[key]; ok {
		a.ID = prev.ID
		a.CreatedAt = prev.CreatedAt
		if keepMedia && a.MediaRef == nil {
			a.MediaRef = prev.MediaRef
		}
	} else {
		a.ID = m.nextID("a")
		a.CreatedAt = time.Now()
	}
	a.UpdatedAt = time.Now()
	m.answers[key] = a
	return a, nil
}

func (m *memStore) UpsertMain(_ domain.Context, a domain.Answer) (domain.Answer, error) {
	return m.upsert(a, false)
}

func (m *memStore) UpsertFollowUp(_ domain.Context, a domain.Answer) (domain.Answer, error) {
	return m.upsert(a, true)
}

func (m *memStore) answerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.answers)
}

type stubPublisher struct {
	events []domain.AnswerEvaluatedEvent
	err    error
}

func (p *stubPublisher) PublishAnswerEvaluated(_ domain.Context, ev domain.AnswerEvaluatedEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

type stubMediaStore struct {
	keys []string
	ct   string
	err  error
}

func (s *stubMediaStore) Put(_ domain.Context, key, contentType string, _ []byte) error {
	if s.err != nil {
		return s.err
	}
	s.keys = append(s.keys, key)
	s.ct = contentType
	return nil
}

var errBoom = errors.New("boom")

var bg = context.Background()
