package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
)

func newAnswerFixture(analysis, followUp *string, maxScores ...int) (*memStore, *stubAnalyzer, *stubPublisher, AnswerService, []string) {
	store := newMemStore()
	iv := store.addInterview("user-1", "Backend role", maxScores...)
	an := &stubAnalyzer{analysis: analysis, followUp: followUp}
	pub := &stubPublisher{}
	svc := NewAnswerService(store, store, an, pub)
	return store, an, pub, svc, store.questionIDs(iv.ID)
}

func TestSubmitMain_HighScoreGeneratesFollowUp(t *testing.T) {
	store, an, pub, svc, qids := newAnswerFixture(strPtr("Score: 9\nFeedback: Strong.\nKey Points: impact, metrics"), strPtr("What would you change next time?"), 10)

	res, err := svc.SubmitMain(bg, "user-1", MainAnswerInput{QuestionID: qids[0], AnswerText: "I led the migration."})
	require.NoError(t, err)

	assert.Equal(t, 9, res.Analysis.Score)
	assert.Equal(t, 9, res.Answer.Score)
	assert.True(t, res.EligibleForFollowUp)
	require.NotNil(t, res.NextQuestion)
	assert.Equal(t, 5, res.NextQuestion.MaxScore)
	assert.Equal(t, domain.CategoryHR, res.NextQuestion.Category)
	assert.Equal(t, qids[0], res.NextQuestion.MainQuestionID)
	assert.Equal(t, FollowUpGenerated, res.FollowUpSource)
	assert.Equal(t, map[string]bool{"impact": true, "metrics": true}, res.Answer.KeyPoints)
	assert.Nil(t, res.Answer.MediaRef)
	assert.Equal(t, "Backend role", an.lastContext)
	assert.Equal(t, 1, an.followUpCalls)
	assert.Len(t, store.followUps, 1)

	require.Len(t, pub.events, 1)
	assert.Equal(t, res.Answer.ID, pub.events[0].AnswerID)
	assert.True(t, pub.events[0].EligibleForFollowUp)
	assert.False(t, pub.events[0].FallbackUsed)
}

func TestSubmitMain_ReusesExistingFollowUp(t *testing.T) {
	store, an, _, svc, qids := newAnswerFixture(strPtr("Score: 10"), strPtr("unused"), 10)
	existing, err := store.CreateFollowUp(bg, domain.FollowUpQuestion{MainQuestionID: qids[0], Text: "existing", MaxScore: 5})
	require.NoError(t, err)

	res, err := svc.SubmitMain(bg, "user-1", MainAnswerInput{QuestionID: qids[0], AnswerText: "answer"})
	require.NoError(t, err)
	require.NotNil(t, res.NextQuestion)
	assert.Equal(t, existing.ID, res.NextQuestion.ID)
	assert.Equal(t, FollowUpReused, res.FollowUpSource)
	assert.Equal(t, 0, an.followUpCalls)
	assert.Len(t, store.followUps, 1)
}

func TestSubmitMain_AnalysisFailureUsesFallback(t *testing.T) {
	_, an, pub, svc, qids := newAnswerFixture(nil, strPtr("never"), 10)

	res, err := svc.SubmitMain(bg, "user-1", MainAnswerInput{QuestionID: qids[0], AnswerText: "answer"})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Answer.Score)
	assert.Equal(t, "Unable to generate detailed analysis.", res.Answer.Feedback)
	assert.False(t, res.EligibleForFollowUp)
	assert.Nil(t, res.NextQuestion)
	assert.True(t, res.FallbackUsed)
	assert.Equal(t, 0, an.followUpCalls)
	require.Len(t, pub.events, 1)
	assert.True(t, pub.events[0].FallbackUsed)
}

func TestSubmitMain_FollowUpGenerationFailure(t *testing.T) {
	store, _, _, svc, qids := newAnswerFixture(strPtr("Score: 8"), nil, 10)

	res, err := svc.SubmitMain(bg, "user-1", MainAnswerInput{QuestionID: qids[0], AnswerText: "answer"})
	require.NoError(t, err)
	assert.True(t, res.EligibleForFollowUp)
	assert.Nil(t, res.NextQuestion)
	assert.Equal(t, FollowUpUnavailable, res.FollowUpSource)
	assert.Empty(t, store.followUps)
}

func TestSubmitMain_EligibilityBoundary(t *testing.T) {
	_, _, _, svc, qids := newAnswerFixture(strPtr("Score: 7"), strPtr("next?"), 10)
	res, err := svc.SubmitMain(bg, "user-1", MainAnswerInput{QuestionID: qids[0], AnswerText: "a"})
	require.NoError(t, err)
	assert.True(t, res.EligibleForFollowUp)

	_, _, _, svc, qids = newAnswerFixture(strPtr("Score: 699"), strPtr("next?"), 1000)
	res, err = svc.SubmitMain(bg, "user-1", MainAnswerInput{QuestionID: qids[0], AnswerText: "a"})
	require.NoError(t, err)
	assert.False(t, res.EligibleForFollowUp)
	assert.Nil(t, res.NextQuestion)
}

func TestSubmitMain_ZeroMaxScoreUsesDefault(t *testing.T) {
	_, an, _, svc, qids := newAnswerFixture(strPtr("Score: 12"), nil, 0)
	res, err := svc.SubmitMain(bg, "user-1", MainAnswerInput{QuestionID: qids[0], AnswerText: "a"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultMaxScore, an.lastMaxScore)
	assert.Equal(t, 10, res.Answer.Score)
	assert.Equal(t, 10, res.MaxScore)
}

func TestSubmitMain_ResubmissionKeepsSingleRow(t *testing.T) {
	store, _, _, svc, qids := newAnswerFixture(strPtr("Score: 3"), nil, 10)
	first, err := svc.SubmitMain(bg, "user-1", MainAnswerInput{QuestionID: qids[0], AnswerText: "first", MediaRef: strPtr("user-1/a.webm")})
	require.NoError(t, err)
	second, err := svc.SubmitMain(bg, "user-1", MainAnswerInput{QuestionID: qids[0], AnswerText: "second"})
	require.NoError(t, err)

	assert.Equal(t, first.Answer.ID, second.Answer.ID)
	assert.Equal(t, "second", second.Answer.Text)
	assert.Nil(t, second.Answer.MediaRef)
	assert.Equal(t, 1, store.answerCount())
}

func TestSubmitMain_Errors(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		store, an, _, svc, qids := newAnswerFixture(strPtr("Score: 9"), nil, 10)
		_, err := svc.SubmitMain(bg, "", MainAnswerInput{QuestionID: qids[0], AnswerText: "a"})
		require.ErrorIs(t, err, domain.ErrUnauthenticated)
		assert.Equal(t, 0, store.writes)
		assert.Equal(t, 0, an.analyzeCalls)
	})
	t.Run("missing fields", func(t *testing.T) {
		_, _, _, svc, qids := newAnswerFixture(strPtr("Score: 9"), nil, 10)
		_, err := svc.SubmitMain(bg, "user-1", MainAnswerInput{QuestionID: qids[0], AnswerText: "  \x00 "})
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
		_, err = svc.SubmitMain(bg, "user-1", MainAnswerInput{AnswerText: "a"})
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
	t.Run("unknown question", func(t *testing.T) {
		_, _, _, svc, _ := newAnswerFixture(strPtr("Score: 9"), nil, 10)
		_, err := svc.SubmitMain(bg, "user-1", MainAnswerInput{QuestionID: "nope", AnswerText: "a"})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
	t.Run("other user's question", func(t *testing.T) {
		_, _, _, svc, qids := newAnswerFixture(strPtr("Score: 9"), nil, 10)
		_, err := svc.SubmitMain(bg, "user-2", MainAnswerInput{QuestionID: qids[0], AnswerText: "a"})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
	t.Run("store failure", func(t *testing.T) {
		store, _, pub, svc, qids := newAnswerFixture(strPtr("Score: 9"), nil, 10)
		store.upsertErr = errBoom
		_, err := svc.SubmitMain(bg, "user-1", MainAnswerInput{QuestionID: qids[0], AnswerText: "a"})
		require.ErrorIs(t, err, domain.ErrPersistence)
		require.ErrorIs(t, err, errBoom)
		assert.Empty(t, pub.events)
	})
	t.Run("follow-up store failure", func(t *testing.T) {
		store, _, _, svc, qids := newAnswerFixture(strPtr("Score: 9"), strPtr("next?"), 10)
		store.followErr = errBoom
		_, err := svc.SubmitMain(bg, "user-1", MainAnswerInput{QuestionID: qids[0], AnswerText: "a"})
		require.ErrorIs(t, err, domain.ErrPersistence)
	})
}

func TestSubmitMain_PublishFailureIsIgnored(t *testing.T) {
	_, _, pub, svc, qids := newAnswerFixture(strPtr("Score: 2"), nil, 10)
	pub.err = errBoom
	_, err := svc.SubmitMain(bg, "user-1", MainAnswerInput{QuestionID: qids[0], AnswerText: "a"})
	require.NoError(t, err)
}

func TestSubmitFollowUp_UpsertOverwrites(t *testing.T) {
	store, an, pub, svc, qids := newAnswerFixture(strPtr("Score: 9"), strPtr("Why?"), 10)
	main, err := svc.SubmitMain(bg, "user-1", MainAnswerInput{QuestionID: qids[0], AnswerText: "a"})
	require.NoError(t, err)
	require.NotNil(t, main.NextQuestion)
	fid := main.NextQuestion.ID

	an.analysis = strPtr("Score: 3\nFeedback: Thin.")
	first, err := svc.SubmitFollowUp(bg, "user-1", FollowUpAnswerInput{FollowUpQuestionID: fid, AnswerText: "one", MediaRef: strPtr("user-1/rec.webm")})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Answer.Score)
	assert.Equal(t, 5, an.lastMaxScore)
	assert.Contains(t, an.lastContext, "question 0")

	an.analysis = strPtr("Score: 4\nFeedback: Better.")
	second, err := svc.SubmitFollowUp(bg, "user-1", FollowUpAnswerInput{FollowUpQuestionID: fid, AnswerText: "two"})
	require.NoError(t, err)

	assert.Equal(t, first.Answer.ID, second.Answer.ID)
	assert.Equal(t, 4, second.Answer.Score)
	assert.Equal(t, "Better.", second.Answer.Feedback)
	assert.Equal(t, "two", second.Answer.Text)
	require.NotNil(t, second.Answer.MediaRef)
	assert.Equal(t, "user-1/rec.webm", *second.Answer.MediaRef)
	// one main answer plus one follow-up answer
	assert.Equal(t, 2, store.answerCount())
	assert.Len(t, pub.events, 3)
	assert.Equal(t, fid, pub.events[2].FollowUpQuestionID)
}

func TestSubmitFollowUp_Errors(t *testing.T) {
	store, an, _, svc, _ := newAnswerFixture(strPtr("Score: 4"), nil, 10)

	_, err := svc.SubmitFollowUp(bg, "", FollowUpAnswerInput{FollowUpQuestionID: "f", AnswerText: "a"})
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = svc.SubmitFollowUp(bg, "user-1", FollowUpAnswerInput{AnswerText: "a"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.SubmitFollowUp(bg, "user-1", FollowUpAnswerInput{FollowUpQuestionID: "missing", AnswerText: "a"})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, an.analyzeCalls)
	assert.Equal(t, 0, store.writes)
}
