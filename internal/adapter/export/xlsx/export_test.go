package xlsx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fairyhunter13/ai-mock-interview/internal/usecase"
)

func TestExport(t *testing.T) {
	res := usecase.InterviewResults{
		InterviewID:   "iv1",
		JobPosition:   "Backend Engineer",
		TotalScore:    12,
		MaxScore:      15,
		Percentage:    80,
		Passed:        true,
		AnsweredCount: 2,
		QuestionCount: 3,
		Items: []usecase.ResultItem{
			{Kind: usecase.ItemMain, QuestionID: "q1", Question: "Tell me about yourself", Category: "HR", Answer: "I build APIs", Score: 8, MaxScore: 10, Feedback: "Clear", KeyPoints: []string{"clarity", "impact"}},
			{Kind: usecase.ItemFollowUp, QuestionID: "q1", FollowUpQuestionID: "f1", Question: "Which API?", Category: "HR", Answer: "Payments", Score: 4, MaxScore: 5, Feedback: "Specific"},
		},
	}

	buf, err := NewExporter().Export(res)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Summary", "Answers"}, f.GetSheetList())

	v, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", v)
	v, err = f.GetCellValue("Summary", "B6")
	require.NoError(t, err)
	assert.Equal(t, "Yes", v)
	v, err = f.GetCellValue("Summary", "B7")
	require.NoError(t, err)
	assert.Equal(t, "2 / 3", v)

	rows, err := f.GetRows("Answers")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, answerHeaders, rows[0])
	assert.Equal(t, "Tell me about yourself", rows[1][2])
	assert.Equal(t, "clarity, impact", rows[1][8])
	assert.Equal(t, "followUp", rows[2][1])
	assert.Equal(t, "4", rows[2][5])
}

func TestExport_NoItems(t *testing.T) {
	buf, err := NewExporter().Export(usecase.InterviewResults{InterviewID: "iv1"})
	require.NoError(t, err)
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Answers")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
