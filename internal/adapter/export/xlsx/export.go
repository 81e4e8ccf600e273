// Package xlsx renders interview results as a spreadsheet.
package xlsx

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fairyhunter13/ai-mock-interview/internal/usecase"
)

// ContentType is the MIME type of the rendered workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	sheetSummary = "Summary"
	sheetAnswers = "Answers"
)

var answerHeaders = []string{"#", "Kind", "Question", "Category", "Answer", "Score", "Max score", "Feedback", "Key points"}

// Exporter implements the results export.
type Exporter struct{}

// NewExporter returns an Exporter.
func NewExporter() Exporter { return Exporter{} }

// Export writes a summary sheet and a per-answer sheet.
func (Exporter) Export(res usecase.InterviewResults) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("failed to close workbook", slog.Any("error", err))
		}
	}()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("op=export.xlsx: %w", err)
	}
	if err := writeSummary(f, res); err != nil {
		return nil, fmt.Errorf("op=export.xlsx: summary: %w", err)
	}
	if _, err := f.NewSheet(sheetAnswers); err != nil {
		return nil, fmt.Errorf("op=export.xlsx: %w", err)
	}
	if err := writeAnswers(f, res.Items); err != nil {
		return nil, fmt.Errorf("op=export.xlsx: answers: %w", err)
	}
	return f.WriteToBuffer()
}

func writeSummary(f *excelize.File, res usecase.InterviewResults) error {
	passed := "No"
	if res.Passed {
		passed = "Yes"
	}
	rows := [][2]interface{}{
		{"Interview", res.InterviewID},
		{"Job position", res.JobPosition},
		{"Total score", res.TotalScore},
		{"Max score", res.MaxScore},
		{"Percentage", res.Percentage},
		{"Passed", passed},
		{"Answered", fmt.Sprintf("%d / %d", res.AnsweredCount, res.QuestionCount)},
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for i, r := range rows {
		row := i + 1
		if err := writeCell(f, sheetSummary, 1, row, r[0]); err != nil {
			return err
		}
		if err := writeCell(f, sheetSummary, 2, row, r[1]); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheetSummary, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return err
	}
	return f.SetColWidth(sheetSummary, "A", "B", 28)
}

func writeAnswers(f *excelize.File, items []usecase.ResultItem) error {
	row, err := writeHeader(f, sheetAnswers, answerHeaders)
	if err != nil {
		return err
	}
	for i, it := range items {
		row++
		values := []interface{}{
			i + 1, it.Kind, it.Question, it.Category, it.Answer,
			it.Score, it.MaxScore, it.Feedback, strings.Join(it.KeyPoints, ", "),
		}
		for col, v := range values {
			if err := writeCell(f, sheetAnswers, col+1, row, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Font:      &excelize.Font{Bold: true, Size: 11},
	})
	if err != nil {
		return 0, err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return 0, err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return 0, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return 0, err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 25); err != nil {
		return 0, err
	}
	for idx, h := range headers {
		if err := writeCell(f, sheet, idx+1, 1, h); err != nil {
			return 0, err
		}
	}
	return 1, nil
}

func writeCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
