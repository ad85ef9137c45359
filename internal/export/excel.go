// Package export builds the owner-facing xlsx workbook: one answer-sheet
// tab with a row per answer-set, and a statistics tab mirroring the
// aggregation output.
package export

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"surveyhub/internal/answer"
	"surveyhub/internal/questionnaire"
	"surveyhub/internal/schema"
	"surveyhub/internal/stats"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

type Service struct {
	db    *sql.DB
	stats *stats.Service
}

func NewService(db *sql.DB, statsSvc *stats.Service) *Service {
	return &Service{db: db, stats: statsSvc}
}

// Workbook renders the questionnaire's answers and statistics into an xlsx
// byte blob ready to stream.
func (s *Service) Workbook(ctx context.Context, questionnaireUID uuid.UUID) ([]byte, error) {
	qn, err := questionnaire.LoadByUID(ctx, s.db, questionnaireUID)
	if err != nil {
		return nil, err
	}
	questions, err := questionnaire.LoadQuestions(ctx, s.db, qn.ID)
	if err != nil {
		return nil, err
	}
	rows, err := answer.LoadRows(ctx, s.db, qn.ID)
	if err != nil {
		return nil, err
	}
	sets, err := s.loadSets(ctx, qn.ID)
	if err != nil {
		return nil, err
	}
	results, err := s.stats.Aggregate(ctx, questionnaireUID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := writeAnswerSheet(f, questions, sets, rows); err != nil {
		return nil, err
	}
	if err := writeStatisticsSheet(f, results); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

type setHeader struct {
	ID         int64
	UID        uuid.UUID
	AnsweredAt time.Time
}

func (s *Service) loadSets(ctx context.Context, questionnaireID int64) ([]setHeader, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, uid, answered_at
		FROM answer_sets
		WHERE questionnaire_id = $1
		ORDER BY answered_at ASC, id ASC
	`, questionnaireID)
	if err != nil {
		return nil, fmt.Errorf("query answer sets: %w", err)
	}
	defer rows.Close()

	out := make([]setHeader, 0)
	for rows.Next() {
		var h setHeader
		if err := rows.Scan(&h.ID, &h.UID, &h.AnsweredAt); err != nil {
			return nil, fmt.Errorf("scan answer set: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer sets: %w", err)
	}
	return out, nil
}

func writeAnswerSheet(f *excelize.File, questions []questionnaire.Question, sets []setHeader, rows []answer.Row) error {
	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, "Answers"); err != nil {
		return fmt.Errorf("rename answers sheet: %w", err)
	}
	sheet = "Answers"

	columns := make([]questionnaire.Question, 0, len(questions))
	for _, q := range questions {
		if q.Variant == schema.VariantGroup {
			continue
		}
		columns = append(columns, q)
	}

	headers := []string{"answer_set", "answered_at"}
	for _, q := range columns {
		headers = append(headers, q.Title)
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	payloads := make(map[int64]map[int64][]byte, len(sets))
	for _, r := range rows {
		bySet, ok := payloads[r.AnswerSetID]
		if !ok {
			bySet = make(map[int64][]byte)
			payloads[r.AnswerSetID] = bySet
		}
		bySet[r.QuestionID] = r.Payload
	}

	for i, set := range sets {
		row := i + 2
		values := []any{set.UID.String(), set.AnsweredAt.Format("2006-01-02 15:04:05")}
		for _, q := range columns {
			values = append(values, cellText(&q, payloads[set.ID][q.ID]))
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "B", 28)
	return nil
}

// cellText flattens a stored payload into one human-readable cell. Malformed
// or missing payloads export as an empty cell rather than failing the whole
// workbook.
func cellText(q *questionnaire.Question, raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	p, err := answer.Decode(q.Variant, raw)
	if err != nil || p == nil {
		return ""
	}
	switch v := p.(type) {
	case answer.SelectionPayload:
		texts := make([]string, 0, len(v.Options))
		for _, opt := range v.Options {
			texts = append(texts, opt.Text)
		}
		out := strings.Join(texts, ", ")
		if v.OtherText != "" {
			out += " (" + v.OtherText + ")"
		}
		return out
	case answer.SortPayload:
		texts := make([]string, 0, len(v.Options))
		for _, opt := range v.Options {
			texts = append(texts, opt.Text)
		}
		return strings.Join(texts, " > ")
	case answer.TextPayload:
		return v.Value
	case answer.StringPayload:
		return v.Value
	case answer.NumberPayload:
		return strconv.FormatFloat(v.Value, 'f', -1, 64)
	case answer.FilePayload:
		return v.Name
	default:
		return ""
	}
}

func writeStatisticsSheet(f *excelize.File, results []stats.QuestionResult) error {
	const sheet = "Statistics"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create statistics sheet: %w", err)
	}

	headers := []string{"question", "type", "group", "metric", "value"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	writeRow := func(result stats.QuestionResult, metric string, value any) {
		group := ""
		if result.GroupTitle != nil {
			group = *result.GroupTitle
		}
		values := []any{result.Title, string(result.Variant), group, metric, value}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	for _, result := range results {
		if result.Numeric != nil {
			n := result.Numeric
			writeRow(result, "count", n.Count)
			writeRow(result, "average", n.Average)
			writeRow(result, "median", n.Median)
			writeRow(result, "min", n.Min)
			writeRow(result, "max", n.Max)
			writeRow(result, "variance", n.Variance)
			writeRow(result, "std_dev", n.StdDev)
		}
		for _, c := range result.Choices {
			writeRow(result, c.Text, fmt.Sprintf("%d (%.1f%%)", c.Count, c.Percentage))
		}
	}
	_ = f.SetColWidth(sheet, "A", "E", 24)
	return nil
}
