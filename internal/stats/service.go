package stats

import (
	"context"
	"database/sql"

	"surveyhub/internal/answer"
	"surveyhub/internal/questionnaire"
	"surveyhub/internal/schema"

	"github.com/google/uuid"
)

// Service computes owner-facing statistics over a questionnaire's collected
// answers. All reads run against a plain read-committed snapshot; nothing
// here writes.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Aggregate reduces every numeric and choice question of the questionnaire
// into a summary, in placement order. Questions with zero usable answers are
// omitted; other variants never appear.
func (s *Service) Aggregate(ctx context.Context, questionnaireUID uuid.UUID) ([]QuestionResult, error) {
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

	payloadsByQuestion := make(map[int64][][]byte)
	for _, r := range rows {
		payloadsByQuestion[r.QuestionID] = append(payloadsByQuestion[r.QuestionID], r.Payload)
	}

	groupTitles := make(map[int64]string)
	for i := range questions {
		if questions[i].Variant == schema.VariantGroup {
			groupTitles[questions[i].ID] = questions[i].Title
		}
	}

	out := make([]QuestionResult, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		payloads := payloadsByQuestion[q.ID]

		result := QuestionResult{
			QuestionID: q.ID,
			Variant:    q.Variant,
			Title:      q.Title,
			Placement:  q.Placement,
		}
		if q.GroupID != nil {
			result.GroupID = q.GroupID
			if title, ok := groupTitles[*q.GroupID]; ok {
				result.GroupTitle = &title
			}
		}

		switch {
		case schema.Numeric(q.Variant):
			summary := reduceNumeric(numericValues(q.Variant, payloads))
			if summary == nil {
				continue
			}
			result.Numeric = summary
		case schema.Choice(q.Variant):
			choices := reduceChoice(q, choiceSelections(q.Variant, payloads))
			if choices == nil {
				continue
			}
			result.Choices = choices
		default:
			continue
		}
		out = append(out, result)
	}
	return out, nil
}
