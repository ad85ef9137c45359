package answer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"surveyhub/internal/questionnaire"
	"surveyhub/internal/schema"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service persists answer-sets and their answers.
type Service struct {
	db  *sql.DB
	now func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// OpenInput starts an answer-set for a questionnaire. AccessCode must match
// the questionnaire's code when one is set.
type OpenInput struct {
	QuestionnaireUID uuid.UUID `json:"questionnaire_uid"`
	AccessCode       string    `json:"access_code"`
	AnsweredBy       *int64    `json:"answered_by"`
}

// OpenAnswerSet creates a fresh answer-set after checking that the
// questionnaire is active, inside its publish window, and that the access
// code (when required) is correct.
func (s *Service) OpenAnswerSet(ctx context.Context, in OpenInput) (*AnswerSet, error) {
	qn, err := questionnaire.LoadByUID(ctx, s.db, in.QuestionnaireUID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !qn.IsActive {
		return nil, ErrQuestionnaireClosed
	}
	if qn.PubDate != nil && now.Before(*qn.PubDate) {
		return nil, ErrQuestionnaireClosed
	}
	if qn.EndDate != nil && now.After(*qn.EndDate) {
		return nil, ErrQuestionnaireClosed
	}
	if qn.Gated() {
		if in.AccessCode == "" {
			return nil, ErrAccessCodeRequired
		}
		if bcrypt.CompareHashAndPassword([]byte(*qn.AccessCodeHash), []byte(in.AccessCode)) != nil {
			return nil, ErrAccessCodeInvalid
		}
	}

	set := AnswerSet{
		UID:             uuid.New(),
		QuestionnaireID: qn.ID,
		AnsweredAt:      now,
		AnsweredBy:      in.AnsweredBy,
	}
	var answeredBy interface{}
	if in.AnsweredBy != nil {
		answeredBy = *in.AnsweredBy
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO answer_sets (uid, questionnaire_id, answered_at, answered_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, set.UID, set.QuestionnaireID, set.AnsweredAt, answeredBy).Scan(&set.ID)
	if err != nil {
		return nil, fmt.Errorf("insert answer set: %w", err)
	}
	return &set, nil
}

// GetAnswerSet returns the set and all its stored rows, placeholders
// included.
func (s *Service) GetAnswerSet(ctx context.Context, setUID uuid.UUID) (*AnswerSet, []Answer, error) {
	set, err := loadSetRow(ctx, s.db, setUID)
	if err != nil {
		return nil, nil, err
	}
	answers, err := loadSetAnswers(ctx, s.db, set.ID)
	if err != nil {
		return nil, nil, err
	}
	return &set.AnswerSet, answers, nil
}

// SubmitItem is one question's submission inside a batch. A nil Raw means
// the question was explicitly cleared; a File question carries its metadata
// in File instead of Raw.
type SubmitItem struct {
	QuestionID int64           `json:"question_id"`
	Raw        json.RawMessage `json:"answer"`
	File       *FileMeta       `json:"file,omitempty"`
}

// SubmitAnswers validates the whole batch against the questionnaire's
// current questions and persists it atomically: either every item is stored
// or none is. Validation failures come back as a *SubmitError keyed by
// question id; a question id that does not belong to the questionnaire fails
// the batch with ErrQuestionNotFound before any validation runs.
func (s *Service) SubmitAnswers(ctx context.Context, setUID uuid.UUID, items []SubmitItem) ([]Answer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin submit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	set, err := loadSetRow(ctx, tx, setUID)
	if err != nil {
		return nil, err
	}
	questions, err := questionnaire.LoadQuestions(ctx, tx, set.QuestionnaireID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*questionnaire.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	// Membership first: a stray question id is a caller bug, not a
	// validation outcome.
	for _, item := range items {
		if _, ok := byID[item.QuestionID]; !ok {
			return nil, ErrQuestionNotFound
		}
	}

	priorFiles, err := priorFileQuestions(ctx, tx, set.ID)
	if err != nil {
		return nil, err
	}

	sc := SetContext{
		AnsweredAt:   set.AnsweredAt,
		TimerSeconds: set.TimerSeconds,
		Now:          s.now(),
	}

	type staged struct {
		item    SubmitItem
		q       *questionnaire.Question
		payload Payload
	}
	plan := make([]staged, 0, len(items))
	submitErr := &SubmitError{PerQuestion: make(map[int64][]FieldIssue)}

	for _, item := range items {
		q := byID[item.QuestionID]
		sc.HasPriorFile = priorFiles[item.QuestionID]
		payload, verr := Validate(q, item.Raw, item.File, sc)
		if verr != nil {
			submitErr.PerQuestion[item.QuestionID] = verr.Issues
			continue
		}
		plan = append(plan, staged{item: item, q: q, payload: payload})
	}
	if len(submitErr.PerQuestion) > 0 {
		return nil, submitErr
	}

	out := make([]Answer, 0, len(plan))
	for _, st := range plan {
		if st.payload == nil {
			// File question with no upload and a prior file: keep it.
			if st.q.Variant == schema.VariantFile && st.item.File == nil && priorFiles[st.q.ID] {
				continue
			}
			// Otherwise replace with a placeholder row.
			stored, err := replaceAnswer(ctx, tx, set.ID, st.q.ID, nil, nil)
			if err != nil {
				return nil, err
			}
			out = append(out, *stored)
			continue
		}

		encoded, err := st.payload.Encode()
		if err != nil {
			return nil, fmt.Errorf("encode payload for question %d: %w", st.q.ID, err)
		}
		stored, err := replaceAnswer(ctx, tx, set.ID, st.q.ID, encoded, st.item.File)
		if err != nil {
			return nil, err
		}
		out = append(out, *stored)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submit tx: %w", err)
	}
	return out, nil
}
