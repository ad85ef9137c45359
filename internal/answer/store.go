package answer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"surveyhub/internal/questionnaire"

	"github.com/google/uuid"
)

// AnswerSet is one respondent's submission episode for a questionnaire.
type AnswerSet struct {
	ID              int64     `json:"id"`
	UID             uuid.UUID `json:"uid"`
	QuestionnaireID int64     `json:"questionnaire_id"`
	AnsweredAt      time.Time `json:"answered_at"`
	AnsweredBy      *int64    `json:"answered_by,omitempty"`
}

// Answer is the stored row for one (answer_set, question) pair. A NULL
// payload is a placeholder: the question exists in the set's key space but
// was never answered.
type Answer struct {
	ID          int64           `json:"id"`
	AnswerSetID int64           `json:"answer_set_id"`
	QuestionID  int64           `json:"question_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	FileName    *string         `json:"file_name,omitempty"`
	FileSize    *int64          `json:"file_size,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Answered reports whether the row carries a real payload.
func (a *Answer) Answered() bool { return len(a.Payload) > 0 }

// Row is the minimal shape aggregation reads: which set answered which
// question with what payload. Placeholder rows are excluded at the query.
type Row struct {
	AnswerSetID int64
	QuestionID  int64
	Payload     []byte
}

// LoadRows fetches every non-placeholder answer across a questionnaire's
// answer-sets.
func LoadRows(ctx context.Context, q questionnaire.Queryable, questionnaireID int64) ([]Row, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT a.answer_set_id, a.question_id, a.payload
		FROM answers a
		JOIN answer_sets s ON s.id = a.answer_set_id
		WHERE s.questionnaire_id = $1 AND a.payload IS NOT NULL
		ORDER BY a.answer_set_id ASC, a.question_id ASC
	`, questionnaireID)
	if err != nil {
		return nil, fmt.Errorf("query answer rows: %w", err)
	}
	defer rows.Close()

	out := make([]Row, 0)
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.AnswerSetID, &r.QuestionID, &r.Payload); err != nil {
			return nil, fmt.Errorf("scan answer row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer rows: %w", err)
	}
	return out, nil
}

type setRow struct {
	AnswerSet
	TimerSeconds int
}

func loadSetRow(ctx context.Context, q questionnaire.Queryable, setUID uuid.UUID) (*setRow, error) {
	var (
		out        setRow
		answeredBy sql.NullInt64
		timer      sql.NullInt64
	)
	err := q.QueryRowContext(ctx, `
		SELECT s.id, s.uid, s.questionnaire_id, s.answered_at, s.answered_by, qn.timer_seconds
		FROM answer_sets s
		JOIN questionnaires qn ON qn.id = s.questionnaire_id
		WHERE s.uid = $1 AND qn.is_deleted = FALSE
	`, setUID).Scan(&out.ID, &out.UID, &out.QuestionnaireID, &out.AnsweredAt, &answeredBy, &timer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnswerSetNotFound
		}
		return nil, fmt.Errorf("load answer set: %w", err)
	}
	if answeredBy.Valid {
		out.AnsweredBy = &answeredBy.Int64
	}
	if timer.Valid {
		out.TimerSeconds = int(timer.Int64)
	}
	return &out, nil
}

// replaceAnswer implements the replace-on-resubmit rule: delete whatever row
// exists for the pair, then insert the new one. Callers run it inside the
// batch transaction so no reader observes the transient zero-row state.
func replaceAnswer(ctx context.Context, tx *sql.Tx, setID, questionID int64, payload []byte, file *FileMeta) (*Answer, error) {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM answers WHERE answer_set_id = $1 AND question_id = $2
	`, setID, questionID); err != nil {
		return nil, fmt.Errorf("delete prior answer: %w", err)
	}

	var (
		payloadArg interface{}
		fileName   interface{}
		fileSize   interface{}
	)
	if len(payload) > 0 {
		payloadArg = payload
	}
	if file != nil {
		fileName = file.Name
		fileSize = file.Size
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO answers (answer_set_id, question_id, payload, file_name, file_size, updated_at)
		VALUES ($1, $2, $3::jsonb, $4, $5, now())
		RETURNING id, answer_set_id, question_id, payload, file_name, file_size, updated_at
	`, setID, questionID, payloadArg, fileName, fileSize)
	return scanAnswer(row)
}

func scanAnswer(row *sql.Row) (*Answer, error) {
	var (
		out      Answer
		payload  []byte
		fileName sql.NullString
		fileSize sql.NullInt64
	)
	if err := row.Scan(&out.ID, &out.AnswerSetID, &out.QuestionID, &payload, &fileName, &fileSize, &out.UpdatedAt); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		out.Payload = payload
	}
	if fileName.Valid {
		out.FileName = &fileName.String
	}
	if fileSize.Valid {
		out.FileSize = &fileSize.Int64
	}
	return &out, nil
}

// GetCurrent returns the current answer for a question within a set, or nil
// when no row exists.
func (s *Service) GetCurrent(ctx context.Context, setUID uuid.UUID, questionID int64) (*Answer, error) {
	set, err := loadSetRow(ctx, s.db, setUID)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, answer_set_id, question_id, payload, file_name, file_size, updated_at
		FROM answers
		WHERE answer_set_id = $1 AND question_id = $2
	`, set.ID, questionID)
	out, err := scanAnswer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load current answer: %w", err)
	}
	return out, nil
}

func loadSetAnswers(ctx context.Context, q questionnaire.Queryable, setID int64) ([]Answer, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, answer_set_id, question_id, payload, file_name, file_size, updated_at
		FROM answers
		WHERE answer_set_id = $1
		ORDER BY question_id ASC
	`, setID)
	if err != nil {
		return nil, fmt.Errorf("query set answers: %w", err)
	}
	defer rows.Close()

	out := make([]Answer, 0)
	for rows.Next() {
		var (
			item     Answer
			payload  []byte
			fileName sql.NullString
			fileSize sql.NullInt64
		)
		if err := rows.Scan(&item.ID, &item.AnswerSetID, &item.QuestionID, &payload, &fileName, &fileSize, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan set answer: %w", err)
		}
		if len(payload) > 0 {
			item.Payload = payload
		}
		if fileName.Valid {
			item.FileName = &fileName.String
		}
		if fileSize.Valid {
			item.FileSize = &fileSize.Int64
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate set answers: %w", err)
	}
	return out, nil
}

func priorFileQuestions(ctx context.Context, tx *sql.Tx, setID int64) (map[int64]bool, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT question_id FROM answers
		WHERE answer_set_id = $1 AND file_name IS NOT NULL
	`, setID)
	if err != nil {
		return nil, fmt.Errorf("query prior files: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan prior file row: %w", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prior files: %w", err)
	}
	return out, nil
}
