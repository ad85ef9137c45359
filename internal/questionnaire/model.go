package questionnaire

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"surveyhub/internal/schema"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrQuestionnaireNotFound = errors.New("questionnaire not found")
	ErrQuestionNotFound      = errors.New("question not found")
	ErrGroupNotFound         = errors.New("group not found")
	ErrNotAGroup             = errors.New("parent question is not a group")
	ErrNestedGroup           = errors.New("groups cannot be nested")
)

// Queryable is satisfied by *sql.DB and *sql.Tx so loaders can run inside or
// outside a transaction.
type Queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type Questionnaire struct {
	ID             int64           `json:"id"`
	UID            uuid.UUID       `json:"uid"`
	OwnerID        int64           `json:"owner_id"`
	FolderID       *int64          `json:"folder_id,omitempty"`
	Name           string          `json:"name"`
	IsActive       bool            `json:"is_active"`
	PubDate        *time.Time      `json:"pub_date,omitempty"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	TimerSeconds   *int            `json:"timer_seconds,omitempty"`
	AccessCodeHash *string         `json:"-"`
	WelcomePage    json.RawMessage `json:"welcome_page,omitempty"`
	ThanksPage     json.RawMessage `json:"thanks_page,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Gated reports whether answer-sets must present an access code.
func (q *Questionnaire) Gated() bool {
	return q.AccessCodeHash != nil && *q.AccessCodeHash != ""
}

type Question struct {
	ID              int64                `json:"id"`
	QuestionnaireID int64                `json:"questionnaire_id"`
	Variant         schema.Variant       `json:"question_type"`
	Placement       int                  `json:"placement"`
	Title           string               `json:"title"`
	Description     string               `json:"description,omitempty"`
	Required        bool                 `json:"is_required"`
	Finalized       bool                 `json:"is_finalized"`
	Media           *string              `json:"media,omitempty"`
	GroupID         *int64               `json:"group_id,omitempty"`
	Level           int                  `json:"level"`
	Constraints     schema.ConstraintSet `json:"constraints"`
	Options         []Option             `json:"options,omitempty"`
}

type Option struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Number    *int   `json:"number,omitempty"`
	Placement int    `json:"placement"`
}

// OptionByID resolves an option id against the question's live option set.
func (q *Question) OptionByID(id int64) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

const questionnaireColumns = `
	id, uid, owner_id, folder_id, name, is_active,
	pub_date, end_date, timer_seconds, access_code_hash,
	welcome_page, thanks_page, created_at, updated_at
`

func scanQuestionnaire(row *sql.Row) (*Questionnaire, error) {
	var (
		out        Questionnaire
		folderID   sql.NullInt64
		pubDate    sql.NullTime
		endDate    sql.NullTime
		timer      sql.NullInt64
		accessHash sql.NullString
	)
	err := row.Scan(
		&out.ID, &out.UID, &out.OwnerID, &folderID, &out.Name, &out.IsActive,
		&pubDate, &endDate, &timer, &accessHash,
		&out.WelcomePage, &out.ThanksPage, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionnaireNotFound
		}
		return nil, fmt.Errorf("scan questionnaire: %w", err)
	}
	if folderID.Valid {
		out.FolderID = &folderID.Int64
	}
	if pubDate.Valid {
		out.PubDate = &pubDate.Time
	}
	if endDate.Valid {
		out.EndDate = &endDate.Time
	}
	if timer.Valid {
		v := int(timer.Int64)
		out.TimerSeconds = &v
	}
	if accessHash.Valid && accessHash.String != "" {
		out.AccessCodeHash = &accessHash.String
	}
	return &out, nil
}

// LoadByUID fetches a questionnaire by its public identifier. Soft-deleted
// questionnaires are invisible to every caller.
func LoadByUID(ctx context.Context, q Queryable, uid uuid.UUID) (*Questionnaire, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+questionnaireColumns+`
		FROM questionnaires
		WHERE uid = $1 AND is_deleted = FALSE
	`, uid)
	return scanQuestionnaire(row)
}

// LoadQuestions fetches every question of a questionnaire, placement-ordered,
// with option sets attached to the option-bearing variants.
func LoadQuestions(ctx context.Context, q Queryable, questionnaireID int64) ([]Question, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, questionnaire_id, question_type, placement, title, description,
			is_required, is_finalized, media, group_id, level, constraints
		FROM questions
		WHERE questionnaire_id = $1
		ORDER BY placement ASC, id ASC
	`, questionnaireID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	items := make([]Question, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var (
			item           Question
			variant        string
			media          sql.NullString
			groupID        sql.NullInt64
			constraintsRaw []byte
		)
		if err := rows.Scan(
			&item.ID, &item.QuestionnaireID, &variant, &item.Placement,
			&item.Title, &item.Description, &item.Required, &item.Finalized,
			&media, &groupID, &item.Level, &constraintsRaw,
		); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		item.Variant = schema.Variant(variant)
		if !schema.Known(item.Variant) {
			// A row with a tag outside the catalog is corrupt data.
			panic(&schema.SchemaError{Tag: variant, Reason: "stored question has unknown variant"})
		}
		if media.Valid {
			item.Media = &media.String
		}
		if groupID.Valid {
			item.GroupID = &groupID.Int64
		}
		cs, err := schema.ParseConstraints(item.Variant, constraintsRaw)
		if err != nil {
			return nil, err
		}
		item.Constraints = cs
		index[item.ID] = len(items)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	optRows, err := q.QueryContext(ctx, `
		SELECT o.id, o.question_id, o.text, o.number, o.placement
		FROM question_options o
		JOIN questions qs ON qs.id = o.question_id
		WHERE qs.questionnaire_id = $1
		ORDER BY o.placement ASC, o.id ASC
	`, questionnaireID)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var (
			opt        Option
			questionID int64
			number     sql.NullInt64
		)
		if err := optRows.Scan(&opt.ID, &questionID, &opt.Text, &number, &opt.Placement); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		if number.Valid {
			v := int(number.Int64)
			opt.Number = &v
		}
		if i, ok := index[questionID]; ok {
			items[i].Options = append(items[i].Options, opt)
		}
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}

	return items, nil
}

// LoadQuestion fetches one question of a questionnaire with its options.
func LoadQuestion(ctx context.Context, q Queryable, questionnaireID, questionID int64) (*Question, error) {
	items, err := LoadQuestions(ctx, q, questionnaireID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == questionID {
			return &items[i], nil
		}
	}
	return nil, ErrQuestionNotFound
}
