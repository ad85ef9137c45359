package questionnaire

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"surveyhub/internal/schema"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Special option texts gated by the optional-variant additional_options
// flags. Matching is markup-stripped and case-insensitive.
const (
	SpecialAllText   = "all"
	SpecialNoneText  = "none"
	SpecialOtherText = "other"
)

var markupTags = regexp.MustCompile(`<[^>]*>`)

// NormalizeOptionText strips markup and folds case so option texts can be
// compared against the special literals.
func NormalizeOptionText(s string) string {
	return strings.ToLower(strings.TrimSpace(markupTags.ReplaceAllString(s, "")))
}

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

type CreateQuestionnaireInput struct {
	OwnerID      int64
	FolderID     *int64
	Name         string
	PubDate      *time.Time
	EndDate      *time.Time
	TimerSeconds *int
	AccessCode   string
	WelcomePage  json.RawMessage
	ThanksPage   json.RawMessage
}

func (s *Service) CreateQuestionnaire(ctx context.Context, in CreateQuestionnaireInput) (*Questionnaire, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.OwnerID <= 0 || in.Name == "" {
		return nil, ErrInvalidInput
	}
	if in.PubDate != nil && in.EndDate != nil && in.EndDate.Before(*in.PubDate) {
		return nil, fmt.Errorf("%w: end_date must not precede pub_date", ErrInvalidInput)
	}
	if in.TimerSeconds != nil && *in.TimerSeconds <= 0 {
		return nil, fmt.Errorf("%w: timer must be positive", ErrInvalidInput)
	}

	var accessHash interface{}
	if code := strings.TrimSpace(in.AccessCode); code != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash access code: %w", err)
		}
		accessHash = string(hash)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO questionnaires (
			uid, owner_id, folder_id, name, is_active,
			pub_date, end_date, timer_seconds, access_code_hash,
			welcome_page, thanks_page, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, TRUE,
			$5, $6, $7, $8,
			$9, $10, now(), now()
		)
		RETURNING `+questionnaireColumns+`
	`, uuid.New(), in.OwnerID, in.FolderID, in.Name,
		in.PubDate, in.EndDate, in.TimerSeconds, accessHash,
		nullableJSON(in.WelcomePage), nullableJSON(in.ThanksPage))

	out, err := scanQuestionnaire(row)
	if err != nil {
		return nil, fmt.Errorf("insert questionnaire: %w", err)
	}
	return out, nil
}

func (s *Service) GetByUID(ctx context.Context, uid uuid.UUID) (*Questionnaire, error) {
	return LoadByUID(ctx, s.db, uid)
}

func (s *Service) Questions(ctx context.Context, uid uuid.UUID) ([]Question, error) {
	qn, err := LoadByUID(ctx, s.db, uid)
	if err != nil {
		return nil, err
	}
	return LoadQuestions(ctx, s.db, qn.ID)
}

// SoftDelete hides the questionnaire from every listing while keeping the
// rows for audit.
func (s *Service) SoftDelete(ctx context.Context, uid uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE questionnaires
		SET is_deleted = TRUE, updated_at = now()
		WHERE uid = $1 AND is_deleted = FALSE
	`, uid)
	if err != nil {
		return fmt.Errorf("soft delete questionnaire: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete questionnaire: %w", err)
	}
	if n == 0 {
		return ErrQuestionnaireNotFound
	}
	return nil
}

type OptionInput struct {
	Text   string `json:"text"`
	Number *int   `json:"number,omitempty"`
}

type AddQuestionInput struct {
	Variant     string          `json:"question_type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Required    bool            `json:"is_required"`
	Media       *string         `json:"media,omitempty"`
	GroupID     *int64          `json:"group_id,omitempty"`
	Level       int             `json:"level"`
	Constraints json.RawMessage `json:"constraints"`
	Options     []OptionInput   `json:"options"`
}

// AddQuestion validates a new question against the variant catalog, appends
// it after the current placements, and backfills a placeholder answer row
// into every existing answer-set so the set's answer collection stays keyed
// by the full question list.
func (s *Service) AddQuestion(ctx context.Context, questionnaireUID uuid.UUID, in AddQuestionInput) (*Question, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	variant := schema.Variant(strings.TrimSpace(strings.ToLower(in.Variant)))
	if !schema.Known(variant) {
		return nil, fmt.Errorf("%w: unknown question type %q", ErrInvalidInput, in.Variant)
	}
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Level < 0 || in.Level > 3 {
		return nil, fmt.Errorf("%w: level must be 0..3", ErrInvalidInput)
	}

	constraints, err := schema.ParseConstraints(variant, in.Constraints)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := schema.ValidateConstraints(variant, constraints); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if schema.HasOptions(variant) {
		if len(in.Options) == 0 {
			return nil, fmt.Errorf("%w: %s questions need at least one option", ErrInvalidInput, variant)
		}
		for _, o := range in.Options {
			if strings.TrimSpace(o.Text) == "" {
				return nil, fmt.Errorf("%w: option text cannot be empty", ErrInvalidInput)
			}
		}
	} else if len(in.Options) > 0 {
		return nil, fmt.Errorf("%w: %s questions do not carry options", ErrInvalidInput, variant)
	}
	if variant == schema.VariantOptional {
		if err := checkSpecialOptionTexts(constraints, in.Options); err != nil {
			return nil, err
		}
	}
	if variant == schema.VariantGroup && in.GroupID != nil {
		return nil, ErrNestedGroup
	}

	qn, err := LoadByUID(ctx, s.db, questionnaireUID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add question tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if in.GroupID != nil {
		var groupType string
		err := tx.QueryRowContext(ctx, `
			SELECT question_type FROM questions
			WHERE id = $1 AND questionnaire_id = $2
		`, *in.GroupID, qn.ID).Scan(&groupType)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrGroupNotFound
			}
			return nil, fmt.Errorf("load parent group: %w", err)
		}
		if schema.Variant(groupType) != schema.VariantGroup {
			return nil, ErrNotAGroup
		}
	}

	constraintsJSON, err := json.Marshal(constraints)
	if err != nil {
		return nil, fmt.Errorf("encode constraints: %w", err)
	}

	out := Question{
		QuestionnaireID: qn.ID,
		Variant:         variant,
		Title:           in.Title,
		Description:     in.Description,
		Required:        in.Required,
		Media:           in.Media,
		GroupID:         in.GroupID,
		Level:           in.Level,
		Constraints:     constraints,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO questions (
			questionnaire_id, question_type, placement, title, description,
			is_required, is_finalized, media, group_id, level, constraints,
			created_at, updated_at
		) VALUES (
			$1, $2,
			COALESCE((SELECT MAX(placement) FROM questions WHERE questionnaire_id = $1), 0) + 1,
			$3, $4, $5, FALSE, $6, $7, $8, $9::jsonb, now(), now()
		)
		RETURNING id, placement
	`, qn.ID, string(variant), in.Title, in.Description,
		in.Required, in.Media, in.GroupID, in.Level, constraintsJSON).Scan(&out.ID, &out.Placement)
	if err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}

	for i, o := range in.Options {
		var opt Option
		opt.Text = strings.TrimSpace(o.Text)
		opt.Number = o.Number
		opt.Placement = i + 1
		err := tx.QueryRowContext(ctx, `
			INSERT INTO question_options (question_id, text, number, placement)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, out.ID, opt.Text, o.Number, opt.Placement).Scan(&opt.ID)
		if err != nil {
			return nil, fmt.Errorf("insert option: %w", err)
		}
		out.Options = append(out.Options, opt)
	}

	if schema.Answerable(variant) {
		if err := onQuestionAdded(ctx, tx, qn.ID, out.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add question: %w", err)
	}
	return &out, nil
}

// onQuestionAdded keeps every answer-set aligned with the question list by
// inserting an empty placeholder row where one is missing. Aggregation treats
// a NULL payload as unanswered, never as zero.
func onQuestionAdded(ctx context.Context, tx *sql.Tx, questionnaireID, questionID int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO answers (answer_set_id, question_id, payload, updated_at)
		SELECT s.id, $2, NULL, now()
		FROM answer_sets s
		WHERE s.questionnaire_id = $1
		ON CONFLICT (answer_set_id, question_id) DO NOTHING
	`, questionnaireID, questionID)
	if err != nil {
		return fmt.Errorf("backfill placeholder answers: %w", err)
	}
	return nil
}

func checkSpecialOptionTexts(c schema.ConstraintSet, options []OptionInput) error {
	texts := make(map[string]bool, len(options))
	for _, o := range options {
		texts[NormalizeOptionText(o.Text)] = true
	}
	required := map[string]bool{}
	if c.AllSelected {
		required[SpecialAllText] = true
	}
	if c.NothingSelected {
		required[SpecialNoneText] = true
	}
	if c.OtherOptions {
		required[SpecialOtherText] = true
	}
	for text := range required {
		if !texts[text] {
			return fmt.Errorf("%w: enabling the %q flag requires an option with that text", ErrInvalidInput, text)
		}
	}
	return nil
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
