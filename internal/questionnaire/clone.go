package questionnaire

import (
	"context"
	"encoding/json"
	"fmt"

	"surveyhub/internal/schema"

	"github.com/google/uuid"
)

type CloneInput struct {
	TemplateUID uuid.UUID
	NewOwnerID  int64
	FolderID    *int64
}

// Clone deep-copies a questionnaire for a new owner: scalar fields, every
// non-group question with its variant constraints and options, then the
// groups themselves with the copied children re-parented onto them. The copy
// runs in one transaction so a failure anywhere leaves nothing behind.
//
// Children are cloned before their groups: a child's clone must exist before
// it can be attached, while the group row itself is cheap to create last.
func (s *Service) Clone(ctx context.Context, in CloneInput) (*Questionnaire, error) {
	if in.NewOwnerID <= 0 {
		return nil, ErrInvalidInput
	}

	template, err := LoadByUID(ctx, s.db, in.TemplateUID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin clone tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	questions, err := LoadQuestions(ctx, tx, template.ID)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO questionnaires (
			uid, owner_id, folder_id, name, is_active,
			pub_date, end_date, timer_seconds, access_code_hash,
			welcome_page, thanks_page, created_at, updated_at
		)
		SELECT $1, $2, $3, 'Copy of ' || name, is_active,
			pub_date, end_date, timer_seconds, access_code_hash,
			welcome_page, thanks_page, now(), now()
		FROM questionnaires
		WHERE id = $4
		RETURNING `+questionnaireColumns+`
	`, uuid.New(), in.NewOwnerID, in.FolderID, template.ID)
	clone, err := scanQuestionnaire(row)
	if err != nil {
		return nil, fmt.Errorf("insert questionnaire copy: %w", err)
	}

	groups := make(map[int64]Question)
	for _, q := range questions {
		if q.Variant == schema.VariantGroup {
			groups[q.ID] = q
		}
	}

	// First pass: clone the answerable questions, remembering which original
	// group each copy belonged to.
	copiedByGroup := make(map[int64][]int64)
	groupOrder := make([]int64, 0)
	for _, q := range questions {
		if q.Variant == schema.VariantGroup {
			continue
		}
		newID, err := cloneQuestion(ctx, tx, clone.ID, q, nil)
		if err != nil {
			return nil, err
		}
		if q.GroupID != nil {
			if _, seen := copiedByGroup[*q.GroupID]; !seen {
				groupOrder = append(groupOrder, *q.GroupID)
			}
			copiedByGroup[*q.GroupID] = append(copiedByGroup[*q.GroupID], newID)
		}
	}

	// Second pass: clone each encountered group and re-parent its copied
	// children onto the fresh group id.
	for _, origGroupID := range groupOrder {
		group, ok := groups[origGroupID]
		if !ok {
			return nil, fmt.Errorf("%w: group %d referenced by template children", ErrGroupNotFound, origGroupID)
		}
		newGroupID, err := cloneQuestion(ctx, tx, clone.ID, group, nil)
		if err != nil {
			return nil, err
		}
		for _, childID := range copiedByGroup[origGroupID] {
			if _, err := tx.ExecContext(ctx, `
				UPDATE questions SET group_id = $2 WHERE id = $1
			`, childID, newGroupID); err != nil {
				return nil, fmt.Errorf("re-parent cloned question: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit clone: %w", err)
	}
	return clone, nil
}

func cloneQuestion(ctx context.Context, q Queryable, newQuestionnaireID int64, src Question, groupID *int64) (int64, error) {
	constraintsJSON, err := json.Marshal(src.Constraints)
	if err != nil {
		return 0, fmt.Errorf("encode constraints: %w", err)
	}

	var newID int64
	err = q.QueryRowContext(ctx, `
		INSERT INTO questions (
			questionnaire_id, question_type, placement, title, description,
			is_required, is_finalized, media, group_id, level, constraints,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, now(), now())
		RETURNING id
	`, newQuestionnaireID, string(src.Variant), src.Placement, src.Title, src.Description,
		src.Required, src.Finalized, src.Media, groupID, src.Level, constraintsJSON).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("insert question copy: %w", err)
	}

	for _, opt := range src.Options {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO question_options (question_id, text, number, placement)
			VALUES ($1, $2, $3, $4)
		`, newID, opt.Text, opt.Number, opt.Placement); err != nil {
			return 0, fmt.Errorf("insert option copy: %w", err)
		}
	}
	return newID, nil
}
