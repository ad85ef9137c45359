package questionnaire

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ReorderPlacements reassigns dense placement keys (1..n) over a
// questionnaire's questions and groups. IDs listed in the input come first in
// the given order; questions left out keep their relative order after them.
func (s *Service) ReorderPlacements(ctx context.Context, questionnaireUID uuid.UUID, orderedIDs []int64) error {
	if len(orderedIDs) == 0 {
		return fmt.Errorf("%w: empty placement order", ErrInvalidInput)
	}
	seen := make(map[int64]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if seen[id] {
			return fmt.Errorf("%w: duplicate question id %d", ErrInvalidInput, id)
		}
		seen[id] = true
	}

	qn, err := LoadByUID(ctx, s.db, questionnaireUID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM questions
		WHERE questionnaire_id = $1
		ORDER BY placement ASC, id ASC
	`, qn.ID)
	if err != nil {
		return fmt.Errorf("query questions for reorder: %w", err)
	}
	existing := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan question id: %w", err)
		}
		existing = append(existing, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate question ids: %w", err)
	}

	placements, err := densePlacements(orderedIDs, existing)
	if err != nil {
		return err
	}

	for id, placement := range placements {
		if _, err := tx.ExecContext(ctx, `
			UPDATE questions
			SET placement = $2, updated_at = now()
			WHERE id = $1
		`, id, placement); err != nil {
			return fmt.Errorf("update placement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder: %w", err)
	}
	return nil
}

// densePlacements computes the new placement for every existing question.
// Every ordered id must belong to the questionnaire.
func densePlacements(orderedIDs, existing []int64) (map[int64]int, error) {
	known := make(map[int64]bool, len(existing))
	for _, id := range existing {
		known[id] = true
	}
	for _, id := range orderedIDs {
		if !known[id] {
			return nil, fmt.Errorf("%w: question %d", ErrQuestionNotFound, id)
		}
	}

	listed := make(map[int64]bool, len(orderedIDs))
	out := make(map[int64]int, len(existing))
	next := 1
	for _, id := range orderedIDs {
		listed[id] = true
		out[id] = next
		next++
	}
	for _, id := range existing {
		if listed[id] {
			continue
		}
		out[id] = next
		next++
	}
	return out, nil
}
