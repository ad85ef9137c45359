package answer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAnswerSetNotFound   = errors.New("answer set not found")
	ErrQuestionNotFound    = errors.New("question not found in questionnaire")
	ErrQuestionnaireClosed = errors.New("questionnaire is not accepting answers")
	ErrAccessCodeRequired  = errors.New("access code required")
	ErrAccessCodeInvalid   = errors.New("access code invalid")
)

// FieldIssue is one user-correctable problem with a submitted answer.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every independent rule violation for a single
// question. Rules are checked exhaustively instead of stopping at the first
// failure, so a caller can render all of a question's problems at once.
type ValidationError struct {
	QuestionID int64        `json:"question_id"`
	Issues     []FieldIssue `json:"issues"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Message)
	}
	return fmt.Sprintf("question %d: %s", e.QuestionID, strings.Join(parts, "; "))
}

func (e *ValidationError) add(field, format string, args ...interface{}) {
	e.Issues = append(e.Issues, FieldIssue{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) empty() bool { return len(e.Issues) == 0 }

// SubmitError is the batch-level failure shape: every failed question keeps
// its own issue list so the caller can render all fields simultaneously.
type SubmitError struct {
	PerQuestion map[int64][]FieldIssue `json:"errors"`
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("answer submission rejected for %d question(s)", len(e.PerQuestion))
}
