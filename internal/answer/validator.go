package answer

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"surveyhub/internal/questionnaire"
	"surveyhub/internal/schema"
)

// FileMeta describes an uploaded blob; the bytes themselves go to the media
// store, validation only needs name and size.
type FileMeta struct {
	Name string
	Size int64
}

// SetContext carries the answer-set facts a single-question validation needs:
// when the respondent started, the questionnaire timer, and whether a file
// answer is already stored for this question.
type SetContext struct {
	AnsweredAt   time.Time
	TimerSeconds int
	HasPriorFile bool
	Now          time.Time
}

func (sc SetContext) now() time.Time {
	if sc.Now.IsZero() {
		return time.Now()
	}
	return sc.Now
}

// Validate checks a raw answer against its question's variant rules and, on
// success, returns the normalized payload with option texts snapshotted.
//
// A (nil, nil) result means there is nothing to store: the question was left
// unanswered and that is acceptable (not required, or a required file
// question already satisfied by a prior upload).
//
// All independent rules for a question are checked and collected into one
// ValidationError rather than stopping at the first failure.
func Validate(q *questionnaire.Question, raw json.RawMessage, file *FileMeta, sc SetContext) (Payload, *ValidationError) {
	verr := &ValidationError{QuestionID: q.ID}

	if !schema.Answerable(q.Variant) {
		verr.add("question_type", "group questions are not answerable")
		return nil, verr
	}

	if sc.TimerSeconds > 0 {
		deadline := sc.AnsweredAt.Add(time.Duration(sc.TimerSeconds) * time.Second)
		if sc.now().After(deadline) {
			verr.add("answer_set", "submission window has expired")
			return nil, verr
		}
	}

	if q.Variant == schema.VariantFile {
		return validateFile(q, file, sc, verr)
	}

	if answerAbsent(raw) {
		if q.Required {
			verr.add(schema.AnswerKeyFor(q.Variant), "an answer is required")
			return nil, verr
		}
		return nil, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		verr.add(schema.AnswerKeyFor(q.Variant), "malformed answer payload")
		return nil, verr
	}

	switch q.Variant {
	case schema.VariantOptional, schema.VariantDropDown:
		return validateSelection(q, doc, verr)
	case schema.VariantSort:
		return validateSort(q, doc, verr)
	case schema.VariantTextAnswer:
		return validateText(q, doc, verr)
	case schema.VariantNumberAnswer, schema.VariantIntegerRange, schema.VariantIntegerSelective:
		return validateNumeric(q, doc, verr)
	case schema.VariantEmail:
		return validateString(q, doc, verr, func(v string) string {
			if !validEmail(v) {
				return "value is not a valid email address"
			}
			return ""
		})
	case schema.VariantLink:
		return validateString(q, doc, verr, func(v string) string {
			if !validLink(v) {
				return "value is not a valid link"
			}
			return ""
		})
	default:
		panic(&schema.SchemaError{Tag: string(q.Variant), Reason: "no validator for variant"})
	}
}

func answerAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func validateSelection(q *questionnaire.Question, doc map[string]json.RawMessage, verr *ValidationError) (Payload, *ValidationError) {
	var ids []int64
	if rawIDs, ok := doc["selected_options"]; ok {
		if err := json.Unmarshal(rawIDs, &ids); err != nil {
			verr.add("selected_options", "selected_options must be a list of option ids")
			return nil, verr
		}
	}
	if len(ids) == 0 {
		if q.Required {
			verr.add("selected_options", "an answer is required")
			return nil, verr
		}
		return nil, nil
	}

	var otherText string
	if rawOther, ok := doc["other_text"]; ok {
		if err := json.Unmarshal(rawOther, &otherText); err != nil {
			verr.add("other_text", "other_text must be a string")
		}
	}

	c := q.Constraints
	snapshots := make([]OptionSnapshot, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	specialSelected := false
	otherSelected := false
	for _, id := range ids {
		if seen[id] {
			verr.add("selected_options", "option %d selected more than once", id)
			continue
		}
		seen[id] = true
		opt, ok := q.OptionByID(id)
		if !ok {
			verr.add("selected_options", "option %d does not belong to this question", id)
			continue
		}
		if q.Variant == schema.VariantOptional {
			switch questionnaire.NormalizeOptionText(opt.Text) {
			case questionnaire.SpecialAllText:
				if c.AllSelected {
					specialSelected = true
				}
			case questionnaire.SpecialNoneText:
				if c.NothingSelected {
					specialSelected = true
				}
			case questionnaire.SpecialOtherText:
				if c.OtherOptions {
					specialSelected = true
					otherSelected = true
				}
			}
		}
		snapshots = append(snapshots, OptionSnapshot{ID: opt.ID, Text: opt.Text, Number: opt.Number})
	}

	if !c.MultipleChoice && len(ids) > 1 {
		verr.add("selected_options", "only one option may be selected")
	}
	if c.MultipleChoice {
		if len(ids) < c.MinSelectedOptions {
			verr.add("selected_options", "at least %d option(s) must be selected", c.MinSelectedOptions)
		}
		if c.MaxSelectedOptions > 0 && len(ids) > c.MaxSelectedOptions {
			verr.add("selected_options", "at most %d option(s) may be selected", c.MaxSelectedOptions)
		}
	}
	if specialSelected && len(ids) > 1 {
		verr.add("selected_options", "all/none/other cannot be combined with other selections")
	}
	if otherSelected && strings.TrimSpace(otherText) == "" {
		verr.add("other_text", "selecting the other option requires a text")
	}
	if !otherSelected {
		otherText = ""
	}

	if !verr.empty() {
		return nil, verr
	}
	return SelectionPayload{Options: snapshots, OtherText: strings.TrimSpace(otherText)}, nil
}

func validateSort(q *questionnaire.Question, doc map[string]json.RawMessage, verr *ValidationError) (Payload, *ValidationError) {
	var ids []int64
	if rawIDs, ok := doc["sorted_options"]; ok {
		if err := json.Unmarshal(rawIDs, &ids); err != nil {
			verr.add("sorted_options", "sorted_options must be a list of option ids")
			return nil, verr
		}
	}
	if len(ids) == 0 {
		if q.Required {
			verr.add("sorted_options", "an answer is required")
			return nil, verr
		}
		return nil, nil
	}

	if len(ids) != len(q.Options) {
		verr.add("sorted_options", "answer must order all %d options", len(q.Options))
	}
	snapshots := make([]OptionSnapshot, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			verr.add("sorted_options", "option %d listed more than once", id)
			continue
		}
		seen[id] = true
		opt, ok := q.OptionByID(id)
		if !ok {
			verr.add("sorted_options", "option %d does not belong to this question", id)
			continue
		}
		snapshots = append(snapshots, OptionSnapshot{ID: opt.ID, Text: opt.Text, Number: opt.Number})
	}

	if !verr.empty() {
		return nil, verr
	}
	return SortPayload{Options: snapshots}, nil
}

func validateText(q *questionnaire.Question, doc map[string]json.RawMessage, verr *ValidationError) (Payload, *ValidationError) {
	key := schema.AnswerKeyFor(q.Variant)
	var value string
	if rawValue, ok := doc[key]; ok {
		if err := json.Unmarshal(rawValue, &value); err != nil {
			verr.add(key, "answer must be a string")
			return nil, verr
		}
	}
	if strings.TrimSpace(value) == "" {
		if q.Required {
			verr.add(key, "an answer is required")
			return nil, verr
		}
		return nil, nil
	}

	c := q.Constraints
	if schema.LengthBoundedPatterns[c.Pattern] || c.Pattern == "" {
		length := utf8.RuneCountInString(value)
		if c.MinLength > 0 && length < c.MinLength {
			verr.add(key, "answer must be at least %d characters", c.MinLength)
		}
		if c.MaxLength > 0 && length > c.MaxLength {
			verr.add(key, "answer must be at most %d characters", c.MaxLength)
		}
	}
	if msg := checkPattern(c.Pattern, value); msg != "" {
		verr.add(key, "%s", msg)
	}

	if !verr.empty() {
		return nil, verr
	}
	return TextPayload{Value: value}, nil
}

func validateNumeric(q *questionnaire.Question, doc map[string]json.RawMessage, verr *ValidationError) (Payload, *ValidationError) {
	key := schema.AnswerKeyFor(q.Variant)
	rawValue, ok := doc[key]
	if !ok || answerAbsent(rawValue) {
		if q.Required {
			verr.add(key, "an answer is required")
			return nil, verr
		}
		return nil, nil
	}
	value, err := decodeNumeric(rawValue)
	if err != nil {
		verr.add(key, "answer must be numeric")
		return nil, verr
	}

	c := q.Constraints
	integral := value == math.Trunc(value)
	switch q.Variant {
	case schema.VariantNumberAnswer:
		if !c.AcceptFloat && !integral {
			verr.add(key, "fractional values are not accepted")
		}
		if !c.AcceptNegative && value < 0 {
			verr.add(key, "negative values are not accepted")
		}
	case schema.VariantIntegerRange, schema.VariantIntegerSelective:
		if !integral {
			verr.add(key, "answer must be a whole number")
		}
	}
	// Bounds are inclusive on both ends.
	if c.Min != nil && value < *c.Min {
		verr.add(key, "answer must be at least %v", *c.Min)
	}
	if c.Max != nil && value > *c.Max {
		verr.add(key, "answer must be at most %v", *c.Max)
	}
	if q.Variant == schema.VariantIntegerSelective && value < 0 {
		verr.add(key, "answer must be at least 0")
	}

	if !verr.empty() {
		return nil, verr
	}
	return NumberPayload{Key: key, Value: value}, nil
}

func validateString(q *questionnaire.Question, doc map[string]json.RawMessage, verr *ValidationError, check func(string) string) (Payload, *ValidationError) {
	key := schema.AnswerKeyFor(q.Variant)
	var value string
	if rawValue, ok := doc[key]; ok {
		if err := json.Unmarshal(rawValue, &value); err != nil {
			verr.add(key, "answer must be a string")
			return nil, verr
		}
	}
	value = strings.TrimSpace(value)
	if value == "" {
		if q.Required {
			verr.add(key, "an answer is required")
			return nil, verr
		}
		return nil, nil
	}
	if msg := check(value); msg != "" {
		verr.add(key, "%s", msg)
		return nil, verr
	}
	return StringPayload{Key: key, Value: value}, nil
}

func validateFile(q *questionnaire.Question, file *FileMeta, sc SetContext, verr *ValidationError) (Payload, *ValidationError) {
	if file == nil {
		// A required file question stays satisfied by a previously stored
		// file when a resubmission omits the upload.
		if q.Required && !sc.HasPriorFile {
			verr.add("file_field", "this question requires a file")
			return nil, verr
		}
		return nil, nil
	}
	if file.Size < 0 {
		verr.add("file_field", "file size is invalid")
	}
	if limit := q.Constraints.MaxVolumeBytes(); limit > 0 && file.Size > limit {
		verr.add("file_field", "file exceeds the %d MB limit", q.Constraints.MaxVolume)
	}
	if !verr.empty() {
		return nil, verr
	}
	return FilePayload{Name: file.Name, Size: file.Size}, nil
}
