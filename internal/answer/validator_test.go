package answer

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"surveyhub/internal/questionnaire"
	"surveyhub/internal/schema"
)

func choiceQuestion(variant schema.Variant, required bool, c schema.ConstraintSet, optionTexts ...string) *questionnaire.Question {
	q := &questionnaire.Question{
		ID:          10,
		Variant:     variant,
		Required:    required,
		Constraints: c,
	}
	for i, text := range optionTexts {
		q.Options = append(q.Options, questionnaire.Option{
			ID:        int64(100 + i),
			Text:      text,
			Placement: i + 1,
		})
	}
	return q
}

func plainQuestion(variant schema.Variant, required bool, c schema.ConstraintSet) *questionnaire.Question {
	return &questionnaire.Question{ID: 20, Variant: variant, Required: required, Constraints: c}
}

func assertIssue(t *testing.T, verr *ValidationError, field, fragment string) {
	t.Helper()
	if verr == nil {
		t.Fatalf("expected a validation error mentioning %q on %q, got none", fragment, field)
	}
	for _, issue := range verr.Issues {
		if issue.Field == field && strings.Contains(issue.Message, fragment) {
			return
		}
	}
	t.Fatalf("no issue on %q containing %q, got %v", field, fragment, verr.Issues)
}

func floatPtr(v float64) *float64 { return &v }

func TestValidateSelection_SingleChoice(t *testing.T) {
	q := choiceQuestion(schema.VariantOptional, true, schema.ConstraintSet{}, "Red", "Green", "Blue")

	t.Run("one option passes", func(t *testing.T) {
		payload, verr := Validate(q, json.RawMessage(`{"selected_options":[101]}`), nil, SetContext{})
		if verr != nil {
			t.Fatalf("unexpected error: %v", verr)
		}
		sel, ok := payload.(SelectionPayload)
		if !ok {
			t.Fatalf("expected SelectionPayload, got %T", payload)
		}
		if len(sel.Options) != 1 || sel.Options[0].ID != 101 || sel.Options[0].Text != "Green" {
			t.Fatalf("unexpected snapshot: %+v", sel.Options)
		}
	})

	t.Run("two options rejected", func(t *testing.T) {
		_, verr := Validate(q, json.RawMessage(`{"selected_options":[100,101]}`), nil, SetContext{})
		assertIssue(t, verr, "selected_options", "only one option")
	})

	t.Run("unknown option rejected", func(t *testing.T) {
		_, verr := Validate(q, json.RawMessage(`{"selected_options":[999]}`), nil, SetContext{})
		assertIssue(t, verr, "selected_options", "does not belong")
	})

	t.Run("duplicate option rejected", func(t *testing.T) {
		_, verr := Validate(q, json.RawMessage(`{"selected_options":[100,100]}`), nil, SetContext{})
		assertIssue(t, verr, "selected_options", "more than once")
	})

	t.Run("required empty rejected", func(t *testing.T) {
		_, verr := Validate(q, json.RawMessage(`{"selected_options":[]}`), nil, SetContext{})
		assertIssue(t, verr, "selected_options", "required")
	})
}

func TestValidateSelection_MultiChoiceBounds(t *testing.T) {
	q := choiceQuestion(schema.VariantOptional, false, schema.ConstraintSet{
		MultipleChoice:     true,
		MinSelectedOptions: 2,
		MaxSelectedOptions: 3,
	}, "A", "B", "C", "D")

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "below min", raw: `{"selected_options":[100]}`, want: "at least 2"},
		{name: "above max", raw: `{"selected_options":[100,101,102,103]}`, want: "at most 3"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, verr := Validate(q, json.RawMessage(tc.raw), nil, SetContext{})
			assertIssue(t, verr, "selected_options", tc.want)
		})
	}

	t.Run("within bounds passes", func(t *testing.T) {
		payload, verr := Validate(q, json.RawMessage(`{"selected_options":[100,102]}`), nil, SetContext{})
		if verr != nil {
			t.Fatalf("unexpected error: %v", verr)
		}
		if len(payload.(SelectionPayload).Options) != 2 {
			t.Fatalf("expected 2 snapshots")
		}
	})
}

func TestValidateSelection_SpecialOptions(t *testing.T) {
	q := choiceQuestion(schema.VariantOptional, false, schema.ConstraintSet{
		MultipleChoice:     true,
		MinSelectedOptions: 1,
		AllSelected:        true,
		OtherOptions:       true,
	}, "A", "B", "  <b>All</b> ", "Other")

	t.Run("special combined with regular rejected", func(t *testing.T) {
		_, verr := Validate(q, json.RawMessage(`{"selected_options":[100,102]}`), nil, SetContext{})
		assertIssue(t, verr, "selected_options", "cannot be combined")
	})

	t.Run("special alone passes", func(t *testing.T) {
		_, verr := Validate(q, json.RawMessage(`{"selected_options":[102]}`), nil, SetContext{})
		if verr != nil {
			t.Fatalf("unexpected error: %v", verr)
		}
	})

	t.Run("other without text rejected", func(t *testing.T) {
		_, verr := Validate(q, json.RawMessage(`{"selected_options":[103]}`), nil, SetContext{})
		assertIssue(t, verr, "other_text", "requires a text")
	})

	t.Run("other with text keeps it", func(t *testing.T) {
		payload, verr := Validate(q, json.RawMessage(`{"selected_options":[103],"other_text":"something else"}`), nil, SetContext{})
		if verr != nil {
			t.Fatalf("unexpected error: %v", verr)
		}
		if got := payload.(SelectionPayload).OtherText; got != "something else" {
			t.Fatalf("other text = %q", got)
		}
	})

	t.Run("other text dropped when other not selected", func(t *testing.T) {
		payload, verr := Validate(q, json.RawMessage(`{"selected_options":[100],"other_text":"stray"}`), nil, SetContext{})
		if verr != nil {
			t.Fatalf("unexpected error: %v", verr)
		}
		if got := payload.(SelectionPayload).OtherText; got != "" {
			t.Fatalf("stray other text kept: %q", got)
		}
	})
}

func TestValidateSort(t *testing.T) {
	q := choiceQuestion(schema.VariantSort, true, schema.ConstraintSet{}, "First", "Second", "Third")

	t.Run("full permutation passes", func(t *testing.T) {
		payload, verr := Validate(q, json.RawMessage(`{"sorted_options":[102,100,101]}`), nil, SetContext{})
		if verr != nil {
			t.Fatalf("unexpected error: %v", verr)
		}
		got := payload.(SortPayload).Options
		if len(got) != 3 || got[0].ID != 102 || got[1].ID != 100 {
			t.Fatalf("order not preserved: %+v", got)
		}
	})

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "partial order", raw: `{"sorted_options":[100,101]}`, want: "all 3 options"},
		{name: "duplicate entry", raw: `{"sorted_options":[100,100,101]}`, want: "more than once"},
		{name: "foreign option", raw: `{"sorted_options":[100,101,999]}`, want: "does not belong"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, verr := Validate(q, json.RawMessage(tc.raw), nil, SetContext{})
			assertIssue(t, verr, "sorted_options", tc.want)
		})
	}
}

func TestValidateText(t *testing.T) {
	q := plainQuestion(schema.VariantTextAnswer, true, schema.ConstraintSet{
		MinLength: 3,
		MaxLength: 5,
		Pattern:   schema.PatternEnglishLetters,
	})

	tests := []struct {
		name  string
		raw   string
		field string
		want  string
	}{
		{name: "too short", raw: `{"text_answer":"ab"}`, field: "text_answer", want: "at least 3"},
		{name: "too long", raw: `{"text_answer":"abcdef"}`, field: "text_answer", want: "at most 5"},
		{name: "pattern mismatch", raw: `{"text_answer":"ab3"}`, field: "text_answer", want: "English letters"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, verr := Validate(q, json.RawMessage(tc.raw), nil, SetContext{})
			assertIssue(t, verr, tc.field, tc.want)
		})
	}

	t.Run("short and wrong pattern reports both", func(t *testing.T) {
		_, verr := Validate(q, json.RawMessage(`{"text_answer":"a1"}`), nil, SetContext{})
		if verr == nil || len(verr.Issues) != 2 {
			t.Fatalf("expected 2 issues, got %v", verr)
		}
	})

	t.Run("valid passes", func(t *testing.T) {
		payload, verr := Validate(q, json.RawMessage(`{"text_answer":"abcd"}`), nil, SetContext{})
		if verr != nil {
			t.Fatalf("unexpected error: %v", verr)
		}
		if payload.(TextPayload).Value != "abcd" {
			t.Fatalf("value mangled")
		}
	})

	t.Run("length bounds skipped for date pattern", func(t *testing.T) {
		dq := plainQuestion(schema.VariantTextAnswer, true, schema.ConstraintSet{
			MinLength: 20,
			Pattern:   schema.PatternGeorgianDate,
		})
		payload, verr := Validate(dq, json.RawMessage(`{"text_answer":"2026-08-30"}`), nil, SetContext{})
		if verr != nil {
			t.Fatalf("unexpected error: %v", verr)
		}
		if payload == nil {
			t.Fatalf("expected payload")
		}
	})
}

func TestValidateNumeric(t *testing.T) {
	t.Run("number answer bounds are inclusive", func(t *testing.T) {
		q := plainQuestion(schema.VariantNumberAnswer, true, schema.ConstraintSet{
			Min: floatPtr(1), Max: floatPtr(10), AcceptFloat: true,
		})
		for _, raw := range []string{`{"number_answer":1}`, `{"number_answer":10}`, `{"number_answer":5.5}`} {
			if _, verr := Validate(q, json.RawMessage(raw), nil, SetContext{}); verr != nil {
				t.Fatalf("%s rejected: %v", raw, verr)
			}
		}
		_, verr := Validate(q, json.RawMessage(`{"number_answer":10.01}`), nil, SetContext{})
		assertIssue(t, verr, "number_answer", "at most 10")
		_, verr = Validate(q, json.RawMessage(`{"number_answer":0.5}`), nil, SetContext{})
		assertIssue(t, verr, "number_answer", "at least 1")
	})

	t.Run("float rejected without accept_float", func(t *testing.T) {
		q := plainQuestion(schema.VariantNumberAnswer, true, schema.ConstraintSet{})
		_, verr := Validate(q, json.RawMessage(`{"number_answer":2.5}`), nil, SetContext{})
		assertIssue(t, verr, "number_answer", "fractional")
	})

	t.Run("negative rejected without accept_negative", func(t *testing.T) {
		q := plainQuestion(schema.VariantNumberAnswer, true, schema.ConstraintSet{})
		_, verr := Validate(q, json.RawMessage(`{"number_answer":-3}`), nil, SetContext{})
		assertIssue(t, verr, "number_answer", "negative")
	})

	t.Run("negative accepted with accept_negative", func(t *testing.T) {
		q := plainQuestion(schema.VariantNumberAnswer, true, schema.ConstraintSet{AcceptNegative: true})
		if _, verr := Validate(q, json.RawMessage(`{"number_answer":-3}`), nil, SetContext{}); verr != nil {
			t.Fatalf("unexpected error: %v", verr)
		}
	})

	t.Run("numeric string accepted", func(t *testing.T) {
		q := plainQuestion(schema.VariantNumberAnswer, true, schema.ConstraintSet{})
		payload, verr := Validate(q, json.RawMessage(`{"number_answer":"42"}`), nil, SetContext{})
		if verr != nil {
			t.Fatalf("unexpected error: %v", verr)
		}
		if payload.(NumberPayload).Value != 42 {
			t.Fatalf("value = %v", payload.(NumberPayload).Value)
		}
	})

	t.Run("integer range rejects fractions", func(t *testing.T) {
		q := plainQuestion(schema.VariantIntegerRange, true, schema.ConstraintSet{
			Min: floatPtr(1), Max: floatPtr(5),
		})
		_, verr := Validate(q, json.RawMessage(`{"integer_range":2.5}`), nil, SetContext{})
		assertIssue(t, verr, "integer_range", "whole number")
	})

	t.Run("integer selective rejects negatives", func(t *testing.T) {
		q := plainQuestion(schema.VariantIntegerSelective, true, schema.ConstraintSet{})
		_, verr := Validate(q, json.RawMessage(`{"integer_selective":-1}`), nil, SetContext{})
		assertIssue(t, verr, "integer_selective", "at least 0")
	})
}

func TestValidateStringVariants(t *testing.T) {
	t.Run("email", func(t *testing.T) {
		q := plainQuestion(schema.VariantEmail, true, schema.ConstraintSet{})
		if _, verr := Validate(q, json.RawMessage(`{"email_field":"user@example.com"}`), nil, SetContext{}); verr != nil {
			t.Fatalf("unexpected error: %v", verr)
		}
		_, verr := Validate(q, json.RawMessage(`{"email_field":"not-an-email"}`), nil, SetContext{})
		assertIssue(t, verr, "email_field", "email")
	})

	t.Run("link", func(t *testing.T) {
		q := plainQuestion(schema.VariantLink, true, schema.ConstraintSet{})
		for _, v := range []string{"https://example.com/page", "example.org"} {
			raw, _ := json.Marshal(map[string]string{"link_field": v})
			if _, verr := Validate(q, raw, nil, SetContext{}); verr != nil {
				t.Fatalf("%q rejected: %v", v, verr)
			}
		}
		_, verr := Validate(q, json.RawMessage(`{"link_field":"not a link"}`), nil, SetContext{})
		assertIssue(t, verr, "link_field", "link")
	})
}

func TestValidateFile(t *testing.T) {
	mb := 2
	q := plainQuestion(schema.VariantFile, true, schema.ConstraintSet{MaxVolume: mb})

	t.Run("within limit passes", func(t *testing.T) {
		payload, verr := Validate(q, nil, &FileMeta{Name: "a.pdf", Size: 1 << 20}, SetContext{})
		if verr != nil {
			t.Fatalf("unexpected error: %v", verr)
		}
		if payload.(FilePayload).Name != "a.pdf" {
			t.Fatalf("name lost")
		}
	})

	t.Run("over limit rejected", func(t *testing.T) {
		_, verr := Validate(q, nil, &FileMeta{Name: "big.pdf", Size: 3 << 20}, SetContext{})
		assertIssue(t, verr, "file_field", "exceeds")
	})

	t.Run("required without file or prior rejected", func(t *testing.T) {
		_, verr := Validate(q, nil, nil, SetContext{})
		assertIssue(t, verr, "file_field", "requires a file")
	})

	t.Run("required satisfied by prior file", func(t *testing.T) {
		payload, verr := Validate(q, nil, nil, SetContext{HasPriorFile: true})
		if verr != nil {
			t.Fatalf("unexpected error: %v", verr)
		}
		if payload != nil {
			t.Fatalf("expected nothing to store, got %T", payload)
		}
	})
}

func TestValidateAbsentAnswers(t *testing.T) {
	t.Run("optional question skipped", func(t *testing.T) {
		q := plainQuestion(schema.VariantTextAnswer, false, schema.ConstraintSet{})
		payload, verr := Validate(q, json.RawMessage(`null`), nil, SetContext{})
		if verr != nil || payload != nil {
			t.Fatalf("expected (nil, nil), got %v %v", payload, verr)
		}
	})

	t.Run("required question rejected", func(t *testing.T) {
		q := plainQuestion(schema.VariantTextAnswer, true, schema.ConstraintSet{})
		_, verr := Validate(q, nil, nil, SetContext{})
		assertIssue(t, verr, "text_answer", "required")
	})

	t.Run("group never answerable", func(t *testing.T) {
		q := plainQuestion(schema.VariantGroup, false, schema.ConstraintSet{})
		_, verr := Validate(q, json.RawMessage(`{}`), nil, SetContext{})
		assertIssue(t, verr, "question_type", "not answerable")
	})
}

func TestValidateSubmissionWindow(t *testing.T) {
	q := plainQuestion(schema.VariantTextAnswer, true, schema.ConstraintSet{})
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("inside window passes", func(t *testing.T) {
		sc := SetContext{AnsweredAt: started, TimerSeconds: 600, Now: started.Add(5 * time.Minute)}
		if _, verr := Validate(q, json.RawMessage(`{"text_answer":"hello"}`), nil, sc); verr != nil {
			t.Fatalf("unexpected error: %v", verr)
		}
	})

	t.Run("after deadline rejected", func(t *testing.T) {
		sc := SetContext{AnsweredAt: started, TimerSeconds: 600, Now: started.Add(11 * time.Minute)}
		_, verr := Validate(q, json.RawMessage(`{"text_answer":"hello"}`), nil, sc)
		assertIssue(t, verr, "answer_set", "expired")
	})

	t.Run("no timer means no deadline", func(t *testing.T) {
		sc := SetContext{AnsweredAt: started, Now: started.Add(1000 * time.Hour)}
		if _, verr := Validate(q, json.RawMessage(`{"text_answer":"hello"}`), nil, sc); verr != nil {
			t.Fatalf("unexpected error: %v", verr)
		}
	})
}
