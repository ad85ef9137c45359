package schema

import (
	"encoding/json"
	"testing"
)

func TestAnswerKeyFor(t *testing.T) {
	tests := []struct {
		tag  Variant
		want string
	}{
		{VariantOptional, "selected_options"},
		{VariantDropDown, "selected_options"},
		{VariantSort, "sorted_options"},
		{VariantTextAnswer, "text_answer"},
		{VariantNumberAnswer, "number_answer"},
		{VariantIntegerRange, "integer_range"},
		{VariantIntegerSelective, "integer_selective"},
		{VariantEmail, "email_field"},
		{VariantLink, "link_field"},
		{VariantFile, "file_field"},
	}
	for _, tc := range tests {
		if got := AnswerKeyFor(tc.tag); got != tc.want {
			t.Fatalf("AnswerKeyFor(%s) = %q, want %q", tc.tag, got, tc.want)
		}
	}
}

func TestUnknownVariantPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic for unknown variant")
		}
		if _, ok := r.(*SchemaError); !ok {
			t.Fatalf("expected *SchemaError panic, got %T", r)
		}
	}()
	AnswerKeyFor(Variant("matrix"))
}

func TestGroupIsNotAnswerable(t *testing.T) {
	if Answerable(VariantGroup) {
		t.Fatalf("group must not be answerable")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic when asking for a group answer key")
		}
	}()
	AnswerKeyFor(VariantGroup)
}

func TestValidateConstraints(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		tag     Variant
		c       ConstraintSet
		wantErr bool
	}{
		{name: "single choice ignores bounds", tag: VariantOptional, c: ConstraintSet{MultipleChoice: false}},
		{name: "multi choice valid bounds", tag: VariantOptional, c: ConstraintSet{MultipleChoice: true, MinSelectedOptions: 1, MaxSelectedOptions: 3}},
		{name: "multi choice zero min", tag: VariantOptional, c: ConstraintSet{MultipleChoice: true, MinSelectedOptions: 0, MaxSelectedOptions: 3}, wantErr: true},
		{name: "multi choice inverted", tag: VariantDropDown, c: ConstraintSet{MultipleChoice: true, MinSelectedOptions: 4, MaxSelectedOptions: 2}, wantErr: true},
		{name: "text inverted lengths", tag: VariantTextAnswer, c: ConstraintSet{MinLength: 10, MaxLength: 2}, wantErr: true},
		{name: "text unknown pattern", tag: VariantTextAnswer, c: ConstraintSet{Pattern: "hex"}, wantErr: true},
		{name: "text jalali pattern", tag: VariantTextAnswer, c: ConstraintSet{Pattern: PatternJalaliDate}},
		{name: "number inverted bounds", tag: VariantNumberAnswer, c: ConstraintSet{Min: f(9), Max: f(1)}, wantErr: true},
		{name: "number open bounds", tag: VariantNumberAnswer, c: ConstraintSet{Min: f(1)}},
		{name: "range max below 3", tag: VariantIntegerRange, c: ConstraintSet{Min: f(1), Max: f(2)}, wantErr: true},
		{name: "range max above 11", tag: VariantIntegerRange, c: ConstraintSet{Min: f(1), Max: f(12)}, wantErr: true},
		{name: "range max at 11", tag: VariantIntegerRange, c: ConstraintSet{Min: f(1), Max: f(11)}},
		{name: "file zero volume", tag: VariantFile, c: ConstraintSet{}, wantErr: true},
		{name: "file valid volume", tag: VariantFile, c: ConstraintSet{MaxVolume: 5}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateConstraints(tc.tag, tc.c)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestParseConstraintsRoundTrip(t *testing.T) {
	raw := json.RawMessage(`{"multiple_choice":true,"min_selected_options":1,"max_selected_options":2,"other_options":true}`)
	c, err := ParseConstraints(VariantOptional, raw)
	if err != nil {
		t.Fatalf("parse constraints: %v", err)
	}
	if !c.MultipleChoice || c.MinSelectedOptions != 1 || c.MaxSelectedOptions != 2 || !c.OtherOptions {
		t.Fatalf("unexpected constraint set: %+v", c)
	}

	if _, err := ParseConstraints(VariantOptional, json.RawMessage(`{`)); err == nil {
		t.Fatalf("expected error for malformed constraints json")
	}
}

func TestMaxVolumeBytes(t *testing.T) {
	c := ConstraintSet{MaxVolume: 2}
	if got := c.MaxVolumeBytes(); got != 2*1024*1024 {
		t.Fatalf("expected 2 MiB in bytes, got %d", got)
	}
}
