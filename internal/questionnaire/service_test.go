package questionnaire

import (
	"errors"
	"testing"

	"surveyhub/internal/schema"
)

func TestNormalizeOptionText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "All", want: "all"},
		{name: "markup stripped", in: "<b>None</b>", want: "none"},
		{name: "nested markup", in: `<span style="x"><i>Other</i></span>`, want: "other"},
		{name: "whitespace trimmed", in: "  all \n", want: "all"},
		{name: "regular text untouched", in: "Tehran", want: "tehran"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeOptionText(tc.in); got != tc.want {
				t.Fatalf("NormalizeOptionText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCheckSpecialOptionTexts(t *testing.T) {
	options := func(texts ...string) []OptionInput {
		out := make([]OptionInput, 0, len(texts))
		for _, text := range texts {
			out = append(out, OptionInput{Text: text})
		}
		return out
	}

	tests := []struct {
		name    string
		c       schema.ConstraintSet
		options []OptionInput
		ok      bool
	}{
		{
			name:    "no flags need no specials",
			c:       schema.ConstraintSet{},
			options: options("A", "B"),
			ok:      true,
		},
		{
			name:    "all flag satisfied by markup option",
			c:       schema.ConstraintSet{AllSelected: true},
			options: options("A", "<b>All</b>"),
			ok:      true,
		},
		{
			name:    "none flag without matching option",
			c:       schema.ConstraintSet{NothingSelected: true},
			options: options("A", "B"),
			ok:      false,
		},
		{
			name:    "other flag without matching option",
			c:       schema.ConstraintSet{OtherOptions: true},
			options: options("A"),
			ok:      false,
		},
		{
			name:    "every flag satisfied",
			c:       schema.ConstraintSet{AllSelected: true, NothingSelected: true, OtherOptions: true},
			options: options("A", "all", "None", "OTHER"),
			ok:      true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := checkSpecialOptionTexts(tc.c, tc.options)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("err = %v, want ErrInvalidInput", err)
				}
			}
		})
	}
}
