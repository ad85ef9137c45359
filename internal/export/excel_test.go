package export

import (
	"testing"

	"surveyhub/internal/questionnaire"
	"surveyhub/internal/schema"
)

func TestCellText(t *testing.T) {
	choice := &questionnaire.Question{Variant: schema.VariantOptional}
	sorted := &questionnaire.Question{Variant: schema.VariantSort}
	text := &questionnaire.Question{Variant: schema.VariantTextAnswer}
	number := &questionnaire.Question{Variant: schema.VariantNumberAnswer}
	file := &questionnaire.Question{Variant: schema.VariantFile}

	tests := []struct {
		name string
		q    *questionnaire.Question
		raw  string
		want string
	}{
		{
			name: "selection joins texts",
			q:    choice,
			raw:  `{"selected_options":[{"id":1,"text":"Red"},{"id":2,"text":"Blue"}]}`,
			want: "Red, Blue",
		},
		{
			name: "selection appends other text",
			q:    choice,
			raw:  `{"selected_options":[{"id":3,"text":"Other"}],"other_text":"purple"}`,
			want: "Other (purple)",
		},
		{
			name: "sort keeps order",
			q:    sorted,
			raw:  `{"sorted_options":[{"id":2,"text":"B"},{"id":1,"text":"A"}]}`,
			want: "B > A",
		},
		{
			name: "text passes through",
			q:    text,
			raw:  `{"text_answer":"hello"}`,
			want: "hello",
		},
		{
			name: "number without trailing zeros",
			q:    number,
			raw:  `{"number_answer":2.5}`,
			want: "2.5",
		},
		{
			name: "file exports its name",
			q:    file,
			raw:  `{"file_field":{"name":"cv.pdf","size":1024}}`,
			want: "cv.pdf",
		},
		{
			name: "empty payload empty cell",
			q:    text,
			raw:  "",
			want: "",
		},
		{
			name: "malformed payload empty cell",
			q:    text,
			raw:  `{broken`,
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := cellText(tc.q, []byte(tc.raw)); got != tc.want {
				t.Fatalf("cellText = %q, want %q", got, tc.want)
			}
		})
	}
}
