package questionnaire

import (
	"errors"
	"testing"
)

func TestDensePlacements(t *testing.T) {
	tests := []struct {
		name     string
		ordered  []int64
		existing []int64
		want     map[int64]int
		wantErr  error
	}{
		{
			name:     "full reorder",
			ordered:  []int64{3, 1, 2},
			existing: []int64{1, 2, 3},
			want:     map[int64]int{3: 1, 1: 2, 2: 3},
		},
		{
			name:     "partial order keeps the rest after",
			ordered:  []int64{5},
			existing: []int64{1, 3, 5, 7},
			want:     map[int64]int{5: 1, 1: 2, 3: 3, 7: 4},
		},
		{
			name:     "unknown id rejected",
			ordered:  []int64{1, 99},
			existing: []int64{1, 2},
			wantErr:  ErrQuestionNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := densePlacements(tc.ordered, tc.existing)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for id, placement := range tc.want {
				if got[id] != placement {
					t.Fatalf("placement[%d] = %d, want %d", id, got[id], placement)
				}
			}
		})
	}
}
