package stats

import (
	"math"
	"testing"

	"surveyhub/internal/questionnaire"
	"surveyhub/internal/schema"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestReduceNumeric(t *testing.T) {
	t.Run("empty input skips the question", func(t *testing.T) {
		if got := reduceNumeric(nil); got != nil {
			t.Fatalf("expected nil, got %+v", got)
		}
	})

	t.Run("single sample reports zero spread", func(t *testing.T) {
		got := reduceNumeric([]float64{7})
		if got == nil {
			t.Fatalf("expected a summary")
		}
		if got.Count != 1 || got.Average != 7 || got.Median != 7 || got.Min != 7 || got.Max != 7 {
			t.Fatalf("unexpected summary: %+v", got)
		}
		if got.Variance != 0 || got.StdDev != 0 {
			t.Fatalf("single sample must report zero variance and stddev: %+v", got)
		}
		if len(got.Modes) != 1 || got.Modes[0] != 7 {
			t.Fatalf("single sample mode must be the value itself: %v", got.Modes)
		}
	})

	t.Run("multi sample summary", func(t *testing.T) {
		got := reduceNumeric([]float64{2, 4, 4, 6})
		if got.Count != 4 {
			t.Fatalf("count = %d", got.Count)
		}
		if !almostEqual(got.Average, 4) || !almostEqual(got.Median, 4) {
			t.Fatalf("average/median: %+v", got)
		}
		if got.Min != 2 || got.Max != 6 {
			t.Fatalf("min/max: %+v", got)
		}
		// Sample variance of 2,4,4,6 is 8/3.
		if !almostEqual(got.Variance, 8.0/3.0) {
			t.Fatalf("variance = %v", got.Variance)
		}
		if !almostEqual(got.StdDev, math.Sqrt(8.0/3.0)) {
			t.Fatalf("stddev = %v", got.StdDev)
		}
		if len(got.Modes) != 1 || got.Modes[0] != 4 {
			t.Fatalf("modes = %v", got.Modes)
		}
	})

	t.Run("frequency table sorted by value", func(t *testing.T) {
		got := reduceNumeric([]float64{5, 1, 5, 3})
		want := []ValueCount{{Value: 1, Count: 1}, {Value: 3, Count: 1}, {Value: 5, Count: 2}}
		if len(got.Frequencies) != len(want) {
			t.Fatalf("frequencies = %+v", got.Frequencies)
		}
		for i, w := range want {
			if got.Frequencies[i] != w {
				t.Fatalf("frequencies[%d] = %+v, want %+v", i, got.Frequencies[i], w)
			}
		}
	})
}

func statsChoiceQuestion(optionTexts ...string) *questionnaire.Question {
	q := &questionnaire.Question{ID: 1, Variant: schema.VariantOptional}
	for i, text := range optionTexts {
		q.Options = append(q.Options, questionnaire.Option{ID: int64(i + 1), Text: text})
	}
	return q
}

func TestReduceChoice(t *testing.T) {
	q := statsChoiceQuestion("A", "B", "C")

	t.Run("no rows skips the question", func(t *testing.T) {
		if got := reduceChoice(q, nil); got != nil {
			t.Fatalf("expected nil, got %+v", got)
		}
	})

	t.Run("three sets selecting A, AB, BC", func(t *testing.T) {
		got := reduceChoice(q, [][]int64{{1}, {1, 2}, {2, 3}})
		wantCounts := map[string]int{"A": 2, "B": 2, "C": 1}
		wantPercent := map[string]float64{"A": 40, "B": 40, "C": 20}
		sum := 0.0
		for _, c := range got {
			if c.Count != wantCounts[c.Text] {
				t.Fatalf("%s count = %d, want %d", c.Text, c.Count, wantCounts[c.Text])
			}
			if !almostEqual(c.Percentage, wantPercent[c.Text]) {
				t.Fatalf("%s percentage = %v, want %v", c.Text, c.Percentage, wantPercent[c.Text])
			}
			sum += c.Percentage
		}
		if !almostEqual(sum, 100) {
			t.Fatalf("percentages sum to %v", sum)
		}
	})

	t.Run("stale option ids ignored", func(t *testing.T) {
		got := reduceChoice(q, [][]int64{{1, 99}})
		for _, c := range got {
			if c.Text == "A" && c.Count != 1 {
				t.Fatalf("A count = %d", c.Count)
			}
			if c.Text == "A" && !almostEqual(c.Percentage, 100) {
				t.Fatalf("A percentage = %v", c.Percentage)
			}
		}
	})

	t.Run("zero countable selections reports all zero percent", func(t *testing.T) {
		got := reduceChoice(q, [][]int64{{99}})
		if got == nil {
			t.Fatalf("rows exist, expected an entry")
		}
		for _, c := range got {
			if c.Count != 0 || c.Percentage != 0 {
				t.Fatalf("expected all-zero, got %+v", c)
			}
		}
	})
}

func TestNumericValuesSkipsMalformed(t *testing.T) {
	values := numericValues(schema.VariantNumberAnswer, [][]byte{
		[]byte(`{"number_answer":3}`),
		[]byte(`{"number_answer":"4"}`),
		[]byte(`{"number_answer":"not a number"}`),
		[]byte(`{broken`),
		[]byte(`{}`),
	})
	if len(values) != 2 || values[0] != 3 || values[1] != 4 {
		t.Fatalf("values = %v", values)
	}
}

func TestChoiceSelectionsSkipsMalformed(t *testing.T) {
	selections := choiceSelections(schema.VariantOptional, [][]byte{
		[]byte(`{"selected_options":[{"id":1,"text":"A"}]}`),
		[]byte(`{"selected_options":"bogus"}`),
		[]byte(`{}`),
	})
	if len(selections) != 1 || len(selections[0]) != 1 || selections[0][0] != 1 {
		t.Fatalf("selections = %v", selections)
	}
}
