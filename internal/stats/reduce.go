package stats

import (
	"sort"

	"surveyhub/internal/answer"
	"surveyhub/internal/questionnaire"
	"surveyhub/internal/schema"

	mstats "github.com/montanaflynn/stats"
)

// ValueCount is one row of a numeric frequency table.
type ValueCount struct {
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// NumericSummary is the reduction of a numeric question's answers.
type NumericSummary struct {
	Count       int          `json:"count"`
	Average     float64      `json:"average"`
	Median      float64      `json:"median"`
	Min         float64      `json:"min"`
	Max         float64      `json:"max"`
	Variance    float64      `json:"variance"`
	StdDev      float64      `json:"std_dev"`
	Modes       []float64    `json:"modes"`
	Frequencies []ValueCount `json:"frequencies"`
}

// ChoiceCount is one option's share of a choice question's selections.
type ChoiceCount struct {
	OptionID   int64   `json:"option_id"`
	Text       string  `json:"text"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// QuestionResult is one question's emitted statistics. Numeric and Choices
// are mutually exclusive; GroupID/GroupTitle are set when the question lives
// inside a group.
type QuestionResult struct {
	QuestionID int64           `json:"question_id"`
	Variant    schema.Variant  `json:"question_type"`
	Title      string          `json:"title"`
	Placement  int             `json:"placement"`
	GroupID    *int64          `json:"group_id,omitempty"`
	GroupTitle *string         `json:"group_title,omitempty"`
	Numeric    *NumericSummary `json:"numeric,omitempty"`
	Choices    []ChoiceCount   `json:"choices,omitempty"`
}

// reduceNumeric summarizes the usable values of one numeric question. A nil
// return means the question is skipped: no usable answers, no entry.
//
// Variance, standard deviation and mode are only meaningful for more than
// one sample; a single value reports variance 0, stddev 0 and itself as the
// sole mode.
func reduceNumeric(values []float64) *NumericSummary {
	if len(values) == 0 {
		return nil
	}

	data := mstats.Float64Data(values)
	out := &NumericSummary{Count: len(values)}
	out.Average, _ = mstats.Mean(data)
	out.Median, _ = mstats.Median(data)
	out.Min, _ = mstats.Min(data)
	out.Max, _ = mstats.Max(data)

	if len(values) == 1 {
		out.Modes = []float64{values[0]}
	} else {
		out.Variance, _ = mstats.SampleVariance(data)
		out.StdDev, _ = mstats.StandardDeviationSample(data)
		out.Modes, _ = mstats.Mode(data)
	}

	freq := make(map[float64]int, len(values))
	for _, v := range values {
		freq[v]++
	}
	out.Frequencies = make([]ValueCount, 0, len(freq))
	for v, n := range freq {
		out.Frequencies = append(out.Frequencies, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out.Frequencies, func(i, j int) bool {
		return out.Frequencies[i].Value < out.Frequencies[j].Value
	})
	return out
}

// reduceChoice counts selections per live option and turns them into
// percentages of the total selection count. Option ids that no longer belong
// to the question are ignored. A zero total floors to 1 so every option
// reports an honest 0% instead of dividing by zero; nil is returned only
// when no answer rows exist at all.
func reduceChoice(q *questionnaire.Question, selections [][]int64) []ChoiceCount {
	if len(selections) == 0 {
		return nil
	}

	counts := make(map[int64]int, len(q.Options))
	total := 0
	for _, ids := range selections {
		for _, id := range ids {
			if _, ok := q.OptionByID(id); !ok {
				continue
			}
			counts[id]++
			total++
		}
	}

	denominator := total
	if denominator == 0 {
		denominator = 1
	}

	out := make([]ChoiceCount, 0, len(q.Options))
	for _, opt := range q.Options {
		n := counts[opt.ID]
		out = append(out, ChoiceCount{
			OptionID:   opt.ID,
			Text:       opt.Text,
			Count:      n,
			Percentage: float64(n) / float64(denominator) * 100,
		})
	}
	return out
}

// numericValues decodes a numeric question's payloads, dropping anything
// that does not decode to a number. Malformed stored JSON must never crash
// aggregation.
func numericValues(variant schema.Variant, payloads [][]byte) []float64 {
	values := make([]float64, 0, len(payloads))
	for _, raw := range payloads {
		p, err := answer.Decode(variant, raw)
		if err != nil || p == nil {
			continue
		}
		num, ok := p.(answer.NumberPayload)
		if !ok {
			continue
		}
		values = append(values, num.Value)
	}
	return values
}

// choiceSelections decodes a choice question's payloads into selected-id
// lists, dropping malformed rows.
func choiceSelections(variant schema.Variant, payloads [][]byte) [][]int64 {
	out := make([][]int64, 0, len(payloads))
	for _, raw := range payloads {
		p, err := answer.Decode(variant, raw)
		if err != nil || p == nil {
			continue
		}
		sel, ok := p.(answer.SelectionPayload)
		if !ok {
			continue
		}
		ids := make([]int64, 0, len(sel.Options))
		for _, opt := range sel.Options {
			ids = append(ids, opt.ID)
		}
		out = append(out, ids)
	}
	return out
}
