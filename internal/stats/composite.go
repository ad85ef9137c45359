package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"surveyhub/internal/answer"
	"surveyhub/internal/questionnaire"
	"surveyhub/internal/schema"

	"github.com/google/uuid"
)

// NumberFilter keeps only answer-sets whose value for a numeric question
// falls inside [Min, Max]; a nil bound is open.
type NumberFilter struct {
	QuestionID int64    `json:"question_id"`
	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
}

// ChoiceFilter keeps only answer-sets that selected at least one of the
// listed options of a choice question.
type ChoiceFilter struct {
	QuestionID int64   `json:"question_id"`
	OptionIDs  []int64 `json:"option_ids"`
}

// CompositeInput names the two choice questions to cross-tabulate and the
// filters narrowing the eligible answer-sets.
type CompositeInput struct {
	MainQuestionID int64          `json:"main_question_id"`
	SubQuestionID  int64          `json:"sub_question_id"`
	NumberFilters  []NumberFilter `json:"number_filters,omitempty"`
	ChoiceFilters  []ChoiceFilter `json:"choice_filters,omitempty"`
}

// SubCount is one cell of the cross-tabulation.
type SubCount struct {
	OptionID int64  `json:"option_id"`
	Text     string `json:"text"`
	Count    int    `json:"count"`
}

// MainBucket groups the sub-question's selection counts under one selected
// main option.
type MainBucket struct {
	OptionID int64      `json:"option_id"`
	Text     string     `json:"text"`
	Subs     []SubCount `json:"subs"`
}

// CompositeResult is the nested main-option to sub-option count structure.
type CompositeResult struct {
	MainQuestionID int64        `json:"main_question_id"`
	SubQuestionID  int64        `json:"sub_question_id"`
	Buckets        []MainBucket `json:"buckets"`
}

// CompositeError collects every precondition the request violates, so the
// caller sees the full list at once.
type CompositeError struct {
	Problems []string `json:"problems"`
}

func (e *CompositeError) Error() string {
	return "composite plot request rejected: " + strings.Join(e.Problems, "; ")
}

// CompositePlot cross-tabulates the main question's selections against the
// sub question's, over the answer-sets passing every declared filter.
func (s *Service) CompositePlot(ctx context.Context, questionnaireUID uuid.UUID, in CompositeInput) (*CompositeResult, error) {
	qn, err := questionnaire.LoadByUID(ctx, s.db, questionnaireUID)
	if err != nil {
		return nil, err
	}
	questions, err := questionnaire.LoadQuestions(ctx, s.db, qn.ID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*questionnaire.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	if cerr := checkCompositeInput(in, byID); cerr != nil {
		return nil, cerr
	}

	rows, err := answer.LoadRows(ctx, s.db, qn.ID)
	if err != nil {
		return nil, err
	}
	return crossTabulate(in, byID, rows), nil
}

// checkCompositeInput validates every precondition and reports them all in
// one error rather than stopping at the first.
func checkCompositeInput(in CompositeInput, byID map[int64]*questionnaire.Question) *CompositeError {
	cerr := &CompositeError{}
	problem := func(format string, args ...interface{}) {
		cerr.Problems = append(cerr.Problems, fmt.Sprintf(format, args...))
	}

	if in.MainQuestionID == in.SubQuestionID {
		problem("main and sub question must be distinct")
	}
	for _, role := range []struct {
		name string
		id   int64
	}{{"main", in.MainQuestionID}, {"sub", in.SubQuestionID}} {
		q, ok := byID[role.id]
		if !ok {
			problem("%s question %d does not belong to this questionnaire", role.name, role.id)
			continue
		}
		if !schema.Choice(q.Variant) {
			problem("%s question %d is %s, only choice questions can be plotted", role.name, role.id, q.Variant)
		}
	}

	for _, f := range in.NumberFilters {
		q, ok := byID[f.QuestionID]
		if !ok {
			problem("number filter question %d does not belong to this questionnaire", f.QuestionID)
			continue
		}
		if !schema.Numeric(q.Variant) {
			problem("number filter question %d is %s, not numeric", f.QuestionID, q.Variant)
		}
	}
	for _, f := range in.ChoiceFilters {
		q, ok := byID[f.QuestionID]
		if !ok {
			problem("choice filter question %d does not belong to this questionnaire", f.QuestionID)
			continue
		}
		if !schema.Choice(q.Variant) {
			problem("choice filter question %d is %s, not a choice question", f.QuestionID, q.Variant)
			continue
		}
		if len(f.OptionIDs) == 0 {
			problem("choice filter on question %d lists no options", f.QuestionID)
		}
		for _, id := range f.OptionIDs {
			if _, ok := q.OptionByID(id); !ok {
				problem("option %d does not belong to filter question %d", id, f.QuestionID)
			}
		}
	}

	if len(cerr.Problems) == 0 {
		return nil
	}
	return cerr
}

func crossTabulate(in CompositeInput, byID map[int64]*questionnaire.Question, rows []answer.Row) *CompositeResult {
	type setAnswers struct {
		selections map[int64][]int64 // questionID -> selected option ids
		numbers    map[int64]float64 // questionID -> numeric value
	}
	sets := make(map[int64]*setAnswers)
	setFor := func(id int64) *setAnswers {
		sa, ok := sets[id]
		if !ok {
			sa = &setAnswers{selections: make(map[int64][]int64), numbers: make(map[int64]float64)}
			sets[id] = sa
		}
		return sa
	}

	for _, r := range rows {
		q, ok := byID[r.QuestionID]
		if !ok {
			continue
		}
		p, err := answer.Decode(q.Variant, r.Payload)
		if err != nil || p == nil {
			continue
		}
		switch v := p.(type) {
		case answer.SelectionPayload:
			ids := make([]int64, 0, len(v.Options))
			for _, opt := range v.Options {
				if _, live := q.OptionByID(opt.ID); live {
					ids = append(ids, opt.ID)
				}
			}
			setFor(r.AnswerSetID).selections[r.QuestionID] = ids
		case answer.NumberPayload:
			setFor(r.AnswerSetID).numbers[r.QuestionID] = v.Value
		}
	}

	eligible := func(sa *setAnswers) bool {
		for _, f := range in.NumberFilters {
			v, ok := sa.numbers[f.QuestionID]
			if !ok {
				return false
			}
			if f.Min != nil && v < *f.Min {
				return false
			}
			if f.Max != nil && v > *f.Max {
				return false
			}
		}
		for _, f := range in.ChoiceFilters {
			selected := sa.selections[f.QuestionID]
			hit := false
			for _, want := range f.OptionIDs {
				for _, got := range selected {
					if got == want {
						hit = true
						break
					}
				}
			}
			if !hit {
				return false
			}
		}
		return true
	}

	mainQ := byID[in.MainQuestionID]
	subQ := byID[in.SubQuestionID]
	counts := make(map[int64]map[int64]int)
	for _, sa := range sets {
		if !eligible(sa) {
			continue
		}
		mainSel := sa.selections[in.MainQuestionID]
		subSel := sa.selections[in.SubQuestionID]
		for _, mainID := range mainSel {
			bucket, ok := counts[mainID]
			if !ok {
				bucket = make(map[int64]int)
				counts[mainID] = bucket
			}
			for _, subID := range subSel {
				bucket[subID]++
			}
		}
	}

	out := &CompositeResult{
		MainQuestionID: in.MainQuestionID,
		SubQuestionID:  in.SubQuestionID,
		Buckets:        make([]MainBucket, 0, len(counts)),
	}
	for mainID, bucket := range counts {
		mainOpt, _ := mainQ.OptionByID(mainID)
		mb := MainBucket{OptionID: mainID, Text: mainOpt.Text, Subs: make([]SubCount, 0, len(bucket))}
		for subID, n := range bucket {
			subOpt, _ := subQ.OptionByID(subID)
			mb.Subs = append(mb.Subs, SubCount{OptionID: subID, Text: subOpt.Text, Count: n})
		}
		sort.Slice(mb.Subs, func(i, j int) bool { return mb.Subs[i].OptionID < mb.Subs[j].OptionID })
		out.Buckets = append(out.Buckets, mb)
	}
	sort.Slice(out.Buckets, func(i, j int) bool { return out.Buckets[i].OptionID < out.Buckets[j].OptionID })
	return out
}
