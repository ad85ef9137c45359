package answer

import (
	"encoding/json"
	"fmt"
	"strconv"

	"surveyhub/internal/schema"
)

// OptionSnapshot embeds the option text as it existed at submission time.
// Later edits or deletes of the option cannot corrupt stored answers.
type OptionSnapshot struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	Number *int   `json:"number,omitempty"`
}

// Payload is the normalized answer value for one question. Each variant maps
// to exactly one concrete payload type, so code past the validator never
// string-matches on raw JSON maps.
type Payload interface {
	Encode() ([]byte, error)
	isPayload()
}

// SelectionPayload covers optional and drop_down answers.
type SelectionPayload struct {
	Options   []OptionSnapshot
	OtherText string
}

func (p SelectionPayload) isPayload() {}

func (p SelectionPayload) Encode() ([]byte, error) {
	doc := map[string]interface{}{"selected_options": p.Options}
	if p.OtherText != "" {
		doc["other_text"] = p.OtherText
	}
	return json.Marshal(doc)
}

// SortPayload is a full permutation of a sort question's option set.
type SortPayload struct {
	Options []OptionSnapshot
}

func (p SortPayload) isPayload() {}

func (p SortPayload) Encode() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"sorted_options": p.Options})
}

// TextPayload covers text_answer.
type TextPayload struct {
	Value string
}

func (p TextPayload) isPayload() {}

func (p TextPayload) Encode() ([]byte, error) {
	return json.Marshal(map[string]string{schema.AnswerKeyFor(schema.VariantTextAnswer): p.Value})
}

// NumberPayload covers the numeric variants; Key is the variant's answer key.
type NumberPayload struct {
	Key   string
	Value float64
}

func (p NumberPayload) isPayload() {}

func (p NumberPayload) Encode() ([]byte, error) {
	return json.Marshal(map[string]float64{p.Key: p.Value})
}

// StringPayload covers email_field and link_field.
type StringPayload struct {
	Key   string
	Value string
}

func (p StringPayload) isPayload() {}

func (p StringPayload) Encode() ([]byte, error) {
	return json.Marshal(map[string]string{p.Key: p.Value})
}

// FilePayload covers file_field; the blob itself lives with the media store,
// only the reference is kept here.
type FilePayload struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

func (p FilePayload) isPayload() {}

func (p FilePayload) Encode() ([]byte, error) {
	return json.Marshal(map[string]FilePayload{schema.AnswerKeyFor(schema.VariantFile): p})
}

// Decode turns a stored payload document back into its typed form. Malformed
// documents come back as errors so aggregation can skip them instead of
// crashing.
func Decode(variant schema.Variant, raw []byte) (Payload, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", variant, err)
	}
	if len(doc) == 0 {
		return nil, nil
	}

	switch variant {
	case schema.VariantOptional, schema.VariantDropDown:
		var p SelectionPayload
		if err := json.Unmarshal(doc["selected_options"], &p.Options); err != nil {
			return nil, fmt.Errorf("decode selected_options: %w", err)
		}
		if other, ok := doc["other_text"]; ok {
			if err := json.Unmarshal(other, &p.OtherText); err != nil {
				return nil, fmt.Errorf("decode other_text: %w", err)
			}
		}
		return p, nil
	case schema.VariantSort:
		var p SortPayload
		if err := json.Unmarshal(doc["sorted_options"], &p.Options); err != nil {
			return nil, fmt.Errorf("decode sorted_options: %w", err)
		}
		return p, nil
	case schema.VariantTextAnswer:
		var v string
		if err := json.Unmarshal(doc[schema.AnswerKeyFor(variant)], &v); err != nil {
			return nil, fmt.Errorf("decode text_answer: %w", err)
		}
		return TextPayload{Value: v}, nil
	case schema.VariantNumberAnswer, schema.VariantIntegerRange, schema.VariantIntegerSelective:
		key := schema.AnswerKeyFor(variant)
		v, err := decodeNumeric(doc[key])
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		return NumberPayload{Key: key, Value: v}, nil
	case schema.VariantEmail, schema.VariantLink:
		key := schema.AnswerKeyFor(variant)
		var v string
		if err := json.Unmarshal(doc[key], &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		return StringPayload{Key: key, Value: v}, nil
	case schema.VariantFile:
		var p FilePayload
		if err := json.Unmarshal(doc[schema.AnswerKeyFor(variant)], &p); err != nil {
			return nil, fmt.Errorf("decode file_field: %w", err)
		}
		return p, nil
	default:
		panic(&schema.SchemaError{Tag: string(variant), Reason: "no payload decoder for variant"})
	}
}

// decodeNumeric accepts a JSON number or a numeric string.
func decodeNumeric(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing value")
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("value is not numeric")
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("value is not numeric")
	}
	return n, nil
}
