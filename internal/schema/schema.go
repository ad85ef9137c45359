package schema

import (
	"encoding/json"
	"fmt"
)

// Variant is one concrete question type in the closed catalog.
type Variant string

const (
	VariantOptional         Variant = "optional"
	VariantDropDown         Variant = "drop_down"
	VariantSort             Variant = "sort"
	VariantTextAnswer       Variant = "text_answer"
	VariantNumberAnswer     Variant = "number_answer"
	VariantIntegerRange     Variant = "integer_range"
	VariantIntegerSelective Variant = "integer_selective"
	VariantEmail            Variant = "email_field"
	VariantLink             Variant = "link_field"
	VariantFile             Variant = "file_field"
	VariantGroup            Variant = "group"
)

// Pattern names a text_answer format check.
type Pattern string

const (
	PatternFree           Pattern = "free"
	PatternJalaliDate     Pattern = "jalali_date"
	PatternGeorgianDate   Pattern = "georgian_date"
	PatternMobileNumber   Pattern = "mobile_number"
	PatternPhoneNumber    Pattern = "phone_number"
	PatternNumeric        Pattern = "numeric"
	PatternPersianLetters Pattern = "persian_letters"
	PatternEnglishLetters Pattern = "english_letters"
)

// LengthBoundedPatterns are the patterns whose answers are checked against
// min_length/max_length; the remaining patterns carry their own fixed format.
var LengthBoundedPatterns = map[Pattern]bool{
	PatternFree:           true,
	PatternPersianLetters: true,
	PatternEnglishLetters: true,
}

// SchemaError reports an unknown variant tag or an impossible constraint
// combination reaching the catalog. It indicates a data-integrity bug, not a
// user mistake, so catalog lookups panic with it.
type SchemaError struct {
	Tag    string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("question schema: %s: %s", e.Tag, e.Reason)
}

// ConstraintSet carries every variant-specific constraint field. A question
// row stores it as jsonb; only the fields belonging to the question's variant
// are meaningful.
type ConstraintSet struct {
	// optional / drop_down
	MultipleChoice     bool `json:"multiple_choice,omitempty"`
	MinSelectedOptions int  `json:"min_selected_options,omitempty"`
	MaxSelectedOptions int  `json:"max_selected_options,omitempty"`
	// optional only: gates for the three special option texts
	AllSelected     bool `json:"all_selected,omitempty"`
	NothingSelected bool `json:"nothing_selected,omitempty"`
	OtherOptions    bool `json:"other_options,omitempty"`

	// text_answer
	MinLength int     `json:"min_length,omitempty"`
	MaxLength int     `json:"max_length,omitempty"`
	Pattern   Pattern `json:"pattern,omitempty"`

	// number_answer / integer_range / integer_selective
	Min            *float64 `json:"min,omitempty"`
	Max            *float64 `json:"max,omitempty"`
	AcceptNegative bool     `json:"accept_negative,omitempty"`
	AcceptFloat    bool     `json:"accept_float,omitempty"`
	Shape          string   `json:"shape,omitempty"`

	// file_field, megabytes
	MaxVolume int `json:"max_volume,omitempty"`
}

// MaxVolumeBytes converts the file size limit to bytes.
func (c ConstraintSet) MaxVolumeBytes() int64 {
	return int64(c.MaxVolume) * 1024 * 1024
}

type variantInfo struct {
	answerKey  string
	answerable bool
	hasOptions bool
	numeric    bool
	choice     bool
	check      func(ConstraintSet) error
}

var catalog = map[Variant]variantInfo{
	VariantOptional: {
		answerKey:  "selected_options",
		answerable: true,
		hasOptions: true,
		choice:     true,
		check:      checkSelectionBounds,
	},
	VariantDropDown: {
		answerKey:  "selected_options",
		answerable: true,
		hasOptions: true,
		choice:     true,
		check:      checkSelectionBounds,
	},
	VariantSort: {
		answerKey:  "sorted_options",
		answerable: true,
		hasOptions: true,
		check:      func(ConstraintSet) error { return nil },
	},
	VariantTextAnswer: {
		answerKey:  "text_answer",
		answerable: true,
		check:      checkTextConstraints,
	},
	VariantNumberAnswer: {
		answerKey:  "number_answer",
		answerable: true,
		numeric:    true,
		check:      checkNumericBounds,
	},
	VariantIntegerRange: {
		answerKey:  "integer_range",
		answerable: true,
		numeric:    true,
		check:      checkIntegerRange,
	},
	VariantIntegerSelective: {
		answerKey:  "integer_selective",
		answerable: true,
		numeric:    true,
		check:      checkIntegerSelective,
	},
	VariantEmail: {
		answerKey:  "email_field",
		answerable: true,
		check:      func(ConstraintSet) error { return nil },
	},
	VariantLink: {
		answerKey:  "link_field",
		answerable: true,
		check:      func(ConstraintSet) error { return nil },
	},
	VariantFile: {
		answerKey:  "file_field",
		answerable: true,
		check:      checkFileConstraints,
	},
	VariantGroup: {
		answerable: false,
		check:      func(ConstraintSet) error { return nil },
	},
}

func info(tag Variant) variantInfo {
	vi, ok := catalog[tag]
	if !ok {
		panic(&SchemaError{Tag: string(tag), Reason: "unknown question variant"})
	}
	return vi
}

// Known reports whether the tag belongs to the catalog. Callers decoding
// untrusted input should gate on it before the panicking lookups below.
func Known(tag Variant) bool {
	_, ok := catalog[tag]
	return ok
}

// AnswerKeyFor returns the JSON key wrapping the variant's answer value.
func AnswerKeyFor(tag Variant) string {
	vi := info(tag)
	if !vi.answerable {
		panic(&SchemaError{Tag: string(tag), Reason: "variant is not answerable"})
	}
	return vi.answerKey
}

// Answerable reports whether the variant accepts answers (everything except
// the group container).
func Answerable(tag Variant) bool { return info(tag).answerable }

// HasOptions reports whether the variant owns an option set.
func HasOptions(tag Variant) bool { return info(tag).hasOptions }

// Numeric reports whether the variant's answers feed numeric aggregation.
func Numeric(tag Variant) bool { return info(tag).numeric }

// Choice reports whether the variant's answers feed choice aggregation and
// composite plots (optional and drop_down only).
func Choice(tag Variant) bool { return info(tag).choice }

// ValidateConstraints checks the owner-supplied constraint fields for a
// variant. Violations are user-correctable, so they come back as errors.
func ValidateConstraints(tag Variant, c ConstraintSet) error {
	return info(tag).check(c)
}

// ParseConstraints decodes a stored constraints document for a variant.
func ParseConstraints(tag Variant, raw json.RawMessage) (ConstraintSet, error) {
	var c ConstraintSet
	if len(raw) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return ConstraintSet{}, fmt.Errorf("decode constraints for %s: %w", tag, err)
	}
	return c, nil
}

func checkSelectionBounds(c ConstraintSet) error {
	if !c.MultipleChoice {
		return nil
	}
	if c.MinSelectedOptions <= 0 || c.MaxSelectedOptions <= 0 {
		return fmt.Errorf("min_selected_options and max_selected_options must be positive")
	}
	if c.MinSelectedOptions > c.MaxSelectedOptions {
		return fmt.Errorf("min_selected_options cannot exceed max_selected_options")
	}
	return nil
}

func checkTextConstraints(c ConstraintSet) error {
	if c.MinLength < 0 || c.MaxLength < 0 {
		return fmt.Errorf("length bounds cannot be negative")
	}
	if c.MaxLength > 0 && c.MinLength > c.MaxLength {
		return fmt.Errorf("min_length cannot exceed max_length")
	}
	if c.Pattern == "" {
		return nil
	}
	switch c.Pattern {
	case PatternFree, PatternJalaliDate, PatternGeorgianDate, PatternMobileNumber,
		PatternPhoneNumber, PatternNumeric, PatternPersianLetters, PatternEnglishLetters:
		return nil
	default:
		return fmt.Errorf("unknown text pattern %q", c.Pattern)
	}
}

func checkNumericBounds(c ConstraintSet) error {
	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		return fmt.Errorf("min cannot exceed max")
	}
	return nil
}

func checkIntegerRange(c ConstraintSet) error {
	if err := checkNumericBounds(c); err != nil {
		return err
	}
	// UI slider constraint.
	if c.Max != nil && (*c.Max < 3 || *c.Max > 11) {
		return fmt.Errorf("integer_range max must be between 3 and 11")
	}
	return nil
}

func checkIntegerSelective(c ConstraintSet) error {
	if c.Max != nil && *c.Max < 0 {
		return fmt.Errorf("integer_selective max cannot be negative")
	}
	return nil
}

func checkFileConstraints(c ConstraintSet) error {
	if c.MaxVolume <= 0 {
		return fmt.Errorf("max_volume must be positive")
	}
	return nil
}
