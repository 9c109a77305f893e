package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Field length limits
const (
	MaxIDLength          = 100
	MaxCategoryName      = 100
	MaxDescriptionLength = 500
	MaxTitleLength       = 200
	MaxContentLength     = 5000
	MaxTagLength         = 50
)

// FieldType is the primitive kind a rule expects a field to hold
type FieldType string

const (
	FieldString FieldType = "string"
	FieldArray  FieldType = "array"
	FieldEnum   FieldType = "enum"
)

// Rule declares the constraints on one field of a record.
// ItemMaxLength applies to each element of an array field.
type Rule struct {
	Field         string
	Required      bool
	Type          FieldType
	MaxLength     int
	ItemMaxLength int
	Enum          []string
}

// Ruleset is an ordered list of field rules. Order determines the order of
// reported errors.
type Ruleset []Rule

// ValidationResult holds the outcome of Validate
type ValidationResult struct {
	Valid  bool
	Errors []string
}

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

func fieldValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New()
	})
	return validatorInst
}

// Validate checks record against rules. Every violated rule contributes one
// message; violations accumulate across fields. A missing required field
// reports only the missing value, and an absent optional field is skipped.
func Validate(record map[string]any, rules Ruleset) ValidationResult {
	v := fieldValidator()
	var errs []string

	for _, rule := range rules {
		value := record[rule.Field]
		if isBlank(value) {
			if rule.Required {
				errs = append(errs, fmt.Sprintf("field %s is required", rule.Field))
			}
			continue
		}

		switch rule.Type {
		case FieldArray:
			items, ok := asStrings(value)
			if !ok {
				errs = append(errs, fmt.Sprintf("field %s must be an array of strings", rule.Field))
				continue
			}
			if rule.ItemMaxLength > 0 {
				if err := v.Var(items, fmt.Sprintf("dive,max=%d", rule.ItemMaxLength)); err != nil {
					errs = append(errs, fmt.Sprintf("field %s items cannot exceed %d characters", rule.Field, rule.ItemMaxLength))
				}
			}
		case FieldString, FieldEnum, "":
			s, ok := asString(value)
			if !ok {
				errs = append(errs, fmt.Sprintf("field %s must be of type string", rule.Field))
				continue
			}
			if rule.MaxLength > 0 {
				if err := v.Var(s, fmt.Sprintf("max=%d", rule.MaxLength)); err != nil {
					errs = append(errs, fmt.Sprintf("field %s cannot exceed %d characters", rule.Field, rule.MaxLength))
				}
			}
			if len(rule.Enum) > 0 {
				if err := v.Var(s, "oneof="+strings.Join(rule.Enum, " ")); err != nil {
					errs = append(errs, fmt.Sprintf("field %s must be one of: %s", rule.Field, strings.Join(rule.Enum, ", ")))
				}
			}
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// CategoryRules returns the ruleset for a category record. The identifier
// is not required on update since it is never resupplied.
func CategoryRules(isUpdate bool) Ruleset {
	return Ruleset{
		{Field: "id", Required: !isUpdate, Type: FieldString, MaxLength: MaxIDLength},
		{Field: "name", Required: true, Type: FieldString, MaxLength: MaxCategoryName},
		{Field: "description", Type: FieldString, MaxLength: MaxDescriptionLength},
	}
}

// QuestionRules returns the ruleset for a question record
func QuestionRules(isUpdate bool) Ruleset {
	return Ruleset{
		{Field: "id", Required: !isUpdate, Type: FieldString, MaxLength: MaxIDLength},
		{Field: "categoryId", Required: true, Type: FieldString, MaxLength: MaxIDLength},
		{Field: "title", Required: true, Type: FieldString, MaxLength: MaxTitleLength},
		{Field: "content", Required: true, Type: FieldString, MaxLength: MaxContentLength},
		{Field: "difficulty", Type: FieldEnum, Enum: difficultyNames()},
		{Field: "tags", Type: FieldArray, ItemMaxLength: MaxTagLength},
	}
}

// TagRules returns the ruleset for a tag record
func TagRules() Ruleset {
	return Ruleset{
		{Field: "name", Required: true, Type: FieldString, MaxLength: MaxTagLength},
	}
}

// ValidateCategory validates c and returns a VALIDATION error listing every
// violation, or nil
func ValidateCategory(c *Category, isUpdate bool) error {
	record := map[string]any{
		"id":          c.ID,
		"name":        strings.TrimSpace(c.Name),
		"description": c.Description,
	}
	return resultError("category", Validate(record, CategoryRules(isUpdate)))
}

// ValidateQuestion validates q and returns a VALIDATION error listing every
// violation, or nil
func ValidateQuestion(q *Question, isUpdate bool) error {
	record := map[string]any{
		"id":         q.ID,
		"categoryId": q.CategoryID,
		"title":      strings.TrimSpace(q.Title),
		"content":    q.Content,
		"difficulty": string(q.Difficulty),
		"tags":       q.Tags,
	}
	return resultError("question", Validate(record, QuestionRules(isUpdate)))
}

// ValidateTag validates a tag name
func ValidateTag(name string) error {
	record := map[string]any{"name": strings.TrimSpace(name)}
	return resultError("tag", Validate(record, TagRules()))
}

func resultError(entity string, res ValidationResult) error {
	if res.Valid {
		return nil
	}
	return &Error{
		Kind:    KindValidation,
		Message: fmt.Sprintf("invalid %s: %s", entity, strings.Join(res.Errors, "; ")),
	}
}

func difficultyNames() []string {
	names := make([]string, len(Difficulties))
	for i, d := range Difficulties {
		names[i] = string(d)
	}
	return names
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return v == nil
	}
	return false
}

func asString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case Difficulty:
		return string(v), true
	}
	return "", false
}

func asStrings(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
