package form

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core"
)

var (
	// custom validation tags & texts
	checkedTag  = "checked"
	checkedText = "This field is required"

	minLenTag  = "minlen"
	minLenText = "Minimum length is {0}"

	maxLenTag  = "maxlen"
	maxLenText = "Maximum length is {0}"

	emailTag  = "email"
	emailText = "Invalid email"

	notBooleanText = "Expected a boolean"

	// tags whose message a field's own validation message replaces
	overridableTags = map[string]bool{"required": true, emailTag: true, checkedTag: true}
)

func init() {
	_ = core.Validate.RegisterValidation(checkedTag, checkedValidation)
	core.RegisterCustomTranslation(checkedTag, checkedText)

	_ = core.Validate.RegisterValidation(minLenTag, minLenValidation)
	core.RegisterParamTranslation(minLenTag, minLenText)

	_ = core.Validate.RegisterValidation(maxLenTag, maxLenValidation)
	core.RegisterParamTranslation(maxLenTag, maxLenText)

	core.RegisterCustomTranslation(emailTag, emailText, true)
}

type (
	// FieldErrors holds at most one message per invalid field, in field order.
	FieldErrors []core.FieldError

	fieldRule struct {
		field Field
		tag   string // validator tag for textual values; empty when anything goes
	}

	// Ruleset validates the answers of one section.
	Ruleset struct {
		Section int
		rules   []fieldRule
	}

	// Rulesets are keyed by section index.
	Rulesets map[int]Ruleset
)

// Get returns the message for fieldID, "" when the field is valid.
func (fe FieldErrors) Get(fieldID string) string {
	for _, e := range fe {
		if e.Field == fieldID {
			return e.Error
		}
	}
	return ""
}

func (fe FieldErrors) Map() map[string]string {
	m := make(map[string]string, len(fe))
	for _, e := range fe {
		m[e.Field] = e.Error
	}
	return m
}

// Err returns the errors as a *core.ValidationError, nil when there are none.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return core.NewValidationError(nil, fe...)
}

// BuildRulesets derives one Ruleset per section of the schema.
func BuildRulesets(schema Schema) Rulesets {
	rulesets := make(Rulesets, len(schema.Sections))
	for i, sec := range schema.Sections {
		rs := Ruleset{Section: i, rules: make([]fieldRule, 0, len(sec.Fields))}
		for _, f := range sec.Fields {
			rs.rules = append(rs.rules, fieldRule{field: f, tag: textualTag(f)})
		}
		rulesets[i] = rs
	}
	return rulesets
}

func textualTag(f Field) string {
	if f.Type == TypeCheckbox {
		return ""
	}

	var tags []string
	switch {
	case f.Type == TypeEmail && f.Required:
		tags = append(tags, "required", emailTag)
	case f.Type == TypeEmail:
		tags = append(tags, "omitempty", emailTag)
		return strings.Join(tags, ",")
	case f.Required:
		tags = append(tags, "required")
	default:
		return ""
	}

	if f.MinLength != nil {
		tags = append(tags, fmt.Sprintf("%s=%d", minLenTag, *f.MinLength))
	}
	if f.MaxLength != nil {
		tags = append(tags, fmt.Sprintf("%s=%d", maxLenTag, *f.MaxLength))
	}
	return strings.Join(tags, ",")
}

// FieldIDs lists the ids of the fields the ruleset covers.
func (rs Ruleset) FieldIDs() []string {
	ids := make([]string, 0, len(rs.rules))
	for _, r := range rs.rules {
		ids = append(ids, r.field.FieldID)
	}
	return ids
}

// Validate checks every field of the section against data.
func (rs Ruleset) Validate(data Data) FieldErrors {
	var errs FieldErrors
	for _, r := range rs.rules {
		if msg := r.check(data.Get(r.field.FieldID)); msg != "" {
			errs = append(errs, core.FieldError{Field: r.field.FieldID, Error: msg})
		}
	}
	return errs
}

// ValidateField checks a single answer; it returns "" when the value is valid or the field is unknown.
func (rs Ruleset) ValidateField(fieldID string, value Value) string {
	for _, r := range rs.rules {
		if r.field.FieldID == fieldID {
			return r.check(value)
		}
	}
	return ""
}

func (r fieldRule) check(value Value) string {
	if r.field.Type == TypeCheckbox {
		return r.checkBool(value)
	}
	if r.tag == "" {
		return ""
	}
	return r.message(core.Validate.Var(value.Text(), r.tag))
}

func (r fieldRule) checkBool(value Value) string {
	var checked bool
	switch {
	case value.Kind == KindBool:
		checked = value.Bool
	case value.IsEmpty():
		// unanswered
	case !r.field.Required:
		return notBooleanText
	}

	if !r.field.Required {
		return ""
	}
	return r.message(core.Validate.Var(checked, checkedTag))
}

func (r fieldRule) message(err error) string {
	if err == nil {
		return ""
	}
	vErrs, ok := errors.Cause(err).(validator.ValidationErrors)
	if !ok || len(vErrs) == 0 {
		return err.Error()
	}
	fe := vErrs[0]
	if msg := r.field.CustomMessage(); msg != "" && overridableTags[fe.Tag()] {
		return msg
	}
	return fe.Translate(core.Translator)
}

// Custom Validators

func checkedValidation(fl validator.FieldLevel) bool {
	if b, ok := fl.Field().Interface().(bool); ok {
		return b
	}
	return false
}

func minLenValidation(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return utf8.RuneCountInString(fl.Field().String()) >= n
}

func maxLenValidation(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return utf8.RuneCountInString(fl.Field().String()) <= n
}
