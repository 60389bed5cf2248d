package form

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core"
)

type FieldType string

// Field types
const (
	TypeText     FieldType = "text"
	TypeTel      FieldType = "tel"
	TypeEmail    FieldType = "email"
	TypeTextarea FieldType = "textarea"
	TypeDate     FieldType = "date"
	TypeDropdown FieldType = "dropdown"
	TypeRadio    FieldType = "radio"
	TypeCheckbox FieldType = "checkbox"
)

var (
	AllTypes = []FieldType{TypeText, TypeTel, TypeEmail, TypeTextarea, TypeDate, TypeDropdown, TypeRadio, TypeCheckbox}

	// errors
	ErrNoSections = errors.New("form has no sections")
)

// IsKnown reports whether t is one of the declared types. Unknown types are handled as text.
func (t FieldType) IsKnown() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsTextual reports whether values of this type are validated as strings.
func (t FieldType) IsTextual() bool {
	return t != TypeCheckbox
}

type (
	Option struct {
		Value      string `json:"value" mapstructure:"value"`
		Label      string `json:"label" mapstructure:"label"`
		DataTestID string `json:"dataTestId,omitempty" mapstructure:"dataTestId"`
	}

	Validation struct {
		Message string `json:"message" mapstructure:"message"`
	}

	Field struct {
		FieldID     string      `json:"fieldId" mapstructure:"fieldId"`
		Type        FieldType   `json:"type" mapstructure:"type"`
		Label       string      `json:"label" mapstructure:"label"`
		Required    bool        `json:"required" mapstructure:"required"`
		Placeholder string      `json:"placeholder,omitempty" mapstructure:"placeholder"`
		MinLength   *int        `json:"minLength,omitempty" mapstructure:"minLength"`
		MaxLength   *int        `json:"maxLength,omitempty" mapstructure:"maxLength"`
		Options     []Option    `json:"options,omitempty" mapstructure:"options"`
		Validation  *Validation `json:"validation,omitempty" mapstructure:"validation"`
		DataTestID  string      `json:"dataTestId,omitempty" mapstructure:"dataTestId"`
	}

	Section struct {
		SectionID   int     `json:"sectionId,omitempty" mapstructure:"sectionId"`
		Title       string  `json:"title" mapstructure:"title"`
		Description string  `json:"description,omitempty" mapstructure:"description"`
		Fields      []Field `json:"fields" mapstructure:"fields"`
	}

	// Schema is the form description served by the API.
	Schema struct {
		FormTitle string    `json:"formTitle" mapstructure:"formTitle"`
		FormID    string    `json:"formId,omitempty" mapstructure:"formId"`
		Version   string    `json:"version,omitempty" mapstructure:"version"`
		Sections  []Section `json:"sections" mapstructure:"sections"`
	}

	// Response is the get-form payload: the Schema lives under the `form` key.
	Response struct {
		Message string `json:"message,omitempty" mapstructure:"message"`
		Form    Schema `json:"form" mapstructure:"form"`
	}
)

// CustomMessage returns the field's own validation message, if any.
func (f Field) CustomMessage() string {
	if f.Validation == nil {
		return ""
	}
	return f.Validation.Message
}

// HasOption reports whether value is one of the field's option values.
func (f Field) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// FieldIDs lists the section's field ids in declaration order.
func (s Section) FieldIDs() []string {
	ids := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		ids = append(ids, f.FieldID)
	}
	return ids
}

// Field looks up a field of the section by id.
func (s Section) Field(fieldID string) (Field, bool) {
	for _, f := range s.Fields {
		if f.FieldID == fieldID {
			return f, true
		}
	}
	return Field{}, false
}

// Check reports configuration errors that make the schema unusable:
// no sections, missing or duplicate field ids, choice fields without options, inverted length bounds.
func (s Schema) Check() error {
	if len(s.Sections) == 0 {
		return ErrNoSections
	}

	var flds []core.FieldError
	seen := make(map[string]bool)
	for i, sec := range s.Sections {
		for j, f := range sec.Fields {
			path := fmt.Sprintf("sections[%d].fields[%d]", i, j)
			switch {
			case f.FieldID == "":
				flds = append(flds, core.FieldError{Field: path, Error: "fieldId is required"})
			case seen[f.FieldID]:
				flds = append(flds, core.FieldError{Field: path, Error: fmt.Sprintf("duplicate fieldId %q", f.FieldID)})
			}
			seen[f.FieldID] = true

			if (f.Type == TypeDropdown || f.Type == TypeRadio) && len(f.Options) == 0 {
				flds = append(flds, core.FieldError{Field: path, Error: "options are required"})
			}
			if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
				flds = append(flds, core.FieldError{Field: path, Error: "minLength is greater than maxLength"})
			}
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid form schema"), flds...)
	}
	return nil
}
