package form

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
)

type ControlKind string

// Control kinds
const (
	ControlLine      ControlKind = "single-line"
	ControlMultiLine ControlKind = "multi-line"
	ControlDate      ControlKind = "date"
	ControlSelect    ControlKind = "select"
	ControlToggle    ControlKind = "toggle"
)

// DateLayout is the calendar format of date answers.
const DateLayout = "2006-01-02"

var (
	maxSuggestions    = 3
	suggestionCutoff  = 0.5
	errInvalidDate    = errors.New("date must be of form YYYY-MM-DD")
	errInvalidBoolean = errors.New("expected one of: yes, no, true, false")
)

// Control turns raw input into answers and answers into display text for one field.
type Control struct {
	Kind  ControlKind
	Field Field
}

// ControlFor maps a field to the control that edits it. Unknown types get a single-line control.
func ControlFor(f Field) Control {
	var kind ControlKind
	switch f.Type {
	case TypeTextarea:
		kind = ControlMultiLine
	case TypeDate:
		kind = ControlDate
	case TypeDropdown, TypeRadio:
		kind = ControlSelect
	case TypeCheckbox:
		kind = ControlToggle
	default:
		kind = ControlLine
	}
	return Control{Kind: kind, Field: f}
}

// Parse converts raw input into a Value. Empty input clears textual answers.
func (c Control) Parse(raw string) (Value, error) {
	switch c.Kind {
	case ControlMultiLine:
		return String(strings.ReplaceAll(raw, `\n`, "\n")), nil
	case ControlDate:
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return String(""), nil
		}
		if _, err := time.Parse(DateLayout, raw); err != nil {
			return Absent(), errInvalidDate
		}
		return String(raw), nil
	case ControlSelect:
		return c.parseOption(strings.TrimSpace(raw))
	case ControlToggle:
		return parseToggle(raw)
	default:
		return String(raw), nil
	}
}

func (c Control) parseOption(raw string) (Value, error) {
	if raw == "" {
		return String(""), nil
	}
	if c.Field.HasOption(raw) {
		return String(raw), nil
	}
	// accept an option's label as well as its value
	for _, opt := range c.Field.Options {
		if strings.EqualFold(opt.Label, raw) {
			return String(opt.Value), nil
		}
	}

	msg := fmt.Sprintf("%q is not a valid option", raw)
	if suggestions := c.Suggest(raw); len(suggestions) > 0 {
		msg += fmt.Sprintf("; did you mean %s?", strings.Join(suggestions, ", "))
	}
	return Absent(), errors.New(msg)
}

func parseToggle(raw string) (Value, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "y", "yes", "on", "x":
		return Bool(true), nil
	case "n", "no", "off", "":
		return Bool(false), nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return Absent(), errInvalidBoolean
	}
	return Bool(b), nil
}

// Suggest returns up to maxSuggestions option values resembling raw, closest first.
func (c Control) Suggest(raw string) []string {
	type match struct {
		value string
		score float64
	}

	input := strings.Split(strings.ToLower(raw), "")
	matches := make([]match, 0, len(c.Field.Options))
	for _, opt := range c.Field.Options {
		score := difflib.NewMatcher(input, strings.Split(strings.ToLower(opt.Value), "")).Ratio()
		if score >= suggestionCutoff {
			matches = append(matches, match{value: opt.Value, score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	values := make([]string, 0, len(matches))
	for _, m := range matches {
		values = append(values, m.value)
	}
	return values
}

// Format renders a Value for display.
func (c Control) Format(v Value) string {
	switch c.Kind {
	case ControlToggle:
		if v.Kind == KindBool && v.Bool {
			return "[x]"
		}
		return "[ ]"
	case ControlSelect:
		for _, opt := range c.Field.Options {
			if opt.Value == v.Text() {
				return opt.Label
			}
		}
		return v.Text()
	default:
		return v.Text()
	}
}
