package form

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type Kind int

// Value kinds
const (
	KindAbsent Kind = iota
	KindString
	KindList
	KindBool
)

var errUnsupportedValue = errors.New("unsupported value: expected a string, a list of strings or a boolean")

// Value is a single answer. The zero Value is absent.
type Value struct {
	Kind Kind
	Str  string
	List []string
	Bool bool
}

func Absent() Value { return Value{} }

func String(s string) Value { return Value{Kind: KindString, Str: s} }

func Strings(ss ...string) Value {
	list := make([]string, len(ss))
	copy(list, ss)
	return Value{Kind: KindList, List: list}
}

func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

func (v Value) IsAbsent() bool { return v.Kind == KindAbsent }

// IsEmpty reports whether the value carries no answer: absent, "" or an empty list.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindString:
		return v.Str == ""
	case KindList:
		return len(v.List) == 0
	case KindBool:
		return false
	default:
		return true
	}
}

// Text is the textual form used by textual validation rules.
func (v Value) Text() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindList:
		return strings.Join(v.List, ",")
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == other.Str
	case KindBool:
		return v.Bool == other.Bool
	case KindList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != other.List[i] {
				return false
			}
		}
	}
	return true
}

func (v Value) String() string {
	if v.IsAbsent() {
		return "<absent>"
	}
	return v.Text()
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case KindBool:
		return json.Marshal(v.Bool)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Absent()
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "decoding string value")
		}
		*v = String(s)
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return errors.Wrap(err, "decoding list value")
		}
		*v = Strings(list...)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return errors.Wrap(err, "decoding boolean value")
		}
		*v = Bool(b)
	default:
		return errUnsupportedValue
	}
	return nil
}

// Data maps field ids to answers, across all sections.
type Data map[string]Value

// Get returns the answer for fieldID, absent when there is none.
func (d Data) Get(fieldID string) Value {
	if d == nil {
		return Absent()
	}
	return d[fieldID]
}

func (d Data) Clone() Data {
	clone := make(Data, len(d))
	for k, v := range d {
		if v.Kind == KindList {
			v = Strings(v.List...)
		}
		clone[k] = v
	}
	return clone
}

// Merge returns a copy of d overwritten with the entries of other.
func (d Data) Merge(other Data) Data {
	merged := d.Clone()
	for k, v := range other {
		merged[k] = v
	}
	return merged
}
