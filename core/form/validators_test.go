package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func sampleSchema() Schema {
	return Schema{
		FormTitle: "Registration",
		Sections: []Section{
			{
				Title: "Personal",
				Fields: []Field{
					{FieldID: "name", Type: TypeText, Label: "Name", Required: true, MinLength: intPtr(2), MaxLength: intPtr(5)},
					{FieldID: "email", Type: TypeEmail, Label: "Email", Required: true},
					{FieldID: "nickname", Type: TypeText, Label: "Nickname", MinLength: intPtr(3)},
				},
			},
			{
				Title: "Terms",
				Fields: []Field{
					{FieldID: "terms", Type: TypeCheckbox, Label: "Accept", Required: true},
					{FieldID: "news", Type: TypeCheckbox, Label: "Newsletter"},
					{FieldID: "backup", Type: TypeEmail, Label: "Backup email"},
					{
						FieldID: "agree", Type: TypeCheckbox, Label: "Agree", Required: true,
						Validation: &Validation{Message: "You must agree"},
					},
				},
			},
		},
	}
}

func TestBuildRulesets(t *testing.T) {
	rulesets := BuildRulesets(sampleSchema())
	require.Len(t, rulesets, 2)
	assert.Equal(t, []string{"name", "email", "nickname"}, rulesets[0].FieldIDs())
	assert.Equal(t, []string{"terms", "news", "backup", "agree"}, rulesets[1].FieldIDs())
	assert.Empty(t, BuildRulesets(Schema{}))
}

func TestRuleset_ValidateField(t *testing.T) {
	rulesets := BuildRulesets(sampleSchema())
	personal, terms := rulesets[0], rulesets[1]

	tests := []struct {
		name    string
		rs      Ruleset
		fieldID string
		value   Value
		wantMsg string
	}{
		{name: "required text: absent", rs: personal, fieldID: "name", value: Absent(), wantMsg: "This field is required"},
		{name: "required text: empty", rs: personal, fieldID: "name", value: String(""), wantMsg: "This field is required"},
		{name: "required text: too short", rs: personal, fieldID: "name", value: String("a"), wantMsg: "Minimum length is 2"},
		{name: "required text: too long", rs: personal, fieldID: "name", value: String("abcdef"), wantMsg: "Maximum length is 5"},
		{name: "required text: valid", rs: personal, fieldID: "name", value: String("Ada")},
		{name: "required text: runes counted", rs: personal, fieldID: "name", value: String("Zoë")},
		{name: "optional text: absent", rs: personal, fieldID: "nickname", value: Absent()},
		{name: "optional text: short value accepted", rs: personal, fieldID: "nickname", value: String("a")},
		{name: "required email: empty", rs: personal, fieldID: "email", value: String(""), wantMsg: "This field is required"},
		{name: "required email: invalid", rs: personal, fieldID: "email", value: String("not-an-email"), wantMsg: "Invalid email"},
		{name: "required email: valid", rs: personal, fieldID: "email", value: String("a@b.com")},
		{name: "optional email: empty", rs: terms, fieldID: "backup", value: String("")},
		{name: "optional email: invalid", rs: terms, fieldID: "backup", value: String("nope"), wantMsg: "Invalid email"},
		{name: "required checkbox: false", rs: terms, fieldID: "terms", value: Bool(false), wantMsg: "This field is required"},
		{name: "required checkbox: absent", rs: terms, fieldID: "terms", value: Absent(), wantMsg: "This field is required"},
		{name: "required checkbox: true", rs: terms, fieldID: "terms", value: Bool(true)},
		{name: "required checkbox: custom message", rs: terms, fieldID: "agree", value: Bool(false), wantMsg: "You must agree"},
		{name: "optional checkbox: false", rs: terms, fieldID: "news", value: Bool(false)},
		{name: "optional checkbox: absent", rs: terms, fieldID: "news", value: Absent()},
		{name: "optional checkbox: not a boolean", rs: terms, fieldID: "news", value: String("maybe"), wantMsg: "Expected a boolean"},
		{name: "unknown field", rs: terms, fieldID: "lol", value: Absent()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.rs.ValidateField(tt.fieldID, tt.value))
		})
	}
}

func TestRuleset_Validate(t *testing.T) {
	rs := BuildRulesets(sampleSchema())[0]

	errs := rs.Validate(Data{"name": String("a"), "email": String("bad")})
	assert.Equal(t, FieldErrors{
		{Field: "name", Error: "Minimum length is 2"},
		{Field: "email", Error: "Invalid email"},
	}, errs)
	assert.Equal(t, "Invalid email", errs.Get("email"))
	assert.Equal(t, "", errs.Get("nickname"))
	assert.Error(t, errs.Err())

	errs = rs.Validate(Data{"name": String("Ada"), "email": String("a@b.com")})
	assert.Empty(t, errs)
	assert.NoError(t, errs.Err())
}

func TestField_customMessageOnRequired(t *testing.T) {
	schema := Schema{Sections: []Section{{Fields: []Field{
		{FieldID: "phone", Type: TypeTel, Required: true, MinLength: intPtr(10), Validation: &Validation{Message: "Phone is mandatory"}},
		{FieldID: "mail", Type: "unknown", Required: true},
	}}}}
	rs := BuildRulesets(schema)[0]

	assert.Equal(t, "Phone is mandatory", rs.ValidateField("phone", Absent()))
	assert.Equal(t, "Minimum length is 10", rs.ValidateField("phone", String("123")))
	assert.Equal(t, "This field is required", rs.ValidateField("mail", Absent()))
	assert.Equal(t, "", rs.ValidateField("mail", String("anything")))
}
