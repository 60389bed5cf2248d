package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core"
	"github.com/trezcool/formportal/core/form"
	"github.com/trezcool/formportal/core/student"
)

func intPtr(i int) *int { return &i }

// FormFile is the sample schema shipped with the repo.
func FormFile() string {
	return filepath.Join(core.Getwd(), "assets", "forms", "student-registration.yaml")
}

// Schema is a small two-section form covering every rule kind.
func Schema() form.Schema {
	return form.Schema{
		FormTitle: "Student Registration",
		Sections: []form.Section{
			{
				Title: "Personal",
				Fields: []form.Field{
					{FieldID: "fullName", Type: form.TypeText, Label: "Full Name", Required: true, MinLength: intPtr(2), MaxLength: intPtr(20)},
					{FieldID: "email", Type: form.TypeEmail, Label: "Email", Required: true},
				},
			},
			{
				Title: "Declaration",
				Fields: []form.Field{
					{
						FieldID: "course", Type: form.TypeRadio, Label: "Course",
						Options: []form.Option{{Value: "cse", Label: "Computer Science"}, {Value: "me", Label: "Mechanical"}},
					},
					{FieldID: "terms", Type: form.TypeCheckbox, Label: "Accept", Required: true},
				},
			},
		},
	}
}

// ThreeSectionSchema extends Schema with a trailing optional section.
func ThreeSectionSchema() form.Schema {
	schema := Schema()
	schema.Sections = append(schema.Sections, form.Section{
		Title:  "Extra",
		Fields: []form.Field{{FieldID: "about", Type: form.TypeTextarea, Label: "About"}},
	})
	return schema
}

// ValidData answers every field of Schema.
func ValidData() form.Data {
	return form.Data{
		"fullName": form.String("Ada Lovelace"),
		"email":    form.String("ada@test.cd"),
		"course":   form.String("cse"),
		"terms":    form.Bool(true),
	}
}

func CreateStudent(t *testing.T, repo student.Repository, rollNumber, name string, createdAt ...time.Time) student.Student {
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	std, err := repo.CreateStudent(context.Background(), student.Student{
		ID:         uuid.NewString(),
		RollNumber: rollNumber,
		Name:       name,
		CreatedAt:  tstamp,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

// CheckLocalStorage runs the behaviour every core.LocalStorage driver must share.
func CheckLocalStorage(t *testing.T, kv core.LocalStorage) {
	t.Helper()
	ctx := context.Background()
	key := "test-" + uuid.NewString()

	if _, err := kv.Get(ctx, key); errors.Cause(err) != core.ErrKeyNotFound {
		t.Fatalf("Get(missing) error = %v; want %v", err, core.ErrKeyNotFound)
	}
	if err := kv.Set(ctx, key, "one"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := kv.Set(ctx, key, "two"); err != nil {
		t.Fatalf("Set(overwrite) error = %v", err)
	}
	got, err := kv.Get(ctx, key)
	if err != nil || got != "two" {
		t.Fatalf("Get() = %q, %v; want %q", got, err, "two")
	}
	if err = kv.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err = kv.Delete(ctx, key); err != nil {
		t.Fatalf("Delete(missing) error = %v", err)
	}
	if _, err = kv.Get(ctx, key); errors.Cause(err) != core.ErrKeyNotFound {
		t.Fatalf("Get(deleted) error = %v; want %v", err, core.ErrKeyNotFound)
	}
}

// ErrWriteFailed is returned by FlakyStorage for the keys it is told to fail.
var ErrWriteFailed = errors.New("write failed")

// FlakyStorage wraps a core.LocalStorage and fails the writes its predicate picks.
type FlakyStorage struct {
	core.LocalStorage

	mu   sync.Mutex
	fail func(key, value string) bool
}

func NewFlakyStorage(kv core.LocalStorage) *FlakyStorage {
	return &FlakyStorage{LocalStorage: kv}
}

// FailWrites makes Set and Delete fail whenever fail returns true. Deletes see an empty value.
// A nil fail lets every write through.
func (s *FlakyStorage) FailWrites(fail func(key, value string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *FlakyStorage) failing(key, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail != nil && s.fail(key, value)
}

func (s *FlakyStorage) Set(ctx context.Context, key, value string) error {
	if s.failing(key, value) {
		return ErrWriteFailed
	}
	return s.LocalStorage.Set(ctx, key, value)
}

func (s *FlakyStorage) Delete(ctx context.Context, key string) error {
	if s.failing(key, "") {
		return ErrWriteFailed
	}
	return s.LocalStorage.Delete(ctx, key)
}
