package session

import (
	"github.com/trezcool/formportal/core"
	"github.com/trezcool/formportal/core/form"
)

// StorageKey is where the session snapshot is persisted.
const StorageKey = "student-form-storage"

type (
	User struct {
		RollNumber string `json:"rollNumber"`
		Name       string `json:"name"`
	}

	// State is the whole client session. It is owned by a Store.
	State struct {
		ID                  string       `json:"id,omitempty"`
		User                *User        `json:"user"`
		Form                *form.Schema `json:"formSchema"`
		FormData            form.Data    `json:"formData"`
		CurrentSectionIndex int          `json:"currentSectionIndex"`
		IsSubmitted         bool         `json:"isSubmitted"`
	}
)

func (u User) Clean() User {
	return User{
		RollNumber: core.CleanString(u.RollNumber),
		Name:       core.CleanString(u.Name),
	}
}

func (st State) IsLoggedIn() bool {
	return st.User != nil
}

// SectionCount is 0 when no form is held.
func (st State) SectionCount() int {
	if st.Form == nil {
		return 0
	}
	return len(st.Form.Sections)
}

func (st State) clone() State {
	c := st
	if st.User != nil {
		usr := *st.User
		c.User = &usr
	}
	c.FormData = st.FormData.Clone()
	// the schema is read-only once fetched, sharing it is safe
	return c
}
