package student

import (
	"time"

	"github.com/trezcool/formportal/core"
)

type (
	Student struct {
		ID         string    `db:"id" json:"id"`
		RollNumber string    `db:"roll_number" json:"rollNumber"`
		Name       string    `db:"name" json:"name"`
		CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	}

	NewStudent struct {
		RollNumber string `json:"rollNumber" validate:"required,notblank"`
		Name       string `json:"name" validate:"required,notblank"`
	}
)

func (ns *NewStudent) Clean() {
	ns.RollNumber = core.CleanString(ns.RollNumber)
	ns.Name = core.CleanString(ns.Name)
}

func (ns NewStudent) Validate() error {
	return core.TranslateErrors(core.Validate.Struct(ns))
}
