package forms

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/trezcool/formportal/core/form"
)

// LoadFile reads a form schema from a yaml/json/toml file and checks it.
func LoadFile(path string) (form.Schema, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return form.Schema{}, errors.Wrapf(err, "reading form file %s", path)
	}

	var schema form.Schema
	if err := v.Unmarshal(&schema); err != nil {
		return form.Schema{}, errors.Wrapf(err, "decoding form file %s", path)
	}
	if err := schema.Check(); err != nil {
		return form.Schema{}, errors.Wrapf(err, "checking form file %s", path)
	}
	return schema, nil
}

// Source serves the schema of a file, loaded once.
type Source struct {
	path string

	once   sync.Once
	schema form.Schema
	err    error
}

func NewSource(path string) *Source {
	return &Source{path: path}
}

func (src *Source) Schema() (form.Schema, error) {
	src.once.Do(func() {
		src.schema, src.err = LoadFile(src.path)
	})
	return src.schema, src.err
}
