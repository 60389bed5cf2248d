package portal

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core/form"
	"github.com/trezcool/formportal/core/session"
)

var (
	ErrFieldNotInSection = errors.New("field is not part of the current section")
	ErrSectionClosed     = errors.New("section is no longer displayed")
)

// navigator moves the wizard between sections.
type navigator interface {
	// navigate fires event from the section at index once gate passes.
	navigate(ctx context.Context, index int, event string, gate func() error) error
}

// SectionController edits the answers of the displayed section.
// Values are written through to the store as they are edited; the section is only validated on Next and Submit.
type SectionController struct {
	store   *session.Store
	nav     navigator
	index   int
	section form.Section
	ruleset form.Ruleset

	mu          sync.Mutex
	values      form.Data
	errs        form.FieldErrors
	closed      bool
	unsubscribe func()
}

func newSectionController(store *session.Store, nav navigator, index int, section form.Section, ruleset form.Ruleset) *SectionController {
	c := &SectionController{
		store:   store,
		nav:     nav,
		index:   index,
		section: section,
		ruleset: ruleset,
		values:  make(form.Data, len(section.Fields)),
	}
	// pre-fill from answers given earlier
	data := store.State().FormData
	for _, f := range section.Fields {
		c.values[f.FieldID] = data.Get(f.FieldID)
	}
	c.unsubscribe = store.Subscribe(c.sync)
	return c
}

// sync re-reads the answers of the section after any store change. Absent answers do not clear values.
func (c *SectionController) sync(st session.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, f := range c.section.Fields {
		if v := st.FormData.Get(f.FieldID); !v.IsAbsent() {
			c.values[f.FieldID] = v
		}
	}
}

func (c *SectionController) Index() int { return c.index }

func (c *SectionController) Section() form.Section { return c.section }

func (c *SectionController) Value(fieldID string) form.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values.Get(fieldID)
}

func (c *SectionController) Values() form.Data {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values.Clone()
}

// Errors returns the messages of the last failed validation, in field order.
func (c *SectionController) Errors() form.FieldErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	errs := make(form.FieldErrors, len(c.errs))
	copy(errs, c.errs)
	return errs
}

// Edit sets a field's answer and writes it to the store at once.
// A field already reported invalid is re-checked.
func (c *SectionController) Edit(ctx context.Context, fieldID string, value form.Value) error {
	if _, ok := c.section.Field(fieldID); !ok {
		return errors.Wrap(ErrFieldNotInSection, fieldID)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSectionClosed
	}
	c.values[fieldID] = value
	if c.errs.Get(fieldID) != "" {
		c.errs = c.recheck(fieldID, value)
	}
	c.mu.Unlock()

	return c.store.SetField(ctx, fieldID, value)
}

func (c *SectionController) recheck(fieldID string, value form.Value) form.FieldErrors {
	msg := c.ruleset.ValidateField(fieldID, value)
	errs := make(form.FieldErrors, 0, len(c.errs))
	for _, e := range c.errs {
		if e.Field == fieldID {
			if msg == "" {
				continue
			}
			e.Error = msg
		}
		errs = append(errs, e)
	}
	return errs
}

// Next validates the section then moves forward. On failure the section stays displayed
// and the returned error is a *core.ValidationError.
func (c *SectionController) Next(ctx context.Context) error {
	return c.nav.navigate(ctx, c.index, eventNext, func() error {
		if err := c.validate(); err != nil {
			return err
		}
		return c.commit(ctx)
	})
}

// Previous keeps the answers as they are, valid or not, and moves back.
func (c *SectionController) Previous(ctx context.Context) error {
	return c.nav.navigate(ctx, c.index, eventPrev, func() error {
		return c.commit(ctx)
	})
}

// Submit validates the last section and submits the form.
func (c *SectionController) Submit(ctx context.Context) error {
	return c.nav.navigate(ctx, c.index, eventSubmit, func() error {
		if err := c.validate(); err != nil {
			return err
		}
		return c.commit(ctx)
	})
}

func (c *SectionController) validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSectionClosed
	}
	c.errs = c.ruleset.Validate(c.values)
	return c.errs.Err()
}

func (c *SectionController) commit(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSectionClosed
	}
	values := c.values.Clone()
	c.mu.Unlock()

	return c.store.MergeFormData(ctx, values)
}

// close stops the controller from following the store.
func (c *SectionController) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.unsubscribe()
}
