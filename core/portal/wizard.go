package portal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/looplab/fsm"
	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core"
	"github.com/trezcool/formportal/core/form"
	"github.com/trezcool/formportal/core/session"
)

// Wizard events & states
const (
	eventNext   = "next"
	eventPrev   = "prev"
	eventSubmit = "submit"

	stateSubmitted     = "submitted"
	sectionStatePrefix = "section-"
)

var (
	ErrNoForm         = errors.New("no form loaded")
	ErrFirstSection   = errors.New("already on the first section")
	ErrLastSection    = errors.New("already on the last section")
	ErrNotLastSection = errors.New("the form can only be submitted from its last section")
	ErrFormSubmitted  = errors.New("form already submitted")

	// returned when an event is not allowed from the displayed section
	eventErrors = map[string]error{
		eventNext:   ErrLastSection,
		eventPrev:   ErrFirstSection,
		eventSubmit: ErrNotLastSection,
	}
)

// Position locates the displayed section.
type Position struct {
	Index   int
	Total   int
	IsFirst bool
	IsLast  bool
	Section form.Section
}

// Wizard walks the sections of a form one at a time: forward after validation, backward freely,
// and out through submission from the last section.
type Wizard struct {
	store    *session.Store
	evidence *session.Evidence
	logger   core.Logger

	sessionID  string
	rollNumber string
	schema     form.Schema
	rulesets   form.Rulesets
	machine    *fsm.FSM

	navMu sync.Mutex // held while moving between sections

	mu      sync.Mutex
	section *SectionController
}

var _ navigator = (*Wizard)(nil)

func sectionState(idx int) string {
	return sectionStatePrefix + strconv.Itoa(idx)
}

func sectionIndex(state string) (int, bool) {
	if !strings.HasPrefix(state, sectionStatePrefix) {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(state, sectionStatePrefix))
	return idx, err == nil
}

// NewWizard resumes the form held by the store at its current section.
func NewWizard(ctx context.Context, store *session.Store, evidence *session.Evidence, logger core.Logger) (*Wizard, error) {
	st := store.State()
	switch {
	case !st.IsLoggedIn():
		return nil, ErrNotLoggedIn
	case st.IsSubmitted:
		return nil, ErrFormSubmitted
	case st.Form == nil:
		return nil, ErrNoForm
	case len(st.Form.Sections) == 0:
		return nil, form.ErrNoSections
	}

	w := &Wizard{
		store:      store,
		evidence:   evidence,
		logger:     logger,
		sessionID:  st.ID,
		rollNumber: st.User.RollNumber,
		schema:     *st.Form,
		rulesets:   form.BuildRulesets(*st.Form),
	}

	idx := st.CurrentSectionIndex
	if idx < 0 || idx >= len(w.schema.Sections) {
		if err := store.SetCurrentSectionIndex(ctx, idx); err != nil {
			return nil, err
		}
		idx = store.State().CurrentSectionIndex
	}

	w.machine = fsm.NewFSM(sectionState(idx), w.events(), fsm.Callbacks{
		"before_" + eventSubmit: func(ctx context.Context, e *fsm.Event) {
			if err := w.evidence.MarkSubmitted(ctx, w.rollNumber); err != nil {
				e.Cancel(err)
			}
		},
	})
	w.section = w.newSection(idx)
	return w, nil
}

func (w *Wizard) events() fsm.Events {
	n := len(w.schema.Sections)
	events := make(fsm.Events, 0, 2*n)
	for i := 0; i < n-1; i++ {
		events = append(events, fsm.EventDesc{Name: eventNext, Src: []string{sectionState(i)}, Dst: sectionState(i + 1)})
	}
	for i := 1; i < n; i++ {
		events = append(events, fsm.EventDesc{Name: eventPrev, Src: []string{sectionState(i)}, Dst: sectionState(i - 1)})
	}
	events = append(events, fsm.EventDesc{Name: eventSubmit, Src: []string{sectionState(n - 1)}, Dst: stateSubmitted})
	return events
}

func (w *Wizard) newSection(idx int) *SectionController {
	return newSectionController(w.store, w, idx, w.schema.Sections[idx], w.rulesets[idx])
}

// navigate serializes navigation: the section at index must still be displayed and event
// allowed from it. gate runs before the machine moves and may veto the move.
func (w *Wizard) navigate(ctx context.Context, index int, event string, gate func() error) error {
	w.navMu.Lock()
	defer w.navMu.Unlock()

	if w.machine.Current() != sectionState(index) {
		return ErrSectionClosed
	}
	if !w.machine.Can(event) {
		return eventErrors[event]
	}
	if err := gate(); err != nil {
		return err
	}
	return w.fire(ctx, event)
}

// fire runs event then persists where it landed. The machine is rolled back if persisting fails.
func (w *Wizard) fire(ctx context.Context, event string) error {
	prev := w.machine.Current()
	if err := w.machine.Event(ctx, event); err != nil {
		switch cErr := err.(type) {
		case fsm.CanceledError:
			if cErr.Err != nil {
				return errors.Wrapf(cErr.Err, "%s cancelled", event)
			}
		case *fsm.CanceledError:
			if cErr.Err != nil {
				return errors.Wrapf(cErr.Err, "%s cancelled", event)
			}
		}
		return errors.Wrap(err, event)
	}

	var err error
	curr := w.machine.Current()
	if idx, ok := sectionIndex(curr); ok {
		err = w.store.SetCurrentSectionIndex(ctx, idx)
	} else if curr == stateSubmitted {
		err = w.store.SetSubmitted(ctx)
	}
	if err != nil {
		w.machine.SetState(prev)
		if curr == stateSubmitted {
			// the evidence was written on the way in
			if clrErr := w.evidence.Clear(ctx, w.rollNumber); clrErr != nil {
				w.logger.Error("clearing evidence of a failed submission", clrErr, map[string]interface{}{"rollNumber": w.rollNumber})
			}
		}
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.section.close()
	if idx, ok := sectionIndex(curr); ok {
		w.section = w.newSection(idx)
	} else {
		w.logger.Info("form submitted", map[string]interface{}{"rollNumber": w.rollNumber, "form": w.schema.FormTitle})
	}
	return nil
}

// Section returns the controller of the displayed section.
func (w *Wizard) Section() *SectionController {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.section
}

func (w *Wizard) Schema() form.Schema { return w.schema }

func (w *Wizard) SessionID() string { return w.sessionID }

func (w *Wizard) IsSubmitted() bool {
	return w.machine.Current() == stateSubmitted
}

// Position reports the displayed section. Once submitted it stays on the last one.
func (w *Wizard) Position() Position {
	total := len(w.schema.Sections)
	idx, ok := sectionIndex(w.machine.Current())
	if !ok {
		idx = total - 1
	}
	return Position{
		Index:   idx,
		Total:   total,
		IsFirst: idx == 0,
		IsLast:  idx == total-1,
		Section: w.schema.Sections[idx],
	}
}

func (p Position) String() string {
	return fmt.Sprintf("Section %d of %d: %s", p.Index+1, p.Total, p.Section.Title)
}

func (w *Wizard) Edit(ctx context.Context, fieldID string, value form.Value) error {
	return w.Section().Edit(ctx, fieldID, value)
}

func (w *Wizard) Next(ctx context.Context) error {
	return w.Section().Next(ctx)
}

func (w *Wizard) Previous(ctx context.Context) error {
	return w.Section().Previous(ctx)
}

func (w *Wizard) Submit(ctx context.Context) error {
	return w.Section().Submit(ctx)
}

// Close detaches the displayed section from the store.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.section.close()
}
