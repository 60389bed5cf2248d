package portal

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core"
	"github.com/trezcool/formportal/core/form"
	"github.com/trezcool/formportal/core/session"
)

type View string

// Views
const (
	ViewLogin       View = "login"
	ViewLoading     View = "loading"
	ViewForm        View = "form"
	ViewSubmitted   View = "submitted"
	ViewUnavailable View = "unavailable" // the form has no sections
)

var (
	ErrNotLoggedIn = errors.New("not logged in")

	errLoginOvertaken = errors.New("login overtaken")

	loginMessages = map[string]string{
		"rollNumber": "Roll number is required",
		"name":       "Name is required",
	}
)

type LoginRequest struct {
	RollNumber string `json:"rollNumber" validate:"required"`
	Name       string `json:"name" validate:"required"`
}

func (req *LoginRequest) Clean() {
	req.RollNumber = core.CleanString(req.RollNumber)
	req.Name = core.CleanString(req.Name)
}

func (req LoginRequest) Validate() error {
	err := core.TranslateErrors(core.Validate.Struct(req))
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	if !ok {
		return err
	}
	for i, fe := range vErr.Fields {
		if msg, ok := loginMessages[fe.Field]; ok {
			vErr.Fields[i].Error = msg
		}
	}
	return vErr
}

// Portal is the top level of the student client: it logs students in, loads their form
// and hands out the Wizard that fills it.
type Portal struct {
	store    *session.Store
	evidence *session.Evidence
	client   Client
	notifier Notifier
	logger   core.Logger

	mu     sync.Mutex
	gen    uint64 // bumped by every login and logout
	wizard *Wizard
}

func New(store *session.Store, evidence *session.Evidence, client Client, notifier Notifier, logger core.Logger) *Portal {
	return &Portal{
		store:    store,
		evidence: evidence,
		client:   client,
		notifier: notifier,
		logger:   logger,
	}
}

func (p *Portal) State() session.State {
	return p.store.State()
}

// View selects what the student should see.
func (p *Portal) View() View {
	st := p.store.State()
	switch {
	case !st.IsLoggedIn():
		return ViewLogin
	case st.IsSubmitted:
		return ViewSubmitted
	case st.Form != nil && len(st.Form.Sections) == 0:
		return ViewUnavailable
	case st.Form != nil:
		return ViewForm
	default:
		return ViewLoading
	}
}

// Login registers the student (an existing registration is fine) and fetches their form.
// Students who already submitted on this profile skip the network entirely.
// On failure the previous state is left untouched. A login overtaken by a logout or
// another login while its requests were in flight is dropped.
func (p *Portal) Login(ctx context.Context, req LoginRequest) error {
	req.Clean()
	if err := req.Validate(); err != nil {
		return err
	}
	usr := session.User{RollNumber: req.RollNumber, Name: req.Name}
	gen := p.generation()

	submitted, err := p.evidence.IsSubmitted(ctx, usr.RollNumber)
	if err != nil {
		return p.loginFailed(err)
	}
	if submitted {
		if err = p.startSession(ctx, gen, usr, nil, true); err != nil {
			if errors.Cause(err) == errLoginOvertaken {
				return nil
			}
			return p.loginFailed(err)
		}
		p.notifier.Notify(Notice{
			Title:       "Form already submitted",
			Description: "You have already submitted the form. Redirecting to the submission page.",
		})
		return nil
	}

	if err = p.client.CreateUser(ctx, usr); err != nil {
		if !IsUserExists(err) {
			return p.loginFailed(err)
		}
		p.notifier.Notify(Notice{Title: "User already exists", Description: "Logging in with existing credentials."})
	}

	schema, err := p.client.GetForm(ctx, usr.RollNumber)
	if err != nil {
		return p.loginFailed(err)
	}

	// another tab may have submitted meanwhile
	submitted, err = p.evidence.IsSubmitted(ctx, usr.RollNumber)
	if err != nil {
		return p.loginFailed(err)
	}

	if err = p.startSession(ctx, gen, usr, &schema, submitted); err != nil {
		if errors.Cause(err) == errLoginOvertaken {
			p.logger.Debug("dropping login overtaken by another session change", usr)
			return nil
		}
		return p.loginFailed(err)
	}
	switch {
	case submitted:
		p.notifier.Notify(Notice{Title: "Welcome back", Description: "You have already submitted your form."})
	case len(schema.Sections) == 0:
		p.notifier.Notify(Notice{
			Title:       "Form unavailable",
			Description: "This form has no sections. Please contact the administrator.",
			Destructive: true,
		})
	default:
		p.notifier.Notify(Notice{Title: "Login successful", Description: "Please complete your form submission."})
	}
	return nil
}

func (p *Portal) generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// startSession replaces the session with usr's, unless a logout or another login happened
// since gen was read.
func (p *Portal) startSession(ctx context.Context, gen uint64, usr session.User, schema *form.Schema, submitted bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		return errLoginOvertaken
	}
	p.gen++
	p.closeWizardLocked()

	if _, err := p.store.SetUser(ctx, usr); err != nil {
		return err
	}
	if schema != nil {
		if err := p.store.SetForm(ctx, *schema); err != nil {
			return err
		}
	}
	if submitted {
		return p.store.SetSubmitted(ctx)
	}
	return nil
}

func (p *Portal) loginFailed(err error) error {
	p.logger.Warn("login failed", err)
	p.notifier.Notify(Notice{
		Title:       "Login failed",
		Description: errorDescription(err, "Failed to login. Please try again."),
		Destructive: true,
	})
	return err
}

// LoadForm fetches the form of a logged-in student who holds none yet.
// A form fetched for a session that ended meanwhile is dropped.
func (p *Portal) LoadForm(ctx context.Context) error {
	st := p.store.State()
	if !st.IsLoggedIn() || st.Form != nil || st.IsSubmitted {
		return nil
	}

	schema, err := p.client.GetForm(ctx, st.User.RollNumber)
	if err != nil {
		p.logger.Warn("loading form failed", err)
		p.notifier.Notify(Notice{
			Title:       "Error",
			Description: errorDescription(err, "Failed to load form data."),
			Destructive: true,
		})
		return err
	}

	if err = p.store.CommitForm(ctx, st.ID, schema); err != nil {
		if errors.Cause(err) == session.ErrStaleSession {
			p.logger.Debug("dropping form fetched for an ended session")
			return nil
		}
		return err
	}

	submitted, err := p.evidence.IsSubmitted(ctx, st.User.RollNumber)
	if err != nil {
		return err
	}
	if submitted {
		if err = p.store.SetSubmitted(ctx); err != nil {
			return err
		}
		p.notifier.Notify(Notice{Title: "Previously submitted", Description: "You have already submitted this form."})
	}
	return nil
}

// Wizard returns the wizard of the current session, creating it on first use.
func (p *Portal) Wizard(ctx context.Context) (*Wizard, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.store.State()
	if p.wizard != nil && p.wizard.SessionID() == st.ID && !p.wizard.IsSubmitted() && !st.IsSubmitted {
		return p.wizard, nil
	}
	if p.wizard != nil {
		p.wizard.Close()
		p.wizard = nil
	}

	w, err := NewWizard(ctx, p.store, p.evidence, p.logger)
	if err != nil {
		return nil, err
	}
	p.wizard = w
	return w, nil
}

// Logout forgets the student, their form and answers. Submission evidence is kept.
// A login still in flight is dropped.
func (p *Portal) Logout(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.closeWizardLocked()
	return p.store.Logout(ctx)
}

func (p *Portal) closeWizardLocked() {
	if p.wizard != nil {
		p.wizard.Close()
		p.wizard = nil
	}
}

func errorDescription(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
