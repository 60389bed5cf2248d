package portal

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/formportal/core"
	"github.com/trezcool/formportal/core/form"
	"github.com/trezcool/formportal/core/session"
	memstorage "github.com/trezcool/formportal/storage/local/memory"
	"github.com/trezcool/formportal/tests"
)

type fakeClient struct {
	schema       form.Schema
	createErr    error
	getErr       error
	createCalls  int
	getFormCalls int
	beforeGet    func() // runs while the fetch is "in flight"
}

func (c *fakeClient) CreateUser(_ context.Context, _ session.User) error {
	c.createCalls++
	return c.createErr
}

func (c *fakeClient) GetForm(_ context.Context, _ string) (form.Schema, error) {
	c.getFormCalls++
	if c.beforeGet != nil {
		c.beforeGet()
	}
	if c.getErr != nil {
		return form.Schema{}, c.getErr
	}
	return c.schema, nil
}

type fixture struct {
	kv       *memstorage.Storage
	store    *session.Store
	evidence *session.Evidence
	client   *fakeClient
	notices  *NoticeLog
	portal   *Portal
}

func setup(t *testing.T, schema form.Schema) *fixture {
	kv := memstorage.New()
	store, err := session.NewStore(context.Background(), kv, core.NopLogger{})
	require.NoError(t, err)

	f := &fixture{
		kv:       kv,
		store:    store,
		evidence: session.NewEvidence(kv),
		client:   &fakeClient{schema: schema},
		notices:  &NoticeLog{},
	}
	f.portal = New(f.store, f.evidence, f.client, f.notices, core.NopLogger{})
	return f
}

func (f *fixture) login(t *testing.T) {
	require.NoError(t, f.portal.Login(context.Background(), LoginRequest{RollNumber: "42", Name: "Ada"}))
	f.notices.Drain()
}

func titles(notices []Notice) []string {
	out := make([]string, 0, len(notices))
	for _, n := range notices {
		out = append(out, n.Title)
	}
	return out
}

func TestLoginRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  LoginRequest
		want map[string]string
	}{
		{name: "both missing", req: LoginRequest{}, want: map[string]string{"rollNumber": "Roll number is required", "name": "Name is required"}},
		{name: "name missing", req: LoginRequest{RollNumber: "1"}, want: map[string]string{"name": "Name is required"}},
		{name: "valid", req: LoginRequest{RollNumber: "1", Name: "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			vErr, ok := errors.Cause(err).(*core.ValidationError)
			require.True(t, ok, "error = %v", err)
			assert.Equal(t, tt.want, vErr.FieldMap())
		})
	}
}

func TestPortal_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid request", func(t *testing.T) {
		f := setup(t, testutil.Schema())
		err := f.portal.Login(ctx, LoginRequest{RollNumber: "  ", Name: "Ada"})
		assert.True(t, core.IsValidationError(err))
		assert.Equal(t, 0, f.client.createCalls)
		assert.Equal(t, ViewLogin, f.portal.View())
	})

	t.Run("new student", func(t *testing.T) {
		f := setup(t, testutil.Schema())
		require.NoError(t, f.portal.Login(ctx, LoginRequest{RollNumber: " 42 ", Name: "Ada"}))

		st := f.portal.State()
		assert.Equal(t, &session.User{RollNumber: "42", Name: "Ada"}, st.User)
		assert.NotEmpty(t, st.ID)
		require.NotNil(t, st.Form)
		assert.Equal(t, 0, st.CurrentSectionIndex)
		assert.Equal(t, ViewForm, f.portal.View())
		assert.Equal(t, []string{"Login successful"}, titles(f.notices.Drain()))
	})

	t.Run("already registered proceeds to fetch", func(t *testing.T) {
		f := setup(t, testutil.Schema())
		f.client.createErr = &APIError{Status: 409, Message: "User with roll number 42 already exists", Code: "USER_EXISTS"}
		require.NoError(t, f.portal.Login(ctx, LoginRequest{RollNumber: "42", Name: "Ada"}))

		assert.Equal(t, 1, f.client.getFormCalls)
		assert.Equal(t, ViewForm, f.portal.View())
		assert.Equal(t, []string{"User already exists", "Login successful"}, titles(f.notices.Drain()))
	})

	t.Run("evidence skips the network", func(t *testing.T) {
		f := setup(t, testutil.Schema())
		require.NoError(t, f.evidence.MarkSubmitted(ctx, "42"))
		require.NoError(t, f.portal.Login(ctx, LoginRequest{RollNumber: "42", Name: "Ada"}))

		assert.Equal(t, 0, f.client.createCalls)
		assert.Equal(t, 0, f.client.getFormCalls)
		st := f.portal.State()
		assert.True(t, st.IsSubmitted)
		assert.Nil(t, st.Form)
		assert.Equal(t, ViewSubmitted, f.portal.View())
		assert.Equal(t, []string{"Form already submitted"}, titles(f.notices.Drain()))
	})

	t.Run("registration failure keeps prior state", func(t *testing.T) {
		f := setup(t, testutil.Schema())
		f.client.createErr = &APIError{Status: 500, Message: "Failed to create user", Code: "UNKNOWN_ERROR"}
		err := f.portal.Login(ctx, LoginRequest{RollNumber: "42", Name: "Ada"})
		require.Error(t, err)

		assert.Equal(t, 0, f.client.getFormCalls)
		assert.Equal(t, ViewLogin, f.portal.View())
		notices := f.notices.Drain()
		require.Len(t, notices, 1)
		assert.Equal(t, Notice{Title: "Login failed", Description: "Failed to create user", Destructive: true}, notices[0])
	})

	t.Run("logout during fetch drops the login", func(t *testing.T) {
		f := setup(t, testutil.Schema())
		f.client.beforeGet = func() { require.NoError(t, f.portal.Logout(ctx)) }

		require.NoError(t, f.portal.Login(ctx, LoginRequest{RollNumber: "42", Name: "Ada"}))
		st := f.portal.State()
		assert.Nil(t, st.User)
		assert.Nil(t, st.Form)
		assert.Equal(t, ViewLogin, f.portal.View())
		assert.NotContains(t, titles(f.notices.Drain()), "Login successful")
	})

	t.Run("newer login during fetch wins", func(t *testing.T) {
		f := setup(t, testutil.Schema())
		f.client.beforeGet = func() {
			f.client.beforeGet = nil
			require.NoError(t, f.portal.Login(ctx, LoginRequest{RollNumber: "7", Name: "Bob"}))
		}

		require.NoError(t, f.portal.Login(ctx, LoginRequest{RollNumber: "42", Name: "Ada"}))
		st := f.portal.State()
		require.NotNil(t, st.User)
		assert.Equal(t, "7", st.User.RollNumber)
		assert.Equal(t, ViewForm, f.portal.View())
	})

	t.Run("form without sections", func(t *testing.T) {
		f := setup(t, form.Schema{FormTitle: "Empty"})
		require.NoError(t, f.portal.Login(ctx, LoginRequest{RollNumber: "42", Name: "Ada"}))

		assert.Equal(t, ViewUnavailable, f.portal.View())
		notices := f.notices.Drain()
		require.Len(t, notices, 1)
		assert.Equal(t, "Form unavailable", notices[0].Title)
		assert.True(t, notices[0].Destructive)
	})

	t.Run("fetch failure keeps prior state", func(t *testing.T) {
		f := setup(t, testutil.Schema())
		f.client.getErr = &APIError{Status: 404, Message: "Student not found", Code: "USER_NOT_FOUND"}
		require.Error(t, f.portal.Login(ctx, LoginRequest{RollNumber: "42", Name: "Ada"}))

		assert.Equal(t, ViewLogin, f.portal.View())
		assert.Equal(t, []string{"Login failed"}, titles(f.notices.Drain()))
	})
}

func TestPortal_LoadForm(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches when missing", func(t *testing.T) {
		f := setup(t, testutil.Schema())
		_, err := f.store.SetUser(ctx, session.User{RollNumber: "42", Name: "Ada"})
		require.NoError(t, err)
		assert.Equal(t, ViewLoading, f.portal.View())

		require.NoError(t, f.portal.LoadForm(ctx))
		assert.Equal(t, ViewForm, f.portal.View())

		// nothing to do once loaded
		require.NoError(t, f.portal.LoadForm(ctx))
		assert.Equal(t, 1, f.client.getFormCalls)
	})

	t.Run("failure keeps the student logged in", func(t *testing.T) {
		f := setup(t, testutil.Schema())
		f.client.getErr = errors.New("Failed to get form")
		_, err := f.store.SetUser(ctx, session.User{RollNumber: "42", Name: "Ada"})
		require.NoError(t, err)

		require.Error(t, f.portal.LoadForm(ctx))
		assert.Equal(t, ViewLoading, f.portal.View())
		notices := f.notices.Drain()
		require.Len(t, notices, 1)
		assert.Equal(t, Notice{Title: "Error", Description: "Failed to get form", Destructive: true}, notices[0])
	})

	t.Run("previously submitted", func(t *testing.T) {
		f := setup(t, testutil.Schema())
		_, err := f.store.SetUser(ctx, session.User{RollNumber: "42", Name: "Ada"})
		require.NoError(t, err)
		require.NoError(t, f.evidence.MarkSubmitted(ctx, "42"))

		require.NoError(t, f.portal.LoadForm(ctx))
		assert.Equal(t, ViewSubmitted, f.portal.View())
		assert.Equal(t, []string{"Previously submitted"}, titles(f.notices.Drain()))
	})

	t.Run("logout during fetch drops the form", func(t *testing.T) {
		f := setup(t, testutil.Schema())
		_, err := f.store.SetUser(ctx, session.User{RollNumber: "42", Name: "Ada"})
		require.NoError(t, err)
		f.client.beforeGet = func() { require.NoError(t, f.portal.Logout(ctx)) }

		require.NoError(t, f.portal.LoadForm(ctx))
		assert.Nil(t, f.portal.State().Form)
		assert.Equal(t, ViewLogin, f.portal.View())
	})

	t.Run("re-login during fetch drops the form", func(t *testing.T) {
		f := setup(t, testutil.Schema())
		_, err := f.store.SetUser(ctx, session.User{RollNumber: "42", Name: "Ada"})
		require.NoError(t, err)
		f.client.beforeGet = func() {
			_, err := f.store.SetUser(ctx, session.User{RollNumber: "7", Name: "Bob"})
			require.NoError(t, err)
		}

		require.NoError(t, f.portal.LoadForm(ctx))
		st := f.portal.State()
		assert.Equal(t, "7", st.User.RollNumber)
		assert.Nil(t, st.Form)
	})
}

func TestPortal_submitThenLogout(t *testing.T) {
	ctx := context.Background()
	f := setup(t, testutil.Schema())
	f.login(t)

	w, err := f.portal.Wizard(ctx)
	require.NoError(t, err)
	for id, v := range testutil.ValidData() {
		if _, ok := w.Position().Section.Field(id); ok {
			require.NoError(t, w.Edit(ctx, id, v))
		}
	}
	require.NoError(t, w.Next(ctx))
	for id, v := range testutil.ValidData() {
		if _, ok := w.Position().Section.Field(id); ok {
			require.NoError(t, w.Edit(ctx, id, v))
		}
	}
	require.NoError(t, w.Submit(ctx))

	assert.True(t, w.IsSubmitted())
	assert.Equal(t, ViewSubmitted, f.portal.View())
	ok, err := f.evidence.IsSubmitted(ctx, "42")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.portal.Wizard(ctx)
	assert.Equal(t, ErrFormSubmitted, err)

	require.NoError(t, f.portal.Logout(ctx))
	st := f.portal.State()
	assert.Nil(t, st.User)
	assert.Nil(t, st.Form)
	assert.Empty(t, st.FormData)
	assert.False(t, st.IsSubmitted)
	assert.Equal(t, 0, st.CurrentSectionIndex)
	assert.Equal(t, ViewLogin, f.portal.View())

	// logging back in finds the evidence
	require.NoError(t, f.portal.Login(ctx, LoginRequest{RollNumber: "42", Name: "Ada"}))
	assert.Equal(t, ViewSubmitted, f.portal.View())
	assert.Equal(t, 1, f.client.getFormCalls)
}

func TestPortal_Wizard(t *testing.T) {
	ctx := context.Background()

	t.Run("not logged in", func(t *testing.T) {
		f := setup(t, testutil.Schema())
		_, err := f.portal.Wizard(ctx)
		assert.Equal(t, ErrNotLoggedIn, err)
	})

	t.Run("no sections", func(t *testing.T) {
		f := setup(t, form.Schema{FormTitle: "Empty"})
		f.login(t)
		assert.Equal(t, ViewUnavailable, f.portal.View())
		_, err := f.portal.Wizard(ctx)
		assert.Equal(t, form.ErrNoSections, err)
	})

	t.Run("reused within a session", func(t *testing.T) {
		f := setup(t, testutil.Schema())
		f.login(t)
		w1, err := f.portal.Wizard(ctx)
		require.NoError(t, err)
		w2, err := f.portal.Wizard(ctx)
		require.NoError(t, err)
		assert.Same(t, w1, w2)

		require.NoError(t, f.portal.Logout(ctx))
		f.login(t)
		w3, err := f.portal.Wizard(ctx)
		require.NoError(t, err)
		assert.NotSame(t, w1, w3)
	})
}
