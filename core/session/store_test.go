package session

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/formportal/core"
	"github.com/trezcool/formportal/core/form"
	memstorage "github.com/trezcool/formportal/storage/local/memory"
	"github.com/trezcool/formportal/tests"
)

func newStore(t *testing.T, kv core.LocalStorage) *Store {
	store, err := NewStore(context.Background(), kv, core.NopLogger{})
	require.NoError(t, err)
	return store
}

func TestStore_persistsAndRestores(t *testing.T) {
	ctx := context.Background()
	kv := memstorage.New()
	store := newStore(t, kv)

	id, err := store.SetUser(ctx, User{RollNumber: "42", Name: "Ada"})
	require.NoError(t, err)
	require.NoError(t, store.SetForm(ctx, testutil.Schema()))
	require.NoError(t, store.SetField(ctx, "fullName", form.String("Ada")))
	require.NoError(t, store.SetCurrentSectionIndex(ctx, 1))

	restored := newStore(t, kv).State()
	assert.Equal(t, id, restored.ID)
	assert.Equal(t, &User{RollNumber: "42", Name: "Ada"}, restored.User)
	require.NotNil(t, restored.Form)
	assert.Equal(t, testutil.Schema().FormTitle, restored.Form.FormTitle)
	assert.Equal(t, "Ada", restored.FormData.Get("fullName").Str)
	assert.Equal(t, 1, restored.CurrentSectionIndex)
	assert.False(t, restored.IsSubmitted)
}

func TestStore_Logout(t *testing.T) {
	ctx := context.Background()
	kv := memstorage.New()
	store := newStore(t, kv)

	_, err := store.SetUser(ctx, User{RollNumber: "42", Name: "Ada"})
	require.NoError(t, err)
	require.NoError(t, store.SetForm(ctx, testutil.Schema()))
	require.NoError(t, store.SetSubmitted(ctx))

	require.NoError(t, store.Logout(ctx))
	st := store.State()
	assert.False(t, st.IsLoggedIn())
	assert.Nil(t, st.Form)
	assert.Empty(t, st.FormData)
	assert.Empty(t, st.ID)
	assert.False(t, st.IsSubmitted)

	_, err = kv.Get(ctx, StorageKey)
	assert.Equal(t, core.ErrKeyNotFound, err)
}

func TestStore_clampsRestoredIndex(t *testing.T) {
	ctx := context.Background()
	kv := memstorage.New()
	require.NoError(t, kv.Set(ctx, StorageKey, `{
		"id": "abc",
		"user": {"rollNumber": "42", "name": "Ada"},
		"formSchema": {"formTitle": "F", "sections": [{"title": "only", "fields": []}]},
		"formData": {},
		"currentSectionIndex": 3,
		"isSubmitted": false
	}`))

	store := newStore(t, kv)
	assert.Equal(t, 0, store.State().CurrentSectionIndex)
	assert.Equal(t, 0, newStore(t, kv).State().CurrentSectionIndex)
}

func TestStore_corruptSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := memstorage.New()
	require.NoError(t, kv.Set(ctx, StorageKey, `{not json`))

	store := newStore(t, kv)
	assert.False(t, store.State().IsLoggedIn())
	_, err := kv.Get(ctx, StorageKey)
	assert.Equal(t, core.ErrKeyNotFound, err)
}

func TestStore_CommitForm(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, memstorage.New())

	oldID, err := store.SetUser(ctx, User{RollNumber: "1", Name: "A"})
	require.NoError(t, err)
	require.NoError(t, store.Logout(ctx))
	assert.Equal(t, ErrStaleSession, store.CommitForm(ctx, oldID, testutil.Schema()))

	newID, err := store.SetUser(ctx, User{RollNumber: "2", Name: "B"})
	require.NoError(t, err)
	assert.NotEqual(t, oldID, newID)
	assert.Equal(t, ErrStaleSession, store.CommitForm(ctx, oldID, testutil.Schema()))
	assert.Nil(t, store.State().Form)

	require.NoError(t, store.CommitForm(ctx, newID, testutil.Schema()))
	assert.NotNil(t, store.State().Form)
}

func TestStore_formData(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, memstorage.New())
	_, err := store.SetUser(ctx, User{RollNumber: "1", Name: "A"})
	require.NoError(t, err)

	require.NoError(t, store.SetFormData(ctx, form.Data{"a": form.String("1"), "b": form.String("2")}))
	require.NoError(t, store.MergeFormData(ctx, form.Data{"b": form.String("3"), "c": form.Bool(true)}))
	assert.Equal(t, form.Data{"a": form.String("1"), "b": form.String("3"), "c": form.Bool(true)}, store.State().FormData)

	// callers cannot mutate the held state through a copy
	st := store.State()
	st.FormData["a"] = form.String("x")
	assert.Equal(t, "1", store.State().FormData.Get("a").Str)

	require.NoError(t, store.ResetFormData(ctx))
	assert.Empty(t, store.State().FormData)
}

func TestStore_SetCurrentSectionIndex(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, memstorage.New())
	_, err := store.SetUser(ctx, User{RollNumber: "1", Name: "A"})
	require.NoError(t, err)
	require.NoError(t, store.SetForm(ctx, testutil.Schema()))

	for _, tt := range []struct{ in, want int }{{1, 1}, {5, 1}, {-1, 0}, {0, 0}} {
		require.NoError(t, store.SetCurrentSectionIndex(ctx, tt.in))
		assert.Equal(t, tt.want, store.State().CurrentSectionIndex, "index %d", tt.in)
	}
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, memstorage.New())

	var seen []string
	unsubscribe := store.Subscribe(func(st State) {
		seen = append(seen, st.FormData.Get("name").Text())
	})

	_, err := store.SetUser(ctx, User{RollNumber: "1", Name: "A"})
	require.NoError(t, err)
	require.NoError(t, store.SetField(ctx, "name", form.String("Ada")))
	unsubscribe()
	require.NoError(t, store.SetField(ctx, "name", form.String("Bob")))

	assert.Equal(t, []string{"", "Ada"}, seen)
}

func TestEvidence(t *testing.T) {
	ctx := context.Background()
	kv := memstorage.New()
	ev := NewEvidence(kv)

	ok, err := ev.IsSubmitted(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ev.MarkSubmitted(ctx, "42"))
	ok, err = ev.IsSubmitted(ctx, "42")
	require.NoError(t, err)
	assert.True(t, ok)

	val, err := kv.Get(ctx, "form-submitted-42")
	require.NoError(t, err)
	assert.Equal(t, "true", val)

	// survives a logout
	store := newStore(t, kv)
	require.NoError(t, store.Logout(ctx))
	ok, err = ev.IsSubmitted(ctx, "42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvidence_Clear(t *testing.T) {
	ctx := context.Background()
	ev := NewEvidence(memstorage.New())

	require.NoError(t, ev.Clear(ctx, "42")) // nothing to clear
	require.NoError(t, ev.MarkSubmitted(ctx, "42"))
	require.NoError(t, ev.Clear(ctx, "42"))
	ok, err := ev.IsSubmitted(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_unsavedChangeIsNotApplied(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewFlakyStorage(memstorage.New())
	store := newStore(t, kv)
	_, err := store.SetUser(ctx, User{RollNumber: "42", Name: "Ada"})
	require.NoError(t, err)
	require.NoError(t, store.SetForm(ctx, testutil.Schema()))

	var notified int
	store.Subscribe(func(State) { notified++ })

	kv.FailWrites(func(key, _ string) bool { return key == StorageKey })
	assert.Equal(t, testutil.ErrWriteFailed, errors.Cause(store.SetSubmitted(ctx)))
	assert.Equal(t, testutil.ErrWriteFailed, errors.Cause(store.SetField(ctx, "fullName", form.String("Ada"))))
	assert.Equal(t, testutil.ErrWriteFailed, errors.Cause(store.Logout(ctx)))

	st := store.State()
	assert.False(t, st.IsSubmitted)
	assert.True(t, st.FormData.Get("fullName").IsAbsent())
	assert.True(t, st.IsLoggedIn())
	assert.Zero(t, notified)

	// the snapshot still holds the last saved state
	kv.FailWrites(nil)
	restored := newStore(t, kv)
	assert.False(t, restored.State().IsSubmitted)
	assert.True(t, restored.State().IsLoggedIn())
}
