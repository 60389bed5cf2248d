package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core"
	"github.com/trezcool/formportal/core/form"
)

// ErrStaleSession is returned when a result belongs to a session that has since ended.
var ErrStaleSession = errors.New("session is no longer current")

// Store owns the session State. Every mutation is persisted then broadcast to subscribers.
type Store struct {
	mu     sync.Mutex
	kv     core.LocalStorage
	logger core.Logger
	state  State

	subsMu  sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// NewStore restores the last snapshot from kv. A corrupt snapshot is discarded.
func NewStore(ctx context.Context, kv core.LocalStorage, logger core.Logger) (*Store, error) {
	s := &Store{
		kv:     kv,
		logger: logger,
		state:  State{FormData: form.Data{}},
		subs:   make(map[int]func(State)),
	}

	raw, err := kv.Get(ctx, StorageKey)
	switch {
	case errors.Cause(err) == core.ErrKeyNotFound:
		return s, nil
	case err != nil:
		return nil, errors.Wrap(err, "reading session snapshot")
	}

	var st State
	if err = json.Unmarshal([]byte(raw), &st); err != nil {
		logger.Warn("discarding corrupt session snapshot", errors.Wrap(err, "decoding session snapshot"))
		if err = kv.Delete(ctx, StorageKey); err != nil {
			return nil, errors.Wrap(err, "deleting corrupt session snapshot")
		}
		return s, nil
	}
	if st.FormData == nil {
		st.FormData = form.Data{}
	}
	if st.User == nil { // nothing survives without a user
		st = State{FormData: form.Data{}}
	}
	s.state = st

	// the form may have shrunk since the snapshot was taken
	if idx := clamp(st.CurrentSectionIndex, st.SectionCount()); idx != st.CurrentSectionIndex {
		logger.Warn("restored section index out of range; clamping", map[string]interface{}{
			"index": st.CurrentSectionIndex, "sections": st.SectionCount(),
		})
		s.state.CurrentSectionIndex = idx
		if err = s.persist(ctx, s.state.clone()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to be called with the new state after every mutation.
// The returned func unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(st State) {
	s.subsMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(st.clone())
	}
}

// update applies mutate under lock, persists and notifies.
// mutate may veto the change by returning an error, in which case nothing happens.
// A change that cannot be persisted is not applied either.
func (s *Store) update(ctx context.Context, mutate func(st *State) error) error {
	s.mu.Lock()
	next := s.state.clone()
	if err := mutate(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := next.clone()
	if err := s.persist(ctx, snapshot); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

func (s *Store) persist(ctx context.Context, st State) error {
	if st.User == nil {
		if err := s.kv.Delete(ctx, StorageKey); err != nil && errors.Cause(err) != core.ErrKeyNotFound {
			return errors.Wrap(err, "deleting session snapshot")
		}
		return nil
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "encoding session snapshot")
	}
	if err = s.kv.Set(ctx, StorageKey, string(raw)); err != nil {
		return errors.Wrap(err, "persisting session snapshot")
	}
	return nil
}

// SetUser starts a new session for usr. The form, answers and progress of any previous session are dropped.
func (s *Store) SetUser(ctx context.Context, usr User) (string, error) {
	id := uuid.NewString()
	err := s.update(ctx, func(st *State) error {
		*st = State{ID: id, User: &usr, FormData: form.Data{}}
		return nil
	})
	return id, err
}

// SetForm stores the schema and resets the current section.
func (s *Store) SetForm(ctx context.Context, schema form.Schema) error {
	return s.update(ctx, func(st *State) error {
		st.Form = &schema
		st.CurrentSectionIndex = 0
		return nil
	})
}

// CommitForm stores the schema only if sessionID is still the current session.
func (s *Store) CommitForm(ctx context.Context, sessionID string, schema form.Schema) error {
	return s.update(ctx, func(st *State) error {
		if st.User == nil || st.ID != sessionID {
			return ErrStaleSession
		}
		st.Form = &schema
		st.CurrentSectionIndex = 0
		return nil
	})
}

func (s *Store) SetFormData(ctx context.Context, data form.Data) error {
	return s.update(ctx, func(st *State) error {
		st.FormData = data.Clone()
		return nil
	})
}

// MergeFormData overwrites the given answers, keeping every other one.
func (s *Store) MergeFormData(ctx context.Context, data form.Data) error {
	return s.update(ctx, func(st *State) error {
		st.FormData = st.FormData.Merge(data)
		return nil
	})
}

func (s *Store) SetField(ctx context.Context, fieldID string, value form.Value) error {
	return s.MergeFormData(ctx, form.Data{fieldID: value})
}

func (s *Store) ResetFormData(ctx context.Context) error {
	return s.update(ctx, func(st *State) error {
		st.FormData = form.Data{}
		return nil
	})
}

// SetSubmitted marks the session submitted. Submission cannot be undone within a session.
func (s *Store) SetSubmitted(ctx context.Context) error {
	return s.update(ctx, func(st *State) error {
		st.IsSubmitted = true
		return nil
	})
}

// SetCurrentSectionIndex moves to idx, clamped to the sections of the held form.
func (s *Store) SetCurrentSectionIndex(ctx context.Context, idx int) error {
	return s.update(ctx, func(st *State) error {
		st.CurrentSectionIndex = clamp(idx, st.SectionCount())
		return nil
	})
}

// Logout clears everything, the persisted snapshot included.
func (s *Store) Logout(ctx context.Context) error {
	return s.update(ctx, func(st *State) error {
		*st = State{FormData: form.Data{}}
		return nil
	})
}

func clamp(idx, count int) int {
	switch {
	case count == 0 || idx < 0:
		return 0
	case idx >= count:
		return count - 1
	default:
		return idx
	}
}
