package resource

import (
	"context"
	"sync"

	"github.com/iceops/iceops_sdk_go/pkg/iceapi"
)

// API is the controller surface a Store drives. Controller implements it;
// tests substitute fakes.
type API[T Model] interface {
	List(ctx context.Context, query map[string]string) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, id string, patch Patch) (T, error)
	Delete(ctx context.Context, id string) error
}

// State is the observable snapshot a UI layer renders from. Items keep the
// server response order. Err holds the last operation's message; failures
// never escape the store as errors.
type State[T Model] struct {
	Items     []T
	IsLoading bool
	Err       string
	Selected  *T
}

// Subscriber receives a state snapshot after every transition.
type Subscriber[T Model] func(State[T])

// Store is the generic observable state container for one resource. Actions
// follow a start/success/failure shape: loading on, error cleared; then
// either the result is merged in or the error message is recorded, loading
// off either way. Overlapping actions are not serialized; two concurrent
// FetchAll calls race and the last response to resolve wins.
type Store[T Model] struct {
	api API[T]

	mu     sync.Mutex
	state  State[T]
	subs   map[int]Subscriber[T]
	nextID int
}

// NewStore creates a Store driven by api.
func NewStore[T Model](api API[T]) *Store[T] {
	return &Store[T]{
		api:  api,
		subs: make(map[int]Subscriber[T]),
	}
}

// State returns a snapshot of the current state.
func (s *Store[T]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for state notifications and returns a cancel
// function.
func (s *Store[T]) Subscribe(fn Subscriber[T]) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// FetchAll replaces Items wholesale with the server collection.
func (s *Store[T]) FetchAll(ctx context.Context) {
	s.FetchWith(ctx, func(ctx context.Context) ([]T, error) {
		return s.api.List(ctx, nil)
	})
}

// FetchWith runs fetch under the standard start/success/failure transitions
// and replaces Items with its result. Feature stores use it for specialized
// listings (filtered queries, fixed sub-paths).
func (s *Store[T]) FetchWith(ctx context.Context, fetch func(context.Context) ([]T, error)) {
	s.begin()
	items, err := fetch(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	s.apply(func(st *State[T]) {
		st.Items = items
	})
}

// FetchByID fetches a single entity into Selected without touching Items.
func (s *Store[T]) FetchByID(ctx context.Context, id string) {
	s.begin()
	item, err := s.api.Get(ctx, id)
	if err != nil {
		s.fail(err)
		return
	}
	s.apply(func(st *State[T]) {
		st.Selected = &item
	})
}

// Create appends the created entity to Items.
func (s *Store[T]) Create(ctx context.Context, item T) {
	s.begin()
	created, err := s.api.Create(ctx, item)
	if err != nil {
		s.fail(err)
		return
	}
	s.apply(func(st *State[T]) {
		st.Items = append(st.Items, created)
	})
}

// Update replaces the matching entry by id in Items, and Selected when its id
// matches.
func (s *Store[T]) Update(ctx context.Context, id string, patch Patch) {
	s.MutateWith(ctx, id, func(ctx context.Context) (T, error) {
		return s.api.Update(ctx, id, patch)
	})
}

// MutateWith runs mutate under the standard transitions and merges the
// returned entity into Items (and Selected when its id matches). Feature
// stores use it for specialized write operations.
func (s *Store[T]) MutateWith(ctx context.Context, id string, mutate func(context.Context) (T, error)) {
	s.begin()
	updated, err := mutate(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	s.apply(func(st *State[T]) {
		for i, existing := range st.Items {
			if existing.ResourceID() == id {
				st.Items[i] = updated
				break
			}
		}
		if st.Selected != nil && (*st.Selected).ResourceID() == id {
			st.Selected = &updated
		}
	})
}

// Delete removes the matching entry from Items and clears Selected when it
// matched.
func (s *Store[T]) Delete(ctx context.Context, id string) {
	s.begin()
	if err := s.api.Delete(ctx, id); err != nil {
		s.fail(err)
		return
	}
	s.apply(func(st *State[T]) {
		kept := st.Items[:0]
		for _, existing := range st.Items {
			if existing.ResourceID() != id {
				kept = append(kept, existing)
			}
		}
		st.Items = kept
		if st.Selected != nil && (*st.Selected).ResourceID() == id {
			st.Selected = nil
		}
	})
}

// SetSelected is a pure synchronous state write with no network effect.
func (s *Store[T]) SetSelected(item *T) {
	s.mu.Lock()
	s.state.Selected = item
	s.notifyLocked()
}

func (s *Store[T]) begin() {
	s.mu.Lock()
	s.state.IsLoading = true
	s.state.Err = ""
	s.notifyLocked()
}

// apply mutates state on success and flips loading off.
func (s *Store[T]) apply(mutate func(*State[T])) {
	s.mu.Lock()
	mutate(&s.state)
	s.state.IsLoading = false
	s.notifyLocked()
}

// fail records the failure message, leaving Items and Selected untouched.
func (s *Store[T]) fail(err error) {
	s.mu.Lock()
	s.state.Err = iceapi.ErrorText(err)
	s.state.IsLoading = false
	s.notifyLocked()
}

// notifyLocked snapshots state, releases the lock and invokes subscribers.
func (s *Store[T]) notifyLocked() {
	snapshot := s.snapshotLocked()
	fns := make([]Subscriber[T], 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

func (s *Store[T]) snapshotLocked() State[T] {
	snapshot := s.state
	snapshot.Items = append([]T(nil), s.state.Items...)
	if s.state.Selected != nil {
		selected := *s.state.Selected
		snapshot.Selected = &selected
	}
	return snapshot
}
