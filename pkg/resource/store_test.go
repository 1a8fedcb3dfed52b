package resource_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iceops/iceops_sdk_go/pkg/iceapi"
	"github.com/iceops/iceops_sdk_go/pkg/resource"
)

// fakeAPI scripts controller behaviour without a network.
type fakeAPI struct {
	listFn   func(ctx context.Context) ([]widget, error)
	getFn    func(ctx context.Context, id string) (widget, error)
	createFn func(ctx context.Context, item widget) (widget, error)
	updateFn func(ctx context.Context, id string, patch resource.Patch) (widget, error)
	deleteFn func(ctx context.Context, id string) error
}

func (f *fakeAPI) List(ctx context.Context, _ map[string]string) ([]widget, error) {
	return f.listFn(ctx)
}

func (f *fakeAPI) Get(ctx context.Context, id string) (widget, error) {
	return f.getFn(ctx, id)
}

func (f *fakeAPI) Create(ctx context.Context, item widget) (widget, error) {
	return f.createFn(ctx, item)
}

func (f *fakeAPI) Update(ctx context.Context, id string, patch resource.Patch) (widget, error) {
	return f.updateFn(ctx, id, patch)
}

func (f *fakeAPI) Delete(ctx context.Context, id string) error {
	return f.deleteFn(ctx, id)
}

func TestStoreFetchAllSuccess(t *testing.T) {
	payload := []widget{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}}
	store := resource.NewStore[widget](&fakeAPI{
		listFn: func(ctx context.Context) ([]widget, error) { return payload, nil },
	})

	var snapshots []resource.State[widget]
	store.Subscribe(func(st resource.State[widget]) {
		snapshots = append(snapshots, st)
	})

	store.FetchAll(context.Background())

	state := store.State()
	assert.Equal(t, payload, state.Items, "items keep the server response order")
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.Err)

	require.Len(t, snapshots, 2)
	assert.True(t, snapshots[0].IsLoading, "first notification marks loading")
	assert.Empty(t, snapshots[0].Err)
	assert.False(t, snapshots[1].IsLoading)
	assert.Equal(t, payload, snapshots[1].Items)
}

func TestStoreFailureLeavesItemsUntouched(t *testing.T) {
	calls := 0
	store := resource.NewStore[widget](&fakeAPI{
		listFn: func(ctx context.Context) ([]widget, error) {
			calls++
			if calls == 1 {
				return []widget{{ID: "1", Name: "A"}}, nil
			}
			return nil, &iceapi.APIError{Kind: iceapi.KindTransient, Message: "HTTP error! Status: 502", StatusCode: 502}
		},
	})

	ctx := context.Background()
	store.FetchAll(ctx)
	before := store.State().Items

	store.FetchAll(ctx)
	state := store.State()
	assert.Equal(t, before, state.Items, "no partial mutation on failure")
	assert.Equal(t, "HTTP error! Status: 502", state.Err)
	assert.False(t, state.IsLoading)

	// A subsequent action clears the previous error.
	calls = 0
	store.FetchAll(ctx)
	assert.Empty(t, store.State().Err)
}

func TestStoreFetchAllLastResponseWins(t *testing.T) {
	// Two overlapping fetches: the first one issued resolves last. The store
	// does not de-duplicate or serialize, so the first request's payload ends
	// up in Items.
	firstIssued := []widget{{ID: "1", Name: "stale"}}
	secondIssued := []widget{{ID: "2", Name: "fresh"}}

	entered := make(chan int, 2)
	gates := []chan struct{}{make(chan struct{}), make(chan struct{})}
	var mu sync.Mutex
	call := 0

	store := resource.NewStore[widget](&fakeAPI{
		listFn: func(ctx context.Context) ([]widget, error) {
			mu.Lock()
			idx := call
			call++
			mu.Unlock()
			entered <- idx
			<-gates[idx]
			if idx == 0 {
				return firstIssued, nil
			}
			return secondIssued, nil
		},
	})

	var wg sync.WaitGroup
	wg.Add(2)
	done := make(chan int, 2)
	go func() {
		defer wg.Done()
		store.FetchAll(context.Background())
		done <- 0
	}()
	<-entered
	go func() {
		defer wg.Done()
		store.FetchAll(context.Background())
		done <- 1
	}()
	<-entered

	close(gates[1]) // second request resolves first
	require.Equal(t, 1, <-done)
	close(gates[0]) // first request resolves last
	require.Equal(t, 0, <-done)
	wg.Wait()

	state := store.State()
	assert.Equal(t, firstIssued, state.Items, "whichever response resolves last wins")
	assert.False(t, state.IsLoading)
}

func TestStoreCreateThenDelete(t *testing.T) {
	created := widget{ID: "7", Name: "Ice Pick"}
	store := resource.NewStore[widget](&fakeAPI{
		createFn: func(ctx context.Context, item widget) (widget, error) { return created, nil },
		deleteFn: func(ctx context.Context, id string) error { return nil },
	})

	ctx := context.Background()
	store.Create(ctx, widget{Name: "Ice Pick"})
	require.Equal(t, []widget{created}, store.State().Items)

	store.SetSelected(&created)
	require.NotNil(t, store.State().Selected)

	store.Delete(ctx, "7")
	state := store.State()
	assert.Empty(t, state.Items)
	assert.Nil(t, state.Selected, "selection referring to the deleted id is cleared")
}

func TestStoreUpdateReplacesMatchingEntryAndSelection(t *testing.T) {
	fixture := widget{ID: "1", Name: "Ice Bag", Quantity: 10}
	other := widget{ID: "2", Name: "Salt", Quantity: 3}
	store := resource.NewStore[widget](&fakeAPI{
		listFn: func(ctx context.Context) ([]widget, error) { return []widget{fixture, other}, nil },
		updateFn: func(ctx context.Context, id string, patch resource.Patch) (widget, error) {
			updated := fixture
			updated.Quantity = patch["quantity"].(int)
			return updated, nil
		},
	})

	ctx := context.Background()
	store.FetchAll(ctx)
	store.SetSelected(&fixture)

	store.Update(ctx, "1", resource.Patch{"quantity": 5})

	state := store.State()
	require.Len(t, state.Items, 2)
	assert.Equal(t, widget{ID: "1", Name: "Ice Bag", Quantity: 5}, state.Items[0],
		"only the patched field changes")
	assert.Equal(t, other, state.Items[1], "unrelated entries are untouched")
	require.NotNil(t, state.Selected)
	assert.Equal(t, 5, state.Selected.Quantity, "matching selection is refreshed")
}

func TestStoreFetchByIDSetsSelectionOnly(t *testing.T) {
	store := resource.NewStore[widget](&fakeAPI{
		getFn: func(ctx context.Context, id string) (widget, error) {
			return widget{ID: id, Name: "Detail"}, nil
		},
	})

	store.FetchByID(context.Background(), "9")
	state := store.State()
	assert.Empty(t, state.Items)
	require.NotNil(t, state.Selected)
	assert.Equal(t, "9", state.Selected.ID)
}

func TestStoreDeleteFailureKeepsState(t *testing.T) {
	store := resource.NewStore[widget](&fakeAPI{
		listFn:   func(ctx context.Context) ([]widget, error) { return []widget{{ID: "1"}}, nil },
		deleteFn: func(ctx context.Context, id string) error { return errors.New("connection refused") },
	})

	ctx := context.Background()
	store.FetchAll(ctx)
	store.Delete(ctx, "1")

	state := store.State()
	assert.Len(t, state.Items, 1, "failed delete removes nothing")
	assert.Equal(t, "connection refused", state.Err)
}

func TestStoreUnauthorizedFetchRecordsSessionExpiry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := iceapi.New(srv.URL + "/api/")
	require.NoError(t, err)

	var observed []iceapi.Event
	client.Events().Subscribe(func(ev iceapi.Event) { observed = append(observed, ev) })

	ctrl, err := resource.NewController[widget](client, "widgets/")
	require.NoError(t, err)
	store := resource.NewStore[widget](ctrl)

	store.FetchAll(context.Background())

	state := store.State()
	assert.Equal(t, iceapi.SessionExpiredMessage, state.Err)
	assert.Empty(t, state.Items, "items unchanged from before the call")
	assert.Equal(t, []iceapi.Event{iceapi.EventSessionExpired}, observed)
}
