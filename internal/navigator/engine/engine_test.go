package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"parking-navigator/internal/navigator/graph"
	"parking-navigator/internal/navigator/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLayout(name string, slots ...models.Slot) models.Layout {
	return models.Layout{
		Name: name,
		Nodes: []models.Node{
			{ID: "N1", X: 0, Y: 0, Neighbors: []string{"N2"}},
			{ID: "N2", X: 10, Y: 0},
		},
		Slots: slots,
	}
}

func staticFetcher(id string, l models.Layout) Fetcher {
	return FetcherFunc(func(context.Context) (string, models.Layout, error) {
		return id, l, nil
	})
}

type fakeStore struct {
	mu        sync.Mutex
	snapshots []*Snapshot
	events    []models.OccupancyUpdate
}

func (s *fakeStore) SaveSnapshot(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *fakeStore) AppendOccupancy(_ context.Context, _ string, _ uint64, u models.OccupancyUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, u)
	return nil
}

func TestLoad_Publishes(t *testing.T) {
	e := New(Config{})
	assert.Nil(t, e.Snapshot())

	snap, err := e.Load("lot", testLayout("a", models.Slot{ID: "R1", X: 4, Y: 1, Width: 2, Height: 2}))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), snap.Version)
	assert.Equal(t, uint64(1), snap.Revision)
	assert.Equal(t, "lot", snap.ParkingID)
	assert.Equal(t, 5, snap.Graph.Len())
	require.Len(t, snap.FrontNodes, 1)
	assert.GreaterOrEqual(t, snap.FrontNodes[0], 0)
	assert.Same(t, snap, e.Snapshot())
	assert.Equal(t, 1, snap.FreeSlots())
}

func TestLoad_ComputesParkingSize(t *testing.T) {
	e := New(Config{})
	l := testLayout("a")
	l.Parking = models.Parking{Lat1: 38.16752, Lng1: 140.86561, Lat2: 38.16742, Lng2: 140.86591}

	snap, err := e.Load("lot", l)
	require.NoError(t, err)
	assert.Greater(t, snap.Layout.Parking.Width, 0.0)
	assert.Greater(t, snap.Layout.Parking.Height, 0.0)
}

func TestLoad_StrictRejectsInvalid(t *testing.T) {
	e := New(Config{Strict: true})
	l := testLayout("a")
	l.Links = []models.Link{{From: "N1", To: "ghost"}}

	_, err := e.Load("lot", l)
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrInvalidLayout))
	assert.Nil(t, e.Snapshot())

	// в нестрогом режиме та же раскладка принимается
	snap, err := New(Config{}).Load("lot", l)
	require.NoError(t, err)
	assert.Len(t, snap.Graph.Report().DanglingLinks, 1)
}

func TestReload_LastWriteWins(t *testing.T) {
	e := New(Config{})

	started := make(chan struct{})
	release := make(chan struct{})
	slow := FetcherFunc(func(context.Context) (string, models.Layout, error) {
		close(started)
		<-release
		return "lot", testLayout("old"), nil
	})

	type outcome struct {
		res ReloadResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := e.Reload(context.Background(), slow)
		done <- outcome{res, err}
	}()

	<-started
	res, err := e.Reload(context.Background(), staticFetcher("lot", testLayout("new")))
	require.NoError(t, err)
	assert.Equal(t, ReloadPublished, res.Status)

	close(release)
	select {
	case out := <-done:
		require.NoError(t, out.err)
		assert.Equal(t, ReloadStale, out.res.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("slow reload did not finish")
	}

	assert.Equal(t, "new", e.Snapshot().Layout.Name)
	assert.Equal(t, uint64(1), e.Snapshot().Version)
}

func TestReload_SupersededFetchIsCancelled(t *testing.T) {
	e := New(Config{})

	started := make(chan struct{})
	slow := FetcherFunc(func(ctx context.Context) (string, models.Layout, error) {
		close(started)
		<-ctx.Done()
		return "", models.Layout{}, ctx.Err()
	})

	done := make(chan ReloadResult, 1)
	go func() {
		res, err := e.Reload(context.Background(), slow)
		assert.NoError(t, err)
		done <- res
	}()

	<-started
	_, err := e.Reload(context.Background(), staticFetcher("lot", testLayout("new")))
	require.NoError(t, err)

	select {
	case res := <-done:
		assert.Equal(t, ReloadStale, res.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded fetch was not cancelled")
	}
	assert.Equal(t, "new", e.Snapshot().Layout.Name)
}

func TestReload_FetchErrorKeepsPrevious(t *testing.T) {
	e := New(Config{})
	prev, err := e.Load("lot", testLayout("good"))
	require.NoError(t, err)

	boom := errors.New("connection refused")
	res, err := e.Reload(context.Background(), FetcherFunc(func(context.Context) (string, models.Layout, error) {
		return "", models.Layout{}, boom
	}))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed))
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, ReloadFailed, res.Status)
	assert.Same(t, prev, e.Snapshot())
}

func TestReload_InvalidKeepsPrevious(t *testing.T) {
	e := New(Config{Strict: true})
	prev, err := e.Load("lot", testLayout("good"))
	require.NoError(t, err)

	bad := testLayout("bad")
	bad.Nodes = append(bad.Nodes, models.Node{ID: "N1"})
	res, err := e.Reload(context.Background(), staticFetcher("lot", bad))

	require.ErrorIs(t, err, graph.ErrInvalidLayout)
	assert.Equal(t, ReloadInvalid, res.Status)
	assert.Same(t, prev, e.Snapshot())
}

func TestApplyOccupancy_CopyOnWrite(t *testing.T) {
	store := &fakeStore{}
	e := New(Config{}, WithStore(store))
	before, err := e.Load("lot", testLayout("a",
		models.Slot{ID: "R1"},
		models.Slot{ID: "R2"},
	))
	require.NoError(t, err)

	res, err := e.ApplyOccupancy(context.Background(), models.OccupancyUpdate{
		Updates: []models.OccupancyChange{
			{ID: "R2", Status: models.SlotOccupied},
			{ID: "R9", Status: models.SlotOccupied},
		},
		Source: "sensor",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, []string{"R9"}, res.Unknown)
	assert.Equal(t, uint64(2), res.Revision)

	after := e.Snapshot()
	assert.Equal(t, models.SlotFree, before.Layout.Slots[1].Status)
	assert.Equal(t, models.SlotOccupied, after.Layout.Slots[1].Status)
	assert.Same(t, before.Graph, after.Graph)
	assert.Equal(t, before.Version, after.Version)

	require.Len(t, store.snapshots, 1)
	require.Len(t, store.events, 1)
	assert.Equal(t, "sensor", store.events[0].Source)
}

func TestReload_FetchedLayoutOverridesConcurrentOccupancy(t *testing.T) {
	e := New(Config{})
	_, err := e.Load("lot", testLayout("a", models.Slot{ID: "R1"}))
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	slow := FetcherFunc(func(context.Context) (string, models.Layout, error) {
		close(started)
		<-release
		return "lot", testLayout("b", models.Slot{ID: "R1"}), nil
	})

	done := make(chan ReloadResult, 1)
	go func() {
		res, _ := e.Reload(context.Background(), slow)
		done <- res
	}()

	<-started
	occ, err := e.ApplyOccupancy(context.Background(), models.OccupancyUpdate{
		Updates: []models.OccupancyChange{{ID: "R1", Status: models.SlotOccupied}},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), occ.Revision)

	close(release)
	var res ReloadResult
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reload did not finish")
	}

	assert.Equal(t, ReloadPublished, res.Status)
	assert.Equal(t, uint64(1), res.Overwritten)
	assert.Equal(t, uint64(3), res.Snapshot.Revision)
	assert.Equal(t, models.SlotFree, e.Snapshot().Layout.Slots[0].Status)

	res, err = e.Reload(context.Background(), staticFetcher("lot", testLayout("c")))
	require.NoError(t, err)
	assert.Zero(t, res.Overwritten)
}

func TestApplyOccupancy_OnlyUnknown(t *testing.T) {
	e := New(Config{})
	before, err := e.Load("lot", testLayout("a", models.Slot{ID: "R1"}))
	require.NoError(t, err)

	res, err := e.ApplyOccupancy(context.Background(), models.OccupancyUpdate{
		Updates: []models.OccupancyChange{{ID: "nope", Status: models.SlotOccupied}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Applied)
	assert.Same(t, before, e.Snapshot())
}

func TestApplyOccupancy_NoLayout(t *testing.T) {
	_, err := New(Config{}).ApplyOccupancy(context.Background(), models.OccupancyUpdate{
		Updates: []models.OccupancyChange{{ID: "R1"}},
	})
	assert.ErrorIs(t, err, ErrNoLayout)
}

func TestListeners(t *testing.T) {
	e := New(Config{})
	var causes []Cause
	var versions []uint64
	e.Subscribe(func(snap *Snapshot, cause Cause) {
		causes = append(causes, cause)
		versions = append(versions, snap.Revision)
	})

	_, err := e.Load("lot", testLayout("a", models.Slot{ID: "R1"}))
	require.NoError(t, err)
	_, err = e.ApplyOccupancy(context.Background(), models.OccupancyUpdate{
		Updates: []models.OccupancyChange{{ID: "R1", Status: models.SlotOccupied}},
	})
	require.NoError(t, err)

	assert.Equal(t, []Cause{CauseLayout, CauseOccupancy}, causes)
	assert.Equal(t, []uint64{1, 2}, versions)
}
