package mangadex

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"

	"mangawatch/internal/microservices/http-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeSource serves scripted pages in call order.
type fakeSource struct {
	mu          sync.Mutex
	pages       [][]MangaData
	pageErr     map[int]error
	calls       []url.Values
	authors     map[string]string
	authorCalls [][]string
}

func (f *fakeSource) GetManga(_ context.Context, params url.Values) (*MangaListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.calls)
	f.calls = append(f.calls, params)
	if err := f.pageErr[idx]; err != nil {
		return nil, err
	}
	if idx >= len(f.pages) {
		return &MangaListResponse{}, nil
	}
	return &MangaListResponse{Data: f.pages[idx]}, nil
}

func (f *fakeSource) GetAuthors(_ context.Context, ids []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authorCalls = append(f.authorCalls, ids)
	out := map[string]string{}
	for _, id := range ids {
		if name, ok := f.authors[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

// memStore upserts into a map keyed by dex id.
type memStore struct {
	mu    sync.Mutex
	rows  map[string]*models.Manga
	fails map[string]error
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]*models.Manga{}, fails: map[string]error{}}
}

func (s *memStore) UpsertByDexID(_ context.Context, m *models.Manga) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fails[*m.DexID]; err != nil {
		return false, err
	}
	_, exists := s.rows[*m.DexID]
	s.rows[*m.DexID] = m
	return !exists, nil
}

type MockCursorStore struct {
	mock.Mock
}

func (m *MockCursorStore) GetCursor(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockCursorStore) SaveCursor(ctx context.Context, name, cursor string) error {
	args := m.Called(ctx, name, cursor)
	return args.Error(0)
}

func item(n int) MangaData {
	return MangaData{
		ID: fmt.Sprintf("dex-%d", n),
		Attributes: MangaAttributes{
			Title:     map[string]string{"en": fmt.Sprintf("Manga %d", n)},
			CreatedAt: fmt.Sprintf("2020-01-%02dT10:00:00+00:00", n),
		},
		Relationships: []Relationship{{ID: fmt.Sprintf("author-%d", n%2), Type: "author"}},
	}
}

func items(from, to int) []MangaData {
	out := make([]MangaData, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, item(i))
	}
	return out
}

func newTestImporter(src Source, store MangaStore, cursors CursorStore, batch int) *Importer {
	return NewImporter(src, store, cursors, NewTransformer(""), 3, batch, discardLogger())
}

func TestImport_WalksPagesUntilShortPage(t *testing.T) {
	src := &fakeSource{
		pages:   [][]MangaData{items(1, 2), items(3, 4), items(5, 5)},
		authors: map[string]string{"author-1": "Odd Author"},
	}
	store := newMemStore()
	cursors := new(MockCursorStore)
	cursors.On("GetCursor", mock.Anything, SyncName).Return("", nil)
	cursors.On("SaveCursor", mock.Anything, SyncName, mock.Anything).Return(nil)

	res, err := newTestImporter(src, store, cursors, 2).Import(context.Background(), ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, 5, res.Fetched)
	assert.Equal(t, 5, res.Inserted)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 0, res.Errors)
	assert.Equal(t, "2020-01-05T10:00:00", res.LastCursor)
	assert.Len(t, src.calls, 3)

	assert.Equal(t, "0", src.calls[0].Get("offset"))
	assert.Equal(t, "2", src.calls[1].Get("offset"))
	assert.Equal(t, "4", src.calls[2].Get("offset"))
	assert.Empty(t, src.calls[0].Get("createdAtSince"))

	assert.Equal(t, "Odd Author", store.rows["dex-1"].Author)
	assert.Equal(t, "Unknown", store.rows["dex-2"].Author)
	assert.Equal(t, []string{"author-0", "author-1"}, src.authorCalls[0])

	cursors.AssertCalled(t, "SaveCursor", mock.Anything, SyncName, "2020-01-05T10:00:00")
}

func TestImport_RespectsMax(t *testing.T) {
	src := &fakeSource{pages: [][]MangaData{items(1, 2), items(3, 3)}}
	store := newMemStore()

	res, err := newTestImporter(src, store, nil, 2).Import(context.Background(), ImportOptions{Max: 3})

	require.NoError(t, err)
	assert.Equal(t, 3, res.Fetched)
	require.Len(t, src.calls, 2)
	assert.Equal(t, "1", src.calls[1].Get("limit"))
}

func TestImport_MovesCursorAtWindow(t *testing.T) {
	src := &fakeSource{pages: [][]MangaData{items(1, 2), items(3, 4), items(4, 5), items(6, 6)}}
	im := newTestImporter(src, newMemStore(), nil, 2)
	im.window = 4

	res, err := im.Import(context.Background(), ImportOptions{})

	require.NoError(t, err)
	require.Len(t, src.calls, 4)
	assert.Equal(t, "2", src.calls[1].Get("offset"))
	assert.Equal(t, "0", src.calls[2].Get("offset"))
	assert.Equal(t, "2020-01-04T10:00:00", src.calls[2].Get("createdAtSince"))
	assert.Equal(t, "2", src.calls[3].Get("offset"))
	// the boundary item returned again by the inclusive cursor is not re-imported
	assert.Equal(t, 6, res.Fetched)
	assert.Equal(t, 6, res.Inserted)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, "2020-01-06T10:00:00", res.LastCursor)
}

func TestImport_BoundaryItemDoesNotCountTowardMax(t *testing.T) {
	src := &fakeSource{pages: [][]MangaData{items(1, 2), items(3, 4), {item(4)}, {item(5)}, {item(6)}}}
	store := newMemStore()
	im := newTestImporter(src, store, nil, 2)
	im.window = 4

	res, err := im.Import(context.Background(), ImportOptions{Max: 5})

	require.NoError(t, err)
	require.Len(t, src.calls, 4)
	assert.Equal(t, "1", src.calls[2].Get("limit"))
	assert.Equal(t, "2020-01-04T10:00:00", src.calls[2].Get("createdAtSince"))
	assert.Equal(t, "1", src.calls[3].Get("offset"))
	assert.Equal(t, 5, res.Fetched)
	assert.Equal(t, 5, res.Inserted)
	assert.Equal(t, 0, res.Updated)
	assert.Contains(t, store.rows, "dex-5")
	assert.NotContains(t, store.rows, "dex-6")
}

func TestImport_SameTimestampWindowKeepsOffset(t *testing.T) {
	page := items(1, 2)
	for i := range page {
		page[i].Attributes.CreatedAt = "2020-01-01T10:00:00+00:00"
	}
	src := &fakeSource{pages: [][]MangaData{page, page, {item(3)}}}
	im := newTestImporter(src, newMemStore(), nil, 2)
	im.window = 2

	res, err := im.Import(context.Background(), ImportOptions{})

	require.NoError(t, err)
	require.Len(t, src.calls, 3)
	assert.Equal(t, "0", src.calls[1].Get("offset"))
	assert.Equal(t, "2020-01-01T10:00:00", src.calls[1].Get("createdAtSince"))
	assert.Equal(t, "2", src.calls[2].Get("offset"))
	assert.Equal(t, "2020-01-01T10:00:00", src.calls[2].Get("createdAtSince"))
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, 0, res.Updated)
}

func TestImport_ResumesFromStoredCursor(t *testing.T) {
	src := &fakeSource{}
	cursors := new(MockCursorStore)
	cursors.On("GetCursor", mock.Anything, SyncName).Return("2021-05-01T00:00:00", nil)

	res, err := newTestImporter(src, newMemStore(), cursors, 10).Import(context.Background(), ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, 0, res.Fetched)
	assert.Equal(t, "2021-05-01T00:00:00", src.calls[0].Get("createdAtSince"))
	cursors.AssertNotCalled(t, "SaveCursor", mock.Anything, mock.Anything, mock.Anything)
}

func TestImport_ExplicitCursorWins(t *testing.T) {
	src := &fakeSource{}
	cursors := new(MockCursorStore)

	_, err := newTestImporter(src, newMemStore(), cursors, 10).Import(context.Background(), ImportOptions{
		Cursor: "2022-02-02T02:02:02Z",
	})

	require.NoError(t, err)
	assert.Equal(t, "2022-02-02T02:02:02", src.calls[0].Get("createdAtSince"))
	cursors.AssertNotCalled(t, "GetCursor", mock.Anything, mock.Anything)
}

func TestImport_FromStartIgnoresStoredCursor(t *testing.T) {
	src := &fakeSource{}
	cursors := new(MockCursorStore)

	_, err := newTestImporter(src, newMemStore(), cursors, 10).Import(context.Background(), ImportOptions{FromStart: true})

	require.NoError(t, err)
	assert.Empty(t, src.calls[0].Get("createdAtSince"))
	cursors.AssertNotCalled(t, "GetCursor", mock.Anything, mock.Anything)
}

func TestImport_FetchErrorStops(t *testing.T) {
	upstream := errors.New("upstream down")
	src := &fakeSource{
		pages:   [][]MangaData{items(1, 2), items(3, 4)},
		pageErr: map[int]error{1: upstream},
	}
	cursors := new(MockCursorStore)
	cursors.On("GetCursor", mock.Anything, SyncName).Return("", nil)
	cursors.On("SaveCursor", mock.Anything, SyncName, "2020-01-02T10:00:00").Return(nil)

	res, err := newTestImporter(src, newMemStore(), cursors, 2).Import(context.Background(), ImportOptions{})

	require.ErrorIs(t, err, upstream)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 1, res.Errors)
	require.Len(t, res.ErrorDetails, 1)
	assert.Contains(t, res.ErrorDetails[0], "upstream down")
	assert.Equal(t, "2020-01-02T10:00:00", res.LastCursor)
}

func TestImport_UpsertErrorsAreCounted(t *testing.T) {
	src := &fakeSource{pages: [][]MangaData{items(1, 3)}}
	store := newMemStore()
	store.fails["dex-2"] = errors.New("constraint violated")

	res, err := newTestImporter(src, store, nil, 10).Import(context.Background(), ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, []string{"Manga dex-2: constraint violated"}, res.ErrorDetails)
}

func TestImport_SkipsItemsWithoutID(t *testing.T) {
	page := items(1, 2)
	page[1].ID = ""
	src := &fakeSource{pages: [][]MangaData{page}}

	res, err := newTestImporter(src, newMemStore(), nil, 10).Import(context.Background(), ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Skipped)
}

func TestTally_CapsErrorDetails(t *testing.T) {
	tl := &tally{}
	for i := 0; i < maxErrorDetails+20; i++ {
		tl.addError(fmt.Sprint(i), errors.New("boom"))
	}
	res := tl.snapshot()
	assert.Equal(t, maxErrorDetails+20, res.Errors)
	assert.Len(t, res.ErrorDetails, maxErrorDetails)
}

func TestWorkerPool_RunsEveryTask(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 4, discardLogger())
	pool.Start()

	var mu sync.Mutex
	seen := 0
	for i := 0; i < 50; i++ {
		require.True(t, pool.Submit(func(context.Context) error {
			mu.Lock()
			seen++
			mu.Unlock()
			return nil
		}))
	}
	pool.Wait()
	assert.Equal(t, 50, seen)
}

func TestWorkerPool_RejectsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(ctx, 1, discardLogger())

	ran := false
	noop := func(context.Context) error { ran = true; return nil }
	// the queue holds two tasks before Submit blocks
	require.True(t, pool.Submit(noop))
	require.True(t, pool.Submit(noop))
	cancel()
	assert.False(t, pool.Submit(noop))

	pool.Start()
	pool.Wait()
	assert.False(t, ran)
}
