package workspace

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"

	"github.com/panekit/panekit/internal/infrastructure/logging"
	"github.com/panekit/panekit/internal/shared/paths"
	"github.com/panekit/panekit/internal/shared/types"
)

type fakeViews struct {
	views    []*types.View
	active   *string
	created  []types.CreateViewRequest
	disposed bool
	revealed []string
}

func (f *fakeViews) List(_ *types.State) []*types.View { return f.views }

func (f *fakeViews) Create(_ context.Context, req types.CreateViewRequest) (*types.View, error) {
	v := &types.View{
		ID:    "view_" + req.Title,
		Hash:  "hash-" + req.Title,
		Title: req.Title,
		HTML:  req.HTML,
		State: types.StateVisible,
	}
	if req.Hidden {
		v.State = types.StateHidden
	}
	f.created = append(f.created, req)
	f.views = append(f.views, v)
	return v, nil
}

func (f *fakeViews) DisposeAll(_ context.Context) {
	f.disposed = true
	f.views = nil
}

func (f *fakeViews) Reveal(_ context.Context, viewID string, _ *types.Column) error {
	f.revealed = append(f.revealed, viewID)
	return nil
}

func (f *fakeViews) FindByHash(hash string) (*types.View, bool) {
	for _, v := range f.views {
		if v.Hash == hash {
			return v, true
		}
	}
	return nil, false
}

func (f *fakeViews) Stats() types.ViewStats {
	return types.ViewStats{ActiveViewID: f.active}
}

type fakeStore struct {
	data map[string][]byte
}

func newFakeStore() *fakeStore { return &fakeStore{data: map[string][]byte{}} }

func (s *fakeStore) Export(hash string) []byte { return s.data[hash] }

func (s *fakeStore) Import(hash string, data []byte) error {
	s.data[hash] = data
	return nil
}

func newTestManager(t *testing.T, views ViewManager, store StateStore) (*Manager, paths.Layout) {
	t.Helper()
	layout := paths.NewLayout(t.TempDir())
	mgr, err := NewManager(views, store, layout, 3, logging.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return mgr, layout
}

func TestSaveRoundTrip(t *testing.T) {
	activeID := "view_notes"
	views := &fakeViews{
		views: []*types.View{
			{ID: "view_notes", Hash: "hash-notes", Title: "notes", HTML: "<html><body>n</body></html>", State: types.StateVisible},
			{ID: "view_todo", Hash: "hash-todo", Title: "todo", HTML: "<html><body>t</body></html>", State: types.StateHidden},
		},
		active: &activeID,
	}
	store := newFakeStore()
	store.data["hash-notes"] = []byte(`{"cursor":12}`)

	mgr, layout := newTestManager(t, views, store)

	ws, err := mgr.Save(context.Background(), "daily")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(ws.Views) != 2 {
		t.Fatalf("saved %d views, want 2", len(ws.Views))
	}

	// Reload through a fresh manager so the snapshot comes off disk.
	mgr2, err := NewManager(views, store, layout, 3, logging.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	loaded, err := mgr2.Get(ws.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.Name != "daily" {
		t.Errorf("name = %q, want daily", loaded.Name)
	}

	byHash := map[string]types.SavedView{}
	for _, sv := range loaded.Views {
		byHash[sv.Hash] = sv
	}
	notes := byHash["hash-notes"]
	if !notes.Active {
		t.Error("notes view should be marked active")
	}
	if !notes.Visible {
		t.Error("notes view should be visible")
	}
	if string(notes.ViewState) != `{"cursor":12}` {
		t.Errorf("view state = %s", notes.ViewState)
	}
	if todo := byHash["hash-todo"]; todo.Visible {
		t.Error("hidden view saved as visible")
	}
}

func TestSaveRejectsBadName(t *testing.T) {
	mgr, _ := newTestManager(t, &fakeViews{}, newFakeStore())
	if _, err := mgr.Save(context.Background(), string(make([]byte, 300))); err == nil {
		t.Error("expected error for oversized name")
	}
}

func TestRestore(t *testing.T) {
	activeID := "view_notes"
	source := &fakeViews{
		views: []*types.View{
			{ID: "view_notes", Hash: "hash-notes", Title: "notes", HTML: "<html><body>n</body></html>", State: types.StateVisible},
			{ID: "view_todo", Hash: "hash-todo", Title: "todo", HTML: "<html><body>t</body></html>", State: types.StateHidden},
		},
		active: &activeID,
	}
	store := newFakeStore()
	store.data["hash-notes"] = []byte(`{"cursor":3}`)

	mgr, layout := newTestManager(t, source, store)
	ws, err := mgr.Save(context.Background(), "daily")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	target := &fakeViews{
		views: []*types.View{
			{ID: "view_stale", Hash: "hash-stale", Title: "stale", State: types.StateVisible},
		},
	}
	restoreStore := newFakeStore()
	mgr2, err := NewManager(target, restoreStore, layout, 3, logging.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr2.Restore(context.Background(), ws.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if !target.disposed {
		t.Error("existing views were not disposed")
	}
	if len(target.created) != 2 {
		t.Fatalf("created %d views, want 2", len(target.created))
	}
	var sawHidden bool
	for _, req := range target.created {
		if req.Title == "todo" && req.Hidden {
			sawHidden = true
		}
	}
	if !sawHidden {
		t.Error("hidden view was not recreated hidden")
	}
	if string(restoreStore.data["hash-notes"]) != `{"cursor":3}` {
		t.Errorf("state not imported: %s", restoreStore.data["hash-notes"])
	}
	if len(target.revealed) != 1 || target.revealed[0] != "view_notes" {
		t.Errorf("revealed = %v, want [view_notes]", target.revealed)
	}
}

func TestListAndDelete(t *testing.T) {
	mgr, layout := newTestManager(t, &fakeViews{}, newFakeStore())

	ws1, err := mgr.Save(context.Background(), "first")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := mgr.Save(context.Background(), "second"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// On-disk garbage must not break listing.
	garbage := layout.WorkspaceFile("ws_garbage")
	if err := os.WriteFile(garbage, []byte("not a snapshot"), 0o644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	list, err := mgr.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("listed %d workspaces, want 2", len(list))
	}

	if err := mgr.Delete(ws1.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := mgr.Get(ws1.ID); err == nil {
		t.Error("deleted workspace still readable")
	}
}

func TestReadGzipSnapshot(t *testing.T) {
	mgr, layout := newTestManager(t, &fakeViews{}, newFakeStore())

	ws := types.Workspace{ID: "ws_legacy", Name: "legacy"}
	data, err := sonic.Marshal(&ws)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	gz.Close()
	if err := os.WriteFile(layout.WorkspaceFile(ws.ID), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := mgr.Get(ws.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.Name != "legacy" {
		t.Errorf("name = %q, want legacy", loaded.Name)
	}
}
