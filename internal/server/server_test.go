package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Gojibodev/keklauncher/internal/config"
	"github.com/Gojibodev/keklauncher/internal/models"
	"github.com/Gojibodev/keklauncher/pkg/downloader"
	"github.com/Gojibodev/keklauncher/pkg/modpack"
	"github.com/Gojibodev/keklauncher/pkg/workspace"
)

type fixture struct {
	srv     *Server
	api     *httptest.Server
	files   *httptest.Server
	manager *modpack.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "content of %s", strings.TrimPrefix(r.URL.Path, "/"))
	}))
	t.Cleanup(files.Close)

	cfg := config.Default()
	cfg.Paths.Base = t.TempDir()
	opts := downloader.DefaultOptions()
	opts.IdleTimeout = 2 * time.Second
	dl := downloader.NewDownloader(opts)
	manager, err := modpack.NewManager(cfg, dl, nil)
	if err != nil {
		t.Fatal(err)
	}
	store, err := workspace.NewStore(cfg, dl, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := New(ctx, manager, store, nil)
	api := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Hub.Close()
		api.Close()
	})
	return &fixture{srv: s, api: api, files: files, manager: manager}
}

func (f *fixture) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, f.api.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	pack := models.Modpack{
		ID:   "kek",
		Name: "Kek",
		Mods: []models.ModDescriptor{
			{Filename: "a.jar", URL: f.files.URL + "/a.jar"},
			{Filename: "b.jar", URL: f.files.URL + "/missing-b.jar"},
		},
	}
	if err := f.manager.Create(pack); err != nil {
		t.Fatal(err)
	}
}

func TestModpackReadRoutes(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	var list []models.ModpackSummary
	if code := f.do(t, http.MethodGet, "/api/modpacks", nil, &list); code != http.StatusOK || len(list) != 1 {
		t.Fatalf("list: %d %+v", code, list)
	}

	resp, err := http.Get(f.api.URL + "/api/modpacks/kek")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	etag := resp.Header.Get("ETag")
	if resp.StatusCode != http.StatusOK || etag == "" {
		t.Fatalf("get: %d etag %q", resp.StatusCode, etag)
	}
	req, _ := http.NewRequest(http.MethodGet, f.api.URL+"/api/modpacks/kek", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotModified {
		t.Fatalf("conditional get: %d", resp.StatusCode)
	}

	var cmp models.ReconciliationResult
	if code := f.do(t, http.MethodGet, "/api/modpacks/kek/compare", nil, &cmp); code != http.StatusOK || len(cmp.Missing) != 2 {
		t.Fatalf("compare: %d %+v", code, cmp)
	}

	var errResp models.ErrorResponse
	if code := f.do(t, http.MethodGet, "/api/modpacks/ghost/stats", nil, &errResp); code != http.StatusNotFound || errResp.Category != "not_found" {
		t.Fatalf("missing modpack: %d %+v", code, errResp)
	}
}

func TestDownloadTask(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	var task models.TaskResponse
	if code := f.do(t, http.MethodPost, "/api/modpacks/kek/download", models.DownloadRequest{}, &task); code != http.StatusAccepted || task.TaskID == "" {
		t.Fatalf("start: %d %+v", code, task)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, ok := f.srv.Tasks.Wait(ctx, task.TaskID)
	if !ok || status.Status != TaskCompleted {
		t.Fatalf("task: %+v", status)
	}
	if status.Result == nil || len(status.Result.Successful) != 1 || len(status.Result.Failed) != 1 {
		t.Fatalf("result: %+v", status.Result)
	}

	var polled models.TaskStatus
	if code := f.do(t, http.MethodGet, "/api/tasks/"+task.TaskID, nil, &polled); code != http.StatusOK || polled.Status != TaskCompleted {
		t.Fatalf("poll: %d %+v", code, polled)
	}
	if code := f.do(t, http.MethodGet, "/api/tasks/nope", nil, nil); code != http.StatusNotFound {
		t.Fatalf("unknown task: %d", code)
	}

	var deleted map[string]bool
	f.do(t, http.MethodDelete, "/api/modpacks/kek/mods/a.jar", nil, &deleted)
	if !deleted["deleted"] {
		t.Fatal("a.jar should have been deleted")
	}
	if _, err := os.Stat(filepath.Join(f.manager.InstallPath("kek"), "a.jar")); !os.IsNotExist(err) {
		t.Fatal("file still present")
	}
}

func TestDownloadUnknownModpack(t *testing.T) {
	f := newFixture(t)
	if code := f.do(t, http.MethodPost, "/api/modpacks/ghost/download", nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestWorkspaceRoutes(t *testing.T) {
	f := newFixture(t)

	var m models.Modpack
	if code := f.do(t, http.MethodPost, "/api/workspaces", models.CreateWorkspaceRequest{ID: "ws"}, &m); code != http.StatusCreated || m.Name != "ws" {
		t.Fatalf("create: %d %+v", code, m)
	}
	if code := f.do(t, http.MethodPost, "/api/workspaces", models.CreateWorkspaceRequest{ID: "ws"}, nil); code != http.StatusConflict {
		t.Fatalf("duplicate: %d", code)
	}
	if code := f.do(t, http.MethodPost, "/api/workspaces", models.CreateWorkspaceRequest{ID: "a/b"}, nil); code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", code)
	}

	name := "Renamed"
	if code := f.do(t, http.MethodPatch, "/api/workspaces/ws", models.Metadata{Name: &name}, &m); code != http.StatusOK || m.Name != "Renamed" {
		t.Fatalf("patch: %d %+v", code, m)
	}

	var added models.TransferResult
	if code := f.do(t, http.MethodPost, "/api/workspaces/ws/mods/url", models.AddURLRequest{URL: f.files.URL + "/x-1.0.jar"}, &added); code != http.StatusOK || added.Filename != "x-1.0.jar" {
		t.Fatalf("add url: %d %+v", code, added)
	}

	var exported workspace.ExportResult
	if code := f.do(t, http.MethodPost, "/api/workspaces/ws/export", models.ExportRequest{}, &exported); code != http.StatusOK || exported.Fingerprint == "" {
		t.Fatalf("export: %d %+v", code, exported)
	}
	var list []models.ModpackSummary
	f.do(t, http.MethodGet, "/api/modpacks", nil, &list)
	if len(list) != 1 || list[0].ID != "ws" {
		t.Fatalf("exported pack not available: %+v", list)
	}

	if code := f.do(t, http.MethodDelete, "/api/workspaces/ws", nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete: %d", code)
	}
	if code := f.do(t, http.MethodGet, "/api/workspaces/ws", nil, nil); code != http.StatusNotFound {
		t.Fatalf("get deleted: %d", code)
	}
}

func TestCatalogSearchWithoutCatalog(t *testing.T) {
	f := newFixture(t)
	if code := f.do(t, http.MethodGet, "/api/catalog/search?q=jei", nil, nil); code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", code)
	}
}

func TestWebsocketReceivesTaskEvents(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	wsURL := "ws" + strings.TrimPrefix(f.api.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for f.srv.Hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	var task models.TaskResponse
	f.do(t, http.MethodPost, "/api/modpacks/kek/download", models.DownloadRequest{}, &task)

	seen := map[string]bool{}
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for !seen[models.EventDownloadCompleted] {
		var ev models.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v (seen %v)", err, seen)
		}
		if ev.TaskID == task.TaskID {
			seen[ev.Type] = true
		}
	}
	for _, want := range []string{models.EventDownloadStarted, models.EventOverallProgress} {
		if !seen[want] {
			t.Fatalf("missing %s event, saw %v", want, seen)
		}
	}
}
