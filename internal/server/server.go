// Package server exposes modpack and workspace operations over HTTP and
// pushes progress events to websocket clients.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/Gojibodev/keklauncher/internal/logging"
	"github.com/Gojibodev/keklauncher/internal/models"
	"github.com/Gojibodev/keklauncher/pkg/catalog"
	"github.com/Gojibodev/keklauncher/pkg/modpack"
	"github.com/Gojibodev/keklauncher/pkg/watcher"
	"github.com/Gojibodev/keklauncher/pkg/workspace"
)

type Server struct {
	Modpacks   *modpack.Manager
	Workspaces *workspace.Store
	Catalog    catalog.Searcher
	Hub        *Hub
	Tasks      *TaskRegistry

	router *mux.Router
}

func New(ctx context.Context, modpacks *modpack.Manager, workspaces *workspace.Store, cat catalog.Searcher) *Server {
	hub := NewHub()
	s := &Server{
		Modpacks:   modpacks,
		Workspaces: workspaces,
		Catalog:    cat,
		Hub:        hub,
		Tasks:      NewTaskRegistry(ctx, hub),
		router:     mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/modpacks", s.listModpacks).Methods(http.MethodGet)
	api.HandleFunc("/modpacks/import", s.importModpack).Methods(http.MethodPost)
	api.HandleFunc("/modpacks/{id}", s.getModpack).Methods(http.MethodGet)
	api.HandleFunc("/modpacks/{id}/installed", s.installedMods).Methods(http.MethodGet)
	api.HandleFunc("/modpacks/{id}/compare", s.compareModpack).Methods(http.MethodGet)
	api.HandleFunc("/modpacks/{id}/stats", s.modpackStats).Methods(http.MethodGet)
	api.HandleFunc("/modpacks/{id}/preflight", s.preflight).Methods(http.MethodGet)
	api.HandleFunc("/modpacks/{id}/download", s.downloadModpack).Methods(http.MethodPost)
	api.HandleFunc("/modpacks/{id}/sync", s.syncModpack).Methods(http.MethodPost)
	api.HandleFunc("/modpacks/{id}/cancel", s.cancelModpack).Methods(http.MethodPost)
	api.HandleFunc("/modpacks/{id}/mods/{filename}", s.deleteMod).Methods(http.MethodDelete)

	api.HandleFunc("/downloads/cancel", s.cancelAllDownloads).Methods(http.MethodPost)
	api.HandleFunc("/downloads/{filename}/cancel", s.cancelDownload).Methods(http.MethodPost)

	api.HandleFunc("/tasks/{taskId}", s.getTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskId}/cancel", s.cancelTask).Methods(http.MethodPost)

	api.HandleFunc("/workspaces", s.listWorkspaces).Methods(http.MethodGet)
	api.HandleFunc("/workspaces", s.createWorkspace).Methods(http.MethodPost)
	api.HandleFunc("/workspaces/import", s.importWorkspace).Methods(http.MethodPost)
	api.HandleFunc("/workspaces/{id}", s.getWorkspace).Methods(http.MethodGet)
	api.HandleFunc("/workspaces/{id}", s.updateWorkspace).Methods(http.MethodPatch)
	api.HandleFunc("/workspaces/{id}", s.deleteWorkspace).Methods(http.MethodDelete)
	api.HandleFunc("/workspaces/{id}/folders", s.addFolder).Methods(http.MethodPost)
	api.HandleFunc("/workspaces/{id}/mods/url", s.addModFromURL).Methods(http.MethodPost)
	api.HandleFunc("/workspaces/{id}/mods/catalog", s.addModsFromCatalog).Methods(http.MethodPost)
	api.HandleFunc("/workspaces/{id}/refresh", s.refreshWorkspace).Methods(http.MethodPost)
	api.HandleFunc("/workspaces/{id}/search", s.searchForWorkspace).Methods(http.MethodGet)
	api.HandleFunc("/workspaces/{id}/export", s.exportWorkspace).Methods(http.MethodPost)

	api.HandleFunc("/catalog/search", s.searchCatalog).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.Hub.ServeWS)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.GlobalLogger.Debug(r.Method + " " + r.URL.Path + " " + time.Since(start).String())
	})
}

// WatchWorkspaces refreshes a workspace's mod list when its mods folder
// changes and tells clients about every workspace change.
func (s *Server) WatchWorkspaces(ctx context.Context, w *watcher.Watcher) {
	for change := range w.Changes() {
		if strings.HasPrefix(change.Path, change.Workspace+"/mods/") {
			if _, err := s.Workspaces.RefreshMods(ctx, change.Workspace); err != nil {
				logging.GlobalLogger.Warn("Refreshing " + change.Workspace + " failed: " + err.Error())
			}
		}
		s.Hub.Broadcast(models.Event{Type: models.EventWorkspaceChanged, Payload: change})
	}
}

// ListenAndServe serves handler on addr until ctx is done, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.GlobalLogger.Info("Server starting on " + addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
