package server

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Gojibodev/keklauncher/internal/models"
	"github.com/Gojibodev/keklauncher/pkg/installer"
	"github.com/Gojibodev/keklauncher/pkg/manifest"
	"github.com/Gojibodev/keklauncher/pkg/modpack"
	"github.com/Gojibodev/keklauncher/pkg/utils"
)

func (s *Server) listModpacks(w http.ResponseWriter, r *http.Request) {
	list, err := s.Modpacks.Available()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// getModpack serves the manifest with its fingerprint as ETag.
func (s *Server) getModpack(w http.ResponseWriter, r *http.Request) {
	m, err := s.Modpacks.Load(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if fp, err := manifest.Fingerprint(m); err == nil {
		etag := `"` + fp + `"`
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) importModpack(w http.ResponseWriter, r *http.Request) {
	var req models.ImportRemoteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	m, err := s.Modpacks.ImportRemote(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) installedMods(w http.ResponseWriter, r *http.Request) {
	files, err := s.Modpacks.InstalledMods(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) compareModpack(w http.ResponseWriter, r *http.Request) {
	cmp, err := s.Modpacks.Compare(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) modpackStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Modpacks.Stats(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) preflight(w http.ResponseWriter, r *http.Request) {
	report, err := s.Modpacks.Preflight(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// progressHandler forwards batch progress to websocket clients and the
// task's polled status.
func (s *Server) progressHandler(taskID string) installer.ProgressHandler {
	return installer.HandlerFuncs{
		OnItem: func(filename string, downloaded, total int64, percent float64) {
			s.Hub.Broadcast(models.Event{Type: models.EventModProgress, TaskID: taskID, Payload: models.ItemProgressEvent{
				Filename: filename, Downloaded: downloaded, Total: total, Percent: percent,
			}})
		},
		OnOverall: func(completed, total int) {
			s.Tasks.SetProgress(taskID, utils.Percent(int64(completed), int64(total)))
			s.Hub.Broadcast(models.Event{Type: models.EventOverallProgress, TaskID: taskID, Payload: models.OverallProgressEvent{
				Completed: completed, Total: total,
			}})
		},
	}
}

func (s *Server) startTask(w http.ResponseWriter, kind, id string, fn TaskFunc) {
	if _, err := s.Modpacks.Load(id); err != nil {
		writeError(w, err)
		return
	}
	status := s.Tasks.RunTask(kind, id, fn)
	writeJSON(w, http.StatusAccepted, models.TaskResponse{
		TaskID:  status.TaskID,
		Status:  status.Status,
		Message: kind + " of " + id + " started",
	})
}

func (s *Server) downloadModpack(w http.ResponseWriter, r *http.Request) {
	var req models.DownloadRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	s.startTask(w, "download", id, func(ctx context.Context, taskID string) (*models.BatchResult, error) {
		res, err := s.Modpacks.Download(ctx, id, req.OnlyNew, s.progressHandler(taskID))
		if err != nil {
			return nil, err
		}
		return &res, nil
	})
}

func (s *Server) syncModpack(w http.ResponseWriter, r *http.Request) {
	var req models.SyncRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	s.startTask(w, "sync", id, func(ctx context.Context, taskID string) (*models.BatchResult, error) {
		res, err := s.Modpacks.Sync(ctx, id, modpack.SyncOptions{PruneExtra: req.PruneExtra}, s.progressHandler(taskID))
		if err != nil {
			return nil, err
		}
		return &res.Batch, nil
	})
}

func (s *Server) cancelModpack(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": s.Modpacks.CancelDownload(mux.Vars(r)["id"])})
}

func (s *Server) deleteMod(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	deleted, err := s.Modpacks.DeleteMod(vars["id"], vars["filename"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) cancelDownload(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": s.Modpacks.CancelMod(mux.Vars(r)["filename"])})
}

func (s *Server) cancelAllDownloads(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"cancelled": s.Modpacks.CancelAll()})
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	status, ok := s.Tasks.Get(mux.Vars(r)["taskId"])
	if !ok {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "task not found", Category: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) cancelTask(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": s.Tasks.Cancel(mux.Vars(r)["taskId"])})
}
