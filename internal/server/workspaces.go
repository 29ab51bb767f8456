package server

import (
	"net/http"

	"github.com/gorilla/mux"

	apperrors "github.com/Gojibodev/keklauncher/internal/errors"
	"github.com/Gojibodev/keklauncher/internal/models"
)

func (s *Server) listWorkspaces(w http.ResponseWriter, r *http.Request) {
	list, err := s.Workspaces.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createWorkspace(w http.ResponseWriter, r *http.Request) {
	var req models.CreateWorkspaceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	m, err := s.Workspaces.Create(req.ID, req.Metadata)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) importWorkspace(w http.ResponseWriter, r *http.Request) {
	var req models.ImportWorkspaceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	m, imported, err := s.Workspaces.Import(r.Context(), req.SourceDir, req.ID, req.Metadata)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"metadata": m, "importedFolders": imported})
}

func (s *Server) getWorkspace(w http.ResponseWriter, r *http.Request) {
	m, err := s.Workspaces.Load(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) updateWorkspace(w http.ResponseWriter, r *http.Request) {
	var md models.Metadata
	if err := decode(r, &md); err != nil {
		writeError(w, err)
		return
	}
	m, err := s.Workspaces.UpdateMetadata(mux.Vars(r)["id"], md)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) deleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.Workspaces.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addFolder(w http.ResponseWriter, r *http.Request) {
	var req models.AddFolderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	m, err := s.Workspaces.AddFolder(mux.Vars(r)["id"], req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) addModFromURL(w http.ResponseWriter, r *http.Request) {
	var req models.AddURLRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.Workspaces.AddModFromURL(r.Context(), mux.Vars(r)["id"], req.URL, func(downloaded, total int64, percent float64) {
		s.Hub.Broadcast(models.Event{Type: models.EventModProgress, Payload: models.ItemProgressEvent{
			Filename: req.URL, Downloaded: downloaded, Total: total, Percent: percent,
		}})
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) addModsFromCatalog(w http.ResponseWriter, r *http.Request) {
	var req models.AddCatalogModRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.Workspaces.AddModsFromCatalog(r.Context(), mux.Vars(r)["id"], req.ModIDs, req.Version,
		func(current, total int, modID int64, downloaded, size int64, percent float64) {
			s.Hub.Broadcast(models.Event{Type: models.EventOverallProgress, Payload: map[string]any{
				"currentMod": current, "totalMods": total, "modId": modID,
				"downloaded": downloaded, "total": size, "percent": percent,
			}})
		})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) refreshWorkspace(w http.ResponseWriter, r *http.Request) {
	m, err := s.Workspaces.RefreshMods(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) searchForWorkspace(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mods, err := s.Workspaces.Search(r.Context(), mux.Vars(r)["id"], q.Get("q"), q.Get("version"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mods)
}

func (s *Server) exportWorkspace(w http.ResponseWriter, r *http.Request) {
	var req models.ExportRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.Workspaces.Export(mux.Vars(r)["id"], req.Zip)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) searchCatalog(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil {
		writeError(w, apperrors.Kind(apperrors.ErrCatalogUnavailable, apperrors.CategoryNetworkPermanent, "no catalog configured"))
		return
	}
	q := r.URL.Query()
	mods, err := s.Catalog.Search(r.Context(), q.Get("q"), q.Get("version"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mods)
}
