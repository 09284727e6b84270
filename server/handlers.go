package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Nicaras/memilio/logging"
	"github.com/go-chi/chi/v5"
)

// artifactEndings lists the file endings the server is willing to expose.
var artifactEndings = []string{".json", ".h5", ".txt"}

type datasetEntry struct {
	Country string `json:"country"`
	File    string `json:"file"`
	Size    int64  `json:"size"`
}

// listDatasets enumerates the artifacts below the output root.
func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	var entries []datasetEntry

	countries, err := os.ReadDir(s.cfg.OutFolder)
	if err != nil && !os.IsNotExist(err) {
		respondWithJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read output folder"})
		return
	}
	for _, country := range countries {
		if !country.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.cfg.OutFolder, country.Name()))
		if err != nil {
			continue
		}
		for _, file := range files {
			if file.IsDir() || !servableArtifact(file.Name()) {
				continue
			}
			info, err := file.Info()
			if err != nil {
				continue
			}
			entries = append(entries, datasetEntry{
				Country: country.Name(),
				File:    file.Name(),
				Size:    info.Size(),
			})
		}
	}

	respondWithJSON(w, http.StatusOK, entries)
}

// serveDataset serves one artifact file.
func (s *Server) serveDataset(w http.ResponseWriter, r *http.Request) {
	country := chi.URLParam(r, "country")
	file := chi.URLParam(r, "file")

	// reject anything that could escape the output tree
	if !validPathElement(country) || !validPathElement(file) || !servableArtifact(file) {
		respondWithJSON(w, http.StatusNotFound, map[string]string{"error": "no such dataset"})
		return
	}

	path := filepath.Join(s.cfg.OutFolder, country, file)
	if _, err := os.Stat(path); err != nil {
		respondWithJSON(w, http.StatusNotFound, map[string]string{"error": "no such dataset"})
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status": "healthy",
	}
	if s.refresher != nil {
		status["last_updated"] = s.refresher.LastUpdated()
		status["updating"] = s.refresher.IsUpdating()
	}
	respondWithJSON(w, http.StatusOK, status)
}

func servableArtifact(name string) bool {
	for _, ending := range artifactEndings {
		if strings.HasSuffix(name, ending) {
			return true
		}
	}
	return false
}

func validPathElement(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, "/\\")
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Warn("Failed to write response", "error", err)
	}
}
