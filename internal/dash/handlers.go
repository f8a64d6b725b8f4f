// Package dash serves a small read-only HTTP view over the local report
// cache, so dashboards and scripts can inspect cached results without
// touching the PlagiaGuard backend.
package dash

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/plagiaguard/plagctl/internal/cache"
	"github.com/plagiaguard/plagctl/internal/report"
)

type Deps struct {
	Cache *cache.Store
	Token string
}

// ReportListResponse mirrors the backend listing shape so consumers can
// switch between live and cached data without reshaping.
type ReportListResponse struct {
	Reports []report.Report `json:"reports"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
	Total   int             `json:"total"`
	Pages   int             `json:"pages"`
}

func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Get("/reports", handleListReports(deps))
		r.Get("/reports/{id}", handleGetReport(deps))
		r.Delete("/reports/{id}", handleDeleteReport(deps))
		r.Get("/downloads", handleListDownloads(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleListReports(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 50, 200)

		reports, err := deps.Cache.ListCached(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list cached reports: %v", err)
			return
		}
		if reports == nil {
			reports = []report.Report{}
		}

		resp := ReportListResponse{Reports: reports, Total: len(reports), Page: 1, Pages: 1, PerPage: limit}
		if meta, err := deps.Cache.Meta(); err == nil {
			resp.Page = meta.Page
			resp.PerPage = meta.PerPage
			resp.Total = meta.Total
			resp.Pages = meta.Pages
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func handleGetReport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		rep, err := deps.Cache.GetReport(id)
		if errors.Is(err, cache.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "report not cached")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get cached report: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rep)
	}
}

func handleDeleteReport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := deps.Cache.DeleteReport(id); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete cached report: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

func handleListDownloads(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		downloads, err := deps.Cache.RecentDownloads(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list downloads: %v", err)
			return
		}
		if downloads == nil {
			downloads = []cache.Download{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(downloads)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
