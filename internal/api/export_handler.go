package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Maxlottie/pray-production-studio/internal/export"
)

// exportPremiereHandler streams the project's edit document as an attachment.
// ?format=edl selects a CMX 3600 list instead of xmeml.
func exportPremiereHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := strings.ToLower(r.URL.Query().Get("format"))
		if format == "" {
			format = export.FormatXML
		}
		if format != export.FormatXML && format != export.FormatEDL {
			WriteError(w, http.StatusBadRequest, "format must be xml or edl", "BAD_REQUEST")
			return
		}

		ctx := r.Context()
		projectID := chi.URLParam(r, "id")

		project, err := cfg.Service.GetProject(ctx, projectID)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		shots, err := cfg.Service.ListShotMedia(ctx, projectID)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		audio, err := cfg.Service.GetAudio(ctx, projectID)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		tl := export.BuildTimeline(project, shots, audio)
		if len(tl.Skipped) > 0 {
			cfg.Logger.Info("export skipped shots without media", "project_id", projectID, "shots", tl.Skipped)
		}

		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(project.Title, format)))

		if format == export.FormatEDL {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, export.GenerateEDL(tl))
			return
		}

		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		if err := export.WriteXMEML(w, tl); err != nil {
			cfg.Logger.Error("write xmeml", "project_id", projectID, "error", err)
		}
	}
}

func exportDriveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Drive == nil {
			unavailable(w, "google drive")
			return
		}

		result, err := cfg.Drive.Export(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}
