package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Maxlottie/pray-production-studio/internal/config"
	"github.com/Maxlottie/pray-production-studio/internal/storage"
	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist(cfg.AllowedOrigins...))

	r.Get("/health", healthHandler(cfg))

	// Media keys are unguessable and browsers cannot attach a bearer token to
	// <img> and <video> sources, so the proxy sits outside the auth group.
	if cfg.MediaServer != nil {
		mediaHandler := cfg.MediaServer.Handler(storage.MediaPathPrefix)
		r.Method(http.MethodGet, storage.MediaPathPrefix+"*", mediaHandler)
		r.Method(http.MethodHead, storage.MediaPathPrefix+"*", mediaHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/projects", listProjectsHandler(cfg))
		r.Post("/projects", createProjectHandler(cfg))
		r.Get("/projects/{id}", getProjectHandler(cfg))
		r.Patch("/projects/{id}", updateProjectHandler(cfg))
		r.Delete("/projects/{id}", deleteProjectHandler(cfg))

		r.Post("/projects/{id}/scripts", parseScriptHandler(cfg))
		r.Get("/projects/{id}/scripts", listScriptsHandler(cfg))
		r.Get("/projects/{id}/scenes", listScenesHandler(cfg))

		r.Get("/projects/{id}/shots", listShotsHandler(cfg))
		r.Post("/projects/{id}/shots/approve-all", approveAllShotsHandler(cfg))
		r.Post("/projects/{id}/shots/reorder", reorderShotsHandler(cfg))
		r.Patch("/shots/{id}", updateShotHandler(cfg))

		r.Post("/shots/{id}/images/generate", generateImagesHandler(cfg))
		r.Post("/shots/{id}/images/{imageId}/select", selectImageHandler(cfg))
		r.Delete("/shots/{id}/images/{imageId}", deleteImageHandler(cfg))

		r.Post("/shots/{id}/videos/generate", generateVideoHandler(cfg))
		r.Post("/shots/{id}/videos/{videoId}/select", selectVideoHandler(cfg))
		r.Delete("/shots/{id}/videos/{videoId}", deleteVideoHandler(cfg))
		r.Post("/videos/{id}/refresh", refreshVideoHandler(cfg))
		r.Post("/videos/{id}/cancel", cancelVideoHandler(cfg))

		r.Get("/projects/{id}/generations", projectGenerationsHandler(cfg))
		r.Post("/poller/pause", pausePollerHandler(cfg))
		r.Post("/poller/resume", resumePollerHandler(cfg))

		r.Get("/projects/{id}/audio", getAudioHandler(cfg))
		r.Put("/projects/{id}/audio", updateAudioHandler(cfg))
		r.Post("/projects/{id}/audio/narration", narrationHandler(cfg))
		r.Post("/projects/{id}/audio/music", musicHandler(cfg))
		r.Get("/audio/voices", listVoicesHandler(cfg))

		r.Get("/projects/{id}/export/premiere", exportPremiereHandler(cfg))
		r.Post("/projects/{id}/export/drive", exportDriveHandler(cfg))

		r.Get("/events", eventsHandler(cfg))
	})

	return r
}

// decodeJSON reads the request body into dst. An empty body is accepted when
// optional is set.
func decodeJSON(r *http.Request, dst any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		resp := HealthResponse{
			Status:  "ok",
			Version: config.Version,
			UptimeS: uptime,
			Images:  cfg.Images != nil,
			Audio:   cfg.Audio != nil,
			Drive:   cfg.Drive != nil,
		}
		if cfg.Images != nil {
			resp.ImageCap = cfg.Images.Cap()
		}
		if cfg.Orchestrator != nil {
			resp.VideoProvider = cfg.Orchestrator.Providers()
		}
		if cfg.Poller != nil {
			resp.PollerRunning = cfg.Poller.IsRunning()
			resp.PollerPaused = cfg.Poller.IsPaused()
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.Service.ListProjects(r.Context())
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		resp := ProjectsResponse{Projects: make([]ProjectResponse, len(projects))}
		for i, p := range projects {
			resp.Projects[i] = ProjectToResponse(p)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProjectRequest
		if err := decodeJSON(r, &req, false); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		project, err := cfg.Service.CreateProject(r.Context(), req.Title, req.AspectRatio, req.VisualStyle)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		WriteJSON(w, http.StatusCreated, ProjectToResponse(project))
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, err := cfg.Service.GetProject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(project))
	}
}

func updateProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateProjectRequest
		if err := decodeJSON(r, &req, false); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		project, err := cfg.Service.UpdateProject(r.Context(), chi.URLParam(r, "id"), studio.ProjectUpdate{
			Title:       req.Title,
			AspectRatio: req.AspectRatio,
			VisualStyle: req.VisualStyle,
			Status:      req.Status,
		})
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(project))
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Service.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseScriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ParseScriptRequest
		if err := decodeJSON(r, &req, false); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		script, shots, err := cfg.Service.ParseScript(r.Context(), chi.URLParam(r, "id"), req.Text)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		resp := ParseScriptResponse{
			Script: ScriptToResponse(script),
			Shots:  make([]ShotResponse, len(shots)),
		}
		for i, s := range shots {
			resp.Shots[i] = ShotToResponse(s)
		}
		WriteJSON(w, http.StatusCreated, resp)
	}
}

func listScriptsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scripts, err := cfg.Service.ListScripts(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		resp := ScriptsResponse{Scripts: make([]ScriptResponse, len(scripts))}
		for i, s := range scripts {
			resp.Scripts[i] = ScriptToResponse(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listScenesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")
		if _, err := cfg.Service.GetProject(r.Context(), projectID); err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		scenes, err := cfg.Service.ListScenes(r.Context(), projectID)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		resp := ScenesResponse{Scenes: make([]SceneResponse, len(scenes))}
		for i, s := range scenes {
			resp.Scenes[i] = SceneResponse{ID: s.ID, Index: s.Index, Title: s.Title, Location: s.Location}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listShotsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")
		if _, err := cfg.Service.GetProject(r.Context(), projectID); err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		shots, err := cfg.Service.ListShotMedia(r.Context(), projectID)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, ShotsResponse{Shots: shotMediaResponses(shots, cfg.Media)})
	}
}

func shotMediaResponses(shots []*studio.ShotMedia, media *storage.Client) []ShotResponse {
	out := make([]ShotResponse, len(shots))
	for i, m := range shots {
		out[i] = ShotMediaToResponse(m, media)
	}
	return out
}

func updateShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateShotRequest
		if err := decodeJSON(r, &req, false); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		shot, err := cfg.Service.UpdateShot(r.Context(), chi.URLParam(r, "id"), studio.ShotUpdate{
			Description:    req.Description,
			Mood:           req.Mood,
			CameraMovement: req.CameraMovement,
			VisualStyle:    req.VisualStyle,
			Duration:       req.Duration,
			Status:         req.Status,
		})
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, ShotToResponse(shot))
	}
}

func approveAllShotsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := cfg.Service.ApproveAllShots(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, ApproveAllResponse{Approved: n})
	}
}

func reorderShotsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReorderShotsRequest
		if err := decodeJSON(r, &req, false); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		shots, err := cfg.Service.ReorderShots(r.Context(), chi.URLParam(r, "id"), req.ShotIDs)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		resp := ShotsResponse{Shots: make([]ShotResponse, len(shots))}
		for i, s := range shots {
			resp.Shots[i] = ShotToResponse(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getAudioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")
		if _, err := cfg.Service.GetProject(r.Context(), projectID); err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		audio, err := cfg.Service.GetAudio(r.Context(), projectID)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, AudioToResponse(audio, cfg.Media))
	}
}

func updateAudioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateAudioRequest
		if err := decodeJSON(r, &req, false); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		audio, err := cfg.Service.UpdateAudio(r.Context(), chi.URLParam(r, "id"), studio.AudioUpdate{
			NarrationURL: req.NarrationURL,
			MusicURL:     req.MusicURL,
		})
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, AudioToResponse(audio, cfg.Media))
	}
}
