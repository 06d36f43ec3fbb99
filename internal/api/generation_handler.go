package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Maxlottie/pray-production-studio/internal/generation"
	"github.com/Maxlottie/pray-production-studio/internal/providers"
	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

func unavailable(w http.ResponseWriter, what string) {
	WriteError(w, http.StatusServiceUnavailable, what+" not configured", "UNAVAILABLE")
}

func generateImagesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Images == nil {
			unavailable(w, "image provider")
			return
		}

		var req GenerateImagesRequest
		if err := decodeJSON(r, &req, true); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		// an omitted count fills every free slot
		count := cfg.Images.Cap()
		if req.Count != nil {
			count = *req.Count
		}

		result, err := cfg.Images.GenerateImages(r.Context(), generation.ImageJob{
			ShotID:       chi.URLParam(r, "id"),
			Count:        count,
			Regenerate:   req.Regenerate,
			CustomPrompt: req.CustomPrompt,
		})
		if err != nil {
			if errors.Is(err, generation.ErrAllImagesFailed) && result != nil {
				WriteJSON(w, http.StatusBadGateway, BatchToResponse(result, cfg.Media))
				return
			}
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		status := http.StatusCreated
		if result.Generated == 0 {
			status = http.StatusOK
		}
		WriteJSON(w, status, BatchToResponse(result, cfg.Media))
	}
}

func selectImageHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Service.SelectImage(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "imageId")); err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteImageHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Service.DeleteImage(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "imageId")); err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// generateVideoHandler answers 202 with the stored record. A provider
// rejection is not an HTTP error: the record comes back FAILED.
func generateVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateVideoRequest
		if err := decodeJSON(r, &req, false); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.ImageID == "" {
			WriteError(w, http.StatusBadRequest, "image_id is required", "BAD_REQUEST")
			return
		}
		if req.Provider == "" {
			req.Provider = studio.ProviderMinimax
		}

		video, err := cfg.Orchestrator.SubmitVideoJob(r.Context(), generation.VideoJob{
			ShotID:       chi.URLParam(r, "id"),
			ImageID:      req.ImageID,
			Provider:     req.Provider,
			MotionType:   req.MotionType,
			CustomPrompt: req.CustomPrompt,
		})
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, VideoToResponse(video, cfg.Media))
	}
}

func selectVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Service.SelectVideo(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "videoId")); err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Service.DeleteVideo(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "videoId")); err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func refreshVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		video, err := cfg.Orchestrator.RefreshVideo(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, VideoToResponse(video, cfg.Media))
	}
}

func cancelVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		video, err := cfg.Orchestrator.CancelVideo(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, VideoToResponse(video, cfg.Media))
	}
}

// projectGenerationsHandler refreshes the project's in-flight videos once and
// returns every shot with its generations. Clients poll this endpoint.
func projectGenerationsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")
		if _, err := cfg.Service.GetProject(r.Context(), projectID); err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		var resp GenerationsResponse
		if cfg.Poller != nil {
			summary, err := cfg.Poller.PollOnce(r.Context(), projectID)
			if err != nil {
				writeServiceError(w, r, cfg.Logger, err)
				return
			}
			resp.Poll = summary
		}

		shots, err := cfg.Service.ListShotMedia(r.Context(), projectID)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		resp.Shots = shotMediaResponses(shots, cfg.Media)
		WriteJSON(w, http.StatusOK, resp)
	}
}

func pausePollerHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Poller == nil {
			unavailable(w, "poller")
			return
		}
		cfg.Poller.Pause()
		w.WriteHeader(http.StatusNoContent)
	}
}

func resumePollerHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Poller == nil {
			unavailable(w, "poller")
			return
		}
		cfg.Poller.Resume()
		w.WriteHeader(http.StatusNoContent)
	}
}

func narrationHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Audio == nil {
			unavailable(w, "audio provider")
			return
		}

		var req NarrationRequest
		if err := decodeJSON(r, &req, true); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		audio, err := cfg.Audio.GenerateNarration(r.Context(), chi.URLParam(r, "id"), req.Text, req.VoiceID)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, AudioToResponse(audio, cfg.Media))
	}
}

func musicHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Audio == nil {
			unavailable(w, "audio provider")
			return
		}

		var req MusicRequest
		if err := decodeJSON(r, &req, false); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		audio, err := cfg.Audio.GenerateMusic(r.Context(), chi.URLParam(r, "id"), req.Style, req.Prompt, req.Seconds)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, AudioToResponse(audio, cfg.Media))
	}
}

func listVoicesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Audio == nil {
			unavailable(w, "audio provider")
			return
		}

		voices, err := cfg.Audio.Voices(r.Context())
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		if voices == nil {
			voices = []providers.Voice{}
		}
		WriteJSON(w, http.StatusOK, VoicesResponse{Voices: voices})
	}
}
