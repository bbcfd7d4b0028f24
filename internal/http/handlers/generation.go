package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"framd/server/internal/domain"
	"framd/server/internal/genqueue"
	"framd/server/internal/middleware"
	"framd/server/internal/providers/genai"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type generationRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
	Seconds     int    `json:"seconds"`
}

// GenerationEnqueue adds a clip request to the serialized generation queue
// and returns the job's position readout.
func (a *App) GenerationEnqueue(w http.ResponseWriter, r *http.Request) {
	var req generationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt required")
		return
	}
	if req.Seconds < 0 || req.Seconds > 60 {
		a.error(w, http.StatusBadRequest, "bad_request", "seconds must be between 0 and 60")
		return
	}

	payload, err := json.Marshal(genai.ClipPayload{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Seconds:     req.Seconds,
	})
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to encode job")
		return
	}

	snap := a.Queue.Enqueue(payload)
	a.json(w, http.StatusAccepted, snapshotView(snap, middleware.LocaleFromContext(r.Context())))
}

// GenerationStatus returns the queue snapshot for one job.
func (a *App) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "id must be a uuid")
		return
	}
	snap, err := a.Queue.Status(id)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	a.json(w, http.StatusOK, snapshotView(snap, middleware.LocaleFromContext(r.Context())))
}

// GenerationCancel cancels a job that has not started yet.
func (a *App) GenerationCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "id must be a uuid")
		return
	}
	if err := a.Queue.Cancel(id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		if errors.Is(err, domain.ErrJobNotPending) {
			a.error(w, http.StatusConflict, "conflict", "job already started or finished")
			return
		}
		a.Logger.Error().Err(err).Str("id", id).Msg("generation cancel failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to cancel job")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"id": id, "state": string(genqueue.StateCancelled)})
}

func snapshotView(snap genqueue.Snapshot, locale string) map[string]any {
	v := map[string]any{
		"id":       snap.ID,
		"state":    string(snap.State),
		"attempts": snap.Attempts,
	}
	if snap.Error != "" {
		v["error"] = snap.Error
	}
	if !snap.State.Terminal() {
		v["position"] = snap.Position
		v["depth"] = snap.Depth
		v["eta_seconds"] = int(snap.ETA / time.Second)
		v["message"] = waitMessage(locale, snap)
	}
	return v
}

// waitMessage renders the "job X of Y" readout in the request locale.
func waitMessage(locale string, snap genqueue.Snapshot) string {
	eta := snap.ETA.Round(time.Second)
	if locale == "id" {
		return fmt.Sprintf("Antrean ke-%d dari %d, perkiraan tunggu %s.", snap.Position, snap.Depth, eta)
	}
	return fmt.Sprintf("Job %d of %d in the queue, about %s to go.", snap.Position, snap.Depth, eta)
}
