package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"framd/server/internal/genqueue"
	"framd/server/internal/infra"
	"framd/server/internal/storage"
)

// ClipPayload is the queue payload enqueued by the generation endpoint.
type ClipPayload struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Seconds     int    `json:"seconds,omitempty"`
}

// ClipDispatcher drains generation jobs into the external API and persists
// produced clips in the file store.
type ClipDispatcher struct {
	client *Client
	store  *storage.FileStore
	logger infra.Logger
}

// NewClipDispatcher wires a dispatcher for the generation queue.
func NewClipDispatcher(client *Client, store *storage.FileStore, logger infra.Logger) *ClipDispatcher {
	return &ClipDispatcher{client: client, store: store, logger: logger}
}

// Dispatch implements genqueue.Dispatcher.
func (d *ClipDispatcher) Dispatch(ctx context.Context, job genqueue.Job) error {
	var payload ClipPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode clip payload: %w", err)
	}
	if strings.TrimSpace(payload.Prompt) == "" {
		return fmt.Errorf("clip payload has no prompt")
	}

	clip, err := d.client.GenerateClip(ctx, ClipRequest{
		Prompt:      payload.Prompt,
		AspectRatio: payload.AspectRatio,
		Seconds:     payload.Seconds,
		RequestID:   job.ID,
	})
	if err != nil {
		return err
	}

	key := fmt.Sprintf("generated/clips/%s%s", job.ID, clipExtension(clip.Format))
	savedKey, err := d.store.Write(ctx, key, clip.Data)
	if err != nil {
		return fmt.Errorf("persist clip: %w", err)
	}
	d.logger.Info().
		Str("job_id", job.ID).
		Str("storage_key", savedKey).
		Int("bytes", len(clip.Data)).
		Msg("generation: clip stored")
	return nil
}

func clipExtension(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "video/webm":
		return ".webm"
	case "image/gif":
		return ".gif"
	default:
		return ".mp4"
	}
}
