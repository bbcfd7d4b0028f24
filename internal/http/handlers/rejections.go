package handlers

import (
	"net/http"
	"strconv"

	"framd/server/internal/curation"
)

// RejectionList returns recent rejection log entries, optionally filtered
// by keyword.
func (a *App) RejectionList(w http.ResponseWriter, r *http.Request) {
	keyword := curation.NormalizeKeyword(r.URL.Query().Get("keyword"))
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	entries, err := a.Rejections.ListRecent(r.Context(), keyword, limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("rejection list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to fetch rejections")
		return
	}

	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, map[string]any{
			"source_url": e.SourceURL,
			"keyword":    e.Keyword,
			"reason":     e.Reason,
			"at":         e.At,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"count": len(items), "items": items})
}
