package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	if a.DB != nil {
		if err := a.DB.Ping(r.Context()); err != nil {
			a.json(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "db": err.Error()})
			return
		}
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
