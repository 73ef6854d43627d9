package handlers

import (
	"net/http"
)

// HealthHandler 處理 GET /healthz。
type HealthHandler struct {
	appName string
}

// NewHealthHandler 建立 HealthHandler。
func NewHealthHandler(appName string) *HealthHandler {
	return &HealthHandler{appName: appName}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "只接受 GET"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "app": h.appName})
}
