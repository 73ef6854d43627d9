package handlers

import (
	"Youtube-Monster/internal/models"
	"log"
	"net/http"
	"strconv"
)

// DBStore 是查詢介面需要的儲存操作。
type DBStore interface {
	GetRecentAnalyses(limit int) ([]models.AnalysisRecord, error)
	GetAnalysesByVideoID(videoID string, limit int) ([]models.AnalysisRecord, error)
}

// AnalysesHandler 處理 GET /api/analyses：查詢最近的分析紀錄。
type AnalysesHandler struct {
	db DBStore
}

// NewAnalysesHandler 建立 AnalysesHandler。db 可為 nil（未設定儲存層）。
func NewAnalysesHandler(db DBStore) *AnalysesHandler {
	return &AnalysesHandler{db: db}
}

func (h *AnalysesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeCORSHeaders(w)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet:
		// 繼續處理
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "只接受 GET"})
		return
	}

	if h.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "未設定儲存層，歷史查詢不可用"})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var records []models.AnalysisRecord
	var err error
	if videoID := r.URL.Query().Get("videoId"); videoID != "" {
		records, err = h.db.GetAnalysesByVideoID(videoID, limit)
	} else {
		records, err = h.db.GetRecentAnalyses(limit)
	}
	if err != nil {
		log.Printf("錯誤：[AnalysesHandler] 查詢分析紀錄失敗: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "查詢分析紀錄失敗"})
		return
	}
	if records == nil {
		records = []models.AnalysisRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"analyses": records})
}
