package handlers

import (
	"Youtube-Monster/internal/services"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Analyzer 是分析流程的對外契約（由 services.AnalyzeService 實作）。
type Analyzer interface {
	Analyze(ctx context.Context, req services.AnalyzeRequest) (*services.AnalyzeResponse, error)
}

// AnalyzeHandler 處理 POST /api/analyze。
type AnalyzeHandler struct {
	analyzer Analyzer
	timeout  time.Duration
}

// NewAnalyzeHandler 建立 AnalyzeHandler。
func NewAnalyzeHandler(analyzer Analyzer) *AnalyzeHandler {
	if analyzer == nil {
		log.Panicln("NewAnalyzeHandler：Analyzer 不得為空")
	}
	return &AnalyzeHandler{analyzer: analyzer, timeout: 5 * time.Minute}
}

// writeCORSHeaders 開放跨來源呼叫，前端直接從瀏覽器打這個端點。
func writeCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("錯誤：寫入 JSON 回應失敗: %v", err)
	}
}

func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeCORSHeaders(w)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
		// 繼續處理
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "只接受 POST"})
		return
	}

	var req services.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "請求內容不是合法的 JSON"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.analyzer.Analyze(ctx, req)
	if err != nil {
		// 分析失敗以 200 回傳 error 欄位，讓前端能直接顯示原因
		log.Printf("警告：[AnalyzeHandler] 影片 %s 分析失敗: %v", req.VideoID, err)
		writeJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
