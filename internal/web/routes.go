package web

import (
	"Youtube-Monster/internal/config"
	"Youtube-Monster/internal/web/handlers"
	"log"
	"net/http"
)

// SetupRouter 組合 HTTP 路由。db 可為 nil（未設定儲存層時歷史查詢不可用）。
func SetupRouter(appConfig *config.Config, db handlers.DBStore, analyzer handlers.Analyzer) http.Handler {
	if analyzer == nil {
		log.Panicln("SetupRouter：Analyzer 不得為空")
	}
	mux := http.NewServeMux()

	mux.Handle("/api/analyze", handlers.NewAnalyzeHandler(analyzer))
	mux.Handle("/api/analyses", handlers.NewAnalysesHandler(db))
	mux.Handle("/healthz", handlers.NewHealthHandler(appConfig.AppName))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("警告：未匹配的路由: %s", r.URL.Path)
		http.NotFound(w, r)
	})

	log.Println("資訊：HTTP 路由設定完成。")
	return mux
}
