package main

import (
	"Youtube-Monster/internal/clients/gemini"
	"Youtube-Monster/internal/clients/scraper"
	"Youtube-Monster/internal/clients/timedtext"
	"Youtube-Monster/internal/clients/youtube"
	"Youtube-Monster/internal/config"
	"Youtube-Monster/internal/scheduler"
	"Youtube-Monster/internal/scoring"
	"Youtube-Monster/internal/services"
	"Youtube-Monster/internal/storage/mysql"
	"Youtube-Monster/internal/web"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load("./configs", "config")
	if err != nil {
		log.Fatalf("錯誤：無法載入設定: %v", err)
	}
	log.Println("資訊：應用程式設定載入成功。")

	// 資料庫遷移
	migrationPath := "file://scripts/migrate/mysql"
	dbDSNForMigrate := fmt.Sprintf("mysql://%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&multiStatements=true",
		cfg.Database.User, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	log.Printf("資訊：準備執行資料庫遷移，來源: %s, DSN 使用資料庫: %s", migrationPath, cfg.Database.DBName)
	m, err := migrate.New(migrationPath, dbDSNForMigrate)
	if err != nil {
		log.Fatalf("錯誤：建立遷移實例失敗: %v", err)
	}
	currentVersion, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		log.Fatalf("錯誤：獲取資料庫遷移版本失敗: %v", err)
	}
	if dirty {
		log.Fatalf("錯誤：資料庫處於 dirty 狀態 (版本 %d)，遷移失敗。", currentVersion)
	}
	log.Printf("資訊：目前資料庫版本: %d。開始應用遷移...", currentVersion)
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		log.Fatalf("錯誤：執行資料庫遷移 (m.Up) 失敗: %v", err)
	} else if err == migrate.ErrNoChange {
		log.Println("資訊：資料庫結構已是最新，無需遷移。")
	} else {
		newVersion, _, _ := m.Version()
		log.Printf("資訊：資料庫遷移成功完成，版本更新至: %d。", newVersion)
	}

	dbStore, err := mysql.NewMySQLStore(cfg.Database)
	if err != nil {
		log.Fatalf("錯誤：初始化 MySQL 資料庫連線失敗: %v", err)
	}
	defer dbStore.Close()

	geminiClient, err := gemini.NewClient(cfg.GeminiClient.APIKey, cfg.GeminiClient.ClassifyModel, cfg.GeminiClient.TranscriptModel)
	if err != nil {
		log.Fatalf("錯誤：初始化 Gemini 客戶端失敗: %v", err)
	}

	captionsTimeout := time.Duration(cfg.Captions.TimeoutSecs) * time.Second
	captionsClient := timedtext.NewClient(cfg.Captions.BaseURL, captionsTimeout)
	scraperClient := scraper.NewClient(cfg.Captions.WatchBaseURL, captionsTimeout)

	// Data API 探測是選用的：沒有 API Key 時串接照常運作，只是失敗診斷少了中繼資料
	var probe services.MetadataProbe
	if cfg.YouTubeClient.APIKey != "" {
		youtubeClient, err := youtube.NewClient(context.Background(), cfg.YouTubeClient.APIKey)
		if err != nil {
			log.Fatalf("錯誤：初始化 YouTube Data API 客戶端失敗: %v", err)
		}
		probe = youtubeClient
	}

	stepTimeout := time.Duration(cfg.Analysis.StepTimeoutSecs) * time.Second
	transcriptSvc, err := services.NewTranscriptService(
		captionsClient,
		scraperClient,
		geminiClient,
		probe,
		cfg.Captions.DefaultLanguage,
		cfg.Captions.Languages,
		stepTimeout,
	)
	if err != nil {
		log.Fatalf("錯誤：初始化逐字稿服務失敗: %v", err)
	}

	callTimeout := time.Duration(cfg.Analysis.CallTimeoutSecs) * time.Second
	classifySvc, err := services.NewClassifyService(geminiClient, cfg.Analysis.Concurrency, callTimeout)
	if err != nil {
		log.Fatalf("錯誤：初始化分類服務失敗: %v", err)
	}

	penalties := scoring.DefaultPenaltyTable()
	if len(cfg.Penalties) > 0 {
		log.Printf("資訊：使用設定檔中的懲罰權重表 (%d 個子分類)。\n", len(cfg.Penalties))
		penalties = scoring.PenaltyTable(cfg.Penalties)
	}

	analyzeSvc, err := services.NewAnalyzeService(transcriptSvc, classifySvc, penalties, dbStore)
	if err != nil {
		log.Fatalf("錯誤：初始化分析服務失敗: %v", err)
	}

	if cfg.Scheduler.Enabled {
		log.Println("資訊：排程器已在設定檔中啟用，正在初始化...")
		appScheduler := scheduler.NewScheduler(analyzeSvc, cfg.Scheduler.RetryCronSpec)
		appScheduler.Start()
		log.Println("資訊：排程器已啟動。")
		defer appScheduler.Stop()
	} else {
		log.Println("資訊：排程器已在設定檔中禁用。")
	}

	router := web.SetupRouter(cfg, dbStore, analyzeSvc)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("資訊：HTTP 伺服器正在監聽 %s\n", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("錯誤：HTTP 伺服器監聽失敗: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("資訊：收到關閉訊號，正在關閉應用程式...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("錯誤：HTTP 伺服器優雅關閉失敗: %v", err)
	}
	log.Println("資訊：HTTP 伺服器已關閉。")
	log.Println("資訊：應用程式已成功關閉。")
}
