package scheduler

import (
	"log"
)

// RetryRunner 是重試流程的執行入口（由 AnalyzeService 實作）。
type RetryRunner interface {
	ExecuteRetryPipeline() error
}

// RetryJob 是一個排程任務，用於重新分析先前失敗的請求
type RetryJob struct {
	runner RetryRunner
}

// NewRetryJob 建立一個 RetryJob
func NewRetryJob(runner RetryRunner) *RetryJob {
	return &RetryJob{runner: runner}
}

// Run 實現 cron.Job 介面 (github.com/robfig/cron/v3)
func (j *RetryJob) Run() {
	log.Println("資訊：執行排程任務 - 失敗分析重試...")
	if err := j.runner.ExecuteRetryPipeline(); err != nil {
		log.Printf("錯誤：失敗分析重試排程任務執行失敗: %v", err)
	} else {
		log.Println("資訊：失敗分析重試排程任務執行完成。")
	}
}
