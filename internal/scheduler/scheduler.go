package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler 包裝 cron，負責失敗分析的定期重試。
type Scheduler struct {
	cron     *cron.Cron
	retryJob *RetryJob
}

// NewScheduler 依設定的 Cron 表達式註冊重試任務。
func NewScheduler(runner RetryRunner, retryCronSpec string) *Scheduler {
	c := cron.New(cron.WithSeconds())

	retryJob := NewRetryJob(runner)
	if retryCronSpec != "" {
		_, err := c.AddJob(retryCronSpec, retryJob)
		if err != nil {
			log.Fatalf("錯誤：無法新增失敗分析重試任務到排程器 (spec: %s): %v", retryCronSpec, err)
		}
		log.Printf("資訊：失敗分析重試任務已註冊，排程：%s\n", retryCronSpec)
	} else {
		log.Println("警告：未提供重試任務的 Cron 表達式，該任務將不會被排程。")
	}

	return &Scheduler{
		cron:     c,
		retryJob: retryJob,
	}
}

// Start 非阻塞啟動排程器。
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("資訊：排程器已非阻塞啟動 (如果任務已註冊)。")
}

// Stop 優雅停止排程器，等待運行中的任務完成。
func (s *Scheduler) Stop() {
	log.Println("資訊：正在停止排程器...")
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		log.Println("資訊：排程器已優雅停止，所有運行中任務已完成。")
	case <-time.After(10 * time.Second):
		log.Println("警告：排程器停止超時，可能仍有任務在執行。")
	}
}
