package services

import (
	"Youtube-Monster/internal/models"
	"Youtube-Monster/internal/scoring"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"time"
)

// DefaultMaxTimestampSec 是請求未提供可信影片時長時的分析上限（秒）。
const DefaultMaxTimestampSec = 450

// AnalyzeRequest 是一次分析請求的輸入。
type AnalyzeRequest struct {
	VideoID          string   `json:"videoId"`
	Sensitivity      *float64 `json:"sensitivity,omitempty"`
	VideoDurationSec *float64 `json:"videoDuration,omitempty"`
}

// AnalyzeResponse 是一次分析請求的完整輸出。
type AnalyzeResponse struct {
	Events                 []models.AnalysisEvent  `json:"events"`
	ExtractionMethod       models.ExtractionMethod `json:"extractionMethod"`
	TranscriptSegmentCount int                     `json:"transcriptSegmentCount"`
	Score                  scoring.Score           `json:"score"`
}

// AnalyzeService 串起完整的分析流程：
// 驗證 → 逐字稿串接 → 字幕段分類 → 評分彙總 → 紀錄保存。
type AnalyzeService struct {
	transcript             TranscriptFetcher
	classifier             SegmentClassifier
	penalties              scoring.PenaltyTable
	db                     AnalysisStore // 可為 nil（不保存歷史）
	defaultMaxTimestampSec int
}

// NewAnalyzeService 建立 AnalyzeService 實例。
func NewAnalyzeService(
	transcript TranscriptFetcher,
	classifier SegmentClassifier,
	penalties scoring.PenaltyTable,
	db AnalysisStore,
) (*AnalyzeService, error) {
	if transcript == nil {
		return nil, fmt.Errorf("AnalyzeService：TranscriptFetcher 不得為空")
	}
	if classifier == nil {
		return nil, fmt.Errorf("AnalyzeService：SegmentClassifier 不得為空")
	}
	if len(penalties) == 0 {
		return nil, fmt.Errorf("AnalyzeService：懲罰權重表不得為空")
	}
	if db == nil {
		log.Println("警告：AnalyzeService 未設定儲存層，分析紀錄不會保存。")
	}
	log.Println("資訊：AnalyzeService 初始化完成。")
	return &AnalyzeService{
		transcript:             transcript,
		classifier:             classifier,
		penalties:              penalties,
		db:                     db,
		defaultMaxTimestampSec: DefaultMaxTimestampSec,
	}, nil
}

// Analyze 執行一次完整分析。
// 回傳完整的 AnalyzeResponse 或單一描述性錯誤；
// 不會把部分結果標示為完整結果，ExtractionMethod 永遠揭示逐字稿來源。
func (s *AnalyzeService) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	// 輸入驗證：在任何網路呼叫之前快速失敗
	if err := ValidateVideoID(req.VideoID); err != nil {
		return nil, err
	}
	sensitivity := NormalizeSensitivity(req.Sensitivity)

	maxTimestampSec := s.defaultMaxTimestampSec
	if req.VideoDurationSec != nil && *req.VideoDurationSec > 10 {
		maxTimestampSec = int(math.Round(*req.VideoDurationSec))
	}

	log.Printf("資訊：[AnalyzeService] 開始分析影片 %s (敏感度: %d, 時長上限: %d 秒)\n", req.VideoID, sensitivity, maxTimestampSec)

	segments, method, err := s.transcript.FetchTranscript(ctx, req.VideoID)
	if err != nil {
		log.Printf("錯誤：[AnalyzeService] 影片 %s 的逐字稿取得失敗: %v\n", req.VideoID, err)
		s.saveRecord(req, sensitivity, nil, models.MethodFailed, 0, scoring.Unknown(), err)
		return nil, err
	}

	events := s.classifier.Classify(ctx, segments, sensitivity, maxTimestampSec)
	if events == nil {
		// 回應中的 events 一律是陣列，不會是 null
		events = []models.AnalysisEvent{}
	}
	// 分類層不保證順序（平行處理），在這裡統一排序
	sort.Slice(events, func(i, j int) bool {
		return events[i].TimestampSec < events[j].TimestampSec
	})

	durationSec := 0.0
	if req.VideoDurationSec != nil {
		durationSec = *req.VideoDurationSec
	}
	score := scoring.Aggregate(events, durationSec, s.penalties)

	resp := &AnalyzeResponse{
		Events:                 events,
		ExtractionMethod:       method,
		TranscriptSegmentCount: len(segments),
		Score:                  score,
	}
	log.Printf("資訊：[AnalyzeService] 影片 %s 分析完成：%d 段、%d 個事件、來源 %s、評分 %s\n",
		req.VideoID, len(segments), len(events), method, score)

	s.saveRecord(req, sensitivity, events, method, len(segments), score, nil)
	return resp, nil
}

// saveRecord 把分析結果寫入儲存層；儲存失敗只記錄，不影響回應。
func (s *AnalyzeService) saveRecord(
	req AnalyzeRequest,
	sensitivity int,
	events []models.AnalysisEvent,
	method models.ExtractionMethod,
	segmentCount int,
	score scoring.Score,
	analysisErr error,
) {
	if s.db == nil {
		return
	}
	record := &models.AnalysisRecord{
		VideoID:          req.VideoID,
		ExtractionMethod: string(method),
		SegmentCount:     segmentCount,
		Sensitivity:      sensitivity,
		Status:           models.StatusCompleted,
		CreatedAt:        time.Now(),
	}
	if req.VideoDurationSec != nil && *req.VideoDurationSec > 0 {
		record.DurationSec = sql.NullInt64{Int64: int64(math.Round(*req.VideoDurationSec)), Valid: true}
	}
	record.ScoreKind = score.String()
	if score.Kind == scoring.KindFinite {
		record.ScoreKind = "finite"
		record.ScoreValue = sql.NullFloat64{Float64: score.Value, Valid: true}
	}
	if analysisErr != nil {
		record.Status = models.StatusFailed
		record.ErrorMessage = models.JsonNullString{NullString: sql.NullString{String: analysisErr.Error(), Valid: true}}
	} else if eventsJSON, err := json.Marshal(events); err == nil {
		record.Events = eventsJSON
	}
	if _, err := s.db.SaveAnalysis(record); err != nil {
		log.Printf("警告：[AnalyzeService] 保存影片 %s 的分析紀錄失敗: %v\n", req.VideoID, err)
	}
}

// ExecuteRetryPipeline 重新分析先前失敗的請求（由排程器觸發）。
func (s *AnalyzeService) ExecuteRetryPipeline() error {
	if s.db == nil {
		log.Println("資訊：[AnalyzeService-RetryPipeline] 未設定儲存層，略過重試流程。")
		return nil
	}
	failed, err := s.db.GetFailedAnalyses(10)
	if err != nil {
		log.Printf("錯誤：[AnalyzeService-RetryPipeline] 取得失敗紀錄失敗: %v", err)
		return err
	}
	if len(failed) == 0 {
		log.Println("資訊：[AnalyzeService-RetryPipeline] 沒有等待重試的失敗紀錄。")
		return nil
	}
	log.Printf("資訊：[AnalyzeService-RetryPipeline] 找到 %d 筆失敗紀錄準備重試。\n", len(failed))

	var successCount, failCount int
	for _, record := range failed {
		req := AnalyzeRequest{VideoID: record.VideoID}
		if record.Sensitivity != 0 {
			v := float64(record.Sensitivity)
			req.Sensitivity = &v
		}
		if record.DurationSec.Valid {
			v := float64(record.DurationSec.Int64)
			req.VideoDurationSec = &v
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		_, analyzeErr := s.Analyze(ctx, req)
		cancel()
		if analyzeErr != nil {
			log.Printf("警告：[AnalyzeService-RetryPipeline] 影片 %s 重試仍失敗: %v\n", record.VideoID, analyzeErr)
			failCount++
		} else {
			successCount++
		}
		// 無論結果如何都標記為已重試，避免同一筆紀錄被重複撿起
		if err := s.db.UpdateAnalysisStatus(record.ID, models.StatusRetried); err != nil {
			log.Printf("警告：[AnalyzeService-RetryPipeline] 更新紀錄 %d 狀態失敗: %v\n", record.ID, err)
		}
	}
	log.Printf("資訊：[AnalyzeService-RetryPipeline] 重試流程完成。成功: %d, 失敗: %d\n", successCount, failCount)
	return nil
}
