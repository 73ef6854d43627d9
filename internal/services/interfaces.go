package services

import (
	"Youtube-Monster/internal/models"
	"context"
)

// CaptionSource 介面定義了官方字幕通道的操作（timedtext 客戶端實作）。
type CaptionSource interface {
	Fetch(ctx context.Context, videoID string, lang string) ([]models.TranscriptSegment, error)
	FetchTrack(ctx context.Context, videoID string, track models.CaptionTrack) ([]models.TranscriptSegment, error)
	ListTracks(ctx context.Context, videoID string) ([]models.CaptionTrack, error)
}

// PageScraper 介面定義了頁面後備通道的操作。
type PageScraper interface {
	ScrapeCaptions(ctx context.Context, videoID string) ([]models.TranscriptSegment, error)
	FetchMetadata(ctx context.Context, videoID string) (*models.VideoMetadata, error)
}

// TranscriptOracle 介面定義了合成逐字稿預言機。
type TranscriptOracle interface {
	GenerateTranscript(ctx context.Context, prompt string) (string, error)
}

// ClassifyOracle 介面定義了內容分類預言機。
type ClassifyOracle interface {
	ClassifySegment(ctx context.Context, prompt string) (string, error)
}

// MetadataProbe 介面定義了 Data API 探測（只豐富錯誤訊息，可為 nil）。
type MetadataProbe interface {
	Probe(ctx context.Context, videoID string) (*models.ProbeInfo, error)
}

// TranscriptFetcher 介面定義了逐字稿取得串接的對外契約。
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, videoID string) ([]models.TranscriptSegment, models.ExtractionMethod, error)
}

// SegmentClassifier 介面定義了字幕段分類的對外契約。
type SegmentClassifier interface {
	Classify(ctx context.Context, segments []models.TranscriptSegment, sensitivity int, maxTimestampSec int) []models.AnalysisEvent
}

// AnalysisStore 介面定義了分析服務需要的儲存操作。
type AnalysisStore interface {
	SaveAnalysis(record *models.AnalysisRecord) (int64, error)
	GetFailedAnalyses(limit int) ([]models.AnalysisRecord, error)
	UpdateAnalysisStatus(id int64, status models.AnalysisStatus) error
}
