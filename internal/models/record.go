package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// AnalysisStatus 是分析紀錄的最終狀態。
type AnalysisStatus string

const (
	StatusCompleted AnalysisStatus = "completed"
	StatusFailed    AnalysisStatus = "failed"
	StatusRetried   AnalysisStatus = "retried"
)

// AnalysisRecord 對應 analyses 資料表，保存每次分析請求的結果與評分。
type AnalysisRecord struct {
	ID               int64           `json:"id"`
	VideoID          string          `json:"videoId"`
	ExtractionMethod string          `json:"extractionMethod"`
	SegmentCount     int             `json:"transcriptSegmentCount"`
	Events           json.RawMessage `json:"events,omitempty"`
	Sensitivity      int             `json:"sensitivity"`
	DurationSec      sql.NullInt64   `json:"-"`
	ScoreKind        string          `json:"scoreKind"`
	ScoreValue       sql.NullFloat64 `json:"-"`
	Status           AnalysisStatus  `json:"status"`
	ErrorMessage     JsonNullString  `json:"errorMessage,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}
