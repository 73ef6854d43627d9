package models

// AnalysisEvent 是分類器對單一字幕段標記出的負面事件。
// 一個字幕段最多產生一個事件；建立後不再變動。
type AnalysisEvent struct {
	TimestampSec int    `json:"timestamp"`
	Category     string `json:"category"`
	SubCategory  string `json:"subCategory"`
	Description  string `json:"description"`
	Phrase       string `json:"phrase"`
}
