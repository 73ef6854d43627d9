package models

import "fmt"

// DefaultSegmentDurationMs 是字幕段缺少時長資訊時使用的預設值（毫秒）。
const DefaultSegmentDurationMs = 5000

// TranscriptSegment 代表逐字稿中的一個帶時間戳的片段。
// 插入順序即來源中的時間順序；良好的逐字稿 offset 不遞減。
type TranscriptSegment struct {
	OffsetMs   int    `json:"offset"`
	Text       string `json:"text"`
	DurationMs int    `json:"duration"`
}

// ExtractionMethod 標記逐字稿的取得來源，供下游顯示與信任度排序使用。
type ExtractionMethod string

const (
	// MethodCaptionTrack 預設語言的官方字幕軌（最高信任度）
	MethodCaptionTrack ExtractionMethod = "caption-track"
	// MethodCaptionTrackLang 依語言清單重試取得的官方字幕軌
	MethodCaptionTrackLang ExtractionMethod = "caption-track-lang"
	// MethodCaptionTrackListing 由字幕軌清單取得的第一條字幕軌
	MethodCaptionTrackListing ExtractionMethod = "caption-track-listing"
	// MethodPageScrape 從影片公開頁面內嵌資料挖出的字幕
	MethodPageScrape ExtractionMethod = "page-scrape"
	// MethodAIGenerated 由生成式模型依影片中繼資料合成的逐字稿（信任度最低）
	MethodAIGenerated ExtractionMethod = "ai-generated"
	// MethodFailed 所有策略皆失敗
	MethodFailed ExtractionMethod = "failed"
)

// CaptionTrack 代表 timedtext 清單回傳的一條字幕軌。
type CaptionTrack struct {
	LangCode string
	Name     string
	Kind     string // "asr" 表示自動產生的字幕
}

// VideoMetadata 是從影片公開頁面擷取的中繼資料，為合成逐字稿的素材。
type VideoMetadata struct {
	VideoID     string
	Title       string
	Channel     string
	Description string
}

// ProbeInfo 是 YouTube Data API 探測的結果，只用於豐富最終錯誤訊息。
type ProbeInfo struct {
	Exists       bool
	Title        string
	CaptionCount int
	DurationSec  int
}

// ValidateSegments 檢查逐字稿的結構不變量：offset 非負且不遞減。
// 違反不變量是可偵測的錯誤狀況，不做靜默修正。
func ValidateSegments(segments []TranscriptSegment) error {
	prev := 0
	for i, seg := range segments {
		if seg.OffsetMs < 0 {
			return fmt.Errorf("第 %d 段的 offset 為負值 (%d ms)", i, seg.OffsetMs)
		}
		if seg.OffsetMs < prev {
			return fmt.Errorf("第 %d 段的 offset (%d ms) 小於前一段 (%d ms)，時間順序被破壞", i, seg.OffsetMs, prev)
		}
		prev = seg.OffsetMs
	}
	return nil
}
