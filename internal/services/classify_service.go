package services

import (
	"Youtube-Monster/internal/llmjson"
	"Youtube-Monster/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// MinSensitivity 與 MaxSensitivity 界定敏感度的合法範圍
	MinSensitivity = 1
	MaxSensitivity = 10
	// DefaultSensitivity 未提供或無效時的預設值
	DefaultSensitivity = 5
)

// NormalizeSensitivity 把請求中的敏感度正規化為 [1,10] 的整數。
// 未提供或非有限數值時使用預設值；其餘四捨五入後夾到範圍內。
func NormalizeSensitivity(v *float64) int {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return DefaultSensitivity
	}
	n := int(math.Round(*v))
	if n < MinSensitivity {
		return MinSensitivity
	}
	if n > MaxSensitivity {
		return MaxSensitivity
	}
	return n
}

// ClassifyService 對每個字幕段呼叫分類預言機並解析結構化負面事件。
// 各字幕段之間沒有順序相依，可平行處理；單段失敗只會丟棄該段。
type ClassifyService struct {
	oracle      ClassifyOracle
	concurrency int
	callTimeout time.Duration
}

// NewClassifyService 建立 ClassifyService 實例。
func NewClassifyService(oracle ClassifyOracle, concurrency int, callTimeout time.Duration) (*ClassifyService, error) {
	if oracle == nil {
		return nil, fmt.Errorf("ClassifyService：ClassifyOracle 不得為空")
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	log.Println("資訊：ClassifyService 初始化完成。")
	return &ClassifyService{
		oracle:      oracle,
		concurrency: concurrency,
		callTimeout: callTimeout,
	}, nil
}

// Classify 分類一批字幕段。超出影片時長的段落不會送進預言機；
// 單段的預言機錯誤或格式錯誤只丟棄該段，永不中斷整批。
// 此層不保證事件順序，需要排序由呼叫端處理。
func (s *ClassifyService) Classify(ctx context.Context, segments []models.TranscriptSegment, sensitivity int, maxTimestampSec int) []models.AnalysisEvent {
	if sensitivity < MinSensitivity || sensitivity > MaxSensitivity {
		log.Printf("警告：[ClassifyService] 敏感度 %d 超出範圍，改用預設值 %d。\n", sensitivity, DefaultSensitivity)
		sensitivity = DefaultSensitivity
	}

	results := make([]*models.AnalysisEvent, len(segments))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)

	submitted := 0
	for i, segment := range segments {
		if segment.OffsetMs/1000 > maxTimestampSec {
			log.Printf("資訊：[ClassifyService] 第 %d 段超出影片時長 (%d ms > %d s)，跳過。\n", i, segment.OffsetMs, maxTimestampSec)
			continue
		}
		submitted++
		i, segment := i, segment
		group.Go(func() error {
			callCtx, cancel := context.WithTimeout(groupCtx, s.callTimeout)
			defer cancel()
			results[i] = s.classifyOne(callCtx, i, segment, sensitivity)
			return nil
		})
	}
	group.Wait() // worker 永不回傳錯誤，失敗都在段內吸收

	events := make([]models.AnalysisEvent, 0, submitted)
	for _, event := range results {
		if event != nil {
			events = append(events, *event)
		}
	}
	log.Printf("資訊：[ClassifyService] 共送出 %d 段，標記出 %d 個負面事件。\n", submitted, len(events))
	return events
}

// classifyOne 處理單一字幕段：呼叫預言機並寬容解析回應。
// 任何失敗都只記錄並回傳 nil。
func (s *ClassifyService) classifyOne(ctx context.Context, index int, segment models.TranscriptSegment, sensitivity int) *models.AnalysisEvent {
	prompt := buildClassifyPrompt(segment.Text, sensitivity)
	raw, err := s.oracle.ClassifySegment(ctx, prompt)
	if err != nil {
		log.Printf("警告：[ClassifyService] 第 %d 段的預言機呼叫失敗，略過該段: %v\n", index, err)
		return nil
	}
	event := parseOracleEvent(raw)
	if event == nil {
		return nil
	}
	event.TimestampSec = int(math.Round(float64(segment.OffsetMs) / 1000))
	return event
}

// oracleEvent 是預言機回應的負面事件物件（不含時間戳）。
type oracleEvent struct {
	Category    string `json:"category"`
	SubCategory string `json:"subCategory"`
	Description string `json:"description"`
	Phrase      string `json:"phrase"`
}

// parseOracleEvent 寬容解析預言機回應：
// 空白或 `""` 代表沒有負面事件；直接解析失敗時退而在雜訊中擷取內嵌物件；
// 缺少必要欄位視為格式錯誤，丟棄。
func parseOracleEvent(raw string) *models.AnalysisEvent {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == `""` {
		return nil
	}
	cleaned := llmjson.Clean(trimmed)
	var payload oracleEvent
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		extracted, ok := llmjson.ExtractObject(trimmed)
		if !ok {
			log.Printf("警告：[ClassifyService] 預言機回應無法解析為 JSON 物件，丟棄: %q\n", firstNChars(trimmed, 120))
			return nil
		}
		if err := json.Unmarshal([]byte(extracted), &payload); err != nil {
			log.Printf("警告：[ClassifyService] 內嵌物件解析失敗，丟棄: %v\n", err)
			return nil
		}
	}
	if payload.Category == "" || payload.SubCategory == "" || payload.Description == "" || payload.Phrase == "" {
		log.Printf("警告：[ClassifyService] 預言機回應缺少必要欄位，丟棄: %q\n", firstNChars(cleaned, 120))
		return nil
	}
	return &models.AnalysisEvent{
		Category:    payload.Category,
		SubCategory: payload.SubCategory,
		Description: payload.Description,
		Phrase:      payload.Phrase,
	}
}

// buildClassifyPrompt 組合單段分類的 prompt，內嵌固定的分類詞彙表。
func buildClassifyPrompt(text string, sensitivity int) string {
	return fmt.Sprintf(`You are an expert AI content moderation engine. Analyze the following YouTube transcript segment for negative speech, negative behavior, or potential negative emotions. Use the sensitivity index (%d) to determine how strictly to flag content (1=least sensitive, 10=most sensitive, 5=medium). Judge as if Carl Jung were a parent.

Transcript segment:
"""
%s
"""

If you detect a negative event, respond with a JSON object with the following schema:
{
  "category": "Negative Speech" | "Negative Behavior" | "Potential Emotions",
  "subCategory": string, // Must be one of the predefined sub-categories below
  "description": string, // Brief, neutral, one-sentence description (under 15 words)
  "phrase": string // The quoted phrase or utterance that triggered the flag
}
If there is no negative event, respond with an empty string.

**Valid Sub-Categories (use these exact strings):**
- For "Negative Speech": %s
- For "Negative Behavior": %s
- For "Potential Emotions": %s`,
		sensitivity,
		text,
		strings.Join(models.NegativeSpeechSubCategories, ", "),
		strings.Join(models.NegativeBehaviorSubCategories, ", "),
		strings.Join(models.PotentialEmotionsSubCategories, ", "),
	)
}

// firstNChars 輔助函式：日誌截斷用。
func firstNChars(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}
