package services

import (
	"Youtube-Monster/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"
	"time"
)

// videoIDPattern 是 YouTube 影片 ID 的固定格式：11 個字元。
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ValidateVideoID 在任何網路操作之前檢查影片 ID 格式。
// 這是快速的本地前置檢查，不屬於串接的失敗累積。
func ValidateVideoID(videoID string) error {
	if !videoIDPattern.MatchString(videoID) {
		return fmt.Errorf("影片 ID 格式不正確：應為 11 個字元 ([A-Za-z0-9_-])，收到 '%s'", videoID)
	}
	return nil
}

// TranscriptService 負責逐字稿取得串接：
// 依信任度遞減的順序嘗試各個策略，回傳第一個非空結果與其來源標記，
// 或帶有各步驟失敗原因的彙總錯誤。
type TranscriptService struct {
	captions        CaptionSource
	scraper         PageScraper
	oracle          TranscriptOracle
	probe           MetadataProbe // 可為 nil（未設定 Data API Key 時）
	defaultLanguage string
	languages       []string
	stepTimeout     time.Duration
}

// NewTranscriptService 建立 TranscriptService 實例。
func NewTranscriptService(
	captions CaptionSource,
	scraper PageScraper,
	oracle TranscriptOracle,
	probe MetadataProbe,
	defaultLanguage string,
	languages []string,
	stepTimeout time.Duration,
) (*TranscriptService, error) {
	if captions == nil {
		return nil, fmt.Errorf("TranscriptService：CaptionSource 不得為空")
	}
	if scraper == nil {
		return nil, fmt.Errorf("TranscriptService：PageScraper 不得為空")
	}
	if oracle == nil {
		return nil, fmt.Errorf("TranscriptService：TranscriptOracle 不得為空")
	}
	if defaultLanguage == "" {
		defaultLanguage = "en"
	}
	if len(languages) == 0 {
		languages = []string{"en", "en-US", "en-GB"}
	}
	if stepTimeout <= 0 {
		stepTimeout = 60 * time.Second
	}
	log.Println("資訊：TranscriptService 初始化完成。")
	return &TranscriptService{
		captions:        captions,
		scraper:         scraper,
		oracle:          oracle,
		probe:           probe,
		defaultLanguage: defaultLanguage,
		languages:       languages,
		stepTimeout:     stepTimeout,
	}, nil
}

// cascadeStep 是串接中的一個策略：成功帶來源標記，失敗帶原因。
type cascadeStep struct {
	name   string
	method models.ExtractionMethod
	run    func(ctx context.Context) ([]models.TranscriptSegment, error)
}

// FetchTranscript 依序執行各策略，回傳第一個非空逐字稿。
// 後面的策略成本更高、信任度更低，只有前面全部失敗才會執行；
// 單一策略失敗不中斷串接，所有原因依序串接進最終錯誤訊息。
func (s *TranscriptService) FetchTranscript(ctx context.Context, videoID string) ([]models.TranscriptSegment, models.ExtractionMethod, error) {
	if err := ValidateVideoID(videoID); err != nil {
		return nil, models.MethodFailed, err
	}

	steps := []cascadeStep{
		{
			name:   "caption-track",
			method: models.MethodCaptionTrack,
			run: func(ctx context.Context) ([]models.TranscriptSegment, error) {
				return s.captions.Fetch(ctx, videoID, s.defaultLanguage)
			},
		},
		{
			name:   "caption-track-lang",
			method: models.MethodCaptionTrackLang,
			run: func(ctx context.Context) ([]models.TranscriptSegment, error) {
				return s.fetchByLanguages(ctx, videoID)
			},
		},
		{
			name:   "caption-track-listing",
			method: models.MethodCaptionTrackListing,
			run: func(ctx context.Context) ([]models.TranscriptSegment, error) {
				return s.fetchFromListing(ctx, videoID)
			},
		},
		{
			name:   "page-scrape",
			method: models.MethodPageScrape,
			run: func(ctx context.Context) ([]models.TranscriptSegment, error) {
				return s.scraper.ScrapeCaptions(ctx, videoID)
			},
		},
		{
			name:   "ai-generated",
			method: models.MethodAIGenerated,
			run: func(ctx context.Context) ([]models.TranscriptSegment, error) {
				return s.generateSynthetic(ctx, videoID)
			},
		},
	}

	var reasons []string
	sawEmpty := false
	for _, step := range steps {
		log.Printf("資訊：[TranscriptService] 嘗試策略 '%s' (影片: %s)...\n", step.name, videoID)
		stepCtx, cancel := context.WithTimeout(ctx, s.stepTimeout)
		segments, err := step.run(stepCtx)
		cancel()
		if err != nil {
			log.Printf("警告：[TranscriptService] 策略 '%s' 失敗: %v\n", step.name, err)
			reasons = append(reasons, fmt.Sprintf("%s: %v", step.name, err))
			continue
		}
		if len(segments) == 0 {
			// 結構上成功但零段：視為該步驟失敗，不是空內容的成功
			log.Printf("警告：[TranscriptService] 策略 '%s' 回傳空逐字稿。\n", step.name)
			reasons = append(reasons, fmt.Sprintf("%s: 轉寫結果為空", step.name))
			sawEmpty = true
			continue
		}
		if err := models.ValidateSegments(segments); err != nil {
			log.Printf("警告：[TranscriptService] 策略 '%s' 的逐字稿結構異常: %v\n", step.name, err)
			reasons = append(reasons, fmt.Sprintf("%s: 逐字稿結構異常: %v", step.name, err))
			continue
		}
		log.Printf("資訊：[TranscriptService] 策略 '%s' 成功，共 %d 個字幕段。\n", step.name, len(segments))
		return segments, step.method, nil
	}

	// Data API 探測：只用來豐富錯誤訊息，絕不是逐字稿來源
	if s.probe != nil {
		probeCtx, cancel := context.WithTimeout(ctx, s.stepTimeout)
		info, err := s.probe.Probe(probeCtx, videoID)
		cancel()
		switch {
		case err != nil:
			reasons = append(reasons, fmt.Sprintf("metadata-probe: %v", err))
		case !info.Exists:
			reasons = append(reasons, "metadata-probe: Data API 查無此影片，可能已被移除或設為私人")
		default:
			reasons = append(reasons, fmt.Sprintf("metadata-probe: 影片存在 (標題: %q, 時長: %d 秒, 官方字幕軌: %d 條)", info.Title, info.DurationSec, info.CaptionCount))
		}
	}

	msg := fmt.Sprintf("所有逐字稿取得策略皆失敗 (影片: %s): %s", videoID, strings.Join(reasons, "; "))
	if sawEmpty {
		msg = "影片沒有可用的語音內容 (no speech content); " + msg
	}
	return nil, models.MethodFailed, fmt.Errorf("%s", msg)
}

// fetchByLanguages 依序嘗試明確的語言代碼清單，停在第一個非空結果。
func (s *TranscriptService) fetchByLanguages(ctx context.Context, videoID string) ([]models.TranscriptSegment, error) {
	for _, lang := range s.languages {
		segments, err := s.captions.Fetch(ctx, videoID, lang)
		if err != nil {
			log.Printf("警告：[TranscriptService] 語言 '%s' 的字幕取得失敗: %v\n", lang, err)
			continue
		}
		if len(segments) > 0 {
			return segments, nil
		}
	}
	return nil, fmt.Errorf("嘗試 %d 個語言代碼皆無可用字幕", len(s.languages))
}

// fetchFromListing 查詢所有可用字幕軌，取第一條。
func (s *TranscriptService) fetchFromListing(ctx context.Context, videoID string) ([]models.TranscriptSegment, error) {
	tracks, err := s.captions.ListTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("影片沒有任何字幕軌")
	}
	log.Printf("資訊：[TranscriptService] 字幕軌清單共 %d 條，取第一條 (lang=%s)。\n", len(tracks), tracks[0].LangCode)
	return s.captions.FetchTrack(ctx, videoID, tracks[0])
}

// syntheticSegment 寬容接受合成逐字稿預言機的欄位變體：
// offset（毫秒）或 timestamp（秒）皆可。
type syntheticSegment struct {
	Offset    *float64 `json:"offset"`
	Timestamp *float64 `json:"timestamp"`
	Text      string   `json:"text"`
	Duration  *float64 `json:"duration"`
}

// generateSynthetic 取得影片中繼資料並請預言機合成一份可信的逐字稿。
// 明確是最低信任度的最後手段。
func (s *TranscriptService) generateSynthetic(ctx context.Context, videoID string) ([]models.TranscriptSegment, error) {
	meta, err := s.scraper.FetchMetadata(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("無法取得影片中繼資料: %w", err)
	}
	prompt := buildTranscriptPrompt(meta)
	raw, err := s.oracle.GenerateTranscript(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("合成逐字稿預言機呼叫失敗: %w", err)
	}
	segments, err := parseSyntheticTranscript(raw)
	if err != nil {
		return nil, fmt.Errorf("合成逐字稿回應解析失敗: %w", err)
	}
	return segments, nil
}

// buildTranscriptPrompt 組合合成逐字稿的 prompt（模型輸出要求 JSON 陣列）。
func buildTranscriptPrompt(meta *models.VideoMetadata) string {
	return fmt.Sprintf(`You are reconstructing a plausible spoken transcript for a YouTube video from its public metadata. Generate a realistic, segmented transcript of what is likely said in the video.

Video metadata:
- Video ID: %s
- Title: %s
- Channel: %s
- Description: %s

Respond ONLY with a JSON array of segment objects, each with this schema:
{"offset": number (milliseconds from video start), "text": string, "duration": number (milliseconds)}

Keep segments short (one sentence each) with non-decreasing offsets starting at 0.`,
		meta.VideoID, meta.Title, meta.Channel, meta.Description)
}

// parseSyntheticTranscript 解析預言機的 JSON 陣列回應為字幕段。
func parseSyntheticTranscript(raw string) ([]models.TranscriptSegment, error) {
	var items []syntheticSegment
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("JSON 陣列解析失敗: %w", err)
	}
	segments := make([]models.TranscriptSegment, 0, len(items))
	for _, item := range items {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		offsetMs := 0
		switch {
		case item.Offset != nil:
			offsetMs = int(math.Round(*item.Offset))
		case item.Timestamp != nil:
			// timestamp 慣例為秒
			offsetMs = int(math.Round(*item.Timestamp * 1000))
		}
		durationMs := models.DefaultSegmentDurationMs
		if item.Duration != nil && *item.Duration > 0 {
			durationMs = int(math.Round(*item.Duration))
		}
		segments = append(segments, models.TranscriptSegment{
			OffsetMs:   offsetMs,
			Text:       text,
			DurationMs: durationMs,
		})
	}
	return segments, nil
}
