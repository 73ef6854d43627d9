// Package timedtext 透過 YouTube 的 timedtext 端點取得官方字幕軌。
// 這是逐字稿取得串接中信任度最高的通道。
package timedtext

import (
	"Youtube-Monster/internal/models"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://video.google.com/timedtext"

// Client 與 timedtext 端點互動。
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient 建立 timedtext 客戶端。baseURL 為空時使用官方端點。
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("建立 timedtext 請求失敗: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("timedtext 請求失敗: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timedtext 回應狀態碼異常: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("讀取 timedtext 回應失敗: %w", err)
	}
	return body, nil
}

// Fetch 取得指定語言的字幕軌並解析為字幕段。
// 該語言沒有字幕時端點會回傳空文件，結果為零段（呼叫端視為失敗）。
func (c *Client) Fetch(ctx context.Context, videoID string, lang string) ([]models.TranscriptSegment, error) {
	params := url.Values{}
	params.Set("v", videoID)
	params.Set("lang", lang)
	body, err := c.get(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("取得語言 '%s' 的字幕失敗: %w", lang, err)
	}
	segments, err := ParseCaptionXML(body)
	if err != nil {
		return nil, fmt.Errorf("解析語言 '%s' 的字幕文件失敗: %w", lang, err)
	}
	return segments, nil
}

// FetchTrack 依字幕軌清單中的一條軌道取得字幕（含 name 與 kind 參數）。
func (c *Client) FetchTrack(ctx context.Context, videoID string, track models.CaptionTrack) ([]models.TranscriptSegment, error) {
	params := url.Values{}
	params.Set("v", videoID)
	params.Set("lang", track.LangCode)
	if track.Name != "" {
		params.Set("name", track.Name)
	}
	if track.Kind != "" {
		params.Set("kind", track.Kind)
	}
	body, err := c.get(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("取得字幕軌 (lang=%s, name=%s) 失敗: %w", track.LangCode, track.Name, err)
	}
	segments, err := ParseCaptionXML(body)
	if err != nil {
		return nil, fmt.Errorf("解析字幕軌 (lang=%s) 文件失敗: %w", track.LangCode, err)
	}
	return segments, nil
}

// ListTracks 查詢影片所有可用的字幕軌。
func (c *Client) ListTracks(ctx context.Context, videoID string) ([]models.CaptionTrack, error) {
	params := url.Values{}
	params.Set("v", videoID)
	params.Set("type", "list")
	body, err := c.get(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("查詢字幕軌清單失敗: %w", err)
	}
	tracks, err := ParseTrackListXML(body)
	if err != nil {
		return nil, fmt.Errorf("解析字幕軌清單失敗: %w", err)
	}
	return tracks, nil
}
