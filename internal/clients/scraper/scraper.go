// Package scraper 從影片公開頁面的內嵌資料挖出字幕與中繼資料。
// 官方字幕通道失敗後的後備手段：解析 watch 頁面中的 script 區塊，
// 依序嘗試多種模式找出字幕軌 URL。
package scraper

import (
	"Youtube-Monster/internal/clients/timedtext"
	"Youtube-Monster/internal/models"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	defaultWatchBaseURL = "https://www.youtube.com/watch"
	defaultOriginURL    = "https://www.youtube.com"
	userAgent           = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Client 抓取並解析影片公開頁面。
type Client struct {
	httpClient   *http.Client
	watchBaseURL string
	originURL    string
}

// NewClient 建立頁面抓取客戶端。watchBaseURL 為空時使用官方 watch 端點。
func NewClient(watchBaseURL string, timeout time.Duration) *Client {
	origin := defaultOriginURL
	if watchBaseURL == "" {
		watchBaseURL = defaultWatchBaseURL
	} else if idx := strings.Index(watchBaseURL, "/watch"); idx > 0 {
		origin = watchBaseURL[:idx]
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		watchBaseURL: watchBaseURL,
		originURL:    origin,
	}
}

// pageData 是 watch 頁面解構後的內容。
type pageData struct {
	raw     string
	scripts []string
	metas   map[string]string // property/name/itemprop → content
	title   string
}

func (c *Client) fetchWatchPage(ctx context.Context, videoID string) (*pageData, error) {
	reqURL := c.watchBaseURL + "?v=" + videoID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("建立 watch 頁面請求失敗: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("抓取 watch 頁面失敗: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("watch 頁面回應狀態碼異常: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("讀取 watch 頁面失敗: %w", err)
	}
	return parsePage(body), nil
}

// parsePage 以 tokenizer 走訪頁面，收集 script 內容與 meta 標籤。
func parsePage(body []byte) *pageData {
	page := &pageData{
		raw:   string(body),
		metas: make(map[string]string),
	}
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			return page
		}
		if tokenType != html.StartTagToken && tokenType != html.SelfClosingTagToken {
			continue
		}
		token := tokenizer.Token()
		switch token.Data {
		case "script":
			if tokenType == html.StartTagToken && tokenizer.Next() == html.TextToken {
				page.scripts = append(page.scripts, string(tokenizer.Text()))
			}
		case "title":
			if tokenType == html.StartTagToken && tokenizer.Next() == html.TextToken {
				page.title = strings.TrimSpace(string(tokenizer.Text()))
			}
		case "meta", "link":
			var key, content string
			for _, attr := range token.Attr {
				switch attr.Key {
				case "property", "name", "itemprop":
					key = attr.Val
				case "content":
					content = attr.Val
				}
			}
			if key != "" && content != "" {
				page.metas[key] = content
			}
		}
	}
}

var (
	transcriptRendererURLPattern = regexp.MustCompile(`"(?:url|baseUrl)"\s*:\s*"([^"]*timedtext[^"]*)"`)
	captionTracksPattern         = regexp.MustCompile(`"captionTracks"\s*:\s*\[`)
	baseURLPattern               = regexp.MustCompile(`"baseUrl"\s*:\s*"([^"]+)"`)
	directTimedtextPattern       = regexp.MustCompile(`https://www\.youtube\.com/api/timedtext[^"\\\s]+`)
	playerResponsePattern        = regexp.MustCompile(`(?s)ytInitialPlayerResponse\s*=\s*(\{.*?\})\s*;`)
)

// playerResponse 是 ytInitialPlayerResponse 中與字幕相關的最小結構。
type playerResponse struct {
	Captions struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []struct {
				BaseURL      string `json:"baseUrl"`
				LanguageCode string `json:"languageCode"`
			} `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

// ScrapeCaptions 依序嘗試四種策略從頁面內嵌資料找出字幕軌 URL，
// 取回 XML 字幕文件並解析為字幕段。全部落空時回傳錯誤。
func (c *Client) ScrapeCaptions(ctx context.Context, videoID string) ([]models.TranscriptSegment, error) {
	page, err := c.fetchWatchPage(ctx, videoID)
	if err != nil {
		return nil, err
	}

	strategies := []struct {
		name string
		find func(*pageData) []string
	}{
		{"initial-data", findInitialDataCaptionURLs},
		{"inline-caption-json", findInlineCaptionURLs},
		{"direct-timedtext-url", findDirectTimedtextURLs},
		{"player-response", findPlayerResponseCaptionURLs},
	}

	for _, strategy := range strategies {
		candidates := strategy.find(page)
		if len(candidates) == 0 {
			continue
		}
		log.Printf("資訊：[scraper] 策略 '%s' 找到 %d 個字幕軌 URL 候選。\n", strategy.name, len(candidates))
		for _, candidate := range candidates {
			segments, fetchErr := c.fetchCaptionURL(ctx, candidate)
			if fetchErr != nil {
				log.Printf("警告：[scraper] 策略 '%s' 的候選 URL 取回失敗: %v\n", strategy.name, fetchErr)
				continue
			}
			if len(segments) == 0 {
				log.Printf("警告：[scraper] 策略 '%s' 的候選 URL 回傳空字幕文件。\n", strategy.name)
				continue
			}
			log.Printf("資訊：[scraper] 策略 '%s' 成功取得 %d 個字幕段。\n", strategy.name, len(segments))
			return segments, nil
		}
	}
	return nil, fmt.Errorf("頁面內嵌資料中找不到可用的字幕軌 (影片: %s)", videoID)
}

// findInitialDataCaptionURLs 在含 transcriptRenderer 節點的 ytInitialData
// 區塊中尋找 timedtext URL。
func findInitialDataCaptionURLs(page *pageData) []string {
	var urls []string
	for _, script := range page.scripts {
		if !strings.Contains(script, "ytInitialData") || !strings.Contains(script, "transcriptRenderer") {
			continue
		}
		for _, match := range transcriptRendererURLPattern.FindAllStringSubmatch(script, -1) {
			urls = append(urls, decodeEmbeddedURL(match[1]))
		}
	}
	return urls
}

// findInlineCaptionURLs 在符合 captionTracks JSON 模式的 script 中擷取 baseUrl。
func findInlineCaptionURLs(page *pageData) []string {
	var urls []string
	for _, script := range page.scripts {
		if strings.Contains(script, "ytInitialPlayerResponse") {
			continue // player-response 由專屬策略處理
		}
		loc := captionTracksPattern.FindStringIndex(script)
		if loc == nil {
			continue
		}
		if match := baseURLPattern.FindStringSubmatch(script[loc[0]:]); match != nil {
			urls = append(urls, decodeEmbeddedURL(match[1]))
		}
	}
	return urls
}

// findDirectTimedtextURLs 直接在頁面原文中比對 timedtext URL 模式。
func findDirectTimedtextURLs(page *pageData) []string {
	var urls []string
	for _, match := range directTimedtextPattern.FindAllString(page.raw, -1) {
		urls = append(urls, decodeEmbeddedURL(match))
	}
	return urls
}

// findPlayerResponseCaptionURLs 解析 ytInitialPlayerResponse JSON 區塊中的字幕軌清單。
func findPlayerResponseCaptionURLs(page *pageData) []string {
	var urls []string
	for _, script := range page.scripts {
		if !strings.Contains(script, "ytInitialPlayerResponse") {
			continue
		}
		match := playerResponsePattern.FindStringSubmatch(script)
		if match == nil {
			continue
		}
		var pr playerResponse
		if err := json.Unmarshal([]byte(match[1]), &pr); err != nil {
			log.Printf("警告：[scraper] ytInitialPlayerResponse JSON 解析失敗: %v\n", err)
			continue
		}
		for _, track := range pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks {
			if track.BaseURL != "" {
				urls = append(urls, decodeEmbeddedURL(track.BaseURL))
			}
		}
	}
	return urls
}

// decodeEmbeddedURL 還原內嵌 JSON 中被跳脫的 URL。
func decodeEmbeddedURL(u string) string {
	u = strings.ReplaceAll(u, `\u0026`, "&")
	u = strings.ReplaceAll(u, "&amp;", "&")
	u = strings.ReplaceAll(u, `\/`, "/")
	return u
}

func (c *Client) fetchCaptionURL(ctx context.Context, captionURL string) ([]models.TranscriptSegment, error) {
	if strings.HasPrefix(captionURL, "/") {
		captionURL = c.originURL + captionURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, captionURL, nil)
	if err != nil {
		return nil, fmt.Errorf("建立字幕軌請求失敗: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("取回字幕軌 URL 失敗: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("字幕軌 URL 回應狀態碼異常: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("讀取字幕軌回應失敗: %w", err)
	}
	return timedtext.ParseCaptionXML(body)
}

// FetchMetadata 從頁面 head 擷取影片標題、頻道與描述，
// 作為合成逐字稿的素材。
func (c *Client) FetchMetadata(ctx context.Context, videoID string) (*models.VideoMetadata, error) {
	page, err := c.fetchWatchPage(ctx, videoID)
	if err != nil {
		return nil, err
	}

	meta := &models.VideoMetadata{VideoID: videoID}
	if title, ok := page.metas["og:title"]; ok {
		meta.Title = title
	} else {
		meta.Title = strings.TrimSuffix(page.title, " - YouTube")
	}
	if desc, ok := page.metas["og:description"]; ok {
		meta.Description = desc
	} else if desc, ok := page.metas["description"]; ok {
		meta.Description = desc
	}
	if channel, ok := page.metas["author"]; ok {
		meta.Channel = channel
	} else if channel, ok := page.metas["name"]; ok {
		meta.Channel = channel
	}

	if meta.Title == "" && meta.Description == "" {
		return nil, fmt.Errorf("頁面中擷取不到任何影片中繼資料 (影片: %s)", videoID)
	}
	return meta, nil
}
