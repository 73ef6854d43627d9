// Package youtube 透過 YouTube Data API 探測影片狀態。
// 只用於在逐字稿串接全部失敗時豐富錯誤訊息，絕不是逐字稿來源。
package youtube

import (
	"Youtube-Monster/internal/models"
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"

	youtubeapi "google.golang.org/api/youtube/v3"
	"google.golang.org/api/option"
)

// Client 包裝 YouTube Data API v3。
type Client struct {
	service *youtubeapi.Service
}

// NewClient 建立 YouTube Data API 客戶端。
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YouTube API Key 不得為空")
	}
	service, err := youtubeapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("無法建立 YouTube Data API 服務: %w", err)
	}
	log.Println("資訊：[YouTube Client] Data API 服務初始化成功。")
	return &Client{service: service}, nil
}

// iso8601DurationPattern 比對 Data API 回傳的 PT#H#M#S 時長格式。
var iso8601DurationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

func parseISO8601Duration(s string) int {
	match := iso8601DurationPattern.FindStringSubmatch(s)
	if match == nil {
		return 0
	}
	total := 0
	for i, factor := range []int{3600, 60, 1} {
		if match[i+1] != "" {
			v, _ := strconv.Atoi(match[i+1])
			total += v * factor
		}
	}
	return total
}

// Probe 查詢影片是否存在、時長與官方字幕軌數量。
func (c *Client) Probe(ctx context.Context, videoID string) (*models.ProbeInfo, error) {
	videoResp, err := c.service.Videos.List([]string{"snippet", "contentDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("YouTube Data API 影片查詢失敗: %w", err)
	}

	info := &models.ProbeInfo{}
	if len(videoResp.Items) == 0 {
		return info, nil
	}
	info.Exists = true
	item := videoResp.Items[0]
	if item.Snippet != nil {
		info.Title = item.Snippet.Title
	}
	if item.ContentDetails != nil {
		info.DurationSec = parseISO8601Duration(item.ContentDetails.Duration)
	}

	captionResp, err := c.service.Captions.List([]string{"id"}, videoID).Context(ctx).Do()
	if err != nil {
		// 字幕軌查詢失敗不影響存在性結論
		log.Printf("警告：[YouTube Client] 字幕軌清單查詢失敗 (影片: %s): %v\n", videoID, err)
		return info, nil
	}
	info.CaptionCount = len(captionResp.Items)
	return info, nil
}
