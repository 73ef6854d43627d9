package timedtext

import (
	"Youtube-Monster/internal/models"
	"encoding/xml"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
)

// captionDocument 對應 timedtext 回傳的 XML 字幕文件：
// <transcript><text start="1.2" dur="3.4">內容</text>...</transcript>
type captionDocument struct {
	XMLName xml.Name      `xml:"transcript"`
	Texts   []captionText `xml:"text"`
}

type captionText struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Body  string `xml:",chardata"`
}

// trackListDocument 對應 type=list 回傳的字幕軌清單。
type trackListDocument struct {
	XMLName xml.Name        `xml:"transcript_list"`
	Tracks  []trackListItem `xml:"track"`
}

type trackListItem struct {
	LangCode string `xml:"lang_code,attr"`
	Name     string `xml:"name,attr"`
	Kind     string `xml:"kind,attr"`
}

// ParseCaptionXML 解析 timedtext XML 字幕文件為字幕段。
// 時間單位由秒轉為毫秒；缺少 dur 時套用預設時長；
// 文字內容做 HTML entity 解碼（YouTube 會對内容做二次編碼）。
func ParseCaptionXML(data []byte) ([]models.TranscriptSegment, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var doc captionDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("字幕 XML 解析失敗: %w", err)
	}

	segments := make([]models.TranscriptSegment, 0, len(doc.Texts))
	for i, t := range doc.Texts {
		startSec, err := strconv.ParseFloat(strings.TrimSpace(t.Start), 64)
		if err != nil {
			return nil, fmt.Errorf("第 %d 個 <text> 元素的 start 屬性無法解析 ('%s'): %w", i, t.Start, err)
		}
		durMs := models.DefaultSegmentDurationMs
		if strings.TrimSpace(t.Dur) != "" {
			durSec, err := strconv.ParseFloat(strings.TrimSpace(t.Dur), 64)
			if err != nil {
				return nil, fmt.Errorf("第 %d 個 <text> 元素的 dur 屬性無法解析 ('%s'): %w", i, t.Dur, err)
			}
			durMs = int(math.Round(durSec * 1000))
		}

		text := strings.TrimSpace(html.UnescapeString(t.Body))
		segments = append(segments, models.TranscriptSegment{
			OffsetMs:   int(math.Round(startSec * 1000)),
			Text:       text,
			DurationMs: durMs,
		})
	}
	return segments, nil
}

// ParseTrackListXML 解析 type=list 的字幕軌清單文件。
func ParseTrackListXML(data []byte) ([]models.CaptionTrack, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var doc trackListDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("字幕軌清單 XML 解析失敗: %w", err)
	}
	tracks := make([]models.CaptionTrack, 0, len(doc.Tracks))
	for _, t := range doc.Tracks {
		tracks = append(tracks, models.CaptionTrack{
			LangCode: t.LangCode,
			Name:     t.Name,
			Kind:     t.Kind,
		})
	}
	return tracks, nil
}
