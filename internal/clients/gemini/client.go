// Package gemini 包裝與 Gemini API 的互動：
// 字幕段分類預言機與合成逐字稿預言機共用同一個客戶端。
package gemini

import (
	"Youtube-Monster/internal/llmjson"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Client 結構用於與 Gemini API 互動
type Client struct {
	classifyModel   *genai.GenerativeModel
	transcriptModel *genai.GenerativeModel
}

// NewClient 建立一個 Gemini 客戶端實例
func NewClient(apiKey string, classifyModelName string, transcriptModelName string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API Key 不得為空")
	}
	if classifyModelName == "" {
		classifyModelName = "gemini-2.0-flash"
		log.Printf("警告：[Gemini Client] 未提供分類模型名稱，使用預設值: %s\n", classifyModelName)
	}
	if transcriptModelName == "" {
		transcriptModelName = "gemini-2.0-flash"
		log.Printf("警告：[Gemini Client] 未提供合成逐字稿模型名稱，使用預設值: %s\n", transcriptModelName)
	}

	ctx := context.Background()
	genaiSDKClient, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("無法建立 Gemini GenAI SDK 客戶端: %w", err)
	}

	// 分類模型不設定 JSON MIME type：沒有負面事件時合法回應是空字串
	clsModel := genaiSDKClient.GenerativeModel(classifyModelName)
	var clsConfig genai.GenerationConfig
	temperature := float32(0.5)
	clsConfig.Temperature = &temperature
	clsModel.GenerationConfig = clsConfig
	log.Printf("資訊：[Gemini Client] 分類模型 '%s' 初始化成功。\n", classifyModelName)

	trModel := genaiSDKClient.GenerativeModel(transcriptModelName)
	var trConfig genai.GenerationConfig
	trConfig.ResponseMIMEType = "application/json"
	trModel.GenerationConfig = trConfig
	log.Printf("資訊：[Gemini Client] 合成逐字稿模型 '%s' 初始化成功。\n", transcriptModelName)

	return &Client{
		classifyModel:   clsModel,
		transcriptModel: trModel,
	}, nil
}

// generate 發送 prompt 並把所有文字 part 串接為一個字串。
func generate(ctx context.Context, model *genai.GenerativeModel, prompt string, tag string) (string, error) {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API %s GenerateContent 失敗: %w", tag, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("Gemini API %s 回應無效或為空 (nil response or no candidates)", tag)
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		if candidate.FinishReason != genai.FinishReasonStop && candidate.FinishReason != genai.FinishReasonUnspecified {
			if candidate.SafetyRatings != nil {
				for _, rating := range candidate.SafetyRatings {
					log.Printf("警告：[Gemini Client] 安全評級 (%s) - Category: %s, Probability: %s\n", tag, rating.Category, rating.Probability)
				}
			}
			return "", fmt.Errorf("Gemini API %s 回應內容被阻止，原因: %s", tag, candidate.FinishReason.String())
		}
		// 沒有任何 part 但 FinishReason 正常：視為空回應，由呼叫端決定語意
		return "", nil
	}
	var responseTextBuilder strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseTextBuilder.WriteString(string(txt))
		} else {
			log.Printf("警告：[Gemini Client] %s - 收到非預期的 Part 類型: %T\n", tag, part)
		}
	}
	return responseTextBuilder.String(), nil
}

// ClassifySegment 向分類模型發送單一字幕段的分類 prompt。
// 回傳原始文字回應：空字串代表「沒有負面事件」，否則預期是一個 JSON 物件
// （可能夾雜 markdown 代碼塊或說明文字，由呼叫端寬容解析）。
func (c *Client) ClassifySegment(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("分類 prompt 不得為空")
	}
	raw, err := generate(ctx, c.classifyModel, prompt, "分類")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// GenerateTranscript 向合成逐字稿模型發送中繼資料 prompt，
// 期望回傳 JSON 陣列字串。清理後仍不是合法 JSON 時回傳錯誤。
func (c *Client) GenerateTranscript(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("合成逐字稿 prompt 不得為空")
	}
	raw, err := generate(ctx, c.transcriptModel, prompt, "合成逐字稿")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("Gemini API 合成逐字稿回傳的內容為空")
	}
	cleaned := llmjson.Clean(raw)
	if !json.Valid([]byte(cleaned)) {
		log.Printf("錯誤：[Gemini Client] GenerateTranscript - 清理後的字串仍然不是有效的 JSON:\n%s\n", cleaned)
		return "", fmt.Errorf("清理後的字串不是有效的 JSON (合成逐字稿)")
	}
	return cleaned, nil
}
