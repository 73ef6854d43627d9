// Package llmjson 清理與擷取 LLM 回應中夾雜的 JSON。
// 模型常把 JSON 包在 markdown 代碼塊裡、前後附加說明文字，
// 或夾帶控制字元與無效 UTF-8；這裡集中處理這些雜質。
package llmjson

import (
	"encoding/json"
	"log"
	"strings"
	"unicode/utf8"
)

// Clean 清理從 LLM 收到的可能包含雜質的 JSON 字串。
// 依序：去除 markdown 代碼塊標記、擷取最外層 JSON 結構、
// 修復無效 UTF-8、移除控制字元。不保證結果是合法 JSON，
// 呼叫端仍須以 json.Valid 或 Unmarshal 驗證。
func Clean(rawResponse string) string {
	cleaned := strings.TrimSpace(rawResponse)

	// 移除可能的 markdown 代碼塊標記
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	// 尋找最外層的 JSON 結構（物件或陣列，取較早出現者）
	var potentialJSON string
	firstBrace := strings.Index(cleaned, "{")
	lastBrace := strings.LastIndex(cleaned, "}")
	firstBracket := strings.Index(cleaned, "[")
	lastBracket := strings.LastIndex(cleaned, "]")
	isObject := firstBrace != -1 && lastBrace > firstBrace
	isArray := firstBracket != -1 && lastBracket > firstBracket

	switch {
	case isObject && (!isArray || firstBrace < firstBracket):
		potentialJSON = cleaned[firstBrace : lastBrace+1]
	case isArray && (!isObject || firstBracket < firstBrace):
		potentialJSON = cleaned[firstBracket : lastBracket+1]
	default:
		potentialJSON = cleaned
	}
	potentialJSON = strings.TrimSpace(potentialJSON)

	// 處理 UTF-8 編碼問題
	if !utf8.ValidString(potentialJSON) {
		log.Println("警告：[llmjson] 回應包含無效的 UTF-8 字元，嘗試替換...")
		potentialJSON = strings.ToValidUTF8(potentialJSON, "")
	}

	// 移除控制字元（保留換行與 tab，JSON 字串值外的空白無害）
	var sb strings.Builder
	for _, r := range potentialJSON {
		if (r >= 0 && r < 9) || (r > 10 && r < 13) || (r > 13 && r < 32) || r == 127 {
			continue
		}
		sb.WriteRune(r)
	}
	finalCleaned := strings.TrimPrefix(sb.String(), "\uFEFF")

	return finalCleaned
}

// ExtractObject 在一段可能夾雜說明文字的回應中擷取第一個 `{...}` 物件。
// 直接解析失敗時的最後手段；回傳的字串保證可被 json.Unmarshal 解析為物件。
func ExtractObject(raw string) (string, bool) {
	cleaned := Clean(raw)
	start := strings.Index(cleaned, "{")
	if start == -1 {
		return "", false
	}
	end := strings.LastIndex(cleaned, "}")
	if end <= start {
		return "", false
	}
	candidate := cleaned[start : end+1]
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return "", false
	}
	return candidate, true
}

// ExtractArray 擷取回應中的第一個 `[...]` 陣列，語意同 ExtractObject。
func ExtractArray(raw string) (string, bool) {
	cleaned := Clean(raw)
	start := strings.Index(cleaned, "[")
	if start == -1 {
		return "", false
	}
	end := strings.LastIndex(cleaned, "]")
	if end <= start {
		return "", false
	}
	candidate := cleaned[start : end+1]
	var probe []json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return "", false
	}
	return candidate, true
}
