// Package scoring 把標記出的負面事件彙總為單一安全評分。
// 評分語意：「每單位違規嚴重度可容忍的影片秒數」，數值越高越好。
package scoring

import (
	"Youtube-Monster/internal/models"
	"encoding/json"
	"fmt"
)

// ScoreKind 區分評分的三種型態。
type ScoreKind int

const (
	// KindUnknown 時長不明，無法計算
	KindUnknown ScoreKind = iota
	// KindFinite 正常的有限評分
	KindFinite
	// KindPerfect 未偵測到任何負面內容（與影片長度無關）
	KindPerfect
)

// Score 是一次分析的安全評分。由輸入導出，不單獨持久化。
type Score struct {
	Kind  ScoreKind
	Value float64 // 僅 KindFinite 有意義
}

// Unknown 回傳「無法計算」的評分。
func Unknown() Score { return Score{Kind: KindUnknown} }

// Perfect 回傳「完美」哨兵評分。
func Perfect() Score { return Score{Kind: KindPerfect} }

// Finite 回傳有限評分。
func Finite(v float64) Score { return Score{Kind: KindFinite, Value: v} }

// Compare 依全序 perfect > 任何有限值 > unknown 比較兩個評分。
// 回傳 1、0、-1 分別代表 s 優於、等於、劣於 other。
func (s Score) Compare(other Score) int {
	if s.Kind != other.Kind {
		if s.Kind > other.Kind {
			return 1
		}
		return -1
	}
	if s.Kind != KindFinite || s.Value == other.Value {
		return 0
	}
	if s.Value > other.Value {
		return 1
	}
	return -1
}

// String 供日誌與顯示使用。
func (s Score) String() string {
	switch s.Kind {
	case KindPerfect:
		return "perfect"
	case KindUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("%.2f", s.Value)
	}
}

// MarshalJSON 把哨兵值輸出為字串、有限值輸出為數字。
func (s Score) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case KindPerfect:
		return []byte(`"perfect"`), nil
	case KindUnknown:
		return []byte(`"unknown"`), nil
	default:
		return json.Marshal(s.Value)
	}
}

// PenaltyTable 是子分類到正權重的靜態對照表。
// 行程範圍內唯讀；部署時設定，不是執行期輸入。
type PenaltyTable map[string]float64

// DefaultPenaltyTable 回傳內建的懲罰權重。
// 設定檔可整份覆寫（config: penalties）。
func DefaultPenaltyTable() PenaltyTable {
	return PenaltyTable{
		// Negative Speech
		"Devaluation of Others":             2,
		"Entitlement":                       1,
		"Victim Narrative/Self-Pity":        1,
		"Shame-Laden":                       1,
		"Envy/Resentment":                   1,
		"Passive-Aggression":                1.5,
		"Hostility":                         2,
		"Hate Speech":                       5,
		"Impaired Empathy / Dismissiveness": 1.5,
		"Incoherence":                       0.5,
		"Excessive Self-Reference":          0.5,
		// Negative Behavior
		"Bullying":         4,
		"Harassment":       4,
		"Drinking alcohol": 2,
		"Violence":         4,
		"Sexism":           3,
		// Potential Emotions
		"Angry":               1,
		"Fearful/Anxious":     0.5,
		"Sad":                 0.5,
		"Irritated/Impatient": 0.5,
		"Cold/Detached":       1,
	}
}

// Aggregate 把事件清單與已知時長彙總為評分。
//   - 時長不明或 <= 0：unknown（無法計算）
//   - 懲罰總和為 0：perfect（與時長無關）
//   - 其他：durationSec / penaltySum
//
// 對照表中缺少的子分類以 0 計（防禦性預設，不是錯誤）。
func Aggregate(events []models.AnalysisEvent, durationSec float64, table PenaltyTable) Score {
	if durationSec <= 0 {
		return Unknown()
	}
	var penaltySum float64
	for _, event := range events {
		penaltySum += table[event.SubCategory]
	}
	if penaltySum == 0 {
		return Perfect()
	}
	return Finite(durationSec / penaltySum)
}
