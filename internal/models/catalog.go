package models

// 分類詞彙表：分類預言機唯一合法的輸出詞彙。
// 修改屬於部署時決策，不是執行期輸入。

const (
	CategoryNegativeSpeech    = "Negative Speech"
	CategoryNegativeBehavior  = "Negative Behavior"
	CategoryPotentialEmotions = "Potential Emotions"
)

// NegativeSpeechSubCategories 負面言論的子分類
var NegativeSpeechSubCategories = []string{
	"Devaluation of Others",
	"Entitlement",
	"Victim Narrative/Self-Pity",
	"Shame-Laden",
	"Envy/Resentment",
	"Passive-Aggression",
	"Hostility",
	"Hate Speech",
	"Impaired Empathy / Dismissiveness",
	"Incoherence",
	"Excessive Self-Reference",
}

// NegativeBehaviorSubCategories 負面行為的子分類
var NegativeBehaviorSubCategories = []string{
	"Bullying",
	"Harassment",
	"Drinking alcohol",
	"Violence",
	"Sexism",
}

// PotentialEmotionsSubCategories 潛在負面情緒的子分類
var PotentialEmotionsSubCategories = []string{
	"Angry",
	"Fearful/Anxious",
	"Sad",
	"Irritated/Impatient",
	"Cold/Detached",
}
