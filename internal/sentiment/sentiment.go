package sentiment

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/words"
)

// Label 摘要的粗粒度情感标签
type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

// 极性阈值：|score| <= 0.15 视为中性
const threshold = 0.15

// 一个很小的内置情感词表。不追求覆盖率，只用于给摘要打一个粗略标签。
var positiveWords = map[string]struct{}{
	"good": {}, "great": {}, "excellent": {}, "positive": {}, "success": {},
	"successful": {}, "win": {}, "wins": {}, "won": {}, "growth": {},
	"gain": {}, "gains": {}, "improve": {}, "improves": {}, "improved": {},
	"improvement": {}, "strong": {}, "record": {}, "boost": {}, "boosts": {},
	"breakthrough": {}, "progress": {}, "recovery": {}, "praise": {},
	"praised": {}, "welcome": {}, "welcomed": {}, "hope": {}, "hopeful": {},
	"agreement": {}, "peace": {}, "celebrate": {}, "celebrates": {},
	"benefit": {}, "benefits": {}, "safe": {}, "surge": {}, "thrive": {},
}

var negativeWords = map[string]struct{}{
	"bad": {}, "worse": {}, "worst": {}, "negative": {}, "fail": {},
	"fails": {}, "failed": {}, "failure": {}, "loss": {}, "losses": {},
	"lose": {}, "lost": {}, "crisis": {}, "crash": {}, "crashes": {},
	"decline": {}, "declines": {}, "declined": {}, "weak": {}, "fear": {},
	"fears": {}, "threat": {}, "threats": {}, "war": {}, "death": {},
	"deaths": {}, "dead": {}, "kill": {}, "killed": {}, "attack": {},
	"attacks": {}, "disaster": {}, "collapse": {}, "fraud": {}, "scandal": {},
	"warning": {}, "warns": {}, "risk": {}, "risks": {}, "damage": {},
}

// Score 返回 [-1, 1] 区间的极性分值。
// 正负词一个都没有命中时记为 0（中性）。
func Score(text string) float64 {
	var pos, neg int

	seg := words.FromString(strings.ToLower(text))
	for seg.Next() {
		w := strings.TrimSpace(seg.Value())
		if w == "" {
			continue
		}
		if _, ok := positiveWords[w]; ok {
			pos++
			continue
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return 0
	}
	return float64(pos-neg) / float64(total)
}

// LabelFor 按 ±0.15 的阈值把极性分值映射为标签
func LabelFor(score float64) Label {
	switch {
	case score > threshold:
		return LabelPositive
	case score < -threshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// Classify 对文本直接打标签
func Classify(text string) Label {
	return LabelFor(Score(text))
}
