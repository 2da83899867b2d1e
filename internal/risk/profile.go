package risk

import (
	"context"
	"fmt"
	"strings"
)

// Trend summarizes the direction of a user's recent emotions.
type Trend string

const (
	TrendImproving        Trend = "improving"
	TrendStable           Trend = "stable"
	TrendSlightlyNegative Trend = "slightly_negative"
	TrendDeclining        Trend = "declining"
)

// Profile is the part of a user's emotion profile risk detection reads.
type Profile struct {
	UserID        string   `json:"user_id"`
	TriggerWords  []string `json:"trigger_words"`
	Sensitivity   float64  `json:"sensitivity"`
	RiskThreshold float64  `json:"risk_threshold"`
	RecentTrend   Trend    `json:"recent_trend"`
}

// DefaultProfile is used for users with no stored profile.
func DefaultProfile(userID string) Profile {
	return Profile{
		UserID:        userID,
		Sensitivity:   0.5,
		RiskThreshold: 0.7,
		RecentTrend:   TrendStable,
	}
}

// ProfileProvider loads a user's profile.
type ProfileProvider interface {
	Profile(ctx context.Context, userID string) (Profile, error)
}

// sensitiveTopics raise the level for highly sensitive users.
var sensitiveTopics = []string{"拒绝", "批评", "冲突"}

const highSensitivity = 0.7

// detectWithProfile applies the profile rules in order. Trigger words,
// sensitivity on a sensitive topic and a declining trend each raise low to
// medium; sensitivity above the user's threshold with a negative trend then
// raises medium to high.
func detectWithProfile(text string, p Profile) partial {
	out := partial{level: Low}

	var matched []string
	for _, w := range p.TriggerWords {
		if w != "" && strings.Contains(text, w) {
			matched = append(matched, w)
		}
	}
	if len(matched) > 0 {
		out.level = Medium
		out.reasons = append(out.reasons, fmt.Sprintf("检测到你的触发词：%s", strings.Join(matched, ", ")))
		out.suggestions = append(out.suggestions, "检测到可能引起情绪波动的内容，建议采取放松措施")
	}

	if p.Sensitivity > highSensitivity && containsAny(text, sensitiveTopics) {
		out.level = MaxLevel(out.level, Medium)
		out.reasons = append(out.reasons, fmt.Sprintf("基于你的敏感度（%g），检测到可能引起情绪波动的内容", p.Sensitivity))
	}

	if p.RecentTrend == TrendDeclining {
		out.level = MaxLevel(out.level, Medium)
		out.reasons = append(out.reasons, "你最近的情绪趋势呈下降状态，需要额外关注")
		out.suggestions = append(out.suggestions, "建议采取情绪管理措施，或寻求专业支持")
	}

	if p.Sensitivity > p.RiskThreshold &&
		(p.RecentTrend == TrendDeclining || p.RecentTrend == TrendSlightlyNegative) {
		if out.level == Medium {
			out.level = High
		}
		out.reasons = append(out.reasons, "基于你的情绪Profile，当前情况需要高度关注")
		out.suggestions = append(out.suggestions, "强烈建议寻求专业支持或采取紧急干预措施")
	}

	return out
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
