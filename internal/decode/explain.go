package decode

import (
	"fmt"
	"strings"
)

// Explain renders a trace as markdown, tier 1 then 2 then 3. A changed
// category is called out as original → final.
func Explain(t Trace) string {
	var b strings.Builder
	b.WriteString("## 分类过程说明\n")

	fmt.Fprintf(&b, "\n**一级分类（行为类别）**：%s\n", orUnknown(t.Level1.Category))
	fmt.Fprintf(&b, "- 方法：%s\n", t.Level1.Method)
	fmt.Fprintf(&b, "- 置信度：%.2f\n", t.Level1.Confidence)
	fmt.Fprintf(&b, "- 说明：%s\n", t.Level1.Explanation)

	dir := string(t.Level2.Direction)
	if dir == "" {
		dir = "neutral"
	}
	fmt.Fprintf(&b, "\n**二级分类（情绪方向）**：%s\n", dir)
	fmt.Fprintf(&b, "- 情绪类型：%s\n", t.Level2.EmotionType)
	fmt.Fprintf(&b, "- 强度：%.2f\n", t.Level2.Intensity)
	fmt.Fprintf(&b, "- 说明：%s\n", t.Level2.Explanation)

	fmt.Fprintf(&b, "\n**三级分类（AI精炼）**：%s\n", orUnknown(t.Level3.FinalScene))
	fmt.Fprintf(&b, "- 最终置信度：%.2f\n", t.Level3.Confidence)
	fmt.Fprintf(&b, "- 修正原因：%s", t.Level3.Reason)

	if r := t.Level3.Refinements; r.CategoryChanged {
		fmt.Fprintf(&b, "\n- ⚠️ 分类已修正：%s → %s", r.OriginalCategory, r.FinalCategory)
	}
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "未知"
	}
	return s
}
